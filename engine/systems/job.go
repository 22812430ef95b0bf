package systems

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/framecore/engine/core"
	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// JobSystem runs jobs on a pool of workers. Callbacks are not run by the workers: results
// are queued and dispatched by Update on the goroutine that owns the renderer.
type JobSystem struct {
	numWorkers int
	jobQueue   chan metadata.JobTask
	wg         sync.WaitGroup

	// held for reading while sending, for writing while closing the queue
	sendMu sync.RWMutex
	closed bool

	mu      sync.Mutex
	results []metadata.JobResult
	pending atomic.Int64
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeChannelSize = fmt.Errorf("attempting to create worker pool with a negative channel size")
var ErrJobSystemClosed = fmt.Errorf("job system is shut down")

func NewJobSystem(numWorkers int, channelSize int) (*JobSystem, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if channelSize < 0 {
		return nil, ErrNegativeChannelSize
	}

	js := &JobSystem{
		numWorkers: numWorkers,
		jobQueue:   make(chan metadata.JobTask, channelSize),
	}
	js.start()

	return js, nil
}

func (js *JobSystem) start() {
	for i := 0; i < js.numWorkers; i++ {
		js.wg.Add(1)
		go func() {
			defer js.wg.Done()
			for job := range js.jobQueue {
				result, err := job.OnStart(job.InputParams)
				if err != nil {
					core.LogError("job %s failed: %s", job.Name, err)
				}
				js.mu.Lock()
				js.results = append(js.results, metadata.JobResult{Task: job, Result: result, Err: err})
				js.mu.Unlock()
			}
		}()
	}
}

/**
 * @brief Dispatches the callbacks of every finished job. Should happen once an update cycle.
 * @return The number of jobs dispatched.
 */
func (js *JobSystem) Update() int {
	js.mu.Lock()
	results := js.results
	js.results = nil
	js.mu.Unlock()

	for _, r := range results {
		if r.Err != nil {
			if r.Task.OnFailure != nil {
				r.Task.OnFailure(r.Err)
			}
		} else if r.Task.OnComplete != nil {
			r.Task.OnComplete(r.Result)
		}
		js.pending.Add(-1)
	}
	return len(results)
}

// Pending is the number of submitted jobs whose callbacks did not run yet.
func (js *JobSystem) Pending() int {
	return int(js.pending.Load())
}

/**
 * @brief Submits the provided job to be queued for execution. Blocks while the queue is full.
 */
func (js *JobSystem) Submit(jt metadata.JobTask) error {
	if jt.OnStart == nil {
		return fmt.Errorf("job %s has no entry point", jt.Name)
	}
	js.sendMu.RLock()
	defer js.sendMu.RUnlock()
	if js.closed {
		return ErrJobSystemClosed
	}
	js.pending.Add(1)
	js.jobQueue <- jt
	return nil
}

/**
 * @brief Shuts the job system down. Queued jobs still run; their callbacks are dispatched
 * here.
 */
func (js *JobSystem) Shutdown() error {
	js.sendMu.Lock()
	if js.closed {
		js.sendMu.Unlock()
		return nil
	}
	js.closed = true
	close(js.jobQueue)
	js.sendMu.Unlock()

	js.wg.Wait()
	js.Update()
	return nil
}
