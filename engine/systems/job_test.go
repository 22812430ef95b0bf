package systems

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framecore/engine/renderer/metadata"
)

// drain runs Update until every submitted job dispatched its callbacks.
func drain(t *testing.T, js *JobSystem) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for js.Pending() > 0 {
		js.Update()
		if time.Now().After(deadline) {
			t.Fatalf("%d jobs still pending", js.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemCallbacksRunOnUpdate(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)
	defer js.Shutdown()

	var started atomic.Int32
	completed := 0
	failed := 0
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, js.Submit(metadata.JobTask{
			Name: "square",
			OnStart: func(params interface{}) (interface{}, error) {
				started.Add(1)
				n := params.(int)
				if n%5 == 0 {
					return nil, errors.New("multiple of five")
				}
				return n * n, nil
			},
			OnComplete: func(result interface{}) {
				assert.Equal(t, i*i, result)
				completed++
			},
			OnFailure: func(err error) {
				failed++
			},
			InputParams: i,
		}))
	}

	drain(t, js)
	assert.EqualValues(t, 20, started.Load())
	assert.Equal(t, 16, completed)
	assert.Equal(t, 4, failed)
}

func TestJobSystemSubmitRequiresStart(t *testing.T) {
	js, err := NewJobSystem(1, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	assert.Error(t, js.Submit(metadata.JobTask{Name: "empty"}))
}

func TestJobSystemShutdownDispatchesRemainingResults(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)

	completed := 0
	for i := 0; i < 4; i++ {
		require.NoError(t, js.Submit(metadata.JobTask{
			OnStart:    func(interface{}) (interface{}, error) { return nil, nil },
			OnComplete: func(interface{}) { completed++ },
		}))
	}
	js.Shutdown()
	assert.Equal(t, 4, completed)
	assert.Zero(t, js.Pending())

	err = js.Submit(metadata.JobTask{OnStart: func(interface{}) (interface{}, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrJobSystemClosed)
}
