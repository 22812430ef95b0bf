package metadata

/** @brief Runs on a worker goroutine. The result is handed to OnComplete. */
type JobStart func(params interface{}) (interface{}, error)

/** @brief Runs on the goroutine that calls JobSystem.Update. */
type JobOnComplete func(result interface{})

type JobOnFailure func(err error)

/**
 * @brief Describes a job to be run.
 */
type JobTask struct {
	Name string
	/** @brief Invoked on a worker when the job starts. Required. */
	OnStart JobStart
	/** @brief Invoked when the job succeeds. Optional. */
	OnComplete JobOnComplete
	/** @brief Invoked when the job fails. Optional. */
	OnFailure JobOnFailure
	/** @brief Data passed to OnStart. */
	InputParams interface{}
}

/** @brief The outcome of a job, waiting to be dispatched on the update goroutine. */
type JobResult struct {
	Task   JobTask
	Result interface{}
	Err    error
}
