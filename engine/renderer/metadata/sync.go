package metadata

/** @brief A CPU-waitable signal set by the GPU when submitted work completes. */
type Fence struct {
	/** @brief Last known state, updated on wait and reset. */
	IsSignaled   bool
	InternalData interface{}
}

/** @brief A GPU-side signal ordering submissions and presentation. */
type Semaphore struct {
	InternalData interface{}
}

/**
 * @brief A pipeline built outside of the frame core (shader compilation and pipeline state
 * construction are done by the caller). Only used to bind state while recording.
 */
type Pipeline struct {
	Name string
	/** @brief True for compute pipelines, false for graphics. */
	Compute      bool
	InternalData interface{}
}
