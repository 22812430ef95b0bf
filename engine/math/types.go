package math

import "github.com/go-gl/mathgl/mgl32"

const FloatEpsilon float32 = 1.192092896e-07

/** @brief Represents the transform of an object in the world. */
type Transform struct {
	/** @brief The position in the world. */
	Position mgl32.Vec3
	/** @brief The rotation in the world. */
	Rotation mgl32.Quat
	/** @brief The scale in the world. */
	Scale mgl32.Vec3
	/**
	 * @brief Indicates if the position, rotation or scale have changed,
	 * indicating that the local matrix needs to be recalculated.
	 */
	IsDirty bool
	/**
	 * @brief The local transformation matrix, updated whenever
	 * the position, rotation or scale have changed.
	 */
	Local mgl32.Mat4
	/** @brief A pointer to a parent transform if one is assigned. Can also be nil. */
	Parent *Transform
}
