// rrdstore - Multimodal Time-Series Storage Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rrdstore

package rrtransform

// Affine3D is a rigid/scaled affine transform: a 3x3 linear part (row
// major) composed with a translation, matching the archetypes the
// store indexes (rrcomponent.TypeTranslation3D/RotationQuat/Scale3D/
// TransformMat3x3). This is the minimal linear algebra the resolver
// needs to compose a root-to-entity chain (spec.md §4.7 step 2); it is
// not a general-purpose math library.
type Affine3D struct {
	Linear      [9]float32 // row-major 3x3
	Translation [3]float32
}

// IdentityAffine3D is the transform applied to an entity with no
// observed transform components (spec.md §4.7 step 2: "Missing
// transform = identity").
func IdentityAffine3D() Affine3D {
	return Affine3D{Linear: [9]float32{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// TranslationAffine3D builds a pure-translation transform.
func TranslationAffine3D(t [3]float32) Affine3D {
	a := IdentityAffine3D()
	a.Translation = t
	return a
}

// ScaleAffine3D builds a pure-scale transform.
func ScaleAffine3D(s [3]float32) Affine3D {
	return Affine3D{Linear: [9]float32{s[0], 0, 0, 0, s[1], 0, 0, 0, s[2]}}
}

// Mat3x3Affine3D builds a pure-linear transform from a row-major 3x3.
func Mat3x3Affine3D(m [9]float32) Affine3D {
	return Affine3D{Linear: m}
}

// RotationQuatAffine3D converts a unit quaternion (x, y, z, w) into its
// row-major 3x3 rotation matrix.
func RotationQuatAffine3D(q [4]float32) Affine3D {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return Affine3D{Linear: [9]float32{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	}}
}

// Compose returns parent ∘ child: child's coordinates mapped through
// child, then through parent — the composition order spec.md §4.7 step
// 2 walks root-to-entity with ("compose into the running absolute
// transform").
func Compose(parent, child Affine3D) Affine3D {
	var out Affine3D
	out.Linear = mulMat3(parent.Linear, child.Linear)
	out.Translation = addVec3(mulMat3Vec3(parent.Linear, child.Translation), parent.Translation)
	return out
}

// Apply maps v through a (a's linear part then its translation).
func (a Affine3D) Apply(v [3]float32) [3]float32 {
	return addVec3(mulMat3Vec3(a.Linear, v), a.Translation)
}

func mulMat3(a, b [9]float32) [9]float32 {
	var out [9]float32
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			var sum float32
			for k := 0; k < 3; k++ {
				sum += a[r*3+k] * b[k*3+c]
			}
			out[r*3+c] = sum
		}
	}
	return out
}

func mulMat3Vec3(m [9]float32, v [3]float32) [3]float32 {
	return [3]float32{
		m[0]*v[0] + m[1]*v[1] + m[2]*v[2],
		m[3]*v[0] + m[4]*v[1] + m[5]*v[2],
		m[6]*v[0] + m[7]*v[1] + m[8]*v[2],
	}
}

func addVec3(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}
