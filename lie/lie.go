// Package lie implements the small amount of SO(3) and SE(3) Lie group
// algebra needed to perturb rigid body poses through their tangent space.
//
// Rotations are parametrized by rotation vectors (axis times angle) and
// poses by 6-vectors holding the rotation vector in components 0..2 and
// the translation in components 3..5. The pose chart treats the pose as
// a point on the product manifold SO(3) x R3: retraction composes the
// rotation block on the group and adds the translation block.
package lie

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	// RotDim is the dimension of the rotation vector block
	RotDim = 3
	// TransDim is the dimension of the translation block
	TransDim = 3
	// PoseDim is the dimension of the pose chart coordinates
	PoseDim = RotDim + TransDim
)

// epsAngle is the squared angle below which closed form trigonometric
// coefficients are replaced by their Taylor expansions.
const epsAngle = 1e-14

// Skew returns the skew symmetric matrix of a 3-vector w such that
// Skew(w)*v == w x v. It panics if w is not a 3-vector.
func Skew(w mat.Vector) *mat.Dense {
	if w.Len() != RotDim {
		panic(fmt.Sprintf("lie: invalid vector length: %d", w.Len()))
	}

	x, y, z := w.AtVec(0), w.AtVec(1), w.AtVec(2)

	return mat.NewDense(3, 3, []float64{
		0, -z, y,
		z, 0, -x,
		-y, x, 0,
	})
}

// ExpSO3 returns the rotation matrix of the rotation vector w using the
// Rodrigues formula. It panics if w is not a 3-vector.
func ExpSO3(w mat.Vector) *mat.Dense {
	t2 := sqNorm(w)

	var a, b float64
	if t2 < epsAngle {
		a = 1 - t2/6
		b = 0.5 - t2/24
	} else {
		t := math.Sqrt(t2)
		a = math.Sin(t) / t
		b = (1 - math.Cos(t)) / t2
	}

	wx := Skew(w)
	wx2 := new(mat.Dense)
	wx2.Mul(wx, wx)

	r := eye(3)
	wx.Scale(a, wx)
	r.Add(r, wx)
	wx2.Scale(b, wx2)
	r.Add(r, wx2)

	return r
}

// LogSO3 returns the rotation vector of the rotation matrix r.
// It panics if r is not 3x3.
func LogSO3(r mat.Matrix) *mat.VecDense {
	rr, rc := r.Dims()
	if rr != 3 || rc != 3 {
		panic(fmt.Sprintf("lie: invalid rotation matrix dims: [%d x %d]", rr, rc))
	}

	cos := (mat.Trace(r) - 1) / 2
	// clamp against rounding drift outside [-1, 1]
	cos = math.Max(-1, math.Min(1, cos))
	t := math.Acos(cos)

	if t < math.Pi-1e-6 {
		var a float64
		if t*t < epsAngle {
			a = 0.5 + t*t/12
		} else {
			a = t / (2 * math.Sin(t))
		}
		return mat.NewVecDense(3, []float64{
			a * (r.At(2, 1) - r.At(1, 2)),
			a * (r.At(0, 2) - r.At(2, 0)),
			a * (r.At(1, 0) - r.At(0, 1)),
		})
	}

	// near pi the off diagonal differences vanish, recover the axis
	// from the dominant diagonal entry instead
	k := 0
	for i := 1; i < 3; i++ {
		if r.At(i, i) > r.At(k, k) {
			k = i
		}
	}
	i, j := (k+1)%3, (k+2)%3
	axis := mat.NewVecDense(3, nil)
	axis.SetVec(k, math.Sqrt(math.Max(0, (r.At(k, k)-r.At(i, i)-r.At(j, j)+1)/2)))
	axis.SetVec(i, (r.At(i, k)+r.At(k, i))/(4*axis.AtVec(k)))
	axis.SetVec(j, (r.At(j, k)+r.At(k, j))/(4*axis.AtVec(k)))
	axis.ScaleVec(t/mat.Norm(axis, 2), axis)

	return axis
}

// ExpSE3 returns the rotation matrix and translation vector of the twist
// xi, where xi holds the angular part in components 0..2 and the linear
// part in components 3..5. It panics if xi is not a 6-vector.
func ExpSE3(xi mat.Vector) (*mat.Dense, *mat.VecDense) {
	if xi.Len() != PoseDim {
		panic(fmt.Sprintf("lie: invalid twist length: %d", xi.Len()))
	}

	w := rotPart(xi)
	v := transPart(xi)

	t := mat.NewVecDense(3, nil)
	t.MulVec(leftJacSO3(w), v)

	return ExpSO3(w), t
}

// LogSE3 returns the twist of the rigid body transform given by rotation
// matrix r and translation vector p. It is the inverse of ExpSE3 for
// rotation angles below pi.
func LogSE3(r mat.Matrix, p mat.Vector) *mat.VecDense {
	w := LogSO3(r)

	vinv := new(mat.Dense)
	if err := vinv.Inverse(leftJacSO3(w)); err != nil {
		panic(fmt.Sprintf("lie: left Jacobian inversion failed: %v", err))
	}

	v := mat.NewVecDense(3, nil)
	v.MulVec(vinv, p)

	xi := mat.NewVecDense(PoseDim, nil)
	setRotPart(xi, w)
	setTransPart(xi, v)

	return xi
}

// Compose returns the rotation vector of Exp(a)*Exp(b).
// It panics if either argument is not a 3-vector.
func Compose(a, b mat.Vector) *mat.VecDense {
	ra := ExpSO3(a)
	rb := ExpSO3(b)

	rab := new(mat.Dense)
	rab.Mul(ra, rb)

	return LogSO3(rab)
}

// Retract moves the pose p along the tangent perturbation d and returns
// the resulting pose coordinates. The rotation block composes on SO(3),
// the translation block adds. Retract(p, 0) equals p exactly.
// It returns error if either argument is not a 6-vector.
func Retract(p, d mat.Vector) (*mat.VecDense, error) {
	if p.Len() != PoseDim {
		return nil, fmt.Errorf("invalid pose length: %d", p.Len())
	}
	if d.Len() != PoseDim {
		return nil, fmt.Errorf("invalid perturbation length: %d", d.Len())
	}

	// rotating by an exactly zero perturbation must be the identity,
	// not a round trip through Exp and Log
	out := mat.NewVecDense(PoseDim, nil)
	if isZero(rotPart(d)) {
		setRotPart(out, rotPart(p))
	} else {
		setRotPart(out, Compose(rotPart(p), rotPart(d)))
	}

	tr := mat.NewVecDense(TransDim, nil)
	tr.AddVec(transPart(p), transPart(d))
	setTransPart(out, tr)

	return out, nil
}

// InvRightJacobianSO3 returns the inverse of the right Jacobian of SO(3)
// at the rotation vector w: the derivative of Log(Exp(w)*Exp(d)) with
// respect to d at d = 0. It panics if w is not a 3-vector.
func InvRightJacobianSO3(w mat.Vector) *mat.Dense {
	t2 := sqNorm(w)

	var c float64
	if t2 < epsAngle {
		c = 1.0 / 12
	} else {
		t := math.Sqrt(t2)
		c = 1/t2 - (1+math.Cos(t))/(2*t*math.Sin(t))
	}

	wx := Skew(w)
	wx2 := new(mat.Dense)
	wx2.Mul(wx, wx)

	j := eye(3)
	wx.Scale(0.5, wx)
	j.Add(j, wx)
	wx2.Scale(c, wx2)
	j.Add(j, wx2)

	return j
}

// leftJacSO3 returns the left Jacobian of SO(3) at w, which doubles as
// the SE(3) translation coupling matrix V.
func leftJacSO3(w mat.Vector) *mat.Dense {
	t2 := sqNorm(w)

	var b, c float64
	if t2 < epsAngle {
		b = 0.5 - t2/24
		c = 1.0/6 - t2/120
	} else {
		t := math.Sqrt(t2)
		b = (1 - math.Cos(t)) / t2
		c = (t - math.Sin(t)) / (t2 * t)
	}

	wx := Skew(w)
	wx2 := new(mat.Dense)
	wx2.Mul(wx, wx)

	j := eye(3)
	wx.Scale(b, wx)
	j.Add(j, wx)
	wx2.Scale(c, wx2)
	j.Add(j, wx2)

	return j
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}

	return m
}

func sqNorm(w mat.Vector) float64 {
	var s float64
	for i := 0; i < w.Len(); i++ {
		s += w.AtVec(i) * w.AtVec(i)
	}

	return s
}

func isZero(w mat.Vector) bool {
	for i := 0; i < w.Len(); i++ {
		if w.AtVec(i) != 0 {
			return false
		}
	}

	return true
}

func rotPart(p mat.Vector) mat.Vector {
	out := mat.NewVecDense(RotDim, nil)
	for i := 0; i < RotDim; i++ {
		out.SetVec(i, p.AtVec(i))
	}

	return out
}

func transPart(p mat.Vector) mat.Vector {
	out := mat.NewVecDense(TransDim, nil)
	for i := 0; i < TransDim; i++ {
		out.SetVec(i, p.AtVec(RotDim+i))
	}

	return out
}

func setRotPart(p *mat.VecDense, w mat.Vector) {
	for i := 0; i < RotDim; i++ {
		p.SetVec(i, w.AtVec(i))
	}
}

func setTransPart(p *mat.VecDense, v mat.Vector) {
	for i := 0; i < TransDim; i++ {
		p.SetVec(RotDim+i, v.AtVec(i))
	}
}
