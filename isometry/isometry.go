// Package isometry converts points between three models of the same
// hyperbolic space of curvature -c: the Poincaré disk, the upper
// half-plane and the hyperboloid. Each pair of functions forms an
// inverse couple, and every function is differentiable.
//
// Points are stored one per row. Half-plane points are (N, 2) matrices
// (a, b) with b > 0; the log-scale half-plane stores (a, log b). Disk
// points are (N, D) matrices, and hyperboloid points are (N, D+1)
// matrices whose first column is the time coordinate. The maps between
// the half-plane and the other models are only defined in two
// dimensions.
package isometry

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// minDenom bounds denominators away from zero for points on, or
// numerically beyond, the boundary of a model
const minDenom = 1e-15

// HalfplaneToDisk maps half-plane points onto the Poincaré disk:
//
//	        (√c a² + (b² - 1)/√c, -2a)
//	(a, b) ↦ --------------------------
//	              c a² + (b + 1)²
func HalfplaneToDisk(x *G.Node, c float64) (*G.Node, error) {
	cols, err := coords(x, c, 2)
	if err != nil {
		return nil, fmt.Errorf("halfplaneToDisk: %w", err)
	}
	a, b := cols[0], cols[1]
	k := constants(x, 1)
	s := math.Sqrt(c)

	a2 := G.Must(G.Square(a))
	b1 := G.Must(G.Add(b, k(1)))
	den := G.Must(G.Add(G.Must(G.HadamardProd(k(c), a2)),
		G.Must(G.Square(b1))))
	den, err = hop.ClampMin(den, minDenom)
	if err != nil {
		return nil, fmt.Errorf("halfplaneToDisk: %v", err)
	}

	u := G.Must(G.Sub(G.Must(G.Square(b)), k(1)))
	u = G.Must(G.HadamardDiv(u, k(s)))
	u = G.Must(G.Add(G.Must(G.HadamardProd(k(s), a2)), u))
	v := G.Must(G.HadamardProd(k(-2), a))

	return concatDiv(den, u, v)
}

// DiskToHalfplane maps Poincaré disk points onto the half-plane:
//
//	        (-2b, 1 - c(a² + b²))
//	(a, b) ↦ --------------------
//	         (√c a - 1)² + c b²
func DiskToHalfplane(x *G.Node, c float64) (*G.Node, error) {
	cols, err := coords(x, c, 2)
	if err != nil {
		return nil, fmt.Errorf("diskToHalfplane: %w", err)
	}
	a, b := cols[0], cols[1]
	k := constants(x, 1)
	s := math.Sqrt(c)

	b2 := G.Must(G.Square(b))
	sa1 := G.Must(G.Sub(G.Must(G.HadamardProd(k(s), a)), k(1)))
	den := G.Must(G.Add(G.Must(G.Square(sa1)), G.Must(G.HadamardProd(k(c), b2))))
	den, err = hop.ClampMin(den, minDenom)
	if err != nil {
		return nil, fmt.Errorf("diskToHalfplane: %v", err)
	}

	u := G.Must(G.HadamardProd(k(-2), b))
	sq := G.Must(G.Add(G.Must(G.Square(a)), b2))
	v := G.Must(G.Sub(k(1), G.Must(G.HadamardProd(k(c), sq))))

	return concatDiv(den, u, v)
}

// DiskToLorentz lifts Poincaré disk points of any dimension onto the
// hyperboloid:
//
//	     ⎛ 1 + c‖x‖²        2x    ⎞
//	x ↦ ⎜ -----------, --------- ⎟
//	     ⎝ √c(1 - c‖x‖²)  1 - c‖x‖² ⎠
func DiskToLorentz(x *G.Node, c float64) (*G.Node, error) {
	if err := checkCurvature(c); err != nil {
		return nil, fmt.Errorf("diskToLorentz: %w", err)
	}
	if err := hop.CheckRows(x); err != nil {
		return nil, fmt.Errorf("diskToLorentz: %v", err)
	}
	k := constants(x, 1)
	s := math.Sqrt(c)

	sq, err := hop.RowDot(x, x)
	if err != nil {
		return nil, fmt.Errorf("diskToLorentz: %v", err)
	}
	csq := G.Must(G.HadamardProd(k(c), sq))

	den := G.Must(G.Sub(k(1), csq))
	den, err = hop.ClampMin(den, minDenom)
	if err != nil {
		return nil, fmt.Errorf("diskToLorentz: %v", err)
	}

	time := G.Must(G.Add(k(1), csq))
	time = G.Must(G.HadamardDiv(time, k(s)))
	two := constants(x, x.Shape()[1])(2)
	space := G.Must(G.HadamardProd(two, x))

	return concatDiv(den, time, space)
}

// LorentzToDisk projects hyperboloid points onto the Poincaré disk:
//
//	x ↦ x[1:] / (√c x₀ + 1)
func LorentzToDisk(x *G.Node, c float64) (*G.Node, error) {
	if err := checkCurvature(c); err != nil {
		return nil, fmt.Errorf("lorentzToDisk: %w", err)
	}
	if err := hop.CheckRows(x); err != nil {
		return nil, fmt.Errorf("lorentzToDisk: %v", err)
	}
	d := x.Shape()[1]
	if d < 2 {
		return nil, fmt.Errorf("lorentzToDisk: expected at least 2 "+
			"coordinates but got shape %v", x.Shape())
	}
	k := constants(x, 1)

	time, err := hop.Column(x, 0)
	if err != nil {
		return nil, fmt.Errorf("lorentzToDisk: %v", err)
	}
	space, err := hop.Columns(x, 1, d)
	if err != nil {
		return nil, fmt.Errorf("lorentzToDisk: %v", err)
	}

	den := G.Must(G.Add(G.Must(G.HadamardProd(k(math.Sqrt(c)), time)), k(1)))
	den, err = hop.ClampMin(den, minDenom)
	if err != nil {
		return nil, fmt.Errorf("lorentzToDisk: %v", err)
	}

	return hop.RowDiv(space, den)
}

// LorentzToHalfplane maps points of the two-dimensional hyperboloid
// onto the half-plane:
//
//	            ⎛   -b          1      ⎞
//	(t, a, b) ↦ ⎜ ---------, --------- ⎟
//	            ⎝ √c(t - a)  √c(t - a) ⎠
func LorentzToHalfplane(x *G.Node, c float64) (*G.Node, error) {
	cols, err := coords(x, c, 3)
	if err != nil {
		return nil, fmt.Errorf("lorentzToHalfplane: %w", err)
	}
	k := constants(x, 1)

	st, err := scaledLightCone(cols, c)
	if err != nil {
		return nil, fmt.Errorf("lorentzToHalfplane: %v", err)
	}
	u := G.Must(G.HadamardDiv(G.Must(G.Neg(cols[2])), st))
	v := G.Must(G.HadamardDiv(k(1), st))

	return hop.ConcatColumns(u, v)
}

// LorentzToHalfplaneLog is LorentzToHalfplane with the second
// half-plane coordinate returned as its natural logarithm,
// -log(√c) - log(t - a)
func LorentzToHalfplaneLog(x *G.Node, c float64) (*G.Node, error) {
	cols, err := coords(x, c, 3)
	if err != nil {
		return nil, fmt.Errorf("lorentzToHalfplaneLog: %w", err)
	}
	k := constants(x, 1)

	st, err := scaledLightCone(cols, c)
	if err != nil {
		return nil, fmt.Errorf("lorentzToHalfplaneLog: %v", err)
	}
	u := G.Must(G.HadamardDiv(G.Must(G.Neg(cols[2])), st))

	ta := G.Must(G.Sub(cols[0], cols[1]))
	ta, err = hop.ClampMin(ta, minDenom)
	if err != nil {
		return nil, fmt.Errorf("lorentzToHalfplaneLog: %v", err)
	}
	v := G.Must(G.Sub(k(-0.5*math.Log(c)), G.Must(G.Log(ta))))

	return hop.ConcatColumns(u, v)
}

// HalfplaneToLorentz lifts half-plane points onto the two-dimensional
// hyperboloid:
//
//	         ⎛ 1 + c a² + b²   -1 + c a² + b²    -a ⎞
//	(a, b) ↦ ⎜ ------------, --------------,  --- ⎟
//	         ⎝    2√c b           2√c b          b  ⎠
func HalfplaneToLorentz(x *G.Node, c float64) (*G.Node, error) {
	cols, err := coords(x, c, 2)
	if err != nil {
		return nil, fmt.Errorf("halfplaneToLorentz: %w", err)
	}
	a, b := cols[0], cols[1]
	k := constants(x, 1)
	s := math.Sqrt(c)

	b, err = hop.ClampMin(b, minDenom)
	if err != nil {
		return nil, fmt.Errorf("halfplaneToLorentz: %v", err)
	}

	ca2b2 := G.Must(G.Add(G.Must(G.HadamardProd(k(c), G.Must(G.Square(a)))),
		G.Must(G.Square(b))))
	den := G.Must(G.HadamardProd(k(2*s), b))

	t := G.Must(G.HadamardDiv(G.Must(G.Add(k(1), ca2b2)), den))
	u := G.Must(G.HadamardDiv(G.Must(G.Sub(ca2b2, k(1))), den))
	v := G.Must(G.HadamardDiv(G.Must(G.Neg(a)), b))

	return hop.ConcatColumns(t, u, v)
}

// HalfplaneToLorentzLog is HalfplaneToLorentz for half-plane points
// whose second coordinate is stored as its natural logarithm:
//
//	            ⎛ (1 + c a²)/b + b   (-1 + c a²)/b + b     -a ⎞
//	(a, log b) ↦ ⎜ ---------------, ----------------,   --- ⎟
//	            ⎝       2√c               2√c              b  ⎠
func HalfplaneToLorentzLog(x *G.Node, c float64) (*G.Node, error) {
	cols, err := coords(x, c, 2)
	if err != nil {
		return nil, fmt.Errorf("halfplaneToLorentzLog: %w", err)
	}
	a, logB := cols[0], cols[1]
	k := constants(x, 1)
	s := math.Sqrt(c)

	b := G.Must(G.Exp(logB))
	bInv := G.Must(G.Exp(G.Must(G.Neg(logB))))
	ca2 := G.Must(G.HadamardProd(k(c), G.Must(G.Square(a))))

	t := G.Must(G.HadamardProd(G.Must(G.Add(k(1), ca2)), bInv))
	t = G.Must(G.HadamardDiv(G.Must(G.Add(t, b)), k(2*s)))

	u := G.Must(G.HadamardProd(G.Must(G.Sub(ca2, k(1))), bInv))
	u = G.Must(G.HadamardDiv(G.Must(G.Add(u, b)), k(2*s)))

	v := G.Must(G.HadamardProd(G.Must(G.Neg(a)), bInv))

	return hop.ConcatColumns(t, u, v)
}

// scaledLightCone returns √c(t - a) for hyperboloid columns (t, a, b),
// clamped away from zero
func scaledLightCone(cols []*G.Node, c float64) (*G.Node, error) {
	ta, err := G.Sub(cols[0], cols[1])
	if err != nil {
		return nil, err
	}
	s := constants(ta, 1)(math.Sqrt(c))
	st, err := G.HadamardProd(s, ta)
	if err != nil {
		return nil, err
	}
	return hop.ClampMin(st, minDenom)
}

// coords validates c and the shape of x, which must have exactly k
// columns, and returns the columns of x as (N, 1) matrices
func coords(x *G.Node, c float64, k int) ([]*G.Node, error) {
	if err := checkCurvature(c); err != nil {
		return nil, err
	}
	if err := hop.CheckRows(x); err != nil {
		return nil, err
	}
	if x.Shape()[1] != k {
		return nil, fmt.Errorf("expected %v coordinates but got shape %v",
			k, x.Shape())
	}

	cols := make([]*G.Node, k)
	for i := range cols {
		col, err := hop.Column(x, i)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return cols, nil
}

// constants returns a function that builds constant (N, cols)
// matrices filled with a single value, where N is the number of rows
// of x. Every element-wise operation then combines operands of the same
// shape.
func constants(x *G.Node, cols int) func(float64) *G.Node {
	shape := tensor.Shape{x.Shape()[0], cols}
	return func(v float64) *G.Node {
		return G.Must(hop.Fill(x.Graph(), x.Dtype(), shape, v))
	}
}

// concatDiv concatenates the columns and divides each resulting row by
// the corresponding element of den
func concatDiv(den *G.Node, cols ...*G.Node) (*G.Node, error) {
	out, err := hop.ConcatColumns(cols...)
	if err != nil {
		return nil, err
	}
	return hop.RowDiv(out, den)
}

func checkCurvature(c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return fmt.Errorf("%w: curvature magnitude must be positive and "+
			"finite, got %v", hop.ErrConstraintViolation, c)
	}
	return nil
}
