// Package manifold implements the primitive operations of two models of
// hyperbolic space, the hyperboloid (Lorentz) model and the Poincaré
// ball, as differentiable Gorgonia graph operations.
package manifold

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/hop"
)

const (
	// minNormSq bounds squared norms away from zero. Its square root is
	// small enough that cosh and sinh(x)/x of it round to exactly 1.
	minNormSq = 1e-30

	// minNorm bounds norms and denominators away from zero
	minNorm = 1e-15

	// acoshEps bounds the argument of acosh away from 1, where its
	// gradient diverges
	acoshEps = 1e-15

	// artanhEps bounds the argument of artanh away from ±1
	artanhEps = 1e-15
)

// checkCurvature returns an error wrapping hop.ErrConstraintViolation
// if c is not a valid curvature magnitude
func checkCurvature(c float64) error {
	if math.IsNaN(c) || math.IsInf(c, 0) || c <= 0 {
		return fmt.Errorf("%w: curvature magnitude must be positive and "+
			"finite, got %v", hop.ErrConstraintViolation, c)
	}
	return nil
}
