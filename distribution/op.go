package distribution

import (
	"fmt"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
)

// NormalRand returns a node that draws numSamples samples from each of
// the normal distributions with the given means and standard
// deviations every time the graph is run. The output has shape
// (numSamples, shape...) where shape is the shape of mean. NormalRand
// is not differentiable; pass constant parameters when the result is
// on the path of a gradient.
func NormalRand(mean, stddev *G.Node, seed uint64,
	numSamples int) (*G.Node, error) {
	if mean.Dtype() != stddev.Dtype() {
		return nil, fmt.Errorf("normalRand: mean and stddev should have "+
			"same dtype but got %v and %v", mean.Dtype(), stddev.Dtype())
	}

	if !hop.SameShape(mean.Shape(), stddev.Shape()) {
		return nil, fmt.Errorf("normalRand: mean and stddev should have "+
			"same shape but got %v and %v", mean.Shape(), stddev.Shape())
	}

	n, err := newNormalSampleOp(mean.Dtype(), seed, numSamples,
		mean.Shape()...)
	if err != nil {
		return nil, fmt.Errorf("normalRand: %v", err)
	}

	return G.ApplyOp(n, mean, stddev)
}
