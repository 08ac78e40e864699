package hop

import (
	"fmt"
	"hash/fnv"

	G "gorgonia.org/gorgonia"
)

// SimpleHash constructs the 32-bit FNV-1a hash of a Gorgonia Op.
// Taken from Gorgonia.
func SimpleHash(op G.Op) uint32 {
	h := fnv.New32a()
	op.WriteHash(h)
	return h.Sum32()
}

// CheckArity returns an error if op cannot be applied to the given
// number of inputs
func CheckArity(op G.Op, inputs int) error {
	if inputs != op.Arity() && op.Arity() >= 0 {
		return fmt.Errorf("%v has an arity of %d. Got %d instead", op,
			op.Arity(), inputs)
	}
	return nil
}

// NoGradient returns a zero gradient for each input of an operation
// that is constant with respect to its inputs. Every operation in a
// graph passed to G.Grad must be an SDOp, including those whose DiffWRT
// reports no differentiable inputs.
func NoGradient(inputs G.Nodes) (G.Nodes, error) {
	grads := make(G.Nodes, len(inputs))
	for i, in := range inputs {
		var err error
		if in.IsScalar() {
			grads[i], err = ScalarLike(in, 0)
		} else {
			grads[i], err = Fill(in.Graph(), in.Dtype(), in.Shape(), 0)
		}
		if err != nil {
			return nil, fmt.Errorf("noGradient: %v", err)
		}
	}
	return grads, nil
}
