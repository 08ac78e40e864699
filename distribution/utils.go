package distribution

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/hop"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// values returns the elements of a float64 or float32 value as
// float64s
func values(v G.Value) ([]float64, error) {
	if v.Dtype() == tensor.Float32 {
		t, ok := v.(tensor.Tensor)
		if !ok {
			return []float64{float64(*v.(*G.F32))}, nil
		}
		if d, ok := t.(*tensor.Dense); ok && d.IsMaterializable() {
			t = d.Materialize()
		}
		data, ok := t.Data().([]float32)
		if !ok {
			return []float64{float64(t.Data().(float32))}, nil
		}
		out := make([]float64, len(data))
		for i, x := range data {
			out[i] = float64(x)
		}
		return out, nil
	}
	return hop.ValueFloat64s(v)
}

// newValue returns a dense tensor of dtype dt and the given shape
// holding data
func newValue(dt tensor.Dtype, shape tensor.Shape,
	data []float64) tensor.Tensor {
	if dt == tensor.Float32 {
		data32 := make([]float32, len(data))
		for i, x := range data {
			data32[i] = float32(x)
		}
		return tensor.New(tensor.WithShape(shape.Clone()...),
			tensor.WithBacking(data32))
	}
	return tensor.New(tensor.WithShape(shape.Clone()...),
		tensor.WithBacking(data))
}

// seeder hands out the seeds of the sampling ops of one distribution,
// so that each call to a sampling method draws independent noise
type seeder struct {
	rng *rand.Rand
}

func newSeeder(seed uint64) *seeder {
	return &seeder{rand.New(rand.NewSource(seed))}
}

func (s *seeder) next() uint64 { return s.rng.Uint64() }

// checkValues returns an error wrapping ErrConstraintViolation if the
// value of n contains a NaN, or, when positive is true, a non-positive
// element
func checkValues(name string, n *G.Node, positive bool) error {
	data, err := hop.Float64s(n)
	if err != nil {
		return fmt.Errorf("cannot validate %v: %v", name, err)
	}

	for _, x := range data {
		if math.IsNaN(x) {
			return fmt.Errorf("%w: %v contains NaN", ErrConstraintViolation,
				name)
		}
		if positive && !(x > 0) {
			return fmt.Errorf("%w: %v must be positive, got %v",
				ErrConstraintViolation, name, x)
		}
	}
	return nil
}

// checkFloat64 returns an error if the nodes are not all of dtype
// float64
func checkFloat64(nodes ...*G.Node) error {
	for _, n := range nodes {
		if n.Dtype() != tensor.Float64 {
			return fmt.Errorf("data type %v unsupported", n.Dtype())
		}
	}
	return nil
}
