package hop

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// materialize returns a contiguous copy of t if t is a view, otherwise
// t itself. Kernels index the backing slice directly, so they must
// never see a strided view.
func materialize(t tensor.Tensor) tensor.Tensor {
	if d, ok := t.(*tensor.Dense); ok && d.IsMaterializable() {
		return d.Materialize()
	}
	return t
}

// mapValue applies f64 or f32 element-wise to v, depending on the
// dtype of v, and returns the result in a newly allocated value of the
// same shape
func mapValue(v G.Value, f64 func(float64) float64,
	f32 func(float32) float32) (G.Value, error) {
	switch v := v.(type) {
	case *G.F64:
		return G.NewF64(f64(float64(*v))), nil

	case *G.F32:
		return G.NewF32(f32(float32(*v))), nil

	case tensor.Tensor:
		in := materialize(v)

		switch data := in.Data().(type) {
		case float64:
			return tensor.New(tensor.FromScalar(f64(data))), nil

		case float32:
			return tensor.New(tensor.FromScalar(f32(data))), nil

		case []float64:
			out := make([]float64, len(data))
			for i, x := range data {
				out[i] = f64(x)
			}
			return tensor.New(
				tensor.WithShape(in.Shape().Clone()...),
				tensor.WithBacking(out),
			), nil

		case []float32:
			out := make([]float32, len(data))
			for i, x := range data {
				out[i] = f32(x)
			}
			return tensor.New(
				tensor.WithShape(in.Shape().Clone()...),
				tensor.WithBacking(out),
			), nil

		default:
			return nil, fmt.Errorf("unsupported dtype %v", in.Dtype())
		}

	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// zipValue applies f64 or f32 element-wise to the pairs (x_i, g_i) of
// two values of equal shape and dtype. It is used by the derivative ops,
// where x is the input of the forward op and g is the upstream gradient.
func zipValue(x, g G.Value, f64 func(x, g float64) float64,
	f32 func(x, g float32) float32) (G.Value, error) {
	switch xv := x.(type) {
	case *G.F64:
		gv, ok := g.(*G.F64)
		if !ok {
			return nil, fmt.Errorf("expected gradient of type %T but got %T",
				x, g)
		}
		return G.NewF64(f64(float64(*xv), float64(*gv))), nil

	case *G.F32:
		gv, ok := g.(*G.F32)
		if !ok {
			return nil, fmt.Errorf("expected gradient of type %T but got %T",
				x, g)
		}
		return G.NewF32(f32(float32(*xv), float32(*gv))), nil

	case tensor.Tensor:
		gt, ok := g.(tensor.Tensor)
		if !ok {
			return nil, fmt.Errorf("expected tensor gradient but got %T", g)
		}
		if xv.Size() != gt.Size() {
			return nil, fmt.Errorf("input size %v does not match gradient "+
				"size %v", xv.Size(), gt.Size())
		}
		in := materialize(xv)
		grad := materialize(gt)

		switch data := in.Data().(type) {
		case float64:
			return tensor.New(tensor.FromScalar(f64(data,
				grad.Data().(float64)))), nil

		case float32:
			return tensor.New(tensor.FromScalar(f32(data,
				grad.Data().(float32)))), nil

		case []float64:
			gData, ok := grad.Data().([]float64)
			if !ok {
				return nil, fmt.Errorf("expected gradient dtype %v but got %v",
					in.Dtype(), grad.Dtype())
			}
			out := make([]float64, len(data))
			for i, x := range data {
				out[i] = f64(x, gData[i])
			}
			return tensor.New(
				tensor.WithShape(in.Shape().Clone()...),
				tensor.WithBacking(out),
			), nil

		case []float32:
			gData, ok := grad.Data().([]float32)
			if !ok {
				return nil, fmt.Errorf("expected gradient dtype %v but got %v",
					in.Dtype(), grad.Dtype())
			}
			out := make([]float32, len(data))
			for i, x := range data {
				out[i] = f32(x, gData[i])
			}
			return tensor.New(
				tensor.WithShape(in.Shape().Clone()...),
				tensor.WithBacking(out),
			), nil

		default:
			return nil, fmt.Errorf("unsupported dtype %v", in.Dtype())
		}

	default:
		return nil, fmt.Errorf("unsupported value type %T", x)
	}
}

// checkValues returns an error if the inputs to op are not all scalar
// values or non-empty tensors
func checkValues(op G.Op, inputs ...G.Value) error {
	if err := CheckArity(op, len(inputs)); err != nil {
		return err
	}

	for i, in := range inputs {
		switch v := in.(type) {
		case *G.F64, *G.F32:
		case tensor.Tensor:
			if v == nil {
				return fmt.Errorf("input %d is a nil tensor", i)
			} else if v.Size() == 0 {
				return fmt.Errorf("input %d does not have any elements", i)
			}
		default:
			return fmt.Errorf("expected input %d to be a tensor, got %T", i,
				in)
		}
	}

	return nil
}
