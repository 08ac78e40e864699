package hop

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TestRowReductions compares the row-wise reductions with gonum on a
// random matrix
func TestRowReductions(t *testing.T) {
	const n, d = 5, 4
	r := rand.New(rand.NewSource(1))
	x := randF64(r, n*d, -2, 2)
	y := randF64(r, n*d, -2, 2)

	g := G.NewGraph()
	xNode := newInput(g, []int{n, d}, x)
	yNode := newInput(g, []int{n, d}, y)

	sum, err := RowSum(xNode)
	if err != nil {
		t.Fatal(err)
	}
	dot, err := RowDot(xNode, yNode)
	if err != nil {
		t.Fatal(err)
	}
	norm, err := RowNorm(xNode, 1e-30)
	if err != nil {
		t.Fatal(err)
	}
	prod, err := Prod(xNode, 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, node := range []*G.Node{sum, dot, norm} {
		if !node.Shape().Eq(tensor.Shape{n, 1}) {
			t.Fatalf("expected shape (%v, 1) but got %v", n, node.Shape())
		}
	}

	out := runGraph(t, g, sum, dot, norm, prod)
	for i := 0; i < n; i++ {
		xi, yi := x[i*d:(i+1)*d], y[i*d:(i+1)*d]

		if want := floats.Sum(xi); math.Abs(out[0][i]-want) > 1e-12 {
			t.Errorf("row %v: expected sum %v but got %v", i, want, out[0][i])
		}
		if want := floats.Dot(xi, yi); math.Abs(out[1][i]-want) > 1e-12 {
			t.Errorf("row %v: expected dot %v but got %v", i, want, out[1][i])
		}
		if want := floats.Norm(xi, 2); math.Abs(out[2][i]-want) > 1e-12 {
			t.Errorf("row %v: expected norm %v but got %v", i, want, out[2][i])
		}
		if want := floats.Prod(xi); math.Abs(out[3][i]-want) > 1e-12 {
			t.Errorf("row %v: expected product %v but got %v", i, want,
				out[3][i])
		}
	}
}

// TestRowNormZero checks that the norm of a zero row has a finite
// gradient
func TestRowNormZero(t *testing.T) {
	g := G.NewGraph()
	x := newInput(g, []int{2, 3}, []float64{0, 0, 0, 3, 4, 0})
	norm, err := RowNorm(x, 1e-30)
	if err != nil {
		t.Fatal(err)
	}
	grads, err := G.Grad(G.Must(G.Sum(norm)), x)
	if err != nil {
		t.Fatal(err)
	}

	out := runGraph(t, g, norm, grads[0])
	if out[0][0] != 1e-15 || out[0][1] != 5 {
		t.Errorf("expected norms [1e-15 5] but got %v", out[0])
	}
	want := []float64{0, 0, 0, 0.6, 0.8, 0}
	for i := range want {
		if math.Abs(out[1][i]-want[i]) > 1e-12 {
			t.Errorf("expected gradient %v but got %v", want, out[1])
			break
		}
	}
}

func TestRowScale(t *testing.T) {
	g := G.NewGraph()
	x := newInput(g, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	s := newInput(g, []int{2, 1}, []float64{2, 0.5})

	scaled, err := RowScale(x, s)
	if err != nil {
		t.Fatal(err)
	}
	divided, err := RowDiv(x, s)
	if err != nil {
		t.Fatal(err)
	}

	out := runGraph(t, g, scaled, divided)
	if want := []float64{2, 4, 6, 2, 2.5, 3}; !floats.Equal(out[0], want) {
		t.Errorf("rowScale: expected %v but got %v", want, out[0])
	}
	if want := []float64{0.5, 1, 1.5, 8, 10, 12}; !floats.Equal(out[1], want) {
		t.Errorf("rowDiv: expected %v but got %v", want, out[1])
	}
}

func TestColumns(t *testing.T) {
	g := G.NewGraph()
	x := newInput(g, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})

	cols, err := Columns(x, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	col, err := Column(x, 0)
	if err != nil {
		t.Fatal(err)
	}
	padded, err := PadLeft(x, 1)
	if err != nil {
		t.Fatal(err)
	}

	out := runGraph(t, g, cols, col, padded)
	if want := []float64{2, 3, 5, 6}; !floats.Equal(out[0], want) {
		t.Errorf("columns: expected %v but got %v", want, out[0])
	}
	if want := []float64{1, 4}; !floats.Equal(out[1], want) {
		t.Errorf("column: expected %v but got %v", want, out[1])
	}
	if want := []float64{0, 1, 2, 3, 0, 4, 5, 6}; !floats.Equal(out[2],
		want) {
		t.Errorf("padLeft: expected %v but got %v", want, out[2])
	}

	if _, err := Columns(x, 2, 2); err == nil {
		t.Error("expected an error for an empty column range")
	}
}

func TestCheckRows(t *testing.T) {
	g := G.NewGraph()
	a := newInput(g, []int{2, 3}, make([]float64, 6))
	b := newInput(g, []int{2, 1}, make([]float64, 2))
	c := newInput(g, []int{3, 3}, make([]float64, 9))

	if err := CheckRows(a, b); err != nil {
		t.Errorf("unexpected error %v", err)
	}
	if err := CheckRows(a, c); err == nil {
		t.Error("expected an error for differing rows")
	}
	if err := CheckSameShape(a, b); err == nil {
		t.Error("expected an error for differing shapes")
	}
}

func TestSameShape(t *testing.T) {
	tests := []struct {
		a, b tensor.Shape
		same bool
	}{
		{tensor.Shape{3}, tensor.Shape{3}, true},
		{tensor.Shape{3, 1}, tensor.Shape{3, 1}, true},
		{tensor.Shape{3}, tensor.Shape{3, 1}, false},
		{tensor.Shape{3}, tensor.Shape{1, 3}, false},
		{tensor.Shape{2, 3}, tensor.Shape{3, 2}, false},
		{tensor.Shape{}, tensor.Shape{}, true},
	}

	for _, test := range tests {
		if got := SameShape(test.a, test.b); got != test.same {
			t.Errorf("SameShape(%v, %v): expected %v but got %v", test.a,
				test.b, test.same, got)
		}
	}

	g := G.NewGraph()
	v := newInput(g, []int{3}, make([]float64, 3))
	m := newInput(g, []int{3, 1}, make([]float64, 3))
	if err := CheckSameShape(v, m); err == nil {
		t.Error("expected an error for a vector and a column")
	}
}

// TestConcatColumns joins single columns and wider blocks, and checks
// that the gradient of each block has the block's shape and flows on
// through a matrix product
func TestConcatColumns(t *testing.T) {
	g := G.NewGraph()
	a := newInput(g, []int{2, 1}, []float64{1, 4})
	b := newInput(g, []int{2, 2}, []float64{2, 3, 5, 6})
	c := newInput(g, []int{2, 1}, []float64{7, 8})
	w := newInput(g, []int{1, 1}, []float64{2})

	// A column computed by a matrix product, whose gradient must keep
	// its matrix shape
	aw, err := G.Mul(a, w)
	if err != nil {
		t.Fatal(err)
	}

	joined, err := ConcatColumns(aw, b, c)
	if err != nil {
		t.Fatal(err)
	}
	if want := (tensor.Shape{2, 4}); !SameShape(joined.Shape(), want) {
		t.Fatalf("expected shape %v but got %v", want, joined.Shape())
	}

	weights := newInput(g, []int{2, 4}, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	cost, err := G.Sum(G.Must(G.HadamardProd(joined, weights)))
	if err != nil {
		t.Fatal(err)
	}
	grads, err := G.Grad(cost, a, b, c, w)
	if err != nil {
		t.Fatal(err)
	}
	for i, in := range []*G.Node{a, b, c, w} {
		if !SameShape(grads[i].Shape(), in.Shape()) {
			t.Errorf("input %d: gradient node of shape %v for shape %v", i,
				grads[i].Shape(), in.Shape())
		}
	}

	out := runGraph(t, g, joined, grads[0], grads[1], grads[2], grads[3])
	if want := []float64{2, 2, 3, 7, 8, 5, 6, 8}; !floats.Equal(out[0],
		want) {
		t.Errorf("expected %v but got %v", want, out[0])
	}
	if want := []float64{2, 10}; !floats.Equal(out[1], want) {
		t.Errorf("expected gradient %v for the first column but got %v",
			want, out[1])
	}
	if want := []float64{2, 3, 6, 7}; !floats.Equal(out[2], want) {
		t.Errorf("expected gradient %v for the middle block but got %v",
			want, out[2])
	}
	if want := []float64{4, 8}; !floats.Equal(out[3], want) {
		t.Errorf("expected gradient %v for the last column but got %v",
			want, out[3])
	}
	if want := []float64{1*1 + 4*5}; !floats.Equal(out[4], want) {
		t.Errorf("expected gradient %v for the weight but got %v", want,
			out[4])
	}

	if _, err := ConcatColumns(a, newInput(g, []int{3, 1},
		make([]float64, 3))); err == nil {
		t.Error("expected an error for blocks with differing rows")
	}
	if _, err := ConcatColumns(); err == nil {
		t.Error("expected an error for no blocks")
	}
}

// TestRowScaleGradient checks that gradients of the per-row scalars
// keep their (N, 1) shape, so that they flow back through the matrix
// product the scalars were computed with
func TestRowScaleGradient(t *testing.T) {
	g := G.NewGraph()
	x := newInput(g, []int{2, 3}, []float64{1, 2, 3, 4, 5, 6})
	y := newInput(g, []int{2, 2}, []float64{1, 0, 0, 2})
	w := newInput(g, []int{2, 1}, []float64{1, 1})

	// s = y w = (1, 2)ᵀ
	s, err := G.Mul(y, w)
	if err != nil {
		t.Fatal(err)
	}
	scaled, err := RowScale(x, s)
	if err != nil {
		t.Fatal(err)
	}
	divided, err := RowDiv(x, s)
	if err != nil {
		t.Fatal(err)
	}
	sum, err := RowSum(G.Must(G.Add(scaled, divided)))
	if err != nil {
		t.Fatal(err)
	}
	grads, err := G.Grad(G.Must(G.Sum(sum)), w)
	if err != nil {
		t.Fatal(err)
	}

	// d/ds Σⱼ (s xⱼ + xⱼ/s) = (1 - 1/s²) Σⱼ xⱼ, which is (0, 11.25), and
	// the gradient of w is yᵀ times that
	out := runGraph(t, g, grads[0])
	if want := []float64{0, 22.5}; !floats.EqualApprox(out[0], want,
		1e-12) {
		t.Errorf("expected gradient %v but got %v", want, out[0])
	}
}
