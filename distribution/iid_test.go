package distribution

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
	mv "gonum.org/v1/gonum/stat/distmv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TestIID compares an IID over the columns of a batched Normal with
// gonum's multivariate normal with diagonal covariance
func TestIID(t *testing.T) {
	const b, d, k = 3, 4, 5
	r := rand.New(rand.NewSource(11))
	must := mustNode(t)

	mean, stddev := randomParams(r, b, d)
	x := make([][]float64, k*b)
	for i := range x {
		x[i] = make([]float64, d)
		for j := range x[i] {
			x[i][j] = mean[i%b][j] + stddev[i%b][j]*r.NormFloat64()
		}
	}

	g := G.NewGraph()
	n, err := NewNormal(matrix(g, mean), matrix(g, stddev), 1)
	if err != nil {
		t.Fatal(err)
	}
	iid := NewIID(n)

	if !iid.BatchShape().Eq(tensor.Shape{b}) {
		t.Errorf("expected batch shape (%v) but got %v", b, iid.BatchShape())
	}
	if !iid.EventShape().Eq(tensor.Shape{d}) {
		t.Errorf("expected event shape (%v) but got %v", d, iid.EventShape())
	}

	xNode := matrix(g, x)
	logProb := must(iid.LogProb(xNode))
	prob := must(iid.Prob(xNode))
	entropy := must(iid.Entropy())
	for _, n := range []*G.Node{logProb, prob} {
		if !n.Shape().Eq(tensor.Shape{k * b, 1}) {
			t.Fatalf("expected shape (%v, 1) but got %v", k*b, n.Shape())
		}
	}

	out := run(t, g, logProb, prob, entropy)

	targets := make([]*mv.Normal, b)
	for i := range targets {
		variance := make([]float64, d)
		for j := range variance {
			variance[j] = stddev[i][j] * stddev[i][j]
		}
		var ok bool
		targets[i], ok = mv.NewNormal(mean[i], mat.NewDiagDense(d, variance),
			nil)
		if !ok {
			t.Fatal("could not construct target normal")
		}
	}

	for i := range x {
		target := targets[i%b]
		if want := target.LogProb(x[i]); math.Abs(out[0][i]-want) > 1e-6 {
			t.Errorf("logProb(%v): expected %v but got %v", x[i], want,
				out[0][i])
		}
		if want := target.Prob(x[i]); math.Abs(out[1][i]-want) > 1e-6 {
			t.Errorf("prob(%v): expected %v but got %v", x[i], want,
				out[1][i])
		}
	}
	for i, target := range targets {
		if want := target.Entropy(); math.Abs(out[2][i]-want) > 1e-6 {
			t.Errorf("entropy: expected %v but got %v", want, out[2][i])
		}
	}
}
