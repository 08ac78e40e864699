package distribution

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestNormalRand(t *testing.T) {
	const samples = 10000
	must := mustNode(t)

	mean := [][]float64{{0, 1}, {2, 3}}
	stddev := [][]float64{{0.1, 0.5}, {1, 2}}

	g := G.NewGraph()
	s := must(NormalRand(matrix(g, mean), matrix(g, stddev), 5, samples))
	if want := (tensor.Shape{samples, 2, 2}); !s.Shape().Eq(want) {
		t.Fatalf("expected shape %v but got %v", want, s.Shape())
	}

	var sVal G.Value
	G.Read(s, &sVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	first, err := values(sVal)
	if err != nil {
		t.Fatal(err)
	}
	first = append([]float64(nil), first...)

	for i := range mean {
		for j := range mean[i] {
			column := make([]float64, samples)
			for k := range column {
				column[k] = first[k*4+i*2+j]
			}
			m, std := stat.MeanStdDev(column, nil)

			if tol := 5 * stddev[i][j] / math.Sqrt(samples); math.Abs(
				m-mean[i][j]) > tol {
				t.Errorf("expected mean %v but got %v", mean[i][j], m)
			}
			if math.Abs(std-stddev[i][j]) > 0.05*stddev[i][j] {
				t.Errorf("expected stddev %v but got %v", stddev[i][j], std)
			}
		}
	}

	// Each run of the graph draws new samples
	vm.Reset()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	second, err := values(sVal)
	if err != nil {
		t.Fatal(err)
	}
	if second[0] == first[0] && second[1] == first[1] {
		t.Errorf("expected a new draw on the second run but got %v again",
			second[:2])
	}
}

func TestNormalRandInvalid(t *testing.T) {
	g := G.NewGraph()
	mean := matrix(g, [][]float64{{0, 1}})
	if _, err := NormalRand(mean, matrix(g, [][]float64{{1}}), 1,
		1); err == nil {
		t.Error("expected an error for mismatched shapes")
	}
}
