package distribution

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/samuelfneumann/hop"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// poincareDist returns the geodesic distance between x and y in the
// Poincaré ball of curvature -c
func poincareDist(x, y []float64, c float64) float64 {
	diff := make([]float64, len(x))
	floats.SubTo(diff, x, y)
	sq := floats.Dot(diff, diff)
	den := (1 - c*floats.Dot(x, x)) * (1 - c*floats.Dot(y, y))
	return math.Acosh(1+2*c*sq/den) / math.Sqrt(c)
}

// TestPoincareNormalNormalized integrates the density over the disk,
// in geodesic polar coordinates around the mean, where the Riemannian
// volume element is sinh(√c d)/√c dd dφ
func TestPoincareNormalNormalized(t *testing.T) {
	const points = 4001
	must := mustNode(t)

	for _, c := range []float64{0.5, 1, 3} {
		for _, scale := range []float64{0.4, 1} {
			upper := math.Sqrt(c)*scale*scale + 14*scale
			dists := make([]float64, points)
			floats.Span(dists, 0, upper)

			// Points along the first axis at geodesic distance d from 0
			x := make([][]float64, points)
			for i, d := range dists {
				x[i] = []float64{math.Tanh(math.Sqrt(c)*d/2) / math.Sqrt(c), 0}
			}

			g := G.NewGraph()
			p, err := NewPoincareNormal(vector(g, []float64{0, 0}),
				vector(g, []float64{scale}), c, 1, true)
			if err != nil {
				t.Fatal(err)
			}

			logProb := must(p.LogProb(matrix(g, x)))
			if !logProb.Shape().Eq(tensor.Shape{points}) {
				t.Fatalf("expected log density of shape (%v) but got %v",
					points, logProb.Shape())
			}

			out := run(t, g, logProb)
			density := make([]float64, points)
			for i, d := range dists {
				density[i] = 2 * math.Pi * math.Exp(out[0][i]) *
					math.Sinh(math.Sqrt(c)*d) / math.Sqrt(c)
			}
			if mass := integrate.Trapezoidal(dists, density); math.Abs(
				mass-1) > 1e-4 {
				t.Errorf("c = %v, scale = %v: density integrates to %v", c,
					scale, mass)
			}
		}
	}
}

// TestPoincareNormalLogProbAtMean checks that the log density at the
// mean is the negative log of the full normalizer
func TestPoincareNormalLogProbAtMean(t *testing.T) {
	const d, c = 3, 1.5
	r := rand.New(rand.NewSource(31))
	must := mustNode(t)

	loc := make([][]float64, 2)
	for i := range loc {
		loc[i] = make([]float64, d)
		for j := range loc[i] {
			loc[i][j] = 0.3 * r.NormFloat64()
		}
	}
	scales := []float64{0.5, 1.2}

	g := G.NewGraph()
	locNode := matrix(g, loc)
	p, err := NewPoincareNormal(locNode, vector(g, scales), c, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if !p.BatchShape().Eq(tensor.Shape{2}) {
		t.Errorf("expected batch shape (2) but got %v", p.BatchShape())
	}
	if !p.EventShape().Eq(tensor.Shape{d}) {
		t.Errorf("expected event shape (%v) but got %v", d, p.EventShape())
	}

	out := run(t, g, must(p.LogProb(locNode)))
	for b, s := range scales {
		sphere := p.Directional().(*HypersphericalUniform)
		want := -newRadialTable(d, c, s).logZ - sphere.logSurfaceArea()
		if math.Abs(out[0][b]-want) > 1e-6 {
			t.Errorf("scale = %v: expected log density %v at the mean but "+
				"got %v", s, want, out[0][b])
		}
	}
}

// TestPoincareNormalRsample checks that samples lie inside the ball at
// distances from the mean distributed as the radial distribution, with
// finite log densities and gradients
func TestPoincareNormalRsample(t *testing.T) {
	const samples, d, c = 4000, 3, 1.0
	must := mustNode(t)

	loc := [][]float64{{0.1, -0.2, 0.3}, {-0.5, 0.4, 0}}
	scales := []float64{0.3, 0.9}

	g := G.NewGraph()
	locNode := matrix(g, loc)
	scaleNode := matrix(g, [][]float64{{scales[0]}, {scales[1]}})
	p, err := NewPoincareNormal(locNode, scaleNode, c, 3, true)
	if err != nil {
		t.Fatal(err)
	}

	x := must(p.Rsample(samples))
	if want := (tensor.Shape{samples, 2, d}); !x.Shape().Eq(want) {
		t.Fatalf("expected samples of shape %v but got %v", want, x.Shape())
	}
	logProb := must(p.LogProb(x))
	grads, err := G.Grad(must(G.Sum(logProb)), locNode, scaleNode)
	if err != nil {
		t.Fatal(err)
	}

	out := run(t, g, x, logProb, grads[0], grads[1])
	checkFinite(t, "logProb", out[1])
	checkFinite(t, "loc gradient", out[2])
	checkFinite(t, "scale gradient", out[3])

	for b, s := range scales {
		sq := make([]float64, samples)
		for j := range sq {
			i := j*2 + b
			point := out[0][i*d : (i+1)*d]
			if !p.Manifold().Contains(point) {
				t.Fatalf("sample %v is outside the ball", point)
			}
			dist := poincareDist(loc[b], point, c)
			sq[j] = dist * dist
		}

		want := newRadialTable(d, c, s).secondMoment()
		if got := stat.Mean(sq, nil); math.Abs(got-want) > 0.05*want {
			t.Errorf("scale = %v: expected mean squared distance %v but got %v",
				s, want, got)
		}
	}
}

// TestPoincareNormalWith builds a distribution from explicit radial and
// directional distributions
func TestPoincareNormalWith(t *testing.T) {
	const c = 1.0
	must := mustNode(t)

	g := G.NewGraph()
	loc := matrix(g, [][]float64{{0, 0}})
	scale := matrix(g, [][]float64{{0.5}})

	radial, err := NewHyperbolicRadius(2, c, scale, 1)
	if err != nil {
		t.Fatal(err)
	}
	directional, err := NewHypersphericalUniform(g, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	p, err := NewPoincareNormalWith(loc, scale, c, radial, directional, true)
	if err != nil {
		t.Fatal(err)
	}
	out := run(t, g, must(p.Sample(10)))
	for i := 0; i < 10; i++ {
		if point := out[0][2*i : 2*i+2]; !p.Manifold().Contains(point) {
			t.Errorf("sample %v is outside the ball", point)
		}
	}

	sphere, err := NewHypersphericalUniform(g, 2, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewPoincareNormalWith(loc, scale, c, radial, sphere,
		false); err == nil {
		t.Error("expected an error for directions on the wrong sphere")
	}
	if _, err := NewPoincareNormalWith(loc, scale, 2, radial, directional,
		false); err == nil {
		t.Error("expected an error for a radial distribution of another " +
			"curvature")
	}
}

func TestPoincareNormalInvalid(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name       string
		loc        []float64
		scale      []float64
		validate   bool
		constraint bool
		ok         bool
	}{
		{"nan scale", []float64{0, 0}, []float64{nan}, false, true, false},
		{"nan loc", []float64{nan, 0}, []float64{1}, false, true, false},
		{"zero scale", []float64{0, 0}, []float64{0}, true, true, false},
		{"outside ball", []float64{0.8, 0.8}, []float64{1}, true, true, false},
		{"scale shape", []float64{0, 0}, []float64{1, 1}, true, false, false},
		{"unvalidated", []float64{0.8, 0.8}, []float64{1}, false, false, true},
	}

	for _, test := range tests {
		g := G.NewGraph()
		_, err := NewPoincareNormal(vector(g, test.loc),
			vector(g, test.scale), 1, 1, test.validate)

		switch {
		case test.ok && err != nil:
			t.Errorf("%v: unexpected error %v", test.name, err)
		case !test.ok && err == nil:
			t.Errorf("%v: expected an error", test.name)
		case test.constraint && !errors.Is(err, ErrConstraintViolation):
			t.Errorf("%v: expected a constraint violation but got %v",
				test.name, err)
		}
	}
}

// fixedRadial places every sample at the same distance from the mean
type fixedRadial struct {
	g      *G.ExprGraph
	dim    int
	c      float64
	batch  int
	radius float64
}

func (f *fixedRadial) Rsample(samples int) (*G.Node, error) {
	return hop.Fill(f.g, tensor.Float64, tensor.Shape{samples * f.batch, 1},
		f.radius)
}

func (f *fixedRadial) LogNormalizer() (*G.Node, error) {
	return hop.Fill(f.g, tensor.Float64, tensor.Shape{f.batch, 1}, 0)
}

func (f *fixedRadial) Dim() int { return f.dim }

func (f *fixedRadial) C() float64 { return f.c }

func (f *fixedRadial) BatchShape() tensor.Shape {
	return tensor.Shape{f.batch}
}

// firstAxis always points along the first coordinate axis
type firstAxis struct {
	g   *G.ExprGraph
	dim int
}

func (f *firstAxis) Sample(samples int) (*G.Node, error) {
	backing := make([]float64, samples*(f.dim+1))
	for i := 0; i < samples; i++ {
		backing[i*(f.dim+1)] = 1
	}
	return hop.Constant(f.g, tensor.Float64, tensor.Shape{samples, f.dim + 1},
		backing)
}

func (f *firstAxis) LogNormalizer() (*G.Node, error) {
	return f.g.Constant(G.NewF64(0)), nil
}

func (f *firstAxis) Dim() int { return f.dim }

// TestPoincareNormalCollaborators builds a distribution from radial and
// directional distributions other than the default ones
func TestPoincareNormalCollaborators(t *testing.T) {
	const samples, d, c, radius = 3, 2, 0.8, 0.7
	must := mustNode(t)

	loc := [][]float64{{0, 0}, {0.3, -0.2}}
	scales := []float64{0.5, 1.5}

	g := G.NewGraph()
	locNode := matrix(g, loc)
	scale := vector(g, scales)
	radial := &fixedRadial{g: g, dim: d, c: c, batch: 2, radius: radius}
	directional := &firstAxis{g: g, dim: d - 1}

	p, err := NewPoincareNormalWith(locNode, scale, c, radial, directional,
		true)
	if err != nil {
		t.Fatal(err)
	}
	if p.Radial() != Radial(radial) || p.Directional() != Directional(
		directional) {
		t.Error("expected the distribution to keep its collaborators")
	}

	x := must(p.Rsample(samples))
	logProb := must(p.LogProb(x))
	out := run(t, g, x, logProb)

	want := []float64{math.Tanh(math.Sqrt(c)*radius/2) / math.Sqrt(c), 0}
	if got := out[0][:d]; !floats.EqualApprox(got, want, 1e-12) {
		t.Errorf("expected sample %v from the origin but got %v", want, got)
	}
	for i := 0; i < samples*2; i++ {
		b := i % 2
		point := out[0][i*d : (i+1)*d]
		if dist := poincareDist(loc[b], point, c); math.Abs(
			dist-radius) > 1e-9 {
			t.Errorf("expected sample %v at distance %v from %v but got %v",
				point, radius, loc[b], dist)
		}

		// Both normalizers are zero
		lp := -radius * radius / (2 * scales[b] * scales[b])
		if math.Abs(out[1][i]-lp) > 1e-9 {
			t.Errorf("expected log density %v but got %v", lp, out[1][i])
		}
	}

	mismatched := []struct {
		name        string
		radial      Radial
		directional Directional
	}{
		{"radial dimension", &fixedRadial{g: g, dim: d + 1, c: c, batch: 2},
			directional},
		{"radial curvature", &fixedRadial{g: g, dim: d, c: 2 * c, batch: 2},
			directional},
		{"radial batch", &fixedRadial{g: g, dim: d, c: c, batch: 3},
			directional},
		{"sphere dimension", radial, &firstAxis{g: g, dim: d}},
		{"nil radial", nil, directional},
		{"nil directional", radial, nil},
	}
	for _, test := range mismatched {
		if _, err := NewPoincareNormalWith(locNode, scale, c, test.radial,
			test.directional, false); err == nil {
			t.Errorf("%v: expected an error", test.name)
		}
	}
}

// TestPoincareNormalShapes checks that a batch of scales may be given
// as a vector or a column, and that unbatched distributions take
// points as vectors or as rows of samples
func TestPoincareNormalShapes(t *testing.T) {
	const c = 1.0
	must := mustNode(t)

	loc := [][]float64{{0.1, 0.2}, {-0.4, 0.3}}
	x := [][]float64{{0.3, -0.1}, {0, 0.5}}

	g := G.NewGraph()
	locNode := matrix(g, loc)
	fromVector, err := NewPoincareNormal(locNode,
		vector(g, []float64{0.5, 1.2}), c, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	fromColumn, err := NewPoincareNormal(locNode,
		matrix(g, [][]float64{{0.5}, {1.2}}), c, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if s := fromVector.Scale().Shape(); !hop.SameShape(s,
		tensor.Shape{2, 1}) {
		t.Errorf("expected scales of shape (2, 1) but got %v", s)
	}

	unbatched, err := NewPoincareNormal(vector(g, loc[0]),
		vector(g, []float64{0.5}), c, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if !hop.SameShape(unbatched.BatchShape(), tensor.Shape{}) {
		t.Errorf("expected an empty batch shape but got %v",
			unbatched.BatchShape())
	}

	xNode := matrix(g, x)
	single := must(unbatched.LogProb(vector(g, x[0])))
	if !single.IsScalar() {
		t.Fatalf("expected a scalar log density but got shape %v",
			single.Shape())
	}
	rows := must(unbatched.LogProb(xNode))
	if !hop.SameShape(rows.Shape(), tensor.Shape{2}) {
		t.Fatalf("expected log densities of shape (2) but got %v",
			rows.Shape())
	}
	samples := must(unbatched.Rsample(5))
	if !hop.SameShape(samples.Shape(), tensor.Shape{5, 2}) {
		t.Fatalf("expected samples of shape (5, 2) but got %v",
			samples.Shape())
	}

	out := run(t, g, must(fromVector.LogProb(xNode)),
		must(fromColumn.LogProb(xNode)), single, rows)
	if !floats.EqualApprox(out[0], out[1], 1e-12) {
		t.Errorf("expected the same log densities for a vector and a "+
			"column of scales but got %v and %v", out[0], out[1])
	}
	checkFinite(t, "logProb", out[0])
	if math.Abs(out[2][0]-out[3][0]) > 1e-12 {
		t.Errorf("expected log density %v of a single point but got %v",
			out[3][0], out[2][0])
	}

	want := -0.5*math.Pow(poincareDist(loc[0], x[1], c)/0.5, 2) -
		newRadialTable(2, c, 0.5).logZ - math.Log(2*math.Pi)
	if math.Abs(out[3][1]-want) > 1e-8 {
		t.Errorf("expected log density %v but got %v", want, out[3][1])
	}
}

// TestPoincareNormalRsampleGradient takes gradients of samples and of
// their log densities with respect to the parameters of batched and
// unbatched distributions
func TestPoincareNormalRsampleGradient(t *testing.T) {
	const c = 1.3
	must := mustNode(t)

	for _, samples := range []int{1, 4} {
		for _, batched := range []bool{false, true} {
			g := G.NewGraph()
			var loc, scale *G.Node
			if batched {
				loc = matrix(g, [][]float64{{0.1, -0.3, 0.2}, {0, 0.4, 0}})
				scale = matrix(g, [][]float64{{0.4}, {1.1}})
			} else {
				loc = vector(g, []float64{0.1, -0.3, 0.2})
				scale = vector(g, []float64{0.4})
			}

			p, err := NewPoincareNormal(loc, scale, c, 6, true)
			if err != nil {
				t.Fatal(err)
			}
			x := must(p.Rsample(samples))
			logProb := must(p.LogProb(x))

			sampleGrads, err := G.Grad(must(G.Sum(x)), loc, scale)
			if err != nil {
				t.Fatalf("samples = %v, batched = %v: %v", samples, batched,
					err)
			}
			logProbGrads, err := G.Grad(must(G.Sum(logProb)), loc, scale)
			if err != nil {
				t.Fatalf("samples = %v, batched = %v: %v", samples, batched,
					err)
			}

			grads := []*G.Node{sampleGrads[0], sampleGrads[1],
				logProbGrads[0], logProbGrads[1]}
			params := []*G.Node{loc, scale, loc, scale}
			for i, grad := range grads {
				if !hop.SameShape(grad.Shape(), params[i].Shape()) {
					t.Errorf("samples = %v, batched = %v: gradient of shape "+
						"%v for parameter of shape %v", samples, batched,
						grad.Shape(), params[i].Shape())
				}
			}

			out := run(t, g, append([]*G.Node{logProb}, grads...)...)
			for i, name := range []string{"logProb", "sample loc gradient",
				"sample scale gradient", "logProb loc gradient",
				"logProb scale gradient"} {
				checkFinite(t, name, out[i])
			}
		}
	}
}

// TestPoincareNormalUnvalidatedScale checks that without validation a
// non-positive scale yields NaN for its own distribution only, while
// the graph still runs
func TestPoincareNormalUnvalidatedScale(t *testing.T) {
	must := mustNode(t)

	g := G.NewGraph()
	loc := matrix(g, [][]float64{{0.1, 0}, {0, 0.2}, {0.3, 0.3}})
	scale := matrix(g, [][]float64{{0.5}, {-1}, {0}})
	p, err := NewPoincareNormal(loc, scale, 1, 1, false)
	if err != nil {
		t.Fatal(err)
	}

	logProb := must(p.LogProb(loc))
	x := must(p.Rsample(2))
	grads, err := G.Grad(must(G.Sum(must(p.LogProb(x)))), scale)
	if err != nil {
		t.Fatal(err)
	}
	out := run(t, g, logProb, x, grads[0])

	if math.IsNaN(out[0][0]) || math.IsInf(out[0][0], 0) {
		t.Errorf("expected a finite log density for a positive scale but "+
			"got %v", out[0][0])
	}
	if math.IsNaN(out[2][0]) {
		t.Errorf("expected a gradient for a positive scale but got %v",
			out[2][0])
	}
	for b := 1; b < 3; b++ {
		if !math.IsNaN(out[0][b]) {
			t.Errorf("scale %v: expected a NaN log density but got %v", b,
				out[0][b])
		}
		for j := 0; j < 2; j++ {
			i := j*3 + b
			if point := out[1][2*i : 2*i+2]; !math.IsNaN(point[0]) ||
				!math.IsNaN(point[1]) {
				t.Errorf("scale %v: expected a NaN sample but got %v", b,
					point)
			}
		}
		if !math.IsNaN(out[2][b]) {
			t.Errorf("scale %v: expected a NaN gradient but got %v", b,
				out[2][b])
		}
	}
}

// TestPoincareNormalDensitySweep draws one sample from each of many
// random distributions and checks its log density against one computed
// from the geodesic distance to the mean, including samples very close
// to the mean
func TestPoincareNormalDensitySweep(t *testing.T) {
	const trials = 25
	r := rand.New(rand.NewSource(32))
	must := mustNode(t)

	logSphere := func(d int) float64 {
		lgamma, _ := math.Lgamma(float64(d) / 2)
		return math.Ln2 + float64(d)/2*math.Log(math.Pi) - lgamma
	}

	for trial := 0; trial < trials; trial++ {
		c := 0.2 + 2.8*r.Float64()
		b, d := 1+r.Intn(3), 2+r.Intn(3)

		loc := make([][]float64, b)
		near := make([][]float64, b)
		scales := make([]float64, b)
		for i := range loc {
			loc[i] = randFloats(r, d, -1, 1)
			floats.Scale(0.8*r.Float64()/(math.Sqrt(c)*floats.Norm(loc[i], 2)),
				loc[i])
			scales[i] = 0.05 + 1.5*r.Float64()

			near[i] = append([]float64(nil), loc[i]...)
			near[i][0] += 1e-7
		}

		g := G.NewGraph()
		p, err := NewPoincareNormal(matrix(g, loc), vector(g, scales), c,
			uint64(trial), true)
		if err != nil {
			t.Fatal(err)
		}
		x := must(p.Rsample(1))
		logProb := must(p.LogProb(x))
		nearLogProb := must(p.LogProb(matrix(g, near)))
		out := run(t, g, x, logProb, nearLogProb)
		checkFinite(t, "logProb", out[1])
		checkFinite(t, "logProb near the mean", out[2])

		for i := 0; i < b; i++ {
			logZ := newRadialTable(d, c, scales[i]).logZ + logSphere(d)
			s2 := scales[i] * scales[i]

			point := out[0][i*d : (i+1)*d]
			dist := poincareDist(loc[i], point, c)
			want := -dist*dist/(2*s2) - logZ
			if math.Abs(out[1][i]-want) > 1e-6*math.Max(1, math.Abs(want)) {
				t.Errorf("c = %v, loc = %v, scale = %v: expected log density "+
					"%v but got %v", c, loc[i], scales[i], want, out[1][i])
			}

			if math.Abs(out[2][i]+logZ) > 1e-9 {
				t.Errorf("c = %v, loc = %v, scale = %v: expected log density "+
					"%v near the mean but got %v", c, loc[i], scales[i], -logZ,
					out[2][i])
			}
		}
	}
}

// TestPoincareNormalSampleAxes evaluates points indexed by two sample
// axes ahead of the batch axis
func TestPoincareNormalSampleAxes(t *testing.T) {
	const n1, n2, b, d, c = 3, 2, 2, 2, 1.0
	must := mustNode(t)

	loc := [][]float64{{0.1, 0.2}, {-0.3, 0}}
	scales := []float64{0.4, 0.9}

	g := G.NewGraph()
	p, err := NewPoincareNormal(matrix(g, loc), vector(g, scales), c, 2, true)
	if err != nil {
		t.Fatal(err)
	}
	x := must(p.Sample(n1 * n2))
	x = must(G.Reshape(x, tensor.Shape{n1, n2, b, d}))
	logProb := must(p.LogProb(x))
	if want := (tensor.Shape{n1, n2, b}); !hop.SameShape(logProb.Shape(),
		want) {
		t.Fatalf("expected log densities of shape %v but got %v", want,
			logProb.Shape())
	}

	out := run(t, g, x, logProb)
	for i := 0; i < n1*n2*b; i++ {
		j := i % b
		dist := poincareDist(loc[j], out[0][i*d:(i+1)*d], c)
		want := -dist*dist/(2*scales[j]*scales[j]) -
			newRadialTable(d, c, scales[j]).logZ - math.Log(2*math.Pi)
		if math.Abs(out[1][i]-want) > 1e-8 {
			t.Errorf("point %v: expected log density %v but got %v", i, want,
				out[1][i])
		}
	}
}
