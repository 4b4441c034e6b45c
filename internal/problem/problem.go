// Package problem decodes YAML problem files for the gosvgp command: one
// conditional or one expectation, with every kernel, mean function, inducing
// feature and distribution spelled out.
package problem

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/lucasmaystre/gosvgp/base"
	"github.com/lucasmaystre/gosvgp/conditionals"
	"github.com/lucasmaystre/gosvgp/distributions"
	"github.com/lucasmaystre/gosvgp/expectations"
	"github.com/lucasmaystre/gosvgp/features"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/meanfuncs"
)

var ErrInvalidProblem = errors.New("invalid problem")

type Problem struct {
	Conditional *Conditional `yaml:"conditional"`
	Expectation *Expectation `yaml:"expectation"`
}

type Matrix [][]float64

type Kernel struct {
	Type         string    `yaml:"type"`
	Variance     float64   `yaml:"variance"`
	Variances    []float64 `yaml:"variances"`
	Lengthscales []float64 `yaml:"lengthscales"`
	ActiveDims   []int     `yaml:"active_dims"`
	Parts        []Kernel  `yaml:"parts"`
}

type Mean struct {
	Type    string    `yaml:"type"`
	Outputs int       `yaml:"outputs"`
	C       []float64 `yaml:"c"`
	A       Matrix    `yaml:"a"`
	B       []float64 `yaml:"b"`
	Dim     int       `yaml:"dim"`
}

type Feature struct {
	Type   string `yaml:"type"`
	Z      Matrix `yaml:"z"`
	Scales Matrix `yaml:"scales"`
}

type QSqrt struct {
	Diag Matrix   `yaml:"diag"`
	Tril []Matrix `yaml:"tril"`
}

type Conditional struct {
	XNew          Matrix   `yaml:"xnew"`
	Z             Matrix   `yaml:"z"`
	Feature       *Feature `yaml:"feature"`
	Kernel        Kernel   `yaml:"kernel"`
	F             Matrix   `yaml:"f"`
	QSqrt         *QSqrt   `yaml:"q_sqrt"`
	FullCov       bool     `yaml:"full_cov"`
	FullOutputCov bool     `yaml:"full_output_cov"`
	White         bool     `yaml:"white"`
}

// Distribution is given by its moments, or for type sde by a state-space
// kernel evaluated at increasing times.
type Distribution struct {
	Type   string    `yaml:"type"`
	Mu     Matrix    `yaml:"mu"`
	Cov    []Matrix  `yaml:"cov"`
	Var    Matrix    `yaml:"var"`
	Cross  []Matrix  `yaml:"cross"`
	Kernel *Kernel   `yaml:"kernel"`
	Times  []float64 `yaml:"times"`
}

// Term is either a kernel, optionally on an inducing feature, or a mean
// function.
type Term struct {
	Kernel  *Kernel  `yaml:"kernel"`
	Mean    *Mean    `yaml:"mean"`
	Feature *Feature `yaml:"feature"`
}

type Expectation struct {
	Distribution     Distribution `yaml:"distribution"`
	Term1            *Term        `yaml:"term1"`
	Term2            *Term        `yaml:"term2"`
	Quadrature       bool         `yaml:"quadrature"`
	QuadraturePoints int          `yaml:"quadrature_points"`
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidProblem)
}

// Parse decodes a problem holding exactly one of conditional or expectation.
func Parse(data []byte) (*Problem, error) {
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode problem: %w", err)
	}
	if (p.Conditional == nil) == (p.Expectation == nil) {
		return nil, invalid("want exactly one of conditional or expectation")
	}
	return &p, nil
}

func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem %s: %w", path, err)
	}
	return Parse(data)
}

// Dense converts the rows into a matrix, rejecting empty and ragged input.
func (m Matrix) Dense() (*mat.Dense, error) {
	if len(m) == 0 || len(m[0]) == 0 {
		return nil, invalid("empty matrix")
	}
	cols := len(m[0])
	data := make([]float64, 0, len(m)*cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, invalid("row %d has %d entries, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(m), cols, data), nil
}

func (m Matrix) Sym() (*mat.SymDense, error) {
	d, err := m.Dense()
	if err != nil {
		return nil, err
	}
	r, c := d.Dims()
	if r != c {
		return nil, invalid("covariance is %dx%d", r, c)
	}
	out := mat.NewSymDense(r, nil)
	for i := 0; i < r; i++ {
		for j := i; j < r; j++ {
			if d.At(i, j) != d.At(j, i) {
				return nil, invalid("covariance is not symmetric at (%d, %d)", i, j)
			}
			out.SetSym(i, j, d.At(i, j))
		}
	}
	return out, nil
}

func (k *Kernel) Build() (kernels.Kernel, error) {
	switch strings.ToLower(k.Type) {
	case "rbf":
		kern := kernels.NewRBF(k.Variance, k.Lengthscales...)
		kern.Dims = k.ActiveDims
		return kern, k.checkStationary()
	case "matern12":
		kern := kernels.NewMatern12(k.Variance, k.Lengthscales...)
		kern.Dims = k.ActiveDims
		return kern, k.checkStationary()
	case "matern32":
		kern := kernels.NewMatern32(k.Variance, k.Lengthscales...)
		kern.Dims = k.ActiveDims
		return kern, k.checkStationary()
	case "linear":
		if len(k.Variances) == 0 {
			return nil, invalid("linear kernel needs variances")
		}
		kern := kernels.NewLinear(k.Variances...)
		kern.Dims = k.ActiveDims
		return kern, nil
	case "constant":
		kern := kernels.NewConstant(k.Variance)
		kern.Dims = k.ActiveDims
		return kern, nil
	case "sum", "product":
		if len(k.Parts) == 0 {
			return nil, invalid("%s kernel needs parts", k.Type)
		}
		parts := make([]kernels.Kernel, len(k.Parts))
		for i := range k.Parts {
			part, err := k.Parts[i].Build()
			if err != nil {
				return nil, err
			}
			parts[i] = part
		}
		if strings.EqualFold(k.Type, "sum") {
			return kernels.NewSum(parts...), nil
		}
		return kernels.NewProduct(parts...), nil
	}
	return nil, invalid("unknown kernel type %q", k.Type)
}

func (k *Kernel) checkStationary() error {
	if len(k.Lengthscales) == 0 {
		return invalid("%s kernel needs lengthscales", k.Type)
	}
	return nil
}

func (m *Mean) Build() (meanfuncs.MeanFunction, error) {
	switch strings.ToLower(m.Type) {
	case "zero":
		return meanfuncs.NewZero(m.Outputs), nil
	case "constant":
		if len(m.C) == 0 {
			return nil, invalid("constant mean needs c")
		}
		return meanfuncs.NewConstant(m.C...), nil
	case "linear":
		a, err := m.A.Dense()
		if err != nil {
			return nil, err
		}
		var b *mat.VecDense
		if len(m.B) > 0 {
			b = mat.NewVecDense(len(m.B), m.B)
		}
		return meanfuncs.NewLinear(a, b)
	case "identity":
		return meanfuncs.NewIdentity(m.Dim), nil
	}
	return nil, invalid("unknown mean function type %q", m.Type)
}

func (f *Feature) Build() (features.InducingFeature, error) {
	z, err := f.Z.Dense()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(f.Type) {
	case "", "inducing_points":
		return features.NewInducingPoints(z), nil
	case "multiscale":
		scales, err := f.Scales.Dense()
		if err != nil {
			return nil, err
		}
		return features.NewMultiscale(z, scales)
	}
	return nil, invalid("unknown feature type %q", f.Type)
}

func (q *QSqrt) Build() (*conditionals.QSqrt, error) {
	switch {
	case q.Diag != nil && q.Tril != nil:
		return nil, invalid("q_sqrt has both diag and tril")
	case q.Diag != nil:
		diag, err := q.Diag.Dense()
		if err != nil {
			return nil, err
		}
		return conditionals.NewDiagQSqrt(diag), nil
	}
	factors := make([]mat.Matrix, len(q.Tril))
	for i, t := range q.Tril {
		d, err := t.Dense()
		if err != nil {
			return nil, err
		}
		factors[i] = d
	}
	return conditionals.NewTrilQSqrt(factors...), nil
}

// Job turns the problem into a conditional job. The reference is the
// feature when one is given and the inducing inputs z otherwise.
func (c *Conditional) Job() (base.Job, error) {
	xnew, err := c.XNew.Dense()
	if err != nil {
		return base.Job{}, err
	}
	var ref interface{}
	switch {
	case c.Feature != nil && c.Z != nil:
		return base.Job{}, invalid("conditional has both z and feature")
	case c.Feature != nil:
		if ref, err = c.Feature.Build(); err != nil {
			return base.Job{}, err
		}
	default:
		if ref, err = c.Z.Dense(); err != nil {
			return base.Job{}, err
		}
	}
	kern, err := c.Kernel.Build()
	if err != nil {
		return base.Job{}, err
	}
	f, err := c.F.Dense()
	if err != nil {
		return base.Job{}, err
	}
	opts := conditionals.Options{FullCov: c.FullCov, FullOutputCov: c.FullOutputCov, White: c.White}
	if c.QSqrt != nil {
		if opts.QSqrt, err = c.QSqrt.Build(); err != nil {
			return base.Job{}, err
		}
	}
	return base.Job{XNew: xnew, Ref: ref, Kernel: kern, F: f, Options: opts}, nil
}

func (d *Distribution) Build() (distributions.Distribution, error) {
	if strings.ToLower(d.Type) == "sde" {
		return d.buildSDE()
	}
	mu, err := d.Mu.Dense()
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(d.Type) {
	case "", "gaussian":
		cov, err := syms(d.Cov)
		if err != nil {
			return nil, err
		}
		return distributions.NewGaussian(mu, cov)
	case "diagonal":
		variance, err := d.Var.Dense()
		if err != nil {
			return nil, err
		}
		return distributions.NewDiagonalGaussian(mu, variance)
	case "markov":
		cov, err := syms(d.Cov)
		if err != nil {
			return nil, err
		}
		cross := make([]*mat.Dense, len(d.Cross))
		for i, c := range d.Cross {
			if cross[i], err = c.Dense(); err != nil {
				return nil, err
			}
		}
		return distributions.NewMarkovGaussian(mu, cov, cross)
	}
	return nil, invalid("unknown distribution type %q", d.Type)
}

func (d *Distribution) buildSDE() (distributions.Distribution, error) {
	if d.Kernel == nil {
		return nil, invalid("sde distribution without kernel")
	}
	kern, err := d.Kernel.Build()
	if err != nil {
		return nil, err
	}
	ss, ok := kernels.AsStateSpace(kern)
	if !ok {
		return nil, invalid("kernel %q has no state-space form", d.Kernel.Type)
	}
	p, err := distributions.NewMarkovGaussianFromKernel(ss, d.Times)
	if errors.Is(err, distributions.ErrNotChronological) {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidProblem)
	}
	return p, err
}

func syms(ms []Matrix) ([]*mat.SymDense, error) {
	out := make([]*mat.SymDense, len(ms))
	for i, m := range ms {
		s, err := m.Sym()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// Build returns the expectation term; a nil term is absent.
func (t *Term) Build() (expectations.Term, error) {
	if t == nil {
		return expectations.Term{}, nil
	}
	var obj interface{}
	var err error
	switch {
	case t.Kernel != nil && t.Mean != nil:
		return expectations.Term{}, invalid("term has both kernel and mean")
	case t.Kernel != nil:
		obj, err = t.Kernel.Build()
	case t.Mean != nil:
		if t.Feature != nil {
			return expectations.Term{}, invalid("mean function terms take no feature")
		}
		obj, err = t.Mean.Build()
	default:
		return expectations.Term{}, invalid("term needs a kernel or a mean")
	}
	if err != nil {
		return expectations.Term{}, err
	}
	if t.Feature == nil {
		return expectations.Alone(obj), nil
	}
	feat, err := t.Feature.Build()
	if err != nil {
		return expectations.Term{}, err
	}
	return expectations.On(obj, feat), nil
}

// Build returns the distribution, both terms and the evaluation options.
func (e *Expectation) Build() (distributions.Distribution, expectations.Term, expectations.Term,
	[]expectations.Option, error) {
	var none expectations.Term
	p, err := e.Distribution.Build()
	if err != nil {
		return nil, none, none, nil, err
	}
	t1, err := e.Term1.Build()
	if err != nil {
		return nil, none, none, nil, err
	}
	t2, err := e.Term2.Build()
	if err != nil {
		return nil, none, none, nil, err
	}
	if t1.IsNone() && t2.IsNone() {
		return nil, none, none, nil, invalid("expectation needs at least one term")
	}
	var opts []expectations.Option
	if e.QuadraturePoints > 0 {
		opts = append(opts, expectations.WithQuadraturePoints(e.QuadraturePoints))
	}
	return p, t1, t2, opts, nil
}
