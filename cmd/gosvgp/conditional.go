package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/internal/problem"
	"github.com/lucasmaystre/gosvgp/utils"
)

var conditionalFlags struct {
	file string
}

var conditionalCmd = &cobra.Command{
	Use:   "conditional",
	Short: "Evaluate a GP conditional",
	Long: `Compute the mean and variance of the GP at new inputs given function
values, or a Gaussian over them, at inducing points.

Examples:
  # Inducing inputs given as a matrix
  gosvgp conditional -f testdata/conditional.yaml

  # Debug logging shows which implementation was used
  gosvgp conditional -f testdata/conditional.yaml --log-level debug`,
	RunE: runConditional,
}

func init() {
	rootCmd.AddCommand(conditionalCmd)

	conditionalCmd.Flags().StringVarP(&conditionalFlags.file, "file", "f", "", "problem file (required)")
}

func runConditional(cmd *cobra.Command, args []string) error {
	if conditionalFlags.file == "" {
		return fmt.Errorf("conditional: --file is required")
	}
	p, err := problem.Load(conditionalFlags.file)
	if err != nil {
		return err
	}
	if p.Conditional == nil {
		return fmt.Errorf("%s holds no conditional: %w", conditionalFlags.file, problem.ErrInvalidProblem)
	}
	job, err := p.Conditional.Job()
	if err != nil {
		return err
	}

	e, reg, err := newEngine(cmd)
	if err != nil {
		return err
	}
	mean, fvar, err := e.Conditional(job.XNew, job.Ref, job.Kernel, job.F, job.Options)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "mean %v:\n%v\n\n", dims(mean), mat.Formatted(mean))
	writeTensor(cmd, "variance", fvar)
	return finish(cmd, reg)
}

func dims(m mat.Matrix) []int {
	r, c := m.Dims()
	return []int{r, c}
}

// writeTensor prints a tensor as a stack of matrices over its leading axes.
func writeTensor(cmd *cobra.Command, name string, t *utils.Tensor) {
	out := cmd.OutOrStdout()
	shape := t.Shape()
	fmt.Fprintf(out, "%s %v:\n", name, shape)
	if t.Rank() <= 2 {
		fmt.Fprintf(out, "%v\n", mat.Formatted(t.Matrix()))
		return
	}
	r, c := shape[len(shape)-2], shape[len(shape)-1]
	data := t.Data()
	for off, i := 0, 0; off < len(data); off, i = off+r*c, i+1 {
		fmt.Fprintf(out, "[%d]\n%v\n", i, mat.Formatted(mat.NewDense(r, c, data[off:off+r*c])))
	}
}
