package base

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/lucasmaystre/gosvgp/conditionals"
	"github.com/lucasmaystre/gosvgp/kernels"
	"github.com/lucasmaystre/gosvgp/utils"
)

// Job is one conditional to evaluate.
type Job struct {
	XNew    mat.Matrix
	Ref     interface{}
	Kernel  kernels.Kernel
	F       mat.Matrix
	Options conditionals.Options
}

type Result struct {
	Mean *mat.Dense
	Var  *utils.Tensor
	Err  error
}

// ConditionalAll evaluates the jobs on nWorkers goroutines. Results are in
// job order; the returned error is the one of the first failed job.
func (e *Engine) ConditionalAll(jobs []Job, nWorkers int) ([]Result, error) {
	if nWorkers < 1 {
		nWorkers = 1
	}
	results := make([]Result, len(jobs))
	jobChan := make(chan int, 100)
	var wg sync.WaitGroup

	for i := 0; i < nWorkers; i++ {
		go func() {
			for idx := range jobChan {
				job := jobs[idx]
				mean, fvar, err := e.Conditional(job.XNew, job.Ref, job.Kernel, job.F, job.Options)
				results[idx] = Result{Mean: mean, Var: fvar, Err: err}
				wg.Done()
			}
		}()
	}

	for idx := range jobs {
		wg.Add(1)
		jobChan <- idx
	}
	close(jobChan)
	wg.Wait()

	for idx, res := range results {
		if res.Err != nil {
			e.logger.Error("conditional job failed", "job", idx, "error", res.Err)
			return results, fmt.Errorf("job %d: %w", idx, res.Err)
		}
	}
	e.logger.Debug("conditional jobs done", "jobs", len(jobs), "workers", nWorkers)
	return results, nil
}
