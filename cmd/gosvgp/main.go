// Command gosvgp evaluates sparse GP conditionals and kernel expectations
// described in YAML problem files.
//
// Usage:
//
//	# Posterior mean and variance at new inputs
//	gosvgp conditional -f problem.yaml
//
//	# Expectation of kernel and mean function terms
//	gosvgp expectation -f problem.yaml --config settings.yaml
//
//	# List the registered implementations
//	gosvgp catalog
package main

func main() {
	Execute()
}
