// Package calibrate fits model parameters against an observed series by
// exhaustive grid search. Candidate parameter sets are scored concurrently;
// each evaluation runs its own kernel and solver, so candidates never share
// numeric state.
package calibrate

import (
	"context"
	"errors"
	"math"
	"sync"
)

// Objective scores one candidate parameter set. Lower is better. The
// function must be safe for concurrent calls.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Result is the outcome of a search.
type Result struct {
	Params    map[string]float64
	Score     float64
	Evaluated int
}

// GridSearch enumerates the cartesian product of per-parameter candidate
// values.
type GridSearch struct {
	names   []string
	values  [][]float64
	Workers int
}

// NewGridSearch builds a search over the given parameters; values[i] holds
// the candidates of names[i].
func NewGridSearch(names []string, values [][]float64) (*GridSearch, error) {
	if len(names) == 0 || len(names) != len(values) {
		return nil, errors.New("calibrate: parameter names and value lists must match")
	}
	for _, vs := range values {
		if len(vs) == 0 {
			return nil, errors.New("calibrate: empty candidate list")
		}
	}
	return &GridSearch{names: names, values: values, Workers: 4}, nil
}

// Search evaluates every candidate set and returns the best one. Candidate
// evaluations that fail are skipped; Search fails only when no candidate
// scored at all or the context was cancelled.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (*Result, error) {
	candidates := g.enumerate()

	workers := g.Workers
	if workers < 1 {
		workers = 1
	}

	type scored struct {
		params map[string]float64
		score  float64
		err    error
	}

	jobs := make(chan map[string]float64)
	out := make(chan scored, len(candidates))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for params := range jobs {
				score, err := obj(ctx, params)
				out <- scored{params: params, score: score, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, c := range candidates {
			select {
			case jobs <- c:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	best := &Result{Score: math.Inf(1)}
	for s := range out {
		if s.err != nil {
			continue
		}
		best.Evaluated++
		if s.score < best.Score {
			best.Score = s.score
			best.Params = s.params
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if best.Params == nil {
		return nil, errors.New("calibrate: no candidate could be evaluated")
	}
	return best, nil
}

func (g *GridSearch) enumerate() []map[string]float64 {
	var all []map[string]float64
	current := make(map[string]float64)

	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(g.names) {
			set := make(map[string]float64, len(current))
			for k, v := range current {
				set[k] = v
			}
			all = append(all, set)
			return
		}
		for _, v := range g.values[depth] {
			current[g.names[depth]] = v
			walk(depth + 1)
		}
	}
	walk(0)
	return all
}

// Candidates spreads n values evenly over [lo, hi].
func Candidates(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	vs := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range vs {
		vs[i] = lo + float64(i)*step
	}
	return vs
}
