package calibrate

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	gs, err := NewGridSearch(
		[]string{"k", "c"},
		[][]float64{Candidates(1, 5, 5), Candidates(0, 2, 3)},
	)
	if err != nil {
		t.Fatalf("NewGridSearch: %v", err)
	}

	// Quadratic bowl with its minimum at k=3, c=1.
	obj := func(_ context.Context, p map[string]float64) (float64, error) {
		dk := p["k"] - 3
		dc := p["c"] - 1
		return dk*dk + dc*dc, nil
	}

	res, err := gs.Search(context.Background(), obj)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Params["k"] != 3 || res.Params["c"] != 1 {
		t.Errorf("best params: got %v, want k=3 c=1", res.Params)
	}
	if res.Score != 0 {
		t.Errorf("best score: got %f, want 0", res.Score)
	}
	if res.Evaluated != 15 {
		t.Errorf("evaluated: got %d, want 15", res.Evaluated)
	}
}

func TestGridSearchSkipsFailingCandidates(t *testing.T) {
	gs, err := NewGridSearch([]string{"k"}, [][]float64{{1, 2, 3}})
	if err != nil {
		t.Fatalf("NewGridSearch: %v", err)
	}

	obj := func(_ context.Context, p map[string]float64) (float64, error) {
		if p["k"] == 2 {
			return 0, errors.New("diverged")
		}
		return math.Abs(p["k"] - 2), nil
	}

	res, err := gs.Search(context.Background(), obj)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Evaluated != 2 {
		t.Errorf("evaluated: got %d, want 2", res.Evaluated)
	}
	if res.Params["k"] != 1 && res.Params["k"] != 3 {
		t.Errorf("best k: got %v", res.Params["k"])
	}
}

func TestGridSearchAllCandidatesFail(t *testing.T) {
	gs, err := NewGridSearch([]string{"k"}, [][]float64{{1, 2}})
	if err != nil {
		t.Fatalf("NewGridSearch: %v", err)
	}
	obj := func(_ context.Context, _ map[string]float64) (float64, error) {
		return 0, errors.New("diverged")
	}
	if _, err := gs.Search(context.Background(), obj); err == nil {
		t.Fatal("expected error when no candidate scores")
	}
}

func TestGridSearchCancelled(t *testing.T) {
	gs, err := NewGridSearch([]string{"k"}, [][]float64{Candidates(0, 1, 100)})
	if err != nil {
		t.Fatalf("NewGridSearch: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gs.Search(ctx, func(ctx context.Context, _ map[string]float64) (float64, error) {
		return 0, ctx.Err()
	}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewGridSearchRejectsBadInput(t *testing.T) {
	if _, err := NewGridSearch(nil, nil); err == nil {
		t.Error("expected error for empty parameter list")
	}
	if _, err := NewGridSearch([]string{"k"}, [][]float64{}); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if _, err := NewGridSearch([]string{"k"}, [][]float64{{}}); err == nil {
		t.Error("expected error for empty candidate list")
	}
}

func TestCandidates(t *testing.T) {
	vs := Candidates(1, 3, 5)
	want := []float64{1, 1.5, 2, 2.5, 3}
	if len(vs) != len(want) {
		t.Fatalf("length: got %d, want %d", len(vs), len(want))
	}
	for i := range want {
		if math.Abs(vs[i]-want[i]) > 1e-12 {
			t.Errorf("value %d: got %f, want %f", i, vs[i], want[i])
		}
	}
	if got := Candidates(2, 5, 1); len(got) != 1 || got[0] != 2 {
		t.Errorf("single candidate: got %v", got)
	}
}

func TestSSE(t *testing.T) {
	got, err := SSE([]float64{1, 2, 3}, []float64{1, 1, 5})
	if err != nil {
		t.Fatalf("SSE: %v", err)
	}
	if got != 5 {
		t.Errorf("sse: got %f, want 5", got)
	}
	if _, err := SSE([]float64{1}, []float64{1, 2}); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestNashSutcliffe(t *testing.T) {
	obs := []float64{1, 2, 3, 4}

	perfect, err := NashSutcliffe(obs, []float64{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NashSutcliffe: %v", err)
	}
	if perfect != 1 {
		t.Errorf("perfect fit: got %f, want 1", perfect)
	}

	// Predicting the observed mean everywhere scores exactly zero.
	meanOnly, err := NashSutcliffe(obs, []float64{2.5, 2.5, 2.5, 2.5})
	if err != nil {
		t.Fatalf("NashSutcliffe: %v", err)
	}
	if meanOnly != 0 {
		t.Errorf("mean predictor: got %f, want 0", meanOnly)
	}

	flat, err := NashSutcliffe([]float64{2, 2}, []float64{1, 3})
	if err != nil {
		t.Fatalf("NashSutcliffe: %v", err)
	}
	if !math.IsNaN(flat) {
		t.Errorf("zero-variance observed: got %f, want NaN", flat)
	}
}
