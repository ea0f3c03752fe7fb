package analyzer_test

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/matzehuels/gradlab/pkg/analyzer"
	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/integrations/lab"
	"github.com/matzehuels/gradlab/pkg/integrations/lab/labtest"
)

func newAnalyzer(t *testing.T) (*labtest.Server, *analyzer.Analyzer) {
	t.Helper()
	srv := labtest.New()
	t.Cleanup(srv.Close)
	c := lab.NewClient(nil, srv.URL, time.Hour)
	c.SetHTTPClient(srv.Client())
	c.SetRetry(cache.RetryPolicy{Attempts: 1})
	return srv, analyzer.New(c, nil)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCompare(t *testing.T) {
	srv, a := newAnalyzer(t)
	idB := srv.AddImage(20, 10)
	srv.SetScores(idB, lab.Scores{EdgeConsistency: 0.9, SmoothnessScore: 1.7, TextureWeirdness: 0.1})

	cmp, err := a.Compare(context.Background(),
		analyzer.Input{Filename: "a.png", Data: labtest.PNG(30, 30, 10)},
		analyzer.Input{ImageID: idB},
	)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	if cmp.A.Label != "A" || cmp.B.Label != "B" {
		t.Errorf("labels = %q, %q", cmp.A.Label, cmp.B.Label)
	}
	if cmp.A.Width != 30 || cmp.B.Width != 20 {
		t.Errorf("widths = %d, %d", cmp.A.Width, cmp.B.Width)
	}
	if cmp.B.Raw.SmoothnessScore != 1.7 || cmp.B.Scores.SmoothnessScore != 1 {
		t.Errorf("B smoothness raw=%v clamped=%v", cmp.B.Raw.SmoothnessScore, cmp.B.Scores.SmoothnessScore)
	}
	if cmp.A.HeatmapURL == "" || cmp.B.HeatmapURL == "" {
		t.Error("missing heatmap")
	}

	// A gets the fake's default scores {0.5, 0.25, 0.75}.
	want := lab.Scores{EdgeConsistency: 0.4, SmoothnessScore: 0.75, TextureWeirdness: -0.65}
	if !near(cmp.Diff.EdgeConsistency, want.EdgeConsistency) ||
		!near(cmp.Diff.SmoothnessScore, want.SmoothnessScore) ||
		!near(cmp.Diff.TextureWeirdness, want.TextureWeirdness) {
		t.Errorf("Diff = %+v, want %+v", cmp.Diff, want)
	}

	rows := cmp.Metrics()
	if len(rows) != 3 || rows[0].Name != "Edge Consistency" || !near(rows[2].Diff, -0.65) {
		t.Errorf("Metrics = %+v", rows)
	}
	if srv.Count("/api/images") != 1 {
		t.Errorf("uploads = %d, want 1", srv.Count("/api/images"))
	}
}

func TestCompareFailure(t *testing.T) {
	srv, a := newAnalyzer(t)
	id := srv.AddImage(5, 5)
	srv.Fail("/api/analyze", http.StatusBadGateway)

	_, err := a.Compare(context.Background(), analyzer.Input{ImageID: id}, analyzer.Input{ImageID: id})
	if !errors.Is(err, errors.ErrCodeFetchFailed) {
		t.Fatalf("err = %v, want FETCH_FAILED", err)
	}
}

func TestAnalyzeNeedsImage(t *testing.T) {
	_, a := newAnalyzer(t)
	_, err := a.Analyze(context.Background(), analyzer.Input{Label: "left"})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("err = %v, want INVALID_INPUT", err)
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		a, b, want lab.Scores
	}{
		{lab.Scores{}, lab.Scores{}, lab.Scores{}},
		{lab.Scores{EdgeConsistency: 1}, lab.Scores{}, lab.Scores{EdgeConsistency: -1}},
		{lab.Scores{TextureWeirdness: 0.25}, lab.Scores{TextureWeirdness: 0.5}, lab.Scores{TextureWeirdness: 0.25}},
	}
	for _, tt := range tests {
		if got := analyzer.Diff(tt.a, tt.b); got != tt.want {
			t.Errorf("Diff(%+v, %+v) = %+v, want %+v", tt.a, tt.b, got, tt.want)
		}
	}
}
