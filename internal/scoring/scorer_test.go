package scoring

import (
	"testing"

	"github.com/falcon-fin/falcon/internal/model"
)

func vector(amount float64) []float64 {
	x := make([]float64, 11)
	x[0] = amount
	return x
}

func TestScorerLowAmount(t *testing.T) {
	scorer, err := NewScorer(model.DevBundle())
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}

	res, err := scorer.Score(vector(500))
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	if res.RFPrediction != 0 {
		t.Errorf("expected verdict 0, got %d", res.RFPrediction)
	}
	if res.AnomalyScore <= 0 {
		t.Errorf("expected positive anomaly score for normal sample, got %f", res.AnomalyScore)
	}
	if res.RiskScore >= 50 {
		t.Errorf("expected low risk score, got %f", res.RiskScore)
	}
}

func TestScorerHighAmount(t *testing.T) {
	scorer, err := NewScorer(model.DevBundle())
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}

	res, err := scorer.Score(vector(250000))
	if err != nil {
		t.Fatalf("scoring failed: %v", err)
	}

	if res.RFPrediction != 1 {
		t.Errorf("expected verdict 1, got %d", res.RFPrediction)
	}
	if res.RiskScore <= 70 {
		t.Errorf("expected high risk score, got %f", res.RiskScore)
	}
}

func TestScorerWidthMismatch(t *testing.T) {
	scorer, err := NewScorer(model.DevBundle())
	if err != nil {
		t.Fatalf("failed to create scorer: %v", err)
	}

	if _, err := scorer.Score([]float64{1, 2, 3}); err == nil {
		t.Error("expected error for mismatched feature width")
	}
}

func TestNewScorerNilBundle(t *testing.T) {
	if _, err := NewScorer(nil); err == nil {
		t.Error("expected error for nil bundle")
	}
}
