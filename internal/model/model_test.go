package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func devVector(amount float64) []float64 {
	x := make([]float64, 11)
	x[0] = amount
	return x
}

func TestForestPredict(t *testing.T) {
	b := DevBundle()

	pred, err := b.Classifier.Predict(devVector(500))
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if pred != 0 {
		t.Errorf("expected verdict 0 for small amount, got %d", pred)
	}

	pred, err = b.Classifier.Predict(devVector(250000))
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if pred != 1 {
		t.Errorf("expected verdict 1 for large amount, got %d", pred)
	}
}

func TestForestFeatureOutOfRange(t *testing.T) {
	f := &Forest{
		Trees: []Tree{{
			Nodes: []TreeNode{
				{Feature: 5, Threshold: 1, Left: 1, Right: 2},
				{Leaf: true, Value: 0},
				{Leaf: true, Value: 1},
			},
		}},
	}

	if _, err := f.Predict([]float64{1, 2}); err == nil {
		t.Error("expected error for feature index beyond vector width")
	}
}

func TestIsolationForestScores(t *testing.T) {
	b := DevBundle()

	normal, err := b.Anomaly.DecisionFunction(devVector(500))
	if err != nil {
		t.Fatalf("decision function failed: %v", err)
	}
	anomalous, err := b.Anomaly.DecisionFunction(devVector(250000))
	if err != nil {
		t.Fatalf("decision function failed: %v", err)
	}

	// Convention: higher = more normal.
	if anomalous >= normal {
		t.Errorf("expected anomalous score %f below normal score %f", anomalous, normal)
	}
	if normal <= 0 {
		t.Errorf("expected positive score for normal sample, got %f", normal)
	}
	if anomalous >= 0 {
		t.Errorf("expected negative score for anomalous sample, got %f", anomalous)
	}
}

func TestStandardScaler(t *testing.T) {
	s := &StandardScaler{
		Mean:  []float64{10, 0},
		Scale: []float64{2, 0}, // zero scale treated as 1
	}

	out, err := s.Transform([]float64{14, 3})
	if err != nil {
		t.Fatalf("transform failed: %v", err)
	}
	if out[0] != 2 || out[1] != 3 {
		t.Errorf("unexpected scaled vector: %v", out)
	}

	if _, err := s.Transform([]float64{1}); err == nil {
		t.Error("expected error for width mismatch")
	}
}

func TestMinMaxScaler(t *testing.T) {
	s := &MinMaxScaler{DataMin: -0.2, DataMax: 0.3, RangeMin: 0, RangeMax: 100}

	if got := s.TransformOne(-0.2); got != 0 {
		t.Errorf("expected 0 at data min, got %f", got)
	}
	if got := s.TransformOne(0.3); got != 100 {
		t.Errorf("expected 100 at data max, got %f", got)
	}

	// Out-of-training-range inputs may exceed the range; not clamped.
	if got := s.TransformOne(0.4); got <= 100 {
		t.Errorf("expected score above 100 for out-of-range input, got %f", got)
	}
}

func TestEncoderUnknownValues(t *testing.T) {
	enc := NewEncoderSet(map[string]map[string]int{
		"merchant_category": {"P2P": 0, "Food": 1},
	})

	code1, err := enc.Encode("merchant_category", "Rocketry")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if code1 != 2 {
		t.Errorf("expected Unknown appended as code 2, got %d", code1)
	}

	// Second unseen value reuses the same sentinel code.
	code2, err := enc.Encode("merchant_category", "Falconry")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if code2 != code1 {
		t.Errorf("expected reused Unknown code %d, got %d", code1, code2)
	}

	// Known values still resolve to their fitted codes.
	code3, err := enc.Encode("merchant_category", "Food")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if code3 != 1 {
		t.Errorf("expected fitted code 1, got %d", code3)
	}

	// Missing input defaults to Unknown before lookup.
	code4, err := enc.Encode("merchant_category", "")
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if code4 != code1 {
		t.Errorf("expected Unknown code %d for empty value, got %d", code1, code4)
	}
}

func TestEncoderUnfittedFeature(t *testing.T) {
	enc := NewEncoderSet(nil)
	if _, err := enc.Encode("no_such_feature", "x"); err == nil {
		t.Error("expected error for unfitted feature")
	}
}

func TestEncoderConcurrentExtension(t *testing.T) {
	enc := NewEncoderSet(map[string]map[string]int{
		"device_type": {"Mobile": 0},
	})

	var wg sync.WaitGroup
	codes := make([]int, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			code, err := enc.Encode("device_type", "Hologram")
			if err != nil {
				t.Errorf("encode failed: %v", err)
				return
			}
			codes[i] = code
		}(i)
	}
	wg.Wait()

	for _, c := range codes {
		if c != codes[0] {
			t.Fatalf("concurrent extensions produced differing codes: %v", codes)
		}
	}
	if enc.Classes("device_type") != 2 {
		t.Errorf("expected vocabulary size 2, got %d", enc.Classes("device_type"))
	}
}

func TestBundleRoundTrip(t *testing.T) {
	b := DevBundle()
	b.EncoderVocab = b.Encoders.Vocabulary()

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Version != b.Version {
		t.Errorf("expected version %q, got %q", b.Version, loaded.Version)
	}
	if loaded.FeatureWidth() != b.FeatureWidth() {
		t.Errorf("expected feature width %d, got %d", b.FeatureWidth(), loaded.FeatureWidth())
	}

	pred, err := loaded.Classifier.Predict(devVector(250000))
	if err != nil {
		t.Fatalf("predict on loaded bundle failed: %v", err)
	}
	if pred != 1 {
		t.Errorf("expected verdict 1 from loaded bundle, got %d", pred)
	}
}

func TestBundleValidate(t *testing.T) {
	b := DevBundle()
	b.RiskScaler = nil
	if err := b.Validate(); err == nil {
		t.Error("expected validation error for missing risk scaler")
	}
}
