// Package scoring adapts the pre-trained model bundle to the decision
// pipeline: the classifier path and the anomaly path each run against
// their own fitted feature scaling.
package scoring

import (
	"fmt"

	"github.com/falcon-fin/falcon/internal/model"
)

// Result holds both model outputs for one feature vector.
type Result struct {
	// RFPrediction is the classifier verdict: 0 legitimate, 1 fraud.
	RFPrediction int

	// AnomalyScore is the raw detector output (higher = more normal).
	AnomalyScore float64

	// RiskScore is the bounded ~0-100 score derived from the negated
	// anomaly score via the fitted risk scaler. Not re-clamped.
	RiskScore float64
}

// Scorer invokes the two models against a shared feature vector.
type Scorer struct {
	bundle *model.Bundle
}

// NewScorer wraps a loaded model bundle.
func NewScorer(bundle *model.Bundle) (*Scorer, error) {
	if bundle == nil {
		return nil, fmt.Errorf("model bundle is required")
	}
	if err := bundle.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{bundle: bundle}, nil
}

// Score runs both scoring paths over an assembled feature vector.
func (s *Scorer) Score(features []float64) (*Result, error) {
	if len(features) != s.bundle.FeatureWidth() {
		return nil, fmt.Errorf("feature vector has %d columns, models expect %d",
			len(features), s.bundle.FeatureWidth())
	}

	// Classifier path.
	scaled, err := s.bundle.ClassifierScaler.Transform(features)
	if err != nil {
		return nil, fmt.Errorf("classifier scaling: %w", err)
	}
	verdict, err := s.bundle.Classifier.Predict(scaled)
	if err != nil {
		return nil, fmt.Errorf("classifier prediction: %w", err)
	}

	// Anomaly path. The raw score is negated so that larger means more
	// anomalous before the risk scaler maps it onto 0-100.
	scaled, err = s.bundle.AnomalyScaler.Transform(features)
	if err != nil {
		return nil, fmt.Errorf("anomaly scaling: %w", err)
	}
	raw, err := s.bundle.Anomaly.DecisionFunction(scaled)
	if err != nil {
		return nil, fmt.Errorf("anomaly scoring: %w", err)
	}
	risk := s.bundle.RiskScaler.TransformOne(-raw)

	return &Result{
		RFPrediction: verdict,
		AnomalyScore: raw,
		RiskScore:    risk,
	}, nil
}

// Encoders exposes the bundle's categorical encoder set.
func (s *Scorer) Encoders() *model.EncoderSet {
	return s.bundle.Encoders
}

// ModelVersion returns the loaded bundle version.
func (s *Scorer) ModelVersion() string {
	return s.bundle.Version
}
