package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Bundle is the complete set of pre-trained artifacts the pipeline
// scores with. Loaded once at process start and never mutated except
// for the encoder "Unknown" extension.
type Bundle struct {
	Version string `json:"version"`

	Classifier       *Forest          `json:"classifier"`
	ClassifierScaler *StandardScaler  `json:"classifierScaler"`
	Anomaly          *IsolationForest `json:"anomaly"`
	AnomalyScaler    *StandardScaler  `json:"anomalyScaler"`
	RiskScaler       *MinMaxScaler    `json:"riskScaler"`

	Encoders *EncoderSet `json:"-"`

	// EncoderVocab is the serialized form of Encoders.
	EncoderVocab map[string]map[string]int `json:"encoders"`
}

// Load reads a bundle from a JSON artifact file.
func Load(path string) (*Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse model bundle: %w", err)
	}
	b.Encoders = NewEncoderSet(b.EncoderVocab)

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Validate checks the bundle is complete and internally consistent.
func (b *Bundle) Validate() error {
	switch {
	case b.Classifier == nil || len(b.Classifier.Trees) == 0:
		return fmt.Errorf("model bundle %q: classifier missing", b.Version)
	case b.ClassifierScaler == nil:
		return fmt.Errorf("model bundle %q: classifier scaler missing", b.Version)
	case b.Anomaly == nil || len(b.Anomaly.Trees) == 0:
		return fmt.Errorf("model bundle %q: anomaly detector missing", b.Version)
	case b.AnomalyScaler == nil:
		return fmt.Errorf("model bundle %q: anomaly scaler missing", b.Version)
	case b.RiskScaler == nil:
		return fmt.Errorf("model bundle %q: risk scaler missing", b.Version)
	case b.Encoders == nil:
		return fmt.Errorf("model bundle %q: encoders missing", b.Version)
	}

	if len(b.ClassifierScaler.Mean) != len(b.AnomalyScaler.Mean) {
		return fmt.Errorf("model bundle %q: scaler widths differ (%d vs %d)",
			b.Version, len(b.ClassifierScaler.Mean), len(b.AnomalyScaler.Mean))
	}
	return nil
}

// FeatureWidth returns the feature vector length the bundle was fitted
// with.
func (b *Bundle) FeatureWidth() int {
	return len(b.ClassifierScaler.Mean)
}

// DevBundle returns a tiny deterministic bundle for development and
// tests: the classifier flags amounts above 100000, the anomaly
// detector isolates amounts above 50000. Not suitable for production
// traffic; main logs a warning when it is in use.
func DevBundle() *Bundle {
	const width = 11 // 8 numerical + 3 encoded categorical columns

	identity := func() *StandardScaler {
		s := &StandardScaler{
			Mean:  make([]float64, width),
			Scale: make([]float64, width),
		}
		for i := range s.Scale {
			s.Scale[i] = 1
		}
		return s
	}

	classifier := &Forest{
		Trees: []Tree{{
			Nodes: []TreeNode{
				{Feature: 0, Threshold: 100000, Left: 1, Right: 2},
				{Leaf: true, Value: 0.05},
				{Leaf: true, Value: 0.9},
			},
		}},
	}

	anomaly := &IsolationForest{
		Trees: []IsoTree{{
			Nodes: []IsoNode{
				{Feature: 0, Threshold: 50000, Left: 1, Right: 2},
				{Leaf: true, SampleCount: 1000},
				{Leaf: true, SampleCount: 10},
			},
		}},
		SubsampleSize: 256,
		Offset:        -0.5,
	}

	vocab := map[string]map[string]int{
		"transaction_type": {
			"IMPS": 0, "NEFT": 1, "RTGS": 2, "UPI": 3,
			UnknownValue: 4,
		},
		"merchant_category": {
			"Electronics": 0, "Food": 1, "Grocery": 2,
			"P2P": 3, "Travel": 4, UnknownValue: 5,
		},
		"device_type": {
			"Desktop": 0, "Mobile": 1, "POS": 2,
			"Tablet": 3, UnknownValue: 4,
		},
	}

	b := &Bundle{
		Version:          "dev-1",
		Classifier:       classifier,
		ClassifierScaler: identity(),
		Anomaly:          anomaly,
		AnomalyScaler:    identity(),
		RiskScaler: &MinMaxScaler{
			DataMin:  -0.2,
			DataMax:  0.3,
			RangeMin: 0,
			RangeMax: 100,
		},
		Encoders:     NewEncoderSet(vocab),
		EncoderVocab: vocab,
	}
	return b
}
