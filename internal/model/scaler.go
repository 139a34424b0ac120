package model

import (
	"fmt"
)

// StandardScaler applies the fitted standardization (x - mean) / scale
// to a feature vector. Mean and Scale are per-column artifacts exported
// at training time.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Transform standardizes a feature vector. The vector length must match
// the fitted column count.
func (s *StandardScaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) || len(x) != len(s.Scale) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(x))
	}

	out := make([]float64, len(x))
	for i, v := range x {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (v - s.Mean[i]) / scale
	}
	return out, nil
}

// MinMaxScaler is the fitted linear map from raw anomaly scores to the
// bounded risk range. The output is clamped only by virtue of the
// fitted data range: out-of-training-range inputs may map outside
// [RangeMin, RangeMax] and that is accepted behavior.
type MinMaxScaler struct {
	DataMin  float64 `json:"dataMin"`
	DataMax  float64 `json:"dataMax"`
	RangeMin float64 `json:"rangeMin"`
	RangeMax float64 `json:"rangeMax"`
}

// TransformOne maps a single raw score through the fitted linear range.
func (s *MinMaxScaler) TransformOne(x float64) float64 {
	span := s.DataMax - s.DataMin
	if span == 0 {
		return s.RangeMin
	}
	return (x-s.DataMin)/span*(s.RangeMax-s.RangeMin) + s.RangeMin
}
