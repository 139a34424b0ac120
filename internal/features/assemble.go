package features

import (
	"errors"
	"fmt"

	"github.com/falcon-fin/falcon/internal/domain"
	"github.com/falcon-fin/falcon/internal/model"
)

// ErrMissingFeature marks a configuration/data mismatch: a configured
// feature column absent from the record after defaulting. Surfaced to
// callers as a server error, not a per-request transient condition.
var ErrMissingFeature = errors.New("configured feature missing from record")

// Assembler builds the model-ready feature vector: the configured
// ordered numeric columns followed by the configured ordered encoded
// categorical columns. The ordering is fixed by configuration and must
// match the column order the models were trained with.
type Assembler struct {
	cfg      domain.FeatureConfig
	encoders *model.EncoderSet
}

// NewAssembler creates an assembler for a feature layout.
func NewAssembler(cfg domain.FeatureConfig, encoders *model.EncoderSet) *Assembler {
	return &Assembler{cfg: cfg, encoders: encoders}
}

// Vector assembles the feature vector from derived values. Missing
// categorical inputs default to "Unknown" before encoding; a missing
// numeric column is a configuration error.
func (a *Assembler) Vector(numeric map[string]float64, categorical map[string]string) ([]float64, error) {
	out := make([]float64, 0, len(a.cfg.Numerical)+len(a.cfg.Categorical))

	for _, name := range a.cfg.Numerical {
		v, ok := numeric[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}
		out = append(out, v)
	}

	for _, name := range a.cfg.Categorical {
		code, err := a.encoders.Encode(name, categorical[name])
		if err != nil {
			return nil, fmt.Errorf("%w: %s (%v)", ErrMissingFeature, name, err)
		}
		out = append(out, float64(code))
	}

	return out, nil
}

// Width returns the configured vector length.
func (a *Assembler) Width() int {
	return len(a.cfg.Numerical) + len(a.cfg.Categorical)
}
