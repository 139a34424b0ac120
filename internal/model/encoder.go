package model

import (
	"fmt"
	"sync"
)

// UnknownValue is the sentinel class substituted for categorical values
// absent from the fitted vocabulary.
const UnknownValue = "Unknown"

// EncoderSet maps categorical feature values to their learned integer
// codes. Vocabularies are fitted at training time; the only permitted
// runtime mutation is the idempotent addition of the "Unknown" sentinel
// the first time an unseen value is observed, which goes through a
// single-writer path guarded by the mutex.
type EncoderSet struct {
	mu    sync.RWMutex
	vocab map[string]map[string]int
}

// NewEncoderSet builds an encoder set from fitted vocabularies.
func NewEncoderSet(vocab map[string]map[string]int) *EncoderSet {
	if vocab == nil {
		vocab = make(map[string]map[string]int)
	}
	return &EncoderSet{vocab: vocab}
}

// Encode returns the learned code for a feature value. Unseen values
// (and empty ones) resolve to the "Unknown" code, extending the
// vocabulary if the sentinel is not yet a member. An unconfigured
// feature name is a configuration error.
func (e *EncoderSet) Encode(feature, value string) (int, error) {
	if value == "" {
		value = UnknownValue
	}

	e.mu.RLock()
	classes, ok := e.vocab[feature]
	if !ok {
		e.mu.RUnlock()
		return 0, fmt.Errorf("no encoder fitted for feature %q", feature)
	}
	if code, ok := classes[value]; ok {
		e.mu.RUnlock()
		return code, nil
	}
	code, ok := classes[UnknownValue]
	e.mu.RUnlock()
	if ok {
		return code, nil
	}

	return e.extendUnknown(feature)
}

// extendUnknown adds the "Unknown" sentinel to a vocabulary. The
// double-check under the write lock keeps the extension idempotent
// across concurrent requests.
func (e *EncoderSet) extendUnknown(feature string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	classes, ok := e.vocab[feature]
	if !ok {
		return 0, fmt.Errorf("no encoder fitted for feature %q", feature)
	}
	if code, ok := classes[UnknownValue]; ok {
		return code, nil
	}

	code := len(classes)
	classes[UnknownValue] = code
	return code, nil
}

// Classes returns the vocabulary size for a feature, 0 if unfitted.
func (e *EncoderSet) Classes(feature string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.vocab[feature])
}

// Vocabulary returns a copy of the fitted vocabulary for serialization.
func (e *EncoderSet) Vocabulary() map[string]map[string]int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]map[string]int, len(e.vocab))
	for feature, classes := range e.vocab {
		cp := make(map[string]int, len(classes))
		for v, c := range classes {
			cp[v] = c
		}
		out[feature] = cp
	}
	return out
}
