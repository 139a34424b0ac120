package model

import (
	"fmt"
	"math"
)

// eulerMascheroni is used by the average-path-length normalizer.
const eulerMascheroni = 0.5772156649

// IsoNode is one node of a serialized isolation tree. Leaves carry the
// number of training samples that terminated there; path length is the
// leaf depth plus the unbuilt-subtree estimate c(SampleCount).
type IsoNode struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	Leaf        bool    `json:"leaf"`
	SampleCount int     `json:"sampleCount"`
}

// IsoTree is a flattened isolation tree; node 0 is the root.
type IsoTree struct {
	Nodes []IsoNode `json:"nodes"`
}

// pathLength returns the isolation path length for one sample.
func (t *IsoTree) pathLength(x []float64) (float64, error) {
	idx := 0
	depth := 0.0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("isolation tree node index %d out of range", idx)
		}
		node := t.Nodes[idx]
		if node.Leaf {
			return depth + averagePathLength(node.SampleCount), nil
		}
		if node.Feature < 0 || node.Feature >= len(x) {
			return 0, fmt.Errorf("isolation tree references feature %d, vector has %d", node.Feature, len(x))
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
		depth++
	}
	return 0, fmt.Errorf("isolation tree walk did not terminate")
}

// IsolationForest is the anomaly detector. Its raw decision score
// follows the training library's convention: higher means more normal,
// so callers negate it before risk scaling.
type IsolationForest struct {
	Trees []IsoTree `json:"trees"`

	// SubsampleSize is the per-tree training subsample, used to
	// normalize path lengths.
	SubsampleSize int `json:"subsampleSize"`

	// Offset shifts the anomaly measure so that the fitted
	// contamination fraction falls below zero.
	Offset float64 `json:"offset"`
}

// DecisionFunction returns the raw anomaly score for one sample.
// Negative scores are more anomalous than positive ones.
func (f *IsolationForest) DecisionFunction(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("anomaly detector has no trees")
	}

	sum := 0.0
	for i := range f.Trees {
		h, err := f.Trees[i].pathLength(x)
		if err != nil {
			return 0, fmt.Errorf("isolation tree %d: %w", i, err)
		}
		sum += h
	}
	mean := sum / float64(len(f.Trees))

	n := f.SubsampleSize
	if n <= 1 {
		n = 256
	}

	// Anomaly measure in (0, 1]: short paths isolate quickly and score
	// near 1, long paths score near 0.
	measure := math.Pow(2, -mean/averagePathLength(n))

	return -measure - f.Offset, nil
}

// averagePathLength is c(n): the expected path length of an
// unsuccessful search in a binary search tree over n samples.
func averagePathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerMascheroni) - 2*(fn-1)/fn
}
