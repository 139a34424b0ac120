// Package model implements inference over the pre-trained artifacts:
// the forest classifier, the isolation-forest anomaly detector, their
// feature scalers, the risk scaler and the categorical encoder set.
// Artifacts are exported at training time as a versioned JSON bundle
// and treated as immutable for the process lifetime.
package model

import (
	"fmt"
)

// TreeNode is one node of a serialized decision tree. Internal nodes
// route on Feature <= Threshold; leaves carry Value (the fraction of
// fraud samples at the leaf for classifier trees).
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value"`
}

// Tree is a flattened decision tree; node 0 is the root.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// apply walks the tree for one sample and returns the leaf value.
func (t *Tree) apply(x []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("tree node index %d out of range", idx)
		}
		node := t.Nodes[idx]
		if node.Leaf {
			return node.Value, nil
		}
		if node.Feature < 0 || node.Feature >= len(x) {
			return 0, fmt.Errorf("tree references feature %d, vector has %d", node.Feature, len(x))
		}
		if x[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("tree walk did not terminate")
}

// Forest is the binary fraud classifier: an ensemble of decision trees
// whose leaf values are averaged into a fraud probability.
type Forest struct {
	Trees []Tree `json:"trees"`
}

// Predict returns the binary verdict: 0 legitimate, 1 fraud-predicted.
func (f *Forest) Predict(x []float64) (int, error) {
	p, err := f.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// PredictProba returns the averaged fraud probability across trees.
func (f *Forest) PredictProba(x []float64) (float64, error) {
	if len(f.Trees) == 0 {
		return 0, fmt.Errorf("classifier has no trees")
	}

	sum := 0.0
	for i := range f.Trees {
		v, err := f.Trees[i].apply(x)
		if err != nil {
			return 0, fmt.Errorf("tree %d: %w", i, err)
		}
		sum += v
	}
	return sum / float64(len(f.Trees)), nil
}
