package model

import (
	"errors"
	"fmt"
	"math"
)

// Node is one node of a regression tree. A node with Left < 0 is a leaf.
type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a regression tree stored as a flat node array rooted at index 0.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Left < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// GradientBoosting is a gradient-boosted tree ensemble classifier.
//
// For two classes each stage holds one tree and the positive-class
// probability is sigmoid(raw). For K > 2 classes each stage holds K trees and
// probabilities are a softmax over the K raw scores.
type GradientBoosting struct {
	FeatureNames  []string  `json:"feature_names,omitempty"`
	Classes       []int     `json:"classes"`
	PositiveClass int       `json:"positive_class"`
	LearningRate  float64   `json:"learning_rate"`
	Init          []float64 `json:"init"`
	Stages        [][]Tree  `json:"stages"`

	classIdx int
}

// NumFeatures is the width of the feature vectors the ensemble accepts.
func (g *GradientBoosting) NumFeatures() int {
	return len(g.FeatureNames)
}

// PredictProbability implements risk.Classifier. It returns the probability
// of PositiveClass.
func (g *GradientBoosting) PredictProbability(x []float64) (float64, error) {
	if len(x) != g.NumFeatures() {
		return 0, fmt.Errorf("classifier expects %d features, got %d", g.NumFeatures(), len(x))
	}

	raw := make([]float64, len(g.Init))
	copy(raw, g.Init)
	for _, stage := range g.Stages {
		for k := range stage {
			raw[k] += g.LearningRate * stage[k].eval(x)
		}
	}

	var p float64
	if len(g.Classes) == 2 {
		p1 := 1 / (1 + math.Exp(-raw[0]))
		if g.classIdx == 1 {
			p = p1
		} else {
			p = 1 - p1
		}
	} else {
		p = softmax(raw)[g.classIdx]
	}
	if math.IsNaN(p) {
		return 0, errors.New("classifier produced NaN")
	}
	return p, nil
}

func softmax(raw []float64) []float64 {
	hi := math.Inf(-1)
	for _, v := range raw {
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(raw))
	sum := 0.0
	for i, v := range raw {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func (g *GradientBoosting) validate() error {
	if len(g.Classes) < 2 {
		return errors.New("classifier needs at least two classes")
	}
	if g.NumFeatures() == 0 {
		return errors.New("classifier has no feature names")
	}

	trees := len(g.Classes)
	if trees == 2 {
		trees = 1
	}
	if len(g.Init) != trees {
		return fmt.Errorf("init has %d entries, want %d", len(g.Init), trees)
	}

	g.classIdx = -1
	for i, c := range g.Classes {
		if c == g.PositiveClass {
			g.classIdx = i
		}
	}
	if g.classIdx < 0 {
		return fmt.Errorf("positive class %d not in classes %v", g.PositiveClass, g.Classes)
	}

	for s, stage := range g.Stages {
		if len(stage) != trees {
			return fmt.Errorf("stage %d has %d trees, want %d", s, len(stage), trees)
		}
		for k := range stage {
			if err := stage[k].validate(g.NumFeatures()); err != nil {
				return fmt.Errorf("stage %d tree %d: %w", s, k, err)
			}
		}
	}
	return nil
}

// validate rejects out-of-range references and cycles so eval always
// terminates at a leaf.
func (t *Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Left < 0 {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: child index out of range", i)
		}
	}
	return nil
}
