// Package model loads the frozen scaler and classifier artifacts used by the
// risk pipeline. Artifacts are JSON documents exported from the offline
// training job; they are immutable once loaded and safe for concurrent use.
package model

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed artifacts/*.json
var defaultArtifacts embed.FS

const (
	defaultScalerFile     = "artifacts/scaler.json"
	defaultClassifierFile = "artifacts/classifier.json"
)

// Load reads the scaler and classifier from disk. An empty path selects the
// artifact embedded in the binary.
func Load(scalerPath, classifierPath string) (*StandardScaler, *GradientBoosting, error) {
	var scaler StandardScaler
	if err := readArtifact(scalerPath, defaultScalerFile, &scaler); err != nil {
		return nil, nil, fmt.Errorf("load scaler: %w", err)
	}
	if err := scaler.validate(); err != nil {
		return nil, nil, fmt.Errorf("load scaler: %w", err)
	}

	var clf GradientBoosting
	if err := readArtifact(classifierPath, defaultClassifierFile, &clf); err != nil {
		return nil, nil, fmt.Errorf("load classifier: %w", err)
	}
	if err := clf.validate(); err != nil {
		return nil, nil, fmt.Errorf("load classifier: %w", err)
	}
	return &scaler, &clf, nil
}

func readArtifact(path, fallback string, v any) error {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = defaultArtifacts.ReadFile(fallback)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", nameOr(path, fallback), err)
	}
	return nil
}

func nameOr(path, fallback string) string {
	if path == "" {
		return "embedded " + fallback
	}
	return path
}
