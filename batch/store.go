package batch

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"restager/imaging"
)

// levelPrefixes name output files: BM for medium, BA for aggressive.
var levelPrefixes = map[string]string{
	"medium":     "BM",
	"aggressive": "BA",
}

// Store persists run outputs.
type Store interface {
	// SaveOutput writes one rendered image and returns its path relative
	// to the run directory.
	SaveOutput(runID, level string, index int, img image.Image) (string, error)
	// SaveManifest writes the run manifest.
	SaveManifest(runID string, m *Manifest) error
}

// LocalStore writes outputs under root/<runID>/.
type LocalStore struct {
	root string
}

// NewLocalStore returns a store rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir}
}

// RunDir returns the directory a run's files land in.
func (s *LocalStore) RunDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *LocalStore) SaveOutput(runID, level string, index int, img image.Image) (string, error) {
	prefix, ok := levelPrefixes[level]
	if !ok {
		return "", fmt.Errorf("batch: no output prefix for level %q", level)
	}
	name := fmt.Sprintf("%s_%02d.png", prefix, index+1)

	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("batch: create run dir: %w", err)
	}
	data, err := imaging.EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("batch: encode output: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("batch: write output: %w", err)
	}
	return name, nil
}

func (s *LocalStore) SaveManifest(runID string, m *Manifest) error {
	dir := s.RunDir(runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("batch: create run dir: %w", err)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.json"), data, 0o644); err != nil {
		return fmt.Errorf("batch: write manifest: %w", err)
	}
	return nil
}
