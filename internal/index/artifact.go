package index

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Metric names the distance function the artifact was built for
type Metric string

const (
	MetricCosine Metric = "cosine" // similarity, higher is closer
	MetricL2     Metric = "l2"     // squared euclidean distance, lower is closer
)

// Record is the stored metadata for one indexed chunk
type Record struct {
	Text       string
	Source     string
	Title      string
	URL        string
	Published  time.Time
	ChunkIndex int // -1 when the builder did not track chunk ordinals
}

// Artifact is the on-disk index produced by the offline build job.
// Records[i] corresponds to Embeddings[i].
type Artifact struct {
	Records    []Record
	Embeddings [][]float32
	ModelInfo  string
	Dimension  int
	Metric     Metric
	BuiltAt    time.Time
}

// ReadArtifact decodes a gob artifact from disk
func ReadArtifact(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var a Artifact
	if err := gob.NewDecoder(f).Decode(&a); err != nil {
		return nil, fmt.Errorf("decode index %s: %w", path, err)
	}
	if a.Metric == "" {
		a.Metric = MetricCosine
	}
	return &a, nil
}

// WriteArtifact encodes the artifact and atomically replaces path
func WriteArtifact(path string, a *Artifact) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(a); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("encode index: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close index: %w", err)
	}
	return os.Rename(tmp, path)
}
