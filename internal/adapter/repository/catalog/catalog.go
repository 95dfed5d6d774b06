// Package catalog loads defects from YAML documents. The default catalog is
// embedded in the binary so the viewer runs without any backing store.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/V4T54L/defect-lens/internal/domain"
)

//go:embed defects.yaml
var defaultCatalog []byte

type document struct {
	Defects []domain.Defect `yaml:"defects"`
}

// Repository implements domain.DefectRepository over a parsed YAML catalog.
type Repository struct {
	defects []domain.Defect
}

// Default returns the embedded demo catalog.
func Default() (*Repository, error) {
	return Parse(bytes.NewReader(defaultCatalog))
}

// Open reads a catalog file from path.
func Open(path string) (*Repository, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open defect catalog: %w", err)
	}
	defer f.Close()

	repo, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return repo, nil
}

// Load opens path, or the embedded catalog when path is empty.
func Load(path string) (*Repository, error) {
	if path == "" {
		return Default()
	}
	return Open(path)
}

// Parse decodes and validates a catalog. Unknown fields are rejected.
func Parse(r io.Reader) (*Repository, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode defect catalog: %w", err)
	}
	if err := domain.ValidateDefects(doc.Defects); err != nil {
		return nil, err
	}
	return &Repository{defects: doc.Defects}, nil
}

// List returns a copy of the catalog in document order.
func (r *Repository) List(ctx context.Context) ([]domain.Defect, error) {
	out := make([]domain.Defect, len(r.defects))
	copy(out, r.defects)
	return out, nil
}

// Get returns the defect with id.
func (r *Repository) Get(ctx context.Context, id string) (domain.Defect, error) {
	for _, d := range r.defects {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Defect{}, fmt.Errorf("%w: %s", domain.ErrDefectNotFound, id)
}
