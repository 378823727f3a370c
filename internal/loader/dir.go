package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/types"
)

// DirSource reads documents from a local documentation build directory.
type DirSource struct {
	root      string
	format    Format
	indexName string
}

// NewDirSource creates a source rooted at dir
func NewDirSource(dir string, format Format, indexName string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", dir)
	}
	if indexName == "" {
		indexName = "data.json"
	}
	return &DirSource{root: filepath.Clean(dir), format: format, indexName: indexName}, nil
}

// Root returns the source directory
func (s *DirSource) Root() string {
	return s.root
}

// IndexPath returns the absolute index file path
func (s *DirSource) IndexPath() string {
	return filepath.Join(s.root, s.indexName)
}

// FetchClass implements Source
func (s *DirSource) FetchClass(ctx context.Context, name string) (*types.ClassDocument, error) {
	if !validClassName(name) {
		return nil, errors.NewNotFoundError(name, nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed, "fetch cancelled", err).WithClass(name)
	}

	body, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(classFile(name, s.format))))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(name, nil)
		}
		return nil, errors.NewIOError(errors.ErrCodeFetchFailed, "reading class document", err).WithClass(name)
	}
	return decodeClass(name, body)
}

// FetchIndex implements Source
func (s *DirSource) FetchIndex(ctx context.Context) (*types.ClassIndex, error) {
	body, err := os.ReadFile(s.IndexPath())
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFetchFailed, "reading class index", err).
			WithContext("path", s.IndexPath())
	}
	return DecodeIndex(body)
}
