package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/types"
)

// maxDocumentSize bounds a single response body.
const maxDocumentSize = 32 << 20

// HTTPSource fetches documents from a remote documentation build.
type HTTPSource struct {
	baseURL   *url.URL
	client    *http.Client
	format    Format
	indexName string
}

// NewHTTPSource creates a source rooted at baseURL. Class documents live
// under <baseURL>/classes/ and the index at <baseURL>/<indexName>.
func NewHTTPSource(baseURL string, format Format, indexName string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if indexName == "" {
		indexName = "data.json"
	}

	return &HTTPSource{
		baseURL:   u,
		client:    client,
		format:    format,
		indexName: indexName,
	}, nil
}

// FetchClass implements Source
func (s *HTTPSource) FetchClass(ctx context.Context, name string) (*types.ClassDocument, error) {
	if !validClassName(name) {
		return nil, errors.NewNotFoundError(name, nil)
	}

	ref := &url.URL{Path: classFile(name, s.format)}
	body, err := s.get(ctx, s.baseURL.ResolveReference(ref).String(), name)
	if err != nil {
		return nil, err
	}
	return decodeClass(name, body)
}

// FetchIndex implements Source
func (s *HTTPSource) FetchIndex(ctx context.Context) (*types.ClassIndex, error) {
	ref := &url.URL{Path: s.indexName}
	body, err := s.get(ctx, s.baseURL.ResolveReference(ref).String(), "")
	if err != nil {
		return nil, err
	}
	return DecodeIndex(body)
}

func (s *HTTPSource) get(ctx context.Context, target, class string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInternalError, "building request", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed, "request failed", err).
			WithClass(class).
			WithContext("url", target)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		if class == "" {
			return nil, errors.NewIOError(errors.ErrCodeFetchFailed, "class index not found", nil).
				WithContext("url", target)
		}
		return nil, errors.NewNotFoundError(class, nil)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed,
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil).
			WithClass(class).
			WithContext("url", target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeFetchFailed, "reading response", err).WithClass(class)
	}
	return body, nil
}
