package ingest

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Document is a fetched data file
type Document struct {
	Name        string
	ContentType string
	Body        []byte
}

// IsHTML reports whether the document should be parsed as an HTML page
func (d Document) IsHTML() bool {
	if mediaType, _, err := mime.ParseMediaType(d.ContentType); err == nil && mediaType == "text/html" {
		return true
	}
	ext := strings.ToLower(filepath.Ext(d.Name))
	return ext == ".html" || ext == ".htm"
}

// Source fetches league data files by name
type Source interface {
	Fetch(ctx context.Context, name string) (Document, error)
}

// HTTPSource fetches files relative to a base URL
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a source rooted at baseURL
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch performs a GET for baseURL/name
func (s *HTTPSource) Fetch(ctx context.Context, name string) (Document, error) {
	target := s.baseURL + "/" + url.PathEscape(strings.TrimLeft(name, "/"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Document{}, fmt.Errorf("building request for %s: %w", name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("fetching %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("fetching %s: unexpected status %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", target, err)
	}

	return Document{
		Name:        name,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// DirSource reads files from a local directory
type DirSource struct {
	dir string
}

// NewDirSource creates a source rooted at dir
func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir}
}

// Fetch reads dir/name
func (s *DirSource) Fetch(ctx context.Context, name string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	path := filepath.Join(s.dir, filepath.Clean("/"+name))
	body, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Document{Name: name, Body: body}, nil
}
