package source

import (
	"context"
	"fmt"
	"time"

	"paperdigest/internal/domain"
)

// Request carries all parameters required to execute one fetch.
// Each client interprets the fields it understands: the arXiv clients use
// Categories, Semantic Scholar uses Interests as its search query.
type Request struct {
	Day        time.Time
	Interests  string
	Categories []string
	MaxResults int
}

// Source captures a single paper-source client (arXiv, HuggingFace, etc.).
// A source returning zero papers is not an error.
type Source interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]domain.Paper, error)
}

// Registry keeps a mapping from source names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: map[string]Source{}}
}

// Register adds or replaces a source implementation.
func (r *Registry) Register(src Source) {
	if r.sources == nil {
		r.sources = map[string]Source{}
	}
	if _, ok := r.sources[src.Name()]; !ok {
		r.order = append(r.order, src.Name())
	}
	r.sources[src.Name()] = src
}

// Resolve returns a source by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Source, error) {
	if src, ok := r.sources[name]; ok {
		return src, nil
	}
	return nil, fmt.Errorf("source %s is not registered", name)
}

// Names lists registered sources in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
