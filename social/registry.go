package social

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrUnknownProvider is returned for a provider id with no extractor.
	ErrUnknownProvider = errors.New("unknown social provider")
	// ErrMissingID is returned when the profile carries no provider user id.
	ErrMissingID = errors.New("provider profile has no user id")
)

// Identity is what the token subsystem needs from a provider profile.
type Identity struct {
	Provider   string
	ProviderID string
	Email      string
	Nickname   string
	ImageURL   string
}

// Attributes is the decoded user-info document returned by a provider.
type Attributes map[string]any

// Extractor turns provider attributes into an Identity.
type Extractor func(Attributes) (Identity, error)

// Registry looks up extractors by provider id. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]Extractor)}
}

// DefaultRegistry returns a registry with google, kakao and naver.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderGoogle, Google)
	r.Register(ProviderKakao, Kakao)
	r.Register(ProviderNaver, Naver)
	return r
}

// Register binds id (case-insensitive) to fn, replacing any previous binding.
func (r *Registry) Register(id string, fn Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[strings.ToLower(id)] = fn
}

// Providers lists registered ids in sorted order.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.extractors))
	for id := range r.extractors {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Extract runs the extractor registered for provider.
func (r *Registry) Extract(provider string, attrs Attributes) (Identity, error) {
	id := strings.ToLower(provider)

	r.mu.RLock()
	fn, ok := r.extractors[id]
	r.mu.RUnlock()
	if !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	ident, err := fn(attrs)
	if err != nil {
		return Identity{}, err
	}
	if ident.ProviderID == "" {
		return Identity{}, ErrMissingID
	}
	ident.Provider = id
	return ident, nil
}
