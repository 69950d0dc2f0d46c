package llm

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Router resolves "provider/model-id" references to registered providers.
// It owns the shared HTTP client so idle connections can be released on
// every exit path.
type Router struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRouter creates an empty provider router. timeout bounds each
// provider request at the transport level.
func NewRouter(logger *slog.Logger, timeout time.Duration) *Router {
	return &Router{
		providers: make(map[string]Provider),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "llm-router"),
	}
}

// HTTPClient returns the shared HTTP client for provider construction.
func (r *Router) HTTPClient() *http.Client {
	return r.httpClient
}

// Register adds a provider under its own name.
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
	r.logger.Info("provider registered", "name", p.Name())
}

// Resolve splits a "provider/model-id" reference and returns the provider
// together with the bare model ID.
func (r *Router) Resolve(ref string) (Provider, string, error) {
	providerName, modelID, ok := strings.Cut(ref, "/")
	if !ok || providerName == "" || modelID == "" {
		return nil, "", fmt.Errorf("model reference %q must be provider/model-id", ref)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, found := r.providers[providerName]
	if !found {
		return nil, "", fmt.Errorf("no provider registered for %q", providerName)
	}
	return p, modelID, nil
}

// ProviderNames returns the registered provider names.
func (r *Router) ProviderNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}

// CloseIdle releases pooled HTTP connections. Called on every exit path.
func (r *Router) CloseIdle() {
	r.httpClient.CloseIdleConnections()
}
