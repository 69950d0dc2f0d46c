package llm

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"
)

type fakeProvider struct {
	name string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	return &Response{Content: "ok", Model: req.Model}, nil
}

func newTestRouter() *Router {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewRouter(logger, 5*time.Second)
}

func TestRouterResolve(t *testing.T) {
	r := newTestRouter()
	r.Register(&fakeProvider{name: "anthropic"})

	p, modelID, err := r.Resolve("anthropic/claude-sonnet-4-6")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("wrong provider: %s", p.Name())
	}
	if modelID != "claude-sonnet-4-6" {
		t.Errorf("wrong model ID: %s", modelID)
	}
}

func TestRouterResolveErrors(t *testing.T) {
	r := newTestRouter()
	r.Register(&fakeProvider{name: "openai"})

	for _, ref := range []string{"", "noslash", "unknown/model", "/model", "openai/"} {
		if _, _, err := r.Resolve(ref); err == nil {
			t.Errorf("Resolve(%q): expected error", ref)
		}
	}
}

func TestRouterCloseIdle(t *testing.T) {
	r := newTestRouter()
	// Must be safe with no requests made and callable more than once.
	r.CloseIdle()
	r.CloseIdle()
}
