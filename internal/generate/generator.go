// Package generate provides the variant generators behind the wizard: a
// per-step-type registry, a deterministic local generator, a remote
// provider-backed generator, and a fan-out combinator for spreading batches
// across several sources.
package generate

import (
	"context"
	"fmt"
	"sync"

	"github.com/craftwell/gamesmith/internal/wizard"
)

// Compile-time interface check.
var _ wizard.Generator = (*Registry)(nil)

// Registry dispatches generation requests to the generator registered for
// each step type. It implements wizard.Generator.
type Registry struct {
	mu         sync.RWMutex
	generators map[wizard.StepType]wizard.Generator
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		generators: make(map[wizard.StepType]wizard.Generator),
	}
}

// NewLocalRegistry creates a Registry with a Local generator registered for
// every known step type.
func NewLocalRegistry() *Registry {
	r := NewRegistry()
	local := NewLocal()
	for _, t := range wizard.KnownStepTypes {
		r.Register(t, local)
	}
	return r
}

// Register associates a generator with a step type, replacing any previous
// registration.
func (r *Registry) Register(stepType wizard.StepType, gen wizard.Generator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[stepType] = gen
}

// Generate dispatches to the registered generator for stepType.
func (r *Registry) Generate(ctx context.Context, stepType wizard.StepType, gctx *wizard.GenContext, count int, instruction string) ([]wizard.Content, error) {
	r.mu.RLock()
	gen, ok := r.generators[stepType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("generate: no generator registered for step type %q", stepType)
	}
	return gen.Generate(ctx, stepType, gctx, count, instruction)
}
