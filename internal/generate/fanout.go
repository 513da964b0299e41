package generate

import (
	"context"
	"fmt"

	"github.com/craftwell/gamesmith/internal/wizard"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface check.
var _ wizard.Generator = (*FanOut)(nil)

// FanOut spreads one variant batch across several underlying generators in
// parallel and reassembles the results in request order. The batch stays
// atomic: the first source failure cancels the derived context and the whole
// call fails, so the controller appends either all count variants or none.
type FanOut struct {
	sources []wizard.Generator
}

// NewFanOut creates a FanOut over the given sources. At least one source is
// required.
func NewFanOut(sources ...wizard.Generator) *FanOut {
	return &FanOut{sources: sources}
}

// Generate splits count across the sources round-robin and runs the shares
// concurrently.
func (f *FanOut) Generate(ctx context.Context, stepType wizard.StepType, gctx *wizard.GenContext, count int, instruction string) ([]wizard.Content, error) {
	if len(f.sources) == 0 {
		return nil, fmt.Errorf("generate: fan-out has no sources")
	}
	if count <= 0 {
		return nil, fmt.Errorf("generate: fan-out: count must be positive, got %d", count)
	}

	// Share i gets count/len plus one unit of the remainder.
	shares := make([]int, len(f.sources))
	for i := 0; i < count; i++ {
		shares[i%len(shares)]++
	}

	results := make([][]wizard.Content, len(f.sources))
	g, gctx2 := errgroup.WithContext(ctx)

	for i, src := range f.sources {
		if shares[i] == 0 {
			continue
		}
		g.Go(func() error {
			contents, err := src.Generate(gctx2, stepType, gctx, shares[i], instruction)
			if err != nil {
				return fmt.Errorf("generate: fan-out source %d: %w", i, err)
			}
			if len(contents) != shares[i] {
				return fmt.Errorf("generate: fan-out source %d returned %d variants, want %d",
					i, len(contents), shares[i])
			}
			results[i] = contents
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]wizard.Content, 0, count)
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
