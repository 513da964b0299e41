package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/craftwell/gamesmith/internal/provider"
	"github.com/craftwell/gamesmith/internal/wizard"
)

// Produce adapts a wizard.Generator into the provider-side production
// callback, so the same generators that serve the controller directly can
// also back a standalone provider server.
func Produce(gen wizard.Generator) provider.ProduceFunc {
	return func(ctx context.Context, req provider.GenerateRequest) ([]provider.Candidate, error) {
		gctx := &wizard.GenContext{}
		for _, e := range req.Context {
			var c wizard.Content
			if err := json.Unmarshal(e.Payload, &c); err != nil {
				return nil, fmt.Errorf("generate: decode context entry %s: %w", e.StepType, err)
			}
			gctx.Entries = append(gctx.Entries, wizard.ContextEntry{
				Type:    wizard.StepType(e.StepType),
				Content: c,
			})
		}

		contents, err := gen.Generate(ctx, wizard.StepType(req.StepType), gctx, req.Count, req.Instruction)
		if err != nil {
			return nil, err
		}

		out := make([]provider.Candidate, 0, len(contents))
		for _, c := range contents {
			payload, err := json.Marshal(c)
			if err != nil {
				return nil, fmt.Errorf("generate: encode candidate: %w", err)
			}
			out = append(out, provider.Candidate{
				Payload: payload,
				Preview: c.Summary(),
			})
		}
		return out, nil
	}
}
