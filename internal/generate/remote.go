package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/craftwell/gamesmith/internal/provider"
	"github.com/craftwell/gamesmith/internal/wizard"
)

// Compile-time interface check.
var _ wizard.Generator = (*Remote)(nil)

// Remote generates variants by calling a content provider over the wire. The
// batch is all or nothing: any transport failure, failed job, count mismatch,
// or undecodable candidate fails the whole call.
type Remote struct {
	client   provider.Client
	endpoint string
}

// NewRemote creates a Remote generator for the provider at endpoint.
func NewRemote(client provider.Client, endpoint string) *Remote {
	return &Remote{client: client, endpoint: endpoint}
}

// Generate sends one blocking generation request and decodes the candidates
// into content documents.
func (r *Remote) Generate(ctx context.Context, stepType wizard.StepType, gctx *wizard.GenContext, count int, instruction string) ([]wizard.Content, error) {
	req := provider.GenerateRequest{
		StepType:    string(stepType),
		Count:       count,
		Instruction: instruction,
	}
	for _, e := range gctx.Entries {
		payload, err := json.Marshal(e.Content)
		if err != nil {
			return nil, fmt.Errorf("generate: remote: marshal context entry %s: %w", e.Type, err)
		}
		req.Context = append(req.Context, provider.ContextEntry{
			StepType: string(e.Type),
			Payload:  payload,
		})
	}

	job, err := r.client.Generate(ctx, r.endpoint, req)
	if err != nil {
		return nil, fmt.Errorf("generate: remote %s: %w", r.endpoint, err)
	}
	if job.Status.State != provider.JobStateCompleted {
		return nil, fmt.Errorf("generate: remote %s: job %s ended %s: %s",
			r.endpoint, job.ID, job.Status.State, job.Status.Note)
	}
	if len(job.Candidates) != count {
		return nil, fmt.Errorf("generate: remote %s: job %s returned %d candidates, want %d",
			r.endpoint, job.ID, len(job.Candidates), count)
	}

	out := make([]wizard.Content, 0, count)
	for _, c := range job.Candidates {
		var content wizard.Content
		if err := json.Unmarshal(c.Payload, &content); err != nil {
			return nil, fmt.Errorf("generate: remote %s: decode candidate %s: %w", r.endpoint, c.ID, err)
		}
		if content.Type == "" {
			content.Type = stepType
		}
		out = append(out, content)
	}
	return out, nil
}
