package mcptools

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/craftwell/gamesmith/internal/wizard"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// WizardService handles MCP tool calls for the wizard server mode. It wraps a
// wizard.Controller, translating between tool payloads and controller types.
type WizardService struct {
	ctrl *wizard.Controller
}

// NewWizardService creates a WizardService around the given controller.
func NewWizardService(ctrl *wizard.Controller) *WizardService {
	return &WizardService{ctrl: ctrl}
}

// progressOutput converts a controller snapshot to the tool output shape.
func progressOutput(p wizard.Progress) SessionProgressOutput {
	return SessionProgressOutput{
		SessionID:         p.SessionID,
		State:             string(p.State),
		CurrentStep:       p.CurrentStep,
		TotalSteps:        p.TotalSteps,
		StepID:            p.StepID,
		StepName:          p.StepName,
		StepDescription:   p.StepDescription,
		StepType:          string(p.StepType),
		VariantCount:      p.VariantCount,
		AwaitingSelection: p.AwaitingSelection,
		CompletedSteps:    p.CompletedSteps,
	}
}

// variantSummary converts a variant to its client-facing summary.
func variantSummary(v wizard.Variant) VariantSummary {
	return VariantSummary{
		ID:         v.ID,
		Provenance: string(v.Provenance),
		Preview:    v.Preview,
	}
}

// StartSession creates a new guided session and returns its initial snapshot.
func (s *WizardService) StartSession(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StartSessionInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	spec := wizard.SubjectSpec{
		Category:     input.Category,
		OwnerID:      input.OwnerID,
		InitialBatch: input.InitialBatch,
	}
	for _, st := range input.Steps {
		spec.Include = append(spec.Include, wizard.StepType(st))
	}

	p, err := s.ctrl.Start(ctx, spec)
	if err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return nil, progressOutput(p), nil
}

// GetProgress returns a read-only snapshot of a session.
func (s *WizardService) GetProgress(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input GetProgressInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	p, err := s.ctrl.GetProgress(input.SessionID)
	if err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return nil, progressOutput(p), nil
}

// GenerateVariants produces a new variant batch for the current step.
func (s *WizardService) GenerateVariants(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GenerateVariantsInput,
) (*mcp.CallToolResult, GenerateVariantsOutput, error) {
	count := input.Count
	if count == 0 {
		count = wizard.DefaultInitialBatch
	}

	variants, err := s.ctrl.GenerateVariants(ctx, input.SessionID, input.StepID, count, input.Instruction)
	if err != nil {
		return nil, GenerateVariantsOutput{}, err
	}

	out := GenerateVariantsOutput{StepID: input.StepID}
	for _, v := range variants {
		out.Variants = append(out.Variants, variantSummary(v))
	}
	return nil, out, nil
}

// SelectVariant records the user's choice and advances the session.
func (s *WizardService) SelectVariant(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input SelectVariantInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	if err := s.ctrl.SelectVariant(input.SessionID, input.StepID, input.VariantID, input.Instruction); err != nil {
		return nil, SessionProgressOutput{}, err
	}
	p, err := s.ctrl.GetProgress(input.SessionID)
	if err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return nil, progressOutput(p), nil
}

// UploadVariant stores client-supplied content as a variant on the current
// step.
func (s *WizardService) UploadVariant(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input UploadVariantInput,
) (*mcp.CallToolResult, UploadVariantOutput, error) {
	data, err := base64.StdEncoding.DecodeString(input.Data)
	if err != nil {
		return nil, UploadVariantOutput{}, fmt.Errorf("decode payload: %w", err)
	}

	v, err := s.ctrl.UploadVariant(input.SessionID, input.StepID, data, input.MediaType, input.Size)
	if err != nil {
		return nil, UploadVariantOutput{}, err
	}
	return nil, UploadVariantOutput{Variant: variantSummary(*v)}, nil
}

// PauseSession deactivates a session, preserving all of its state.
func (s *WizardService) PauseSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input PauseSessionInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	if err := s.ctrl.Pause(input.SessionID, input.Reason); err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return s.progressResult(input.SessionID)
}

// ResumeSession reactivates a paused session.
func (s *WizardService) ResumeSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input ResumeSessionInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	if err := s.ctrl.Resume(input.SessionID); err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return s.progressResult(input.SessionID)
}

// SkipStep completes the current step with its default variant.
func (s *WizardService) SkipStep(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SkipStepInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	if err := s.ctrl.Skip(ctx, input.SessionID); err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return s.progressResult(input.SessionID)
}

// CancelSession terminates a session.
func (s *WizardService) CancelSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CancelSessionInput,
) (*mcp.CallToolResult, SessionProgressOutput, error) {
	if err := s.ctrl.Cancel(input.SessionID, input.Reason); err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return s.progressResult(input.SessionID)
}

// CompleteSession assembles the final deliverable.
func (s *WizardService) CompleteSession(
	_ context.Context,
	_ *mcp.CallToolRequest,
	input CompleteSessionInput,
) (*mcp.CallToolResult, CompleteSessionOutput, error) {
	artifact, err := s.ctrl.Complete(input.SessionID)
	if err != nil {
		return nil, CompleteSessionOutput{}, err
	}

	out := CompleteSessionOutput{
		ArtifactID:  artifact.ID,
		Archetype:   artifact.Archetype,
		Placeholder: artifact.Placeholder,
		FailureNote: artifact.FailureNote,
	}
	for _, f := range artifact.Files {
		out.Files = append(out.Files, ArtifactFileSummary{
			Path:    f.Path,
			Size:    f.Size,
			Written: f.Written,
		})
	}
	return nil, out, nil
}

// ListSessions returns a snapshot of every live session.
func (s *WizardService) ListSessions(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListSessionsInput,
) (*mcp.CallToolResult, ListSessionsOutput, error) {
	var out ListSessionsOutput
	for _, id := range s.ctrl.Store().IDs() {
		p, err := s.ctrl.GetProgress(id)
		if err != nil {
			// Evicted between listing and snapshot; skip.
			continue
		}
		out.Sessions = append(out.Sessions, progressOutput(p))
	}
	return nil, out, nil
}

// progressResult is the shared tail of mutation tools that answer with a
// fresh snapshot.
func (s *WizardService) progressResult(sessionID string) (*mcp.CallToolResult, SessionProgressOutput, error) {
	p, err := s.ctrl.GetProgress(sessionID)
	if err != nil {
		return nil, SessionProgressOutput{}, err
	}
	return nil, progressOutput(p), nil
}
