package mcptools

import (
	"encoding/base64"
	"testing"

	"github.com/craftwell/gamesmith/internal/assemble"
	"github.com/craftwell/gamesmith/internal/generate"
	"github.com/craftwell/gamesmith/internal/upload"
	"github.com/craftwell/gamesmith/internal/wizard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestService wires a real controller with the local generator, a file
// assembler, and an upload handler, all rooted in temp dirs.
func newTestService(t *testing.T) *WizardService {
	t.Helper()

	catalog, err := wizard.NewCatalog()
	require.NoError(t, err)

	ctrl := wizard.NewController(wizard.Options{
		Catalog:   catalog,
		Generator: generate.NewLocalRegistry(),
		Assembler: assemble.NewFileAssembler(t.TempDir()),
		Uploader:  upload.NewHandler(t.TempDir()),
	})
	t.Cleanup(ctrl.Close)

	return NewWizardService(ctrl)
}

func TestWizardService_FullSession(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, started, err := svc.StartSession(ctx, nil, StartSessionInput{
		Category:     "arcade",
		Steps:        []string{"character", "mechanics"},
		InitialBatch: -1,
	})
	require.NoError(t, err)
	assert.Equal(t, "step-active", started.State)
	assert.Equal(t, 2, started.TotalSteps)
	assert.Equal(t, "character", started.StepType)
	assert.False(t, started.AwaitingSelection)

	sid := started.SessionID

	// Step 1: generate and select.
	_, p, err := svc.GetProgress(ctx, nil, GetProgressInput{SessionID: sid})
	require.NoError(t, err)
	stepID := mustStepID(t, svc, sid)

	_, batch, err := svc.GenerateVariants(ctx, nil, GenerateVariantsInput{
		SessionID: sid,
		StepID:    stepID,
		Count:     2,
	})
	require.NoError(t, err)
	require.Len(t, batch.Variants, 2)
	assert.Equal(t, "generated", batch.Variants[0].Provenance)
	assert.NotEmpty(t, batch.Variants[0].Preview)

	_, p, err = svc.SelectVariant(ctx, nil, SelectVariantInput{
		SessionID: sid,
		StepID:    stepID,
		VariantID: batch.Variants[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, p.CurrentStep)
	assert.Equal(t, "mechanics", p.StepType)
	assert.Equal(t, []string{stepID}, p.CompletedSteps)

	// Step 2: same dance.
	stepID = mustStepID(t, svc, sid)
	_, batch, err = svc.GenerateVariants(ctx, nil, GenerateVariantsInput{
		SessionID: sid,
		StepID:    stepID,
		Count:     1,
	})
	require.NoError(t, err)
	_, p, err = svc.SelectVariant(ctx, nil, SelectVariantInput{
		SessionID: sid,
		StepID:    stepID,
		VariantID: batch.Variants[0].ID,
	})
	require.NoError(t, err)
	assert.Len(t, p.CompletedSteps, 2)

	// The final selection already kicked off assembly; complete_session waits
	// for it. Real files, never a placeholder here.
	_, done, err := svc.CompleteSession(ctx, nil, CompleteSessionInput{SessionID: sid})
	require.NoError(t, err)
	assert.False(t, done.Placeholder)
	assert.NotEmpty(t, done.ArtifactID)
	require.Len(t, done.Files, 4)
	for _, f := range done.Files {
		assert.True(t, f.Written)
	}

	// Complete is idempotent through the tool surface too.
	_, again, err := svc.CompleteSession(ctx, nil, CompleteSessionInput{SessionID: sid})
	require.NoError(t, err)
	assert.Equal(t, done.ArtifactID, again.ArtifactID)
}

func TestWizardService_UploadVariant(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, started, err := svc.StartSession(ctx, nil, StartSessionInput{InitialBatch: -1})
	require.NoError(t, err)
	stepID := mustStepID(t, svc, started.SessionID)

	payload := []byte("a knight made of teacups")
	_, out, err := svc.UploadVariant(ctx, nil, UploadVariantInput{
		SessionID: started.SessionID,
		StepID:    stepID,
		Data:      base64.StdEncoding.EncodeToString(payload),
		MediaType: "text/plain",
		Size:      int64(len(payload)),
	})
	require.NoError(t, err)
	assert.Equal(t, "uploaded", out.Variant.Provenance)
	assert.Contains(t, out.Variant.Preview, "teacups")

	_, bad, err := svc.UploadVariant(ctx, nil, UploadVariantInput{
		SessionID: started.SessionID,
		StepID:    stepID,
		Data:      "!!! not base64 !!!",
		MediaType: "text/plain",
		Size:      3,
	})
	require.Error(t, err)
	assert.Empty(t, bad.Variant.ID)
}

func TestWizardService_PauseResumeSkipCancel(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, started, err := svc.StartSession(ctx, nil, StartSessionInput{InitialBatch: -1})
	require.NoError(t, err)
	sid := started.SessionID

	_, p, err := svc.PauseSession(ctx, nil, PauseSessionInput{SessionID: sid, Reason: "lunch"})
	require.NoError(t, err)
	assert.Equal(t, "paused", p.State)

	_, p, err = svc.ResumeSession(ctx, nil, ResumeSessionInput{SessionID: sid})
	require.NoError(t, err)
	assert.Equal(t, "step-active", p.State)

	// The arcade character step is required, so skipping it fails.
	_, _, err = svc.SkipStep(ctx, nil, SkipStepInput{SessionID: sid})
	require.Error(t, err)

	_, p, err = svc.CancelSession(ctx, nil, CancelSessionInput{SessionID: sid, Reason: "done testing"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", p.State)
}

func TestWizardService_ListSessions(t *testing.T) {
	svc := newTestService(t)
	ctx := t.Context()

	_, a, err := svc.StartSession(ctx, nil, StartSessionInput{InitialBatch: -1})
	require.NoError(t, err)
	_, b, err := svc.StartSession(ctx, nil, StartSessionInput{Category: "puzzle", InitialBatch: -1})
	require.NoError(t, err)

	_, out, err := svc.ListSessions(ctx, nil, ListSessionsInput{})
	require.NoError(t, err)
	require.Len(t, out.Sessions, 2)

	ids := []string{out.Sessions[0].SessionID, out.Sessions[1].SessionID}
	assert.Contains(t, ids, a.SessionID)
	assert.Contains(t, ids, b.SessionID)
}

// mustStepID reads the current step's ID from a fresh progress snapshot.
func mustStepID(t *testing.T, svc *WizardService, sessionID string) string {
	t.Helper()
	p, err := svc.ctrl.GetProgress(sessionID)
	require.NoError(t, err)
	require.NotEmpty(t, p.StepID, "session %s state %s has no current step", sessionID, p.State)
	return p.StepID
}
