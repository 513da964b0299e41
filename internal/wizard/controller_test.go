package wizard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// genFunc adapts a function to the Generator interface.
type genFunc func(ctx context.Context, stepType StepType, gctx *GenContext, count int, instruction string) ([]Content, error)

func (f genFunc) Generate(ctx context.Context, stepType StepType, gctx *GenContext, count int, instruction string) ([]Content, error) {
	return f(ctx, stepType, gctx, count, instruction)
}

// contentFor builds a minimal valid payload for the given step type.
func contentFor(stepType StepType, i int) Content {
	c := Content{Type: stepType}
	switch stepType {
	case StepCharacter:
		c.Character = &CharacterContent{Name: fmt.Sprintf("hero-%d", i), Description: "a test hero"}
	case StepMechanics:
		c.Mechanics = &MechanicsContent{CoreLoop: fmt.Sprintf("loop-%d", i), Controls: "arrows"}
	case StepLevel:
		c.Level = &LevelContent{Theme: fmt.Sprintf("theme-%d", i), Layout: "flat", Goal: "exit"}
	case StepGraphics:
		c.Graphics = &GraphicsContent{ArtStyle: fmt.Sprintf("style-%d", i)}
	case StepSound:
		c.Sound = &SoundContent{MusicStyle: fmt.Sprintf("music-%d", i)}
	case StepUI:
		c.UI = &UIContent{Layout: fmt.Sprintf("layout-%d", i)}
	}
	return c
}

// countingGen returns count valid contents for whatever step type is asked.
func countingGen() Generator {
	return genFunc(func(_ context.Context, stepType StepType, _ *GenContext, count int, _ string) ([]Content, error) {
		out := make([]Content, count)
		for i := range out {
			out[i] = contentFor(stepType, i)
		}
		return out, nil
	})
}

func newTestController(t *testing.T, gen Generator) *Controller {
	t.Helper()
	catalog, err := NewCatalog()
	require.NoError(t, err)

	c := NewController(Options{
		Catalog:   catalog,
		Generator: gen,
	})
	t.Cleanup(c.Close)
	return c
}

// startTwoStepSession starts a [character, mechanics] session with the
// automatic initial batch disabled so variant counts stay deterministic.
func startTwoStepSession(t *testing.T, c *Controller) Progress {
	t.Helper()
	p, err := c.Start(context.Background(), SubjectSpec{
		Category:     "arcade",
		Include:      []StepType{StepCharacter, StepMechanics},
		InitialBatch: -1,
	})
	require.NoError(t, err)
	require.Equal(t, 2, p.TotalSteps)
	return p
}

// stepIDAt fetches a step ID by index through the actor.
func stepIDAt(t *testing.T, c *Controller, sessionID string, idx int) string {
	t.Helper()
	a, err := c.store.get(sessionID)
	require.NoError(t, err)
	var id string
	require.NoError(t, a.do(func() { id = a.s.Steps[idx].ID }))
	return id
}

func TestStart_UnknownCategoryFallsBack(t *testing.T) {
	c := newTestController(t, countingGen())

	p, err := c.Start(context.Background(), SubjectSpec{Category: "roguelike-deckbuilder", InitialBatch: -1})
	require.NoError(t, err)
	assert.Equal(t, StateStepActive, p.State)
	assert.Equal(t, 0, p.CurrentStep)
	assert.True(t, p.AwaitingSelection)

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	var category string
	require.NoError(t, a.do(func() { category = a.s.Category }))
	assert.Equal(t, DefaultCategory, category)
}

func TestStart_TotalStepsInvariant(t *testing.T) {
	c := newTestController(t, countingGen())

	p, err := c.Start(context.Background(), SubjectSpec{Category: "shooter", InitialBatch: -1})
	require.NoError(t, err)

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		assert.Equal(t, len(a.s.Steps), a.s.TotalSteps)
	}))
	assert.Equal(t, p.TotalSteps, 6)
}

func TestStart_EmptyIncludeFilterRejected(t *testing.T) {
	c := newTestController(t, countingGen())

	// The puzzle template has no character step.
	_, err := c.Start(context.Background(), SubjectSpec{
		Category:     "puzzle",
		Include:      []StepType{StepCharacter},
		InitialBatch: -1,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestStart_InitialBatchArrives(t *testing.T) {
	c := newTestController(t, countingGen())

	p, err := c.Start(context.Background(), SubjectSpec{Category: "arcade"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		prog, err := c.GetProgress(p.SessionID)
		return err == nil && prog.VariantCount == DefaultInitialBatch
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGenerateVariants_AppendsExactly(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	batch1, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 5, "")
	require.NoError(t, err)
	require.Len(t, batch1, 5)

	batch2, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 3, "")
	require.NoError(t, err)
	require.Len(t, batch2, 3)

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 8, prog.VariantCount)

	// Every variant ID is unique across both batches.
	seen := make(map[string]bool)
	for _, v := range append(batch1, batch2...) {
		assert.False(t, seen[v.ID], "duplicate variant id %s", v.ID)
		seen[v.ID] = true
		assert.Equal(t, ProvenanceGenerated, v.Provenance)
	}
}

func TestGenerateVariants_CustomInstructionProvenance(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 2, "make it a grumpy robot")
	require.NoError(t, err)
	for _, v := range batch {
		assert.Equal(t, ProvenanceCustomPrompt, v.Provenance)
		assert.Equal(t, "make it a grumpy robot", v.Metadata.Instruction)
		assert.True(t, v.Metadata.Custom)
	}
}

func TestGenerateVariants_InputValidation(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	_, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 0, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = c.GenerateVariants(context.Background(), p.SessionID, stepID, MaxBatchSize+1, "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = c.GenerateVariants(context.Background(), p.SessionID, stepID, 2, "   ")
	require.ErrorIs(t, err, ErrValidation)

	_, err = c.GenerateVariants(context.Background(), "nope", stepID, 2, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGenerateVariants_ProviderFailureAtomic(t *testing.T) {
	fail := errors.New("model overloaded")
	c := newTestController(t, genFunc(func(context.Context, StepType, *GenContext, int, string) ([]Content, error) {
		return nil, fail
	}))
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	_, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 4, "")
	require.ErrorIs(t, err, ErrProvider)
	assert.Contains(t, err.Error(), "model overloaded")

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.VariantCount, "failed batch must append nothing")
}

func TestGenerateVariants_ShortBatchRejected(t *testing.T) {
	c := newTestController(t, genFunc(func(_ context.Context, stepType StepType, _ *GenContext, count int, _ string) ([]Content, error) {
		return []Content{contentFor(stepType, 0)}, nil // always one, regardless of count
	}))
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	_, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 3, "")
	require.ErrorIs(t, err, ErrProvider)

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 0, prog.VariantCount)
}

func TestSelectVariant_UnknownVariantLeavesStateUnchanged(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	_, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 3, "")
	require.NoError(t, err)

	before, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)

	err = c.SelectVariant(p.SessionID, stepID, "no-such-variant", "")
	require.ErrorIs(t, err, ErrValidation)

	after, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSelectVariant_CompletesAndAdvances(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	stepID := stepIDAt(t, c, p.SessionID, 0)

	batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 3, "")
	require.NoError(t, err)

	require.NoError(t, c.SelectVariant(p.SessionID, stepID, batch[1].ID, ""))

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		step := a.s.Steps[0]
		assert.True(t, step.Completed)
		assert.Equal(t, batch[1].ID, step.SelectedID)
		assert.Equal(t, batch[1].ID, a.s.FinalChoices[step.ID])
		assert.Equal(t, 1, a.s.CurrentStep)
	}))

	// A second selection on the completed step is rejected.
	err = c.SelectVariant(p.SessionID, stepID, batch[0].ID, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestScenario_TwoStepSessionToArtifact(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)

	step0 := stepIDAt(t, c, p.SessionID, 0)
	batch0, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 5, "")
	require.NoError(t, err)
	require.Len(t, batch0, 5)
	require.NoError(t, c.SelectVariant(p.SessionID, step0, batch0[0].ID, ""))

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, prog.CurrentStep)
	assert.Equal(t, StateStepActive, prog.State)

	step1 := stepIDAt(t, c, p.SessionID, 1)
	batch1, err := c.GenerateVariants(context.Background(), p.SessionID, step1, 5, "")
	require.NoError(t, err)
	require.NoError(t, c.SelectVariant(p.SessionID, step1, batch1[2].ID, ""))

	// The final selection triggers assembly on its own; Complete waits for
	// (or returns) the same artifact.
	artifact, err := c.Complete(p.SessionID)
	require.NoError(t, err)
	require.NotNil(t, artifact)

	// The assembled context is exactly the two selections, in step order.
	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		gctx := BuildContext(a.s)
		require.Len(t, gctx.Entries, 2)
		assert.Equal(t, StepCharacter, gctx.Entries[0].Type)
		assert.Equal(t, batch0[0].Content, gctx.Entries[0].Content)
		assert.Equal(t, StepMechanics, gctx.Entries[1].Type)
		assert.Equal(t, batch1[2].Content, gctx.Entries[1].Content)
		assert.Equal(t, StateCompleted, a.s.State)
	}))
}

func TestPauseResume_PreservesProgressAndVariants(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	step0 := stepIDAt(t, c, p.SessionID, 0)

	batch, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 4, "")
	require.NoError(t, err)
	require.NoError(t, c.SelectVariant(p.SessionID, step0, batch[0].ID, ""))

	require.NoError(t, c.Pause(p.SessionID, "coffee"))

	paused, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, paused.State)

	// No mutation while paused.
	step1 := stepIDAt(t, c, p.SessionID, 1)
	_, err = c.GenerateVariants(context.Background(), p.SessionID, step1, 2, "")
	require.ErrorIs(t, err, ErrInvalidState)
	err = c.SelectVariant(p.SessionID, step1, batch[0].ID, "")
	require.ErrorIs(t, err, ErrInvalidState)

	// Double pause and resume of an active session are invalid.
	require.ErrorIs(t, c.Pause(p.SessionID, ""), ErrInvalidState)
	require.NoError(t, c.Resume(p.SessionID))
	require.ErrorIs(t, c.Resume(p.SessionID), ErrInvalidState)

	resumed, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, paused.CurrentStep, resumed.CurrentStep)

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		assert.Len(t, a.s.Steps[0].Variants, 4, "variant history survives pause/resume")
	}))
}

func TestInFlightBatchAppendsWhilePaused(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	c := newTestController(t, genFunc(func(_ context.Context, stepType StepType, _ *GenContext, count int, _ string) ([]Content, error) {
		started <- struct{}{}
		<-release
		out := make([]Content, count)
		for i := range out {
			out[i] = contentFor(stepType, i)
		}
		return out, nil
	}))
	p := startTwoStepSession(t, c)
	step0 := stepIDAt(t, c, p.SessionID, 0)

	type result struct {
		variants []Variant
		err      error
	}
	done := make(chan result, 1)
	go func() {
		vs, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 2, "")
		done <- result{vs, err}
	}()

	// Pause only once the provider call is in flight, then release it. The
	// in-flight batch must still land.
	<-started
	require.NoError(t, c.Pause(p.SessionID, "testing"))
	close(release)

	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.variants, 2)

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StatePaused, prog.State)
	assert.Equal(t, 2, prog.VariantCount)
}

func TestStaleBatch_DiscardedAfterStepAdvance(t *testing.T) {
	var mu sync.Mutex
	blocking := false
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	c := newTestController(t, genFunc(func(_ context.Context, stepType StepType, _ *GenContext, count int, _ string) ([]Content, error) {
		mu.Lock()
		shouldBlock := blocking
		mu.Unlock()
		if shouldBlock {
			started <- struct{}{}
			<-release
		}
		out := make([]Content, count)
		for i := range out {
			out[i] = contentFor(stepType, i)
		}
		return out, nil
	}))
	p := startTwoStepSession(t, c)
	step0 := stepIDAt(t, c, p.SessionID, 0)

	// Seed the step with a fast batch so there is something to select.
	seed, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 1, "")
	require.NoError(t, err)

	// Fire a slow batch, then win the race with a selection.
	mu.Lock()
	blocking = true
	mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 3, "")
		done <- err
	}()

	// Wait until the slow request has passed validation and is in flight.
	<-started
	require.NoError(t, c.SelectVariant(p.SessionID, step0, seed[0].ID, ""))
	close(release)

	err = <-done
	require.ErrorIs(t, err, ErrInvalidState, "stale batch must be discarded, not appended")

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		assert.Len(t, a.s.Steps[0].Variants, 1, "discarded batch must not append")
		assert.NotEmpty(t, a.s.Diagnostics)
	}))
}

func TestConcurrentSelect_ExactlyOneWins(t *testing.T) {
	c := newTestController(t, countingGen())

	for round := 0; round < 20; round++ {
		p := startTwoStepSession(t, c)
		step0 := stepIDAt(t, c, p.SessionID, 0)

		batch, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 2, "")
		require.NoError(t, err)

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = c.SelectVariant(p.SessionID, step0, batch[i].ID, "")
			}(i)
		}
		wg.Wait()

		if errs[0] == nil {
			require.ErrorIs(t, errs[1], ErrInvalidState)
		} else {
			require.ErrorIs(t, errs[0], ErrInvalidState)
			require.NoError(t, errs[1])
		}

		a, err := c.store.get(p.SessionID)
		require.NoError(t, err)
		require.NoError(t, a.do(func() {
			step := a.s.Steps[0]
			require.True(t, step.Completed)
			assert.Equal(t, a.s.FinalChoices[step.ID], step.SelectedID)
		}))
	}
}

func TestSkip_RequiresSkippableStep(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c) // character + mechanics, both required

	err := c.Skip(context.Background(), p.SessionID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestSkip_SelectsFirstExistingVariant(t *testing.T) {
	c := newTestController(t, countingGen())
	p, err := c.Start(context.Background(), SubjectSpec{
		Category:     "arcade",
		Include:      []StepType{StepCharacter, StepGraphics},
		InitialBatch: -1,
	})
	require.NoError(t, err)

	step0 := stepIDAt(t, c, p.SessionID, 0)
	batch, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 2, "")
	require.NoError(t, err)
	require.NoError(t, c.SelectVariant(p.SessionID, step0, batch[0].ID, ""))

	// Graphics step is skippable; give it variants, then skip.
	step1 := stepIDAt(t, c, p.SessionID, 1)
	gbatch, err := c.GenerateVariants(context.Background(), p.SessionID, step1, 3, "")
	require.NoError(t, err)

	require.NoError(t, c.Skip(context.Background(), p.SessionID))

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		step := a.s.Steps[1]
		assert.True(t, step.Completed)
		assert.Equal(t, gbatch[0].ID, step.SelectedID, "skip picks the first-generated variant")
	}))

	// Skipping the final step finishes the session like a selection does.
	require.Eventually(t, func() bool {
		prog, err := c.GetProgress(p.SessionID)
		return err == nil && prog.State == StateCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSkip_GeneratesDefaultWhenStepEmpty(t *testing.T) {
	c := newTestController(t, countingGen())
	p, err := c.Start(context.Background(), SubjectSpec{
		Category:     "arcade",
		Include:      []StepType{StepCharacter, StepSound},
		InitialBatch: -1,
	})
	require.NoError(t, err)

	step0 := stepIDAt(t, c, p.SessionID, 0)
	batch, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 1, "")
	require.NoError(t, err)
	require.NoError(t, c.SelectVariant(p.SessionID, step0, batch[0].ID, ""))

	require.NoError(t, c.Skip(context.Background(), p.SessionID))

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		step := a.s.Steps[1]
		require.Len(t, step.Variants, 1)
		assert.True(t, step.Completed)
		assert.Equal(t, step.Variants[0].ID, step.SelectedID)
	}))
}

func TestComplete_BeforeRequiredStepsDone(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)

	_, err := c.Complete(p.SessionID)
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestComplete_NoAssemblerYieldsPlaceholder(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)

	for i := 0; i < 2; i++ {
		stepID := stepIDAt(t, c, p.SessionID, i)
		batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 1, "")
		require.NoError(t, err)
		require.NoError(t, c.SelectVariant(p.SessionID, stepID, batch[0].ID, ""))
	}

	artifact, err := c.Complete(p.SessionID)
	require.NoError(t, err)
	assert.True(t, artifact.Placeholder)
	require.NotEmpty(t, artifact.Files)
	assert.Equal(t, "README.md", artifact.Files[0].Path)
}

type failingAssembler struct{}

func (failingAssembler) Assemble(*GenContext, string) (*Artifact, error) {
	return nil, errors.New("disk full")
}

func TestComplete_AssemblyFailureDegradesToPlaceholder(t *testing.T) {
	catalog, err := NewCatalog()
	require.NoError(t, err)
	c := NewController(Options{
		Catalog:   catalog,
		Generator: countingGen(),
		Assembler: failingAssembler{},
	})
	t.Cleanup(c.Close)

	p := startTwoStepSession(t, c)
	for i := 0; i < 2; i++ {
		stepID := stepIDAt(t, c, p.SessionID, i)
		batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 1, "")
		require.NoError(t, err)
		require.NoError(t, c.SelectVariant(p.SessionID, stepID, batch[0].ID, ""))
	}

	artifact, err := c.Complete(p.SessionID)
	require.NoError(t, err, "assembly failure must never surface from Complete")
	assert.True(t, artifact.Placeholder)
	assert.Contains(t, artifact.FailureNote, "disk full")

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		require.NotEmpty(t, a.s.Diagnostics)
		assert.Contains(t, a.s.Diagnostics[0], "assembly failed")
	}))
}

func TestComplete_Idempotent(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)

	for i := 0; i < 2; i++ {
		stepID := stepIDAt(t, c, p.SessionID, i)
		batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 1, "")
		require.NoError(t, err)
		require.NoError(t, c.SelectVariant(p.SessionID, stepID, batch[0].ID, ""))
	}

	first, err := c.Complete(p.SessionID)
	require.NoError(t, err)
	second, err := c.Complete(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSelectVariant_FinalSelectionTriggersAssembly(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)

	for i := 0; i < 2; i++ {
		stepID := stepIDAt(t, c, p.SessionID, i)
		batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 1, "")
		require.NoError(t, err)
		require.NoError(t, c.SelectVariant(p.SessionID, stepID, batch[0].ID, ""))
	}

	// No explicit Complete call: the last selection finishes the session.
	require.Eventually(t, func() bool {
		prog, err := c.GetProgress(p.SessionID)
		return err == nil && prog.State == StateCompleted
	}, 2*time.Second, 10*time.Millisecond)

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	var stored *Artifact
	require.NoError(t, a.do(func() { stored = a.s.Artifact }))
	require.NotNil(t, stored)

	// An explicit Complete afterwards stays harmless and returns the same
	// artifact.
	artifact, err := c.Complete(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, artifact.ID)
}

// slowAssembler blocks until released so tests can observe the Assembling
// state.
type slowAssembler struct {
	entered chan struct{}
	release chan struct{}
}

func (s *slowAssembler) Assemble(_ *GenContext, sessionID string) (*Artifact, error) {
	s.entered <- struct{}{}
	<-s.release
	return &Artifact{ID: NewID(), SessionID: sessionID, Archetype: "arcade", CreatedAt: time.Now()}, nil
}

func TestComplete_WaitsForInFlightAssembly(t *testing.T) {
	asm := &slowAssembler{entered: make(chan struct{}, 1), release: make(chan struct{})}
	catalog, err := NewCatalog()
	require.NoError(t, err)
	c := NewController(Options{
		Catalog:   catalog,
		Generator: countingGen(),
		Assembler: asm,
	})
	t.Cleanup(c.Close)

	p := startTwoStepSession(t, c)
	for i := 0; i < 2; i++ {
		stepID := stepIDAt(t, c, p.SessionID, i)
		batch, err := c.GenerateVariants(context.Background(), p.SessionID, stepID, 1, "")
		require.NoError(t, err)
		require.NoError(t, c.SelectVariant(p.SessionID, stepID, batch[0].ID, ""))
	}

	// The final selection started assembly; it is now blocked inside the
	// assembler.
	<-asm.entered

	done := make(chan *Artifact, 1)
	go func() {
		artifact, err := c.Complete(p.SessionID)
		assert.NoError(t, err)
		done <- artifact
	}()

	select {
	case <-done:
		t.Fatal("Complete returned before the in-flight assembly finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(asm.release)
	artifact := <-done
	require.NotNil(t, artifact)
	assert.False(t, artifact.Placeholder)

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, prog.State)
}

func TestSkip_PauseDuringDefaultGenerationLeavesStepOpen(t *testing.T) {
	var mu sync.Mutex
	blocking := false
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	c := newTestController(t, genFunc(func(_ context.Context, stepType StepType, _ *GenContext, count int, _ string) ([]Content, error) {
		mu.Lock()
		shouldBlock := blocking
		mu.Unlock()
		if shouldBlock {
			started <- struct{}{}
			<-release
		}
		out := make([]Content, count)
		for i := range out {
			out[i] = contentFor(stepType, i)
		}
		return out, nil
	}))
	p, err := c.Start(context.Background(), SubjectSpec{
		Category:     "arcade",
		Include:      []StepType{StepCharacter, StepSound},
		InitialBatch: -1,
	})
	require.NoError(t, err)

	step0 := stepIDAt(t, c, p.SessionID, 0)
	batch, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 1, "")
	require.NoError(t, err)
	require.NoError(t, c.SelectVariant(p.SessionID, step0, batch[0].ID, ""))

	mu.Lock()
	blocking = true
	mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- c.Skip(context.Background(), p.SessionID) }()

	// Pause once the default generation is in flight, then release it. The
	// batch still lands, but the step must not complete while paused.
	<-started
	require.NoError(t, c.Pause(p.SessionID, "stepping away"))
	close(release)

	require.ErrorIs(t, <-done, ErrInvalidState)

	a, err := c.store.get(p.SessionID)
	require.NoError(t, err)
	require.NoError(t, a.do(func() {
		step := a.s.Steps[1]
		require.Len(t, step.Variants, 1, "in-flight default batch still lands")
		assert.False(t, step.Completed)
		assert.Empty(t, step.SelectedID)
		assert.Equal(t, StatePaused, a.s.State)
	}))

	// After resume the skip picks the variant that already landed.
	require.NoError(t, c.Resume(p.SessionID))
	require.NoError(t, c.Skip(context.Background(), p.SessionID))
	require.NoError(t, a.do(func() {
		step := a.s.Steps[1]
		assert.True(t, step.Completed)
		assert.Equal(t, step.Variants[0].ID, step.SelectedID)
	}))
}

func TestCancel_TerminalAndRejectsFurtherWork(t *testing.T) {
	c := newTestController(t, countingGen())
	p := startTwoStepSession(t, c)
	step0 := stepIDAt(t, c, p.SessionID, 0)

	require.NoError(t, c.Cancel(p.SessionID, "changed my mind"))
	require.ErrorIs(t, c.Cancel(p.SessionID, "again"), ErrInvalidState)

	_, err := c.GenerateVariants(context.Background(), p.SessionID, step0, 1, "")
	require.ErrorIs(t, err, ErrInvalidState)

	prog, err := c.GetProgress(p.SessionID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, prog.State)
}
