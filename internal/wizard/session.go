package wizard

import (
	"context"
	"fmt"
	"time"
)

// sessionActor owns all mutation of one Session. Every operation is a closure
// executed on the actor goroutine, so concurrent controller calls for the
// same session are serialized by message passing rather than shared-memory
// locking. Provider calls run on worker goroutines and deliver their results
// back as commands, which is where the stale-batch rule is applied.
type sessionActor struct {
	s      *Session
	gen    Generator
	up     Uploader
	events *Broadcaster

	// onStepsDone fires when the final step completes, so the controller can
	// kick off assembly without the client calling Complete.
	onStepsDone func()

	// assemblyDone is non-nil while an assembly is in flight and is closed by
	// commitArtifact. Concurrent Complete calls wait on it.
	assemblyDone chan struct{}

	cmds chan func()
	done chan struct{}
}

// genResult is the outcome of one variant batch delivered to a waiting caller.
type genResult struct {
	variants []Variant
	err      error
}

func newSessionActor(s *Session, gen Generator, up Uploader, events *Broadcaster, onStepsDone func()) *sessionActor {
	a := &sessionActor{
		s:           s,
		gen:         gen,
		up:          up,
		events:      events,
		onStepsDone: onStepsDone,
		cmds:        make(chan func(), 16),
		done:        make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *sessionActor) run() {
	for {
		select {
		case cmd := <-a.cmds:
			cmd()
		case <-a.done:
			return
		}
	}
}

// stop terminates the actor loop. In-flight provider calls are not cancelled;
// their results are discarded on arrival because do() fails once done is
// closed.
func (a *sessionActor) stop() {
	select {
	case <-a.done:
	default:
		close(a.done)
	}
}

// do runs fn on the actor goroutine and blocks until it has executed. It
// fails with ErrNotFound when the session has been evicted.
func (a *sessionActor) do(fn func()) error {
	executed := make(chan struct{})
	wrapped := func() {
		fn()
		close(executed)
	}

	select {
	case a.cmds <- wrapped:
	case <-a.done:
		return notFoundf("session %s no longer exists", a.s.ID)
	}

	select {
	case <-executed:
		return nil
	case <-a.done:
		return notFoundf("session %s no longer exists", a.s.ID)
	}
}

func (a *sessionActor) publish(name string, payload map[string]any) {
	if a.events != nil {
		a.events.Publish(a.s.ID, name, payload)
	}
}

func (a *sessionActor) touch() {
	a.s.LastActivity = time.Now()
}

// ---------------------------------------------------------------------------
// Snapshots
// ---------------------------------------------------------------------------

// progressLocked builds a Progress snapshot. Must run on the actor goroutine.
func (a *sessionActor) progressLocked() Progress {
	s := a.s
	p := Progress{
		SessionID:   s.ID,
		State:       s.State,
		CurrentStep: s.CurrentStep,
		TotalSteps:  s.TotalSteps,
	}
	if step := s.currentStep(); step != nil {
		p.StepID = step.ID
		p.StepName = step.Name
		p.StepDescription = step.Description
		p.StepType = step.Type
		p.VariantCount = len(step.Variants)
		p.AwaitingSelection = s.State == StateStepActive && !step.Completed
	}
	for _, st := range s.Steps {
		if st.Completed {
			p.CompletedSteps = append(p.CompletedSteps, st.ID)
		}
	}
	return p
}

// vitals reports the fields the store's eviction sweep needs.
func (a *sessionActor) vitals() (state SessionState, lastActivity time.Time, err error) {
	err = a.do(func() {
		state = a.s.State
		lastActivity = a.s.LastActivity
	})
	return state, lastActivity, err
}

// copyVariants returns value copies safe to hand outside the actor.
func copyVariants(vs []*Variant) []Variant {
	out := make([]Variant, len(vs))
	for i, v := range vs {
		out[i] = *v
	}
	return out
}

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

// startGeneration validates the request and dispatches the provider call on a
// worker goroutine. Must run on the actor goroutine. The result (or the
// discard decision) is delivered to resCh exactly once.
func (a *sessionActor) startGeneration(ctx context.Context, stepID string, count int, instruction string, selectFirst bool, resCh chan<- genResult) {
	s := a.s

	step, err := a.validateMutableStep(stepID)
	if err != nil {
		resCh <- genResult{err: err}
		return
	}

	gctx := BuildContext(s)
	stepType := step.Type

	go func() {
		contents, genErr := a.gen.Generate(ctx, stepType, gctx, count, instruction)
		doErr := a.do(func() {
			a.finishGeneration(stepID, count, instruction, selectFirst, contents, genErr, resCh)
		})
		if doErr != nil {
			// Session evicted while the provider call was in flight: the
			// batch is dropped, there is nothing to append to.
			resCh <- genResult{err: doErr}
		}
	}()
}

// finishGeneration applies a completed provider call to the session. Must run
// on the actor goroutine. Batches whose step is no longer current are
// discarded, never appended.
func (a *sessionActor) finishGeneration(stepID string, count int, instruction string, selectFirst bool, contents []Content, genErr error, resCh chan<- genResult) {
	s := a.s

	if genErr != nil {
		resCh <- genResult{err: providerf("session %s step %s: generation failed: %v", s.ID, stepID, genErr)}
		return
	}

	// Atomic batch: exactly count well-formed contents or nothing lands.
	if len(contents) != count {
		resCh <- genResult{err: providerf("session %s step %s: provider returned %d variants, want %d",
			s.ID, stepID, len(contents), count)}
		return
	}

	step := s.stepByID(stepID)
	current := s.currentStep()
	stale := s.State.IsTerminal() ||
		step == nil || step.Completed ||
		current == nil || current.ID != stepID

	if stale {
		s.Diagnostics = append(s.Diagnostics,
			fmt.Sprintf("discarded %d-variant batch for step %s: step no longer current", count, stepID))
		a.publish(EventVariantsDiscarded, map[string]any{"stepId": stepID, "count": count})
		resCh <- genResult{err: invalidStatef("session %s step %s advanced before the batch arrived", s.ID, stepID)}
		return
	}

	for i, c := range contents {
		if c.Type != step.Type {
			resCh <- genResult{err: providerf("session %s step %s: variant %d has type %q, want %q",
				s.ID, stepID, i, c.Type, step.Type)}
			return
		}
		if err := c.Validate(); err != nil {
			resCh <- genResult{err: providerf("session %s step %s: variant %d invalid: %v", s.ID, stepID, i, err)}
			return
		}
	}

	provenance := ProvenanceGenerated
	if instruction != "" {
		provenance = ProvenanceCustomPrompt
	}

	batch := make([]*Variant, 0, count)
	for _, c := range contents {
		batch = append(batch, &Variant{
			ID:         NewID(),
			Provenance: provenance,
			Content:    c,
			Preview:    c.Summary(),
			Metadata: VariantMetadata{
				Instruction: instruction,
				Custom:      instruction != "",
			},
		})
	}

	step.Variants = append(step.Variants, batch...)
	a.touch()
	a.publish(EventVariantsGenerated, map[string]any{
		"stepId": stepID,
		"count":  count,
	})

	if selectFirst {
		// A pause that landed while the default batch was in flight keeps the
		// append (in-flight work is not cancelled) but blocks the auto-select;
		// the step stays open for a fresh skip after resume.
		if s.State != StateStepActive {
			resCh <- genResult{err: invalidStatef("session %s is %s, default variant appended but not selected", s.ID, s.State)}
			return
		}
		if err := a.selectLocked(step, batch[0].ID, ""); err != nil {
			resCh <- genResult{err: err}
			return
		}
	}

	resCh <- genResult{variants: copyVariants(batch)}
}

// validateMutableStep checks that the session accepts new variants for the
// given step: the session must be in StepActive and the step must be the
// current, uncompleted one. Must run on the actor goroutine.
func (a *sessionActor) validateMutableStep(stepID string) (*Step, error) {
	s := a.s

	switch s.State {
	case StateStepActive:
	case StatePaused:
		return nil, invalidStatef("session %s is paused", s.ID)
	default:
		return nil, invalidStatef("session %s is %s, not accepting variants", s.ID, s.State)
	}

	step := s.stepByID(stepID)
	if step == nil {
		return nil, notFoundf("session %s has no step %s", s.ID, stepID)
	}
	if step.Completed {
		return nil, invalidStatef("session %s step %s already completed", s.ID, stepID)
	}
	if current := s.currentStep(); current == nil || current.ID != stepID {
		return nil, invalidStatef("session %s step %s is not the current step", s.ID, stepID)
	}
	return step, nil
}

// ---------------------------------------------------------------------------
// Selection and step advancement
// ---------------------------------------------------------------------------

// selectLocked completes the current step with the given variant and advances
// the session. Must run on the actor goroutine.
func (a *sessionActor) selectLocked(step *Step, variantID, instruction string) error {
	s := a.s

	v := step.variantByID(variantID)
	if v == nil {
		return validationf("session %s step %s has no variant %s", s.ID, step.ID, variantID)
	}

	step.Completed = true
	step.SelectedID = v.ID
	if instruction != "" {
		step.Instruction = instruction
	}
	s.FinalChoices[step.ID] = v.ID
	a.touch()
	a.publish(EventStepCompleted, map[string]any{
		"stepId":    step.ID,
		"variantId": v.ID,
	})

	if s.CurrentStep+1 < len(s.Steps) {
		s.CurrentStep++
		next := s.Steps[s.CurrentStep]
		a.publish(EventStepActivated, map[string]any{
			"stepId": next.ID,
			"type":   string(next.Type),
			"index":  s.CurrentStep,
		})
	} else {
		s.CurrentStep = len(s.Steps)
		s.State = StateStepsDone
		if a.onStepsDone != nil {
			a.onStepsDone()
		}
	}
	return nil
}

// selectVariant handles a user selection. Must run on the actor goroutine.
func (a *sessionActor) selectVariant(stepID, variantID, instruction string) error {
	s := a.s

	switch s.State {
	case StateStepActive:
	case StatePaused:
		return invalidStatef("session %s is paused", s.ID)
	default:
		return invalidStatef("session %s is %s, selection not allowed", s.ID, s.State)
	}

	step := s.stepByID(stepID)
	if step == nil {
		return notFoundf("session %s has no step %s", s.ID, stepID)
	}
	if step.Completed {
		return invalidStatef("session %s step %s already completed", s.ID, stepID)
	}
	if current := s.currentStep(); current == nil || current.ID != stepID {
		return invalidStatef("session %s step %s is not the current step", s.ID, stepID)
	}
	return a.selectLocked(step, variantID, instruction)
}

// skip completes a skippable current step with its deterministic default:
// the first variant already on the step. When the step has no variants yet a
// single default variant is generated first, then selected on arrival (the
// stale-batch rule still applies if the session moves on meanwhile).
// Must run on the actor goroutine; the outcome goes to resCh exactly once.
func (a *sessionActor) skip(ctx context.Context, resCh chan<- genResult) {
	s := a.s

	if s.State != StateStepActive {
		resCh <- genResult{err: invalidStatef("session %s is %s, skip not allowed", s.ID, s.State)}
		return
	}
	step := s.currentStep()
	if step == nil {
		resCh <- genResult{err: invalidStatef("session %s has no active step", s.ID)}
		return
	}
	if !step.Skippable {
		resCh <- genResult{err: invalidStatef("session %s step %s is not skippable", s.ID, step.ID)}
		return
	}

	if len(step.Variants) > 0 {
		first := step.Variants[0]
		if err := a.selectLocked(step, first.ID, ""); err != nil {
			resCh <- genResult{err: err}
			return
		}
		resCh <- genResult{variants: []Variant{*first}}
		return
	}

	a.startGeneration(ctx, step.ID, 1, "", true, resCh)
}

// ---------------------------------------------------------------------------
// Upload
// ---------------------------------------------------------------------------

// startUpload validates the target step and delegates storage to the upload
// collaborator on a worker goroutine. Exactly one variant is appended on
// success; the stale-batch rule applies to the append.
func (a *sessionActor) startUpload(stepID string, data []byte, declaredType string, declaredSize int64, resCh chan<- genResult) {
	if _, err := a.validateMutableStep(stepID); err != nil {
		resCh <- genResult{err: err}
		return
	}
	if a.up == nil {
		resCh <- genResult{err: invalidStatef("session %s: no upload collaborator configured", a.s.ID)}
		return
	}

	go func() {
		stored, upErr := a.up.Store(data, declaredType, declaredSize)
		doErr := a.do(func() {
			a.finishUpload(stepID, stored, upErr, resCh)
		})
		if doErr != nil {
			resCh <- genResult{err: doErr}
		}
	}()
}

// finishUpload appends the stored upload as a single variant. Must run on the
// actor goroutine.
func (a *sessionActor) finishUpload(stepID string, stored *StoredUpload, upErr error, resCh chan<- genResult) {
	s := a.s

	if upErr != nil {
		// Upload collaborator errors already carry a kind (usually
		// ErrValidation); pass them through with session context.
		resCh <- genResult{err: fmt.Errorf("wizard: session %s step %s: %w", s.ID, stepID, upErr)}
		return
	}

	step := s.stepByID(stepID)
	current := s.currentStep()
	if s.State.IsTerminal() || step == nil || step.Completed || current == nil || current.ID != stepID {
		s.Diagnostics = append(s.Diagnostics,
			fmt.Sprintf("discarded upload %s for step %s: step no longer current", stored.Ref, stepID))
		a.publish(EventVariantsDiscarded, map[string]any{"stepId": stepID, "count": 1})
		resCh <- genResult{err: invalidStatef("session %s step %s advanced before the upload landed", s.ID, stepID)}
		return
	}

	v := &Variant{
		ID:         NewID(),
		Provenance: ProvenanceUploaded,
		Content: Content{
			Type: step.Type,
			Raw: &RawContent{
				Ref:       stored.Ref,
				MediaType: stored.MediaType,
				SizeBytes: stored.Size,
			},
		},
		Preview: stored.Preview,
		Metadata: VariantMetadata{
			Format:    stored.MediaType,
			SizeBytes: stored.Size,
		},
	}

	step.Variants = append(step.Variants, v)
	a.touch()
	a.publish(EventVariantUploaded, map[string]any{
		"stepId":    stepID,
		"variantId": v.ID,
		"mediaType": stored.MediaType,
	})
	resCh <- genResult{variants: []Variant{*v}}
}

// ---------------------------------------------------------------------------
// Pause / resume / cancel
// ---------------------------------------------------------------------------

func (a *sessionActor) pause(reason string) error {
	s := a.s
	if s.State != StateStepActive {
		return invalidStatef("session %s is %s, cannot pause", s.ID, s.State)
	}
	s.State = StatePaused
	s.Active = false
	a.touch()
	a.publish(EventSessionPaused, map[string]any{"reason": reason})
	return nil
}

func (a *sessionActor) resume() error {
	s := a.s
	if s.State != StatePaused {
		return invalidStatef("session %s is %s, cannot resume", s.ID, s.State)
	}
	s.State = StateStepActive
	s.Active = true
	a.touch()
	a.publish(EventSessionResumed, nil)
	return nil
}

func (a *sessionActor) cancel(reason string) error {
	s := a.s
	if s.State.IsTerminal() {
		return invalidStatef("session %s is already %s", s.ID, s.State)
	}
	s.State = StateCancelled
	s.Active = false
	if reason != "" {
		s.Diagnostics = append(s.Diagnostics, "cancelled: "+reason)
	}
	a.touch()
	a.publish(EventSessionCancelled, map[string]any{"reason": reason})
	return nil
}

// ---------------------------------------------------------------------------
// Completion
// ---------------------------------------------------------------------------

// beginAssembly transitions to Assembling and returns the context snapshot
// the assembler should consume. Must run on the actor goroutine.
//
// Calling Complete on an already-completed session returns the existing
// artifact rather than an error, so retries after a dropped response are
// harmless. When an assembly is already in flight (the final selection
// triggers one automatically), the returned channel lets the caller wait for
// it instead of failing.
func (a *sessionActor) beginAssembly() (gctx *GenContext, existing *Artifact, inFlight <-chan struct{}, err error) {
	s := a.s

	switch {
	case s.State == StateCompleted:
		return nil, s.Artifact, nil, nil
	case s.State == StateAssembling:
		return nil, nil, a.assemblyDone, nil
	case s.State.IsTerminal():
		return nil, nil, nil, invalidStatef("session %s is %s, cannot complete", s.ID, s.State)
	case !s.requiredComplete():
		return nil, nil, nil, invalidStatef("session %s has uncompleted required steps", s.ID)
	}

	s.State = StateAssembling
	a.assemblyDone = make(chan struct{})
	a.touch()
	return BuildContext(s), nil, nil, nil
}

// commitArtifact records the assembled (or placeholder) artifact and marks
// the session completed. Must run on the actor goroutine.
func (a *sessionActor) commitArtifact(artifact *Artifact, assemblyErr error) {
	s := a.s
	s.Artifact = artifact
	s.State = StateCompleted
	s.Active = false
	a.touch()

	if assemblyErr != nil {
		s.Diagnostics = append(s.Diagnostics, "assembly failed: "+assemblyErr.Error())
		a.publish(EventArtifactDegraded, map[string]any{"error": assemblyErr.Error()})
	}
	a.publish(EventSessionCompleted, map[string]any{
		"artifactId":  artifact.ID,
		"archetype":   artifact.Archetype,
		"placeholder": artifact.Placeholder,
	})

	if a.assemblyDone != nil {
		close(a.assemblyDone)
		a.assemblyDone = nil
	}
}
