package wizard

import (
	"context"
	"strings"
	"time"
)

// Generator is the capability-polymorphic variant source. Implementations
// must return exactly count content payloads of the requested step type or
// fail the whole call; the controller never accepts partial batches.
type Generator interface {
	Generate(ctx context.Context, stepType StepType, gctx *GenContext, count int, instruction string) ([]Content, error)
}

// StoredUpload is what the upload collaborator returns for accepted content.
type StoredUpload struct {
	Ref       string
	Preview   string
	MediaType string
	Size      int64
}

// Uploader validates and stores externally supplied content.
type Uploader interface {
	Store(data []byte, declaredType string, declaredSize int64) (*StoredUpload, error)
}

// MaxBatchSize caps how many variants one generation request may ask for.
const MaxBatchSize = 10

// DefaultInitialBatch is the variant count requested for step 0 at session
// start when the subject spec does not say otherwise.
const DefaultInitialBatch = 3

// SubjectSpec describes what the user wants to build.
type SubjectSpec struct {
	// Category selects the step template. Unknown categories fall back to the
	// default template.
	Category string

	// OwnerID identifies the requesting user. Optional.
	OwnerID string

	// Include, when non-empty, restricts the template to steps of these
	// types, preserving template order.
	Include []StepType

	// InitialBatch is the variant count for the automatic step-0 batch.
	// Zero means DefaultInitialBatch; negative disables the initial batch.
	InitialBatch int
}

// Options wires a Controller.
type Options struct {
	Catalog    *Catalog
	Generator  Generator
	Assembler  Assembler // optional; Complete degrades to a placeholder without one
	Uploader   Uploader  // optional; UploadVariant fails without one
	Events     *Broadcaster
	SessionTTL time.Duration
}

// Controller is the public API of the wizard: one instance serves many
// independent sessions. All methods are safe for concurrent use; per-session
// ordering is enforced by the session actors.
type Controller struct {
	catalog *Catalog
	gen     Generator
	asm     Assembler
	up      Uploader
	events  *Broadcaster
	store   *Store
}

// NewController creates a Controller and starts the store's eviction janitor.
func NewController(opts Options) *Controller {
	events := opts.Events
	if events == nil {
		events = NewBroadcaster(0)
	}
	c := &Controller{
		catalog: opts.Catalog,
		gen:     opts.Generator,
		asm:     opts.Assembler,
		up:      opts.Uploader,
		events:  events,
		store:   NewStore(opts.SessionTTL, events),
	}
	c.store.StartJanitor(time.Minute)
	return c
}

// Events returns the broadcaster for subscribing to session events.
func (c *Controller) Events() *Broadcaster {
	return c.events
}

// Store exposes the session store, mainly for eviction control in tests and
// operational tooling.
func (c *Controller) Store() *Store {
	return c.store
}

// Close shuts down the janitor, all session actors, and the broadcaster.
func (c *Controller) Close() {
	c.store.Close()
	c.events.Close()
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Start resolves the step list for the subject, creates the session with step
// 0 active, and (unless disabled) fires the initial variant batch in the
// background. The returned progress reflects the freshly created session.
func (c *Controller) Start(ctx context.Context, spec SubjectSpec) (Progress, error) {
	templates, resolved := c.catalog.Steps(spec.Category)

	if len(spec.Include) > 0 {
		included := make(map[StepType]bool, len(spec.Include))
		for _, t := range spec.Include {
			if !t.IsKnown() {
				return Progress{}, validationf("unknown step type %q in include list", t)
			}
			included[t] = true
		}
		filtered := templates[:0]
		for _, tmpl := range templates {
			if included[tmpl.Type] {
				filtered = append(filtered, tmpl)
			}
		}
		templates = filtered
		if len(templates) == 0 {
			return Progress{}, validationf("include list leaves no steps for category %q", resolved)
		}
	}

	now := time.Now()
	s := &Session{
		ID:           NewID(),
		Category:     resolved,
		OwnerID:      spec.OwnerID,
		CurrentStep:  0,
		TotalSteps:   len(templates),
		StartedAt:    now,
		LastActivity: now,
		Active:       true,
		State:        StateStepActive,
		FinalChoices: make(map[string]string),
	}
	for _, tmpl := range templates {
		s.Steps = append(s.Steps, &Step{
			ID:          NewID(),
			Name:        tmpl.Name,
			Description: tmpl.Description,
			Type:        tmpl.Type,
			Skippable:   tmpl.Skippable,
		})
	}

	// Completing the final step triggers assembly without waiting for an
	// explicit Complete call; the explicit call stays valid and idempotent.
	sid := s.ID
	a := newSessionActor(s, c.gen, c.up, c.events, func() {
		go func() { _, _ = c.Complete(sid) }()
	})
	c.store.add(a)

	c.events.Publish(s.ID, EventSessionStarted, map[string]any{
		"category":   resolved,
		"totalSteps": s.TotalSteps,
	})
	c.events.Publish(s.ID, EventStepActivated, map[string]any{
		"stepId": s.Steps[0].ID,
		"type":   string(s.Steps[0].Type),
		"index":  0,
	})

	// Fire-and-forget initial batch for step 0. Failures surface through the
	// event stream, not through Start.
	if spec.InitialBatch >= 0 && c.gen != nil {
		count := spec.InitialBatch
		if count == 0 {
			count = DefaultInitialBatch
		}
		resCh := make(chan genResult, 1)
		stepID := s.Steps[0].ID
		_ = a.do(func() {
			a.startGeneration(context.WithoutCancel(ctx), stepID, count, "", false, resCh)
		})
		go func() { <-resCh }()
	}

	var p Progress
	if err := a.do(func() { p = a.progressLocked() }); err != nil {
		return Progress{}, err
	}
	return p, nil
}

// GetProgress returns a read-only snapshot of the session.
func (c *Controller) GetProgress(sessionID string) (Progress, error) {
	a, err := c.store.get(sessionID)
	if err != nil {
		return Progress{}, err
	}
	var p Progress
	if err := a.do(func() { p = a.progressLocked() }); err != nil {
		return Progress{}, err
	}
	return p, nil
}

// GenerateVariants requests count new variants for the session's current
// step, optionally steered by a custom instruction. The call blocks until the
// batch has been appended (or rejected); the batch is atomic.
func (c *Controller) GenerateVariants(ctx context.Context, sessionID, stepID string, count int, instruction string) ([]Variant, error) {
	if count <= 0 || count > MaxBatchSize {
		return nil, validationf("variant count must be 1-%d, got %d", MaxBatchSize, count)
	}
	instruction, err := normalizeInstruction(instruction)
	if err != nil {
		return nil, err
	}
	if c.gen == nil {
		return nil, providerf("no generator configured")
	}

	a, err := c.store.get(sessionID)
	if err != nil {
		return nil, err
	}

	resCh := make(chan genResult, 1)
	if err := a.do(func() { a.startGeneration(ctx, stepID, count, instruction, false, resCh) }); err != nil {
		return nil, err
	}
	res := <-resCh
	return res.variants, res.err
}

// SelectVariant records the user's choice for the current step, marks the
// step completed, and advances the session. A selection on the final step
// triggers assembly automatically.
func (c *Controller) SelectVariant(sessionID, stepID, variantID, instruction string) error {
	instruction, err := normalizeInstruction(instruction)
	if err != nil {
		return err
	}

	a, err := c.store.get(sessionID)
	if err != nil {
		return err
	}

	var opErr error
	if err := a.do(func() { opErr = a.selectVariant(stepID, variantID, instruction) }); err != nil {
		return err
	}
	return opErr
}

// UploadVariant stores externally supplied content as a single variant with
// upload provenance on the session's current step.
func (c *Controller) UploadVariant(sessionID, stepID string, data []byte, declaredType string, declaredSize int64) (*Variant, error) {
	a, err := c.store.get(sessionID)
	if err != nil {
		return nil, err
	}

	resCh := make(chan genResult, 1)
	if err := a.do(func() { a.startUpload(stepID, data, declaredType, declaredSize, resCh) }); err != nil {
		return nil, err
	}
	res := <-resCh
	if res.err != nil {
		return nil, res.err
	}
	return &res.variants[0], nil
}

// Pause deactivates the session. In-flight generation is not cancelled; its
// results are still appended while paused.
func (c *Controller) Pause(sessionID, reason string) error {
	a, err := c.store.get(sessionID)
	if err != nil {
		return err
	}
	var opErr error
	if err := a.do(func() { opErr = a.pause(reason) }); err != nil {
		return err
	}
	return opErr
}

// Resume reactivates a paused session.
func (c *Controller) Resume(sessionID string) error {
	a, err := c.store.get(sessionID)
	if err != nil {
		return err
	}
	var opErr error
	if err := a.do(func() { opErr = a.resume() }); err != nil {
		return err
	}
	return opErr
}

// Skip completes the current step with its default variant. Only valid when
// the current step is skippable.
func (c *Controller) Skip(ctx context.Context, sessionID string) error {
	a, err := c.store.get(sessionID)
	if err != nil {
		return err
	}
	resCh := make(chan genResult, 1)
	if err := a.do(func() { a.skip(ctx, resCh) }); err != nil {
		return err
	}
	res := <-resCh
	return res.err
}

// Cancel terminates the session. In-flight work completes and is discarded.
func (c *Controller) Cancel(sessionID, reason string) error {
	a, err := c.store.get(sessionID)
	if err != nil {
		return err
	}
	var opErr error
	if err := a.do(func() { opErr = a.cancel(reason) }); err != nil {
		return err
	}
	return opErr
}

// Complete assembles the final artifact from the session's context. It is
// valid once every non-skippable step is completed and never fails on
// assembly errors: those degrade to a guaranteed-valid placeholder artifact
// with the failure recorded on the session. The final selection triggers
// assembly on its own, so Complete usually just waits for or returns the
// finished artifact; calling it is always harmless.
func (c *Controller) Complete(sessionID string) (*Artifact, error) {
	a, err := c.store.get(sessionID)
	if err != nil {
		return nil, err
	}

	var (
		gctx     *GenContext
		existing *Artifact
		beginErr error
	)
	for {
		var inFlight <-chan struct{}
		if err := a.do(func() { gctx, existing, inFlight, beginErr = a.beginAssembly() }); err != nil {
			return nil, err
		}
		if beginErr != nil {
			return nil, beginErr
		}
		if existing != nil {
			return existing, nil
		}
		if inFlight == nil {
			break
		}
		// Another caller (or the final selection) owns the assembly; wait for
		// its commit and pick up the artifact on the next pass.
		select {
		case <-inFlight:
		case <-a.done:
			return nil, notFoundf("session %s no longer exists", sessionID)
		}
	}

	// Assembly runs outside the actor so the session can still answer
	// progress queries while the deliverable is being built.
	var (
		artifact    *Artifact
		assemblyErr error
	)
	if c.asm == nil {
		artifact = placeholderArtifact(gctx, sessionID, nil)
	} else {
		artifact, assemblyErr = c.asm.Assemble(gctx, sessionID)
		if assemblyErr != nil || artifact == nil {
			artifact = placeholderArtifact(gctx, sessionID, assemblyErr)
		}
	}

	if err := a.do(func() { a.commitArtifact(artifact, assemblyErr) }); err != nil {
		return nil, err
	}
	return artifact, nil
}

// normalizeInstruction trims the optional custom instruction. An instruction
// that is present but blank is malformed input.
func normalizeInstruction(instruction string) (string, error) {
	if instruction == "" {
		return "", nil
	}
	trimmed := strings.TrimSpace(instruction)
	if trimmed == "" {
		return "", validationf("custom instruction is blank")
	}
	return trimmed, nil
}
