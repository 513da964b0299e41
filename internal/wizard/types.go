package wizard

import "time"

// StepType identifies the creative dimension a step covers. Each type has a
// fixed content schema (see content.go).
type StepType string

const (
	StepCharacter StepType = "character"
	StepMechanics StepType = "mechanics"
	StepLevel     StepType = "level"
	StepGraphics  StepType = "graphics"
	StepSound     StepType = "sound"
	StepUI        StepType = "ui"
)

// KnownStepTypes lists every supported step type in canonical order.
var KnownStepTypes = []StepType{
	StepCharacter, StepMechanics, StepLevel, StepGraphics, StepSound, StepUI,
}

// IsKnown reports whether t is one of the supported step types.
func (t StepType) IsKnown() bool {
	for _, k := range KnownStepTypes {
		if t == k {
			return true
		}
	}
	return false
}

// Provenance records where a variant came from.
type Provenance string

const (
	ProvenanceGenerated    Provenance = "generated"
	ProvenanceUploaded     Provenance = "uploaded"
	ProvenanceCustomPrompt Provenance = "custom-prompt"
)

// SessionState is the lifecycle state of a wizard session.
type SessionState string

const (
	StateInitializing SessionState = "initializing"
	StateStepActive   SessionState = "step-active"
	StatePaused       SessionState = "paused"
	StateStepsDone    SessionState = "all-steps-completed"
	StateAssembling   SessionState = "assembling"
	StateCompleted    SessionState = "completed"
	StateCancelled    SessionState = "cancelled"
	StateFailed       SessionState = "failed"
)

// IsTerminal returns true if the state is final.
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// VariantMetadata carries annotations about how a variant was produced.
// Unlike variant content, metadata may gain lazily computed fields (such as a
// preview) after creation.
type VariantMetadata struct {
	Instruction string `json:"instruction,omitempty"` // prompt text used for generation
	Custom      bool   `json:"custom,omitempty"`      // true when a custom instruction was supplied
	Format      string `json:"format,omitempty"`      // declared format for uploads
	SizeBytes   int64  `json:"sizeBytes,omitempty"`   // payload size for uploads
}

// Variant is one candidate content instance proposed for a step. Content is
// immutable after creation.
type Variant struct {
	ID         string          `json:"id"`
	Provenance Provenance      `json:"provenance"`
	Content    Content         `json:"content"`
	Preview    string          `json:"preview,omitempty"`
	Metadata   VariantMetadata `json:"metadata"`
}

// Step is one ordered stage of a session. Variants are append-only while the
// step is active; once Completed is set, the selection and variant list are
// frozen.
type Step struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Type        StepType `json:"type"`
	Variants    []*Variant
	SelectedID  string `json:"selectedVariantId,omitempty"`
	Instruction string `json:"instruction,omitempty"`
	Completed   bool   `json:"completed"`
	Skippable   bool   `json:"skippable"`
}

// variantByID returns the variant with the given ID, or nil.
func (s *Step) variantByID(id string) *Variant {
	for _, v := range s.Variants {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Session is one interactive generation workflow instance. All mutation goes
// through the owning session actor; readers outside the actor only ever see
// snapshot copies.
type Session struct {
	ID           string
	Category     string
	OwnerID      string
	Steps        []*Step // immutable list after creation (contents mutate)
	CurrentStep  int
	TotalSteps   int
	StartedAt    time.Time
	LastActivity time.Time
	Active       bool
	State        SessionState
	FinalChoices map[string]string // step ID -> selected variant ID
	Artifact     *Artifact
	Diagnostics  []string // recorded non-fatal failures (assembly, discards)
}

// currentStep returns the active step, or nil when all steps are done.
func (s *Session) currentStep() *Step {
	if s.CurrentStep < 0 || s.CurrentStep >= len(s.Steps) {
		return nil
	}
	return s.Steps[s.CurrentStep]
}

// stepByID returns the step with the given ID, or nil.
func (s *Session) stepByID(id string) *Step {
	for _, st := range s.Steps {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// requiredComplete reports whether every non-skippable step is completed.
func (s *Session) requiredComplete() bool {
	for _, st := range s.Steps {
		if !st.Skippable && !st.Completed {
			return false
		}
	}
	return true
}

// Progress is a read-only snapshot of where a session stands.
type Progress struct {
	SessionID         string       `json:"sessionId"`
	State             SessionState `json:"state"`
	CurrentStep       int          `json:"currentStep"`
	TotalSteps        int          `json:"totalSteps"`
	StepID            string       `json:"stepId,omitempty"`
	StepName          string       `json:"stepName,omitempty"`
	StepDescription   string       `json:"stepDescription,omitempty"`
	StepType          StepType     `json:"stepType,omitempty"`
	VariantCount      int          `json:"variantCount"`
	AwaitingSelection bool         `json:"awaitingSelection"`
	CompletedSteps    []string     `json:"completedSteps,omitempty"` // step IDs in order
}
