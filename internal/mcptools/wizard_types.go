package mcptools

// --- MCP Tool Types for the wizard server mode (--serve-mcp) ---
// These tools drive guided game-creation sessions from an MCP client:
// start a session, review and select variants per step, and assemble the
// final deliverable.

// StartSessionInput is the input for the start_session MCP tool.
type StartSessionInput struct {
	Category     string   `json:"category,omitempty" jsonschema:"game category selecting the step template (default: arcade)"`
	OwnerID      string   `json:"ownerId,omitempty" jsonschema:"opaque identifier of the requesting user"`
	Steps        []string `json:"steps,omitempty" jsonschema:"optional step-type filter (character, mechanics, level, graphics, sound, ui)"`
	InitialBatch int      `json:"initialBatch,omitempty" jsonschema:"variant count for the automatic first batch; -1 disables it"`
}

// SessionProgressOutput is the session snapshot shared by several tools.
type SessionProgressOutput struct {
	SessionID         string   `json:"sessionId"`
	State             string   `json:"state"`
	CurrentStep       int      `json:"currentStep"`
	TotalSteps        int      `json:"totalSteps"`
	StepID            string   `json:"stepId,omitempty"`
	StepName          string   `json:"stepName,omitempty"`
	StepDescription   string   `json:"stepDescription,omitempty"`
	StepType          string   `json:"stepType,omitempty"`
	VariantCount      int      `json:"variantCount"`
	AwaitingSelection bool     `json:"awaitingSelection"`
	CompletedSteps    []string `json:"completedSteps,omitempty"`
}

// GetProgressInput is the input for the get_progress MCP tool.
type GetProgressInput struct {
	SessionID string `json:"sessionId" jsonschema:"session to inspect"`
}

// GenerateVariantsInput is the input for the generate_variants MCP tool.
type GenerateVariantsInput struct {
	SessionID   string `json:"sessionId"`
	StepID      string `json:"stepId" jsonschema:"the session's current step"`
	Count       int    `json:"count,omitempty" jsonschema:"how many variants to generate (1-10, default 3)"`
	Instruction string `json:"instruction,omitempty" jsonschema:"optional custom prompt steering the batch"`
}

// VariantSummary is one selectable variant as shown to the client.
type VariantSummary struct {
	ID         string `json:"id"`
	Provenance string `json:"provenance"`
	Preview    string `json:"preview"`
}

// GenerateVariantsOutput is the result of the generate_variants MCP tool.
type GenerateVariantsOutput struct {
	StepID   string           `json:"stepId"`
	Variants []VariantSummary `json:"variants"`
}

// SelectVariantInput is the input for the select_variant MCP tool.
type SelectVariantInput struct {
	SessionID   string `json:"sessionId"`
	StepID      string `json:"stepId"`
	VariantID   string `json:"variantId"`
	Instruction string `json:"instruction,omitempty" jsonschema:"optional note recorded with the choice"`
}

// UploadVariantInput is the input for the upload_variant MCP tool.
type UploadVariantInput struct {
	SessionID string `json:"sessionId"`
	StepID    string `json:"stepId"`
	Data      string `json:"data" jsonschema:"base64-encoded payload"`
	MediaType string `json:"mediaType" jsonschema:"declared media type, e.g. image/png"`
	Size      int64  `json:"size" jsonschema:"declared payload size in bytes (before encoding)"`
}

// UploadVariantOutput is the result of the upload_variant MCP tool.
type UploadVariantOutput struct {
	Variant VariantSummary `json:"variant"`
}

// PauseSessionInput is the input for the pause_session MCP tool.
type PauseSessionInput struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}

// ResumeSessionInput is the input for the resume_session MCP tool.
type ResumeSessionInput struct {
	SessionID string `json:"sessionId"`
}

// SkipStepInput is the input for the skip_step MCP tool.
type SkipStepInput struct {
	SessionID string `json:"sessionId"`
}

// CancelSessionInput is the input for the cancel_session MCP tool.
type CancelSessionInput struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason,omitempty"`
}

// CompleteSessionInput is the input for the complete_session MCP tool.
type CompleteSessionInput struct {
	SessionID string `json:"sessionId"`
}

// ArtifactFileSummary is one file of the assembled deliverable.
type ArtifactFileSummary struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Written bool   `json:"written"`
}

// CompleteSessionOutput is the result of the complete_session MCP tool.
type CompleteSessionOutput struct {
	ArtifactID  string                `json:"artifactId"`
	Archetype   string                `json:"archetype"`
	Placeholder bool                  `json:"placeholder"`
	FailureNote string                `json:"failureNote,omitempty"`
	Files       []ArtifactFileSummary `json:"files"`
}

// ListSessionsInput is the input for the list_sessions MCP tool.
type ListSessionsInput struct{}

// ListSessionsOutput is the result of the list_sessions MCP tool.
type ListSessionsOutput struct {
	Sessions []SessionProgressOutput `json:"sessions"`
}
