// Package provider defines the wire protocol spoken between the wizard and
// remote content providers: JSON-RPC 2.0 over HTTP with SSE streaming, a
// self-describing provider card at a well-known URI, and job tracking on the
// provider side. Payloads travel as raw JSON so the protocol layer stays
// independent of the wizard's content schemas.
package provider

import (
	"encoding/json"
	"time"
)

// --- Enums ---

// JobState represents the lifecycle state of a generation job.
type JobState string

const (
	JobStateUnspecified JobState = ""
	JobStateSubmitted   JobState = "submitted"
	JobStateWorking     JobState = "working"
	JobStateCompleted   JobState = "completed"
	JobStateFailed      JobState = "failed"
	JobStateCanceled    JobState = "canceled"
)

// IsTerminal returns true if the job state is a final state.
func (s JobState) IsTerminal() bool {
	switch s {
	case JobStateCompleted, JobStateFailed, JobStateCanceled:
		return true
	}
	return false
}

// --- Core Types ---

// Job is the provider-side unit of work: one variant batch request and its
// eventual candidates.
type Job struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"sessionId"`
	StepType   string          `json:"stepType"`
	Status     JobStatus       `json:"status"`
	Candidates []Candidate     `json:"candidates,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// JobStatus tracks the current state and when it changed.
type JobStatus struct {
	State     JobState  `json:"state"`
	Note      string    `json:"note,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Candidate is one generated variant payload. Payload is the content document
// in the schema the requesting step type implies; the wizard validates it
// before accepting it.
type Candidate struct {
	ID       string          `json:"id"`
	StepType string          `json:"stepType"`
	Payload  json.RawMessage `json:"payload"`
	Preview  string          `json:"preview,omitempty"`
}

// ContextEntry carries one earlier selection into a generation request.
type ContextEntry struct {
	StepType string          `json:"stepType"`
	Payload  json.RawMessage `json:"payload"`
}

// --- Provider Card Types ---

// ProviderCard is the self-describing manifest for a content provider, served
// at /.well-known/provider-card.json.
type ProviderCard struct {
	Name         string               `json:"name"`
	Description  string               `json:"description"`
	Version      string               `json:"version"`
	StepTypes    []string             `json:"stepTypes"`
	Capabilities ProviderCapabilities `json:"capabilities"`
}

// ProviderCapabilities declares which optional protocol features the provider
// supports.
type ProviderCapabilities struct {
	Streaming bool `json:"streaming"`
}

// --- Streaming Types ---

// JobStatusUpdateEvent is sent when a job's status changes.
type JobStatusUpdateEvent struct {
	JobID     string    `json:"jobId"`
	SessionID string    `json:"sessionId"`
	Status    JobStatus `json:"status"`
}

// CandidateEvent is sent as each candidate becomes available on a streaming
// generation.
type CandidateEvent struct {
	JobID     string    `json:"jobId"`
	Candidate Candidate `json:"candidate"`
	LastChunk bool      `json:"lastChunk"`
}

// --- Request / Response Types ---

// GenerateRequest asks the provider for a batch of candidates.
type GenerateRequest struct {
	SessionID   string         `json:"sessionId"`
	StepType    string         `json:"stepType"`
	Count       int            `json:"count"`
	Instruction string         `json:"instruction,omitempty"`
	Context     []ContextEntry `json:"context,omitempty"`
}

// GetJobRequest retrieves a job by ID.
type GetJobRequest struct {
	ID string `json:"id"`
}

// ListJobsRequest queries jobs with filtering and pagination.
type ListJobsRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	State     string `json:"state,omitempty"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

// ListJobsResponse is the paginated response for ListJobs.
type ListJobsResponse struct {
	Jobs          []Job  `json:"jobs"`
	TotalSize     int    `json:"totalSize"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// CancelJobRequest cancels a running job.
type CancelJobRequest struct {
	ID string `json:"id"`
}
