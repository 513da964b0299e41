package provider

import "context"

// Client is the interface for talking to a remote content provider.
type Client interface {
	// Generate submits a batch request and blocks until the provider returns
	// the finished job.
	Generate(ctx context.Context, endpoint string, req GenerateRequest) (*Job, error)

	// GetJob retrieves a job by ID from a specific provider.
	GetJob(ctx context.Context, endpoint string, req GetJobRequest) (*Job, error)

	// ListJobs queries jobs from a specific provider.
	ListJobs(ctx context.Context, endpoint string, req ListJobsRequest) (*ListJobsResponse, error)

	// CancelJob cancels a running job.
	CancelJob(ctx context.Context, endpoint string, req CancelJobRequest) (*Job, error)

	// StreamGenerate submits a batch request and returns an SSE stream of
	// status updates and candidates as they arrive.
	StreamGenerate(ctx context.Context, endpoint string, req GenerateRequest) (<-chan StreamEvent, error)

	// Discover fetches the Provider Card from the well-known URI.
	Discover(ctx context.Context, baseURL string) (*ProviderCard, error)
}

// StreamEvent is a typed event received from an SSE subscription.
type StreamEvent struct {
	// Exactly one of these is set.
	Job          *Job                  `json:"job,omitempty"`
	StatusUpdate *JobStatusUpdateEvent `json:"statusUpdate,omitempty"`
	Candidate    *CandidateEvent       `json:"candidate,omitempty"`

	// Err is set if the stream encountered an error.
	Err error `json:"-"`
}
