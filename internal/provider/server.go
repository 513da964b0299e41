package provider

import (
	"context"
	"net/http"
)

// Handler processes incoming protocol requests for a content provider.
type Handler interface {
	// HandleGenerate runs a batch request to completion and returns the job.
	HandleGenerate(ctx context.Context, req GenerateRequest) (*Job, error)

	// HandleGetJob returns the current state of a job.
	HandleGetJob(ctx context.Context, req GetJobRequest) (*Job, error)

	// HandleListJobs returns jobs matching the filter.
	HandleListJobs(ctx context.Context, req ListJobsRequest) (*ListJobsResponse, error)

	// HandleCancelJob cancels a running job.
	HandleCancelJob(ctx context.Context, req CancelJobRequest) (*Job, error)
}

// Streamer is implemented by handlers that can stream candidates as they are
// produced. Handlers without it get content/stream rejected at the wire.
type Streamer interface {
	// HandleStreamGenerate runs a batch request and delivers status updates
	// and candidates on the returned channel, closing it when the job reaches
	// a terminal state.
	HandleStreamGenerate(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error)
}

// Server is the HTTP server that exposes a content provider.
type Server struct {
	card    ProviderCard
	handler Handler
	http    *http.Server
}

// NewServer creates a provider server for the given handler.
func NewServer(card ProviderCard, handler Handler) *Server {
	return &Server{
		card:    card,
		handler: handler,
	}
}
