package provider

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors mapped onto protocol error codes by the HTTP server.
var (
	ErrJobNotFound      = errors.New("provider: job not found")
	ErrJobNotCancelable = errors.New("provider: job not cancelable")
	ErrUnsupportedStep  = errors.New("provider: unsupported step type")
)

// IsNotFound reports whether err indicates a missing job.
func IsNotFound(err error) bool { return errors.Is(err, ErrJobNotFound) }

// IsNotCancelable reports whether err indicates a job past cancellation.
func IsNotCancelable(err error) bool { return errors.Is(err, ErrJobNotCancelable) }

// IsUnsupportedStep reports whether err indicates a step type the provider
// does not serve.
func IsUnsupportedStep(err error) bool { return errors.Is(err, ErrUnsupportedStep) }

// ProduceFunc produces the candidates for one generation request. The
// returned slice must hold exactly req.Count entries.
type ProduceFunc func(ctx context.Context, req GenerateRequest) ([]Candidate, error)

// Compile-time interface checks.
var (
	_ Handler  = (*Service)(nil)
	_ Streamer = (*Service)(nil)
)

// Service is the reference Handler implementation: it tracks jobs in a
// JobStore and delegates actual candidate production to an injected
// ProduceFunc, so the same protocol plumbing serves any content backend.
type Service struct {
	store     *JobStore
	produce   ProduceFunc
	stepTypes map[string]struct{} // nil means every step type is accepted
}

// NewService creates a Service around produce. If stepTypes is non-empty,
// requests for other step types are rejected with ErrUnsupportedStep.
func NewService(produce ProduceFunc, stepTypes ...string) *Service {
	s := &Service{
		store:   NewJobStore(),
		produce: produce,
	}
	if len(stepTypes) > 0 {
		s.stepTypes = make(map[string]struct{}, len(stepTypes))
		for _, t := range stepTypes {
			s.stepTypes[t] = struct{}{}
		}
	}
	return s
}

// Store exposes the underlying job store, mainly for tests and diagnostics.
func (s *Service) Store() *JobStore { return s.store }

// HandleGenerate runs the request to completion and returns the finished job.
func (s *Service) HandleGenerate(ctx context.Context, req GenerateRequest) (*Job, error) {
	job, err := s.startJob(req)
	if err != nil {
		return nil, err
	}

	candidates, err := s.runProduce(ctx, job.ID, req)
	if err != nil {
		return nil, err
	}

	s.store.Update(job.ID, func(j *Job) {
		j.Candidates = candidates
		j.Status = JobStatus{State: JobStateCompleted, Timestamp: time.Now()}
	})
	return s.store.Get(job.ID)
}

// HandleStreamGenerate runs the request in the background, delivering status
// updates and candidates on the returned channel as they happen.
func (s *Service) HandleStreamGenerate(ctx context.Context, req GenerateRequest) (<-chan StreamEvent, error) {
	job, err := s.startJob(req)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamEvent, req.Count+3)
	go func() {
		defer close(ch)

		send := func(ev StreamEvent) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}

		send(StreamEvent{StatusUpdate: &JobStatusUpdateEvent{
			JobID:     job.ID,
			SessionID: req.SessionID,
			Status:    JobStatus{State: JobStateWorking, Timestamp: time.Now()},
		}})

		candidates, err := s.runProduce(ctx, job.ID, req)
		if err != nil {
			send(StreamEvent{StatusUpdate: &JobStatusUpdateEvent{
				JobID:     job.ID,
				SessionID: req.SessionID,
				Status:    JobStatus{State: JobStateFailed, Note: err.Error(), Timestamp: time.Now()},
			}})
			return
		}

		for i, c := range candidates {
			send(StreamEvent{Candidate: &CandidateEvent{
				JobID:     job.ID,
				Candidate: c,
				LastChunk: i == len(candidates)-1,
			}})
		}

		s.store.Update(job.ID, func(j *Job) {
			j.Candidates = candidates
			j.Status = JobStatus{State: JobStateCompleted, Timestamp: time.Now()}
		})
		if final, err := s.store.Get(job.ID); err == nil {
			send(StreamEvent{Job: final})
		}
	}()
	return ch, nil
}

// HandleGetJob returns the current state of a job.
func (s *Service) HandleGetJob(ctx context.Context, req GetJobRequest) (*Job, error) {
	job, err := s.store.Get(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, req.ID)
	}
	return job, nil
}

// HandleListJobs returns jobs matching the filter.
func (s *Service) HandleListJobs(ctx context.Context, req ListJobsRequest) (*ListJobsResponse, error) {
	return s.store.List(req)
}

// HandleCancelJob cancels a job that has not yet finished.
func (s *Service) HandleCancelJob(ctx context.Context, req CancelJobRequest) (*Job, error) {
	job, err := s.store.Get(req.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, req.ID)
	}
	if job.Status.State.IsTerminal() {
		return nil, fmt.Errorf("%w: %s is already %s", ErrJobNotCancelable, req.ID, job.Status.State)
	}

	s.store.Update(req.ID, func(j *Job) {
		j.Status = JobStatus{State: JobStateCanceled, Timestamp: time.Now()}
	})
	return s.store.Get(req.ID)
}

// startJob validates the request and records a new working job.
func (s *Service) startJob(req GenerateRequest) (*Job, error) {
	if req.Count <= 0 {
		return nil, fmt.Errorf("provider: count must be positive, got %d", req.Count)
	}
	if s.stepTypes != nil {
		if _, ok := s.stepTypes[req.StepType]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnsupportedStep, req.StepType)
		}
	}

	job := Job{
		ID:        NewJobID(),
		SessionID: req.SessionID,
		StepType:  req.StepType,
		Status:    JobStatus{State: JobStateWorking, Timestamp: time.Now()},
	}
	if err := s.store.Create(job); err != nil {
		return nil, err
	}
	return &job, nil
}

// runProduce invokes the backend and normalizes the resulting candidates,
// marking the job failed on any error or count mismatch.
func (s *Service) runProduce(ctx context.Context, jobID string, req GenerateRequest) ([]Candidate, error) {
	fail := func(err error) error {
		s.store.Update(jobID, func(j *Job) {
			j.Status = JobStatus{State: JobStateFailed, Note: err.Error(), Timestamp: time.Now()}
		})
		return err
	}

	candidates, err := s.produce(ctx, req)
	if err != nil {
		return nil, fail(fmt.Errorf("provider: produce: %w", err))
	}
	if len(candidates) != req.Count {
		return nil, fail(fmt.Errorf("provider: produced %d candidates, want %d", len(candidates), req.Count))
	}

	for i := range candidates {
		if candidates[i].ID == "" {
			candidates[i].ID = NewJobID()
		}
		if candidates[i].StepType == "" {
			candidates[i].StepType = req.StepType
		}
	}
	return candidates, nil
}
