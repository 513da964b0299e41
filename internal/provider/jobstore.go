package provider

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
)

// NewJobID generates a UUID v4 string using crypto/rand.
func NewJobID() string {
	var uuid [16]byte
	_, _ = rand.Read(uuid[:])
	// Set version 4 (bits 12-15 of time_hi_and_version).
	uuid[6] = (uuid[6] & 0x0f) | 0x40
	// Set variant bits (bits 6-7 of clock_seq_hi_and_reserved).
	uuid[8] = (uuid[8] & 0x3f) | 0x80
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4], uuid[4:6], uuid[6:8], uuid[8:10], uuid[10:16])
}

// JobStore is a concurrency-safe in-memory store for provider-side job
// tracking. Jobs live in a map keyed by ID with a separate slice keeping
// insertion order for deterministic pagination.
type JobStore struct {
	mu       sync.RWMutex
	jobs     map[string]*Job
	orderIDs []string // insertion-order job IDs
}

// NewJobStore returns an initialized JobStore ready for use.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs:     make(map[string]*Job),
		orderIDs: make([]string, 0),
	}
}

// Create stores a new job. It returns an error if a job with the same ID
// already exists.
func (s *JobStore) Create(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %q already exists", job.ID)
	}
	s.jobs[job.ID] = &job
	s.orderIDs = append(s.orderIDs, job.ID)
	return nil
}

// Get returns a deep copy of the job with the given ID, safe to mutate
// without affecting the store.
func (s *JobStore) Get(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %q not found", id)
	}
	return deepCopyJob(j), nil
}

// Update applies fn to the job identified by id under a write lock. The
// function receives the actual stored pointer, so mutations land in place.
func (s *JobStore) Update(id string, fn func(*Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return fmt.Errorf("job %q not found", id)
	}
	fn(j)
	return nil
}

// List returns jobs matching the filter criteria with pagination support.
//
// Filtering:
//   - If SessionID is non-empty, only jobs for that session are included.
//   - If State is non-empty, only jobs whose current state matches are included.
//
// Pagination:
//   - PageToken is the ID of the last job from the previous page; results
//     start after that job in insertion order.
//   - PageSize <= 0 means return all matching jobs.
func (s *JobStore) List(filter ListJobsRequest) (*ListJobsResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := 0
	if filter.PageToken != "" {
		found := false
		for i, id := range s.orderIDs {
			if id == filter.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid page token %q", filter.PageToken)
		}
	}

	var matched []Job
	for i := startIdx; i < len(s.orderIDs); i++ {
		j := s.jobs[s.orderIDs[i]]
		if !matchesFilter(j, filter) {
			continue
		}
		matched = append(matched, *deepCopyJob(j))
	}

	// Matches before startIdx still count toward the total size.
	totalBefore := 0
	for i := 0; i < startIdx; i++ {
		if matchesFilter(s.jobs[s.orderIDs[i]], filter) {
			totalBefore++
		}
	}

	totalSize := totalBefore + len(matched)

	var nextPageToken string
	if filter.PageSize > 0 && len(matched) > filter.PageSize {
		nextPageToken = matched[filter.PageSize-1].ID
		matched = matched[:filter.PageSize]
	}

	if matched == nil {
		matched = []Job{}
	}

	return &ListJobsResponse{
		Jobs:          matched,
		TotalSize:     totalSize,
		NextPageToken: nextPageToken,
	}, nil
}

// matchesFilter returns true if the job passes the session ID and state
// filters specified in the request.
func matchesFilter(j *Job, filter ListJobsRequest) bool {
	if filter.SessionID != "" && j.SessionID != filter.SessionID {
		return false
	}
	if filter.State != "" && string(j.Status.State) != filter.State {
		return false
	}
	return true
}

// deepCopyJob returns a new Job that is a deep copy of src. The Candidates
// slice, its payloads, and the Metadata byte slice are independently copied.
func deepCopyJob(src *Job) *Job {
	dst := *src

	if src.Candidates != nil {
		dst.Candidates = make([]Candidate, len(src.Candidates))
		for i, c := range src.Candidates {
			dst.Candidates[i] = deepCopyCandidate(c)
		}
	}

	if src.Metadata != nil {
		dst.Metadata = make(json.RawMessage, len(src.Metadata))
		copy(dst.Metadata, src.Metadata)
	}

	return &dst
}

// deepCopyCandidate returns a deep copy of a Candidate.
func deepCopyCandidate(src Candidate) Candidate {
	dst := src
	if src.Payload != nil {
		dst.Payload = make(json.RawMessage, len(src.Payload))
		copy(dst.Payload, src.Payload)
	}
	return dst
}
