package wizard

import (
	"sync"
	"time"
)

// Store is the registry of live session actors. It owns creation lookup and
// eviction; all per-session state lives behind the actors themselves, so the
// store's lock only ever guards the map.
type Store struct {
	mu     sync.RWMutex
	actors map[string]*sessionActor
	ttl    time.Duration
	events *Broadcaster

	janitorStop chan struct{}
	janitorDone chan struct{}
}

// DefaultSessionTTL is how long a terminal (completed or cancelled) session
// lingers before eviction.
const DefaultSessionTTL = 30 * time.Minute

// NewStore creates a Store evicting terminal sessions ttl after their last
// activity. A non-positive ttl selects DefaultSessionTTL.
func NewStore(ttl time.Duration, events *Broadcaster) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		actors: make(map[string]*sessionActor),
		ttl:    ttl,
		events: events,
	}
}

// add registers a new session actor.
func (st *Store) add(a *sessionActor) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.actors[a.s.ID] = a
}

// get returns the actor for a session ID.
func (st *Store) get(id string) (*sessionActor, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	a, ok := st.actors[id]
	if !ok {
		return nil, notFoundf("session %s", id)
	}
	return a, nil
}

// IDs returns the IDs of all live sessions.
func (st *Store) IDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	ids := make([]string, 0, len(st.actors))
	for id := range st.actors {
		ids = append(ids, id)
	}
	return ids
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.actors)
}

// EvictExpired removes every session that reached a terminal state more than
// the TTL before now. Eviction is garbage collection, not cancellation: work
// still in flight for an evicted session completes and its results are
// dropped on arrival. Returns the number of sessions evicted.
func (st *Store) EvictExpired(now time.Time) int {
	st.mu.RLock()
	candidates := make([]*sessionActor, 0, len(st.actors))
	for _, a := range st.actors {
		candidates = append(candidates, a)
	}
	st.mu.RUnlock()

	evicted := 0
	for _, a := range candidates {
		state, last, err := a.vitals()
		if err != nil {
			continue // already stopped
		}
		if !state.IsTerminal() || now.Sub(last) < st.ttl {
			continue
		}

		st.mu.Lock()
		delete(st.actors, a.s.ID)
		st.mu.Unlock()

		a.stop()
		if st.events != nil {
			st.events.Publish(a.s.ID, EventSessionEvicted, map[string]any{"state": string(state)})
		}
		evicted++
	}
	return evicted
}

// StartJanitor launches the background eviction sweep at the given interval.
// Call StopJanitor to shut it down.
func (st *Store) StartJanitor(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	st.janitorStop = make(chan struct{})
	st.janitorDone = make(chan struct{})

	go func() {
		defer close(st.janitorDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st.EvictExpired(time.Now())
			case <-st.janitorStop:
				return
			}
		}
	}()
}

// StopJanitor stops the background sweep, if one is running.
func (st *Store) StopJanitor() {
	if st.janitorStop == nil {
		return
	}
	close(st.janitorStop)
	<-st.janitorDone
	st.janitorStop = nil
	st.janitorDone = nil
}

// Close stops the janitor and every live actor.
func (st *Store) Close() {
	st.StopJanitor()

	st.mu.Lock()
	defer st.mu.Unlock()
	for id, a := range st.actors {
		a.stop()
		delete(st.actors, id)
	}
}
