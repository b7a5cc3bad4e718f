package pool

import (
	"fmt"
	"sync"
	"time"

	"github.com/angeloszaimis/rpc-proxy/internal/endpoint"
)

// DefaultRecoveryWindow is how long a demoted endpoint stays out of
// rotation before it becomes selectable again.
const DefaultRecoveryWindow = 5 * time.Minute

// Pool manages a fixed, ordered set of upstream endpoints. The pool size
// never changes after construction. Selection rotates a shared cursor
// across the pool, skipping demoted endpoints until their recovery
// window elapses.
type Pool struct {
	endpoints []*endpoint.Endpoint
	window    time.Duration
	now       func() time.Time

	mutex sync.Mutex
	next  int
}

// Snapshot is a read-only view of the pool's health, served by the
// health-check endpoint.
type Snapshot struct {
	AvailableCount int `json:"available_count"`
	TotalCount     int `json:"total_count"`
	CurrentIndex   int `json:"current_index"`
}

// New creates a pool over the given endpoints. The list must be
// non-empty. A window of 0 means DefaultRecoveryWindow.
func New(endpoints []*endpoint.Endpoint, window time.Duration) (*Pool, error) {
	return NewWithClock(endpoints, window, time.Now)
}

// NewWithClock is New with an injectable clock.
func NewWithClock(endpoints []*endpoint.Endpoint, window time.Duration, now func() time.Time) (*Pool, error) {
	if len(endpoints) == 0 {
		return nil, fmt.Errorf("pool requires at least one endpoint")
	}

	if window <= 0 {
		window = DefaultRecoveryWindow
	}

	return &Pool{
		endpoints: endpoints,
		window:    window,
		now:       now,
	}, nil
}

// SelectEndpoint returns the endpoint for the next delivery attempt and
// advances the shared cursor past it.
//
// Starting at the cursor, it scans the pool in order, wrapping, for up
// to one full cycle: an available endpoint is returned immediately, and
// a demoted endpoint whose recovery window has elapsed is flipped back
// to available and returned. If the whole pool is demoted inside the
// window, the endpoint at the original cursor position is returned
// anyway; selection never fails.
func (p *Pool) SelectEndpoint() *endpoint.Endpoint {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	n := len(p.endpoints)
	start := p.next
	now := p.now()

	for i := 0; i < n; i++ {
		pos := (start + i) % n
		if p.endpoints[pos].TryRecover(now, p.window) {
			p.next = (pos + 1) % n
			return p.endpoints[pos]
		}
	}

	// Whole pool demoted: hand back the endpoint the cursor was on.
	// The caller will surface whatever the upstream says.
	p.next = (start + 1) % n
	return p.endpoints[start]
}

// MarkUnavailable demotes the given endpoint, stamping the failure time
// and incrementing its cumulative failure count.
func (p *Pool) MarkUnavailable(e *endpoint.Endpoint) {
	e.MarkUnavailable(p.now())
}

// HealthSnapshot reports how many endpoints are currently selectable,
// the pool size, and the cursor position of the next selection. It does
// not mutate any health state.
func (p *Pool) HealthSnapshot() Snapshot {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	available := 0
	for _, e := range p.endpoints {
		if e.Available() {
			available++
		}
	}

	return Snapshot{
		AvailableCount: available,
		TotalCount:     len(p.endpoints),
		CurrentIndex:   p.next,
	}
}

// Endpoints returns the configured endpoints in pool order.
func (p *Pool) Endpoints() []*endpoint.Endpoint {
	return p.endpoints
}
