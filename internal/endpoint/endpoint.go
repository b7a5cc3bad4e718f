package endpoint

import (
	"net/url"
	"sync"
	"time"
)

// Endpoint represents one upstream RPC provider with its availability
// status, last demotion time, and cumulative failure count.
type Endpoint struct {
	url          *url.URL
	mutex        sync.Mutex
	available    bool
	lastFailure  time.Time
	failureCount uint64
}

// URL returns the endpoint's address.
func (e *Endpoint) URL() *url.URL {
	return e.url
}

// Available returns true if the endpoint may currently be selected.
func (e *Endpoint) Available() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.available
}

// MarkUnavailable demotes the endpoint, stamping the failure time and
// incrementing the cumulative failure count. Safe to call repeatedly;
// each call re-stamps the time and counts another failure.
func (e *Endpoint) MarkUnavailable(now time.Time) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.available = false
	e.lastFailure = now
	e.failureCount++
}

// TryRecover flips a demoted endpoint back to available if its recovery
// window has elapsed. Returns true if the endpoint is selectable after
// the call. The failure count is never reset.
func (e *Endpoint) TryRecover(now time.Time, window time.Duration) bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.available {
		return true
	}

	if now.Sub(e.lastFailure) > window {
		e.available = true
		return true
	}

	return false
}

// FailureCount returns the cumulative number of demotions.
func (e *Endpoint) FailureCount() uint64 {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.failureCount
}

// LastFailure returns the time of the most recent demotion.
// The zero time means the endpoint has never been demoted.
func (e *Endpoint) LastFailure() time.Time {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastFailure
}

// New creates a new Endpoint with the given URL.
// The endpoint starts available.
func New(url *url.URL) *Endpoint {
	return &Endpoint{
		url:       url,
		available: true,
	}
}
