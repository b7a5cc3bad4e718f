// Package pool implements the endpoint pool manager. It owns the fixed,
// ordered set of upstream endpoints and the shared round-robin cursor,
// selects the endpoint for each delivery attempt, records demotions, and
// lazily recovers demoted endpoints once their recovery window elapses.
package pool
