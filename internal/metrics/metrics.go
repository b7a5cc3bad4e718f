package metrics

import (
	"maps"
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex         sync.RWMutex
	requests      int64
	attempts      map[string]int64
	rateLimited   map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                      `json:"total_requests"`
	Uptime        time.Duration              `json:"uptime"`
	Endpoints     map[string]EndpointMetrics `json:"endpoints"`
}

type EndpointMetrics struct {
	Attempts    int64         `json:"attempts"`
	RateLimited int64         `json:"rate_limited"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

func (m *Metrics) RecordAttempt(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.attempts[endpoint]++
}

func (m *Metrics) RecordRateLimited(endpoint string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.rateLimited[endpoint]++
}

func (m *Metrics) RecordResponse(endpoint string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responseTimes[endpoint] = append(m.responseTimes[endpoint], duration)

	if len(m.responseTimes[endpoint]) > 1000 {
		m.responseTimes[endpoint] = m.responseTimes[endpoint][1:]
	}

	if m.statusCodes[endpoint] == nil {
		m.statusCodes[endpoint] = make(map[int]int64)
	}
	m.statusCodes[endpoint][statusCode]++
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests: m.requests,
		Uptime:        time.Since(m.startTime),
		Endpoints:     make(map[string]EndpointMetrics),
	}

	// Collect all endpoint URLs that have any recorded data
	allEndpoints := make(map[string]bool)
	for endpoint := range m.attempts {
		allEndpoints[endpoint] = true
	}
	for endpoint := range m.rateLimited {
		allEndpoints[endpoint] = true
	}
	for endpoint := range m.responseTimes {
		allEndpoints[endpoint] = true
	}

	for endpoint := range allEndpoints {
		// Copy the status codes so the snapshot stays stable after the
		// lock is released; the collector keeps writing to the live map.
		em := EndpointMetrics{
			Attempts:    m.attempts[endpoint],
			RateLimited: m.rateLimited[endpoint],
			StatusCodes: maps.Clone(m.statusCodes[endpoint]),
		}

		durations := m.responseTimes[endpoint]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			em.AvgResponse = average(durations)
			em.P50Response = percentile(sorted, 0.50)
			em.P95Response = percentile(sorted, 0.95)
			em.P99Response = percentile(sorted, 0.99)
		}

		snap.Endpoints[endpoint] = em
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		attempts:      make(map[string]int64),
		rateLimited:   make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
