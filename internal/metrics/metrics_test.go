package metrics_test

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/rpc-proxy/internal/metrics"
)

func TestMetrics(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Metrics Suite")
}

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should create a new metrics instance", func() {
			Expect(m).NotTo(BeNil())
		})
	})

	Describe("IncrementRequests", func() {
		It("should count inbound requests", func() {
			m.IncrementRequests()
			m.IncrementRequests()

			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(2)))
		})
	})

	Describe("RecordAttempt", func() {
		It("should track attempts per endpoint", func() {
			m.RecordAttempt("https://rpc-a.example.org")
			m.RecordAttempt("https://rpc-a.example.org")
			m.RecordAttempt("https://rpc-b.example.org")

			snap := m.Snapshot()
			Expect(snap.Endpoints["https://rpc-a.example.org"].Attempts).To(Equal(int64(2)))
			Expect(snap.Endpoints["https://rpc-b.example.org"].Attempts).To(Equal(int64(1)))
		})
	})

	Describe("RecordRateLimited", func() {
		It("should track demotions per endpoint", func() {
			m.RecordRateLimited("https://rpc-a.example.org")
			m.RecordRateLimited("https://rpc-a.example.org")

			snap := m.Snapshot()
			Expect(snap.Endpoints["https://rpc-a.example.org"].RateLimited).To(Equal(int64(2)))
		})
	})

	Describe("RecordResponse", func() {
		It("should track response times and status codes", func() {
			m.RecordResponse("https://rpc-a.example.org", 100*time.Millisecond, 200)
			m.RecordResponse("https://rpc-a.example.org", 200*time.Millisecond, 200)
			m.RecordResponse("https://rpc-a.example.org", 300*time.Millisecond, 500)

			snap := m.Snapshot()
			em := snap.Endpoints["https://rpc-a.example.org"]
			Expect(em.AvgResponse).To(Equal(200 * time.Millisecond))
			Expect(em.StatusCodes[200]).To(Equal(int64(2)))
			Expect(em.StatusCodes[500]).To(Equal(int64(1)))
		})

		It("should compute percentiles from recorded durations", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("https://rpc-a.example.org", time.Duration(i)*time.Millisecond, 200)
			}

			snap := m.Snapshot()
			em := snap.Endpoints["https://rpc-a.example.org"]
			Expect(em.P50Response).To(Equal(51 * time.Millisecond))
			Expect(em.P95Response).To(Equal(96 * time.Millisecond))
			Expect(em.P99Response).To(Equal(100 * time.Millisecond))
		})

		It("should count status codes past the stored response time window", func() {
			for i := 0; i < 1500; i++ {
				m.RecordResponse("https://rpc-a.example.org", time.Millisecond, 200)
			}

			snap := m.Snapshot()
			Expect(snap.Endpoints["https://rpc-a.example.org"].StatusCodes[200]).To(Equal(int64(1500)))
		})
	})

	Describe("Snapshot", func() {
		It("should detach status codes from later recordings", func() {
			m.RecordResponse("https://rpc-a.example.org", time.Millisecond, 200)

			snap := m.Snapshot()

			m.RecordResponse("https://rpc-a.example.org", time.Millisecond, 200)
			m.RecordResponse("https://rpc-a.example.org", time.Millisecond, 429)

			Expect(snap.Endpoints["https://rpc-a.example.org"].StatusCodes[200]).To(Equal(int64(1)))
			Expect(snap.Endpoints["https://rpc-a.example.org"].StatusCodes).NotTo(HaveKey(429))
		})

		It("should stay stable while responses keep arriving", func() {
			m.RecordResponse("https://rpc-a.example.org", time.Millisecond, 200)

			snap := m.Snapshot()

			done := make(chan struct{})
			go func() {
				defer close(done)
				for i := 0; i < 1000; i++ {
					m.RecordResponse("https://rpc-a.example.org", time.Millisecond, 200)
				}
			}()

			for i := 0; i < 100; i++ {
				Expect(snap.Endpoints["https://rpc-a.example.org"].StatusCodes[200]).To(Equal(int64(1)))
			}
			<-done
		})

		It("should include uptime", func() {
			snap := m.Snapshot()
			Expect(snap.Uptime).To(BeNumerically(">=", 0))
		})

		It("should be empty when nothing was recorded", func() {
			snap := m.Snapshot()
			Expect(snap.TotalRequests).To(Equal(int64(0)))
			Expect(snap.Endpoints).To(BeEmpty())
		})
	})
})
