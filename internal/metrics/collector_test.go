package metrics_test

import (
	"context"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/rpc-proxy/internal/metrics"
)

var _ = Describe("Collector", func() {
	var (
		collector *metrics.Collector
		log       *slog.Logger
		ctx       context.Context
		cancel    context.CancelFunc
	)

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelError, // Suppress logs in tests
		}))
		ctx, cancel = context.WithCancel(context.Background())
		collector = metrics.NewCollector(100, log)
	})

	AfterEach(func() {
		cancel()
		time.Sleep(10 * time.Millisecond) // Allow goroutine to finish
	})

	Describe("NewCollector", func() {
		It("should create a collector with specified buffer size", func() {
			c := metrics.NewCollector(500, log)
			Expect(c).NotTo(BeNil())
		})
	})

	Describe("EventChannel", func() {
		It("should return a write-only channel", func() {
			ch := collector.EventChannel()
			Expect(ch).NotTo(BeNil())
		})
	})

	Describe("Start and event processing", func() {
		BeforeEach(func() {
			collector.Start(ctx)
		})

		It("should process request events", func() {
			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventRequestReceived,
				Timestamp: time.Now(),
			}

			Eventually(func() int64 {
				return collector.Snapshot().TotalRequests
			}).Should(Equal(int64(1)))
		})

		It("should process attempt events", func() {
			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventAttempt,
				Timestamp: time.Now(),
				Endpoint:  "https://rpc-a.example.org",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Endpoints["https://rpc-a.example.org"].Attempts
			}).Should(Equal(int64(1)))
		})

		It("should process rate-limit events", func() {
			collector.EventChannel() <- metrics.MetricEvent{
				Type:      metrics.EventRateLimited,
				Timestamp: time.Now(),
				Endpoint:  "https://rpc-a.example.org",
			}

			Eventually(func() int64 {
				return collector.Snapshot().Endpoints["https://rpc-a.example.org"].RateLimited
			}).Should(Equal(int64(1)))
		})

		It("should process response events", func() {
			collector.EventChannel() <- metrics.MetricEvent{
				Type:       metrics.EventResponseCompleted,
				Timestamp:  time.Now(),
				Endpoint:   "https://rpc-a.example.org",
				Duration:   50 * time.Millisecond,
				StatusCode: 200,
			}

			Eventually(func() int64 {
				return collector.Snapshot().Endpoints["https://rpc-a.example.org"].StatusCodes[200]
			}).Should(Equal(int64(1)))
		})

		It("should drain pending events on shutdown", func() {
			for i := 0; i < 10; i++ {
				collector.EventChannel() <- metrics.MetricEvent{
					Type:      metrics.EventAttempt,
					Timestamp: time.Now(),
					Endpoint:  "https://rpc-a.example.org",
				}
			}

			cancel()

			Eventually(func() int64 {
				return collector.Snapshot().Endpoints["https://rpc-a.example.org"].Attempts
			}).Should(Equal(int64(10)))
		})
	})
})
