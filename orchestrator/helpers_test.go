package orchestrator

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/observe"
)

// hit is what the test server saw for one request.
type hit struct {
	method string
	path   string
	header http.Header
	body   string
}

// testServer answers with a scripted sequence of statuses, repeating the
// last one.
type testServer struct {
	*httptest.Server

	mu       sync.Mutex
	statuses []int
	hits     []hit
}

func newTestServer(t *testing.T, statuses ...int) *testServer {
	t.Helper()
	if len(statuses) == 0 {
		statuses = []int{http.StatusOK}
	}
	s := &testServer{statuses: statuses}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.hits = append(s.hits, hit{method: r.Method, path: r.URL.Path, header: r.Header.Clone(), body: string(body)})
		status := s.statuses[min(len(s.hits), len(s.statuses))-1]
		s.mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, http.StatusText(status))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *testServer) Hits() []hit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]hit, len(s.hits))
	copy(out, s.hits)
	return out
}

func getThing(baseURL string) OperationSpec {
	return OperationSpec{
		Service: "things",
		Name:    "GetThing",
		Build: func(ctx context.Context, _ any) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/things/1", nil)
		},
		Parse: func(_ context.Context, resp *http.Response) (any, error) {
			b, err := io.ReadAll(resp.Body)
			return string(b), err
		},
	}
}

var noSleep = clock.SleepFunc(func(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
})

func mustNew(t *testing.T, cfg Config) *Client {
	t.Helper()
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func newTestMetrics(t *testing.T) (observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := observe.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m, reader
}

// sumOf collects reader and totals the int64 sum metric called name.
func sumOf(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s data = %T, want Sum[int64]", name, m.Data)
			}
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	return total
}

func newBenchServer(b *testing.B) string {
	b.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	b.Cleanup(srv.Close)
	return srv.URL
}
