package orchestrator_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/jonwraymond/callrt/auth"
	"github.com/jonwraymond/callrt/clock"
	"github.com/jonwraymond/callrt/configbag"
	"github.com/jonwraymond/callrt/interceptor"
	"github.com/jonwraymond/callrt/orchestrator"
)

func Example() {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "signed at %s", r.Header.Get(auth.HeaderRequestTime))
	}))
	defer srv.Close()

	epoch := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client, err := orchestrator.New(orchestrator.Config{
		Signer:      auth.NewBearerSigner(auth.BearerSignerConfig{}),
		Credentials: auth.NewStaticProvider("AKID", "secret", ""),
		Interceptors: []interceptor.Interceptor{
			interceptor.BeforeSigningFunc("epoch", func(_ context.Context, _ *interceptor.Context, cfg *configbag.Bag) error {
				configbag.Store(cfg, clock.NewSharedTimeSource(clock.NewStaticTimeSource(epoch)))
				return nil
			}),
		},
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	op := orchestrator.OperationSpec{
		Service: "demo",
		Name:    "Echo",
		Build: func(ctx context.Context, _ any) (*http.Request, error) {
			return http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
		},
		Parse: func(_ context.Context, resp *http.Response) (any, error) {
			b, err := io.ReadAll(resp.Body)
			return string(b), err
		},
	}

	out, err := client.Customize(op).
		Interceptor(interceptor.BeforeSigningFunc("advance", func(_ context.Context, _ *interceptor.Context, cfg *configbag.Bag) error {
			now := configbag.LoadOr(cfg, clock.SharedTimeSource{}).Now()
			configbag.Store(cfg, clock.NewSharedTimeSource(clock.NewStaticTimeSource(now.Add(90*time.Second))))
			return nil
		})).
		Send(context.Background(), nil)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(out)
	// Output:
	// signed at 2024-01-01T00:01:30Z
}
