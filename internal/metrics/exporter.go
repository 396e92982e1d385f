package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-raidguard/internal/logging"
)

// Exporter serves /metrics and /healthz for scraping.
type Exporter struct {
	server *http.Server
}

func NewRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func NewExporter(addr string) *Exporter {
	return &Exporter{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener synchronously so address errors surface here,
// then serves in the background.
func (e *Exporter) Start() error {
	ln, err := net.Listen("tcp", e.server.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := e.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Metrics server stopped: %v", err)
		}
	}()

	logging.Info("Metrics listening on %s", ln.Addr())
	return nil
}

func (e *Exporter) Shutdown(ctx context.Context) error {
	return e.server.Shutdown(ctx)
}
