package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/statustree/internal/data"
	"github.com/udisondev/statustree/internal/metrics"
	"github.com/udisondev/statustree/internal/model"
	"github.com/udisondev/statustree/internal/stat"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics and read-only tree endpoints",
		Long: `Load every definition from definitions_dir, reload them on change when
watch_definitions is set, and serve over HTTP:

  GET /metrics        Prometheus metrics
  GET /trees          names of the loaded definitions
  GET /trees/{name}   freshly built tree with every node value;
                      repeat ?add=key=delta or ?set=key=value to apply writes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	collector := metrics.NewCollector(cfg.Metrics, nil)
	stat.SetRecorder(collector)
	defer stat.SetRecorder(nil)

	registry := data.NewRegistry(collector)
	if _, err := registry.LoadDir(ctx, cfg.DefinitionsDir); err != nil {
		return fmt.Errorf("loading definitions: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           newServeMux(registry, collector),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("starting http server", "addr", cfg.HTTPAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		slog.Info("http server stopped")
		return nil
	})
	if cfg.WatchDefinitions {
		g.Go(func() error {
			if err := data.WatchRegistry(gctx, registry, cfg.DefinitionsDir, cfg.WatchDebounce); err != nil {
				return fmt.Errorf("definitions watcher: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func newServeMux(registry *data.Registry, collector *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", collector.Handler())
	mux.HandleFunc("GET /trees", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"trees": registry.Names()})
	})
	mux.HandleFunc("GET /trees/{name}", func(w http.ResponseWriter, r *http.Request) {
		serveTree(w, r, registry)
	})
	return mux
}

// treeResponse is the body of GET /trees/{name}.
type treeResponse struct {
	Name  string             `json:"name"`
	Value model.ReportValue  `json:"value"`
	Nodes []model.NodeReport `json:"nodes"`
}

func serveTree(w http.ResponseWriter, r *http.Request, registry *data.Registry) {
	name := r.PathValue("name")
	def, ok := registry.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("tree %q not found", name)})
		return
	}

	st := model.NewDataDrivenStat[string](def)
	if err := st.Setup(name); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	q := r.URL.Query()
	if err := applyWrites(st, evalFlags{set: q["set"], add: q["add"]}); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, treeResponse{Name: name, Value: model.ReportValue(st.Value()), Nodes: st.Report()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding response", "err", err)
		http.Error(w, "encoding response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Debug("writing response", "err", err)
	}
}
