// Entry point for the refonte service: chi HTTP API, optional MCP
// stdio transport, SQLite artifact ledger.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/refonte/dbopen"
	"github.com/hazyhaar/refonte/dom"
	"github.com/hazyhaar/refonte/genai"
	"github.com/hazyhaar/refonte/ledger"
	"github.com/hazyhaar/refonte/page"
	"github.com/hazyhaar/refonte/pipeline"
	"github.com/hazyhaar/refonte/shield"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Ledger DB.
	db, err := dbopen.Open(cfg.LedgerDB, dbopen.WithMkdirAll(), dbopen.WithSchema(ledger.Schema))
	if err != nil {
		slog.Error("ledger db", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	store := ledger.NewStore(db, logger)
	defer store.Close()

	// Generative client. Without a base URL the pipeline runs in
	// fallback-only mode, which is a valid deployment.
	var client genai.Client
	if cfg.GenAI.BaseURL != "" {
		client = genai.NewHTTPClient(genai.Config{
			BaseURL:     cfg.GenAI.BaseURL,
			APIKey:      cfg.GenAI.APIKey,
			Model:       cfg.GenAI.Model,
			Timeout:     cfg.genaiTimeout(),
			Temperature: cfg.GenAI.Temperature,
			MaxTokens:   cfg.GenAI.MaxTokens,
		}, logger)
	} else {
		slog.Warn("no GENAI_BASE_URL configured, running fallback-only")
	}

	p := pipeline.New(client, pipeline.Config{
		Variants:      cfg.Pipeline.Variants,
		MaxConcurrent: cfg.Pipeline.MaxConcurrent,
		Throttle:      cfg.throttle(),
	}, logger)
	p.SetSink(store)

	// MCP stdio mode: serve tools over stdin/stdout, no HTTP.
	if cfg.MCPTransport == "stdio" {
		srv := mcp.NewServer(&mcp.Implementation{
			Name:    "refonte",
			Version: "1.0.0",
		}, nil)
		p.RegisterMCP(srv)
		slog.Info("MCP stdio starting")
		if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
			slog.Error("MCP stdio", "error", err)
			os.Exit(1)
		}
		return
	}

	// Router.
	r := chi.NewRouter()
	r.Use(shield.RequestID)
	r.Use(shield.RequestLogger(logger))
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxBody(8 << 20))
	r.Use(shield.NewRateLimiter(120, time.Minute).Middleware)

	health := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	}
	r.Get("/health", health)
	r.Get("/api/health", health)

	r.Post("/api/analyze", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			SourceHTML string `json:"source_html"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		doc, err := dom.ParseString(body.SourceHTML)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		writeJSON(w, 200, page.Analyze(doc))
	})

	r.Post("/api/build", func(w http.ResponseWriter, req *http.Request) {
		var body pipeline.BuildRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		arts, err := p.Build(req.Context(), body)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		writeJSON(w, 200, arts)
	})

	r.Post("/api/mutate", func(w http.ResponseWriter, req *http.Request) {
		var body pipeline.MutateRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		res, err := p.Mutate(req.Context(), body)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		writeJSON(w, 200, res)
	})

	r.Post("/api/repair", func(w http.ResponseWriter, req *http.Request) {
		var body pipeline.RepairRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, 400, err)
			return
		}
		art, err := p.Repair(req.Context(), body)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		writeJSON(w, 200, art)
	})

	r.Get("/api/artifacts", func(w http.ResponseWriter, req *http.Request) {
		arts, err := store.Recent(req.Context(), queryInt(req, "limit", 50))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, arts)
	})

	r.Get("/api/artifacts/{id}", func(w http.ResponseWriter, req *http.Request) {
		art, err := store.Get(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, 404, err)
			return
		}
		writeJSON(w, 200, art)
	})

	r.Get("/api/artifacts/{id}/lineage", func(w http.ResponseWriter, req *http.Request) {
		chain, err := store.Lineage(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, 404, err)
			return
		}
		writeJSON(w, 200, chain)
	})

	// HTTP server.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
