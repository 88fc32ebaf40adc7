package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voltmap/voltmap/internal/auth"
	"github.com/voltmap/voltmap/internal/catalog"
	"github.com/voltmap/voltmap/internal/config"
	"github.com/voltmap/voltmap/internal/db"
	"github.com/voltmap/voltmap/internal/diagram"
	"github.com/voltmap/voltmap/internal/editor"
	"github.com/voltmap/voltmap/internal/export"
	"github.com/voltmap/voltmap/internal/graphstore"
	mw "github.com/voltmap/voltmap/internal/middleware"
	"github.com/voltmap/voltmap/internal/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	authService := auth.NewService(pool, cfg.JWTSecret)
	if err := authService.EnsureSchema(ctx); err != nil {
		slog.Error("ensure auth schema", "error", err)
		os.Exit(1)
	}
	authHandler := auth.NewHandler(authService)

	store, err := buildStore(ctx, cfg, pool)
	if err != nil {
		slog.Error("build graph store", "error", err)
		os.Exit(1)
	}

	opts := editor.Options{
		InitialScale:   cfg.InitialScale,
		InitialOffsetX: cfg.InitialOffsetX,
		InitialOffsetY: cfg.InitialOffsetY,
		DragThreshold:  cfg.DragThreshold,
		ZoomFactor:     cfg.ZoomFactor,
		GridMin:        cfg.GridMin,
		GridMax:        cfg.GridMax,
		GridStep:       cfg.GridStep,
		FitPadding:     cfg.FitPadding,
		MaxFitScale:    cfg.MaxFitScale,
	}

	hub := session.NewHub(store, opts)
	go hub.Run()

	catalogHandler := catalog.NewHandler(store)
	exportHandler := export.NewHandler(store)

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	// Auth routes (public)
	r.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Export endpoint (public — used by viewers without accounts)
	r.HandleFunc("/export/svg", exportHandler.ExportSVG).Methods("GET", "OPTIONS")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/diagrams", catalogHandler.List).Methods("GET")
	api.HandleFunc("/layout", catalogHandler.GetLayout).Methods("GET")

	// WebSocket endpoint: one room per diagram
	r.HandleFunc("/ws/diagram", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg)
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "store", cfg.StoreBackend, "profile", cfg.DefaultProfile)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// buildStore selects the graph store backend. The Postgres store gets
// its schema ensured and, when empty, is seeded with the sample
// substation so a fresh install has something to open.
func buildStore(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) (graphstore.Store, error) {
	profile := graphstore.Profile(cfg.DefaultProfile)

	switch cfg.StoreBackend {
	case "postgres":
		store, err := graphstore.NewPgStore(pool, profile)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		diagrams, err := store.ListDiagrams(ctx)
		if err != nil {
			return nil, err
		}
		if len(diagrams) == 0 {
			d, glue := diagram.NewSampleDiagram()
			if err := store.SaveLayout(ctx, d, glue); err != nil {
				return nil, err
			}
			slog.Info("seeded sample diagram", "iri", d.IRI)
		}
		return store, nil

	case "sparql":
		return graphstore.NewSparqlStore(cfg.SparqlEndpoint, profile)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *session.Hub, authSvc *auth.Service, cfg *config.Config) {
	diagramIRI := r.URL.Query().Get("diagram")
	if diagramIRI == "" {
		http.Error(w, "missing diagram", http.StatusBadRequest)
		return
	}

	var userID string
	var displayName string

	// Auth via query param; browsers cannot set headers on websocket
	// upgrades. Connections without a token join as viewers with an
	// anonymous identity.
	token := r.URL.Query().Get("token")
	if token == "" {
		userID = "anon-" + uuid.New().String()[:8]
		displayName = "Anonymous"
	} else {
		var err error
		userID, err = authSvc.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		user, err := authSvc.GetUser(r.Context(), userID)
		if err != nil {
			http.Error(w, "user not found", http.StatusInternalServerError)
			return
		}
		displayName = user.DisplayName
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(cfg.Origins()),
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	clientID := uuid.New().String()
	client := session.NewClient(hub, conn, userID, displayName, diagramIRI, clientID)

	hub.Register(client)
	client.Run(r.Context())
}

// originPatterns strips URL schemes; the websocket library matches
// origins by host pattern.
func originPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimPrefix(o, "https://")
		o = strings.TrimPrefix(o, "http://")
		patterns = append(patterns, o)
	}
	return patterns
}
