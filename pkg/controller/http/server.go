package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"

	"github.com/chiron-lab/chiron/pkg/service/graph"
	"github.com/chiron-lab/chiron/pkg/service/voice"
	"github.com/chiron-lab/chiron/pkg/usecase"
	"github.com/chiron-lab/chiron/pkg/utils/logging"
)

type Server struct {
	router   *chi.Mux
	uc       *usecase.UseCases
	graph    *graph.Graph
	voiceCfg voice.Config
}

type Options func(*Server)

// WithGraph enables the knowledge base endpoints
func WithGraph(g *graph.Graph) Options {
	return func(s *Server) {
		s.graph = g
	}
}

// WithVoiceConfig overrides the capture parameters used by voice streams
func WithVoiceConfig(cfg voice.Config) Options {
	return func(s *Server) {
		s.voiceCfg = cfg
	}
}

func New(uc *usecase.UseCases, opts ...Options) (*Server, error) {
	r := chi.NewRouter()

	s := &Server{
		router:   r,
		uc:       uc,
		voiceCfg: voice.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.voiceCfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid voice capture config for server")
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.handleChat)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleStartSession)
			r.Get("/", s.handleListSessions)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Get("/summary", s.handleSummary)
				r.Get("/insights", s.handleInsights)
				r.Get("/export", s.handleExport)
				r.Delete("/", s.handleResetSession)
			})
		})

		// Knowledge base endpoints (only when a graph is loaded)
		if s.graph != nil {
			r.Route("/graph", func(r chi.Router) {
				r.Get("/stats", s.handleGraphStats)
				r.Get("/search", s.handleGraphSearch)
				r.Get("/nodes/{nodeID}", s.handleGraphNode)
				r.Get("/nodes/{nodeID}/related", s.handleGraphRelated)
			})
		}
	})

	r.Get("/ws/voice", s.handleVoice)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger is a middleware that logs HTTP requests
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			logging.Default().Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
				"user_agent", r.UserAgent(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}
