package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type api struct {
	Deps
}

// NewMux assembles the REST surface. The returned handler is transport
// agnostic: it serves equally from net/http and from the dual-protocol
// connection layer.
func NewMux(deps Deps) http.Handler {
	a := &api{Deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
	})

	MountSwagger(r)

	r.Get("/", a.handleIndex)
	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/offer", a.handleOffer)
	r.Post("/webrtc/answer", a.handleAnswer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/generate", a.handleGenerate)
		r.Post("/chat", a.handleChat)
		r.Post("/embeddings", a.handleEmbeddings)

		r.Get("/tags", a.handleTags)
		r.Get("/ps", a.handlePS)
		r.Post("/pull", a.handlePull)
		r.Get("/pull/status", a.handlePullStatus)
		r.Delete("/delete", a.handleDelete)
		r.Post("/copy", a.handleCopy)
		r.Post("/show", a.handleShow)

		r.Get("/status", a.handleStatus)
		r.Post("/settings/thinking", a.handleThinking)

		r.Route("/chats", func(r chi.Router) {
			r.Get("/", a.handleListChats)
			r.Post("/", a.handleCreateChat)
			r.Route("/{chatID}", func(r chi.Router) {
				r.Get("/", a.handleGetChat)
				r.Put("/", a.handleUpdateChat)
				r.Delete("/", a.handleDeleteChat)
				r.Post("/messages", a.handleAddMessage)
				r.Delete("/messages/{messageID}", a.handleDeleteMessage)
				r.Post("/title", a.handleGenerateTitle)
				r.Put("/model", a.handleSetChatModel)
			})
		})

		r.Post("/files/ingest", a.handleIngest)
		r.Route("/rag", func(r chi.Router) {
			r.Get("/status", a.handleRagStatus)
			r.Post("/enable", a.handleRagEnable)
			r.Get("/search", a.handleRagSearch)
			r.Delete("/documents/{name}", a.handleRagDelete)
		})

		r.Route("/models", func(r chi.Router) {
			r.Get("/", a.handleListBackends)
			r.Post("/", a.handleSelectBackend)
			r.Post("/apple-foundation", a.handleAppleFoundation)
			r.Route("/remote/{provider}", func(r chi.Router) {
				r.Get("/status", a.handleProviderStatus)
				r.Post("/enable", a.handleProviderEnable)
				r.Post("/disable", a.handleProviderDisable)
				r.Post("/key", a.handleProviderKey)
			})
		})
	})

	return r
}

// requestLogger emits one structured line per request.
func (a *api) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(rec, r)
		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}
		a.Log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
