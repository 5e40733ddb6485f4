package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/fungiquest/internal/auth"
	"github.com/mind-engage/fungiquest/internal/backend"
	"github.com/mind-engage/fungiquest/internal/content"
	"github.com/mind-engage/fungiquest/internal/events"
	"github.com/mind-engage/fungiquest/internal/logger"
	"github.com/mind-engage/fungiquest/internal/rbac"
	"github.com/mind-engage/fungiquest/internal/storage"
)

// Deps is everything the gateway's routes are built from.
type Deps struct {
	Store   backend.Store
	Content *content.Client
	Auth    *auth.Handlers
	APIKey  string
	Blobs   storage.BlobStore
	Events  *events.Log
	Log     *logger.Logger

	CORSOrigins []string
	Timeout     time.Duration
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Timeout <= 0 {
		d.Timeout = 30 * time.Second
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(d.Timeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "apikey", "Prefer"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/health", HealthHandler())

	// Sign-in endpoints are open; everything they hand out is a bearer token.
	r.Route("/auth/v1", func(ar chi.Router) {
		ar.Post("/signup", d.Auth.Signup())
		ar.Post("/token", d.Auth.Token())
		ar.Post("/otp", d.Auth.OTP())
		ar.Get("/verify", d.Auth.Verify())
		ar.Post("/verify", d.Auth.Verify())
		ar.With(auth.JWTMiddleware(d.Auth.Svc, d.APIKey)).Get("/user", d.Auth.CurrentUser())
	})

	if d.Blobs != nil {
		r.Route("/assets", func(ar chi.Router) {
			ar.Get("/*", GetAssetHandler(d.Blobs))
			ar.With(auth.JWTMiddleware(d.Auth.Svc, d.APIKey), rbac.Require("asset:upload")).
				Put("/*", PutAssetHandler(d.Blobs))
		})
	}

	// Protected API (API key or user JWT -> role in context -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth.Svc, d.APIKey))

		pr.With(rbac.Require("content:read")).Get("/lessons", ListLessonsHandler(d.Content))
		pr.With(rbac.Require("content:read")).Get("/questions", ListQuestionsHandler(d.Content))
		pr.With(rbac.Require("content:read")).Get("/questions/random", RandomQuestionHandler(d.Content))
		pr.With(rbac.Require("content:read")).Get("/questions/{id}", GetQuestionHandler(d.Content))
		pr.With(rbac.Require("answer:submit")).Post("/questions/{id}/submit", SubmitAnswerHandler(d.Content, d.Log))

		// Table handlers check per-table permissions themselves.
		pr.Get("/rest/v1/{table}", SelectTableHandler(d.Store))
		pr.Post("/rest/v1/{table}", UpsertTableHandler(d.Store, d.Content, d.Events, d.Log))

		if d.Events != nil {
			// Content editors audit the log too.
			pr.With(rbac.RequireAny("events:read", "content:write")).Get("/admin/events", ListEventsHandler(d.Events))
		}
	})

	return r
}
