package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth/v5"

	"codecourt/internal/api/handler"
	"codecourt/internal/app/poller"
	"codecourt/internal/app/service"
	"codecourt/internal/common/security"
)

func NewRouter(
	tokens *security.TokenManager,
	authService *service.AuthService,
	problemService *service.ProblemService,
	submissionService *service.SubmissionService,
	contestService *service.ContestService,
	proctorService *service.ProctorService,
	verdictPoller *poller.Poller,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	// Verifies a bearer token when present and puts claims in context;
	// enforcement happens in middleware.Authenticator on protected routes.
	r.Use(jwtauth.Verifier(tokens.Auth()))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api/v1", func(v1 chi.Router) {
		authHandler := handler.NewAuthHandler(authService)
		v1.Group(func(public chi.Router) {
			authHandler.RegisterRoutes(public)
		})

		problemHandler := handler.NewProblemHandler(problemService)
		v1.Route("/problems", problemHandler.RegisterRoutes)

		defaultCodeHandler := handler.NewDefaultCodeHandler(problemService)
		v1.Route("/defaultcode", defaultCodeHandler.RegisterRoutes)

		submissionHandler := handler.NewSubmissionHandler(submissionService, verdictPoller)
		v1.Route("/submissions", submissionHandler.RegisterRoutes)

		contestHandler := handler.NewContestHandler(contestService)
		v1.Group(func(contests chi.Router) {
			contestHandler.RegisterRoutes(contests)
		})

		proctorHandler := handler.NewProctorHandler(proctorService)
		v1.Route("/proctor", proctorHandler.RegisterRoutes)

		// Judge push notifications; best-effort, polling stays authoritative.
		callbackHandler := handler.NewCallbackHandler(submissionService)
		v1.Route("/callbacks", callbackHandler.RegisterRoutes)
	})

	return r
}
