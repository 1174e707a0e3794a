package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/happymalyo/elloms-crew-api/internal/domain/ports/adapter"
	"github.com/happymalyo/elloms-crew-api/internal/infra/logging"
	red "github.com/happymalyo/elloms-crew-api/internal/infra/redis"
	"github.com/happymalyo/elloms-crew-api/internal/usecase"
)

type Server struct {
	jobUC  usecase.JobUseCase
	convUC usecase.ConversationUseCase
	userUC usecase.UserUseCase
	crew   adapter.CrewAdapter
	auth   *AuthManager

	// limiter is optional; nil disables submit rate limiting.
	limiter     *red.RateLimiter
	submitLimit int
	submitWin   time.Duration

	log *zerolog.Logger
}

func NewServer(
	jobUC usecase.JobUseCase,
	convUC usecase.ConversationUseCase,
	userUC usecase.UserUseCase,
	crew adapter.CrewAdapter,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		jobUC:  jobUC,
		convUC: convUC,
		userUC: userUC,
		crew:   crew,
		auth:   auth,
		log:    logger,
	}
}

// EnableRateLimit turns on per-user submit throttling.
func (s *Server) EnableRateLimit(limiter *red.RateLimiter, limit int, window time.Duration) {
	s.limiter = limiter
	s.submitLimit = limit
	s.submitWin = window
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", registerHandler(s.userUC))
		r.Post("/auth/login", loginHandler(s.userUC, s.auth))

		r.Group(func(r chi.Router) {
			r.Use(s.auth.Middleware)

			r.Get("/crew/status", crewStatusHandler(s.crew))

			r.Route("/jobs", func(r chi.Router) {
				r.With(s.submitRateLimit).Post("/", submitJobHandler(s.jobUC))
				r.Get("/", listJobsHandler(s.jobUC))
				r.Get("/{jobID}", getJobHandler(s.jobUC))
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", createConversationHandler(s.convUC))
				r.Get("/", listConversationsHandler(s.convUC))
				r.Get("/{conversationID}/messages", listMessagesHandler(s.convUC))
				r.Post("/{conversationID}/messages", appendMessageHandler(s.convUC))
			})
		})
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		log := logging.With(ctx, s.log)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// submitRateLimit throttles job submission per user. Limiter failures fail
// open: a broken Redis must not take down job submission.
func (s *Server) submitRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || s.submitLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		ok, err := s.limiter.Allow(r.Context(), red.SubmitKey(UserID(r)), s.submitLimit, s.submitWin)
		if err != nil {
			s.log.Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			http.Error(w, "Too many job submissions", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
