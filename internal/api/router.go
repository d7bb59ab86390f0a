package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type RouterOptions struct {
	AllowedOrigins    []string
	ChatRatePerMinute int // <= 0 disables chat throttling
}

func NewRouter(apiHandler *APIHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(apiHandler.logger))
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		failure(w, http.StatusNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		failure(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", apiHandler.HealthHandler)

		r.Get("/books", apiHandler.ListBooksHandler)
		r.Get("/books/{bookID}", apiHandler.GetBookHandler)
		r.Get("/books/{bookID}/chapters/{chapter}", apiHandler.GetChapterHandler)

		r.Get("/verses/search", apiHandler.SearchVersesHandler)
		r.Get("/verses/daily", apiHandler.DailyVerseHandler)

		r.Get("/bookmarks", apiHandler.ListBookmarksHandler)
		r.Post("/bookmarks", apiHandler.AddBookmarkHandler)
		r.Delete("/bookmarks/{bookmarkID}", apiHandler.DeleteBookmarkHandler)

		r.Get("/chat/messages", apiHandler.ListMessagesHandler)
		r.Delete("/chat/messages", apiHandler.ClearMessagesHandler)
		r.With(rateLimit(opts.ChatRatePerMinute)).Post("/chat/messages", apiHandler.PostMessageHandler)

		r.Get("/settings/ai", apiHandler.GetAISettingsHandler)
		r.Put("/settings/ai", apiHandler.UpdateAISettingsHandler)
	})

	return r
}

// rateLimit throttles a route to perMinute requests with an equal burst.
func rateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				failure(w, http.StatusTooManyRequests, "Too many messages, please slow down", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("HTTP request",
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)))
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
