package httpapi

import (
	"net/http"
	"time"

	"github.com/DoyleJ11/typing-battle-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Rooms      RoomLister
	History    MatchHistory // nil when the archive is disabled
	Dispatcher *ws.Dispatcher
	WS         ws.HandlerOptions
	Logger     *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Websocket upgrades skip the request logger, which wraps the writer.
	r.Get("/ws", ws.Handler(d.Dispatcher, d.WS, d.Logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(requestLogger(d.Logger))

		r.Get("/healthz", Healthz)
		r.Get("/rooms", ListRooms(d.Rooms))
		if d.History != nil {
			r.Get("/rooms/{name}/matches", RecentMatches(d.History, d.Logger))
		}
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
