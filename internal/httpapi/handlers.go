package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/DoyleJ11/typing-battle-backend/internal/archive"
	"github.com/DoyleJ11/typing-battle-backend/internal/hub"
	wire "github.com/DoyleJ11/typing-battle-backend/pkg/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RoomLister is the part of the hub the REST routes read.
type RoomLister interface {
	Available() []wire.RoomInfo
}

type MatchHistory interface {
	Recent(ctx context.Context, room string, limit int) ([]archive.Match, error)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func ListRooms(rooms RoomLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, wire.RoomList{Rooms: rooms.Available()})
	}
}

func RecentMatches(history MatchHistory, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := hub.NormalizeName(chi.URLParam(r, "name"))
		if name == "" {
			http.Error(w, "missing room name", http.StatusBadRequest)
			return
		}

		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "bad limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		matches, err := history.Recent(r.Context(), name, limit)
		if err != nil {
			logger.Error("load recent matches", zap.String("room", name), zap.Error(err))
			http.Error(w, "failed to load matches", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Room    string          `json:"room"`
			Matches []archive.Match `json:"matches"`
		}{Room: name, Matches: matches})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
