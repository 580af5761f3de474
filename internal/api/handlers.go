package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"arena-brawl/internal/room"
)

// Handler methods for routerHandlers.
// These are used by both the standalone router (for testing) and the full Server.

func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.registry.ListPublic())
}

func (h *routerHandlers) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(chi.URLParam(r, "id"))
	if !room.ValidCode(code) {
		writeError(w, room.ErrInvalidCode.Error(), http.StatusBadRequest)
		return
	}
	rm, ok := h.registry.Get(code)
	if !ok {
		writeError(w, room.ErrRoomNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, rm.Info())
}

func (h *routerHandlers) handleGetWeapons(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.registry.Catalog().All())
}

// handleGetLeaderboard returns the top entries; ?limit= caps the list
// (default 10, at most 100).
func (h *routerHandlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, 100)
	}
	writeJSON(w, h.registry.Leaderboard().GetTop(limit))
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"rooms": h.registry.Stats(),
	}
	if h.hub != nil {
		stats["connections"] = h.hub.ClientCount()
	}
	writeJSON(w, stats)
}

func (h *routerHandlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"rooms":  h.registry.Count(),
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
