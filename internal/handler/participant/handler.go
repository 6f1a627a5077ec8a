package participant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/maktab-chat/backend/internal/model/participant"
	"github.com/zhouzirui/maktab-chat/backend/pkg/utils"
)

// Handler serves the participant directory used for names and avatars.
type Handler struct {
	participants participant.Store
}

// New creates the participant handler.
func New(participants participant.Store) *Handler {
	return &Handler{participants: participants}
}

// RegisterRoutes mounts the participant routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/participants", h.handleList)
	r.Get("/participants/{participantID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.participants.List())
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := h.participants.FindByID(chi.URLParam(r, "participantID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "participant not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}
