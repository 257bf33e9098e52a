package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/middleware"
	"github.com/telegram-manager/manager-server-go/internal/service"
	"github.com/telegram-manager/manager-server-go/internal/util"
)

const defaultMemberLimit = 50

type DialogHandler struct {
	telegramService *service.TelegramService
}

func NewDialogHandler(telegramService *service.TelegramService) *DialogHandler {
	return &DialogHandler{
		telegramService: telegramService,
	}
}

func (h *DialogHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{dialogID}/members", h.ListMembers)
	r.Post("/{dialogID}/collect-members", h.CollectMembers)

	return r
}

// GET /api/v1/dialogs/{dialogID}/members
func (h *DialogHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	dialogID := chi.URLParam(r, "dialogID")
	if !util.IsValidUUID(dialogID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid dialog id"})
		return
	}

	params := ParsePagination(r, defaultMemberLimit)

	result, err := h.telegramService.ListMembers(r.Context(), dialogID, params.Page, params.Limit)
	if err != nil {
		log.Error().Err(err).Str("dialogId", dialogID).Msg("failed to list members")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/v1/dialogs/{dialogID}/collect-members
func (h *DialogHandler) CollectMembers(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	dialogID := chi.URLParam(r, "dialogID")
	if !util.IsValidUUID(dialogID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid dialog id"})
		return
	}

	result, err := h.telegramService.StartCollectMembers(r.Context(), dialogID, user.ID)
	if err != nil {
		log.Error().Err(err).Str("dialogId", dialogID).Msg("failed to start member collection")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, result)
}
