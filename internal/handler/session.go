package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/middleware"
	"github.com/telegram-manager/manager-server-go/internal/service"
	"github.com/telegram-manager/manager-server-go/internal/util"
)

type SessionHandler struct {
	telegramService *service.TelegramService
}

func NewSessionHandler(telegramService *service.TelegramService) *SessionHandler {
	return &SessionHandler{
		telegramService: telegramService,
	}
}

func (h *SessionHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateSession)
	r.Get("/", h.ListSessions)
	r.Post("/{sessionID}/verify", h.VerifySession)
	r.Get("/{sessionID}/dialogs", h.ListDialogs)
	r.Post("/{sessionID}/sync-dialogs", h.SyncDialogs)
	r.Post("/{sessionID}/sync-contacts", h.SyncContacts)
	r.Delete("/{sessionID}", h.CloseSession)

	return r
}

// POST /api/v1/sessions
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var input service.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	session, err := h.telegramService.CreateSession(r.Context(), input, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to create session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	sessions, err := h.telegramService.ListSessions(r.Context(), user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to list sessions")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

// POST /api/v1/sessions/{sessionID}/verify
func (h *SessionHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session id"})
		return
	}

	var body struct {
		Code     string `json:"code"`
		Password string `json:"password,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Code is required"})
		return
	}

	result, err := h.telegramService.VerifySession(r.Context(), sessionID, body.Code, body.Password)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to verify session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/sessions/{sessionID}/dialogs
func (h *SessionHandler) ListDialogs(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session id"})
		return
	}

	dialogs, err := h.telegramService.ListDialogs(r.Context(), sessionID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to list dialogs")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"dialogs": dialogs})
}

// POST /api/v1/sessions/{sessionID}/sync-dialogs
func (h *SessionHandler) SyncDialogs(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session id"})
		return
	}

	result, err := h.telegramService.SyncDialogs(r.Context(), sessionID, user.ID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("dialog sync failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// POST /api/v1/sessions/{sessionID}/sync-contacts
func (h *SessionHandler) SyncContacts(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session id"})
		return
	}

	result, err := h.telegramService.SyncContacts(r.Context(), sessionID, user.ID)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("contact sync failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DELETE /api/v1/sessions/{sessionID}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	sessionID := chi.URLParam(r, "sessionID")
	if !util.IsValidUUID(sessionID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid session id"})
		return
	}

	if err := h.telegramService.CloseSession(r.Context(), sessionID, user.ID); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("failed to close session")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
