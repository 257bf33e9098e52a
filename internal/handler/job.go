package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/telegram-manager/manager-server-go/internal/middleware"
	"github.com/telegram-manager/manager-server-go/internal/service"
)

const defaultJobLimit = 20

type JobHandler struct {
	telegramService *service.TelegramService
}

func NewJobHandler(telegramService *service.TelegramService) *JobHandler {
	return &JobHandler{
		telegramService: telegramService,
	}
}

func (h *JobHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListJobs)

	return r
}

// GET /api/v1/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	params := ParsePagination(r, defaultJobLimit)

	result, err := h.telegramService.ListJobs(r.Context(), user.ID, params.Page, params.Limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list jobs")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
