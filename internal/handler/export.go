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

const defaultExportLimit = 20

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

func (h *ExportHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateExport)
	r.Get("/", h.ListExports)
	r.Get("/{exportID}", h.GetExport)
	r.Delete("/{exportID}", h.DeleteExport)

	return r
}

// POST /api/v1/exports
func (h *ExportHandler) CreateExport(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var input service.CreateExportInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	export, err := h.exportService.CreateExport(r.Context(), input, user.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to create export")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, export)
}

// GET /api/v1/exports
func (h *ExportHandler) ListExports(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	params := ParsePagination(r, defaultExportLimit)

	result, err := h.exportService.ListExports(r.Context(), user.ID, params.Page, params.Limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list exports")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GET /api/v1/exports/{exportID}
func (h *ExportHandler) GetExport(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	exportID := chi.URLParam(r, "exportID")
	if !util.IsValidUUID(exportID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid export id"})
		return
	}

	export, err := h.exportService.GetExport(r.Context(), exportID, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, export)
}

// DELETE /api/v1/exports/{exportID}
func (h *ExportHandler) DeleteExport(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())
	exportID := chi.URLParam(r, "exportID")
	if !util.IsValidUUID(exportID) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid export id"})
		return
	}

	if err := h.exportService.DeleteExport(r.Context(), exportID, user.ID); err != nil {
		log.Error().Err(err).Str("exportId", exportID).Msg("failed to delete export")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
