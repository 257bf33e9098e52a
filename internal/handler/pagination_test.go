package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/telegram-manager/manager-server-go/internal/errors"
)

func TestParsePagination(t *testing.T) {
	t.Run("defaults when absent", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/members", nil)

		params := ParsePagination(req, 50)

		assert.Equal(t, 1, params.Page)
		assert.Equal(t, 50, params.Limit)
	})

	t.Run("parses explicit values", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/members?page=3&limit=25", nil)

		params := ParsePagination(req, 50)

		assert.Equal(t, 3, params.Page)
		assert.Equal(t, 25, params.Limit)
	})

	t.Run("clamps invalid values", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/members?page=-1&limit=9999", nil)

		params := ParsePagination(req, 50)

		assert.Equal(t, 1, params.Page)
		assert.Equal(t, 50, params.Limit)
	})

	t.Run("ignores garbage", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/members?page=abc&limit=xyz", nil)

		params := ParsePagination(req, 20)

		assert.Equal(t, 1, params.Page)
		assert.Equal(t, 20, params.Limit)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("maps not-ready to conflict", func(t *testing.T) {
		rec := httptest.NewRecorder()

		writeError(rec, apperrors.SessionNotReady("s-1"))

		assert.Equal(t, 409, rec.Code)
		assert.Contains(t, rec.Body.String(), "SESSION_NOT_READY")
	})

	t.Run("maps unknown errors to internal", func(t *testing.T) {
		rec := httptest.NewRecorder()

		writeError(rec, assert.AnError)

		assert.Equal(t, 500, rec.Code)
	})
}
