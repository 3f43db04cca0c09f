package response

import (
	"encoding/json/v2"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/docmarkapp/docmark-server/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()

	var result Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()

	Success(w, map[string]any{"id": "123", "name": "test"}, discardLogger())

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	result := decode(t, w)
	assert.Equal(t, "success", result.Status)
	assert.Empty(t, result.Message)

	dataMap, ok := result.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "123", dataMap["id"])
}

func TestCreated(t *testing.T) {
	w := httptest.NewRecorder()

	Created(w, map[string]string{"id": "new-id"}, discardLogger())

	assert.Equal(t, http.StatusCreated, w.Code)
	result := decode(t, w)
	assert.Equal(t, "success", result.Status)
	assert.NotNil(t, result.Data)
}

func TestPage(t *testing.T) {
	w := httptest.NewRecorder()

	Page(w, []string{"a", "b"}, 42, 2, 10, discardLogger())

	assert.Equal(t, http.StatusOK, w.Code)
	result := decode(t, w)
	assert.Equal(t, "success", result.Status)
	require.NotNil(t, result.Pagination)
	assert.Equal(t, 42, result.Pagination.Total)
	assert.Equal(t, 2, result.Pagination.Limit)
	assert.Equal(t, 10, result.Pagination.Offset)
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()

	NoContent(w)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		message string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "invalid input", nil) }, http.StatusBadRequest, "invalid input"},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "authentication required", nil) }, http.StatusUnauthorized, "authentication required"},
		{"forbidden", func(w http.ResponseWriter) { Forbidden(w, "access denied", nil) }, http.StatusForbidden, "access denied"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "resource not found", nil) }, http.StatusNotFound, "resource not found"},
		{"internal", func(w http.ResponseWriter) { InternalError(w, "internal server error", nil) }, http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			result := decode(t, w)
			assert.Equal(t, "error", result.Status)
			assert.Equal(t, tt.message, result.Message)
			assert.Nil(t, result.Data)
		})
	}
}

func TestHandleError_DomainError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, apperrors.NotFound("segment not found"), discardLogger())

	assert.Equal(t, http.StatusNotFound, w.Code)
	result := decode(t, w)
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "segment not found", result.Message)
}

func TestHandleError_WrappedDomainError(t *testing.T) {
	w := httptest.NewRecorder()

	err := apperrors.Conflict("category has segments")
	HandleError(w, err, discardLogger())

	assert.Equal(t, http.StatusConflict, w.Code)
	result := decode(t, w)
	assert.Equal(t, "category has segments", result.Message)
}

func TestHandleError_SuppressesInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, apperrors.Internal("database exploded at row 17"), discardLogger())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	result := decode(t, w)
	assert.Equal(t, "internal server error", result.Message)
}

func TestHandleError_UnknownError(t *testing.T) {
	w := httptest.NewRecorder()

	HandleError(w, assert.AnError, discardLogger())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	result := decode(t, w)
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "internal server error", result.Message)
}

func TestEnvelope_OmitEmpty(t *testing.T) {
	data, err := json.Marshal(Envelope{Status: "success", Data: "test"})
	require.NoError(t, err)

	jsonStr := string(data)
	assert.Contains(t, jsonStr, `"status":"success"`)
	assert.Contains(t, jsonStr, `"data":"test"`)
	assert.NotContains(t, jsonStr, `"message"`)
	assert.NotContains(t, jsonStr, `"pagination"`)
}
