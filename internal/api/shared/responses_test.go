package shared

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/status", nil)

	RespondWithJSON(w, r, http.StatusOK, map[string]bool{"ok": true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body["ok"])
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/status", nil)
	r = r.WithContext(SetTraceID(r.Context()))

	RespondWithError(w, r, http.StatusBadRequest, "Invalid request")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Invalid request", body.Error)
	assert.NotEmpty(t, body.TraceID)
}

func TestRespondWithErrorAndLogHidesUnderlyingError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/sync", nil)

	underlying := errors.New("open /var/lib/lingosync/lingosync.db: disk I/O error")
	RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "An unexpected error occurred", underlying)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "An unexpected error occurred", body.Error)
	assert.NotContains(t, w.Body.String(), "disk I/O error")
	assert.NotContains(t, w.Body.String(), "/var/lib")
}

func TestDecodeAndValidate(t *testing.T) {
	type payload struct {
		Name string `json:"name" validate:"required"`
	}

	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"name":"ok"}`))
	var p payload
	require.NoError(t, DecodeJSON(req, &p))
	assert.NoError(t, ValidateRequest(p))

	req = httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`))
	var empty payload
	require.NoError(t, DecodeJSON(req, &empty))
	assert.Error(t, ValidateRequest(empty))
}
