package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voclaria/voclaria/internal/response"
)

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	response.Success(w, http.StatusCreated, map[string]string{"id": "1"}, "req-1")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "1", env["data"].(map[string]any)["id"])
	assert.Nil(t, env["error"])
	assert.Equal(t, "req-1", env["meta"].(map[string]any)["request_id"])
}

func TestErr(t *testing.T) {
	w := httptest.NewRecorder()
	response.Err(w, http.StatusForbidden, "ROLE_MISMATCH", "wrong door", "req-2")

	assert.Equal(t, http.StatusForbidden, w.Code)

	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "ROLE_MISMATCH", env.Error.Code)
	assert.Equal(t, "wrong door", env.Error.Message)
	assert.Nil(t, env.Data)
}
