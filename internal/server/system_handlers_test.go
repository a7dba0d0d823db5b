package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrigger_AcceptedWithJSONBody(t *testing.T) {
	h := &SystemHandlers{log: zerolog.New(nil).Level(zerolog.Disabled)}
	rec := httptest.NewRecorder()
	ran := make(chan struct{})

	h.trigger(rec, "execution", func() error {
		close(ran)
		return nil
	})
	<-ran

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "started", body["status"])
	assert.Equal(t, "execution", body["job"])
}

func TestWriteJSONStatus_HeaderPrecedesStatus(t *testing.T) {
	h := &SystemHandlers{log: zerolog.New(nil).Level(zerolog.Disabled)}
	rec := httptest.NewRecorder()

	h.writeJSONStatus(rec, http.StatusAccepted, map[string]string{"ok": "yes"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
