package workers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationDispatcher_Notify(t *testing.T) {
	var got reminderPayload
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	d := NewNotificationDispatcher(srv.URL, "secret-token")
	err := d.Notify("user-1", "evt-1", "at_start", "push,email")
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "evt-1", got.EventID)
	assert.Equal(t, "at_start", got.RuleType)
	assert.Equal(t, "push,email", got.Methods)
}

func TestNotificationDispatcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	d := NewNotificationDispatcher(srv.URL, "secret-token")
	err := d.Notify("user-1", "evt-1", "at_end", "push")
	assert.Error(t, err)
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, LogNotifier{}.Notify("user-1", "evt-1", "at_start", "push"))
}
