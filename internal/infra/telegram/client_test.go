package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func TestOpsNotifier_SendsToConfiguredChat(t *testing.T) {
	var gotPath string
	var gotParams map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotParams)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"chat":{"id":-1001}}}`))
	}))
	defer srv.Close()

	bot, err := telebot.NewBot(telebot.Settings{URL: srv.URL, Token: "123:abc", Offline: true})
	require.NoError(t, err)
	n := NewOpsNotifier(NewTelebotAdapter(bot), -1001)

	require.NoError(t, n.Notify(context.Background(), "export failed"))
	assert.True(t, strings.HasSuffix(gotPath, "/sendMessage"))
	assert.Equal(t, "-1001", gotParams["chat_id"])
	assert.Equal(t, "export failed", gotParams["text"])
}

func TestOpsNotifier_ReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	bot, err := telebot.NewBot(telebot.Settings{URL: srv.URL, Token: "123:abc", Offline: true})
	require.NoError(t, err)

	err = NewOpsNotifier(NewTelebotAdapter(bot), 42).Notify(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOpsNotifier_CancelledContext(t *testing.T) {
	bot, err := NewOfflineBot("123:abc")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewOpsNotifier(NewTelebotAdapter(bot), 42).Notify(ctx, "hello"), context.Canceled)
}
