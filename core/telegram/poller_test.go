package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"
)

func TestBuildPoller(t *testing.T) {
	wh, ok := BuildPoller(PollerOptions{
		RunMode: "Webhook",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://wallet.example.com/hook"},
	}).(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://wallet.example.com/hook", wh.Endpoint.PublicURL)

	lp, ok := BuildPoller(PollerOptions{RunMode: "longpoll"}).(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, defaultLongPollSeconds*time.Second, lp.Timeout)
}

func TestDeleteWebhook(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotBody = r.PostForm.Get("drop_pending_updates")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, deleteWebhook(context.Background(), srv.Client(), srv.URL, "123:abc"))
	assert.Equal(t, "/bot123:abc/deleteWebhook", gotPath)
	assert.Equal(t, "false", gotBody)

	assert.Error(t, deleteWebhook(context.Background(), srv.Client(), srv.URL, " "))
}
