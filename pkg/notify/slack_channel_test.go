package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coreflow-dev/agentcore/pkg/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSlackChannel_NilServiceYieldsNilChannel(t *testing.T) {
	ch := NewSlackChannel(nil)
	assert.Nil(t, ch)
}

func TestSlackChannel_SendPostsToSlackAndReportsName(t *testing.T) {
	var posted bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat.postMessage":
			posted = true
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "ts": "1000.1"})
		case "/conversations.history":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "messages": []any{}})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := slack.NewClientWithAPIURL("xoxb-test", "C123", server.URL+"/")
	svc := slack.NewServiceWithClient(client, "https://dash.example.com")
	ch := NewSlackChannel(svc)
	require.NotNil(t, ch)

	assert.Equal(t, "slack", ch.Name())

	err := ch.Send(context.Background(), Notification{
		RequestID: "req-1",
		AgentID:   "agent-1",
		TenantID:  "tenant-1",
		Urgency:   "critical",
		Title:     "needs review",
		Body:      "details",
	})
	require.NoError(t, err)
	assert.True(t, posted)
}
