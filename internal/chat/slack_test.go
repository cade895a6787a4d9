package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/slack-go/slack"

	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *SlackClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSlackClient("xoxb-test", slack.OptionAPIURL(srv.URL+"/"))
}

func TestPostMessageReturnsRef(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat.postMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C1", "ts": "123.456"})
	})
	ref, err := client.PostMessage(context.Background(), "C1", Message{Text: "hello"})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if ref.ChannelID != "C1" || ref.TS != "123.456" {
		t.Fatalf("got %+v", ref)
	}
}

func TestFailuresAreUpstreamErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "channel_not_found"})
	})
	err := client.UpdateMessage(context.Background(), MessageRef{ChannelID: "C1", TS: "1.2"}, Message{Text: "x"})
	if apperrors.CodeOf(err) != apperrors.CodeUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if de := apperrors.ToDomainError(err); de.Message == "" || de.Err == nil {
		t.Fatalf("upstream error should carry a safe message and the cause: %+v", de)
	}
}
