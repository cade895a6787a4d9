package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/api/http/handlers"
	"github.com/spec-kit/ticketbot/internal/auth"
	"github.com/spec-kit/ticketbot/internal/catalog"
	"github.com/spec-kit/ticketbot/internal/chat/chattest"
	"github.com/spec-kit/ticketbot/internal/domain"
	"github.com/spec-kit/ticketbot/internal/interaction"
	"github.com/spec-kit/ticketbot/internal/observability"
	"github.com/spec-kit/ticketbot/internal/query"
	"github.com/spec-kit/ticketbot/internal/repository"
	"github.com/spec-kit/ticketbot/internal/service"
	"github.com/spec-kit/ticketbot/internal/view"
	"github.com/spec-kit/ticketbot/internal/worker"
)

const (
	signingSecret = "signing-secret"
	responder     = "UAGENT1"
	submitter     = "USUBMIT"
)

type inlineRunner struct {
	errs []error
}

func (r *inlineRunner) Go(_ string, task worker.Task) bool {
	r.errs = append(r.errs, task(context.Background()))
	return true
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) bool { return false }

type testServer struct {
	app     *fiber.App
	store   *repository.MemoryStore
	chat    *chattest.Recorder
	runner  *inlineRunner
	metrics *observability.Metrics
}

func newTestServer(t *testing.T, limiter handlers.Limiter) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	rec := chattest.New()
	policy := auth.NewPolicy([]string{responder})
	cat := catalog.MustDefault()
	renderer := view.NewRenderer(cat, time.UTC)
	builder := query.NewBuilder(time.UTC)
	metrics := observability.NewMetrics()
	coord := interaction.NewCoordinator(interaction.Dependencies{
		Tickets:       service.NewTicketService(service.TicketDependencies{Store: store, Policy: policy, Catalog: cat}),
		Exports:       service.NewExportService(service.ExportDependencies{Store: store, Policy: policy, Builder: builder, Chat: rec}),
		Store:         store,
		Builder:       builder,
		Renderer:      renderer,
		Chat:          rec,
		Signer:        auth.NewMetadataSigner("metadata-secret", 30),
		Metrics:       metrics,
		TicketChannel: "CTICKETS",
	})
	runner := &inlineRunner{}

	app := fiber.New()
	RegisterMiddlewares(app, zap.NewNop(), metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:   handlers.NewHealthHandler("ticketbot", "test", store, nil, metrics),
		Slack:    handlers.NewSlackHandler(coord, runner, limiter, nil),
		Verifier: auth.NewSlackVerifier(signingSecret),
	})
	return &testServer{app: app, store: store, chat: rec, runner: runner, metrics: metrics}
}

func (s *testServer) post(t *testing.T, path string, form url.Values, signed bool) (int, string) {
	t.Helper()
	body := form.Encode()
	req := httptest.NewRequest(nethttp.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signed {
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		mac := hmac.New(sha256.New, []byte(signingSecret))
		fmt.Fprintf(mac, "v0:%s:%s", ts, body)
		req.Header.Set("X-Slack-Request-Timestamp", ts)
		req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	}
	return s.do(t, req)
}

func (s *testServer) do(t *testing.T, req *nethttp.Request) (int, string) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

func (s *testServer) seed(t *testing.T, status domain.TicketStatus, assignee string) domain.Ticket {
	t.Helper()
	ticket := &domain.Ticket{
		CreatedBy: submitter, Campaign: "Camp Lejeune", IssueType: "Other",
		Priority: domain.TicketPriorityLow, Status: status, AssignedTo: assignee,
		Details: "printer jam", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	if err := s.store.InsertTicket(context.Background(), ticket); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return *ticket
}

func command(name, user string) url.Values {
	return url.Values{"command": {name}, "user_id": {user}, "trigger_id": {"trigger-1"}, "channel_id": {"C1"}}
}

func payload(t *testing.T, v any) url.Values {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return url.Values{"payload": {string(raw)}}
}

func TestUnsignedRequestsAreRejected(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.post(t, "/slack/commands", command(handlers.CommandNewTicket, submitter), false)
	if status != nethttp.StatusUnauthorized || !strings.Contains(body, "UNAUTHORIZED") {
		t.Fatalf("status=%d body=%s", status, body)
	}
	if len(s.chat.Calls()) != 0 {
		t.Fatalf("unsigned request reached chat")
	}
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		user     string
		callback string
		text     string
	}{
		{name: "new ticket", command: handlers.CommandNewTicket, user: submitter, callback: view.NewTicketCallbackID},
		{name: "own tickets", command: handlers.CommandAgentTickets, user: submitter, callback: view.BrowserCallbackID},
		{name: "all tickets", command: handlers.CommandSystemTickets, user: responder, callback: view.BrowserCallbackID},
		{name: "all tickets denied", command: handlers.CommandSystemTickets, user: submitter, text: "only the support team"},
		{name: "summary", command: handlers.CommandTicketSummary, user: responder, callback: view.SummaryCallbackID},
		{name: "unknown", command: "/nope", user: submitter, text: "Unknown command"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, nil)
			status, body := s.post(t, "/slack/commands", command(tc.command, tc.user), true)
			if status != nethttp.StatusOK {
				t.Fatalf("status=%d body=%s", status, body)
			}
			opened := s.chat.Only("OpenView")
			if tc.callback != "" {
				if len(opened) != 1 || opened[0].View.CallbackID != tc.callback || opened[0].TriggerID != "trigger-1" {
					t.Fatalf("unexpected views %+v", opened)
				}
				return
			}
			if len(opened) != 0 || !strings.Contains(body, tc.text) || !strings.Contains(body, "ephemeral") {
				t.Fatalf("expected an ephemeral reply, got %s (views %+v)", body, opened)
			}
		})
	}
}

func TestRateLimitedCommand(t *testing.T) {
	s := newTestServer(t, denyAll{})
	status, body := s.post(t, "/slack/commands", command(handlers.CommandNewTicket, submitter), true)
	if status != nethttp.StatusOK || !strings.Contains(body, "too often") {
		t.Fatalf("status=%d body=%s", status, body)
	}
	if len(s.chat.Calls()) != 0 {
		t.Fatalf("limited request reached chat")
	}
}

func TestBlockActionOnCard(t *testing.T) {
	s := newTestServer(t, nil)
	ticket := s.seed(t, domain.TicketStatusInProgress, responder)

	status, body := s.post(t, "/slack/interactivity", payload(t, map[string]any{
		"type":       "block_actions",
		"user":       map[string]any{"id": responder},
		"trigger_id": "trigger-2",
		"channel":    map[string]any{"id": "CTICKETS"},
		"container":  map[string]any{"type": "message", "channel_id": "CTICKETS", "message_ts": "1700000000.000200"},
		"actions": []map[string]any{{
			"type": "button", "action_id": "resolve", "block_id": view.CardActionsBlockID,
			"value": strconv.FormatInt(ticket.ID, 10),
		}},
	}), true)
	if status != nethttp.StatusOK {
		t.Fatalf("status=%d body=%s", status, body)
	}
	if len(s.runner.errs) != 1 || s.runner.errs[0] != nil {
		t.Fatalf("runner results %v", s.runner.errs)
	}
	updates := s.chat.Only("UpdateMessage")
	if len(updates) != 1 || updates[0].ChannelID != "CTICKETS" || updates[0].TS != "1700000000.000200" {
		t.Fatalf("unexpected card updates %+v", s.chat.Calls())
	}
	stored, _ := s.store.GetTicket(context.Background(), ticket.ID)
	if stored.Status != domain.TicketStatusResolved {
		t.Fatalf("ticket not resolved: %+v", stored)
	}
	if got := s.metrics.Snapshot().Interactions[interaction.KindTransitionButton+"|ok"]; got != 1 {
		t.Fatalf("transition metric = %d", got)
	}
}

func TestBlockActionRateLimited(t *testing.T) {
	s := newTestServer(t, denyAll{})
	status, _ := s.post(t, "/slack/interactivity", payload(t, map[string]any{
		"type": "block_actions",
		"user": map[string]any{"id": responder},
		"actions": []map[string]any{{
			"type": "button", "action_id": "resolve", "block_id": view.CardActionsBlockID, "value": "1",
		}},
	}), true)
	if status != nethttp.StatusOK || len(s.runner.errs) != 0 {
		t.Fatalf("limited action was scheduled: status=%d runs=%d", status, len(s.runner.errs))
	}
}

func TestSubmitViewSubmission(t *testing.T) {
	s := newTestServer(t, nil)
	selected := func(v string) map[string]any {
		return map[string]any{"type": "static_select", "selected_option": map[string]any{"value": v}}
	}
	status, body := s.post(t, "/slack/interactivity", payload(t, map[string]any{
		"type": "view_submission",
		"user": map[string]any{"id": submitter},
		"view": map[string]any{
			"id":          "VFORM",
			"callback_id": view.NewTicketCallbackID,
			"state": map[string]any{"values": map[string]any{
				view.CampaignBlockID:  map[string]any{view.CampaignActionID: selected("Maui Wildfires")},
				view.IssueTypeBlockID: map[string]any{view.IssueTypeActionID: selected("Other")},
				view.PriorityBlockID:  map[string]any{view.PriorityActionID: selected("Medium")},
				view.DetailsBlockID:   map[string]any{view.DetailsActionID: map[string]any{"type": "plain_text_input", "value": "headset is dead"}},
			}},
		},
	}), true)
	if status != nethttp.StatusOK {
		t.Fatalf("status=%d body=%s", status, body)
	}
	var resp struct {
		ResponseAction string `json:"response_action"`
		View           struct {
			CallbackID string `json:"callback_id"`
		} `json:"view"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decode response %s: %v", body, err)
	}
	if resp.ResponseAction != "update" || resp.View.CallbackID != view.ResultCallbackID {
		t.Fatalf("unexpected response %s", body)
	}
	posts := s.chat.Only("PostMessage")
	if len(posts) != 1 || posts[0].ChannelID != "CTICKETS" {
		t.Fatalf("card not posted: %+v", posts)
	}
}

func TestInvalidInteractionPayload(t *testing.T) {
	s := newTestServer(t, nil)
	status, body := s.post(t, "/slack/interactivity", url.Values{"payload": {"{"}}, true)
	if status != nethttp.StatusBadRequest || !strings.Contains(body, "VALIDATION_FAILED") {
		t.Fatalf("status=%d body=%s", status, body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/health/live", "/health/ready", "/metrics"} {
		status, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, path, nil))
		if status != nethttp.StatusOK {
			t.Fatalf("%s: status=%d body=%s", path, status, body)
		}
		if path == "/health/ready" && !strings.Contains(body, `"redis":"disabled"`) {
			t.Fatalf("ready body %s", body)
		}
	}
	_, body := s.do(t, httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	if !strings.Contains(body, `"/health/live|GET|200":1`) {
		t.Fatalf("metrics body %s", body)
	}
}
