package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketbot/internal/interaction"
	"github.com/spec-kit/ticketbot/internal/viewstate"
	"github.com/spec-kit/ticketbot/internal/worker"
	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

// Slash commands served by the bot.
const (
	CommandNewTicket     = "/new-ticket"
	CommandAgentTickets  = "/agent-tickets"
	CommandSystemTickets = "/system-tickets"
	CommandTicketSummary = "/ticket-summary"
)

const rateLimitedText = "⏳ You're doing that too often. Please wait a moment and try again."

// Coordinator is the interaction surface the Slack handler drives.
type Coordinator interface {
	OpenSubmitForm(ctx context.Context, actor, triggerID string) error
	OpenBrowser(ctx context.Context, actor, triggerID string, scope viewstate.Scope) error
	Summary(ctx context.Context, actor, triggerID string) error
	BlockAction(ctx context.Context, actor, triggerID string, surface interaction.Surface, action slack.BlockAction) error
	ViewSubmission(ctx context.Context, sub interaction.Submission) (*slack.ViewSubmissionResponse, bool, error)
}

// Runner schedules work after the HTTP acknowledgement.
type Runner interface {
	Go(kind string, task worker.Task) bool
}

// SlackHandler serves slash commands and interactivity callbacks.
type SlackHandler struct {
	coord   Coordinator
	runner  Runner
	limiter Limiter
	logger  *zap.Logger
}

// NewSlackHandler constructs the handler.
func NewSlackHandler(coord Coordinator, runner Runner, limiter Limiter, logger *zap.Logger) *SlackHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlackHandler{coord: coord, runner: runner, limiter: limiter, logger: logger}
}

// Command POST /slack/commands. Views are opened before acknowledging since
// the trigger id expires within seconds.
func (h *SlackHandler) Command(c *fiber.Ctx) error {
	command := strings.TrimSpace(c.FormValue("command"))
	userID := c.FormValue("user_id")
	triggerID := c.FormValue("trigger_id")
	ctx := c.UserContext()

	if h.limiter != nil && !h.limiter.Allow(ctx, userID) {
		return ephemeral(c, rateLimitedText)
	}

	var err error
	switch command {
	case CommandNewTicket:
		err = h.coord.OpenSubmitForm(ctx, userID, triggerID)
	case CommandAgentTickets:
		err = h.coord.OpenBrowser(ctx, userID, triggerID, viewstate.ScopeMine)
	case CommandSystemTickets:
		err = h.coord.OpenBrowser(ctx, userID, triggerID, viewstate.ScopeAll)
	case CommandTicketSummary:
		err = h.coord.Summary(ctx, userID, triggerID)
	default:
		return ephemeral(c, "Unknown command "+command)
	}
	if err != nil {
		return ephemeral(c, "⚠️ "+actorMessage(err))
	}
	return c.SendStatus(fiber.StatusOK)
}

// Interactivity POST /slack/interactivity. Block actions are rate limited,
// acknowledged at once and handled on the runner; view submissions are
// answered inline.
func (h *SlackHandler) Interactivity(c *fiber.Ctx) error {
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(c.FormValue("payload")), &cb); err != nil {
		return apperrors.NewValidationError("invalid interaction payload", nil)
	}

	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		if h.limiter != nil && !h.limiter.Allow(c.UserContext(), cb.User.ID) {
			h.logger.Info("block action rate limited", zap.String("user_id", cb.User.ID))
			return c.SendStatus(fiber.StatusOK)
		}
		surface := surfaceOf(cb)
		for _, action := range cb.ActionCallback.BlockActions {
			if action == nil {
				continue
			}
			pressed := *action
			actor, trigger := cb.User.ID, cb.TriggerID
			h.runner.Go(interaction.KindOf(pressed), func(ctx context.Context) error {
				return h.coord.BlockAction(ctx, actor, trigger, surface, pressed)
			})
		}
		return c.SendStatus(fiber.StatusOK)

	case slack.InteractionTypeViewSubmission:
		sub := interaction.Submission{
			Actor:      cb.User.ID,
			CallbackID: cb.View.CallbackID,
			Metadata:   cb.View.PrivateMetadata,
		}
		if cb.View.State != nil {
			sub.Values = cb.View.State.Values
		}
		resp, ok, err := h.coord.ViewSubmission(c.UserContext(), sub)
		if !ok {
			h.logger.Debug("ignoring view submission", zap.String("callback_id", cb.View.CallbackID))
		}
		if err != nil && resp == nil {
			h.logger.Warn("view submission failed without a response", zap.Error(err))
		}
		if resp == nil {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.JSON(resp)
	}
	return c.SendStatus(fiber.StatusOK)
}

func surfaceOf(cb slack.InteractionCallback) interaction.Surface {
	if cb.Container.Type == "view" || cb.View.ID != "" {
		s := interaction.Surface{ViewID: cb.View.ID, Hash: cb.View.Hash, Metadata: cb.View.PrivateMetadata}
		if cb.View.State != nil {
			s.Values = cb.View.State.Values
		}
		return s
	}
	s := interaction.Surface{ChannelID: cb.Container.ChannelID, MessageTS: cb.Container.MessageTs}
	if s.ChannelID == "" {
		s.ChannelID = cb.Channel.ID
	}
	if s.MessageTS == "" {
		s.MessageTS = cb.Message.Timestamp
	}
	return s
}

func ephemeral(c *fiber.Ctx, text string) error {
	return c.JSON(fiber.Map{"response_type": "ephemeral", "text": text})
}

func actorMessage(err error) string {
	de := apperrors.ToDomainError(err)
	if de.Code == apperrors.CodeInternal {
		return "something went wrong, please try again"
	}
	return de.Message
}
