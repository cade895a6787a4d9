package chat

import (
	"context"

	"github.com/slack-go/slack"

	apperrors "github.com/spec-kit/ticketbot/pkg/util/errorutil"
)

const dependency = "Slack"

// SlackClient implements Client over the Slack Web API.
type SlackClient struct {
	api *slack.Client
}

// NewSlackClient builds a client for a bot token.
func NewSlackClient(token string, opts ...slack.Option) *SlackClient {
	return &SlackClient{api: slack.New(token, opts...)}
}

func (c *SlackClient) OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) (string, error) {
	resp, err := c.api.OpenViewContext(ctx, triggerID, view)
	if err != nil {
		return "", apperrors.NewUpstream(dependency, err)
	}
	return resp.ID, nil
}

func (c *SlackClient) PushView(ctx context.Context, triggerID string, view slack.ModalViewRequest) (string, error) {
	resp, err := c.api.PushViewContext(ctx, triggerID, view)
	if err != nil {
		return "", apperrors.NewUpstream(dependency, err)
	}
	return resp.ID, nil
}

func (c *SlackClient) UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error {
	if _, err := c.api.UpdateViewContext(ctx, view, "", hash, viewID); err != nil {
		return apperrors.NewUpstream(dependency, err)
	}
	return nil
}

func (c *SlackClient) PostMessage(ctx context.Context, channelID string, msg Message) (MessageRef, error) {
	channel, ts, err := c.api.PostMessageContext(ctx, channelID, msgOptions(msg)...)
	if err != nil {
		return MessageRef{}, apperrors.NewUpstream(dependency, err)
	}
	return MessageRef{ChannelID: channel, TS: ts}, nil
}

func (c *SlackClient) UpdateMessage(ctx context.Context, ref MessageRef, msg Message) error {
	if _, _, _, err := c.api.UpdateMessageContext(ctx, ref.ChannelID, ref.TS, msgOptions(msg)...); err != nil {
		return apperrors.NewUpstream(dependency, err)
	}
	return nil
}

func (c *SlackClient) PostEphemeral(ctx context.Context, channelID, userID string, msg Message) error {
	if _, err := c.api.PostEphemeralContext(ctx, channelID, userID, msgOptions(msg)...); err != nil {
		return apperrors.NewUpstream(dependency, err)
	}
	return nil
}

func (c *SlackClient) DirectMessage(ctx context.Context, userID string, msg Message) error {
	channelID, err := c.openDM(ctx, userID)
	if err != nil {
		return err
	}
	if _, _, err := c.api.PostMessageContext(ctx, channelID, msgOptions(msg)...); err != nil {
		return apperrors.NewUpstream(dependency, err)
	}
	return nil
}

func (c *SlackClient) UploadFile(ctx context.Context, file File) error {
	channelID, err := c.openDM(ctx, file.UserID)
	if err != nil {
		return err
	}
	_, err = c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Channel:  channelID,
		Content:  file.Content,
		FileSize: len(file.Content),
		Filename: file.Filename,
		Title:    file.Title,
	})
	if err != nil {
		return apperrors.NewUpstream(dependency, err)
	}
	return nil
}

func (c *SlackClient) Ping(ctx context.Context) error {
	if _, err := c.api.AuthTestContext(ctx); err != nil {
		return apperrors.NewUpstream(dependency, err)
	}
	return nil
}

func (c *SlackClient) openDM(ctx context.Context, userID string) (string, error) {
	channel, _, _, err := c.api.OpenConversationContext(ctx, &slack.OpenConversationParameters{Users: []string{userID}})
	if err != nil {
		return "", apperrors.NewUpstream(dependency, err)
	}
	return channel.ID, nil
}

func msgOptions(msg Message) []slack.MsgOption {
	opts := []slack.MsgOption{slack.MsgOptionText(msg.Text, false)}
	if len(msg.Blocks) > 0 {
		opts = append(opts, slack.MsgOptionBlocks(msg.Blocks...))
	}
	return opts
}
