// Package chat is the outbound Slack surface: messages, modals and files.
package chat

import (
	"context"

	"github.com/slack-go/slack"
)

// Message is a rendered message body. Text is the notification fallback.
type Message struct {
	Text   string
	Blocks []slack.Block
}

// MessageRef locates a posted message.
type MessageRef struct {
	ChannelID string
	TS        string
}

// File is an upload addressed to one user's DM.
type File struct {
	UserID   string
	Filename string
	Title    string
	Content  string
}

// Client is every outbound call the bot makes. Each method is a single round
// trip; failures come back as upstream errors and are never retried here.
type Client interface {
	OpenView(ctx context.Context, triggerID string, view slack.ModalViewRequest) (string, error)
	PushView(ctx context.Context, triggerID string, view slack.ModalViewRequest) (string, error)
	UpdateView(ctx context.Context, viewID, hash string, view slack.ModalViewRequest) error
	PostMessage(ctx context.Context, channelID string, msg Message) (MessageRef, error)
	UpdateMessage(ctx context.Context, ref MessageRef, msg Message) error
	PostEphemeral(ctx context.Context, channelID, userID string, msg Message) error
	DirectMessage(ctx context.Context, userID string, msg Message) error
	UploadFile(ctx context.Context, file File) error
	Ping(ctx context.Context) error
}
