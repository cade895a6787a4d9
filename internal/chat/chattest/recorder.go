// Package chattest provides an in-memory chat.Client for tests.
package chattest

import (
	"context"
	"fmt"
	"sync"

	"github.com/slack-go/slack"

	"github.com/spec-kit/ticketbot/internal/chat"
)

// Call is one recorded outbound request.
type Call struct {
	Method    string
	TriggerID string
	ViewID    string
	Hash      string
	ChannelID string
	UserID    string
	TS        string
	View      slack.ModalViewRequest
	Message   chat.Message
	File      chat.File
}

// Recorder records calls and fails any method listed in Fail.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	seq   int
	Fail  map[string]error
}

// New returns an empty recorder.
func New() *Recorder {
	return &Recorder{Fail: map[string]error{}}
}

// Calls returns a copy of every call so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Only returns the calls of one method.
func (r *Recorder) Only(method string) []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(c Call) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	r.seq++
	return fmt.Sprintf("%d", r.seq), r.Fail[c.Method]
}

func (r *Recorder) OpenView(_ context.Context, triggerID string, view slack.ModalViewRequest) (string, error) {
	id, err := r.record(Call{Method: "OpenView", TriggerID: triggerID, View: view})
	return "V" + id, err
}

func (r *Recorder) PushView(_ context.Context, triggerID string, view slack.ModalViewRequest) (string, error) {
	id, err := r.record(Call{Method: "PushView", TriggerID: triggerID, View: view})
	return "V" + id, err
}

func (r *Recorder) UpdateView(_ context.Context, viewID, hash string, view slack.ModalViewRequest) error {
	_, err := r.record(Call{Method: "UpdateView", ViewID: viewID, Hash: hash, View: view})
	return err
}

func (r *Recorder) PostMessage(_ context.Context, channelID string, msg chat.Message) (chat.MessageRef, error) {
	id, err := r.record(Call{Method: "PostMessage", ChannelID: channelID, Message: msg})
	if err != nil {
		return chat.MessageRef{}, err
	}
	return chat.MessageRef{ChannelID: channelID, TS: "1700000000." + id}, nil
}

func (r *Recorder) UpdateMessage(_ context.Context, ref chat.MessageRef, msg chat.Message) error {
	_, err := r.record(Call{Method: "UpdateMessage", ChannelID: ref.ChannelID, TS: ref.TS, Message: msg})
	return err
}

func (r *Recorder) PostEphemeral(_ context.Context, channelID, userID string, msg chat.Message) error {
	_, err := r.record(Call{Method: "PostEphemeral", ChannelID: channelID, UserID: userID, Message: msg})
	return err
}

func (r *Recorder) DirectMessage(_ context.Context, userID string, msg chat.Message) error {
	_, err := r.record(Call{Method: "DirectMessage", UserID: userID, Message: msg})
	return err
}

func (r *Recorder) UploadFile(_ context.Context, file chat.File) error {
	_, err := r.record(Call{Method: "UploadFile", UserID: file.UserID, File: file})
	return err
}

func (r *Recorder) Ping(context.Context) error {
	_, err := r.record(Call{Method: "Ping"})
	return err
}

var _ chat.Client = (*Recorder)(nil)
