package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"subcast/internal/storage"
)

type fakeRegistry struct {
	subscribeErr   error
	unsubRemoved   bool
	unsubErr       error
	lastChannel    string
	lastChatID     int64
	subscribeCalls int
}

func (f *fakeRegistry) Subscribe(_ context.Context, chatID int64, channel string) error {
	f.subscribeCalls++
	f.lastChatID = chatID
	f.lastChannel = channel
	return f.subscribeErr
}

func (f *fakeRegistry) Unsubscribe(_ context.Context, chatID int64, channel string) (bool, error) {
	f.lastChatID = chatID
	f.lastChannel = channel
	return f.unsubRemoved, f.unsubErr
}

func TestSubscribeReply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "ok", err: nil, want: "Successfully subscribed to 'news'"},
		{name: "duplicate", err: storage.ErrAlreadySubscribed, want: "already subscribed to 'news'"},
		{name: "invalid", err: storage.ErrInvalidChannel, want: replyInvalidChannel},
		{name: "storage failure", err: errors.New("disk on fire"), want: replyInternalError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := &fakeRegistry{subscribeErr: tt.err}
			got := subscribeReply(context.Background(), reg, zerolog.Nop(), 99, "news")
			if !strings.Contains(got, tt.want) {
				t.Fatalf("reply = %q, want it to contain %q", got, tt.want)
			}
			if reg.lastChatID != 99 || reg.lastChannel != "news" {
				t.Fatalf("registry called with (%d, %q)", reg.lastChatID, reg.lastChannel)
			}
		})
	}
}

func TestUnsubscribeReply(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		removed bool
		err     error
		want    string
	}{
		{name: "removed", removed: true, want: "Successfully unsubscribed from 'news'"},
		{name: "not subscribed", removed: false, want: "You are not subscribed to 'news'"},
		{name: "invalid", err: storage.ErrInvalidChannel, want: replyInvalidChannel},
		{name: "storage failure", err: errors.New("disk on fire"), want: replyInternalError},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			reg := &fakeRegistry{unsubRemoved: tt.removed, unsubErr: tt.err}
			got := unsubscribeReply(context.Background(), reg, zerolog.Nop(), 7, "news")
			if !strings.Contains(got, tt.want) {
				t.Fatalf("reply = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
