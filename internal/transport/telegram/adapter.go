// Package telegram adapts the service to the Telegram Bot API via telebot.
//
// It is both the conversational front-end (the /subscribe and /unsubscribe
// commands) and the delivery capability used by the dispatcher.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token       string
	PollTimeout time.Duration // long-poll timeout; 0 means default
	SendTimeout time.Duration // per-send HTTP timeout; 0 means default
}

// Registry is the subset of the subscription registry the bot commands use.
type Registry interface {
	Subscribe(ctx context.Context, chatID int64, channel string) error
	Unsubscribe(ctx context.Context, chatID int64, channel string) (bool, error)
}

// Adapter owns the telebot instance and its long-poll loop.
type Adapter struct {
	cfg Config
	bot *tele.Bot
	log zerolog.Logger
	reg Registry

	runMu   sync.Mutex
	running bool
}

func New(cfg Config, reg Registry, log zerolog.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 10 * time.Second
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: pollTimeout},
		Client: &http.Client{Timeout: sendTimeout},
	})
	if err != nil {
		return nil, err
	}

	a := &Adapter{cfg: cfg, bot: b, log: log, reg: reg}
	a.registerHandlers()
	return a, nil
}

// Start launches the long-poll loop. It returns once the loop is running;
// the loop itself lives until Stop.
func (a *Adapter) Start(ctx context.Context) {
	a.runMu.Lock()
	if a.running {
		a.runMu.Unlock()
		return
	}
	a.running = true
	a.runMu.Unlock()

	go func() {
		<-ctx.Done()
		a.bot.Stop()
	}()
	go func() {
		a.log.Info().Msg("polling started")
		a.bot.Start() // blocks until Stop
		a.log.Info().Msg("polling stopped")
	}()
}

// Stop halts the long-poll loop. Best-effort: a getUpdates long-poll that
// is still waiting must not hold up shutdown.
func (a *Adapter) Stop(ctx context.Context) {
	a.runMu.Lock()
	wasRunning := a.running
	a.running = false
	a.runMu.Unlock()
	if !wasRunning {
		return
	}

	done := make(chan struct{})
	go func() {
		a.bot.Stop()
		close(done)
	}()

	grace := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem > 0 && rem < grace {
			grace = rem
		}
	}
	select {
	case <-done:
	case <-time.After(grace):
		a.log.Warn().Msg("telegram stop timed out")
	}
}

// SendText delivers one message to one chat. It satisfies the dispatcher's
// Sender contract; the HTTP client timeout bounds how long a single
// delivery can take to resolve.
func (a *Adapter) SendText(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	_, err := a.bot.Send(&tele.Chat{ID: chatID}, text)
	return err
}
