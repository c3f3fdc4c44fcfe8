package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sender is the external delivery capability, one call per recipient.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// Config bounds the fan-out.
type Config struct {
	Workers    int // concurrent sends; <= 0 picks a default
	RatePerSec int // sends per second across all workers; <= 0 picks a default
}

const (
	defaultWorkers    = 8
	defaultRatePerSec = 25
)

// Report is the aggregate outcome of one Dispatch call.
type Report struct {
	Sent   int `json:"sent"`
	Errors int `json:"errors"`
}

// Dispatcher sends a message to a set of recipients concurrently.
// It holds no per-call state; the same Dispatcher is shared by all callers.
type Dispatcher struct {
	sender Sender
	log    zerolog.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, sender Sender, log zerolog.Logger) *Dispatcher {
	d := &Dispatcher{sender: sender, log: log}
	d.Apply(cfg)
	return d
}

// Apply updates the fan-out bounds. Safe to call while dispatches run;
// in-flight calls keep the limiter they started with.
func (d *Dispatcher) Apply(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	d.mu.Lock()
	d.cfg = cfg
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	d.mu.Unlock()
}

// Dispatch sends text to every recipient once and reports the tally.
// An empty recipient set returns immediately with a zero report and no
// sends. One recipient's failure has no effect on the others; the call
// itself never fails, it only affects the counts.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []int64, text string) Report {
	if len(recipients) == 0 {
		return Report{}
	}

	d.mu.Lock()
	workers := d.cfg.Workers
	limiter := d.limiter
	d.mu.Unlock()
	if workers > len(recipients) {
		workers = len(recipients)
	}

	start := time.Now()
	queue := make(chan int64)
	var sent atomic.Int64

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for id := range queue {
				if err := limiter.Wait(ctx); err != nil {
					continue // cancelled; counts as a failed delivery
				}
				if err := d.sender.SendText(ctx, id, text); err != nil {
					d.log.Debug().Int64("chat_id", id).Err(err).Msg("delivery failed")
					continue
				}
				sent.Add(1)
			}
		}()
	}
	for _, id := range recipients {
		queue <- id
	}
	close(queue)
	wg.Wait()

	rep := Report{Sent: int(sent.Load())}
	rep.Errors = len(recipients) - rep.Sent
	lvl := zerolog.InfoLevel
	if rep.Errors > 0 {
		lvl = zerolog.WarnLevel
	}
	d.log.WithLevel(lvl).
		Int("total", len(recipients)).Int("sent", rep.Sent).Int("errors", rep.Errors).
		Dur("took", time.Since(start)).Msg("dispatch finished")
	return rep
}
