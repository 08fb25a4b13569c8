// internal/listener/listener.go
// Package listener samples a keyed line at a fixed rate and decodes it.
package listener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/ColonelBlimp/cwlistener/internal/cw"
	"github.com/ColonelBlimp/cwlistener/internal/line"
	"github.com/ColonelBlimp/cwlistener/internal/logger"
	"github.com/ColonelBlimp/cwlistener/internal/recovery"
)

var (
	// ErrInvalidRate indicates reads per second must be positive
	ErrInvalidRate = errors.New("reads per second must be positive")
	// ErrNoSampler indicates the listener was built without a line sampler
	ErrNoSampler = errors.New("line sampler is required")
)

// unitBuffer bounds how far the writer may lag the sampling loop.
const unitBuffer = 64

// Config controls a listening session.
type Config struct {
	WPM            float64
	ReadsPerSecond int
	// Source is recorded in the session for the journal
	Source string
}

// Keyer follows the line level, e.g. a sidetone.
type Keyer interface {
	SetKeyed(on bool)
}

// Session summarises a finished listening run.
type Session struct {
	StartedAt time.Time
	EndedAt   time.Time
	WPM       float64
	Source    string
	Text      string
	Unknown   int
	Stats     []cw.StatLine
	History   []byte
}

// Listener owns a StreamDecoder and feeds it from a line sampler.
type Listener struct {
	cfg     Config
	sampler line.Sampler
	keyer   Keyer
	out     io.Writer
	log     *slog.Logger
	dec     *cw.StreamDecoder
	now     func() time.Time
}

// New returns a Listener. keyer and log may be nil.
func New(cfg Config, sampler line.Sampler, keyer Keyer, out io.Writer, log *slog.Logger) (*Listener, error) {
	if sampler == nil {
		return nil, ErrNoSampler
	}
	if cfg.ReadsPerSecond <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRate, cfg.ReadsPerSecond)
	}
	dec, err := cw.NewStreamDecoder(cfg.WPM)
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if out == nil {
		out = io.Discard
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Listener{
		cfg:     cfg,
		sampler: sampler,
		keyer:   keyer,
		out:     out,
		log:     log,
		dec:     dec,
		now:     time.Now,
	}, nil
}

// Run samples the line until ctx is cancelled or the sampler fails, writing
// decoded text to out as it arrives. A sampler returning io.EOF ends the
// session without error. The session is returned even when err is non-nil.
func (l *Listener) Run(ctx context.Context) (Session, error) {
	sess := Session{
		StartedAt: l.now(),
		WPM:       l.dec.WPM(),
		Source:    l.cfg.Source,
	}
	l.log.Info("listening",
		"wpm", l.dec.WPM(),
		"dit", time.Duration(l.dec.TimingUnit()*float64(time.Second)),
		"reads_per_second", l.cfg.ReadsPerSecond,
		"source", l.cfg.Source,
	)

	units := make(chan cw.Unit, unitBuffer)
	errc := make(chan error, 1)

	go func() {
		defer recovery.HandlePanicFunc(l.log, func() { l.setKeyed(false) })
		defer close(units)
		errc <- l.sample(ctx, units)
	}()

	var text strings.Builder
	writeFailed := false
	for u := range units {
		text.WriteString(u.Text)
		if u.Unknown {
			sess.Unknown++
			l.log.Warn("unknown code", "symbols", u.Symbols)
		}
		if writeFailed {
			continue
		}
		if _, err := io.WriteString(l.out, u.Text); err != nil {
			l.log.Error("write decoded text", "error", err)
			writeFailed = true
		}
	}
	err := <-errc

	sess.EndedAt = l.now()
	sess.Text = text.String()
	sess.Stats = l.dec.TimingReport()
	sess.History = l.dec.History()

	l.log.Info("session ended",
		"duration", sess.EndedAt.Sub(sess.StartedAt).Round(time.Millisecond),
		"samples", len(sess.History),
		"unknown", sess.Unknown,
	)
	if l.dec.Armed() && l.dec.Pending() != "" {
		l.log.Debug("session ended mid-character", "pending", l.dec.Pending())
	}
	return sess, err
}

func (l *Listener) sample(ctx context.Context, units chan<- cw.Unit) error {
	defer l.setKeyed(false)

	ticker := time.NewTicker(time.Second / time.Duration(l.cfg.ReadsPerSecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		on, err := l.sampler.Level()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read line level: %w", err)
		}
		l.setKeyed(on)

		if u, ok := l.dec.ProcessEventAt(on, l.now()); ok {
			l.log.Debug("unit", "text", u.Text, "symbols", u.Symbols)
			units <- u
		}
	}
}

func (l *Listener) setKeyed(on bool) {
	if l.keyer != nil {
		l.keyer.SetKeyed(on)
	}
}
