// Package monitor polls a roster source and warns about denylisted players.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/kazz187/rosterguard/internal/denylist"
	"github.com/kazz187/rosterguard/internal/roster"
	"github.com/kazz187/rosterguard/pkg/clog"
	"github.com/kazz187/rosterguard/pkg/panicerr"
)

// Source supplies the current roster on every poll.
type Source interface {
	Roster(ctx context.Context) (*roster.Roster, error)
}

// FileSource reads the roster from a YAML file each time.
type FileSource struct {
	Path string
}

func (s FileSource) Roster(ctx context.Context) (*roster.Roster, error) {
	return roster.LoadFile(s.Path)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*roster.Roster, error)

func (f SourceFunc) Roster(ctx context.Context) (*roster.Roster, error) {
	return f(ctx)
}

type Config struct {
	Interval time.Duration
	Context  denylist.Context
	// FSWatch also refreshes the denylist as soon as its file changes.
	FSWatch bool
}

type Monitor struct {
	cfg      Config
	store    *denylist.Store
	source   Source
	renderer *denylist.Renderer
	logger   *slog.Logger

	lastWarned []denylist.Match
}

// New creates a monitor. A nil renderer prints uncolored warnings to stdout.
func New(cfg Config, store *denylist.Store, source Source, renderer *denylist.Renderer, logger *slog.Logger) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if renderer == nil {
		renderer = denylist.NewRenderer(os.Stdout, nil, logger)
	}
	return &Monitor{
		cfg:      cfg,
		store:    store,
		source:   source,
		renderer: renderer,
		logger:   logger,
	}
}

// Run polls until ctx is done. Poll failures are logged and retried on the
// next tick.
func (m *Monitor) Run(ctx context.Context) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	if m.cfg.FSWatch {
		p.Go(func(ctx context.Context) error {
			watch := panicerr.Safe(func() error { return m.store.Watch(ctx) })
			if err := watch(); err != nil {
				// The lazy check in CheckAll still keeps the store fresh.
				m.logger.Warn("denylist file watch disabled", clog.ErrorAttributeKey, err)
			}
			return nil
		})
	}

	p.Go(m.loop)

	if err := p.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (m *Monitor) loop(ctx context.Context) error {
	m.logger.Info("monitor started",
		"denylist", m.store.Path(),
		"entries", m.store.Size(),
		"interval", m.cfg.Interval.String(),
	)

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	poll := panicerr.Safe(func() error {
		_, err := m.Poll(ctx)
		return err
	})
	for {
		if err := poll(); err != nil {
			m.logger.Error("poll failed", clog.ErrorAttributeKey, err)
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle: fetch the roster, check it, and render a warning if
// the matched players differ from the previous warning. Poll is not safe
// for concurrent use.
func (m *Monitor) Poll(ctx context.Context) ([]denylist.Match, error) {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttribute(ctx, "cycle", ulid.Make().String())

	r, err := panicerr.Call(ctx, m.source.Roster)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roster: %w", err)
	}

	matches := m.store.CheckAll(r.All())
	m.logger.DebugContext(ctx, "roster checked", "players", r.Len(), "matches", len(matches))

	if slices.Equal(matches, m.lastWarned) {
		return matches, nil
	}
	m.lastWarned = matches
	if len(matches) > 0 {
		m.logger.InfoContext(ctx, "denylisted players found", "matches", len(matches))
		m.renderer.RenderWarning(matches, m.cfg.Context)
	}
	return matches, nil
}
