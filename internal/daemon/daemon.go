// Package daemon wires the bridge watcher, per-character client mirrors,
// engines and storage into one event loop. Every engine call — whether
// triggered by an exporter line or a timer — runs on that loop, which is
// what lets everything below stay lock-free.
package daemon

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/barkeepd/barkeep/internal/bridge"
	"github.com/barkeepd/barkeep/internal/client"
	"github.com/barkeepd/barkeep/internal/config"
	"github.com/barkeepd/barkeep/internal/engine"
	"github.com/barkeepd/barkeep/internal/storage"
)

const defaultFlushEvery = 30 * time.Second

// session is one character's live state: its mirror, engine and store.
type session struct {
	character string
	engine    *engine.Engine
	mirror    *client.Mirror

	// settled flips true once the first full bar snapshot after login has
	// been folded in; that snapshot triggers the level flow.
	settled bool
}

// Daemon owns the event loop and all character sessions.
type Daemon struct {
	cfg      *config.Config
	profiles *config.Profiles
	store    *storage.Storage
	watcher  *bridge.Watcher
	log      *slog.Logger

	id       string // correlates outbox commands and logs to one run
	loop     chan func()
	quit     chan struct{}
	sessions map[string]*session

	flushEvery time.Duration
}

func New(cfg *config.Config, log *slog.Logger) (*Daemon, error) {
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OutboxDir, 0o755); err != nil {
		return nil, err
	}
	store, err := storage.New(cfg.DataDir, log)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	log = log.With("run_id", id[:8])
	watcher, err := bridge.NewWatcher(cfg.ExportDir, log)
	if err != nil {
		return nil, err
	}
	return &Daemon{
		cfg:        cfg,
		profiles:   profiles,
		store:      store,
		watcher:    watcher,
		log:        log,
		id:         id,
		loop:       make(chan func(), 64),
		quit:       make(chan struct{}),
		sessions:   make(map[string]*session),
		flushEvery: defaultFlushEvery,
	}, nil
}

// Run processes events until the context is cancelled, then flushes every
// dirty store and returns.
func (d *Daemon) Run(ctx context.Context) error {
	defer close(d.quit)
	defer d.watcher.Close()

	watchErr := make(chan error, 1)
	go func() { watchErr <- d.watcher.Start(ctx) }()

	d.log.Info("daemon started",
		"export_dir", d.cfg.ExportDir, "data_dir", d.cfg.DataDir)

	flush := time.NewTicker(d.flushEvery)
	defer flush.Stop()

	events := d.watcher.Events()
	for {
		select {
		case <-ctx.Done():
			d.flushAll()
			<-watchErr
			return nil
		case err := <-watchErr:
			d.flushAll()
			return err
		case fn := <-d.loop:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			d.handleEvent(ev)
		case <-flush.C:
			d.flushAll()
		}
	}
}

func (d *Daemon) handleEvent(ev bridge.Event) {
	if ev.Character == "" {
		d.log.Warn("event without character", "type", ev.Type)
		return
	}
	s, err := d.session(ev.Character)
	if err != nil {
		d.log.Error("session init failed", "character", ev.Character, "err", err)
		return
	}
	s.mirror.Apply(ev)

	switch ev.Type {
	case bridge.TypeLogin:
		s.settled = false
	case bridge.TypeSlots:
		if !s.settled {
			// The first full snapshot after login: the mirror now holds
			// level, spec, registries and bars, so run the level flow.
			s.settled = true
			s.engine.HandleLevelChange(s.mirror.Level())
			return
		}
		s.engine.NotifySlotChanged(0)
	case bridge.TypeSlot:
		s.engine.NotifySlotChanged(ev.Slot)
	case bridge.TypeLevel:
		s.engine.HandleLevelChange(ev.Level)
	case bridge.TypeSpec:
		s.engine.HandleSpecChange(ev.Spec)
	case bridge.TypeCombat:
		s.engine.HandleCombat(ev.In)
	}
}

// session returns the character's session, hydrating its store from disk on
// first contact.
func (d *Daemon) session(character string) (*session, error) {
	if s, ok := d.sessions[character]; ok {
		return s, nil
	}
	st, err := d.store.LoadStore(character)
	if err != nil {
		return nil, err
	}
	outbox := client.NewOutbox(d.cfg.OutboxDir, character, d.id)
	log := d.log.With("character", character)
	mirror := client.NewMirror(character, d.cfg.Aliases, outbox, log)
	eng := engine.New(st, mirror, d.profiles,
		loopTimer{loop: d.loop, quit: d.quit}, d.engineConfig(), log)

	s := &session{character: character, engine: eng, mirror: mirror}
	d.sessions[character] = s
	d.log.Info("session opened", "character", character,
		"highest_seen", st.HighestSeen())
	return s, nil
}

func (d *Daemon) engineConfig() engine.Config {
	return engine.Config{
		Debounce:      time.Duration(d.cfg.DebounceMS) * time.Millisecond,
		VerifyDelay:   time.Duration(d.cfg.VerifyDelayMS) * time.Millisecond,
		VerifyRetries: d.cfg.VerifyRetries,
		Aliases:       d.cfg.Aliases,
	}
}

func (d *Daemon) flushAll() {
	for _, s := range d.sessions {
		st := s.engine.Store()
		if !st.Dirty() {
			continue
		}
		if err := d.store.SaveStore(st); err != nil {
			d.log.Error("flush failed", "character", s.character, "err", err)
		}
	}
}

// loopTimer schedules callbacks back onto the daemon loop so the engine only
// ever runs on one goroutine. Callbacks racing a shutdown are dropped.
type loopTimer struct {
	loop chan func()
	quit chan struct{}
}

func (t loopTimer) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		select {
		case t.loop <- fn:
		case <-t.quit:
		}
	})
}
