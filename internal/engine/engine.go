// Package engine implements the capture, master-sync and restore logic that
// keeps one character's per-level action bar layouts correct. An Engine is
// owned by a single event loop: every method, including timer callbacks
// scheduled through the Timer, must run on that loop. Nothing here locks.
package engine

import (
	"log/slog"
	"time"

	"github.com/barkeepd/barkeep/internal/layout"
	"github.com/barkeepd/barkeep/pkg/bar"
	"github.com/barkeepd/barkeep/pkg/gamedata"
)

// Client is the game surface the engine reads and drives. Placement
// primitives report whether the client accepted the action; the engine's
// placement policy decides what to attempt and why an attempt was skipped.
type Client interface {
	// Blocked reports whether the interface currently rejects all bar
	// edits (vehicle, possess, control loss) and why.
	Blocked() (bool, string)
	InCombat() bool
	Level() int
	ActiveSpec() int

	ReadSlot(slot int) bar.Descriptor
	ClearSlot(slot int)
	PlaceAbility(slot, abilityID int) bool
	PlaceItem(slot, itemID int) bool
	PlaceMacro(slot int, name string) bool
	PlaceCompanion(slot int, subtype string, id int) bool
	PlaceEquipmentSet(slot int, name string) bool

	// Abilities returns the character's known abilities in the client's
	// rank order: later entries are higher ranks of the same name.
	Abilities() []gamedata.Ability
	ItemCount(itemID int) int
	HasMacro(name string) bool
	FindCompanion(subtype string, id int, name string) (gamedata.Companion, bool)
	HasEquipmentSet(name string) bool
}

// Profile answers which slots the character manages for a given spec.
type Profile interface {
	Enabled(slot, spec int) bool
}

// Timer schedules a fire-once callback. Implementations must deliver fn on
// the engine's event loop.
type Timer interface {
	After(d time.Duration, fn func())
}

// Config carries the engine's scheduling knobs and the spell-name alias
// table.
type Config struct {
	Debounce      time.Duration
	VerifyDelay   time.Duration
	VerifyRetries int
	Aliases       map[string]string
}

const (
	defaultDebounce      = 1500 * time.Millisecond
	defaultVerifyDelay   = time.Second
	defaultVerifyRetries = 2
)

// Engine wires the layout store to the client for one character.
type Engine struct {
	store   *layout.Store
	client  Client
	profile Profile
	timer   Timer
	log     *slog.Logger
	cfg     Config

	// capture scheduling
	capturePending bool
	captureToken   uint64

	// restore / verify state machine
	restoring     bool
	pendingVerify bool
	verifyGen     uint64
	verifyAttempt int // 0 = idle

	// level observation parked until combat drops
	pendingLevel int
}

// New creates an engine. Zero config fields fall back to defaults; a nil
// alias table falls back to the built-in catalog defaults.
func New(store *layout.Store, client Client, profile Profile, timer Timer, cfg Config, log *slog.Logger) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.VerifyDelay <= 0 {
		cfg.VerifyDelay = defaultVerifyDelay
	}
	if cfg.VerifyRetries <= 0 {
		cfg.VerifyRetries = defaultVerifyRetries
	}
	if cfg.Aliases == nil {
		cfg.Aliases = gamedata.DefaultAliases()
	}
	return &Engine{
		store:   store,
		client:  client,
		profile: profile,
		timer:   timer,
		log:     log,
		cfg:     cfg,
	}
}

// Store exposes the engine's layout store for listing and flushing.
func (e *Engine) Store() *layout.Store {
	return e.store
}

// Restoring reports whether a placement batch is actively running. Change
// notifications arriving while true are the engine's own placements echoing
// back and must not be captured as user edits.
func (e *Engine) Restoring() bool {
	return e.restoring
}

// NotifySlotChanged reacts to an external slot-change notification by
// scheduling a debounced capture. Changes to unmanaged slots and echoes of
// the engine's own placements are ignored.
func (e *Engine) NotifySlotChanged(slot int) {
	if e.restoring {
		return
	}
	if slot > 0 && !e.profile.Enabled(slot, e.client.ActiveSpec()) {
		return
	}
	e.Schedule()
}

// HandleLevelChange processes a confirmed level observation. In combat the
// observation is parked and replayed when combat drops; bar writes are
// locked down in combat anyway.
func (e *Engine) HandleLevelChange(level int) {
	if level <= 0 {
		return
	}
	if e.client.InCombat() {
		e.pendingLevel = level
		e.log.Info("level change deferred until combat ends", "level", level)
		return
	}
	e.applyLevelChange(level)
}

// HandleCombat tracks combat transitions and replays a parked level change
// once the character leaves combat.
func (e *Engine) HandleCombat(in bool) {
	if in || e.pendingLevel == 0 {
		return
	}
	level := e.pendingLevel
	e.pendingLevel = 0
	e.applyLevelChange(level)
}

// HandleSpecChange reacts to a specialization switch by re-applying the
// stored layout for the new spec at the current level.
func (e *Engine) HandleSpecChange(spec int) {
	e.Cancel()
	out, err := e.Restore(0, false)
	if err != nil {
		e.log.Info("no layout to restore after spec change", "spec", spec, "err", err)
		return
	}
	e.log.Info("restored layout after spec change", "spec", spec, "summary", out.Summary())
}

func (e *Engine) applyLevelChange(level int) {
	prev := e.store.HighestSeen()
	raised := e.store.ObserveLevel(level)
	if raised {
		// First-time ascent: the bars settle over the next few change
		// notifications (auto-granted abilities), so save debounced.
		e.log.Info("new highest level", "level", level, "previous", prev)
		e.Schedule()
		return
	}
	out, err := e.Restore(level, false)
	if err != nil {
		e.log.Warn("restore on level change failed", "level", level, "err", err)
		return
	}
	e.log.Info("restored layout on level change", "level", level, "summary", out.Summary())
}

// snapshotBars reads every enabled slot into a fresh snapshot. Empty slots
// are left absent so the captured count reflects real occupants.
func (e *Engine) snapshotBars(level, spec int) *bar.Snapshot {
	snap := bar.NewSnapshot(level)
	for slot := 1; slot <= bar.MaxSlot; slot++ {
		if !e.profile.Enabled(slot, spec) {
			continue
		}
		snap.Configured++
		if d := e.client.ReadSlot(slot); !d.IsEmpty() {
			snap.Set(slot, d)
		}
	}
	return snap
}

// enabledSlots returns the managed slot indexes for a spec in ascending
// order. Scan order matters: move/swap source detection ties break on the
// first match.
func (e *Engine) enabledSlots(spec int) []int {
	slots := make([]int, 0, bar.MaxSlot)
	for slot := 1; slot <= bar.MaxSlot; slot++ {
		if e.profile.Enabled(slot, spec) {
			slots = append(slots, slot)
		}
	}
	return slots
}
