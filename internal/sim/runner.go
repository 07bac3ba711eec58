// Package sim replays scripted exporter sessions against a real engine on a
// virtual clock. A scenario goes through the same dispatch the daemon uses,
// so a run answers "what would the daemon have done" without wall time,
// export files or goroutines.
package sim

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/barkeepd/barkeep/internal/bridge"
	"github.com/barkeepd/barkeep/internal/client"
	"github.com/barkeepd/barkeep/internal/config"
	"github.com/barkeepd/barkeep/internal/engine"
	"github.com/barkeepd/barkeep/internal/layout"
	"github.com/barkeepd/barkeep/pkg/bar"
)

// Result is the state left behind by a finished run.
type Result struct {
	Scenario  string
	Character string

	Steps    int // timeline entries applied
	Commands int // outbox lines the mirror emitted

	HighestSeen int
	SavedLevels []int // durable layouts for the final spec
	Bars        map[int]bar.Descriptor
	Store       *layout.Store

	Elapsed time.Duration // virtual
}

// Runner plays one scenario. Everything runs on the calling goroutine.
type Runner struct {
	sc  *Scenario
	log *slog.Logger
}

func NewRunner(sc *Scenario, log *slog.Logger) *Runner {
	return &Runner{sc: sc, log: log.With("scenario", sc.Name)}
}

// Run builds a fresh mirror, engine and store for the scenario's character,
// applies every step in timeline order and then drains the clock so pending
// captures and verify passes settle.
func (r *Runner) Run() (*Result, error) {
	cfg := config.DefaultConfig()
	if r.sc.Slots != "" {
		cfg.Slots = r.sc.Slots
	}
	profiles, err := cfg.Profiles()
	if err != nil {
		return nil, err
	}

	outDir, err := os.MkdirTemp("", "barkeep-sim-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(outDir)

	outbox := client.NewOutbox(outDir, r.sc.Character, "sim")
	mirror := client.NewMirror(r.sc.Character, cfg.Aliases, outbox, r.log)
	faulty := &faultyClient{Client: mirror, refusals: make(map[int]int)}
	store := layout.NewStore(r.sc.Character)
	clock := NewStepClock()
	eng := engine.New(store, faulty, profiles, clock, r.engineConfig(cfg), r.log)

	steps := make([]Step, len(r.sc.Steps))
	copy(steps, r.sc.Steps)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].AtMS < steps[j].AtMS })

	settled := false
	for _, step := range steps {
		clock.AdvanceTo(time.Duration(step.AtMS) * time.Millisecond)

		if rej := step.Reject; rej != nil {
			times := rej.Times
			if times <= 0 {
				times = 1
			}
			faulty.refuse(rej.Slot, times)
			continue
		}

		ev := *step.Event
		if ev.Character == "" {
			ev.Character = r.sc.Character
		}
		if ev.Character != r.sc.Character {
			r.log.Warn("foreign character event ignored", "character", ev.Character)
			continue
		}

		mirror.Apply(ev)
		switch ev.Type {
		case bridge.TypeLogin:
			settled = false
		case bridge.TypeSlots:
			if !settled {
				settled = true
				eng.HandleLevelChange(mirror.Level())
				continue
			}
			eng.NotifySlotChanged(0)
		case bridge.TypeSlot:
			eng.NotifySlotChanged(ev.Slot)
		case bridge.TypeLevel:
			eng.HandleLevelChange(ev.Level)
		case bridge.TypeSpec:
			eng.HandleSpecChange(ev.Spec)
		case bridge.TypeCombat:
			eng.HandleCombat(ev.In)
		}
	}
	clock.Drain()

	commands, err := countLines(filepath.Join(outDir, r.sc.Character+".jsonl"))
	if err != nil {
		return nil, err
	}
	return &Result{
		Scenario:    r.sc.Name,
		Character:   r.sc.Character,
		Steps:       len(steps),
		Commands:    commands,
		HighestSeen: store.HighestSeen(),
		SavedLevels: store.SavedLevels(mirror.ActiveSpec()),
		Bars:        mirror.Slots(),
		Store:       store,
		Elapsed:     clock.Now(),
	}, nil
}

func (r *Runner) engineConfig(cfg *config.Config) engine.Config {
	debounce := r.sc.DebounceMS
	if debounce <= 0 {
		debounce = cfg.DebounceMS
	}
	delay := r.sc.VerifyDelayMS
	if delay <= 0 {
		delay = cfg.VerifyDelayMS
	}
	retries := cfg.VerifyRetries
	if r.sc.VerifyRetries != nil {
		retries = *r.sc.VerifyRetries
	}
	return engine.Config{
		Debounce:      time.Duration(debounce) * time.Millisecond,
		VerifyDelay:   time.Duration(delay) * time.Millisecond,
		VerifyRetries: retries,
		Aliases:       cfg.Aliases,
	}
}

// faultyClient wraps the mirror and refuses a scripted number of placements
// per slot, exercising the engine's failure and verify paths.
type faultyClient struct {
	engine.Client
	refusals map[int]int
}

func (f *faultyClient) refuse(slot, times int) { f.refusals[slot] += times }

func (f *faultyClient) refused(slot int) bool {
	if f.refusals[slot] > 0 {
		f.refusals[slot]--
		return true
	}
	return false
}

func (f *faultyClient) PlaceAbility(slot, abilityID int) bool {
	if f.refused(slot) {
		return false
	}
	return f.Client.PlaceAbility(slot, abilityID)
}

func (f *faultyClient) PlaceItem(slot, itemID int) bool {
	if f.refused(slot) {
		return false
	}
	return f.Client.PlaceItem(slot, itemID)
}

func (f *faultyClient) PlaceMacro(slot int, name string) bool {
	if f.refused(slot) {
		return false
	}
	return f.Client.PlaceMacro(slot, name)
}

func (f *faultyClient) PlaceCompanion(slot int, subtype string, id int) bool {
	if f.refused(slot) {
		return false
	}
	return f.Client.PlaceCompanion(slot, subtype, id)
}

func (f *faultyClient) PlaceEquipmentSet(slot int, name string) bool {
	if f.refused(slot) {
		return false
	}
	return f.Client.PlaceEquipmentSet(slot, name)
}

func countLines(path string) (int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bytes.Count(data, []byte{'\n'}), nil
}
