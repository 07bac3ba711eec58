package engine

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/barkeepd/barkeep/internal/layout"
	"github.com/barkeepd/barkeep/pkg/bar"
)

// ErrNoLayout reports that no layout exists for the requested level and
// spec. Recoverable: the caller simply has nothing to restore yet.
var ErrNoLayout = errors.New("no layout saved")

// BlockedError reports that the client interface currently rejects bar
// edits. Fully recoverable; retry once the blocking context ends.
type BlockedError struct {
	Reason string
}

func (e *BlockedError) Error() string {
	return "interface blocked: " + e.Reason
}

// Reason categorizes a per-slot placement failure.
type Reason string

const (
	ReasonNotFound    Reason = "not-found"
	ReasonNotInBags   Reason = "not-in-bags"
	ReasonPassive     Reason = "passive"
	ReasonMissingData Reason = "missing-data"
	ReasonUnsupported Reason = "unsupported-type"
)

// Failure records one slot the restore engine could not fill.
type Failure struct {
	Slot   int
	Kind   bar.Kind
	Name   string
	Reason Reason
}

// RestoreOutcome is the structured result of one restore batch. Per-slot
// failures are data, not errors: the batch always runs to completion.
type RestoreOutcome struct {
	Requested  int // level asked for
	Level      int // level actually applied (master substitution)
	Spec       int
	Tier       layout.Tier
	ForceClear bool
	Restored   int
	Cleared    int
	Corrected  int // mismatches fixed by the immediate verify pass
	Failures   []Failure
}

func (o *RestoreOutcome) fail(slot int, d bar.Descriptor, reason Reason) {
	o.Failures = append(o.Failures, Failure{
		Slot:   slot,
		Kind:   d.Kind,
		Name:   d.DisplayName(),
		Reason: reason,
	})
}

// Summary renders a compact human-readable report: counts plus up to two
// example names per failure reason.
func (o *RestoreOutcome) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "restored %d slots at level %d", o.Restored, o.Level)
	if o.Level != o.Requested {
		fmt.Fprintf(&b, " (master, requested %d)", o.Requested)
	}
	if len(o.Failures) == 0 {
		return b.String()
	}

	byReason := make(map[Reason][]string)
	for _, f := range o.Failures {
		byReason[f.Reason] = append(byReason[f.Reason], f.Name)
	}
	reasons := make([]string, 0, len(byReason))
	for r := range byReason {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)

	fmt.Fprintf(&b, "; %d failed (", len(o.Failures))
	for i, r := range reasons {
		if i > 0 {
			b.WriteString("; ")
		}
		names := byReason[Reason(r)]
		b.WriteString(r)
		b.WriteString(": ")
		if len(names) > 2 {
			fmt.Fprintf(&b, "%s, %s +%d more", names[0], names[1], len(names)-2)
		} else {
			b.WriteString(strings.Join(names, ", "))
		}
	}
	b.WriteString(")")
	return b.String()
}

// CaptureResult is the structured result of one capture decision.
type CaptureResult struct {
	Level         int
	Spec          int
	Rerun         bool // routed to master-sync instead of saving
	Saved         bool // durable layout written
	Captured      int  // occupied slots recorded
	MasterChanges int
	Pruned        int
}

func (r CaptureResult) String() string {
	if r.Rerun {
		return fmt.Sprintf("synced %d change(s) to master from level %d", r.MasterChanges, r.Level)
	}
	if !r.Saved {
		return "nothing captured"
	}
	s := fmt.Sprintf("saved layout for level %d (%d slots)", r.Level, r.Captured)
	if r.Pruned > 0 {
		s += fmt.Sprintf(", pruned %d superseded", r.Pruned)
	}
	return s
}
