package engine

import "github.com/barkeepd/barkeep/pkg/bar"

// Schedule arranges a debounced capture. Bursts of change notifications
// (level-up grants, programmatic bar rewrites) coalesce into one decision:
// each call stamps a fresh token, and the delayed callback only acts if its
// token is still the newest when it fires. The timer itself is never
// cancelled; superseded callbacks fire and do nothing.
func (e *Engine) Schedule() {
	e.capturePending = true
	e.captureToken++
	token := e.captureToken

	e.timer.After(e.cfg.Debounce, func() {
		if !e.capturePending || token != e.captureToken {
			e.log.Debug("capture superseded", "token", token, "current", e.captureToken)
			return
		}
		e.capturePending = false
		res, err := e.Perform(true, false)
		if err != nil {
			e.log.Warn("debounced capture failed", "err", err)
			return
		}
		e.log.Info("capture complete", "result", res.String())
	})
}

// Cancel clears the pending flag so an in-flight debounced capture becomes a
// no-op. Used when a restore-driven change must not race a stale capture.
func (e *Engine) Cancel() {
	e.capturePending = false
}

// Perform snapshots the bars now and decides what the snapshot means. At a
// level below the highest ever seen the edit belongs to the master layout
// (propagate permitting); otherwise the snapshot becomes the durable layout
// for the current level and superseded lower layouts are pruned.
//
// forceSave bypasses the rerun decision for explicit "save this as my
// layout" requests.
func (e *Engine) Perform(propagate, forceSave bool) (CaptureResult, error) {
	if blocked, reason := e.client.Blocked(); blocked {
		return CaptureResult{}, &BlockedError{Reason: reason}
	}
	spec := e.client.ActiveSpec()
	if spec <= 0 {
		return CaptureResult{}, &BlockedError{Reason: "no active specialization"}
	}
	level := e.client.Level()
	if level <= 0 {
		return CaptureResult{}, &BlockedError{Reason: "level unknown"}
	}

	snap := e.snapshotBars(level, spec)
	res := CaptureResult{Level: level, Spec: spec, Captured: snap.Captured}

	highest := e.store.HighestSeen()
	if highest > 0 && level < highest && !forceSave {
		res.Rerun = true
		if propagate {
			if old, ok := e.sessionBaseline(level, spec); ok {
				res.MasterChanges = e.syncToMaster(old, snap, spec)
			} else {
				e.log.Debug("no session baseline; capture establishes one",
					"level", level, "spec", spec)
			}
		}
		// The fresh snapshot always becomes the next diff baseline, even
		// when sync found nothing.
		e.store.SaveSession(level, snap, spec)
		return res, nil
	}

	if !e.store.Save(level, snap, spec) {
		return res, &BlockedError{Reason: "no spec context"}
	}
	res.Saved = true
	res.Pruned = e.store.PruneBelow(level, spec)
	return res, nil
}

// sessionBaseline fetches the session-tier snapshot for a level. The durable
// tier is deliberately not consulted: diffs compare against what the bars
// looked like earlier this run, not against saved history.
func (e *Engine) sessionBaseline(level, spec int) (*bar.Snapshot, bool) {
	return e.store.Session(level, spec)
}
