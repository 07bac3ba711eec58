package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/barkeepd/barkeep/pkg/bar"
)

// Outbox command actions.
const (
	ActionPlace = "place"
	ActionClear = "clear"
)

// Command is one outbox line for the game-side addon to execute. Session and
// Seq let the addon discard duplicates after a daemon restart.
type Command struct {
	Session    string          `json:"session"`
	Seq        int             `json:"seq"`
	Time       time.Time       `json:"time"`
	Action     string          `json:"action"`
	Slot       int             `json:"slot"`
	Descriptor *bar.Descriptor `json:"descriptor,omitempty"`
}

// Outbox appends placement commands to one character's JSON-lines file.
type Outbox struct {
	path    string
	session string
	seq     int
}

// NewOutbox creates an outbox writing to <dir>/<character>.jsonl. The
// character key comes from the export file name, so it is already a safe
// file name. session should be unique per daemon run.
func NewOutbox(dir, character, session string) *Outbox {
	return &Outbox{
		path:    filepath.Join(dir, character+".jsonl"),
		session: session,
	}
}

// Place enqueues a placement command.
func (o *Outbox) Place(slot int, d bar.Descriptor) error {
	return o.append(Command{Action: ActionPlace, Slot: slot, Descriptor: &d})
}

// Clear enqueues a clear command.
func (o *Outbox) Clear(slot int) error {
	return o.append(Command{Action: ActionClear, Slot: slot})
}

func (o *Outbox) append(cmd Command) error {
	o.seq++
	cmd.Session = o.session
	cmd.Seq = o.seq
	cmd.Time = time.Now().UTC()

	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(o.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
