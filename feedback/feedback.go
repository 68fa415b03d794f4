// Package feedback captures character reactions as a dataset for supervised
// fine-tuning of smaller models.
package feedback

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Separator joins interaction and answer in Record.Text.
const Separator = "||"

// Record is one captured exchange.
type Record struct {
	ID          string    `json:"id"`
	Time        time.Time `json:"time"`
	World       string    `json:"world"`
	Character   string    `json:"character"`
	Mood        string    `json:"mood"`
	Interaction string    `json:"interaction"`
	Answer      string    `json:"answer"`
	Prompt      string    `json:"prompt,omitempty"`
}

// Text renders the record as a training sample.
func (r Record) Text() string {
	return r.Interaction + Separator + r.Answer
}

// Recorder persists records.
type Recorder interface {
	Record(ctx context.Context, r Record) error
	Close() error
}

// stamp fills in the id and time of a record.
func stamp(r Record) Record {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Time.IsZero() {
		r.Time = time.Now().UTC()
	}
	return r
}

// Discard drops every record.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(context.Context, Record) error { return nil }

// Close implements Recorder.
func (Discard) Close() error { return nil }
