package services

import (
	"errors"

	"github.com/dmitrijs2005/mediagate/internal/client/mediaproxy"
	"github.com/dmitrijs2005/mediagate/internal/client/models"
)

// Outcome is what happened to one attachment.
type Outcome struct {
	ContentURI string
	Encrypted  bool
	Verdict    mediaproxy.Verdict
	// States lists every transition in order, starting with StateInit.
	States     []models.ScanState
	Resolution *mediaproxy.Resolution
	Blob       *mediaproxy.Blob
	Location   string
	Err        error
}

func newOutcome(a mediaproxy.Attachment) *Outcome {
	o := &Outcome{States: []models.ScanState{models.StateInit}}
	if a != nil {
		o.ContentURI = string(a.ContentURI())
		_, o.Encrypted = a.(*mediaproxy.EncryptedAttachment)
	}
	return o
}

// State is the latest state reached.
func (o *Outcome) State() models.ScanState {
	return o.States[len(o.States)-1]
}

func (o *Outcome) enter(s models.ScanState) {
	o.States = append(o.States, s)
}

// fail records err and moves to the terminal state it maps to.
func (o *Outcome) fail(err error) {
	o.Err = err
	if errors.Is(err, mediaproxy.ErrProxyRejected) {
		o.enter(models.StateRejected)
		return
	}
	o.enter(models.StateFailed)
}

// applyVerdict walks the submission states implied by v.
func (o *Outcome) applyVerdict(v mediaproxy.Verdict) {
	o.Verdict = v

	switch v.Mode {
	case mediaproxy.ModeSealed:
		o.enter(models.StateKeyDiscovered)
	case mediaproxy.ModeUnsealed:
		o.enter(models.StateKeyAbsent)
	case mediaproxy.ModeNone:
		if errors.Is(v.Cause, mediaproxy.ErrKeyUnavailable) {
			o.enter(models.StateKeyAbsent)
		}
		o.fail(v.Err())
		return
	}
	o.enter(models.StateSubmitted)

	if v.Clean {
		o.enter(models.StateClean)
		return
	}
	o.enter(models.StateUnclean)
	o.fail(v.Err())
}

func (o *Outcome) record() *models.JournalRecord {
	rec := &models.JournalRecord{
		ContentURI: o.ContentURI,
		Encrypted:  o.Encrypted,
		Mode:       string(o.Verdict.Mode),
		State:      o.State(),
		Clean:      o.Verdict.Clean,
		Location:   o.Location,
	}
	if o.Err != nil {
		rec.Error = o.Err.Error()
	}
	return rec
}
