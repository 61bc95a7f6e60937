package deck

import (
	"slices"
	"time"
)

// Deletion is the undo notification created when a card is deleted.
type Deletion struct {
	NotificationID string
	Card           Card
	Index          int
	WasEditing     bool
	Expires        time.Time
}

// Delete removes a card. Unknown ids are a no-op and report false.
// The returned notification can be passed to Undo until it expires.
func (s *State) Delete(id string) (Deletion, bool) {
	i := s.indexOf(id)
	if i < 0 {
		return Deletion{}, false
	}

	d := Deletion{
		NotificationID: s.opts.newID(),
		Card:           s.Cards[i],
		Index:          i,
		WasEditing:     s.Editing[id],
		Expires:        s.opts.now().Add(s.opts.undoWindow),
	}

	s.Cards = slices.Concat(s.Cards[:i], s.Cards[i+1:])
	if d.WasEditing {
		s.setEditing(id, false)
	}
	s.pending = append(slices.Clip(s.pending), d)
	return d, true
}

// Undo restores the card of a pending notification at its original index,
// clamped to the current deck length.
func (s *State) Undo(notificationID string) (Card, error) {
	s.Expire()

	i := slices.IndexFunc(s.pending, func(d Deletion) bool { return d.NotificationID == notificationID })
	if i < 0 {
		return Card{}, ErrUndoExpired
	}
	d := s.pending[i]
	if s.indexOf(d.Card.ID) >= 0 {
		return Card{}, ErrDuplicateID
	}

	idx := min(d.Index, len(s.Cards))
	s.Cards = slices.Insert(slices.Clone(s.Cards), idx, d.Card)
	if d.WasEditing {
		s.setEditing(d.Card.ID, true)
	}
	s.pending = slices.Delete(slices.Clone(s.pending), i, i+1)
	return d.Card, nil
}

// Dismiss drops a notification before its window ends. Undo is no longer
// possible afterwards. Reports whether the notification was pending.
func (s *State) Dismiss(notificationID string) bool {
	i := slices.IndexFunc(s.pending, func(d Deletion) bool { return d.NotificationID == notificationID })
	if i < 0 {
		return false
	}
	s.pending = slices.Delete(slices.Clone(s.pending), i, i+1)
	return true
}

// Expire drops every notification whose window has elapsed and returns them.
func (s *State) Expire() []Deletion {
	now := s.opts.now()
	var expired, kept []Deletion
	for _, d := range s.pending {
		if now.Before(d.Expires) {
			kept = append(kept, d)
		} else {
			expired = append(expired, d)
		}
	}
	if len(expired) > 0 {
		s.pending = kept
	}
	return expired
}

// Pending returns the notifications that can still be undone. It does not
// drop elapsed ones; Expire does that.
func (s *State) Pending() []Deletion {
	now := s.opts.now()
	var live []Deletion
	for _, d := range s.pending {
		if now.Before(d.Expires) {
			live = append(live, d)
		}
	}
	return live
}

// UndoWindow is the configured undo window.
func (s *State) UndoWindow() time.Duration {
	return s.opts.undoWindow
}
