package inbox

import "time"

// ChangeKind says what happened to the inbox.
type ChangeKind string

const (
	ChangeRefreshed ChangeKind = "refreshed"
	ChangeUnread    ChangeKind = "unread"
	ChangeActivity  ChangeKind = "activity"
	ChangeSelected  ChangeKind = "selected"
)

// Change is delivered to subscribers after the inbox state was updated.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	RoomID string     `json:"room_id,omitempty"`
	At     time.Time  `json:"at"`
}

// Subscribe registers fn for every change. fn runs on the goroutine that made
// the change and must not block.
func (i *Inbox) Subscribe(fn func(Change)) (unsubscribe func()) {
	i.subsMu.Lock()
	i.nextSub++
	id := i.nextSub
	i.subs[id] = fn
	i.subsMu.Unlock()

	return func() {
		i.subsMu.Lock()
		delete(i.subs, id)
		i.subsMu.Unlock()
	}
}

func (i *Inbox) notify(c Change) {
	i.subsMu.Lock()
	fns := make([]func(Change), 0, len(i.subs))
	for _, fn := range i.subs {
		fns = append(fns, fn)
	}
	i.subsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
