package feed

import (
	"context"

	"hoodlink/internal/models"
	"hoodlink/internal/realtime"
	"hoodlink/internal/socketio"
)

// Change describes a realtime delta applied to the feed.
type Change struct {
	Event  string    `json:"event"`
	PostID models.ID `json:"post_id,omitempty"`
	ID     models.ID `json:"id,omitempty"`
}

// HandleComment inserts a pushed comment. Known ids are ignored.
func (f *Feed) HandleComment(c models.Comment) bool {
	if c.ID.Empty() || c.PostID.Empty() {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.insertComment(c)
}

// HandleCommentDeleted removes a comment and its replies.
func (f *Feed) HandleCommentDeleted(ev models.DeletedEvent) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeSubtree(ev.ID) > 0
}

// HandlePostDeleted removes a post and its comments.
func (f *Feed) HandlePostDeleted(ev models.DeletedEvent) bool {
	id := ev.ID
	if id.Empty() {
		id = ev.PostID
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.postIndex(id)
	if idx < 0 {
		return false
	}
	f.posts = append(f.posts[:idx], f.posts[idx+1:]...)
	delete(f.comments, id)
	return true
}

// Watch joins the post's room so its comment deltas are delivered.
func (f *Feed) Watch(rt realtime.Subscriber, postID models.ID) (release func()) {
	return rt.Join(realtime.PostRoom(postID))
}

// Attach subscribes the comment and post deltas. onChange, if set, is called
// after each delta that changed the feed.
func (f *Feed) Attach(rt realtime.Subscriber, onChange func(Change)) (detach func()) {
	notify := func(ch Change) {
		if onChange != nil {
			onChange(ch)
		}
	}
	undo := []func(){
		rt.On(models.EventReceiveComment, func(ctx context.Context, ev socketio.Event) {
			var c models.Comment
			if err := ev.Decode(&c); err != nil {
				f.log.LogError(ctx, ev.Name, "", err)
				return
			}
			if f.HandleComment(c) {
				notify(Change{Event: ev.Name, PostID: c.PostID, ID: c.ID})
			}
		}),
		rt.On(models.EventCommentDeleted, func(ctx context.Context, ev socketio.Event) {
			var d models.DeletedEvent
			if err := ev.Decode(&d); err != nil {
				f.log.LogError(ctx, ev.Name, "", err)
				return
			}
			if f.HandleCommentDeleted(d) {
				notify(Change{Event: ev.Name, PostID: d.PostID, ID: d.ID})
			}
		}),
		rt.On(models.EventPostDeleted, func(ctx context.Context, ev socketio.Event) {
			var d models.DeletedEvent
			if err := ev.Decode(&d); err != nil {
				f.log.LogError(ctx, ev.Name, "", err)
				return
			}
			if f.HandlePostDeleted(d) {
				notify(Change{Event: ev.Name, PostID: d.ID, ID: d.ID})
			}
		}),
	}
	return func() {
		for _, fn := range undo {
			fn()
		}
	}
}
