package inbox

import (
	"context"

	"hoodlink/internal/models"
	"hoodlink/internal/realtime"
	"hoodlink/internal/socketio"
)

// Attach joins the user's personal and business notification rooms and
// subscribes the unread and message events. Handlers read the selection from
// the inbox on every event. Every reconnect triggers a refetch because
// notifications may have been missed while offline. The returned detach func
// undoes all of it.
func (i *Inbox) Attach(rt realtime.Subscriber) (detach func()) {
	i.mu.Lock()
	i.emitter = rt
	i.mu.Unlock()

	onUnread := func(ctx context.Context, ev socketio.Event) {
		var payload models.UnreadEvent
		if err := ev.Decode(&payload); err != nil {
			i.log.LogError(ctx, ev.Name, "", err)
			return
		}
		_ = i.HandleUnread(ctx, payload)
	}
	onMessage := func(ctx context.Context, ev socketio.Event) {
		var msg models.Message
		if err := ev.Decode(&msg); err != nil {
			i.log.LogError(ctx, ev.Name, "", err)
			return
		}
		i.HandleMessage(msg)
	}

	undo := []func(){
		rt.On(models.EventNewUnreadMessage, onUnread),
		rt.On(models.EventNewUnreadBusinessMessage, onUnread),
		rt.On(models.EventReceiveMessage, onMessage),
		rt.OnConnect(func(ctx context.Context) { _ = i.Refetch(ctx, "connect") }),
		rt.Join(realtime.PersonalRoom(i.userID)),
		rt.Join(realtime.BusinessNotificationRoom(i.userID)),
	}

	return func() {
		for _, fn := range undo {
			fn()
		}
		i.mu.Lock()
		if i.emitter == rt {
			i.emitter = nil
		}
		i.mu.Unlock()
	}
}
