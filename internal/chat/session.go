// Package chat implements one open conversation: its history, sending with
// optimistic entries reconciled against server echoes, edits, deletes,
// reactions and typing indicators.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/models"
	"hoodlink/internal/observability"
	"hoodlink/internal/realtime"
	"hoodlink/internal/repository"
	"hoodlink/internal/rooms"
	"hoodlink/internal/socketio"
)

const defaultTypingDebounce = 1500 * time.Millisecond

// Kind is the chat variant. It decides how the room id is built and which
// events join and leave the room.
type Kind string

const (
	KindDM       Kind = "dm"
	KindProduct  Kind = "product"
	KindBusiness Kind = "business"
)

// ParseKind maps a conversation type onto a Kind. Empty means DM.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case "", KindDM:
		return KindDM, nil
	case KindProduct, KindBusiness:
		return Kind(s), nil
	}
	return "", models.NewValidationError(fmt.Sprintf("unknown chat kind %q", s))
}

// Params identifies the participants of a chat.
type Params struct {
	Kind       Kind      `json:"kind"`
	SelfID     models.ID `json:"self_id"`
	SelfType   string    `json:"self_type,omitempty"`
	PeerID     models.ID `json:"peer_id"`
	PeerType   string    `json:"peer_type,omitempty"`
	ProductID  models.ID `json:"product_id,omitempty"`
	BusinessID models.ID `json:"business_id,omitempty"`
}

// Validate refuses chats whose participants are not all known.
func (p Params) Validate() error {
	if p.SelfID.Empty() || p.PeerID.Empty() {
		return models.ErrMissingParticipant
	}
	switch p.Kind {
	case KindDM:
	case KindProduct:
		if p.ProductID.Empty() {
			return fmt.Errorf("%w: product chat without product id", models.ErrMissingParticipant)
		}
	case KindBusiness:
		if p.BusinessID.Empty() {
			return fmt.Errorf("%w: business chat without business id", models.ErrMissingParticipant)
		}
	default:
		return models.NewValidationError(fmt.Sprintf("unknown chat kind %q", p.Kind))
	}
	return nil
}

// customerID is the user side of a business chat.
func (p Params) customerID() models.ID {
	if p.SelfType == rooms.TypeBusiness {
		return p.PeerID
	}
	return p.SelfID
}

// RoomID computes the room through the shared constructors.
func (p Params) RoomID() string {
	switch p.Kind {
	case KindProduct:
		return rooms.ProductRoomID(p.SelfID, p.PeerID, p.ProductID)
	case KindBusiness:
		return rooms.BusinessChatRoomID(p.BusinessID, p.customerID())
	default:
		return rooms.DirectRoomID(p.SelfID, p.PeerID)
	}
}

func (p Params) room() realtime.Room {
	if p.Kind == KindBusiness {
		return realtime.BusinessChatRoom(p.RoomID(), p.BusinessID, p.SelfID)
	}
	return realtime.ConversationRoom(p.RoomID(), p.SelfID)
}

// API is the REST surface a session needs. *api.Client satisfies it.
type API interface {
	RoomMessages(ctx context.Context, roomID string, productID models.ID) ([]models.Message, error)
	SendMessage(ctx context.Context, msg models.Message) (*models.Message, error)
	EditMessage(ctx context.Context, messageID models.ID, roomID, text string, media []models.Media) (*models.Message, error)
	DeleteMessage(ctx context.Context, messageID models.ID, roomID string) error
	DeleteChat(ctx context.Context, roomID string) error
	UploadMessageMedia(ctx context.Context, up api.Upload) (models.Media, error)
}

// Config holds the collaborators shared by every session.
type Config struct {
	API            API
	Realtime       realtime.Subscriber
	Archive        repository.MessageRepository
	TypingDebounce time.Duration
	// DisableEchoDedupe appends every echo as a new entry.
	DisableEchoDedupe bool
}

// Session is one open chat.
type Session struct {
	params   Params
	roomID   string
	api      API
	rt       realtime.Subscriber
	archive  repository.MessageRepository
	dedupe   bool
	debounce time.Duration
	log      *observability.SyncLogger

	mu           sync.Mutex
	messages     []models.Message
	typing       []models.ID
	typingActive bool
	typingTimer  *time.Timer
	typingGen    uint64
	closed       bool
	undo         []func()
	subs         map[uint64]func(Event)
	nextSub      uint64
}

// Open validates the participants, joins the room, subscribes the chat events
// and loads the history.
func Open(ctx context.Context, cfg Config, p Params) (*Session, error) {
	if p.Kind == "" {
		p.Kind = KindDM
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	debounce := cfg.TypingDebounce
	if debounce <= 0 {
		debounce = defaultTypingDebounce
	}
	s := &Session{
		params:   p,
		roomID:   p.RoomID(),
		api:      cfg.API,
		rt:       cfg.Realtime,
		archive:  cfg.Archive,
		dedupe:   !cfg.DisableEchoDedupe,
		debounce: debounce,
		log:      observability.NewSyncLogger("chat"),
		subs:     make(map[uint64]func(Event)),
	}

	s.undo = []func(){
		s.rt.On(models.EventReceiveMessage, s.onMessage),
		s.rt.On(models.EventMessageReaction, s.onReaction(true)),
		s.rt.On(models.EventMessageReactionRemoved, s.onReaction(false)),
		s.rt.On(models.EventUserTyping, s.onTyping),
		s.rt.Join(p.room()),
	}

	if err := s.Load(ctx); err != nil {
		s.Close()
		return nil, err
	}
	s.log.LogLifecycle(ctx, "chat_opened", map[string]interface{}{"room_id": s.roomID, "kind": string(p.Kind)})
	return s, nil
}

// RoomID is the id of the chat room.
func (s *Session) RoomID() string { return s.roomID }

// Params returns the participants the session was opened with.
func (s *Session) Params() Params { return s.params }

// Load replaces the history with the server copy. Pending sends stay at the
// end. When the server is unreachable the archive, if any, is used instead.
func (s *Session) Load(ctx context.Context) error {
	history, err := s.api.RoomMessages(ctx, s.roomID, s.params.ProductID)
	if err != nil {
		archived, ok := s.fromArchive(ctx)
		if !ok {
			s.log.LogError(ctx, "load_history", s.roomID, err)
			return err
		}
		observability.GlobalLogger.WarnContext(ctx, "Loaded chat history from archive",
			slog.String("room_id", s.roomID),
			slog.String("error", err.Error()),
		)
		history = archived
	} else {
		for _, m := range history {
			s.archiveUpsert(ctx, m)
		}
	}

	s.mu.Lock()
	var pending []models.Message
	for _, m := range s.messages {
		if m.Pending {
			pending = append(pending, m)
		}
	}
	s.messages = append(append(make([]models.Message, 0, len(history)+len(pending)), history...), pending...)
	s.mu.Unlock()

	s.notify(Event{Kind: EventLoaded})
	return nil
}

func (s *Session) fromArchive(ctx context.Context) ([]models.Message, bool) {
	if s.archive == nil {
		return nil, false
	}
	msgs, err := s.archive.ListByRoom(ctx, s.roomID, 0)
	if err != nil || len(msgs) == 0 {
		return nil, false
	}
	return msgs, true
}

// Messages returns a copy of the message list in display order.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Clone()
	}
	return out
}

func (s *Session) indexByID(id models.ID) int {
	if id.Empty() {
		return -1
	}
	for i := range s.messages {
		if s.messages[i].MessageID == id {
			return i
		}
	}
	return -1
}

func (s *Session) indexByClientID(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i := range s.messages {
		if s.messages[i].ClientMessageID == clientID {
			return i
		}
	}
	return -1
}

// Close unsubscribes, stops typing and releases the room. It is safe to call
// more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	undo := s.undo
	s.undo = nil
	wasTyping := s.stopTypingLocked()
	s.mu.Unlock()

	if wasTyping {
		s.emitTyping(context.Background(), false)
	}
	for _, fn := range undo {
		fn()
	}
}

func (s *Session) archiveUpsert(ctx context.Context, m models.Message) {
	if s.archive == nil || m.MessageID.Empty() {
		return
	}
	if err := s.archive.Upsert(ctx, m); err != nil {
		s.log.LogError(ctx, "archive_upsert", s.roomID, err)
	}
}

func (s *Session) onMessage(ctx context.Context, ev socketio.Event) {
	var msg models.Message
	if err := ev.Decode(&msg); err != nil {
		s.log.LogError(ctx, ev.Name, s.roomID, err)
		return
	}
	if msg.RoomID != s.roomID {
		return
	}
	s.applyIncoming(ctx, msg)
}
