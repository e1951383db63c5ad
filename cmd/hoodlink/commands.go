package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"hoodlink/internal/api"
	"hoodlink/internal/business"
	"hoodlink/internal/chat"
	"hoodlink/internal/feed"
	"hoodlink/internal/inbox"
	"hoodlink/internal/models"
)

// usageError makes run print the command usage.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

// stringList collects a repeatable flag.
type stringList []string

func (l *stringList) String() string     { return strings.Join(*l, ",") }
func (l *stringList) Set(v string) error { *l = append(*l, v); return nil }

// chatFlags parses the shared chat flags and the peer id, returning the
// remaining positional arguments.
func (c *cli) chatFlags(name string, args []string, minArgs int, extra func(*flag.FlagSet)) (chat.Params, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	kind := fs.String("kind", "dm", "chat kind: dm, product or business")
	peerType := fs.String("peer-type", "", "peer type: user or business")
	product := fs.String("product", "", "product id for product chats")
	businessID := fs.String("business", "", "business id for business chats")
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		return chat.Params{}, nil, usageError{err.Error()}
	}
	if fs.NArg() < minArgs {
		return chat.Params{}, nil, usageError{"missing arguments"}
	}

	k, err := chat.ParseKind(*kind)
	if err != nil {
		return chat.Params{}, nil, err
	}
	p := chat.Params{
		Kind:       k,
		SelfID:     c.session.UserID,
		SelfType:   c.session.UserType,
		PeerID:     models.ID(fs.Arg(0)),
		PeerType:   *peerType,
		ProductID:  models.ID(*product),
		BusinessID: models.ID(*businessID),
	}
	if p.Kind == chat.KindBusiness && p.BusinessID.Empty() && c.session.IsBusiness() {
		p.BusinessID = c.session.BusinessID
	}
	if err := p.Validate(); err != nil {
		return chat.Params{}, nil, err
	}
	return p, fs.Args()[1:], nil
}

func (c *cli) openChat(ctx context.Context, p chat.Params) (*chat.Session, error) {
	return chat.Open(ctx, c.rt.ChatConfig(c.rt.Realtime), p)
}

func runInbox(ctx context.Context, c *cli, args []string) (any, error) {
	if len(args) > 0 && args[0] == "products" {
		return c.rt.API.ProductConversations(ctx)
	}
	ib := inbox.New(c.rt.API, inbox.Options{
		UserID:     c.session.UserID,
		BusinessID: c.session.BusinessID,
		Cache:      c.rt.Cache,
		CacheTTL:   c.cfg.InboxCacheTTL,
	})
	if err := ib.FetchAll(ctx); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		return ib.Snapshot(), nil
	}
	cat, ok := inbox.ParseCategory(args[0])
	if !ok {
		return nil, usageError{"unknown category " + args[0]}
	}
	return ib.List(cat), nil
}

func runRoomID(_ context.Context, c *cli, args []string) (any, error) {
	p, _, err := c.chatFlags("room-id", args, 1, nil)
	if err != nil {
		return nil, err
	}
	return map[string]string{"room_id": p.RoomID()}, nil
}

func runMessages(ctx context.Context, c *cli, args []string) (any, error) {
	p, _, err := c.chatFlags("messages", args, 1, nil)
	if err != nil {
		return nil, err
	}
	s, err := c.openChat(ctx, p)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Messages(), nil
}

func runSend(ctx context.Context, c *cli, args []string) (any, error) {
	var files stringList
	p, rest, err := c.chatFlags("send", args, 1, func(fs *flag.FlagSet) {
		fs.Var(&files, "file", "attachment path, repeatable")
	})
	if err != nil {
		return nil, err
	}
	draft := chat.Draft{Text: strings.Join(rest, " ")}
	for _, path := range files {
		up, f, err := api.OpenUpload(path)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: %w", path, err)
		}
		defer func(f *os.File) { _ = f.Close() }(f)
		draft.Uploads = append(draft.Uploads, *up)
	}

	s, err := c.openChat(ctx, p)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	reconciled := make(chan models.Message, 1)
	unsubscribe := s.Subscribe(func(ev chat.Event) {
		if ev.Kind == chat.EventReconciled && ev.Message != nil {
			select {
			case reconciled <- *ev.Message:
			default:
			}
		}
	})
	defer unsubscribe()

	msg, err := s.Send(ctx, draft)
	if err != nil {
		return nil, err
	}
	if !msg.Pending {
		return msg, nil
	}
	select {
	case saved := <-reconciled:
		return saved, nil
	case <-time.After(5 * time.Second):
		return msg, nil
	case <-ctx.Done():
		return msg, nil
	}
}

func runEdit(ctx context.Context, c *cli, args []string) (any, error) {
	p, rest, err := c.chatFlags("edit", args, 3, nil)
	if err != nil {
		return nil, err
	}
	s, err := c.openChat(ctx, p)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Edit(ctx, models.ID(rest[0]), strings.Join(rest[1:], " "), nil)
}

func runDelete(ctx context.Context, c *cli, args []string) (any, error) {
	p, rest, err := c.chatFlags("delete", args, 2, nil)
	if err != nil {
		return nil, err
	}
	s, err := c.openChat(ctx, p)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if err := s.Delete(ctx, models.ID(rest[0])); err != nil {
		return nil, err
	}
	return map[string]string{"deleted": rest[0], "room_id": s.RoomID()}, nil
}

func runReact(ctx context.Context, c *cli, args []string) (any, error) {
	p, rest, err := c.chatFlags("react", args, 3, nil)
	if err != nil {
		return nil, err
	}
	s, err := c.openChat(ctx, p)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	present, err := s.ToggleReaction(ctx, models.ID(rest[0]), rest[1])
	if err != nil {
		return nil, err
	}
	return map[string]any{"message_id": rest[0], "emoji": rest[1], "reacted": present}, nil
}

func runFeed(ctx context.Context, c *cli, args []string) (any, error) {
	fs := flag.NewFlagSet("feed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	comments := fs.String("comments", "", "print the comment tree of one post")
	if err := fs.Parse(args); err != nil {
		return nil, usageError{err.Error()}
	}

	f := feed.New(c.rt.API, c.session.UserID)
	if err := f.Load(ctx); err != nil {
		return nil, err
	}
	if *comments == "" {
		return f.Posts(), nil
	}
	id := models.ID(*comments)
	if _, ok := f.Post(id); !ok {
		return nil, models.NewNotFoundError("Post", id)
	}
	return f.Comments(id), nil
}

func runBusiness(ctx context.Context, c *cli, args []string) (any, error) {
	if len(args) > 0 && args[0] == "list" {
		d := business.NewDirectory(c.rt.API)
		if err := d.Load(ctx); err != nil {
			return nil, err
		}
		return d.List(), nil
	}

	id := c.session.BusinessID
	if len(args) > 0 {
		id = models.ID(args[0])
	}
	if id.Empty() {
		return nil, errors.New("no business id given and BUSINESS_ID is not set")
	}
	page := business.NewPage(c.rt.API, c.rt.Cache, id, c.session.UserID)
	if err := page.Load(ctx); err != nil {
		return nil, err
	}
	return page.View(), nil
}
