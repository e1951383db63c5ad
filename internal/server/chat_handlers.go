package server

import (
	"io"
	"strings"

	"hoodlink/internal/api"
	"hoodlink/internal/chat"
	"hoodlink/internal/models"

	"github.com/gofiber/fiber/v2"
)

// OpenChatRequest opens a chat with a peer. Kind is dm, product or business.
type OpenChatRequest struct {
	Kind       string    `json:"kind"`
	PeerID     models.ID `json:"peer_id"`
	PeerType   string    `json:"peer_type"`
	ProductID  models.ID `json:"product_id"`
	BusinessID models.ID `json:"business_id"`
}

// SendMessageRequest is the JSON form of a send. Multipart sends carry the
// same fields as form values plus "files".
type SendMessageRequest struct {
	Text    string    `json:"text"`
	ReplyTo models.ID `json:"reply_to"`
}

// EditMessageRequest replaces the text and, when present, the media of a message.
type EditMessageRequest struct {
	Text  string         `json:"text"`
	Media []models.Media `json:"media"`
}

// ReactionRequest toggles one emoji.
type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

type chatResponse struct {
	RoomID   string           `json:"room_id"`
	Params   chat.Params      `json:"params"`
	Messages []models.Message `json:"messages"`
	Typing   []models.ID      `json:"typing"`
}

func newChatResponse(sess *chat.Session) chatResponse {
	return chatResponse{
		RoomID:   sess.RoomID(),
		Params:   sess.Params(),
		Messages: sess.Messages(),
		Typing:   sess.Typing(),
	}
}

func (s *Server) chatFor(c *fiber.Ctx) (*chat.Session, error) {
	roomID := c.Params("roomId")
	sess, ok := s.chats.Get(roomID)
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Chat", roomID))
		return nil, errResponseWritten
	}
	return sess, nil
}

// ListChats returns the open chat rooms.
// @Summary List open chats
// @Tags chats
// @Produce json
// @Success 200 {object} object{rooms=[]string}
// @Router /chats [get]
func (s *Server) ListChats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"rooms": s.chats.RoomIDs()})
}

// OpenChat opens, or returns the already open, chat for a peer.
// @Summary Open chat
// @Description Opens, or returns the already open, chat session for a peer
// @Tags chats
// @Accept json
// @Produce json
// @Param request body server.OpenChatRequest true "Chat participants"
// @Success 201 {object} server.chatResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /chats [post]
func (s *Server) OpenChat(c *fiber.Ctx) error {
	if s.session == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewUnauthorizedError("no signed-in user"))
	}
	var req OpenChatRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	kind, err := chat.ParseKind(req.Kind)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	sess, err := s.chats.Open(c.UserContext(), chat.Params{
		Kind:       kind,
		SelfID:     s.session.UserID,
		SelfType:   s.session.UserType,
		PeerID:     req.PeerID,
		PeerType:   req.PeerType,
		ProductID:  req.ProductID,
		BusinessID: req.BusinessID,
	})
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.Status(fiber.StatusCreated).JSON(newChatResponse(sess))
}

// GetMessages returns the history of an open chat.
// @Summary Get chat messages
// @Tags chats
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 200 {object} server.chatResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /chats/{roomId}/messages [get]
func (s *Server) GetMessages(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}
	return c.JSON(newChatResponse(sess))
}

// SendMessage sends text and attachments to an open chat.
// @Summary Send message
// @Description Sends text over the socket, or text with files through the REST send endpoint
// @Tags chats
// @Accept json,mpfd
// @Produce json
// @Param roomId path string true "Room ID"
// @Param request body server.SendMessageRequest false "Message"
// @Success 201 {object} models.Message
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /chats/{roomId}/messages [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}

	draft, closers, err := parseDraft(c)
	defer func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}()
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	msg, err := sess.Send(c.UserContext(), draft)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// parseDraft reads a JSON body or a multipart form with optional "files".
func parseDraft(c *fiber.Ctx) (chat.Draft, []io.Closer, error) {
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		var req SendMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return chat.Draft{}, nil, models.NewValidationError("Invalid request body")
		}
		return chat.Draft{Text: req.Text, ReplyTo: req.ReplyTo}, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return chat.Draft{}, nil, models.NewValidationError("Invalid multipart form")
	}
	draft := chat.Draft{
		Text:    c.FormValue("text"),
		ReplyTo: models.ID(c.FormValue("reply_to")),
	}
	var closers []io.Closer
	for _, fh := range form.File["files"] {
		f, err := fh.Open()
		if err != nil {
			return chat.Draft{}, closers, models.NewValidationError("Unreadable attachment " + fh.Filename)
		}
		closers = append(closers, f)
		draft.Uploads = append(draft.Uploads, api.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Body:        f,
		})
	}
	return draft, closers, nil
}

// EditMessage edits one message.
// @Summary Edit message
// @Tags chats
// @Accept json
// @Produce json
// @Param roomId path string true "Room ID"
// @Param messageId path string true "Message ID"
// @Param request body server.EditMessageRequest true "New content"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /chats/{roomId}/messages/{messageId} [put]
func (s *Server) EditMessage(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}
	var req EditMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	msg, err := sess.Edit(c.UserContext(), models.ID(c.Params("messageId")), req.Text, req.Media)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(msg)
}

// DeleteMessage deletes one message.
// @Summary Delete message
// @Tags chats
// @Produce json
// @Param roomId path string true "Room ID"
// @Param messageId path string true "Message ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /chats/{roomId}/messages/{messageId} [delete]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}
	if err := sess.Delete(c.UserContext(), models.ID(c.Params("messageId"))); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleReaction adds or removes the user's emoji on a message.
// @Summary Toggle message reaction
// @Tags chats
// @Accept json
// @Produce json
// @Param roomId path string true "Room ID"
// @Param messageId path string true "Message ID"
// @Param request body server.ReactionRequest true "Emoji"
// @Success 200 {object} models.Message
// @Failure 404 {object} models.ErrorResponse
// @Router /chats/{roomId}/messages/{messageId}/reactions [post]
func (s *Server) ToggleReaction(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}
	var req ReactionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	present, err := sess.ToggleReaction(c.UserContext(), models.ID(c.Params("messageId")), req.Emoji)
	if err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.JSON(fiber.Map{"emoji": req.Emoji, "reacted": present})
}

// Typing reports a keystroke in an open chat.
// @Summary Report typing
// @Tags chats
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 202
// @Router /chats/{roomId}/typing [post]
func (s *Server) Typing(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}
	if err := sess.NotifyTyping(c.UserContext()); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// ClearChat deletes the whole conversation on the server.
// @Summary Delete conversation
// @Tags chats
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 204
// @Router /chats/{roomId}/clear [post]
func (s *Server) ClearChat(c *fiber.Ctx) error {
	sess, err := s.chatFor(c)
	if err != nil {
		return nil
	}
	if err := sess.DeleteChat(c.UserContext()); err != nil {
		return models.RespondWithError(c, 0, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CloseChat leaves the room and forgets the session.
// @Summary Close chat
// @Tags chats
// @Produce json
// @Param roomId path string true "Room ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /chats/{roomId} [delete]
func (s *Server) CloseChat(c *fiber.Ctx) error {
	roomID := c.Params("roomId")
	if !s.chats.Close(roomID) {
		return models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Chat", roomID))
	}
	return c.SendStatus(fiber.StatusNoContent)
}
