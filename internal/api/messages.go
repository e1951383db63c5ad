package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"

	"hoodlink/internal/models"
)

// RoomMessages returns the history of a room. productID scopes product chats.
func (c *Client) RoomMessages(ctx context.Context, roomID string, productID models.ID) ([]models.Message, error) {
	var query url.Values
	if !productID.Empty() {
		query = url.Values{"productId": {productID.String()}}
	}
	return getList[models.Message](ctx, c, "/messages/:roomId", "/messages/"+url.PathEscape(roomID), query)
}

// SendMessage persists a message through the REST endpoint.
func (c *Client) SendMessage(ctx context.Context, msg models.Message) (*models.Message, error) {
	fields := map[string]string{
		"room_id":           msg.RoomID,
		"sender_id":         msg.SenderID.String(),
		"sender_type":       msg.SenderType,
		"recipient_id":      msg.RecipientID.String(),
		"recipient_type":    msg.RecipientType,
		"product_id":        msg.ProductID.String(),
		"business_id":       msg.BusinessID.String(),
		"text":              msg.Text,
		"client_message_id": msg.ClientMessageID,
		"replyToMessageId":  msg.ReplyToMessageID.String(),
	}
	var out models.Message
	if err := c.postForm(ctx, "/messages/send", fields, msg.Media, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EditMessage replaces the text and media of an existing message.
func (c *Client) EditMessage(ctx context.Context, messageID models.ID, roomID, text string, media []models.Media) (*models.Message, error) {
	fields := map[string]string{
		"message_id": messageID.String(),
		"room_id":    roomID,
		"text":       text,
	}
	var out models.Message
	if err := c.postForm(ctx, "/messages/edit", fields, media, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteMessage deletes one message from a room.
func (c *Client) DeleteMessage(ctx context.Context, messageID models.ID, roomID string) error {
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		route:  "/api/messages/:id",
		path:   "/api/messages/" + escape(messageID),
		query:  url.Values{"roomId": {roomID}},
	})
	return err
}

// DeleteChat deletes a whole conversation for the current user.
func (c *Client) DeleteChat(ctx context.Context, roomID string) error {
	_, err := c.do(ctx, request{
		method: http.MethodPost,
		route:  "/api/chat/:roomId/delete",
		path:   "/api/chat/" + url.PathEscape(roomID) + "/delete",
	})
	return err
}

// postForm sends a multipart form. Empty fields are omitted and media is
// attached as a JSON array field.
func (c *Client) postForm(ctx context.Context, route string, fields map[string]string, media []models.Media, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := w.WriteField(name, value); err != nil {
			return err
		}
	}
	if len(media) > 0 {
		data, err := json.Marshal(media)
		if err != nil {
			return err
		}
		if err := w.WriteField("media", string(data)); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		route:       route,
		path:        route,
		body:        &buf,
		contentType: w.FormDataContentType(),
	})
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := decodeOne(body, "message", out); err != nil {
		return fmt.Errorf("decode %s: %w", route, err)
	}
	return nil
}
