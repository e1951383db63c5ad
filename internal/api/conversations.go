package api

import (
	"context"

	"hoodlink/internal/models"
)

// GeneralConversations lists the user's general inbox.
func (c *Client) GeneralConversations(ctx context.Context) ([]models.Conversation, error) {
	return getList[models.Conversation](ctx, c, "/api/messages/conversations", "/api/messages/conversations", nil)
}

// DirectConversations lists direct-message conversations.
func (c *Client) DirectConversations(ctx context.Context) ([]models.Conversation, error) {
	return getList[models.Conversation](ctx, c, "/api/messages/conversations/direct", "/api/messages/conversations/direct", nil)
}

// BusinessConversations lists the user's chats with businesses.
func (c *Client) BusinessConversations(ctx context.Context) ([]models.Conversation, error) {
	return getList[models.Conversation](ctx, c, "/api/messages/business-conversations", "/api/messages/business-conversations", nil)
}

// BusinessSalesConversations lists customer chats for a business the user owns.
func (c *Client) BusinessSalesConversations(ctx context.Context, businessID models.ID) ([]models.Conversation, error) {
	return getList[models.Conversation](ctx, c, "/api/businesses/:id/conversations", "/api/businesses/"+escape(businessID)+"/conversations", nil)
}

// ProductConversations lists marketplace product inquiry chats.
func (c *Client) ProductConversations(ctx context.Context) ([]models.Conversation, error) {
	return getList[models.Conversation](ctx, c, "/api/messages/product-conversations", "/api/messages/product-conversations", nil)
}
