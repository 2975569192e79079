package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
)

const chatsPath = "/chats"

// Chat list orderings accepted by the backend.
const (
	OrderByCreated = "createdAt"
	OrderByUpdated = "updatedAt"
)

// ChatService manages "Ask Genie" conversation threads.
type ChatService struct {
	api *APIService
}

func NewChatService(api *APIService) *ChatService {
	return &ChatService{api: api}
}

// List returns the principal's chats ordered by orderBy (createdAt when empty).
func (s *ChatService) List(ctx context.Context, orderBy string) ([]models.Chat, error) {
	switch orderBy {
	case "":
		orderBy = OrderByCreated
	case OrderByCreated, OrderByUpdated:
	default:
		return nil, fmt.Errorf("%w: order by %q", shared.ErrInvalidArgument, orderBy)
	}

	var chats []models.Chat
	path := chatsPath + "?orderBy=" + url.QueryEscape(orderBy)
	if err := s.api.getJSON(ctx, path, &chats); err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return chats, nil
}

func (s *ChatService) Get(ctx context.Context, id string) (*models.Chat, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: chat id", shared.ErrMissingArgument)
	}

	var chat models.Chat
	if err := s.api.getJSON(ctx, chatsPath+"/"+url.PathEscape(id), &chat); err != nil {
		return nil, s.wrap("get", id, err)
	}
	return &chat, nil
}

// Create starts an empty thread. The backend titles it until the first message arrives.
func (s *ChatService) Create(ctx context.Context) (*models.Chat, error) {
	var chat models.Chat
	if err := s.api.postJSON(ctx, chatsPath, struct{}{}, &chat); err != nil {
		return nil, fmt.Errorf("failed to create chat: %w", err)
	}
	return &chat, nil
}

func (s *ChatService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: chat id", shared.ErrMissingArgument)
	}

	resp, err := s.api.Delete(ctx, chatsPath+"/"+url.PathEscape(id))
	if err != nil {
		return s.wrap("delete", id, err)
	}
	if err := decode(resp, nil); err != nil {
		return s.wrap("delete", id, err)
	}
	return nil
}

// SendMessage posts message to the chat and returns the stored user message followed by Genie's reply.
func (s *ChatService) SendMessage(ctx context.Context, id, message string) ([]models.ChatMessage, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: chat id", shared.ErrMissingArgument)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", shared.ErrInvalidInput)
	}

	var msgs []models.ChatMessage
	body := map[string]string{"message": message}
	if err := s.api.postJSON(ctx, chatsPath+"/"+url.PathEscape(id)+"/messages", body, &msgs); err != nil {
		return nil, s.wrap("send message to", id, err)
	}
	return msgs, nil
}

func (s *ChatService) wrap(op, id string, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s", shared.ErrChatNotFound, id)
	}
	return fmt.Errorf("failed to %s chat %s: %w", op, id, err)
}
