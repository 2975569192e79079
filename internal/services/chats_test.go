package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
	tu "github.com/desertthunder/genie/internal/testing"
)

func TestChatService(t *testing.T) {
	var deleted string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /chats", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("orderBy"); got != OrderByUpdated {
			t.Errorf("expected orderBy=updatedAt, got %q", got)
		}
		json.NewEncoder(w).Encode([]models.Chat{{ID: "c1", Title: "New Conversation"}})
	})
	mux.HandleFunc("POST /chats", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.Chat{ID: "c2", Title: "New Conversation"})
	})
	mux.HandleFunc("GET /chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail": "Chat not found"}`))
			return
		}
		json.NewEncoder(w).Encode(models.Chat{ID: "c1", Messages: []models.ChatMessage{{Content: "hi", IsUser: true}}})
	})
	mux.HandleFunc("DELETE /chats/{id}", func(w http.ResponseWriter, r *http.Request) {
		deleted = r.PathValue("id")
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /chats/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode([]models.ChatMessage{
			{Content: body["message"], IsUser: true},
			{Content: "Try a lentil curry.", IsUser: false},
		})
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	svc := NewChatService(NewAPIService(server.URL, nil, WithTokenProvider(tu.NewStaticTokens("u1", "tok"))))
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		chats, err := svc.List(ctx, OrderByUpdated)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(chats) != 1 || chats[0].ID != "c1" {
			t.Errorf("expected [c1], got %+v", chats)
		}
	})

	t.Run("List Invalid Order", func(t *testing.T) {
		if _, err := svc.List(ctx, "title"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Create", func(t *testing.T) {
		chat, err := svc.Create(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if chat.ID != "c2" {
			t.Errorf("expected c2, got %s", chat.ID)
		}
	})

	t.Run("Get", func(t *testing.T) {
		chat, err := svc.Get(ctx, "c1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if msg, ok := chat.LastMessage(); !ok || msg.Author() != "You" {
			t.Errorf("expected last message from user, got %+v", msg)
		}
	})

	t.Run("Get Not Found", func(t *testing.T) {
		if _, err := svc.Get(ctx, "nope"); !errors.Is(err, shared.ErrChatNotFound) {
			t.Errorf("expected ErrChatNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if err := svc.Delete(ctx, "c1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if deleted != "c1" {
			t.Errorf("expected c1 to be deleted, got %q", deleted)
		}
	})

	t.Run("SendMessage", func(t *testing.T) {
		msgs, err := svc.SendMessage(ctx, "c1", "  dinner ideas?  ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(msgs) != 2 {
			t.Fatalf("expected user and assistant messages, got %d", len(msgs))
		}
		if msgs[0].Content != "dinner ideas?" {
			t.Errorf("expected trimmed message, got %q", msgs[0].Content)
		}
		if msgs[1].IsUser {
			t.Error("expected second message to come from Genie")
		}
	})

	t.Run("SendMessage Empty", func(t *testing.T) {
		if _, err := svc.SendMessage(ctx, "c1", "   "); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
