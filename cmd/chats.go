package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/shared"
	"github.com/urfave/cli/v3"
)

// ChatsList lists the signed-in principal's chats.
func (r *Runner) ChatsList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	chats, err := r.chats.List(ctx, cmd.String("order-by"))
	if err != nil {
		return err
	}
	r.saveSession(ctx)

	if cmd.Bool("json") {
		return r.writeJSON(chats, cmd.Bool("pretty"))
	}

	if len(chats) == 0 {
		return r.writePlain("No chats yet. Start one with 'genie chats create'\n")
	}

	r.writePlain("Found %d chats:\n\n", len(chats))
	for i, c := range chats {
		r.writePlain("%d. %s\n", i+1, chatTitle(c))
		r.writePlain("   ID: %s\n", c.ID)
		r.writePlain("   Messages: %d\n", len(c.Messages))
		if last, ok := c.LastMessage(); ok {
			r.writePlain("   Last: %s: %s\n", last.Author(), oneLine(last.Content, 60))
		}
		r.writePlain("\n")
	}
	return nil
}

// ChatsGet prints a chat thread.
func (r *Runner) ChatsGet(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: chat id", shared.ErrMissingArgument)
	}
	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	chat, err := r.chats.Get(ctx, id)
	if err != nil {
		return err
	}
	r.saveSession(ctx)

	if cmd.Bool("json") {
		return r.writeJSON(chat, cmd.Bool("pretty"))
	}

	r.writePlainHeader(chatTitle(*chat))
	r.writeMessages(chat.Messages)
	return nil
}

// ChatsCreate starts an empty chat.
func (r *Runner) ChatsCreate(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	chat, err := r.chats.Create(ctx)
	if err != nil {
		return err
	}
	r.saveSession(ctx)
	r.logger.Info("chat created", "id", chat.ID)

	if cmd.Bool("json") {
		return r.writeJSON(chat, cmd.Bool("pretty"))
	}

	r.writePlain("✓ Chat created: %s\n", chat.ID)
	return r.writePlain("Ask something with: genie chats send %s \"what should I cook tonight?\"\n", chat.ID)
}

// ChatsDelete removes a chat.
func (r *Runner) ChatsDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: chat id", shared.ErrMissingArgument)
	}
	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	if err := r.chats.Delete(ctx, id); err != nil {
		return err
	}
	r.saveSession(ctx)
	r.logger.Info("chat deleted", "id", id)

	return r.writePlain("✓ Chat %s deleted\n", id)
}

// ChatsSend posts a message and prints Genie's reply.
func (r *Runner) ChatsSend(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	message := strings.TrimSpace(cmd.StringArg("message"))
	if id == "" {
		return fmt.Errorf("%w: chat id", shared.ErrMissingArgument)
	}
	if message == "" {
		return fmt.Errorf("%w: message", shared.ErrMissingArgument)
	}
	if _, err := r.authenticate(ctx); err != nil {
		return err
	}

	messages, err := r.chats.SendMessage(ctx, id, message)
	if err != nil {
		return err
	}
	r.saveSession(ctx)

	if cmd.Bool("json") {
		return r.writeJSON(messages, cmd.Bool("pretty"))
	}

	for _, m := range messages {
		if !m.IsUser {
			r.writePlain("%s\n", m.Content)
		}
	}
	return nil
}

func (r *Runner) writeMessages(messages []models.ChatMessage) {
	if len(messages) == 0 {
		r.writePlain("(no messages)\n")
		return
	}
	for _, m := range messages {
		r.writePlain("\n%s:\n%s\n", m.Author(), m.Content)
	}
}

func chatTitle(c models.Chat) string {
	if c.Title == "" {
		return "New Chat"
	}
	return c.Title
}

func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= width {
		return s
	}
	return string([]rune(s)[:width-1]) + "…"
}
