package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/genie/internal/models"
)

var (
	_ list.Item = planItem{}
	_ list.Item = chatItem{}
)

// planItem wraps [models.MealPlan] to implement [list.Item].
type planItem struct {
	plan models.MealPlan
}

func (i planItem) FilterValue() string { return i.plan.Title() }
func (i planItem) Title() string       { return i.plan.Title() }
func (i planItem) Description() string {
	desc := styles.statusBadge(i.plan.Status)
	if n := i.plan.Plan.MealCount(); n > 0 {
		desc = fmt.Sprintf("%s • %d meals", desc, n)
	}
	if i.plan.Status == models.StatusError && i.plan.Error != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.plan.Error)
	}
	return desc
}

// chatItem wraps [models.Chat] to implement [list.Item].
type chatItem struct {
	chat models.Chat
}

func (i chatItem) FilterValue() string { return i.chat.Title }
func (i chatItem) Title() string {
	if i.chat.Title == "" {
		return "New chat"
	}
	return i.chat.Title
}
func (i chatItem) Description() string {
	last, ok := i.chat.LastMessage()
	if !ok {
		return "No messages yet"
	}
	return fmt.Sprintf("%s: %s", last.Author(), truncate(last.Content, 60))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func planItems(plans []models.MealPlan) []list.Item {
	items := make([]list.Item, len(plans))
	for i, p := range plans {
		items[i] = planItem{plan: p}
	}
	return items
}

func chatItems(chats []models.Chat) []list.Item {
	items := make([]list.Item, len(chats))
	for i, c := range chats {
		items[i] = chatItem{chat: c}
	}
	return items
}
