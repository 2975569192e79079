package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genie/internal/jobs"
	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/realtime"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgPlansRefreshed MsgKind = iota
	MsgStoreChanged
	MsgConnUpdate
	MsgChatsFetched
	MsgChatLoaded
	MsgMessageSent
	MsgChatDeleted
	MsgNoticeExpired
)

type refreshResult struct {
	changed int
	err     error
}

type chatsResult struct {
	chats []models.Chat
	err   error
}

type chatResult struct {
	chat *models.Chat
	err  error
}

type sentResult struct {
	chatID   string
	messages []models.ChatMessage
	err      error
}

type deletedResult struct {
	chatID string
	err    error
}

// plansRefreshedMsg is the constructor for [MsgPlansRefreshed]
func plansRefreshedMsg(changed int, err error) Msg {
	return Msg{kind: MsgPlansRefreshed, data: refreshResult{changed, err}}
}

// storeChangedMsg is the constructor for [MsgStoreChanged]
func storeChangedMsg(c jobs.Change) Msg {
	return Msg{kind: MsgStoreChanged, data: c}
}

// connUpdateMsg is the constructor for [MsgConnUpdate]
func connUpdateMsg(u realtime.Update) Msg {
	return Msg{kind: MsgConnUpdate, data: u}
}

// chatsFetchedMsg is the constructor for [MsgChatsFetched]
func chatsFetchedMsg(chats []models.Chat, err error) Msg {
	return Msg{kind: MsgChatsFetched, data: chatsResult{chats, err}}
}

// chatLoadedMsg is the constructor for [MsgChatLoaded]
func chatLoadedMsg(chat *models.Chat, err error) Msg {
	return Msg{kind: MsgChatLoaded, data: chatResult{chat, err}}
}

// messageSentMsg is the constructor for [MsgMessageSent]
func messageSentMsg(chatID string, messages []models.ChatMessage, err error) Msg {
	return Msg{kind: MsgMessageSent, data: sentResult{chatID, messages, err}}
}

// chatDeletedMsg is the constructor for [MsgChatDeleted]
func chatDeletedMsg(chatID string, err error) Msg {
	return Msg{kind: MsgChatDeleted, data: deletedResult{chatID, err}}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]
func noticeExpiredMsg(seq int) Msg {
	return Msg{kind: MsgNoticeExpired, data: seq}
}
