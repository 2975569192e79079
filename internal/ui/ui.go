package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/genie/internal/jobs"
	"github.com/desertthunder/genie/internal/models"
	"github.com/desertthunder/genie/internal/realtime"
	"github.com/desertthunder/genie/internal/services"
	"github.com/desertthunder/genie/internal/tasks"
)

const noticeTTL = 6 * time.Second

// Tab is a top-level section of the TUI.
type Tab int

const (
	MealPlansTab Tab = iota
	ChatTab
)

func (t Tab) String() string {
	if t == ChatTab {
		return "Ask Genie"
	}
	return "Meal Plans"
}

// ViewState represents the current view within a tab.
type ViewState int

const (
	ListView ViewState = iota
	DetailView
)

// Connection is the realtime channel as seen by the UI.
type Connection interface {
	SetViewActive(active bool) error
	SetFocused(focused bool) error
	State() realtime.State
	Subscribe(buf int) (<-chan realtime.Update, func())
}

// PlanStore is the read side of the job store.
type PlanStore interface {
	List() []models.MealPlan
	Subscribe(buf int) (<-chan jobs.Change, func())
}

// Refresher re-fetches plans from the backend.
type Refresher interface {
	Refresh(ctx context.Context, progress chan<- tasks.ProgressUpdate) (int, error)
}

// ChatClient is the subset of the chat REST client the UI calls.
type ChatClient interface {
	List(ctx context.Context, orderBy string) ([]models.Chat, error)
	Get(ctx context.Context, id string) (*models.Chat, error)
	Create(ctx context.Context) (*models.Chat, error)
	Delete(ctx context.Context, id string) error
	SendMessage(ctx context.Context, id, message string) ([]models.ChatMessage, error)
}

// Deps are the collaborators of [Model]. Conn may be nil when realtime is unavailable.
type Deps struct {
	Conn   Connection
	Store  PlanStore
	Plans  Refresher
	Chats  ChatClient
	Logger *log.Logger
}

type notice struct {
	seq    int
	text   string
	failed bool
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	deps   Deps
	logger *log.Logger

	tab       Tab
	planView  ViewState
	chatView  ViewState
	width     int
	height    int
	connState realtime.State

	planList   list.Model
	planDetail viewport.Model
	selected   *models.MealPlan

	chatList   list.Model
	thread     viewport.Model
	input      textinput.Model
	chat       *models.Chat
	sending    bool
	spinner    spinner.Model
	chatsReady bool

	notices   []notice
	noticeSeq int
	status    string
	err       error

	storeCh     <-chan jobs.Change
	connCh      <-chan realtime.Update
	unsubscribe []func()

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}

	planList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	planList.Title = "Meal Plans"
	planList.SetShowHelp(false)

	chatList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	chatList.Title = "Ask Genie"
	chatList.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = "Ask Genie about meals, recipes, nutrition..."
	input.CharLimit = 2000

	m := &Model{
		ctx:        ctx,
		deps:       deps,
		logger:     logger,
		tab:        MealPlansTab,
		planList:   planList,
		planDetail: viewport.New(0, 0),
		chatList:   chatList,
		thread:     viewport.New(0, 0),
		input:      input,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.assistant)),
		help:       help.New(),
		keys:       newKeyMap(),
	}

	if deps.Store != nil {
		ch, cancel := deps.Store.Subscribe(32)
		m.storeCh = ch
		m.unsubscribe = append(m.unsubscribe, cancel)
		m.planList.SetItems(planItems(deps.Store.List()))
	}
	if deps.Conn != nil {
		ch, cancel := deps.Conn.Subscribe(16)
		m.connCh = ch
		m.unsubscribe = append(m.unsubscribe, cancel)
		m.connState = deps.Conn.State()
	}

	return m
}

// Close releases the store and connection subscriptions.
func (m *Model) Close() {
	for _, cancel := range m.unsubscribe {
		cancel()
	}
	m.unsubscribe = nil
}

// Tab returns the active tab.
func (m *Model) Tab() Tab { return m.tab }

// Err returns the last error shown to the user.
func (m *Model) Err() error { return m.err }

// Init activates the Meal Plans view and starts the initial fetches.
func (m *Model) Init() tea.Cmd {
	m.setViewActive(true)
	return tea.Batch(
		m.refreshPlans(),
		m.fetchChats(),
		m.waitForChange(),
		m.waitForConn(),
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.FocusMsg:
		m.setFocused(true)
		return m, nil

	case tea.BlurMsg:
		m.setFocused(false)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.forward(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlansRefreshed:
		res := msg.data.(refreshResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.err = nil
		m.syncPlans()
		return m, nil

	case MsgStoreChanged:
		change := msg.data.(jobs.Change)
		m.syncPlans()
		var cmd tea.Cmd
		if change.Notification != nil {
			cmd = m.pushNotice(*change.Notification)
		}
		return m, tea.Batch(cmd, m.waitForChange())

	case MsgConnUpdate:
		u := msg.data.(realtime.Update)
		if u.Event == nil {
			m.connState = u.State
		}
		return m, m.waitForConn()

	case MsgChatsFetched:
		res := msg.data.(chatsResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.chatsReady = true
		m.chatList.SetItems(chatItems(res.chats))
		return m, nil

	case MsgChatLoaded:
		res := msg.data.(chatResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		m.chat = res.chat
		m.chatView = DetailView
		m.renderThread()
		return m, m.input.Focus()

	case MsgMessageSent:
		res := msg.data.(sentResult)
		m.sending = false
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		if m.chat != nil && m.chat.ID == res.chatID {
			m.chat.Messages = append(m.chat.Messages, res.messages...)
			m.renderThread()
		}
		return m, tea.Batch(m.loadChat(res.chatID), m.fetchChats())

	case MsgChatDeleted:
		res := msg.data.(deletedResult)
		if res.err != nil {
			m.err = res.err
			return m, nil
		}
		if m.chat != nil && m.chat.ID == res.chatID {
			m.chat = nil
			m.chatView = ListView
		}
		return m, m.fetchChats()

	case MsgNoticeExpired:
		seq := msg.data.(int)
		for i, n := range m.notices {
			if n.seq == seq {
				m.notices = append(m.notices[:i], m.notices[i+1:]...)
				break
			}
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.setViewActive(false)
		return m, tea.Quit
	}

	typing := m.tab == ChatTab && m.chatView == DetailView

	switch msg.String() {
	case "tab":
		if m.tab == MealPlansTab {
			m.switchTab(ChatTab)
		} else {
			m.switchTab(MealPlansTab)
		}
		return m, nil
	case "q":
		if !typing && !m.filtering() {
			m.setViewActive(false)
			return m, tea.Quit
		}
	}

	if m.tab == MealPlansTab {
		return m.handlePlanKeys(msg)
	}
	return m.handleChatKeys(msg)
}

func (m *Model) handlePlanKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.planView == DetailView {
		switch msg.String() {
		case "esc":
			m.planView = ListView
			m.selected = nil
			return m, nil
		}
		var cmd tea.Cmd
		m.planDetail, cmd = m.planDetail.Update(msg)
		return m, cmd
	}

	if !m.filtering() {
		switch msg.String() {
		case "enter":
			if item, ok := m.planList.SelectedItem().(planItem); ok {
				plan := item.plan
				m.selected = &plan
				m.planView = DetailView
				m.renderPlanDetail()
			}
			return m, nil
		case "r":
			m.status = "Refreshing meal plans..."
			return m, m.refreshPlans()
		}
	}

	var cmd tea.Cmd
	m.planList, cmd = m.planList.Update(msg)
	return m, cmd
}

func (m *Model) handleChatKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.chatView == DetailView {
		switch msg.String() {
		case "esc":
			m.chatView = ListView
			m.input.Blur()
			return m, nil
		case "enter":
			return m, m.sendMessage()
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.thread, cmd = m.thread.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if !m.filtering() {
		switch msg.String() {
		case "enter":
			if item, ok := m.chatList.SelectedItem().(chatItem); ok {
				return m, m.loadChat(item.chat.ID)
			}
			return m, nil
		case "n":
			return m, m.createChat()
		case "d":
			if item, ok := m.chatList.SelectedItem().(chatItem); ok {
				return m, m.deleteChat(item.chat.ID)
			}
			return m, nil
		case "r":
			return m, m.fetchChats()
		}
	}

	var cmd tea.Cmd
	m.chatList, cmd = m.chatList.Update(msg)
	return m, cmd
}

func (m *Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.tab == MealPlansTab && m.planView == ListView:
		m.planList, cmd = m.planList.Update(msg)
	case m.tab == ChatTab && m.chatView == ListView:
		m.chatList, cmd = m.chatList.Update(msg)
	case m.tab == ChatTab:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) filtering() bool {
	if m.tab == MealPlansTab {
		return m.planList.FilterState() == list.Filtering
	}
	return m.chatList.FilterState() == list.Filtering
}

// switchTab changes tabs and tells the channel whether the jobs view is visible.
func (m *Model) switchTab(t Tab) {
	if m.tab == t {
		return
	}
	m.tab = t
	m.setViewActive(t == MealPlansTab)
	if t == ChatTab && m.chatView == DetailView {
		m.input.Focus()
	} else {
		m.input.Blur()
	}
}

func (m *Model) setViewActive(active bool) {
	if m.deps.Conn == nil {
		return
	}
	if err := m.deps.Conn.SetViewActive(active); err != nil {
		m.logger.Warn("failed to update view activity", "active", active, "error", err)
	}
}

func (m *Model) setFocused(focused bool) {
	if m.deps.Conn == nil {
		return
	}
	if err := m.deps.Conn.SetFocused(focused); err != nil {
		m.logger.Warn("failed to update focus", "focused", focused, "error", err)
	}
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	bodyH := max(h-8, 3)
	m.planList.SetSize(w-4, bodyH)
	m.chatList.SetSize(w-4, bodyH)
	m.planDetail.Width, m.planDetail.Height = w-4, bodyH
	m.thread.Width, m.thread.Height = w-4, max(bodyH-2, 1)
	m.input.Width = max(w-8, 10)
	if m.selected != nil {
		m.renderPlanDetail()
	}
	if m.chat != nil {
		m.renderThread()
	}
}

// syncPlans reloads the list from the store, keeping the cursor and the open detail current.
func (m *Model) syncPlans() {
	if m.deps.Store == nil {
		return
	}
	plans := m.deps.Store.List()
	idx := m.planList.Index()
	m.planList.SetItems(planItems(plans))
	if idx < len(plans) {
		m.planList.Select(idx)
	}
	m.status = ""

	if m.selected == nil {
		return
	}
	for _, p := range plans {
		if p.ID == m.selected.ID {
			plan := p
			m.selected = &plan
			m.renderPlanDetail()
			return
		}
	}
}

func (m *Model) pushNotice(n jobs.Notification) tea.Cmd {
	m.noticeSeq++
	seq := m.noticeSeq

	text := n.Title + ": " + n.Message
	m.notices = append(m.notices, notice{seq: seq, text: text, failed: n.Failed})
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return noticeExpiredMsg(seq) })
}

func (m *Model) waitForChange() tea.Cmd {
	if m.storeCh == nil {
		return nil
	}
	ch := m.storeCh
	return func() tea.Msg {
		c, ok := <-ch
		if !ok {
			return nil
		}
		return storeChangedMsg(c)
	}
}

func (m *Model) waitForConn() tea.Cmd {
	if m.connCh == nil {
		return nil
	}
	ch := m.connCh
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return connUpdateMsg(u)
	}
}

func (m *Model) refreshPlans() tea.Cmd {
	if m.deps.Plans == nil {
		return nil
	}
	return func() tea.Msg {
		changed, err := m.deps.Plans.Refresh(m.ctx, nil)
		return plansRefreshedMsg(changed, err)
	}
}

func (m *Model) fetchChats() tea.Cmd {
	if m.deps.Chats == nil {
		return nil
	}
	return func() tea.Msg {
		chats, err := m.deps.Chats.List(m.ctx, services.OrderByUpdated)
		return chatsFetchedMsg(chats, err)
	}
}

func (m *Model) loadChat(id string) tea.Cmd {
	return func() tea.Msg {
		chat, err := m.deps.Chats.Get(m.ctx, id)
		return chatLoadedMsg(chat, err)
	}
}

func (m *Model) createChat() tea.Cmd {
	return func() tea.Msg {
		chat, err := m.deps.Chats.Create(m.ctx)
		return chatLoadedMsg(chat, err)
	}
}

func (m *Model) deleteChat(id string) tea.Cmd {
	return func() tea.Msg {
		return chatDeletedMsg(id, m.deps.Chats.Delete(m.ctx, id))
	}
}

func (m *Model) sendMessage() tea.Cmd {
	if m.chat == nil || m.sending {
		return nil
	}
	text := m.input.Value()
	if text == "" {
		return nil
	}

	m.sending = true
	m.input.Reset()
	id := m.chat.ID
	m.chat.Messages = append(m.chat.Messages, models.ChatMessage{Content: text, IsUser: true})
	m.renderThread()

	send := func() tea.Msg {
		msgs, err := m.deps.Chats.SendMessage(m.ctx, id, text)
		if err == nil && len(msgs) > 0 && msgs[0].IsUser {
			msgs = msgs[1:]
		}
		return messageSentMsg(id, msgs, err)
	}
	return tea.Batch(send, m.spinner.Tick)
}
