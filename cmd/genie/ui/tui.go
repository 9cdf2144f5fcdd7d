package uicmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	bubbletea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/genie-cli/genie/pkg/conversation"
	"github.com/genie-cli/genie/pkg/utils"
)

func init() {
	// Force TrueColor profile to fix lipgloss color detection issue
	// See: https://github.com/charmbracelet/lipgloss/issues/439
	renderer := lipgloss.NewRenderer(os.Stdout, termenv.WithProfile(termenv.TrueColor))
	renderer.SetColorProfile(termenv.TrueColor)
	lipgloss.SetDefaultRenderer(renderer)
}

const panelWidth = 38

var (
	chatTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	chatMutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	chatQueryStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("82"))
	chatTipStyle     = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("114"))
	chatThinkStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	chatErrStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	chatChartStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	chatStopStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	chatDividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("237"))
	chatPanelStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("237")).
				Padding(0, 1).
				Width(panelWidth)
	chatPanelTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
)

type chatKeyMap struct {
	Send  key.Binding
	Panel key.Binding
	Task  key.Binding
	Plan  key.Binding
	Close key.Binding
	Quit  key.Binding
}

func (k chatKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.Panel, k.Task, k.Plan, k.Close, k.Quit}
}

func (k chatKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Send, k.Panel, k.Task}, {k.Plan, k.Close, k.Quit}}
}

func defaultChatKeyMap() chatKeyMap {
	return chatKeyMap{
		Send:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Panel: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "panel")),
		Task:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "tasks")),
		Plan:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("ctrl+p", "plan")),
		Close: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:  key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}

// turnUpdatedMsg is sent from the store subscription whenever any turn
// changes; the model re-reads the stores on every render.
type turnUpdatedMsg struct {
	handle conversation.Handle
}

// dispatchFailedMsg reports a query that could not be dispatched at all.
type dispatchFailedMsg struct {
	err error
}

type chatModel struct {
	session *conversation.Session
	mode    conversation.Mode
	model   string
	logger  *slog.Logger

	input     textinput.Model
	spin      spinner.Model
	help      help.Model
	keys      chatKeyMap
	width     int
	height    int
	taskIndex int
	lastErr   error
}

func newChatModel(session *conversation.Session, model string, logger *slog.Logger) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask the agent anything..."
	input.Prompt = chatQueryStyle.Render("you> ")
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))

	return chatModel{
		session: session,
		mode:    session.Mode(),
		model:   model,
		logger:  logger,
		input:   input,
		spin:    spin,
		help:    help.New(),
		keys:    defaultChatKeyMap(),
	}
}

func (m chatModel) Init() bubbletea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg bubbletea.Msg) (bubbletea.Model, bubbletea.Cmd) {
	switch msg := msg.(type) {
	case bubbletea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 8
		return m, nil

	case spinner.TickMsg:
		if !m.session.Busy() {
			return m, nil
		}
		var cmd bubbletea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case turnUpdatedMsg:
		// State lives in the session stores; the render below re-reads it.
		return m, nil

	case dispatchFailedMsg:
		m.lastErr = msg.err
		m.logger.Error("dispatch failed", "error", msg.err)
		return m, nil

	case bubbletea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m chatModel) handleKey(msg bubbletea.KeyMsg) (bubbletea.Model, bubbletea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, bubbletea.Quit

	case key.Matches(msg, m.keys.Send):
		return m.sendQuery()

	case key.Matches(msg, m.keys.Panel):
		if m.session.UI().PanelOpen() {
			m.session.UI().ClosePanel()
		} else if m.hasPanelContent() {
			m.session.UI().OpenPlan()
		}
		return m, nil

	case key.Matches(msg, m.keys.Task):
		m.cycleTask()
		return m, nil

	case key.Matches(msg, m.keys.Plan):
		if _, ok := m.session.UI().ActivePlan(); ok {
			m.session.UI().OpenPlan()
		}
		return m, nil

	case key.Matches(msg, m.keys.Close):
		m.session.UI().ClosePanel()
		return m, nil
	}

	var cmd bubbletea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m chatModel) sendQuery() (bubbletea.Model, bubbletea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.session.Busy() {
		return m, nil
	}

	m.input.Reset()
	m.lastErr = nil

	session := m.session
	dispatch := func() bubbletea.Msg {
		if _, err := session.Dispatch(context.Background(), query); err != nil {
			return dispatchFailedMsg{err: err}
		}
		return nil
	}

	return m, bubbletea.Batch(dispatch, m.spin.Tick)
}

// cycleTask focuses the next task of the most recent agent turn that has any.
func (m *chatModel) cycleTask() {
	turns := m.session.AgentTurns().Turns()
	for i := len(turns) - 1; i >= 0; i-- {
		if len(turns[i].Tasks) == 0 {
			continue
		}
		tasks := turns[i].Tasks
		m.session.UI().SelectTask(tasks[m.taskIndex%len(tasks)])
		m.taskIndex++
		return
	}
}

func (m chatModel) hasPanelContent() bool {
	ui := m.session.UI()
	if _, ok := ui.ActiveTask(); ok {
		return true
	}
	if _, ok := ui.ActivePlan(); ok {
		return true
	}
	_, ok := ui.ActiveFile()
	return ok
}

func (m chatModel) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	transcriptWidth := width
	if m.session.UI().PanelOpen() {
		transcriptWidth = width - panelWidth - 2
	}

	var b strings.Builder

	header := fmt.Sprintf("%s  %s  %s",
		chatTitleStyle.Render("genie"),
		chatMutedStyle.Render(m.model),
		chatMutedStyle.Render(fmt.Sprintf("[%s] %s", m.mode, headerTitle(m.session))),
	)
	b.WriteString(header + "\n")
	b.WriteString(chatDividerStyle.Render(strings.Repeat("─", max(1, transcriptWidth))) + "\n\n")

	b.WriteString(m.renderTranscript(transcriptWidth))

	if m.lastErr != nil {
		b.WriteString(chatErrStyle.Render(fmt.Sprintf("  ✗ %v", m.lastErr)) + "\n")
	}

	if m.session.Busy() {
		b.WriteString(fmt.Sprintf("  %s %s\n", m.spin.View(), chatMutedStyle.Render("waiting for the agent...")))
	}

	b.WriteString("\n" + m.input.View() + "\n\n")
	b.WriteString(m.help.View(m.keys))

	body := b.String()
	if m.session.UI().PanelOpen() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderPanel())
	}
	return body
}

// headerTitle is the session title for the header line, truncated so a long
// first query cannot push the model name off screen.
func headerTitle(s *conversation.Session) string {
	title := s.Title()
	if title == "" {
		return "new conversation"
	}
	return utils.Truncate(title, 60)
}

func (m chatModel) renderTranscript(width int) string {
	if m.mode == conversation.ModeData {
		var b strings.Builder
		for _, turn := range m.session.DataTurns().Turns() {
			b.WriteString(renderDataTurn(turn, width))
		}
		return b.String()
	}

	var b strings.Builder
	for _, turn := range m.session.AgentTurns().Turns() {
		b.WriteString(renderAgentTurn(turn, width))
	}
	return b.String()
}

// renderAgentTurn renders one agent-mode exchange for the transcript.
func renderAgentTurn(t conversation.AgentTurn, width int) string {
	var b strings.Builder
	b.WriteString(chatQueryStyle.Render("you> ") + t.Query + "\n")

	if t.Tip != "" {
		b.WriteString("  " + chatTipStyle.Render(t.Tip) + "\n")
	}
	if t.Thought != "" {
		b.WriteString("  " + chatThinkStyle.Render(t.Thought) + "\n")
	}
	if len(t.Tasks) > 0 {
		b.WriteString("  " + chatMutedStyle.Render(fmt.Sprintf("%d tasks (ctrl+t to inspect)", len(t.Tasks))) + "\n")
	}
	if t.Response != "" {
		b.WriteString(wrap(t.Response, width) + "\n")
	}
	if t.ForceStop {
		b.WriteString("  " + chatStopStyle.Render("stream closed before the task finished") + "\n")
	}

	b.WriteString("\n")
	return b.String()
}

// renderDataTurn renders one data-analysis exchange for the transcript.
func renderDataTurn(t conversation.DataTurn, width int) string {
	var b strings.Builder
	b.WriteString(chatQueryStyle.Render("you> ") + t.Query + "\n")

	if t.Think != "" {
		b.WriteString("  " + chatThinkStyle.Render(t.Think) + "\n")
	}
	if t.Response != "" {
		b.WriteString(wrap(t.Response, width) + "\n")
	}
	if t.Chart != nil {
		summary := fmt.Sprintf("chart: %s (%s, %d series)", t.Chart.Title(), t.Chart.Type(), t.Chart.SeriesCount())
		b.WriteString("  " + chatChartStyle.Render(summary) + "\n")
	}
	if t.Error != "" {
		b.WriteString("  " + chatErrStyle.Render("✗ "+t.Error) + "\n")
	}

	b.WriteString("\n")
	return b.String()
}

func (m chatModel) renderPanel() string {
	ui := m.session.UI()
	var b strings.Builder

	if task, ok := ui.ActiveTask(); ok {
		b.WriteString(chatPanelTitle.Render("Task") + "\n\n")
		b.WriteString(task.Title + "\n")
		if task.Status != "" {
			b.WriteString(chatMutedStyle.Render("status: "+task.Status) + "\n")
		}
		if task.MessageType != "" {
			b.WriteString(chatMutedStyle.Render("type: "+task.MessageType) + "\n")
		}
	} else if plan, ok := ui.ActivePlan(); ok {
		b.WriteString(chatPanelTitle.Render("Plan") + "\n\n")
		if plan.Title != "" {
			b.WriteString(plan.Title + "\n")
		}
		for i, step := range plan.Steps {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	} else if file, ok := ui.ActiveFile(); ok {
		b.WriteString(chatPanelTitle.Render("File") + "\n\n")
		b.WriteString(file.Name + "\n")
		b.WriteString(chatMutedStyle.Render(file.Path) + "\n")
	} else {
		b.WriteString(chatMutedStyle.Render("nothing selected"))
	}

	return chatPanelStyle.Render(b.String())
}

// wrap soft-wraps text to the given width, preserving existing newlines.
func wrap(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}

func runChatTUI(session *conversation.Session, model string, logger *slog.Logger) error {
	m := newChatModel(session, model, logger)

	program := bubbletea.NewProgram(m, bubbletea.WithAltScreen())

	// Store updates arrive on stream reader goroutines; Send marshals them
	// onto the program's event loop.
	session.AgentTurns().Subscribe(func(h conversation.Handle) {
		program.Send(turnUpdatedMsg{handle: h})
	})
	session.DataTurns().Subscribe(func(h conversation.Handle) {
		program.Send(turnUpdatedMsg{handle: h})
	})

	_, err := program.Run()
	return err
}
