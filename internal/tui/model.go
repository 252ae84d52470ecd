// Package tui renders the conversation surface in the terminal: a start
// control, the single mic toggle, a status line and the live receipt.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	conversation "github.com/baristalabs/barista-core/core"
	"github.com/baristalabs/barista-core/core/order"
	"github.com/baristalabs/barista-core/core/receipt"
)

type statusMsg string
type micControlMsg conversation.MicControl
type receiptMsg receipt.Receipt
type stateMsg conversation.State
type alertMsg string

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("130"))
	receiptStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("243")).
			Padding(0, 2)
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Width(7)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	alertStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	micReadyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	micRecordStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Blink(true)
	micIdleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	micPartyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Model is the bubbletea model for one conversation. Controller callbacks
// are forwarded into the program through the events channel so all rendering
// state changes flow through Update.
type Model struct {
	controller *conversation.Controller
	events     chan tea.Msg

	started    bool
	state      conversation.State
	micControl conversation.MicControl
	status     string
	alert      string
	rendered   receipt.Receipt
	thinking   spinner.Model

	width int
}

func NewModel(controller *conversation.Controller) *Model {
	thinking := spinner.New()
	thinking.Spinner = spinner.Dot

	return &Model{
		controller: controller,
		events:     make(chan tea.Msg, 16),
		state:      conversation.StateIdle,
		micControl: conversation.MicReady,
		rendered:   receipt.Render(order.Empty()),
		thinking:   thinking,
		width:      60,
	}
}

// ConverseOptions returns the controller callbacks that feed this model.
// Pass them to Controller.Converse before running the program.
func (m *Model) ConverseOptions() []conversation.ConverseOption {
	return []conversation.ConverseOption{
		conversation.WithStatusCallback(func(status string) { m.events <- statusMsg(status) }),
		conversation.WithMicControlCallback(func(control conversation.MicControl) { m.events <- micControlMsg(control) }),
		conversation.WithReceiptCallback(func(rendered receipt.Receipt) { m.events <- receiptMsg(rendered) }),
		conversation.WithStateChangedCallback(func(state conversation.State) { m.events <- stateMsg(state) }),
		conversation.WithAlertCallback(func(message string) { m.events <- alertMsg(message) }),
	}
}

func (m *Model) nextEvent() tea.Msg {
	return <-m.events
}

func (m *Model) Init() tea.Cmd {
	return m.nextEvent
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if !m.started || m.state == conversation.StateComplete || m.state == conversation.StateErrored {
				m.started = true
				m.alert = ""
				go m.controller.StartConversation()
			}
			return m, nil
		case " ":
			if m.started {
				m.alert = ""
				go m.controller.ToggleCapture()
			}
			return m, nil
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, m.nextEvent

	case micControlMsg:
		m.micControl = conversation.MicControl(msg)
		return m, m.nextEvent

	case receiptMsg:
		m.rendered = receipt.Receipt(msg)
		return m, m.nextEvent

	case alertMsg:
		m.alert = string(msg)
		return m, m.nextEvent

	case stateMsg:
		previous := m.state
		m.state = conversation.State(msg)
		if m.state == conversation.StateTransmitting && previous != conversation.StateTransmitting {
			return m, tea.Batch(m.nextEvent, m.thinking.Tick)
		}
		return m, m.nextEvent

	case spinner.TickMsg:
		if m.state != conversation.StateTransmitting {
			return m, nil
		}
		var cmd tea.Cmd
		m.thinking, cmd = m.thinking.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) View() string {
	if !m.started {
		return titleStyle.Render("Voice Barista") + "\n\n" +
			statusStyle.Render("Order a coffee by talking to the barista.") + "\n\n" +
			helpStyle.Render("enter: start conversation · q: quit") + "\n"
	}

	receiptCard := receiptStyle.Render(
		labelStyle.Render("Drink") + m.rendered.Drink + "\n" +
			labelStyle.Render("Size") + m.rendered.Size + "\n" +
			labelStyle.Render("Milk") + m.rendered.Milk + "\n" +
			labelStyle.Render("Name") + m.rendered.Name + "\n" +
			m.rendered.Extras,
	)

	status := m.status
	if m.state == conversation.StateTransmitting {
		status = m.thinking.View() + status
	}

	view := titleStyle.Render("Voice Barista") + "\n\n" +
		receiptCard + "\n\n" +
		m.micBadge() + "  " + statusStyle.Render(wordwrap.String(status, max(20, m.width-8))) + "\n"

	if m.alert != "" {
		view += "\n" + alertStyle.Render(wordwrap.String(m.alert, max(20, m.width-4))) + "\n"
	}

	return view + "\n" + helpStyle.Render(m.help()) + "\n"
}

func (m *Model) micBadge() string {
	switch m.micControl {
	case conversation.MicRecording:
		return micRecordStyle.Render("⏹️")
	case conversation.MicDisabled:
		return micIdleStyle.Render("⏳")
	case conversation.MicCelebrating:
		return micPartyStyle.Render("🎉")
	default:
		return micReadyStyle.Render("🎙️")
	}
}

func (m *Model) help() string {
	switch m.state {
	case conversation.StateAwaitingCapture, conversation.StateRecording, conversation.StateErrored:
		return "space: toggle mic · enter: restart · q: quit"
	case conversation.StateComplete:
		return "enter: new order · q: quit"
	default:
		return "q: quit"
	}
}
