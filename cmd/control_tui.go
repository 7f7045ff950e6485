// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/kwactl/pkg/rig"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const maxLogEntries = 100

// FPS slider steps while the input is focused
var fpsSteps = map[string]int{
	"up":     1,
	"down":   -1,
	"pgup":   10,
	"pgdown": -10,
}

// Focus states
const (
	focusPortList = iota
	focusFpsInput
	focusConnectButton
	focusRunButton
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// portItem is a selectable serial port
type portItem struct {
	info rig.PortInfo
}

// Implement list.Item interface
func (p portItem) Title() string { return p.info.Name }
func (p portItem) Description() string {
	if !p.info.IsUSB {
		return ""
	}
	if p.info.Product != "" {
		return p.info.Product
	}
	return fmt.Sprintf("USB %s:%s", p.info.VID, p.info.PID)
}
func (p portItem) FilterValue() string { return p.info.Name }

type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	ctrl   *rig.Controller
	stats  *rig.Statistics
	status rig.Status

	// Port selection
	portList   list.Model
	fixedPort  bool // --url: the bridge is the only target
	defaultTgt string

	// Control
	fpsInput     textinput.Model
	focusedField int
	busy         bool // an operation is in flight

	// Event log
	eventLog []logEntry

	// UI state
	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type portsMsg struct {
	ports []rig.PortInfo
	err   error
}

// opDoneMsg reports a finished controller operation
type opDoneMsg struct {
	message string
	status  rig.Status
	err     error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialControlModel(ctrl *rig.Controller, stats *rig.Statistics, target string, fixed bool) controlModel {
	status := ctrl.Status()

	// Initialize text input for FPS
	ti := textinput.New()
	ti.Placeholder = strconv.Itoa(rig.FpsDefault)
	ti.CharLimit = 4
	ti.Width = 6
	ti.SetValue(strconv.Itoa(int(status.FPS)))

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	portList := list.New([]list.Item{}, delegate, 30, 10)
	portList.Title = "Ports"
	portList.SetShowStatusBar(false)
	portList.SetShowHelp(false)
	portList.SetFilteringEnabled(false)

	if fixed {
		portList.Title = "Bridge"
		portList.SetItems([]list.Item{portItem{info: rig.PortInfo{Name: target}}})
	}

	return controlModel{
		ctrl:         ctrl,
		stats:        stats,
		status:       status,
		portList:     portList,
		fixedPort:    fixed,
		defaultTgt:   target,
		fpsInput:     ti,
		focusedField: focusPortList,
		width:        80,
		height:       24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	if m.fixedPort {
		return nil
	}
	return listPortsCmd()
}

func listPortsCmd() tea.Cmd {
	return func() tea.Msg {
		ports, err := rig.ListPorts()
		return portsMsg{ports: ports, err: err}
	}
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		if m.focusedField == focusPortList {
			var cmd tea.Cmd
			m.portList, cmd = m.portList.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.portList.SetSize(30, max(m.height-16, 4))

	case portsMsg:
		m.applyPorts(msg)

	case opDoneMsg:
		m.busy = false
		m.status = msg.status
		if msg.err != nil {
			m.addLogEntry(msg.err.Error(), true)
		} else if msg.message != "" {
			m.addLogEntry(msg.message, false)
		}
	}

	return m, nil
}

func (m *controlModel) applyPorts(msg portsMsg) {
	if msg.err != nil {
		m.addLogEntry(fmt.Sprintf("Port scan failed: %v", msg.err), true)
		return
	}

	items := make([]list.Item, 0, len(msg.ports))
	selected := 0
	for i, p := range msg.ports {
		items = append(items, portItem{info: p})
		if p.Name == m.defaultTgt {
			selected = i
		}
	}
	m.portList.SetItems(items)
	m.portList.Select(selected)
	m.addLogEntry(fmt.Sprintf("Found %d serial port(s)", len(items)), false)
}

func (m controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "q":
		if m.focusedField != focusFpsInput {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		m.cycleFocus(1)
		return m, nil

	case "shift+tab":
		m.cycleFocus(-1)
		return m, nil

	case "r":
		if m.focusedField != focusFpsInput && !m.fixedPort {
			return m, listPortsCmd()
		}

	case "enter":
		return m.handleEnter()

	case "up", "down", "pgup", "pgdown":
		if m.focusedField == focusFpsInput {
			m.stepFps(fpsSteps[msg.String()])
			return m, nil
		}
	}

	// Pass through to focused component
	var cmd tea.Cmd
	switch m.focusedField {
	case focusFpsInput:
		m.fpsInput, cmd = m.fpsInput.Update(msg)
	case focusPortList:
		m.portList, cmd = m.portList.Update(msg)
	}
	return m, cmd
}

// stepFps moves the FPS input by delta, clamped to the valid range. An
// unparsable value steps from the active FPS.
func (m *controlModel) stepFps(delta int) {
	fps, err := parseFps(m.fpsInput.Value())
	if err != nil {
		fps = int(m.status.FPS)
	}
	fps = min(max(fps+delta, rig.FpsMin), rig.FpsMax)
	m.fpsInput.SetValue(strconv.Itoa(fps))
	m.fpsInput.CursorEnd()
}

func (m *controlModel) cycleFocus(delta int) {
	const fields = focusRunButton + 1
	m.focusedField = (m.focusedField + delta + fields) % fields

	if m.focusedField == focusFpsInput {
		m.fpsInput.Focus()
	} else {
		m.fpsInput.Blur()
	}
}

func (m controlModel) handleEnter() (tea.Model, tea.Cmd) {
	if m.busy {
		m.addLogEntry("Busy, please wait", true)
		return m, nil
	}

	switch m.focusedField {
	case focusPortList, focusConnectButton:
		return m.handleConnectButton()
	case focusFpsInput, focusRunButton:
		return m.handleRunButton()
	}
	return m, nil
}

func (m controlModel) handleConnectButton() (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	if m.status.Link == rig.Connected {
		m.busy = true
		return m, func() tea.Msg {
			ctrl.Disconnect()
			return opDoneMsg{message: "Disconnected", status: ctrl.Status()}
		}
	}

	target := m.selectedPort()
	if target == "" {
		m.addLogEntry("No port selected", true)
		return m, nil
	}

	m.busy = true
	m.addLogEntry(fmt.Sprintf("Connecting to %s...", target), false)
	return m, func() tea.Msg {
		err := ctrl.Connect(target)
		return opDoneMsg{message: "Connected to " + target, status: ctrl.Status(), err: err}
	}
}

func (m controlModel) handleRunButton() (tea.Model, tea.Cmd) {
	ctrl := m.ctrl

	if m.status.Link != rig.Connected {
		m.addLogEntry("Not connected", true)
		return m, nil
	}

	if m.status.Run == rig.Running {
		m.busy = true
		return m, func() tea.Msg {
			_, err := ctrl.ToggleRun()
			return opDoneMsg{message: "Recording stopped", status: ctrl.Status(), err: err}
		}
	}

	// Bad input never reaches the rig
	fps, err := parseFps(m.fpsInput.Value())
	if err != nil {
		m.addLogEntry(err.Error(), true)
		return m, nil
	}

	m.busy = true
	return m, func() tea.Msg {
		if err := ctrl.SetFps(fps); err != nil {
			return opDoneMsg{status: ctrl.Status(), err: err}
		}
		_, err := ctrl.ToggleRun()
		return opDoneMsg{
			message: fmt.Sprintf("Recording at %d fps", fps),
			status:  ctrl.Status(),
			err:     err,
		}
	}
}

func (m controlModel) selectedPort() string {
	if item, ok := m.portList.SelectedItem().(portItem); ok {
		return item.info.Name
	}
	return m.defaultTgt
}

func (m *controlModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})
	if len(m.eventLog) > maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	headerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)
	valueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))
	errorStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)
	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))
	boxStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	focusedBoxStyle = boxStyle.
		BorderForeground(lipgloss.Color("12"))
	buttonStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)
	focusedButtonStyle = buttonStyle.
		Background(lipgloss.Color("10"))
	recordingStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("9")).
		Bold(true).
		Padding(0, 1)
)

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	helpText := "q=quit Tab=switch Enter=activate Up/Down=fps"
	if !m.fixedPort {
		helpText += " r=rescan"
	}
	s.WriteString(titleStyle.Render("KWACTL"))
	s.WriteString(" ")
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s", helpText)))
	s.WriteString("\n\n")

	leftWidth := 30
	rightWidth := m.width - leftWidth - 6
	if rightWidth < 30 {
		rightWidth = 30
	}

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusPortList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	portPanel := listStyle.Render(m.portList.View())
	controlPanel := boxStyle.Width(rightWidth).Render(m.renderControlPanel())

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, portPanel, " ", controlPanel))
	s.WriteString("\n\n")
	if m.stats != nil {
		s.WriteString(m.renderStatisticsBar())
		s.WriteString("\n\n")
	}
	s.WriteString(m.renderEventLog())

	return s.String()
}

func (m controlModel) renderControlPanel() string {
	var s strings.Builder

	port := m.status.Port
	if port == "" {
		port = "-"
	}
	link := valueStyle.Render(m.status.Link.String())
	if m.status.Link != rig.Connected {
		link = warningStyle.Render(m.status.Link.String())
	}
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Port:"), port))
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Link:"), link))

	run := valueStyle.Render(m.status.Run.String())
	if m.status.Run == rig.Running {
		run = recordingStyle.Render("● REC")
	}
	s.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Run:"), run))
	s.WriteString(fmt.Sprintf("%s %d\n\n", labelStyle.Render("Active FPS:"), m.status.FPS))

	s.WriteString(labelStyle.Render("FPS: "))
	if m.focusedField == focusFpsInput {
		s.WriteString(m.fpsInput.View())
	} else {
		val := m.fpsInput.Value()
		if val == "" {
			val = m.fpsInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	connectText := "[ Connect ]"
	if m.status.Link == rig.Connected {
		connectText = "[ Disconnect ]"
	}
	runText := "[ Start ]"
	if m.status.Run == rig.Running {
		runText = "[ Stop ]"
	}
	s.WriteString(m.renderButton(connectText, focusConnectButton))
	s.WriteString("  ")
	s.WriteString(m.renderButton(runText, focusRunButton))

	if m.busy {
		s.WriteString("\n\n")
		s.WriteString(warningStyle.Render("Working..."))
	}
	return s.String()
}

func (m controlModel) renderButton(text string, field int) string {
	if m.focusedField == field {
		return focusedButtonStyle.Render(text)
	}
	return buttonStyle.Render(text)
}

func (m controlModel) renderStatisticsBar() string {
	st := m.stats.Snapshot()

	answered := valueStyle.Render(fmt.Sprintf("%.1f%%", st.ResponseRate()))
	if st.TxFrames > 0 && st.RxBytes < st.TxFrames {
		answered = errorStyle.Render(fmt.Sprintf("%.1f%%", st.ResponseRate()))
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s",
		labelStyle.Render("TX:"), valueStyle.Render(fmt.Sprintf("%d", st.TxFrames)),
		labelStyle.Render("RX:"), valueStyle.Render(fmt.Sprintf("%d", st.RxBytes)),
		labelStyle.Render("Answered:"), answered,
		labelStyle.Render("Starts:"), valueStyle.Render(fmt.Sprintf("%d", st.StartFrames)),
	)
	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderEventLog() string {
	var s strings.Builder
	s.WriteString(labelStyle.Render("EVENTS"))
	s.WriteString("\n")

	logHeight := 8
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for _, entry := range m.eventLog[startIdx:] {
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyle
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}
