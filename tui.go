package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"talkback/backend"
	"talkback/hotkey"
	"talkback/session"
)

type panel int

const (
	panelChat panel = iota
	panelSettings
	panelTTS
)

// Form rows in the settings and TTS panels.
const (
	rowModel = iota
	rowVoice
	rowSpeed
)

const (
	eyeWidth     = eyeCharsW + 1
	compactWidth = 90 // below this the eye is hidden
	alertTTL     = 6 * time.Second
)

type tickMsg time.Time
type actionDoneMsg struct {
	Kind session.Kind
	Err  error
}
type alertExpiredMsg struct{ Seq int }

// tuiDeps is what the model needs from the running app. Every call runs
// inside a tea.Cmd, off the update loop.
type tuiDeps struct {
	dispatch func(session.Action) error
	record   func(start bool) error
	copyText func(string) error

	server      string
	device      string
	format      string
	downloadDir string
	hotkey      bool
}

type settingsForm struct {
	row       int
	model     string
	voice     string
	speed     float64
	untouched bool // follows the controller until edited
}

type tuiModel struct {
	deps tuiDeps

	state session.State
	panel panel

	width, height int
	frame         int
	level         float64
	silent        bool

	alert    string
	alertSeq int
	confirm  *confirmMsg

	input    textinput.Model
	ttsText  textarea.Model
	spin     spinner.Model
	history  viewport.Model
	settings settingsForm
	tts      settingsForm
	ttsFocus bool // text area has focus
	shown    int  // transcript entries rendered into history
}

func newTUIModel(deps tuiDeps, initial session.State) tuiModel {
	in := textinput.New()
	in.Placeholder = "Type your message..."
	in.Prompt = "> "
	in.CharLimit = 2000

	ta := textarea.New()
	ta.Placeholder = "Enter text to read aloud..."
	ta.ShowLineNumbers = false
	ta.SetHeight(5)

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	m := tuiModel{
		deps:    deps,
		state:   initial,
		input:   in,
		ttsText: ta,
		spin:    sp,
		history: viewport.New(80, 20),
	}
	m.settings = formFrom(initial.Settings)
	m.tts = formFrom(initial.Settings)
	return m
}

func formFrom(s backend.Settings) settingsForm {
	return settingsForm{model: s.Model, voice: s.Voice, speed: s.Speed, untouched: true}
}

func tuiTick() tea.Cmd {
	return tea.Tick(60*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tea.Batch(tuiTick(), m.spin.Tick)
}

func (m tuiModel) run(a session.Action) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{Kind: a.Kind, Err: m.deps.dispatch(a)}
	}
}

func (m tuiModel) record(start bool) tea.Cmd {
	kind := session.ActionStopCapture
	if start {
		kind = session.ActionStartCapture
	}
	return func() tea.Msg {
		return actionDoneMsg{Kind: kind, Err: m.deps.record(start)}
	}
}

func (m tuiModel) copyLastReply() tea.Cmd {
	text := m.state.LastReply()
	return func() tea.Msg {
		if text == "" {
			return alertMsg{"Nothing to copy yet"}
		}
		if err := m.deps.copyText(text); err != nil {
			return alertMsg{"Copy failed: " + err.Error()}
		}
		return alertMsg{"Copied last reply"}
	}
}

func (m *tuiModel) showAlert(text string) tea.Cmd {
	m.alert = text
	m.alertSeq++
	seq := m.alertSeq
	return tea.Tick(alertTTL, func(time.Time) tea.Msg { return alertExpiredMsg{seq} })
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case tickMsg:
		m.frame++
		return m, tuiTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case stateMsg:
		m.applyState(msg.State)
		return m, nil

	case alertMsg:
		return m, m.showAlert(msg.Text)

	case alertExpiredMsg:
		if msg.Seq == m.alertSeq {
			m.alert = ""
		}
		return m, nil

	case confirmMsg:
		m.confirm = &msg
		return m, nil

	case levelMsg:
		m.level = m.level*0.6 + msg.Level*0.4
		return m, nil

	case silenceMsg:
		m.silent = msg.Event == silenceWarn
		return m, nil

	case actionDoneMsg:
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *tuiModel) applyState(s session.State) {
	m.state = s
	if s.Phase != session.Recording {
		m.level = 0
		m.silent = false
	}
	if m.settings.untouched {
		m.settings = formFrom(s.Settings)
	}
	if m.tts.untouched {
		row := m.tts.row
		m.tts = formFrom(s.Settings)
		m.tts.row = row
	}
	if len(s.Transcript) != m.shown {
		m.shown = len(s.Transcript)
		m.history.SetContent(m.renderTranscript())
		m.history.GotoBottom()
	}
}

func (m tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirm != nil {
		var answer, answered bool
		switch key {
		case "y", "Y", "enter":
			answer, answered = true, true
		case "n", "N", "esc", "ctrl+c":
			answered = true
		}
		if answered {
			m.confirm.Reply <- answer
			m.confirm = nil
		}
		return m, nil
	}

	switch key {
	case "ctrl+c":
		if m.state.Phase == session.Recording {
			return m, tea.Sequence(m.run(session.Action{Kind: session.ActionPageHidden}), tea.Quit)
		}
		return m, tea.Quit
	case "ctrl+r":
		return m, m.record(m.state.Phase != session.Recording)
	case "ctrl+x":
		return m, m.run(session.Action{Kind: session.ActionReset})
	case "ctrl+y":
		return m, m.copyLastReply()
	case "ctrl+s":
		m.panel = panelSettings
		m.settings = formFrom(m.state.Settings)
		return m, m.run(session.Action{Kind: session.ActionLoadSettings})
	case "ctrl+t":
		m.panel = panelTTS
		m.ttsFocus = true
		m.tts = formFrom(m.state.Settings)
		m.input.Blur()
		return m, tea.Batch(m.ttsText.Focus(), m.run(session.Action{Kind: session.ActionOpenTTS}))
	case "esc":
		switch {
		case m.alert != "":
			m.alert = ""
		case m.state.Speaking:
			return m, m.run(session.Action{Kind: session.ActionStopSpeaking})
		case m.panel != panelChat:
			m.panel = panelChat
			m.ttsText.Blur()
			if m.state.Mode == session.TextMode {
				return m, m.input.Focus()
			}
		}
		return m, nil
	}

	switch m.panel {
	case panelSettings:
		return m.settingsKey(key)
	case panelTTS:
		return m.ttsKey(msg)
	}
	return m.chatKey(msg)
}

func (m tuiModel) chatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		var focus tea.Cmd
		if m.state.Mode == session.VoiceMode {
			focus = m.input.Focus()
		} else {
			m.input.Blur()
		}
		return m, tea.Batch(focus, m.run(session.Action{Kind: session.ActionToggleMode}))
	case "pgup", "pgdown", "up", "down":
		var cmd tea.Cmd
		m.history, cmd = m.history.Update(msg)
		return m, cmd
	case "enter":
		if m.state.Mode != session.TextMode {
			return m, nil
		}
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		return m, m.run(session.Action{Kind: session.ActionSendText, Text: text})
	}
	if m.state.Mode == session.TextMode {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// adjust moves the focused row of f by dir notches.
func (m tuiModel) adjust(f settingsForm, dir int) settingsForm {
	opts := m.state.Options
	switch f.row {
	case rowModel:
		f.model = session.Cycle(opts.ModelIDs(), f.model, dir)
	case rowVoice:
		f.voice = session.Cycle(opts.Voices(), f.voice, dir)
	case rowSpeed:
		f.speed = session.StepSpeed(f.speed, dir)
	}
	f.untouched = false
	return f
}

func (m tuiModel) settingsKey(key string) (tea.Model, tea.Cmd) {
	f := &m.settings
	switch key {
	case "up", "k":
		f.row = max(f.row-1, rowModel)
	case "down", "j", "tab":
		f.row = min(f.row+1, rowSpeed)
	case "left", "h":
		m.settings = m.adjust(*f, -1)
	case "right", "l":
		m.settings = m.adjust(*f, 1)
	case "ctrl+p":
		return m, m.run(session.Action{Kind: session.ActionTestVoice, Voice: f.voice, Speed: f.speed})
	case "enter":
		s := backend.Settings{Model: f.model, Voice: f.voice, Speed: f.speed}
		f.untouched = true
		return m, m.run(session.Action{Kind: session.ActionSaveSettings, Settings: s})
	}
	return m, nil
}

func (m tuiModel) ttsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := &m.tts
	speak := session.Action{Kind: session.ActionSpeak, Text: m.ttsText.Value(), Voice: f.voice, Speed: f.speed}
	switch msg.String() {
	case "ctrl+p":
		return m, m.run(speak)
	case "ctrl+d":
		speak.Kind = session.ActionDownload
		speak.Dir = m.deps.downloadDir
		return m, m.run(speak)
	case "tab":
		if m.ttsFocus {
			m.ttsFocus = false
			m.ttsText.Blur()
			f.row = rowVoice
			return m, nil
		}
		if f.row == rowVoice {
			f.row = rowSpeed
			return m, nil
		}
		m.ttsFocus = true
		return m, m.ttsText.Focus()
	}
	if m.ttsFocus {
		var cmd tea.Cmd
		m.ttsText, cmd = m.ttsText.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "left", "h":
		m.tts = m.adjust(*f, -1)
	case "right", "l":
		m.tts = m.adjust(*f, 1)
	case "enter":
		return m, m.run(speak)
	}
	return m, nil
}

func (m *tuiModel) layout() {
	w, h := m.contentSize()
	m.history.Width = w
	m.history.Height = max(h-4, 3)
	m.input.Width = max(w-4, 10)
	m.ttsText.SetWidth(max(w-2, 10))
	m.history.SetContent(m.renderTranscript())
	m.history.GotoBottom()
}

func (m tuiModel) contentSize() (int, int) {
	w := m.width
	if m.width >= compactWidth {
		w = m.width - eyeWidth
	}
	return max(w-2, 20), m.height
}

var (
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	helpKeyStyle   = helpStyle.Bold(true)
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246")).Bold(true)
	alertStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
	confirmStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("51")).Bold(true)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

var statusStyles = map[string]lipgloss.Style{
	session.StatusOnline:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	session.StatusLoading: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	session.StatusOffline: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

func (m tuiModel) renderTranscript() string {
	w, _ := m.contentSize()
	wrap := max(w-2, 10)
	var b strings.Builder
	for i, e := range m.state.Transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		label, style := "assistant", assistantStyle
		switch {
		case e.Speaker == session.User:
			label, style = "you", userStyle
		case e.Notice:
			style = noticeStyle
		}
		stamp := ""
		if !e.At.IsZero() {
			stamp = " " + e.At.Format("15:04")
		}
		b.WriteString(labelStyle.Render(label) + dimStyle.Render(stamp) + "\n")
		b.WriteString(style.Render(wordwrap.String(e.Text, wrap)) + "\n")
	}
	return b.String()
}

func (m tuiModel) mood() eyeMood {
	switch {
	case m.state.Phase == session.Recording:
		return moodListening
	case m.state.Speaking:
		return moodSpeaking
	default:
		return moodIdle
	}
}

func (m tuiModel) sideInfo() []string {
	s := m.state
	var lines []string

	switch {
	case s.Phase == session.Recording:
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true).Render("● REC"))
		if m.silent {
			lines = append(lines, noticeStyle.Render("  ⚠ no voice detected"))
		}
	case s.Busy != "":
		lines = append(lines, m.spin.View()+" "+s.Busy)
	case s.Speaking:
		lines = append(lines, lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Render("♪ speaking (esc to stop)"))
	default:
		lines = append(lines, dimStyle.Render("○ STANDBY"))
	}

	style, ok := statusStyles[s.StatusLabel]
	if !ok {
		style = dimStyle
	}
	lines = append(lines,
		style.Render("● "+s.StatusLabel)+dimStyle.Render(" "+m.deps.server),
		dimStyle.Render(fmt.Sprintf("[%s | %s | %s]", s.Settings.Model, s.Settings.Voice, session.FormatSpeed(s.Settings.Speed))),
		dimStyle.Render(fmt.Sprintf("mic: %s (%s)", m.deps.device, m.deps.format)),
	)
	return lines
}

func (m tuiModel) helpLine() string {
	pairs := [][2]string{{"ctrl+r", "record"}, {"tab", "voice/text"}, {"ctrl+s", "settings"}, {"ctrl+t", "tts"}, {"ctrl+x", "reset"}, {"ctrl+y", "copy"}, {"esc", "back"}}
	switch m.panel {
	case panelSettings:
		pairs = [][2]string{{"↑/↓", "field"}, {"←/→", "change"}, {"enter", "save"}, {"ctrl+p", "test voice"}, {"esc", "close"}}
	case panelTTS:
		pairs = [][2]string{{"tab", "focus"}, {"←/→", "change"}, {"ctrl+p", "speak"}, {"ctrl+d", "download"}, {"esc", "stop/close"}}
	}
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = helpKeyStyle.Render(p[0]) + helpStyle.Render(" "+p[1])
	}
	return strings.Join(parts, helpStyle.Render("  "))
}

func (m tuiModel) formRows(f settingsForm, rows []int, active bool) string {
	var b strings.Builder
	for _, row := range rows {
		var name, value string
		switch row {
		case rowModel:
			name, value = "Model", f.model
			if n := m.state.Options.AvailableModels[f.model]; n != "" {
				value += " (" + n + ")"
			}
		case rowVoice:
			name, value = "Voice", session.VoiceLabel(f.voice)
		case rowSpeed:
			name, value = "Speed", session.FormatSpeed(f.speed)
		}
		line := fmt.Sprintf("%-6s ‹ %s ›", name, value)
		if active && row == f.row {
			b.WriteString(selectedStyle.Render("▶ "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func (m tuiModel) mainView() string {
	w, _ := m.contentSize()
	switch m.panel {
	case panelSettings:
		body := labelStyle.Render("Settings") + "\n\n" + m.formRows(m.settings, []int{rowModel, rowVoice, rowSpeed}, true)
		return panelStyle.Width(w - 2).Render(body)
	case panelTTS:
		body := labelStyle.Render("Text to speech") + "\n\n" + m.ttsText.View() + "\n\n" +
			m.formRows(m.tts, []int{rowVoice, rowSpeed}, !m.ttsFocus)
		return panelStyle.Width(w - 2).Render(body)
	}

	var b strings.Builder
	b.WriteString(m.history.View() + "\n")
	if m.state.Mode == session.TextMode {
		b.WriteString(m.input.View())
	} else {
		hint := "ctrl+r to talk"
		if m.deps.hotkey {
			hint = "hold " + hotkey.Combo + " or press ctrl+r to talk"
		}
		b.WriteString(dimStyle.Render("🎤 " + hint))
	}
	return b.String()
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	w, _ := m.contentSize()

	body := m.mainView()
	footer := ""
	switch {
	case m.confirm != nil:
		footer = confirmStyle.Render(m.confirm.Prompt + " [y/n]")
	case m.alert != "":
		footer = alertStyle.Render(m.alert)
	default:
		footer = m.helpLine()
	}
	right := lipgloss.NewStyle().Width(w).PaddingLeft(1).Render(body + "\n\n" + footer)

	if m.width < compactWidth {
		return strings.Join(m.sideInfo(), "  ") + "\n" + right
	}

	level := 0.0
	if m.state.Phase == session.Recording {
		level = m.level
	}
	side := renderEye(m.frame, level, m.mood()) + strings.Join(m.sideInfo(), "\n") + "\n\n" + helpStyle.Render("talkback "+version)
	left := lipgloss.NewStyle().Width(eyeWidth - 1).Height(m.height).Render(side)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

// attachTUI builds the program and points every event source of a at it.
// It must run before anything that can emit events is started.
func attachTUI(ctx context.Context, a *app, deps tuiDeps, sink *programSink, confirm *programConfirmer, opts ...tea.ProgramOption) *tea.Program {
	m := newTUIModel(deps, a.ctrl.Snapshot())
	p := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...)
	sink.p = p
	confirm.p = p
	a.notify = func(msg any) { p.Send(msg) }
	return p
}

// runTUI blocks until the user quits.
func runTUI(ctx context.Context, p *tea.Program) error {
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
