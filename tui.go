package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/utkarsh-gupta-1606a3137/Ubuntu-Voice-Recorder-Transcriber/session"
)

// TUI message types
type StateMsg struct{ From, To session.State }
type AudioLevelMsg struct{ Level float64 }
type CompletedMsg struct {
	Text     string
	Path     string
	Duration time.Duration
	Copied   bool
}
type FailedMsg struct{ Err error }
type IntentErrMsg struct{ Err error }
type tickMsg time.Time

var (
	styleRec     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	styleBusy    = lipgloss.NewStyle().Foreground(lipgloss.Color("220")).Bold(true)
	styleIdle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleErr     = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	styleText    = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleHelp    = lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	styleMeterOn = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
)

type tuiModel struct {
	sess *session.Session

	state       session.State
	since       time.Time // entered Recording
	level       float64
	peak        float64
	count       int
	lastText    string
	lastPath    string
	lastDur     time.Duration
	copied      bool
	lastErr     error
	intentErr   error
	intentAt    time.Time
	backendLine string
	deviceLine  string
	width       int
	height      int
}

func NewTUIProgram(sess *session.Session, backendLine, deviceLine string) *tea.Program {
	m := tuiModel{
		sess:        sess,
		state:       session.Idle,
		backendLine: backendLine,
		deviceLine:  deviceLine,
	}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// intent wraps a session call so the key handler never blocks. An
// invalid transition is shown briefly rather than treated as fatal.
func intent(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return IntentErrMsg{Err: err}
		}
		return nil
	}
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m, intent(m.sess.Start)
		case "s":
			return m, intent(m.sess.Stop)
		case "n":
			return m, intent(m.sess.Reset)
		}

	case tickMsg:
		if !m.intentAt.IsZero() && time.Since(m.intentAt) > 2*time.Second {
			m.intentErr = nil
			m.intentAt = time.Time{}
		}
		return m, tuiTick()

	case StateMsg:
		m.state = msg.To
		switch msg.To {
		case session.Recording:
			m.since = time.Now()
			m.level = 0
			m.peak = 0
			m.lastErr = nil
		case session.Idle:
			m.lastText = ""
			m.lastErr = nil
		}

	case AudioLevelMsg:
		if m.state == session.Recording {
			m.level = m.level*0.6 + msg.Level*0.4
			if msg.Level > m.peak {
				m.peak = msg.Level
			}
		}

	case CompletedMsg:
		m.count++
		m.lastText = msg.Text
		m.lastPath = msg.Path
		m.lastDur = msg.Duration
		m.copied = msg.Copied

	case FailedMsg:
		m.lastErr = msg.Err

	case IntentErrMsg:
		m.intentErr = msg.Err
		m.intentAt = time.Now()
	}
	return m, nil
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var b strings.Builder

	switch m.state {
	case session.Recording:
		b.WriteString(styleRec.Render(fmt.Sprintf("● REC %.1fs", time.Since(m.since).Seconds())))
		b.WriteString("  " + renderMeter(m.level, 24))
		if time.Since(m.since) > time.Second && m.peak < 0.02 {
			b.WriteString("\n" + styleErr.Render("  ⚠ no voice detected"))
		}
	case session.Finalizing:
		b.WriteString(styleBusy.Render("◌ FINALIZING"))
	case session.Transcribing:
		b.WriteString(styleBusy.Render("◌ TRANSCRIBING"))
	case session.Completed:
		b.WriteString(styleOK.Render("✓ DONE") + styleDim.Render("  (n to reset)"))
	case session.Failed:
		b.WriteString(styleErr.Render("✗ FAILED") + styleDim.Render("  (n to reset)"))
	default:
		b.WriteString(styleIdle.Render("○ STANDBY"))
	}
	b.WriteString("\n")

	b.WriteString(styleDim.Render(m.backendLine) + "\n")
	b.WriteString(styleIdle.Render(m.deviceLine) + "\n")
	b.WriteString("\n")

	wrapWidth := m.width - 2
	if wrapWidth < 10 {
		wrapWidth = 10
	}

	switch {
	case m.lastErr != nil:
		b.WriteString(styleErr.Render("Error: "+m.lastErr.Error()) + "\n")
	case m.lastText != "":
		b.WriteString(styleDim.Render(fmt.Sprintf("Transcription #%d (%.1fs)", m.count, m.lastDur.Seconds())) + "\n")
		lines := wrapText(m.lastText, wrapWidth)
		for i, line := range lines {
			b.WriteString(styleText.Render(line))
			if i == len(lines)-1 && m.copied {
				b.WriteString(" " + styleOK.Render("[✓ copied]"))
			}
			b.WriteString("\n")
		}
		b.WriteString(styleIdle.Render(m.lastPath) + "\n")
	case m.state == session.Completed:
		b.WriteString(styleErr.Render("(no speech detected)") + "\n")
	default:
		b.WriteString(styleIdle.Render("No transcriptions yet") + "\n")
	}
	b.WriteString("\n")

	if m.intentErr != nil {
		b.WriteString(styleErr.Render(m.intentErr.Error()) + "\n")
	}

	help := styleHelp.Bold(true).Render("r") + styleHelp.Render(" record  ") +
		styleHelp.Bold(true).Render("s") + styleHelp.Render(" stop  ") +
		styleHelp.Bold(true).Render("n") + styleHelp.Render(" reset  ") +
		styleHelp.Bold(true).Render("q") + styleHelp.Render(" quit")
	b.WriteString(help + "\n")
	b.WriteString(styleHelp.Render("voice-recorder " + version))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func renderMeter(level float64, width int) string {
	filled := int(level * 3 * float64(width))
	if filled > width {
		filled = width
	}
	return styleMeterOn.Render(strings.Repeat("█", filled)) +
		styleIdle.Render(strings.Repeat("░", width-filled))
}

func wrapText(text string, width int) []string {
	if len(text) == 0 {
		return []string{""}
	}
	if width <= 0 {
		width = 1
	}

	var lines []string
	for len(text) > width {
		splitAt := width
		for i := width; i > 0; i-- {
			if text[i] == ' ' {
				splitAt = i
				break
			}
		}
		lines = append(lines, text[:splitAt])
		text = strings.TrimLeft(text[splitAt:], " ")
	}
	if len(text) > 0 {
		lines = append(lines, text)
	}
	return lines
}
