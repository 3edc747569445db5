// Package studio is the interactive terminal front end for one render session.
package studio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	idea "reel-studio/01_idea"
	"reel-studio/config"
	sinks "reel-studio/progress"
	"reel-studio/types"
)

// Driver is the session surface the studio needs
type Driver interface {
	ID() string
	Generate(ctx context.Context) (types.Idea, error)
	UseIdea(idea types.Idea) error
	Render(ctx context.Context, sink sinks.Sink) (string, error)
	SwapBackground(ctx context.Context, sink sinks.Sink) (string, error)
	CycleStyle(ctx context.Context, sink sinks.Sink) (types.Style, string, error)
	Artifact() (string, error)
	Export(dst string) error
	Publish(ctx context.Context, sink sinks.Sink) (types.PublishResult, error)
	Snapshot() types.SessionSnapshot
}

// ProviderSwitch selects the text-generation backend
type ProviderSwitch interface {
	Provider() config.Provider
	Toggle() config.Provider
}

type mode int

const (
	modeBrowse mode = iota
	modeManual
	modeExport
)

type progressMsg struct {
	ch       <-chan float64
	fraction float64
}

type doneMsg struct {
	action string
	status string
	err    error
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	quoteStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("230"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	manualLabel = []string{"Quote", "Visual search term", "Caption", "Hashtags"}
)

type Model struct {
	ctx      context.Context
	cancel   context.CancelFunc
	drv      Driver
	provider ProviderSwitch
	exportTo string

	width  int
	height int
	mode   mode

	busy     bool
	action   string
	fraction float64
	bar      progress.Model

	snap     types.SessionSnapshot
	status   string
	err      error
	missing  bool
	inputs   []textinput.Model
	focus    int
	exportIn textinput.Model
}

// New builds the studio model. exportDir is where exports are suggested.
func New(ctx context.Context, drv Driver, provider ProviderSwitch, exportDir string) Model {
	ctx, cancel := context.WithCancel(ctx)
	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		drv:      drv,
		provider: provider,
		exportTo: exportDir,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		snap:     drv.Snapshot(),
		status:   "press g to generate an idea",
	}
	m.inputs = make([]textinput.Model, len(manualLabel))
	for i, label := range manualLabel {
		in := textinput.New()
		in.Placeholder = label
		in.CharLimit = 300
		in.Width = 60
		m.inputs[i] = in
	}
	m.exportIn = textinput.New()
	m.exportIn.CharLimit = 512
	m.exportIn.Width = 60
	return m
}

// Run starts the full-screen studio and blocks until the user quits
func Run(ctx context.Context, drv Driver, provider ProviderSwitch, exportDir string) error {
	m := New(ctx, drv, provider, exportDir)
	defer m.cancel()
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		if strings.Contains(strings.ToLower(err.Error()), "tty") {
			return errors.New("studio requires an interactive terminal (TTY)")
		}
		return err
	}
	if fm, ok := final.(Model); ok {
		fm.cancel()
	}
	return nil
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.bar.Width = clampInt(msg.Width-10, 20, 80)
		return m, nil
	case progressMsg:
		if !m.busy {
			return m, nil
		}
		if msg.fraction > m.fraction {
			m.fraction = msg.fraction
		}
		return m, listen(msg.ch)
	case doneMsg:
		m.busy = false
		m.action = ""
		m.fraction = 0
		m.snap = m.drv.Snapshot()
		m.err = msg.err
		m.missing = errors.Is(msg.err, types.ErrArtifactMissing)
		if msg.err == nil {
			m.status = msg.status
		} else {
			m.status = ""
		}
		return m, nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}
	switch m.mode {
	case modeManual:
		return m.updateManual(key)
	case modeExport:
		return m.updateExport(key)
	default:
		return m.updateBrowse(key)
	}
}

func (m Model) updateBrowse(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.String() == "q" {
		m.cancel()
		return m, tea.Quit
	}
	// one intent at a time
	if m.busy {
		return m, nil
	}

	switch key.String() {
	case "g":
		return m.start("generating idea", func(ctx context.Context, _ sinks.Sink) (string, error) {
			got, err := m.drv.Generate(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("new %s idea ready, press r to render", got.Language), nil
		})
	case "r":
		return m.start("rendering", func(ctx context.Context, sink sinks.Sink) (string, error) {
			out, err := m.drv.Render(ctx, sink)
			if err != nil {
				return "", err
			}
			return "rendered " + out, nil
		})
	case "s":
		return m.start("swapping background", func(ctx context.Context, sink sinks.Sink) (string, error) {
			out, err := m.drv.SwapBackground(ctx, sink)
			if err != nil {
				return "", err
			}
			if out == "" {
				return "new background ready, press r to render", nil
			}
			return "re-rendered with a new background", nil
		})
	case "c":
		return m.start("changing style", func(ctx context.Context, sink sinks.Sink) (string, error) {
			st, out, err := m.drv.CycleStyle(ctx, sink)
			if err != nil {
				return "", err
			}
			if out == "" {
				return "style set to " + st.Name, nil
			}
			return "re-rendered in " + st.Name, nil
		})
	case "p":
		return m.start("publishing", func(ctx context.Context, sink sinks.Sink) (string, error) {
			res, err := m.drv.Publish(ctx, sink)
			if err != nil {
				return "", err
			}
			return "published " + res.VideoURL, nil
		})
	case "e":
		if _, err := m.drv.Artifact(); err != nil {
			m.snap = m.drv.Snapshot()
			m.err = err
			m.missing = errors.Is(err, types.ErrArtifactMissing)
			return m, nil
		}
		m.mode = modeExport
		m.exportIn.SetValue(filepath.Join(m.exportTo, "reel-"+m.drv.ID()+".mp4"))
		m.exportIn.CursorEnd()
		return m, m.exportIn.Focus()
	case "m":
		m.mode = modeManual
		m.focus = 0
		for i := range m.inputs {
			m.inputs[i].Reset()
			m.inputs[i].Blur()
		}
		return m, m.inputs[0].Focus()
	case "tab":
		if m.provider != nil {
			p := m.provider.Toggle()
			m.status = "provider: " + string(p)
			m.err = nil
		}
		return m, nil
	}
	return m, nil
}

func (m Model) updateManual(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.mode = modeBrowse
		m.status = "manual idea cancelled"
		return m, nil
	case "tab", "down":
		return m.focusInput(m.focus + 1)
	case "shift+tab", "up":
		return m.focusInput(m.focus - 1)
	case "enter":
		if m.focus < len(m.inputs)-1 {
			return m.focusInput(m.focus + 1)
		}
		manual, err := idea.Manual(m.inputs[0].Value(), m.inputs[1].Value(), m.inputs[2].Value(), m.inputs[3].Value())
		if err != nil {
			m.err = err
			return m, nil
		}
		if err := m.drv.UseIdea(manual); err != nil {
			m.err = err
			return m, nil
		}
		m.mode = modeBrowse
		m.snap = m.drv.Snapshot()
		m.err = nil
		m.missing = false
		m.status = "manual idea ready, press r to render"
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(key)
	return m, cmd
}

func (m Model) focusInput(i int) (tea.Model, tea.Cmd) {
	n := len(m.inputs)
	i = ((i % n) + n) % n
	m.inputs[m.focus].Blur()
	m.focus = i
	return m, m.inputs[i].Focus()
}

func (m Model) updateExport(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.mode = modeBrowse
		m.exportIn.Blur()
		return m, nil
	case "enter":
		dst := strings.TrimSpace(m.exportIn.Value())
		if dst == "" {
			m.err = errors.New("export path is required")
			return m, nil
		}
		m.mode = modeBrowse
		m.exportIn.Blur()
		err := m.drv.Export(dst)
		m.snap = m.drv.Snapshot()
		m.err = err
		m.missing = errors.Is(err, types.ErrArtifactMissing)
		if err == nil {
			m.status = "exported to " + dst
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.exportIn, cmd = m.exportIn.Update(key)
	return m, cmd
}

type job func(ctx context.Context, sink sinks.Sink) (string, error)

// start runs fn off the UI goroutine and streams its progress back as messages
func (m Model) start(action string, fn job) (tea.Model, tea.Cmd) {
	m.busy = true
	m.action = action
	m.fraction = 0
	m.err = nil
	m.status = ""

	ch := make(chan float64, 64)
	sink := sinks.Func(func(f float64) {
		select {
		case ch <- f:
		default:
		}
	})
	ctx := m.ctx
	run := func() tea.Msg {
		defer close(ch)
		status, err := fn(ctx, sink)
		return doneMsg{action: action, status: status, err: err}
	}
	return m, tea.Batch(run, listen(ch))
}

func listen(ch <-chan float64) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return nil
		}
		return progressMsg{ch: ch, fraction: f}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
