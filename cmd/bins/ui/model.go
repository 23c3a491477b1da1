package ui

import (
	"errors"
	"fmt"
	"time"

	"binops/internal/controller"
	"binops/internal/logging"
	"binops/internal/model"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

const (
	defaultRefresh = 30 * time.Second
	defaultTimeout = 30 * time.Second
)

// New builds the dashboard. It opens on the dumpster table when a session is
// already stored and on the login screen otherwise.
func New(opts Options) Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaultRefresh
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultTimeout
	}
	if opts.Today == nil {
		opts.Today = model.Today
	}
	opts.Logger = logging.For(opts.Logger, logging.CategoryUI)

	styles := NewStyles(ThemeFor(opts.Theme))

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Prompt = ""
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.Prompt = ""

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Spinner

	m := Model{
		opts:     opts,
		styles:   styles,
		mode:     LoginView,
		width:    100,
		height:   30,
		spinner:  sp,
		email:    email,
		password: password,
		viewport: viewport.New(96, 20),
	}
	if opts.Auth.HasActiveSession() {
		m.mode = DashboardView
		m.busy = true
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.mode == DashboardView {
		return tea.Batch(m.loadCachedCmd(), m.loadDumpstersCmd(), m.refreshTick(), m.spinner.Tick)
	}
	return textinput.Blink
}

// Mode reports the active screen.
func (m Model) Mode() ViewMode { return m.mode }

// enterDashboard shows the cache, starts a live load and the refresh chain.
func (m *Model) enterDashboard() tea.Cmd {
	m.mode = DashboardView
	m.busy = true
	return tea.Batch(m.loadCachedCmd(), m.loadDumpstersCmd(), m.scheduleRefresh(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.viewport.Width = max(m.width-4, 10)
		m.viewport.Height = max(m.height-6, 3)
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.busy && !m.pending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.loginErr = loginMessage(msg.err)
			m.password.SetValue("")
			m.focusLogin(1)
			m.opts.Logger.Info("login failed", zap.Error(msg.err))
			return m, nil
		}
		m.loginErr = ""
		m.password.SetValue("")
		m.setStatus(fmt.Sprintf("Logged in as %s", msg.session.Email), false)
		cmd := m.enterDashboard()
		return m, cmd

	case logoutDoneMsg:
		m.busy = false
		m.confirmLogout = false
		if msg.err != nil && m.opts.Auth.HasActiveSession() {
			m.setStatus("Logout failed: "+msg.err.Error(), true)
			return m, nil
		}
		m.toLogin("")
		if msg.err != nil {
			m.loginErr = "Logged out locally: " + msg.err.Error()
		}
		return m, textinput.Blink

	case dumpstersLoadedMsg:
		return m.handleDumpsters(msg)

	case refreshTickMsg:
		if msg.seq != m.refreshSeq || m.mode == LoginView {
			return m, nil
		}
		next := m.scheduleRefresh()
		return m, tea.Batch(m.loadDumpstersCmd(), next)

	case choicesLoadedMsg:
		m.busy = false
		if m.mode != PlantPickerView {
			return m, nil
		}
		if msg.err != nil {
			if m.sessionLost(msg.err) {
				return m, textinput.Blink
			}
			m.pickerErr = "Error loading plants: " + msg.err.Error()
			return m, nil
		}
		m.choices = msg.choices
		m.choiceCursor = 0
		if len(m.choices) == 0 {
			m.pickerErr = "No recycling plants available."
		}
		return m, nil

	case assignDoneMsg:
		m.pending = false
		if msg.err != nil {
			if m.sessionLost(msg.err) {
				return m, textinput.Blink
			}
			if m.mode != PlantPickerView {
				m.setStatus(fmt.Sprintf("Assigning dumpster %d failed: %s", msg.id, msg.err), true)
				return m, nil
			}
			m.pickerErr = msg.err.Error()
			return m, nil
		}
		m.mode = DashboardView
		m.setStatus(fmt.Sprintf("Dumpster %d assigned to %s", msg.id, msg.plant), false)
		m.busy = true
		return m, tea.Batch(m.loadDumpstersCmd(), m.spinner.Tick)

	case createDoneMsg:
		m.pending = false
		if msg.err != nil {
			if m.sessionLost(msg.err) {
				return m, textinput.Blink
			}
			m.form.err = msg.err.Error()
			return m, nil
		}
		m.mode = DashboardView
		m.setStatus(fmt.Sprintf("Created dumpster %d at %s", msg.dumpster.IDValue(), msg.dumpster.Location), false)
		m.busy = true
		return m, tea.Batch(m.loadDumpstersCmd(), m.spinner.Tick)

	case fillDoneMsg:
		m.pending = false
		switch {
		case msg.err != nil:
			if m.sessionLost(msg.err) {
				return m, textinput.Blink
			}
			m.form.err = msg.err.Error()
			return m, nil
		case !msg.found:
			m.form.err = fmt.Sprintf("Dumpster %d not found", msg.id)
			return m, nil
		}
		m.mode = DashboardView
		m.setStatus(fmt.Sprintf("Dumpster %d now holds %d L", msg.id, msg.fill), false)
		m.busy = true
		return m, tea.Batch(m.loadDumpstersCmd(), m.spinner.Tick)

	case ConfigChangedMsg:
		m.styles = NewStyles(ThemeFor(msg.Theme))
		m.spinner.Style = m.styles.Spinner
		m.opts.Theme = msg.Theme
		if msg.RefreshInterval > 0 && msg.RefreshInterval != m.opts.RefreshInterval {
			m.opts.RefreshInterval = msg.RefreshInterval
			m.opts.Logger.Info("refresh interval changed", zap.Duration("interval", msg.RefreshInterval))
			if m.mode != LoginView {
				cmd := m.scheduleRefresh()
				return m, cmd
			}
		}
		return m, nil
	}

	if m.mode == LoginView {
		return m.updateLoginInputs(msg)
	}
	return m, nil
}

func (m Model) handleDumpsters(msg dumpstersLoadedMsg) (tea.Model, tea.Cmd) {
	live := msg.cachedAt.IsZero()
	if live {
		m.busy = false
	}
	if msg.err != nil {
		if m.sessionLost(msg.err) {
			return m, textinput.Blink
		}
		m.setStatus("Error loading dumpsters: "+msg.err.Error(), true)
		m.opts.Logger.Warn("refresh failed", zap.Error(msg.err))
		return m, nil
	}
	// a late cache read must not replace a live listing
	if !live && m.loadedLive {
		return m, nil
	}

	var selected int64
	if d, ok := m.selected(); ok {
		selected = d.IDValue()
	}
	m.dumpsters = msg.dumpsters
	controller.SortByFill(m.dumpsters)
	m.cursor = 0
	for i, d := range m.dumpsters {
		if selected != 0 && d.IDValue() == selected {
			m.cursor = i
			break
		}
	}
	m.clampCursor()

	if live {
		m.loadedLive = true
		m.cachedAt = time.Time{}
		m.setStatus(fmt.Sprintf("Loaded %d dumpsters", len(m.dumpsters)), false)
	} else {
		m.cachedAt = msg.cachedAt
		m.setStatus(fmt.Sprintf("Showing %d cached dumpsters from %s", len(m.dumpsters),
			msg.cachedAt.Local().Format("15:04")), false)
	}
	return m, nil
}

// sessionLost sends the user back to the login screen when err means the
// session is gone.
func (m *Model) sessionLost(err error) bool {
	if !errors.Is(err, controller.ErrSessionInvalid) && !errors.Is(err, controller.ErrNoSession) {
		return false
	}
	m.opts.Logger.Info("session lost", zap.Error(err))
	m.toLogin("Your session has expired, please log in again.")
	return true
}

func (m *Model) toLogin(reason string) {
	m.mode = LoginView
	m.busy = false
	m.pending = false
	m.confirmLogout = false
	m.dumpsters = nil
	m.cursor, m.offset = 0, 0
	m.cachedAt = time.Time{}
	m.loadedLive = false
	m.loginErr = reason
	m.password.SetValue("")
	m.refreshSeq++ // stop the tick chain
	if email := m.opts.Auth.CurrentEmail(); email != "" {
		m.email.SetValue(email)
	}
	m.focusLogin(0)
	if m.email.Value() != "" {
		m.focusLogin(1)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) selected() (model.Dumpster, bool) {
	if m.cursor < 0 || m.cursor >= len(m.dumpsters) {
		return model.Dumpster{}, false
	}
	return m.dumpsters[m.cursor], true
}

// tableRows is how many dumpster rows fit on screen.
func (m Model) tableRows() int {
	// header, status, legend, footer and the table's own borders
	return max(m.height-11, 3)
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.dumpsters) {
		m.cursor = len(m.dumpsters) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	rows := m.tableRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

func (m *Model) focusLogin(i int) {
	m.loginFocus = i
	if i == 0 {
		m.email.Focus()
		m.password.Blur()
	} else {
		m.email.Blur()
		m.password.Focus()
	}
}

func (m Model) updateLoginInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if m.loginFocus == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

// renderMarkdown renders md for the details and help screens.
func (m Model) renderMarkdown(md string) string {
	style := "light"
	if m.styles.Theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(max(m.viewport.Width-2, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// loginMessage turns a login error into the line shown under the form.
func loginMessage(err error) string {
	var ve *controller.ValidationError
	switch {
	case errors.As(err, &ve):
		return ve.Msg
	case errors.Is(err, controller.ErrInvalidCredentials):
		return "Invalid credentials"
	default:
		return err.Error()
	}
}
