package ui

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"binops/internal/client"
	"binops/internal/client/clienttest"
	"binops/internal/controller"
	"binops/internal/model"
	"binops/internal/store"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type uiHarness struct {
	srv   *clienttest.Server
	auth  *controller.Auth
	fleet *controller.Fleet
}

func newUIHarness(t *testing.T) *uiHarness {
	t.Helper()
	srv := clienttest.NewServer()
	t.Cleanup(srv.Close)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c, err := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	sessions := controller.NewSessions(st, c.BaseURL(), time.Hour)
	srv.AddUser("ana@example.com", "secret")
	return &uiHarness{
		srv:   srv,
		auth:  controller.NewAuth(c, sessions, st, zap.NewNop()),
		fleet: controller.NewFleet(c, sessions, st, zap.NewNop()),
	}
}

func (h *uiHarness) model() Model {
	return New(Options{
		Auth:            h.auth,
		Fleet:           h.fleet,
		RefreshInterval: time.Hour,
		RequestTimeout:  5 * time.Second,
		Theme:           "light",
		Today:           func() model.Date { return model.MustParseDate("2024-05-01") },
	})
}

func (h *uiHarness) loggedIn(t *testing.T) Model {
	t.Helper()
	_, err := h.auth.Login(context.Background(), "ana@example.com", "secret")
	require.NoError(t, err)
	m := h.model()
	require.Equal(t, DashboardView, m.Mode())
	return settle(t, m, m.Init())
}

// exec runs cmd and returns the messages it produced. Ticks that do not fire
// within the deadline are dropped, as are spinner frames.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	var (
		mu   sync.Mutex
		out  []tea.Msg
		wg   sync.WaitGroup
		leaf func(tea.Cmd)
	)
	leaf = func(c tea.Cmd) {
		if c == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := c()
			if batch, ok := msg.(tea.BatchMsg); ok {
				for _, bc := range batch {
					leaf(bc)
				}
				return
			}
			if _, ok := msg.(spinner.TickMsg); ok || msg == nil {
				return
			}
			mu.Lock()
			out = append(out, msg)
			mu.Unlock()
		}()
	}
	leaf(cmd)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(300 * time.Millisecond):
	}
	mu.Lock()
	defer mu.Unlock()
	return append([]tea.Msg(nil), out...)
}

// settle feeds the results of cmd back into m until nothing is left.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	pending := []tea.Cmd{cmd}
	for i := 0; i < 10 && len(pending) > 0; i++ {
		var next []tea.Cmd
		for _, c := range pending {
			for _, msg := range exec(c) {
				nm, nc := m.Update(msg)
				m = nm.(Model)
				next = append(next, nc)
			}
		}
		pending = next
	}
	return m
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		nm, c := m.Update(msg)
		m, cmd = nm.(Model), c
	}
	return m, cmd
}

func TestNew_StartsAtLogin(t *testing.T) {
	h := newUIHarness(t)
	m := h.model()
	assert.Equal(t, LoginView, m.Mode())
	assert.Contains(t, m.View(), "Log in")
	assert.NotNil(t, m.Init())
}

func TestLogin_Success(t *testing.T) {
	h := newUIHarness(t)
	h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	h.srv.AddDumpster(model.Dumpster{Location: "Side St 2", PostalCode: 1000, Capacity: 100, CurrentFill: 95})

	m := h.model()
	m, _ = press(t, m, "ana@example.com", "enter", "secret")
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)
	assert.True(t, m.busy)

	m = settle(t, m, cmd)
	assert.Equal(t, DashboardView, m.Mode())
	assert.Equal(t, "Loaded 2 dumpsters", m.status)
	require.Len(t, m.dumpsters, 2)
	assert.Equal(t, "Side St 2", m.dumpsters[0].Location, "fullest first")
	assert.Empty(t, m.password.Value())

	view := m.View()
	assert.Contains(t, view, "Main St 1")
	assert.Contains(t, view, "ana@example.com")
	assert.Contains(t, view, "Legend")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	h := newUIHarness(t)
	m := h.model()
	m, _ = press(t, m, "ana@example.com", "tab", "wrong")
	m, cmd := press(t, m, "enter")
	m = settle(t, m, cmd)

	assert.Equal(t, LoginView, m.Mode())
	assert.Equal(t, "Invalid credentials", m.loginErr)
	assert.Empty(t, m.password.Value(), "password cleared after failure")
	assert.Equal(t, "ana@example.com", m.email.Value())
	assert.Contains(t, m.View(), "Invalid credentials")
}

func TestLogin_Validation(t *testing.T) {
	h := newUIHarness(t)
	m := h.model()
	m, _ = press(t, m, "not-an-email", "tab", "pw")
	m, cmd := press(t, m, "enter")
	m = settle(t, m, cmd)
	assert.Equal(t, "email format is not valid", m.loginErr)

	m, _ = press(t, m, "tab")
	m.email.SetValue("ana@example.com")
	m, _ = press(t, m, "tab")
	m, cmd = press(t, m, "enter")
	m = settle(t, m, cmd)
	assert.Equal(t, "password must not be empty", m.loginErr)
	assert.Empty(t, h.srv.Requests(), "nothing sent for invalid input")
}

func TestDashboard_StartsFromStoredSession(t *testing.T) {
	h := newUIHarness(t)
	h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	m := h.loggedIn(t)
	assert.Equal(t, "Loaded 1 dumpsters", m.status)
	assert.True(t, m.loadedLive)

	// a cache read arriving late does not replace the live listing
	nm, _ := m.Update(dumpstersLoadedMsg{cachedAt: time.Now()})
	assert.Len(t, nm.(Model).dumpsters, 1)
}

func TestDashboard_StaleRefreshTickIgnored(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	_, cmd := m.Update(refreshTickMsg{seq: m.refreshSeq - 1})
	assert.Nil(t, cmd)

	_, cmd = m.Update(refreshTickMsg{seq: m.refreshSeq})
	assert.NotNil(t, cmd)
}

func TestDashboard_Refresh(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)
	assert.Empty(t, m.dumpsters)
	assert.Contains(t, m.View(), "No dumpsters.")

	h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	m, cmd := press(t, m, "r")
	m = settle(t, m, cmd)
	assert.Len(t, m.dumpsters, 1)
	assert.False(t, m.busy)
}

func TestDashboard_SessionExpired(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	h.srv.Fail(http.MethodGet, "/dumpsters", http.StatusUnauthorized)
	m, cmd := press(t, m, "r")
	m = settle(t, m, cmd)

	assert.Equal(t, LoginView, m.Mode())
	assert.Contains(t, m.loginErr, "session has expired")
	assert.Equal(t, "ana@example.com", m.email.Value())
	assert.Equal(t, 1, m.loginFocus)
}

func TestDashboard_LoadError(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	h.srv.Fail(http.MethodGet, "/dumpsters", http.StatusInternalServerError)
	m, cmd := press(t, m, "r")
	m = settle(t, m, cmd)
	assert.Equal(t, DashboardView, m.Mode())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "Error loading dumpsters")
}

func TestDashboard_Details(t *testing.T) {
	h := newUIHarness(t)
	h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	m := h.loggedIn(t)

	m, _ = press(t, m, "enter")
	assert.Equal(t, DetailsView, m.Mode())
	assert.Contains(t, m.View(), "Main St 1")

	m, _ = press(t, m, "esc")
	assert.Equal(t, DashboardView, m.Mode())

	m, _ = press(t, m, "?")
	assert.Equal(t, HelpView, m.Mode())
	assert.Contains(t, m.View(), "Refresh")
}

func TestDashboard_CursorStaysInRange(t *testing.T) {
	h := newUIHarness(t)
	for i := 0; i < 3; i++ {
		h.srv.AddDumpster(model.Dumpster{Location: "St", PostalCode: 1000, Capacity: 100, CurrentFill: i})
	}
	m := h.loggedIn(t)

	m, _ = press(t, m, "k")
	assert.Equal(t, 0, m.cursor)
	m, _ = press(t, m, "down", "down", "down", "down")
	assert.Equal(t, 2, m.cursor)
}

func TestAssignFlow(t *testing.T) {
	h := newUIHarness(t)
	id := h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	h.srv.AddPlant(model.RecyclingPlant{Name: "North Plant"}, 800)
	h.srv.AddPlant(model.RecyclingPlant{Name: "South Plant"}, 300)
	m := h.loggedIn(t)

	m, cmd := press(t, m, "a")
	assert.Equal(t, PlantPickerView, m.Mode())
	m = settle(t, m, cmd)
	require.Len(t, m.choices, 2)
	assert.Contains(t, m.View(), "North Plant — 800L")
	assert.Contains(t, m.View(), "2024-05-01")

	m, _ = press(t, m, "j")
	m, cmd = press(t, m, "enter")
	m = settle(t, m, cmd)

	assert.Equal(t, DashboardView, m.Mode())
	assert.Equal(t, "Loaded 1 dumpsters", m.status)
	d, _ := h.srv.Dumpster(id)
	assert.Equal(t, "South Plant", d.PlantName())
	assert.Equal(t, "South Plant", m.dumpsters[0].PlantName())
}

func TestAssignFlow_Rejected(t *testing.T) {
	h := newUIHarness(t)
	h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	h.srv.AddPlant(model.RecyclingPlant{Name: "North Plant"}, 800)
	m := h.loggedIn(t)

	m, cmd := press(t, m, "a")
	m = settle(t, m, cmd)
	h.srv.Fail(http.MethodPost, "/recyclingPlants/assignDumpster", http.StatusBadRequest)
	m, cmd = press(t, m, "enter")
	m = settle(t, m, cmd)

	assert.Equal(t, PlantPickerView, m.Mode())
	assert.Contains(t, m.pickerErr, "assignment rejected")

	m, _ = press(t, m, "esc")
	assert.Equal(t, DashboardView, m.Mode())
}

func TestAssignFlow_FailsAfterPickerClosed(t *testing.T) {
	h := newUIHarness(t)
	h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	h.srv.AddPlant(model.RecyclingPlant{Name: "North Plant"}, 800)
	m := h.loggedIn(t)

	m, cmd := press(t, m, "a")
	m = settle(t, m, cmd)
	h.srv.Fail(http.MethodPost, "/recyclingPlants/assignDumpster", http.StatusBadRequest)
	m, assign := press(t, m, "enter")
	require.NotNil(t, assign)
	m, _ = press(t, m, "esc")
	require.Equal(t, DashboardView, m.Mode())

	m = settle(t, m, assign)
	assert.Equal(t, DashboardView, m.Mode())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "Assigning dumpster 1 failed")
	assert.Contains(t, m.status, "assignment rejected")
	assert.False(t, m.pending)
}

func TestAssign_NeedsSelection(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)
	m, cmd := press(t, m, "a")
	assert.Nil(t, cmd)
	assert.Equal(t, DashboardView, m.Mode())
	assert.True(t, m.statusErr)
}

func TestManage_CreateDumpster(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	m, _ = press(t, m, "m")
	require.Equal(t, ManageView, m.Mode())
	assert.Equal(t, formCreate, m.form.kind, "nothing selected")

	m, _ = press(t, m, "Main St 1", "enter", "12", "enter", "500", "enter", "10")
	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.Equal(t, "invalid postal code 12 (must be 1000-99999)", m.form.err)

	m.form.inputs[1].SetValue("12345")
	m, cmd = press(t, m, "enter")
	m = settle(t, m, cmd)

	assert.Equal(t, DashboardView, m.Mode())
	assert.Contains(t, m.status, "Loaded 1 dumpsters")
	d, ok := h.srv.Dumpster(1)
	require.True(t, ok)
	assert.Equal(t, 12345, d.PostalCode)
	assert.Equal(t, 10, d.CurrentFill)
}

func TestManage_RefreshWhileSavingKeepsFormLocked(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	m, _ = press(t, m, "m")
	m, _ = press(t, m, "Main St 1", "enter", "12345", "enter", "500", "enter", "10")
	m, save := press(t, m, "enter")
	require.NotNil(t, save)
	require.True(t, m.pending)

	nm, _ := m.Update(dumpstersLoadedMsg{})
	m = nm.(Model)
	assert.False(t, m.busy)
	assert.True(t, m.pending)
	assert.Contains(t, m.View(), "Saving...")

	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd, "a second submit must wait for the first reply")
	assert.Equal(t, ManageView, m.Mode())

	m = settle(t, m, save)
	assert.False(t, m.pending)
	assert.Equal(t, DashboardView, m.Mode())
	_, ok := h.srv.Dumpster(1)
	assert.True(t, ok)
	_, ok = h.srv.Dumpster(2)
	assert.False(t, ok, "only one dumpster created")
}

func TestManage_UpdateFill(t *testing.T) {
	h := newUIHarness(t)
	id := h.srv.AddDumpster(model.Dumpster{Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 20})
	m := h.loggedIn(t)

	m, _ = press(t, m, "m")
	require.Equal(t, formFill, m.form.kind)
	assert.Equal(t, "20", m.form.inputs[0].Value())

	m.form.inputs[0].SetValue("abc")
	m, cmd := press(t, m, "enter")
	assert.Nil(t, cmd)
	assert.Equal(t, "fill must be a whole number", m.form.err)

	m.form.inputs[0].SetValue("85")
	m, cmd = press(t, m, "enter")
	m = settle(t, m, cmd)
	assert.Equal(t, DashboardView, m.Mode())
	d, _ := h.srv.Dumpster(id)
	assert.Equal(t, 85, d.CurrentFill)
	assert.Equal(t, model.FillRed, m.dumpsters[0].FillLevel)
}

func TestManage_UpdateFillUnknownDumpster(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)
	ghost := int64(42)
	m.form = newFillForm(model.Dumpster{ID: &ghost, Location: "gone"})
	m.mode = ManageView

	m, cmd := press(t, m, "enter")
	m = settle(t, m, cmd)
	assert.Equal(t, ManageView, m.Mode())
	assert.Equal(t, "Dumpster 42 not found", m.form.err)
}

func TestLogout_Confirm(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	m, _ = press(t, m, "l")
	assert.True(t, m.confirmLogout)
	m, cmd := press(t, m, "n")
	assert.Nil(t, cmd)
	assert.False(t, m.confirmLogout)
	assert.True(t, h.auth.HasActiveSession())

	m, _ = press(t, m, "l")
	m, cmd = press(t, m, "y")
	m = settle(t, m, cmd)
	assert.Equal(t, LoginView, m.Mode())
	assert.False(t, h.auth.HasActiveSession())
	assert.Empty(t, m.dumpsters)
}

func TestLogout_RefusedKeepsDashboard(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)

	h.srv.Fail(http.MethodDelete, "/auth/logout", http.StatusInternalServerError)
	m, _ = press(t, m, "l")
	m, cmd := press(t, m, "y")
	m = settle(t, m, cmd)

	assert.Equal(t, DashboardView, m.Mode())
	assert.True(t, m.statusErr)
	assert.True(t, h.auth.HasActiveSession())
}

func TestConfigChanged(t *testing.T) {
	h := newUIHarness(t)
	m := h.loggedIn(t)
	seq := m.refreshSeq

	nm, cmd := m.Update(ConfigChangedMsg{RefreshInterval: time.Minute, Theme: "dark"})
	m = nm.(Model)
	assert.True(t, m.styles.Theme.IsDark)
	assert.Equal(t, time.Minute, m.opts.RefreshInterval)
	assert.NotNil(t, cmd)
	assert.Equal(t, seq+1, m.refreshSeq)

	// same interval, no new tick chain
	_, cmd = m.Update(ConfigChangedMsg{RefreshInterval: time.Minute, Theme: "light"})
	assert.Nil(t, cmd)
}

func TestUpdate_WindowSize(t *testing.T) {
	h := newUIHarness(t)
	m := h.model()

	for _, size := range []tea.WindowSizeMsg{{Width: 120, Height: 40}, {Width: 0, Height: 0}, {Width: -1, Height: -1}} {
		nm, _ := m.Update(size)
		out := nm.(Model)
		assert.GreaterOrEqual(t, out.width, 0)
		assert.NotPanics(t, func() { _ = out.View() })
	}
}

func TestQuit(t *testing.T) {
	h := newUIHarness(t)
	m := h.model()
	m, cmd := press(t, m, "esc")
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
	assert.False(t, strings.Contains(m.View(), "Log in"))
}
