package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.opts.RequestTimeout)
}

func (m Model) loginCmd(email, password string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		sess, err := m.opts.Auth.Login(ctx, email, password)
		return loginDoneMsg{session: sess, err: err}
	}
}

func (m Model) logoutCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return logoutDoneMsg{err: m.opts.Auth.Logout(ctx)}
	}
}

func (m Model) loadDumpstersCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		ds, err := m.opts.Fleet.Dumpsters(ctx)
		return dumpstersLoadedMsg{dumpsters: ds, err: err}
	}
}

// loadCachedCmd shows the last listing while the live one loads. A missing
// cache produces no message.
func (m Model) loadCachedCmd() tea.Cmd {
	return func() tea.Msg {
		ds, at, err := m.opts.Fleet.CachedDumpsters()
		if err != nil || at.IsZero() {
			return nil
		}
		return dumpstersLoadedMsg{dumpsters: ds, cachedAt: at}
	}
}

func (m Model) loadChoicesCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		choices, err := m.opts.Fleet.PlantChoices(ctx, m.opts.Today())
		return choicesLoadedMsg{choices: choices, err: err}
	}
}

func (m Model) assignCmd(plant string, id int64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		return assignDoneMsg{plant: plant, id: id, err: m.opts.Fleet.AssignToPlant(ctx, plant, id)}
	}
}

func (m Model) createCmd(location string, postal, capacity, fill int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		d, err := m.opts.Fleet.CreateDumpster(ctx, location, postal, capacity, fill)
		return createDoneMsg{dumpster: d, err: err}
	}
}

func (m Model) updateFillCmd(id int64, fill int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		found, err := m.opts.Fleet.UpdateFill(ctx, id, fill)
		return fillDoneMsg{id: id, fill: fill, found: found, err: err}
	}
}

// scheduleRefresh starts a new tick chain; ticks from older chains are
// dropped when they arrive.
func (m *Model) scheduleRefresh() tea.Cmd {
	m.refreshSeq++
	return m.refreshTick()
}

func (m Model) refreshTick() tea.Cmd {
	seq := m.refreshSeq
	return tea.Tick(m.opts.RefreshInterval, func(time.Time) tea.Msg {
		return refreshTickMsg{seq: seq}
	})
}
