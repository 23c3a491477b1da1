package ui

import (
	"binops/internal/controller"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case LoginView:
		return m.handleLoginKey(msg)
	case DashboardView:
		return m.handleDashboardKey(msg)
	case PlantPickerView:
		return m.handlePickerKey(msg)
	case DetailsView, HelpView:
		switch msg.String() {
		case "esc", "q", "enter":
			m.mode = DashboardView
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case ManageView:
		return m.handleManageKey(msg)
	}
	return m, nil
}

func (m Model) handleLoginKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.quitting = true
		return m, tea.Quit
	case "tab", "down", "shift+tab", "up":
		m.focusLogin(1 - m.loginFocus)
		return m, textinput.Blink
	case "enter":
		if m.loginFocus == 0 {
			m.focusLogin(1)
			return m, textinput.Blink
		}
		m.loginErr = ""
		m.busy = true
		return m, tea.Batch(m.loginCmd(m.email.Value(), m.password.Value()), m.spinner.Tick)
	}
	return m.updateLoginInputs(msg)
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.confirmLogout {
		switch key {
		case "y", "Y", "enter":
			m.busy = true
			return m, tea.Batch(m.logoutCmd(), m.spinner.Tick)
		default:
			m.confirmLogout = false
			m.setStatus("Logout cancelled", false)
		}
		return m, nil
	}

	switch key {
	case "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		m.cursor--
		m.clampCursor()
	case "down", "j":
		m.cursor++
		m.clampCursor()
	case "home", "g":
		m.cursor = 0
		m.clampCursor()
	case "end", "G":
		m.cursor = len(m.dumpsters) - 1
		m.clampCursor()
	case "r":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.setStatus("Refreshing...", false)
		return m, tea.Batch(m.loadDumpstersCmd(), m.spinner.Tick)
	case "enter":
		d, ok := m.selected()
		if !ok {
			m.setStatus("Select a dumpster first", true)
			return m, nil
		}
		m.mode = DetailsView
		m.viewport.SetContent(m.renderMarkdown(DumpsterMarkdown(d)))
		m.viewport.GotoTop()
	case "a":
		d, ok := m.selected()
		if !ok {
			m.setStatus("Select a dumpster to assign", true)
			return m, nil
		}
		m.mode = PlantPickerView
		m.assignTarget = d
		m.choices = nil
		m.choiceCursor = 0
		m.pickerErr = ""
		m.busy = true
		return m, tea.Batch(m.loadChoicesCmd(), m.spinner.Tick)
	case "m":
		if d, ok := m.selected(); ok {
			m.form = newFillForm(d)
		} else {
			m.form = newCreateForm()
		}
		m.mode = ManageView
		return m, textinput.Blink
	case "n":
		m.form = newCreateForm()
		m.mode = ManageView
		return m, textinput.Blink
	case "l":
		m.confirmLogout = true
		m.setStatus("Log out "+m.opts.Auth.CurrentEmail()+"? (y/n)", false)
	case "?":
		m.mode = HelpView
		m.viewport.SetContent(m.renderMarkdown(HelpMarkdown))
		m.viewport.GotoTop()
	}
	return m, nil
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = DashboardView
		m.busy = false
		return m, nil
	case "up", "k":
		if m.choiceCursor > 0 {
			m.choiceCursor--
		}
	case "down", "j":
		if m.choiceCursor < len(m.choices)-1 {
			m.choiceCursor++
		}
	case "enter":
		if m.busy || m.pending || len(m.choices) == 0 {
			return m, nil
		}
		plant := controller.PlantNameFromChoice(m.choices[m.choiceCursor].Label())
		m.pickerErr = ""
		m.pending = true
		return m, tea.Batch(m.assignCmd(plant, m.assignTarget.IDValue()), m.spinner.Tick)
	}
	return m, nil
}

func (m Model) handleManageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.pending {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.mode = DashboardView
		return m, nil
	case "ctrl+n":
		m.form = newCreateForm()
		return m, textinput.Blink
	case "ctrl+u":
		if d, ok := m.selected(); ok {
			m.form = newFillForm(d)
		}
		return m, textinput.Blink
	case "tab", "down":
		m.form.move(1)
		return m, textinput.Blink
	case "shift+tab", "up":
		m.form.move(-1)
		return m, textinput.Blink
	case "enter":
		if m.form.focus < len(m.form.inputs)-1 {
			m.form.move(1)
			return m, textinput.Blink
		}
		return m.submitForm()
	}

	var cmd tea.Cmd
	m.form, cmd = m.form.update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	m.form.err = ""
	if m.form.kind == formFill {
		fill, err := m.form.fillValue()
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.pending = true
		return m, tea.Batch(m.updateFillCmd(m.form.target.IDValue(), fill), m.spinner.Tick)
	}

	location, postal, capacity, fill, err := m.form.createValues()
	if err != nil {
		m.form.err = err.Error()
		return m, nil
	}
	m.pending = true
	return m, tea.Batch(m.createCmd(location, postal, capacity, fill), m.spinner.Tick)
}
