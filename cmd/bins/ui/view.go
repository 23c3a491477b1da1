package ui

import (
	"strings"

	"binops/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// level column in DumpsterHeaders
const levelColumn = 6

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.mode {
	case LoginView:
		body = m.loginView()
	case DashboardView:
		body = m.dashboardView()
	case PlantPickerView:
		body = m.pickerView()
	case DetailsView, HelpView:
		body = m.viewport.View()
	case ManageView:
		body = m.form.view(m.styles)
		if line := m.busyLine("Saving..."); line != "" {
			body += "\n" + line + "\n"
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.headerView(),
		m.styles.Content.Render(body),
		m.footerView(),
	)
}

func (m Model) headerView() string {
	title := "bins · dumpster fleet"
	if email := m.opts.Auth.CurrentEmail(); email != "" && m.mode != LoginView {
		title += " · " + email
	}
	return m.styles.Header.Width(max(m.width, lipgloss.Width(title)+4)).Render(title)
}

func (m Model) footerView() string {
	var keys []string
	switch m.mode {
	case LoginView:
		keys = []string{"tab switch field", "enter log in", "esc quit"}
	case DashboardView:
		keys = []string{"↑/↓ select", "r refresh", "enter details", "a assign", "m manage", "n new", "l logout", "? help", "q quit"}
	case PlantPickerView:
		keys = []string{"↑/↓ select", "enter assign", "esc back"}
	case DetailsView, HelpView:
		keys = []string{"↑/↓ scroll", "esc back"}
	case ManageView:
		keys = []string{"tab next field", "enter save", "ctrl+n new dumpster", "ctrl+u update fill", "esc back"}
	}
	return m.styles.Footer.Render(strings.Join(keys, " • "))
}

func (m Model) busyLine(text string) string {
	if !m.busy && !m.pending {
		return ""
	}
	return m.spinner.View() + " " + m.styles.Muted.Render(text)
}

func (m Model) loginView() string {
	var sb strings.Builder
	sb.WriteString(m.styles.Title.Render("Log in"))
	sb.WriteString("\n")

	labels := []string{"Email", "Password"}
	inputs := []string{m.email.View(), m.password.View()}
	for i := range labels {
		label := m.styles.Label.Render(labels[i])
		if i == m.loginFocus {
			label = m.styles.FocusedLabel.Render(labels[i])
		}
		sb.WriteString(label + " " + inputs[i] + "\n")
	}

	if line := m.busyLine("Logging in..."); line != "" {
		sb.WriteString("\n" + line + "\n")
	} else if m.loginErr != "" {
		sb.WriteString("\n" + m.styles.Error.Render(m.loginErr) + "\n")
	}
	return m.styles.Panel.Render(sb.String())
}

func (m Model) dashboardView() string {
	var sb strings.Builder

	if len(m.dumpsters) == 0 {
		sb.WriteString(m.styles.Muted.Render("No dumpsters."))
	} else {
		sb.WriteString(m.dumpsterTable())
	}
	sb.WriteString("\n")

	switch {
	case m.busy:
		sb.WriteString(m.busyLine(m.status))
	case m.statusErr:
		sb.WriteString(m.styles.Error.Render(m.status))
	case m.confirmLogout:
		sb.WriteString(m.styles.Warning.Render(m.status))
	default:
		sb.WriteString(m.styles.Info.Render(m.status))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.styles.Legend())
	return sb.String()
}

// dumpsterTable renders the visible window of the listing.
func (m Model) dumpsterTable() string {
	end := min(m.offset+m.tableRows(), len(m.dumpsters))
	visible := m.dumpsters[m.offset:end]

	rows := make([][]string, len(visible))
	for i, d := range visible {
		rows[i] = DumpsterRow(d, func(l model.FillLevel) string { return "● " + l.Label() })
	}

	selectedRow := m.cursor - m.offset
	selected := lipgloss.NewStyle().Background(m.styles.Theme.Accent).Foreground(lipgloss.Color("#ffffff"))
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(m.styles.Divider).
		Headers(DumpsterHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return m.styles.Bold.Padding(0, 1)
			case row == selectedRow:
				return selected.Padding(0, 1)
			case col == levelColumn && row >= 0 && row < len(visible):
				return cell.Foreground(lipgloss.Color(visible[row].FillLevel.Normalize().Color()))
			}
			return cell
		})
	return t.String()
}

func (m Model) pickerView() string {
	var sb strings.Builder
	d := m.assignTarget
	sb.WriteString(m.styles.Title.Render("Assign dumpster to a recycling plant"))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Subtitle.Render(d.Location + " · " + d.FillLevel.Normalize().Label()))
	sb.WriteString("\n")
	sb.WriteString(m.styles.Muted.Render("Capacity on " + m.opts.Today().String()))
	sb.WriteString("\n\n")

	for i, c := range m.choices {
		line := "  " + c.Label()
		if i == m.choiceCursor {
			line = m.styles.Key.Render("▸ " + c.Label())
		}
		sb.WriteString(line + "\n")
	}

	if line := m.busyLine("Working..."); line != "" {
		sb.WriteString("\n" + line + "\n")
	} else if m.pickerErr != "" {
		sb.WriteString("\n" + m.styles.Error.Render(m.pickerErr) + "\n")
	}
	return sb.String()
}
