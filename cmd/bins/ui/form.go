package ui

import (
	"fmt"
	"strconv"
	"strings"

	"binops/internal/controller"
	"binops/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type formKind int

const (
	formCreate formKind = iota
	formFill
)

// manageForm creates a dumpster or updates the fill of an existing one.
type manageForm struct {
	kind   formKind
	target model.Dumpster // formFill only
	inputs []textinput.Model
	labels []string
	focus  int
	err    string
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Prompt = ""
	return ti
}

func newCreateForm() manageForm {
	f := manageForm{
		kind:   formCreate,
		labels: []string{"Address", "Postal code", "Capacity (L)", "Fill (L)"},
		inputs: []textinput.Model{
			newInput("Main St 1", 120),
			newInput("12345", 5),
			newInput("1000", 9),
			newInput("0", 9),
		},
	}
	f.inputs[0].Focus()
	return f
}

func newFillForm(d model.Dumpster) manageForm {
	in := newInput(strconv.Itoa(d.CurrentFill), 9)
	in.SetValue(strconv.Itoa(d.CurrentFill))
	in.CursorEnd()
	in.Focus()
	return manageForm{
		kind:   formFill,
		target: d,
		labels: []string{"Fill (L)"},
		inputs: []textinput.Model{in},
	}
}

func (f manageForm) title() string {
	if f.kind == formFill {
		return fmt.Sprintf("Update fill of dumpster %d (%s)", f.target.IDValue(), f.target.Location)
	}
	return "New dumpster"
}

func (f *manageForm) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

func (f manageForm) update(msg tea.Msg) (manageForm, tea.Cmd) {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f manageForm) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

func parseField(name, v string) (int, error) {
	if v == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", name)
	}
	return n, nil
}

// createValues parses and validates the create form.
func (f manageForm) createValues() (location string, postal, capacity, fill int, err error) {
	location = f.value(0)
	if postal, err = parseField("postal code", f.value(1)); err != nil {
		return
	}
	if capacity, err = parseField("capacity", f.value(2)); err != nil {
		return
	}
	fill = 0
	if v := f.value(3); v != "" {
		if fill, err = parseField("fill", v); err != nil {
			return
		}
	}
	err = controller.ValidateNewDumpster(location, postal, capacity, fill)
	return
}

// fillValue parses the fill form.
func (f manageForm) fillValue() (int, error) {
	fill, err := parseField("fill", f.value(0))
	if err != nil {
		return 0, err
	}
	if fill < 0 {
		return 0, fmt.Errorf("fill level must not be negative")
	}
	return fill, nil
}

func (f manageForm) view(s Styles) string {
	var sb strings.Builder
	sb.WriteString(s.Title.Render(f.title()))
	sb.WriteString("\n")
	for i, in := range f.inputs {
		label := s.Label.Render(f.labels[i])
		if i == f.focus {
			label = s.FocusedLabel.Render(f.labels[i])
		}
		sb.WriteString(label + " " + in.View() + "\n")
	}
	if f.err != "" {
		sb.WriteString("\n" + s.Error.Render(f.err) + "\n")
	}
	return sb.String()
}
