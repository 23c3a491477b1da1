package ui

import (
	"fmt"
	"strconv"
	"strings"

	"binops/internal/controller"
	"binops/internal/model"
	"binops/internal/store"
)

// DumpsterHeaders are the dumpster columns shared by the CLI and dashboard.
var DumpsterHeaders = []string{"ID", "Address", "Postal code", "Capacity (L)", "Fill (L)", "%", "Level", "Plant"}

// DumpsterRow formats one dumpster for a table. level renders the badge.
func DumpsterRow(d model.Dumpster, level func(model.FillLevel) string) []string {
	id := "-"
	if d.ID != nil {
		id = strconv.FormatInt(*d.ID, 10)
	}
	plant := d.PlantName()
	if plant == "" {
		plant = "-"
	}
	return []string{
		id,
		d.Location,
		strconv.Itoa(d.PostalCode),
		strconv.Itoa(d.Capacity),
		strconv.Itoa(d.CurrentFill),
		fmt.Sprintf("%.0f%%", d.FillPercentage()),
		level(d.FillLevel.Normalize()),
		plant,
	}
}

// DumpsterTable builds the static dumpster listing.
func DumpsterTable(title string, ds []model.Dumpster, styles Styles) *SimpleTable {
	t := NewSimpleTable(title, DumpsterHeaders).AlignRight(0, 3, 4, 5)
	t.Empty = "No dumpsters."
	for _, d := range ds {
		t.AddRow(DumpsterRow(d, styles.LevelText)...)
	}
	return t
}

// PlantTable builds the static plant listing.
func PlantTable(plants []model.RecyclingPlant) *SimpleTable {
	t := NewSimpleTable("Recycling plants", []string{"Name", "Location", "Postal code", "Max (L)", "Fill (L)", "Remaining (L)"}).
		AlignRight(3, 4, 5)
	t.Empty = "No recycling plants."
	for _, p := range plants {
		t.AddRow(p.Name, p.Location, strconv.Itoa(p.PostalCode),
			strconv.Itoa(p.MaxCapacity), strconv.Itoa(p.CurrentFill), strconv.Itoa(p.Remaining()))
	}
	return t
}

// ChoiceTable lists plants with their capacity on a given day.
func ChoiceTable(date model.Date, choices []controller.PlantChoice) *SimpleTable {
	t := NewSimpleTable("Plant capacity on "+date.String(), []string{"Plant", "Available (L)"}).AlignRight(1)
	t.Empty = "No recycling plants."
	for _, c := range choices {
		capacity := "?"
		if c.Known {
			capacity = strconv.Itoa(c.Capacity)
		}
		t.AddRow(c.Plant.Name, capacity)
	}
	return t
}

// UsageTable builds the usage history listing.
func UsageTable(id int64, recs []model.UsageRecord, styles Styles) *SimpleTable {
	t := NewSimpleTable(fmt.Sprintf("Usage of dumpster %d", id), []string{"Date", "Containers", "Level"}).AlignRight(1)
	t.Empty = "No usage recorded in that period."
	for _, r := range recs {
		t.AddRow(r.Date.String(), strconv.Itoa(r.EstimatedNumCont), styles.LevelText(r.FillLevel.Normalize()))
	}
	return t
}

// ActivityTable builds the local history listing.
func ActivityTable(acts []store.Activity, styles Styles) *SimpleTable {
	t := NewSimpleTable("Recent activity", []string{"When", "Action", "Subject", "Outcome", "Detail"})
	t.Empty = "No activity recorded yet."
	for _, a := range acts {
		outcome := styles.Success.Render(a.Outcome)
		if a.Outcome != store.OutcomeOK {
			outcome = styles.Error.Render(a.Outcome)
		}
		t.AddRow(a.Timestamp.Local().Format("2006-01-02 15:04:05"), a.Action, a.Subject, outcome, a.Detail)
	}
	return t
}

// DumpsterMarkdown describes a dumpster as markdown for glamour.
func DumpsterMarkdown(d model.Dumpster) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Dumpster %d\n\n", d.IDValue())
	fmt.Fprintf(&sb, "**%s**, %d\n\n", d.Location, d.PostalCode)
	sb.WriteString("| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Capacity | %d L |\n", d.Capacity)
	fmt.Fprintf(&sb, "| Current fill | %d L |\n", d.CurrentFill)
	fmt.Fprintf(&sb, "| Fill | %.1f%% |\n", d.FillPercentage())
	fmt.Fprintf(&sb, "| Level | %s |\n", d.FillLevel.Normalize().Label())

	if p := d.AssignedPlant; p != nil {
		fmt.Fprintf(&sb, "\n## Recycling plant\n\n**%s**", p.Name)
		if p.Location != "" {
			fmt.Fprintf(&sb, ", %s", p.Location)
		}
		if p.PostalCode != 0 {
			fmt.Fprintf(&sb, " %d", p.PostalCode)
		}
		sb.WriteString("\n")
		if p.MaxCapacity > 0 {
			fmt.Fprintf(&sb, "\n- Capacity: %d L\n- Remaining: %d L\n", p.MaxCapacity, p.Remaining())
		}
	} else {
		sb.WriteString("\n_Not assigned to a recycling plant._\n")
	}
	return sb.String()
}

// HelpMarkdown is the dashboard key reference.
const HelpMarkdown = `# Keys

| Key | Action |
|---|---|
| r | Refresh dumpsters |
| enter | Dumpster details |
| a | Assign selected dumpster to a plant |
| m | Create a dumpster or update the selected fill |
| l | Log out |
| ? | This help |
| q | Quit |

Fill levels: **Low** below half full, **Medium** up to 80%, **Full** above.
`
