package ui

import (
	"testing"

	"binops/internal/controller"
	"binops/internal/model"
	"binops/internal/store"

	"github.com/stretchr/testify/assert"
)

func TestDumpsterRow(t *testing.T) {
	id := int64(7)
	d := model.Dumpster{
		ID: &id, Location: "Main St 1", PostalCode: 1234, Capacity: 200, CurrentFill: 50,
		FillLevel:     model.FillGreen,
		AssignedPlant: &model.RecyclingPlant{Name: "North"},
	}
	row := DumpsterRow(d, func(l model.FillLevel) string { return l.Label() })
	assert.Equal(t, []string{"7", "Main St 1", "1234", "200", "50", "25%", "Low", "North"}, row)
	assert.Len(t, row, len(DumpsterHeaders))

	row = DumpsterRow(model.Dumpster{Location: "New"}, func(l model.FillLevel) string { return l.Label() })
	assert.Equal(t, "-", row[0])
	assert.Equal(t, "0%", row[5])
	assert.Equal(t, "Unknown", row[6])
	assert.Equal(t, "-", row[7])
}

func TestChoiceTable(t *testing.T) {
	view := ChoiceTable(model.MustParseDate("2024-05-01"), []controller.PlantChoice{
		{Plant: model.RecyclingPlant{Name: "North"}, Capacity: 800, Known: true},
		{Plant: model.RecyclingPlant{Name: "South"}},
	}).View(DefaultStyles())
	assert.Contains(t, view, "2024-05-01")
	assert.Contains(t, view, "800")
	assert.Contains(t, view, "?")
}

func TestActivityTableEmpty(t *testing.T) {
	view := ActivityTable(nil, DefaultStyles()).View(DefaultStyles())
	assert.Contains(t, view, "No activity recorded yet.")

	view = ActivityTable([]store.Activity{{Action: "login", Subject: "ana@example.com", Outcome: store.OutcomeFailed}}, DefaultStyles()).
		View(DefaultStyles())
	assert.Contains(t, view, "failed")
}

func TestDumpsterMarkdown(t *testing.T) {
	id := int64(3)
	md := DumpsterMarkdown(model.Dumpster{
		ID: &id, Location: "Main St 1", PostalCode: 1000, Capacity: 100, CurrentFill: 90,
		FillLevel:     model.FillRed,
		AssignedPlant: &model.RecyclingPlant{Name: "North", Location: "Harbour Rd", MaxCapacity: 1000, CurrentFill: 400},
	})
	assert.Contains(t, md, "# Dumpster 3")
	assert.Contains(t, md, "| Level | Full |")
	assert.Contains(t, md, "**North**, Harbour Rd")
	assert.Contains(t, md, "Remaining: 600 L")
	assert.NotContains(t, md, "Not assigned")
}
