// Package model holds the dumpster service's domain types and their JSON
// representation on the wire.
package model

import (
	"fmt"
	"strings"
)

// Dumpster is a street container tracked by the service. ID is nil until the
// backend has assigned one.
type Dumpster struct {
	ID            *int64          `json:"id,omitempty"`
	Location      string          `json:"address"`
	PostalCode    int             `json:"postalCode"`
	Capacity      int             `json:"capacity"`
	CurrentFill   int             `json:"currentFill"`
	FillLevel     FillLevel       `json:"fillLevel,omitempty"`
	AssignedPlant *RecyclingPlant `json:"assignedPlant,omitempty"`
}

// IDValue returns the dumpster id, or 0 when unset.
func (d Dumpster) IDValue() int64 {
	if d.ID == nil {
		return 0
	}
	return *d.ID
}

// FillPercentage is CurrentFill as a percentage of Capacity. A dumpster with no
// capacity reports 0.
func (d Dumpster) FillPercentage() float64 {
	if d.Capacity == 0 {
		return 0
	}
	return float64(d.CurrentFill) * 100.0 / float64(d.Capacity)
}

// PlantName returns the assigned plant's name or "" when unassigned.
func (d Dumpster) PlantName() string {
	if d.AssignedPlant == nil {
		return ""
	}
	return d.AssignedPlant.Name
}

func (d Dumpster) String() string {
	id := "new"
	if d.ID != nil {
		id = fmt.Sprintf("%d", *d.ID)
	}
	return fmt.Sprintf("Dumpster{id=%s, address=%q, postalCode=%d, capacity=%d, currentFill=%d, fillLevel=%s, plant=%q}",
		id, d.Location, d.PostalCode, d.Capacity, d.CurrentFill, d.FillLevel.Normalize().Label(), d.PlantName())
}

// RecyclingPlant receives the contents of assigned dumpsters.
type RecyclingPlant struct {
	Name        string     `json:"name"`
	Location    string     `json:"location,omitempty"`
	PostalCode  int        `json:"postalCode,omitempty"`
	MaxCapacity int        `json:"maxCapacity,omitempty"`
	CurrentFill int        `json:"currentFill,omitempty"`
	Assignments []Dumpster `json:"assignments,omitempty"`
}

// Remaining is the capacity left before the plant is full. It never goes
// below zero.
func (p RecyclingPlant) Remaining() int {
	if r := p.MaxCapacity - p.CurrentFill; r > 0 {
		return r
	}
	return 0
}

func (p RecyclingPlant) String() string {
	return p.Name
}

// UsageRecord is one day of observed usage for a dumpster.
type UsageRecord struct {
	DumpsterID       int64     `json:"dumpsterId"`
	Date             Date      `json:"date"`
	EstimatedNumCont int       `json:"estimatedNumCont"`
	FillLevel        FillLevel `json:"fillLevel"`
}

// AssignRequest asks the backend to route dumpsters to a plant.
type AssignRequest struct {
	PlantName   string  `json:"plantName"`
	DumpsterIDs []int64 `json:"dumpsterIds"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// NormalizeEmail trims surrounding whitespace; addresses are otherwise sent
// as typed.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
