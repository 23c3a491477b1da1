package model

import "strings"

// FillLevel is the backend's traffic-light classification of how full a
// dumpster is.
type FillLevel string

const (
	FillGreen   FillLevel = "GREEN"
	FillOrange  FillLevel = "ORANGE"
	FillRed     FillLevel = "RED"
	FillUnknown FillLevel = ""
)

// ParseFillLevel is case-insensitive; anything unrecognised is FillUnknown.
func ParseFillLevel(s string) FillLevel {
	switch FillLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case FillGreen:
		return FillGreen
	case FillOrange:
		return FillOrange
	case FillRed:
		return FillRed
	default:
		return FillUnknown
	}
}

// Normalize returns the canonical form of l.
func (l FillLevel) Normalize() FillLevel {
	return ParseFillLevel(string(l))
}

// Label is the human-readable level name.
func (l FillLevel) Label() string {
	switch l.Normalize() {
	case FillGreen:
		return "Low"
	case FillOrange:
		return "Medium"
	case FillRed:
		return "Full"
	default:
		return "Unknown"
	}
}

// Color is the hex colour the level is drawn with.
func (l FillLevel) Color() string {
	switch l.Normalize() {
	case FillGreen:
		return "#4CAF50"
	case FillOrange:
		return "#FF9800"
	case FillRed:
		return "#F44336"
	default:
		return "#9E9E9E"
	}
}

// Levels lists the known levels in ascending order.
func Levels() []FillLevel {
	return []FillLevel{FillGreen, FillOrange, FillRed}
}
