package ui

import (
	"context"
	"time"

	"binops/internal/controller"
	"binops/internal/model"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"
)

// AuthService is what the dashboard needs for login and logout.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*controller.Session, error)
	Logout(ctx context.Context) error
	HasActiveSession() bool
	CurrentEmail() string
}

// FleetService is what the dashboard needs for dumpsters and plants.
type FleetService interface {
	Dumpsters(ctx context.Context) ([]model.Dumpster, error)
	CachedDumpsters() ([]model.Dumpster, time.Time, error)
	CreateDumpster(ctx context.Context, location string, postalCode, capacity, currentFill int) (model.Dumpster, error)
	UpdateFill(ctx context.Context, id int64, currentFill int) (bool, error)
	PlantChoices(ctx context.Context, date model.Date) ([]controller.PlantChoice, error)
	AssignToPlant(ctx context.Context, plantName string, ids ...int64) error
}

// Options configures a dashboard Model.
type Options struct {
	Auth   AuthService
	Fleet  FleetService
	Logger *zap.Logger

	RefreshInterval time.Duration // auto-refresh period, 30s when zero
	RequestTimeout  time.Duration // per backend call, 30s when zero
	Theme           string        // auto, light, dark

	Today func() model.Date // capacity day for the plant picker
}

// ViewMode determines which screen is active
type ViewMode int

const (
	LoginView ViewMode = iota
	DashboardView
	PlantPickerView
	DetailsView
	ManageView
	HelpView
)

func (v ViewMode) String() string {
	names := []string{"login", "dashboard", "plants", "details", "manage", "help"}
	if int(v) < len(names) {
		return names[v]
	}
	return "unknown"
}

// Model is the root bubbletea model of the dashboard.
type Model struct {
	opts   Options
	styles Styles
	mode   ViewMode

	width  int
	height int

	spinner spinner.Model
	busy    bool // a load is running
	pending bool // a create, fill or assign is in flight; only its reply clears it

	// login
	email      textinput.Model
	password   textinput.Model
	loginFocus int
	loginErr   string

	// dashboard
	dumpsters     []model.Dumpster
	cursor        int
	offset        int
	status        string
	statusErr     bool
	cachedAt      time.Time // non-zero while showing the cache
	loadedLive    bool
	confirmLogout bool
	refreshSeq    int

	// plant picker
	choices      []controller.PlantChoice
	choiceCursor int
	assignTarget model.Dumpster
	pickerErr    string

	// details and help
	viewport viewport.Model

	form manageForm

	quitting bool
}

// Messages
type (
	loginDoneMsg struct {
		session *controller.Session
		err     error
	}

	logoutDoneMsg struct {
		err error
	}

	dumpstersLoadedMsg struct {
		dumpsters []model.Dumpster
		cachedAt  time.Time // zero for a live listing
		err       error
	}

	refreshTickMsg struct {
		seq int
	}

	choicesLoadedMsg struct {
		choices []controller.PlantChoice
		err     error
	}

	assignDoneMsg struct {
		plant string
		id    int64
		err   error
	}

	createDoneMsg struct {
		dumpster model.Dumpster
		err      error
	}

	fillDoneMsg struct {
		id    int64
		fill  int
		found bool
		err   error
	}
)

// ConfigChangedMsg carries settings reloaded from the config file.
type ConfigChangedMsg struct {
	RefreshInterval time.Duration
	Theme           string
}
