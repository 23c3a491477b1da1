package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"binops/internal/client"
	"binops/internal/logging"
	"binops/internal/model"
	"binops/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Postal code bounds accepted for new dumpsters.
const (
	MinPostalCode = 1000
	MaxPostalCode = 99999
)

// capacityLookups bounds concurrent plant capacity requests.
const capacityLookups = 4

// FleetAPI is the part of the backend client Fleet needs.
type FleetAPI interface {
	ListDumpsters(ctx context.Context, token string) ([]model.Dumpster, error)
	CreateDumpster(ctx context.Context, token string, d model.Dumpster) (model.Dumpster, error)
	UpdateFill(ctx context.Context, token string, id int64, currentFill int) error
	DumpsterUsage(ctx context.Context, token string, id int64, start, end model.Date) ([]model.UsageRecord, error)
	DumpstersByPostalCode(ctx context.Context, token string, date model.Date, postalCode int) ([]model.Dumpster, error)
	ListPlants(ctx context.Context, token string) ([]model.RecyclingPlant, error)
	PlantCapacity(ctx context.Context, token, plantName string, date model.Date) (int, bool, error)
	AssignDumpsters(ctx context.Context, token, plantName string, dumpsterIDs []int64) error
}

// Fleet covers dumpster and recycling plant operations.
type Fleet struct {
	api      FleetAPI
	sessions *Sessions
	store    *store.Store
	logger   *zap.Logger
}

// NewFleet wires a Fleet controller.
func NewFleet(api FleetAPI, sessions *Sessions, st *store.Store, logger *zap.Logger) *Fleet {
	return &Fleet{
		api:      api,
		sessions: sessions,
		store:    st,
		logger:   logging.For(logger, logging.CategoryFleet),
	}
}

// fail maps a backend error to a controller error.
func (f *Fleet) fail(op, msg string, err error) error {
	switch {
	case errors.Is(err, ErrNoSession):
		return err
	case errors.Is(err, client.ErrUnauthorized):
		return &Error{Op: op, Msg: msg, Err: ErrSessionInvalid}
	default:
		f.logger.Warn(msg, zap.String("op", op), zap.Error(err))
		return &Error{Op: op, Msg: msg, Err: err}
	}
}

// Dumpsters loads all dumpsters and refreshes the local cache.
func (f *Fleet) Dumpsters(ctx context.Context) ([]model.Dumpster, error) {
	token, err := f.sessions.Token()
	if err != nil {
		return nil, err
	}
	ds, err := f.api.ListDumpsters(ctx, token)
	if err != nil {
		return nil, f.fail("list_dumpsters", "error loading dumpsters", err)
	}
	if err := f.store.ReplaceDumpsters(ds); err != nil {
		f.logger.Warn("could not cache dumpsters", zap.Error(err))
	}
	return ds, nil
}

// CachedDumpsters returns the last listing fetched and when.
func (f *Fleet) CachedDumpsters() ([]model.Dumpster, time.Time, error) {
	return f.store.CachedDumpsters()
}

// Dumpster finds one dumpster by id in a fresh listing.
func (f *Fleet) Dumpster(ctx context.Context, id int64) (model.Dumpster, error) {
	ds, err := f.Dumpsters(ctx)
	if err != nil {
		return model.Dumpster{}, err
	}
	for _, d := range ds {
		if d.IDValue() == id {
			return d, nil
		}
	}
	return model.Dumpster{}, &Error{Op: "show_dumpster", Msg: fmt.Sprintf("dumpster %d not found", id), Err: client.ErrNotFound}
}

// ValidateNewDumpster checks the fields of a dumpster about to be created.
func ValidateNewDumpster(location string, postalCode, capacity, currentFill int) error {
	switch {
	case strings.TrimSpace(location) == "":
		return invalid("location", "location must not be empty")
	case postalCode < MinPostalCode || postalCode > MaxPostalCode:
		return invalid("postal_code", "invalid postal code %d (must be %d-%d)", postalCode, MinPostalCode, MaxPostalCode)
	case capacity <= 0:
		return invalid("capacity", "capacity must be greater than 0")
	case currentFill < 0 || currentFill > capacity:
		return invalid("current_fill", "current fill must be between 0 and %d", capacity)
	}
	return nil
}

// CreateDumpster validates and registers a new dumpster.
func (f *Fleet) CreateDumpster(ctx context.Context, location string, postalCode, capacity, currentFill int) (model.Dumpster, error) {
	if err := ValidateNewDumpster(location, postalCode, capacity, currentFill); err != nil {
		return model.Dumpster{}, err
	}
	token, err := f.sessions.Token()
	if err != nil {
		return model.Dumpster{}, err
	}

	location = strings.TrimSpace(location)
	created, err := f.api.CreateDumpster(ctx, token, model.Dumpster{
		Location:    location,
		PostalCode:  postalCode,
		Capacity:    capacity,
		CurrentFill: currentFill,
	})
	subject := location
	if created.ID != nil {
		subject = "dumpster " + strconv.FormatInt(*created.ID, 10)
	}
	f.record("create_dumpster", subject, err)
	if err != nil {
		return model.Dumpster{}, f.fail("create_dumpster", "error creating dumpster", err)
	}
	f.logger.Info("dumpster created", zap.Int64("id", created.IDValue()))
	return created, nil
}

// UpdateFill reports a new fill level. It returns false without error when
// the backend does not know the dumpster.
func (f *Fleet) UpdateFill(ctx context.Context, id int64, currentFill int) (bool, error) {
	if currentFill < 0 {
		return false, invalid("current_fill", "fill level must not be negative")
	}
	token, err := f.sessions.Token()
	if err != nil {
		return false, err
	}

	err = f.api.UpdateFill(ctx, token, id, currentFill)
	f.record("update_fill", fmt.Sprintf("dumpster %d -> %d", id, currentFill), err)
	if errors.Is(err, client.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, f.fail("update_fill", "error updating dumpster", err)
	}
	return true, nil
}

// Usage returns the usage history of a dumpster between start and end.
func (f *Fleet) Usage(ctx context.Context, id int64, start, end model.Date) ([]model.UsageRecord, error) {
	if start.After(end) {
		return nil, invalid("start_date", "start date must not be after end date")
	}
	token, err := f.sessions.Token()
	if err != nil {
		return nil, err
	}
	recs, err := f.api.DumpsterUsage(ctx, token, id, start, end)
	if err != nil {
		return nil, f.fail("usage", "error loading usage history", err)
	}
	return recs, nil
}

// SearchByPostalCode returns the dumpsters of a postal code as of date.
func (f *Fleet) SearchByPostalCode(ctx context.Context, postalCode int, date model.Date) ([]model.Dumpster, error) {
	token, err := f.sessions.Token()
	if err != nil {
		return nil, err
	}
	ds, err := f.api.DumpstersByPostalCode(ctx, token, date, postalCode)
	if err != nil {
		return nil, f.fail("search", "error searching dumpsters", err)
	}
	return ds, nil
}

// Plants returns all recycling plants.
func (f *Fleet) Plants(ctx context.Context) ([]model.RecyclingPlant, error) {
	token, err := f.sessions.Token()
	if err != nil {
		return nil, err
	}
	plants, err := f.api.ListPlants(ctx, token)
	if err != nil {
		return nil, f.fail("list_plants", "error loading plants", err)
	}
	return plants, nil
}

// PlantCapacity returns a plant's available capacity on date; found is false
// when the plant does not exist.
func (f *Fleet) PlantCapacity(ctx context.Context, plantName string, date model.Date) (capacity int, found bool, err error) {
	token, err := f.sessions.Token()
	if err != nil {
		return 0, false, err
	}
	capacity, found, err = f.api.PlantCapacity(ctx, token, plantName, date)
	if err != nil {
		return 0, false, f.fail("plant_capacity", "error loading capacity", err)
	}
	return capacity, found, nil
}

// PlantChoice is a plant offered for assignment with its capacity on a date.
type PlantChoice struct {
	Plant    model.RecyclingPlant `json:"plant"`
	Capacity int                  `json:"capacity"`
	Known    bool                 `json:"known"`
}

const choiceSeparator = " — "

// Label renders the choice as "<name> — <capacity>L", or "<name> — ?" when
// the capacity could not be determined.
func (c PlantChoice) Label() string {
	if !c.Known {
		return c.Plant.Name + choiceSeparator + "?"
	}
	return fmt.Sprintf("%s%s%dL", c.Plant.Name, choiceSeparator, c.Capacity)
}

// PlantNameFromChoice recovers the plant name from a Label.
func PlantNameFromChoice(label string) string {
	name, _, _ := strings.Cut(label, choiceSeparator)
	return strings.TrimSpace(name)
}

// PlantChoices lists the plants with their capacity on date. Capacities are
// fetched concurrently; a failed lookup makes that capacity unknown rather
// than failing the whole list. Only an invalid session aborts.
func (f *Fleet) PlantChoices(ctx context.Context, date model.Date) ([]PlantChoice, error) {
	plants, err := f.Plants(ctx)
	if err != nil {
		return nil, err
	}
	token, err := f.sessions.Token()
	if err != nil {
		return nil, err
	}

	choices := make([]PlantChoice, len(plants))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(capacityLookups)
	for i, p := range plants {
		choices[i].Plant = p
		g.Go(func() error {
			capacity, found, err := f.api.PlantCapacity(gctx, token, p.Name, date)
			if errors.Is(err, client.ErrUnauthorized) {
				return err
			}
			if err != nil {
				f.logger.Debug("capacity lookup failed", zap.String("plant", p.Name), zap.Error(err))
				return nil
			}
			choices[i].Capacity = capacity
			choices[i].Known = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, f.fail("plant_choices", "error loading plants", err)
	}
	return choices, nil
}

// AssignToPlant routes dumpsters to a plant.
func (f *Fleet) AssignToPlant(ctx context.Context, plantName string, ids ...int64) error {
	plantName = strings.TrimSpace(plantName)
	if plantName == "" {
		return invalid("plant", "a plant must be selected")
	}
	if len(ids) == 0 {
		return invalid("dumpsters", "at least one dumpster must be selected")
	}
	token, err := f.sessions.Token()
	if err != nil {
		return err
	}

	err = f.api.AssignDumpsters(ctx, token, plantName, ids)
	f.record("assign_plant", fmt.Sprintf("%s <- %s", plantName, joinIDs(ids)), err)
	if errors.Is(err, client.ErrBadRequest) {
		return &Error{Op: "assign_plant", Msg: "assignment rejected", Err: err}
	}
	if err != nil {
		return f.fail("assign_plant", "error assigning plant", err)
	}
	f.logger.Info("dumpsters assigned", zap.String("plant", plantName), zap.Int64s("ids", ids))
	return nil
}

// History returns recent local activity, newest first.
func (f *Fleet) History(limit int) ([]store.Activity, error) {
	return f.store.RecentActivity(limit)
}

// SortByFill orders dumpsters fullest first, ties by id.
func SortByFill(ds []model.Dumpster) {
	sort.SliceStable(ds, func(i, j int) bool {
		pi, pj := ds[i].FillPercentage(), ds[j].FillPercentage()
		if pi != pj {
			return pi > pj
		}
		return ds[i].IDValue() < ds[j].IDValue()
	})
}

func (f *Fleet) record(action, subject string, err error) {
	recordActivity(f.store, f.logger, action, subject, err)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
