package controller

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"binops/internal/client"
	"binops/internal/client/clienttest"
	"binops/internal/model"
	"binops/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	srv      *clienttest.Server
	store    *store.Store
	sessions *Sessions
	auth     *Auth
	fleet    *Fleet
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := clienttest.NewServer()
	t.Cleanup(srv.Close)

	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	c, err := client.New(srv.URL, client.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	sessions := NewSessions(st, c.BaseURL(), time.Hour)
	logger := zap.NewNop()
	return &harness{
		srv:      srv,
		store:    st,
		sessions: sessions,
		auth:     NewAuth(c, sessions, st, logger),
		fleet:    NewFleet(c, sessions, st, logger),
	}
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.srv.AddUser("ana@example.com", "pw")
	_, err := h.auth.Login(context.Background(), "ana@example.com", "pw")
	require.NoError(t, err)
}

func TestAuth_LoginValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name, email, password, field string
	}{
		{"empty email", "   ", "pw", "email"},
		{"empty password", "ana@example.com", "", "password"},
		{"malformed email", "ana@example", "pw", "email"},
		{"no at sign", "ana.example.com", "pw", "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Login(ctx, tt.email, tt.password)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
	assert.Empty(t, h.srv.Requests(), "invalid input never reaches the backend")
}

func TestAuth_LoginStoresTrimmedSession(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("ana@example.com", "pw")

	sess, err := h.auth.Login(context.Background(), "  ana@example.com ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", sess.Email)
	assert.True(t, h.auth.HasActiveSession())
	assert.Equal(t, "ana@example.com", h.auth.CurrentEmail())

	stored, err := h.store.LoadSession()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, sess.Token, stored.Token)

	acts, err := h.store.RecentActivity(1)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, "login", acts[0].Action)
	assert.Equal(t, store.OutcomeOK, acts[0].Outcome)
}

func TestAuth_LoginFailures(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("ana@example.com", "pw")
	ctx := context.Background()

	_, err := h.auth.Login(ctx, "ana@example.com", "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.False(t, h.auth.HasActiveSession())

	h.srv.Fail(http.MethodPost, "/auth/login", http.StatusBadGateway)
	_, err = h.auth.Login(ctx, "ana@example.com", "pw")
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "server error", ce.Msg)
	assert.True(t, client.IsStatus(err, http.StatusBadGateway))
	assert.False(t, h.auth.HasActiveSession())
}

func TestAuth_LoginUnreachable(t *testing.T) {
	h := newHarness(t)
	h.srv.AddUser("ana@example.com", "pw")
	h.srv.Close()

	_, err := h.auth.Login(context.Background(), "ana@example.com", "pw")
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "connection error", ce.Msg)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuth_Logout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.auth.Logout(ctx), ErrNoSession)

	h.login(t)
	require.NoError(t, h.auth.Logout(ctx))
	assert.False(t, h.auth.HasActiveSession())
	assert.Equal(t, "", h.auth.CurrentEmail())
}

func TestAuth_LogoutRefusedKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.Fail(http.MethodDelete, "/auth/logout", http.StatusInternalServerError)

	err := h.auth.Logout(context.Background())
	require.Error(t, err)
	assert.True(t, h.auth.HasActiveSession())
}

func TestAuth_LogoutUnauthorizedKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.Fail(http.MethodDelete, "/auth/logout", http.StatusUnauthorized)

	err := h.auth.Logout(context.Background())
	var ce *Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "server could not close the session", ce.Msg)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.True(t, h.auth.HasActiveSession())
}

func TestAuth_LogoutUnreachableClearsSession(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.Close()

	err := h.auth.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, h.auth.HasActiveSession())
}

func TestSessions_Expiry(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	later := time.Now().Add(2 * time.Hour)
	fresh := NewSessions(h.store, h.sessions.baseURL, time.Hour)
	fresh.now = func() time.Time { return later }

	sess, err := fresh.Current()
	require.NoError(t, err)
	assert.Nil(t, sess)

	_, err = fresh.Token()
	assert.ErrorIs(t, err, ErrNoSession)

	forever := NewSessions(h.store, h.sessions.baseURL, 0)
	forever.now = func() time.Time { return later }
	sess, err = forever.Current()
	require.NoError(t, err)
	assert.NotNil(t, sess)
}

func TestSessions_OtherBackendIgnored(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	other := NewSessions(h.store, "http://elsewhere:8899", 0)
	sess, err := other.Current()
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestFleet_RequiresSession(t *testing.T) {
	h := newHarness(t)
	_, err := h.fleet.Dumpsters(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFleet_RejectedTokenIsSessionInvalid(t *testing.T) {
	h := newHarness(t)
	_, err := h.sessions.Set("stale", "ana@example.com")
	require.NoError(t, err)

	_, err = h.fleet.Dumpsters(context.Background())
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestFleet_DumpstersRefreshCache(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.AddDumpster(model.Dumpster{Location: "A", PostalCode: 28001, Capacity: 100, CurrentFill: 10})

	ds, err := h.fleet.Dumpsters(context.Background())
	require.NoError(t, err)
	require.Len(t, ds, 1)

	cached, at, err := h.fleet.CachedDumpsters()
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "A", cached[0].Location)
	assert.False(t, at.IsZero())

	d, err := h.fleet.Dumpster(context.Background(), ds[0].IDValue())
	require.NoError(t, err)
	assert.Equal(t, "A", d.Location)

	_, err = h.fleet.Dumpster(context.Background(), 4242)
	assert.ErrorIs(t, err, client.ErrNotFound)
}

func TestValidateNewDumpster(t *testing.T) {
	tests := []struct {
		name                   string
		location               string
		postal, capacity, fill int
		wantField              string
	}{
		{"ok", "Calle 1", 28001, 100, 50, ""},
		{"ok full", "Calle 1", 1000, 100, 100, ""},
		{"ok max postal", "Calle 1", 99999, 1, 0, ""},
		{"blank location", "  ", 28001, 100, 0, "location"},
		{"postal low", "Calle 1", 999, 100, 0, "postal_code"},
		{"postal high", "Calle 1", 100000, 100, 0, "postal_code"},
		{"zero capacity", "Calle 1", 28001, 0, 0, "capacity"},
		{"negative fill", "Calle 1", 28001, 100, -1, "current_fill"},
		{"overfull", "Calle 1", 28001, 100, 101, "current_fill"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNewDumpster(tt.location, tt.postal, tt.capacity, tt.fill)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestFleet_CreateDumpster(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	created, err := h.fleet.CreateDumpster(context.Background(), " Calle Luna 4 ", 28004, 1000, 850)
	require.NoError(t, err)
	require.NotNil(t, created.ID)
	assert.Equal(t, "Calle Luna 4", created.Location)
	assert.Equal(t, model.FillRed, created.FillLevel)

	_, err = h.fleet.CreateDumpster(context.Background(), "x", 5, 10, 0)
	assert.True(t, IsValidation(err))
}

func TestFleet_UpdateFill(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	id := h.srv.AddDumpster(model.Dumpster{Location: "A", PostalCode: 28001, Capacity: 100})
	ctx := context.Background()

	ok, err := h.fleet.UpdateFill(ctx, id, 60)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.fleet.UpdateFill(ctx, 999, 60)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = h.fleet.UpdateFill(ctx, id, -5)
	assert.True(t, IsValidation(err))

	acts, err := h.fleet.History(10)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(acts), 2)
	assert.Equal(t, "update_fill", acts[0].Action)
}

func TestFleet_Usage(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	id := h.srv.AddDumpster(model.Dumpster{Location: "A", PostalCode: 28001, Capacity: 100})
	h.srv.AddUsage(model.UsageRecord{DumpsterID: id, Date: model.MustParseDate("2024-02-10"), EstimatedNumCont: 5, FillLevel: model.FillGreen})
	ctx := context.Background()

	_, err := h.fleet.Usage(ctx, id, model.MustParseDate("2024-03-01"), model.MustParseDate("2024-02-01"))
	assert.True(t, IsValidation(err))

	recs, err := h.fleet.Usage(ctx, id, model.MustParseDate("2024-02-10"), model.MustParseDate("2024-02-10"))
	require.NoError(t, err)
	require.Len(t, recs, 1)
}

func TestFleet_SearchByPostalCode(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.AddDumpster(model.Dumpster{Location: "A", PostalCode: 28001, Capacity: 100})

	ds, err := h.fleet.SearchByPostalCode(context.Background(), 28001, model.MustParseDate("2024-02-10"))
	require.NoError(t, err)
	assert.Len(t, ds, 1)

	ds, err = h.fleet.SearchByPostalCode(context.Background(), 11111, model.MustParseDate("2024-02-10"))
	require.NoError(t, err)
	assert.Empty(t, ds)
}

func TestFleet_PlantChoices(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.AddPlant(model.RecyclingPlant{Name: "Alpha"}, 300)
	h.srv.AddPlant(model.RecyclingPlant{Name: "Beta"}, 50)
	h.srv.AddPlant(model.RecyclingPlant{Name: "Gamma"}, 10)
	h.srv.Fail(http.MethodGet, "/recyclingPlants/Gamma/", http.StatusInternalServerError)

	choices, err := h.fleet.PlantChoices(context.Background(), model.Today())
	require.NoError(t, err)
	require.Len(t, choices, 3)

	labels := make([]string, len(choices))
	for i, c := range choices {
		labels[i] = c.Label()
	}
	assert.Equal(t, []string{"Alpha — 300L", "Beta — 50L", "Gamma — ?"}, labels)
	assert.Equal(t, "Beta", PlantNameFromChoice(labels[1]))
	assert.Equal(t, "Gamma", PlantNameFromChoice("Gamma — ?"))
	assert.Equal(t, "Plain", PlantNameFromChoice("Plain"))
}

func TestFleet_PlantCapacity(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.AddPlant(model.RecyclingPlant{Name: "Alpha"}, 300)

	capacity, found, err := h.fleet.PlantCapacity(context.Background(), "Alpha", model.Today())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 300, capacity)

	_, found, err = h.fleet.PlantCapacity(context.Background(), "Nope", model.Today())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFleet_AssignToPlant(t *testing.T) {
	h := newHarness(t)
	h.login(t)
	h.srv.AddPlant(model.RecyclingPlant{Name: "Alpha"}, 300)
	id := h.srv.AddDumpster(model.Dumpster{Location: "A", PostalCode: 28001, Capacity: 100})
	ctx := context.Background()

	assert.True(t, IsValidation(h.fleet.AssignToPlant(ctx, " ", id)))
	assert.True(t, IsValidation(h.fleet.AssignToPlant(ctx, "Alpha")))

	require.NoError(t, h.fleet.AssignToPlant(ctx, "Alpha", id))
	d, _ := h.srv.Dumpster(id)
	assert.Equal(t, "Alpha", d.PlantName())

	err := h.fleet.AssignToPlant(ctx, "Alpha", 777)
	assert.ErrorIs(t, err, client.ErrBadRequest)
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "assignment rejected", ce.Msg)
}

func TestSortByFill(t *testing.T) {
	id := func(v int64) *int64 { return &v }
	ds := []model.Dumpster{
		{ID: id(1), Capacity: 100, CurrentFill: 10},
		{ID: id(3), Capacity: 100, CurrentFill: 90},
		{ID: id(2), Capacity: 100, CurrentFill: 90},
	}
	SortByFill(ds)
	assert.Equal(t, []int64{2, 3, 1}, []int64{ds[0].IDValue(), ds[1].IDValue(), ds[2].IDValue()})
}
