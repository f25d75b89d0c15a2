package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/railgo/kiosk-services/internal/kiosksvc/ledger"
	kioskmodels "github.com/railgo/kiosk-services/internal/kiosksvc/models"
	"github.com/railgo/kiosk-services/internal/ledgersvc/models"
	"github.com/railgo/kiosk-services/internal/ledgersvc/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	t.Setenv("LEDGER_AUTH_TOKEN", "secret")
	t.Setenv("JWT_SECRET_KEY", "test-signing-key")

	s := store.NewMemoryStore()
	h := NewHandler(s)
	h.InitAuth()

	r := chi.NewRouter()
	h.SetRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, s
}

func adminToken(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	// The handler under test owns the signing key; mint a token the same way
	// the dashboard would.
	h := NewHandler(store.NewMemoryStore())
	h.InitAuth()
	_, token, err := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return token
}

func TestDeviceRoutesRequireQueryToken(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/journeys.json")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = http.Get(srv.URL + "/journeys.json?auth=wrong")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, err = http.Get(srv.URL + "/journeys.json?auth=secret")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestEmptyCollectionsReadAsNull(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/rfidApplications.json", "/journeys.json", "/journeys/missing.json"} {
		res, err := http.Get(srv.URL + path + "?auth=secret")
		require.NoError(t, err)
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()
		assert.Equal(t, "null", strings.TrimSpace(string(body)), "path %s", path)
	}
}

func TestPutAndReadJourney(t *testing.T) {
	srv, _ := newTestServer(t)

	journey := models.Journey{
		TicketID:                   "TKT001",
		RfidUid:                    "04A1B2C3",
		StartTimestamp:             "2026-08-30T09:15:00Z",
		OriginStation:              1,
		SelectedClass:              2,
		SelectedDestinationStation: 5,
		CurrentState:               1,
	}
	payload, _ := json.Marshal(journey)

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/journeys/TKT001.json?auth=secret", bytes.NewReader(payload))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/journeys/TKT001.json?auth=secret")
	require.NoError(t, err)
	var got models.Journey
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	res.Body.Close()
	assert.Equal(t, journey, got)

	res, err = http.Get(srv.URL + "/journeys.json?auth=secret")
	require.NoError(t, err)
	var all map[string]models.Journey
	require.NoError(t, json.NewDecoder(res.Body).Decode(&all))
	res.Body.Close()
	require.Len(t, all, 1)
	assert.Equal(t, journey, all["TKT001"])
}

func TestPutJourneyTicketMismatch(t *testing.T) {
	srv, _ := newTestServer(t)

	payload, _ := json.Marshal(models.Journey{TicketID: "OTHER", CurrentState: 1})
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/journeys/TKT001.json?auth=secret", bytes.NewReader(payload))

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestAdminRoutesRequireJWT(t *testing.T) {
	srv, _ := newTestServer(t)

	res, err := http.Get(srv.URL + "/v1/applications")
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestAdminApplicationFlow(t *testing.T) {
	srv, s := newTestServer(t)
	token := adminToken(t, srv)

	do := func(method, path string, body string) *http.Response {
		req, _ := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return res
	}

	res := do(http.MethodPost, "/v1/applications", `{"name": "Asha"}`)
	var created Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&created))
	res.Body.Close()
	require.Equal(t, 200, created.Code)
	id := created.Data.(map[string]interface{})["id"].(string)

	res = do(http.MethodPut, "/v1/applications/"+id+"/approve", `{"rfidUid": "04A1B2C3"}`)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	apps, err := s.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, apps[id].Status)
	assert.Equal(t, "04A1B2C3", apps[id].RfidUid)

	res = do(http.MethodPut, "/v1/applications/missing/approve", `{"rfidUid": "04A1B2C3"}`)
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}

// TestKioskClientRoundTrip drives the device endpoints through the kiosk's
// own ledger client, pinning both sides of the wire contract at once.
func TestKioskClientRoundTrip(t *testing.T) {
	srv, s := newTestServer(t)
	ctx := context.Background()

	_, err := s.CreateApplication(ctx, models.Application{
		Name: "Asha", RfidUid: "04A1B2C3D4", Status: models.StatusApproved,
	})
	require.NoError(t, err)

	c := ledger.NewClient(srv.URL, "secret")
	uid := kioskmodels.CardUID{0x04, 0xA1, 0xB2, 0xC3}

	user := c.FindUserByUID(ctx, uid)
	require.NotNil(t, user)
	assert.Equal(t, "Asha", user.Name)

	active, err := c.FindActiveSession(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, active)

	start := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	require.NoError(t, c.PutSession(ctx, &kioskmodels.JourneySession{
		TicketID:            "TKT00000000TEST",
		UID:                 uid,
		OriginStation:       1,
		SelectedClass:       2,
		SelectedDestination: 5,
		StartTime:           start,
		State:               kioskmodels.JourneyActive,
	}))

	active, err = c.FindActiveSession(ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "TKT00000000TEST", active.TicketID)
	assert.Equal(t, 5, active.SelectedDestination)
	assert.Equal(t, start, active.StartTime)

	closed := *active
	closed.ActualDestination = 5
	closed.EndTime = start.Add(40 * time.Minute)
	closed.Duration = 40 * time.Minute
	closed.State = kioskmodels.JourneyInactive
	require.NoError(t, c.PutSession(ctx, &closed))

	active, err = c.FindActiveSession(ctx, uid)
	require.NoError(t, err)
	assert.Nil(t, active, "closed journeys no longer read as active")
}
