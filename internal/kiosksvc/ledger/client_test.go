package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUID = models.CardUID{0x04, 0xA1, 0xB2, 0xC3}

func newTestClient(baseURL string) *Client {
	c := NewClient(baseURL, "secret")
	c.retryDelay = 0
	return c
}

func TestFindUserByUIDPrefixMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rfidApplications.json", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("auth"))
		io.WriteString(w, `{
			"-app1": {"name": "Asha", "rfidUid": "04A1B2C3D4", "status": "approved"},
			"-app2": {"name": "Nuwan", "rfidUid": "11223344", "status": "approved"}
		}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	// The registered UID carries extra trailing bytes; the prefix still hits.
	user := c.FindUserByUID(context.Background(), testUID)
	require.NotNil(t, user)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, "-app1", user.UserId)
	assert.Equal(t, testUID, user.UID)
}

func TestFindUserByUIDFailsClosed(t *testing.T) {
	t.Run("unknown uid", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"-app1": {"name": "Asha", "rfidUid": "11223344", "status": "approved"}}`)
		}))
		defer srv.Close()
		assert.Nil(t, newTestClient(srv.URL).FindUserByUID(context.Background(), testUID))
	})

	t.Run("pending application", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"-app1": {"name": "Asha", "rfidUid": "04A1B2C3", "status": "pending"}}`)
		}))
		defer srv.Close()
		assert.Nil(t, newTestClient(srv.URL).FindUserByUID(context.Background(), testUID))
	})

	t.Run("ledger unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()
		assert.Nil(t, newTestClient(srv.URL).FindUserByUID(context.Background(), testUID))
	})

	t.Run("garbled body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"-app1": not json`)
		}))
		defer srv.Close()
		assert.Nil(t, newTestClient(srv.URL).FindUserByUID(context.Background(), testUID))
	})
}

func TestFindUserByUIDBlankStatusAccepted(t *testing.T) {
	// Records written before the approval workflow existed carry no status.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"-app1": {"name": "Asha", "rfidUid": "04A1B2C3"}}`)
	}))
	defer srv.Close()

	user := newTestClient(srv.URL).FindUserByUID(context.Background(), testUID)
	require.NotNil(t, user)
	assert.Equal(t, "Asha", user.Name)
}

func TestFindActiveSessionExactMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/journeys.json", r.URL.Path)
		io.WriteString(w, `{
			"TKT001": {"ticketID": "TKT001", "rfidUid": "04A1B2C3", "startTimestamp": "2026-08-30T09:15:00Z",
				"originStation": 1, "selectedClass": 2, "selectedDestinationStation": 5, "currentState": 1},
			"TKT002": {"ticketID": "TKT002", "rfidUid": "04A1B2C3", "startTimestamp": "2026-08-29T09:00:00Z",
				"originStation": 1, "selectedClass": 1, "selectedDestinationStation": 3, "currentState": 0}
		}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	s, err := c.FindActiveSession(context.Background(), testUID)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "TKT001", s.TicketID)
	assert.Equal(t, models.JourneyActive, s.State)
	assert.Equal(t, 5, s.SelectedDestination)
	assert.Equal(t, time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC), s.StartTime)

	// A longer stored UID is a different card for journey purposes.
	s, err = c.FindActiveSession(context.Background(), models.CardUID{0x04, 0xA1, 0xB2, 0xC3, 0xD4})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestFindActiveSessionNoData(t *testing.T) {
	for _, body := range []string{"", "null"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, body)
		}))
		s, err := newTestClient(srv.URL).FindActiveSession(context.Background(), testUID)
		assert.NoError(t, err)
		assert.Nil(t, s)
		srv.Close()
	}
}

func TestRetriesOnServerError(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FindActiveSession(context.Background(), testUID)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, 3, attempts)
}

func TestRetriesThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "null")
	}))
	defer srv.Close()

	s, err := newTestClient(srv.URL).FindActiveSession(context.Background(), testUID)
	assert.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, 3, attempts)
}

func TestTransportErrorAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := newTestClient(srv.URL).FindActiveSession(context.Background(), testUID)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestTruncatedVersusParse(t *testing.T) {
	t.Run("oversized body is reported as truncated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"TKT001": {"ticketID": "TKT001", "rfidUid": "04A1B2C3", "startTimestamp": "2026-08-30T09:15:00Z", "originStation": 1, "selectedClass": 2, "selectedDestinationStation": 5, "currentState": 1}}`)
		}))
		defer srv.Close()

		c := newTestClient(srv.URL)
		c.bodyCap = 32

		_, err := c.FindActiveSession(context.Background(), testUID)
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("malformed body within capacity is a parse error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"TKT001": broken`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv.URL).FindActiveSession(context.Background(), testUID)
		assert.ErrorIs(t, err, ErrParse)
	})
}

func TestPutSessionWirePayload(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	start := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	session := &models.JourneySession{
		TicketID:            "TKT00000000ABCD",
		UID:                 testUID,
		OriginStation:       1,
		SelectedClass:       2,
		SelectedDestination: 5,
		StartTime:           start,
		State:               models.JourneyActive,
	}

	require.NoError(t, newTestClient(srv.URL).PutSession(context.Background(), session))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/journeys/TKT00000000ABCD.json", gotPath)

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &rec))
	assert.Equal(t, "TKT00000000ABCD", rec["ticketID"])
	assert.Equal(t, "04A1B2C3", rec["rfidUid"])
	assert.Equal(t, "2026-08-30T09:15:00Z", rec["startTimestamp"])
	assert.Equal(t, float64(1), rec["originStation"])
	assert.Equal(t, float64(2), rec["selectedClass"])
	assert.Equal(t, float64(5), rec["selectedDestinationStation"])
	assert.Equal(t, float64(1), rec["currentState"])
	// An open journey has no closing fields on the wire.
	assert.NotContains(t, rec, "endTimestamp")
	assert.NotContains(t, rec, "isFraudSuspected")
}

func TestPutSessionClosedJourney(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	start := time.Date(2026, 8, 30, 9, 15, 0, 0, time.UTC)
	end := start.Add(42 * time.Minute)
	session := &models.JourneySession{
		TicketID:            "TKT00000000ABCD",
		UID:                 testUID,
		OriginStation:       1,
		SelectedClass:       2,
		SelectedDestination: 5,
		ActualDestination:   7,
		StartTime:           start,
		EndTime:             end,
		Duration:            end.Sub(start),
		State:               models.JourneyInactive,
		FraudSuspected:      true,
	}

	require.NoError(t, newTestClient(srv.URL).PutSession(context.Background(), session))

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(gotBody, &rec))
	assert.Equal(t, "2026-08-30T09:57:00Z", rec["endTimestamp"])
	assert.Equal(t, float64(7), rec["actualDestinationStation"])
	assert.Equal(t, float64(42*60), rec["travelDuration"])
	assert.Equal(t, true, rec["isFraudSuspected"])
	assert.Equal(t, float64(0), rec["currentState"])
}

func TestPutSessionInvalidArgumentNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	err := c.PutSession(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = c.PutSession(context.Background(), &models.JourneySession{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	assert.Equal(t, 0, calls)
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.retryDelay = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.FindActiveSession(ctx, testUID)
	require.Error(t, err)
	assert.LessOrEqual(t, attempts, 1)
}

func TestAuthTokenOmittedWhenEmpty(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		io.WriteString(w, "null")
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "")
	c.retryDelay = 0

	_, err := c.FindActiveSession(context.Background(), testUID)
	require.NoError(t, err)
	assert.Equal(t, "", gotQuery)
	assert.False(t, strings.Contains(gotQuery, "auth"))
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{Code: 503}
	assert.True(t, strings.Contains(err.Error(), "503"))
	assert.False(t, errors.Is(err, ErrTransport))
}
