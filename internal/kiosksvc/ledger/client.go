package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
	log "github.com/sirupsen/logrus"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryDelay   = 1 * time.Second
	defaultBodyCapacity = 8 * 1024
)

// Client is the kiosk's data-access layer for the remote ledger. It knows
// the REST/JSON contract and nothing about journey semantics.
type Client struct {
	baseURL     string
	authToken   string
	httpc       *http.Client
	maxAttempts int
	retryDelay  time.Duration
	bodyCap     int
}

func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		authToken:   authToken,
		httpc:       &http.Client{Timeout: 10 * time.Second},
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		bodyCap:     defaultBodyCapacity,
	}
}

// response carries a body that may have been clipped at the buffer capacity.
type response struct {
	body      []byte
	truncated bool
}

// sendWithRetry issues one request up to maxAttempts times with a fixed
// inter-attempt delay. Transport failures and non-2xx statuses are retried;
// ErrInvalidArgument never is.
func (c *Client) sendWithRetry(ctx context.Context, method, path string, payload []byte) (*response, error) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return nil, ErrInvalidArgument
	}

	url := c.baseURL + path + ".json"
	if c.authToken != "" {
		url += "?auth=" + c.authToken
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ErrTransport
			}
		}

		rsp, err := c.doOnce(ctx, method, url, payload)
		if err == nil {
			return rsp, nil
		}
		lastErr = err
		log.Warnf("ledger request %s %s attempt %d/%d failed: %v", method, path, attempt, c.maxAttempts, err)
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, url string, payload []byte) (*response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, ErrInvalidArgument
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, ErrTransport
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, res.Body)
		return nil, &StatusError{Code: res.StatusCode}
	}

	return c.readBody(res.Body)
}

// readBody accumulates the response into a fixed-capacity buffer. Anything
// past capacity is discarded and the truncation flag raised.
func (c *Client) readBody(r io.Reader) (*response, error) {
	buf := make([]byte, c.bodyCap+1)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, ErrTransport
	}

	rsp := &response{}
	if n > c.bodyCap {
		rsp.body = buf[:c.bodyCap]
		rsp.truncated = true
		io.Copy(io.Discard, r)
		log.Warnf("ledger response exceeded %d byte buffer, truncated", c.bodyCap)
	} else {
		rsp.body = buf[:n]
	}
	return rsp, nil
}

// decode unmarshals a response body, mapping failures on a clipped body to
// ErrTruncated. An empty or literal-null body decodes to "no data".
func (c *Client) decode(rsp *response, v interface{}) error {
	body := bytes.TrimSpace(rsp.body)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		if rsp.truncated {
			return ErrTruncated
		}
		return ErrParse
	}
	return nil
}

// FindUserByUID scans the card applications collection for an approved
// record containing the UID's hex prefix. The substring match is deliberate:
// issued cards were registered from readers that encode UIDs differently, so
// tightening this to an exact comparison locks riders out. Every failure
// path returns no user; access control fails closed.
func (c *Client) FindUserByUID(ctx context.Context, uid models.CardUID) *models.User {
	rsp, err := c.sendWithRetry(ctx, http.MethodGet, "/rfidApplications", nil)
	if err != nil {
		log.Errorf("ledger user lookup failed: %v", err)
		return nil
	}

	var apps map[string]applicationRecord
	if err := c.decode(rsp, &apps); err != nil {
		log.Errorf("ledger user lookup decode failed: %v", err)
		return nil
	}

	prefix := uid.HexPrefix()
	for id, app := range apps {
		if !strings.Contains(app.RfidUid, prefix) {
			continue
		}
		if app.Status != "" && app.Status != "approved" {
			continue
		}
		return &models.User{
			UserId: id,
			Name:   app.Name,
			UID:    append(models.CardUID(nil), uid...),
		}
	}
	return nil
}

// FindActiveSession returns the active journey recorded for the UID, or nil.
// Unlike the user lookup this compares the full stored UID exactly, since
// journey records are only ever written by kiosks using the same encoding.
func (c *Client) FindActiveSession(ctx context.Context, uid models.CardUID) (*models.JourneySession, error) {
	rsp, err := c.sendWithRetry(ctx, http.MethodGet, "/journeys", nil)
	if err != nil {
		return nil, err
	}

	var journeys map[string]journeyRecord
	if err := c.decode(rsp, &journeys); err != nil {
		return nil, err
	}

	hex := uid.Hex()
	for _, rec := range journeys {
		if rec.RfidUid == hex && rec.CurrentState == int(models.JourneyActive) {
			return fromJourneyRecord(rec, uid), nil
		}
	}
	return nil, nil
}

// PutSession upserts the full journey record keyed by ticket id. The write
// is idempotent; retrying a PUT cannot double-record a journey.
func (c *Client) PutSession(ctx context.Context, session *models.JourneySession) error {
	if session == nil || session.TicketID == "" {
		return ErrInvalidArgument
	}

	payload, err := json.Marshal(toJourneyRecord(session))
	if err != nil {
		return ErrInvalidArgument
	}

	_, err = c.sendWithRetry(ctx, http.MethodPut, "/journeys/"+session.TicketID, payload)
	return err
}
