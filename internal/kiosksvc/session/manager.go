package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/railgo/kiosk-services/internal/kiosksvc/fraud"
	"github.com/railgo/kiosk-services/internal/kiosksvc/models"
	log "github.com/sirupsen/logrus"
)

// State is the manager's externally observable position in the tap cycle.
// The ledger-facing steps (lookup, check-active, start, end) run inline
// within one OnCard/OnKey call; only the input-waiting states persist.
type State int

const (
	StateWaitCard State = iota
	StateCollectDestination
	StateCollectClass
	StateConfirm
)

// ResultKind classifies the outcome of one event handed to the manager.
type ResultKind int

const (
	ResultNone ResultKind = iota // event ignored or consumed silently
	ResultPending                // waiting on further keypad input
	ResultAccessDenied
	ResultValidationError
	ResultDeclined
	ResultJourneyStarted
	ResultJourneyEnded
	ResultError
)

type Result struct {
	Kind    ResultKind
	Journey *models.JourneySession
	Err     error
}

// SessionContext is the one in-flight pass. It is owned by the manager,
// built on tap and discarded when the pass resolves; never shared.
type SessionContext struct {
	UID                 models.CardUID
	User                *models.User
	SelectedDestination int
	SelectedClass       int
}

const maxInputDigits = 2

// Keypad keys with special meaning.
const (
	KeyConfirm   = '#'
	KeyBackspace = '*'
	KeyAccept    = '1'
	KeyDecline   = '2'
)

// Manager turns card taps and keypad events into journey starts and ends.
type Manager struct {
	ledger   Ledger
	display  Display
	feedback Feedback
	catalog  Catalog
	events   EventPublisher // optional

	stationID       int
	numDestinations int
	numClasses      int

	state State
	pass  *SessionContext
	input []byte

	now         func() time.Time
	newTicketID func() string
	dwell       func(time.Duration)
}

// resultDwell is how long a result or error message stays up before the
// kiosk returns to the welcome screen.
const resultDwell = 2 * time.Second

func NewManager(ledger Ledger, display Display, feedback Feedback, catalog Catalog,
	stationID, numDestinations, numClasses int) *Manager {
	return &Manager{
		ledger:          ledger,
		display:         display,
		feedback:        feedback,
		catalog:         catalog,
		stationID:       stationID,
		numDestinations: numDestinations,
		numClasses:      numClasses,
		state:           StateWaitCard,
		now:             time.Now,
		newTicketID:     NewTicketID,
		dwell:           time.Sleep,
	}
}

// ShowWelcome puts up the idle prompt. Called once at startup; reset takes
// care of it afterwards.
func (m *Manager) ShowWelcome() {
	m.display.Show("Welcome to RailGo!", "Scan Your Card")
}

// SetEventPublisher attaches an optional lifecycle event sink.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.events = p
}

func (m *Manager) State() State {
	return m.state
}

// OnCard handles a UID acquired by the transceiver. Taps while a selection
// is in progress are ignored; the rider at the keypad keeps the kiosk.
func (m *Manager) OnCard(ctx context.Context, uid models.CardUID) Result {
	if m.state != StateWaitCard {
		return Result{Kind: ResultNone}
	}

	m.feedback.Tap()
	m.display.Show("Verifying card...", "")

	user := m.ledger.FindUserByUID(ctx, uid)
	if user == nil {
		log.Warnf("access denied for card %s", uid.HexPrefix())
		m.feedback.Error()
		m.display.Show("Invalid card!", "Contact support")
		m.reset()
		return Result{Kind: ResultAccessDenied}
	}

	log.Infof("card verified for user %s", user.Name)
	m.display.Show("Welcome,", user.Name)

	active, err := m.ledger.FindActiveSession(ctx, uid)
	if err != nil {
		// Fail open: an unreadable journeys collection must not strand
		// riders at the gate, so we treat it as "no active journey".
		log.Warnf("active journey lookup failed, assuming none: %v", err)
		active = nil
	}

	if active != nil {
		return m.endJourney(ctx, active)
	}

	m.pass = &SessionContext{
		UID:  append(models.CardUID(nil), uid...),
		User: user,
	}
	m.input = m.input[:0]
	m.state = StateCollectDestination
	m.display.Show(m.destinationPrompt(), "")
	return Result{Kind: ResultPending}
}

// OnKey handles one keypad event: digits, backspace, confirm.
func (m *Manager) OnKey(ctx context.Context, key byte) Result {
	switch m.state {
	case StateCollectDestination:
		return m.collectDigits(key, m.numDestinations, m.destinationPrompt(), m.acceptDestination)
	case StateCollectClass:
		return m.collectDigits(key, m.numClasses, m.classPrompt(), m.acceptClass)
	case StateConfirm:
		return m.confirm(ctx, key)
	default:
		return Result{Kind: ResultNone}
	}
}

func (m *Manager) destinationPrompt() string {
	return fmt.Sprintf("Select dest (1-%d)", m.numDestinations)
}

func (m *Manager) classPrompt() string {
	return fmt.Sprintf("Select Class(1-%d):", m.numClasses)
}

// collectDigits runs one COLLECT_* sub-state step. The manager validates
// range only; debouncing and key repetition belong to the keypad collaborator.
func (m *Manager) collectDigits(key byte, limit int, prompt string, accept func(int) Result) Result {
	switch {
	case key >= '0' && key <= '9':
		if len(m.input) < maxInputDigits {
			m.input = append(m.input, key)
			m.display.Show(prompt, string(m.input))
		}
		return Result{Kind: ResultPending}

	case key == KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
			m.display.Show(prompt, string(m.input))
		}
		return Result{Kind: ResultPending}

	case key == KeyConfirm:
		if len(m.input) == 0 {
			return Result{Kind: ResultPending}
		}
		value, err := strconv.Atoi(string(m.input))
		m.input = m.input[:0]
		if err != nil || value < 1 || value > limit {
			m.feedback.Error()
			m.display.Show("Invalid number!", "")
			m.display.Show(prompt, "")
			return Result{Kind: ResultValidationError}
		}
		return accept(value)

	default:
		return Result{Kind: ResultNone}
	}
}

func (m *Manager) acceptDestination(value int) Result {
	m.pass.SelectedDestination = value
	m.display.Show("Destination:", m.catalog.DestinationName(value))
	m.state = StateCollectClass
	m.display.Show(m.classPrompt(), "")
	return Result{Kind: ResultPending}
}

func (m *Manager) acceptClass(value int) Result {
	m.pass.SelectedClass = value
	m.display.Show("Selected class:", m.catalog.ClassName(value))
	m.state = StateConfirm
	m.display.Show("Confirm? 1:Y 2:N", "")
	return Result{Kind: ResultPending}
}

func (m *Manager) confirm(ctx context.Context, key byte) Result {
	switch key {
	case KeyAccept:
		return m.startJourney(ctx)
	case KeyDecline:
		m.display.Show("Cancelled", "")
		m.reset()
		return Result{Kind: ResultDeclined}
	default:
		return Result{Kind: ResultNone}
	}
}

func (m *Manager) startJourney(ctx context.Context) Result {
	m.display.Show("Starting journey", "Please wait...")

	journey := &models.JourneySession{
		TicketID:            m.newTicketID(),
		UID:                 m.pass.UID,
		OriginStation:       m.stationID,
		SelectedClass:       m.pass.SelectedClass,
		SelectedDestination: m.pass.SelectedDestination,
		StartTime:           m.now(),
		State:               models.JourneyActive,
	}

	if err := m.ledger.PutSession(ctx, journey); err != nil {
		log.Errorf("failed to record journey start: %v", err)
		m.feedback.Error()
		m.display.Show("Error saving", "journey data")
		m.reset()
		return Result{Kind: ResultError, Err: err}
	}

	log.Infof("journey started, ticket %s origin %d dest %d class %d",
		journey.TicketID, journey.OriginStation, journey.SelectedDestination, journey.SelectedClass)
	m.feedback.Success()
	m.display.Show("Journey started!", "ID: "+journey.TicketID)
	if m.events != nil {
		m.events.JourneyStarted(journey)
	}
	m.reset()
	return Result{Kind: ResultJourneyStarted, Journey: journey}
}

// endJourney closes the previously fetched active session. All closing
// fields are computed on a copy first; a failed ledger write leaves nothing
// half-closed on the device side.
func (m *Manager) endJourney(ctx context.Context, active *models.JourneySession) Result {
	m.display.Show("Ending journey", "Please wait...")

	closed := *active
	closed.ActualDestination = m.stationID
	closed.EndTime = m.now()
	closed.Duration = closed.EndTime.Sub(closed.StartTime)
	closed.FraudSuspected = fraud.Evaluate(closed.SelectedDestination, closed.ActualDestination)
	closed.State = models.JourneyInactive

	if err := m.ledger.PutSession(ctx, &closed); err != nil {
		log.Errorf("failed to record journey end for ticket %s: %v", closed.TicketID, err)
		m.feedback.Error()
		m.display.Show("Error ending", "journey")
		m.reset()
		return Result{Kind: ResultError, Err: err}
	}

	if closed.FraudSuspected {
		log.Warnf("fraud suspected on ticket %s: selected %d, actual %d",
			closed.TicketID, closed.SelectedDestination, closed.ActualDestination)
		m.feedback.Error()
		m.display.Show("Journey ended!", "Dest mismatch!")
	} else {
		m.feedback.Success()
		m.display.Show("Journey ended!", "Thank you!")
	}
	if m.events != nil {
		m.events.JourneyEnded(&closed)
	}
	m.reset()
	return Result{Kind: ResultJourneyEnded, Journey: &closed}
}

// reset holds the last message for the dwell period, then returns the
// machine to WAIT_CARD and drops the pass context. No error is fatal; the
// control loop always resumes from the welcome screen.
func (m *Manager) reset() {
	m.dwell(resultDwell)
	m.state = StateWaitCard
	m.pass = nil
	m.input = m.input[:0]
	m.ShowWelcome()
}
