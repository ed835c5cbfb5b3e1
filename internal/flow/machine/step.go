package machine

import (
	"errors"
	"fmt"

	"ticketflow/internal/flow/models"
	"ticketflow/internal/verification"
	"ticketflow/pkg/platform/sentinel"
)

// User-facing OTP messages used when the service gives none.
const (
	MessageSendRejected  = "Failed to send OTP"
	MessageSendFailed    = "Error sending OTP. Please try again."
	MessageVerifyInvalid = "Invalid or expired OTP"
	MessageVerifyFailed  = "Error verifying OTP. Please try again."
)

// ErrOutcomeRequired is returned when a remote action is stepped without the
// outcome of its call.
var ErrOutcomeRequired = errors.New("remote action requires an outcome")

// OTPMutation updates one journey's OTP state.
type OTPMutation struct {
	Flow            models.FlowKind
	Error           string
	ReleaseCooldown bool
}

// Mutation is what the owner must apply to its store and timers.
type Mutation struct {
	Patch     models.FormPatch
	ResetForm bool
	OTP       *OTPMutation
	// Reconcile marks a write whose failure was swallowed to keep the user
	// moving; the owner records it for later correction.
	Reconcile bool
	// IssuePass asks the owner to assign a pass id to the active journey.
	IssuePass bool
}

// Decision is the result of a Step. Event is empty when the screen stays.
type Decision struct {
	Next     models.Screen
	Event    Event
	Mutation Mutation
}

// Step maps an action taken on screen, plus the outcome of its remote call
// when it has one, to the next screen and the mutation to apply.
//
// OTP send and verify failures keep the screen and surface an error. The
// three write operations always move forward.
func Step(screen models.Screen, action models.Action, outcome *verification.Outcome) (Decision, error) {
	if action.Remote() && outcome == nil {
		return Decision{}, fmt.Errorf("%s: %w", action, ErrOutcomeRequired)
	}

	switch action {
	case models.ActionStartTicket:
		return advance(screen, EventStartTicket, Mutation{})
	case models.ActionStartGuest:
		return advance(screen, EventStartGuest, Mutation{})
	case models.ActionClaimPaid:
		return advance(screen, EventPaidClaimed, Mutation{})
	case models.ActionReset:
		return advance(screen, EventReset, Mutation{ResetForm: true})
	case models.ActionNavigateHome:
		if screen.Terminal() {
			return advance(screen, EventReset, Mutation{ResetForm: true})
		}
		return advance(screen, EventNavigateHome, Mutation{})

	case models.ActionSendCode:
		return stepSendCode(screen, *outcome)
	case models.ActionVerifyCode:
		return stepVerifyCode(screen, *outcome)
	case models.ActionSubmitProfile:
		return stepSubmitProfile(screen, *outcome)
	case models.ActionConfirmPayment:
		return stepConfirmPayment(screen, *outcome)
	}
	return Decision{}, fmt.Errorf("unknown action %q: %w", action, sentinel.ErrInvalidState)
}

func advance(screen models.Screen, ev Event, m Mutation) (Decision, error) {
	next, err := Transition(screen, ev)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Next: next, Event: ev, Mutation: m}, nil
}

// stay checks that ev would be legal from screen, then keeps the screen.
func stay(screen models.Screen, ev Event, m Mutation) (Decision, error) {
	if _, err := Transition(screen, ev); err != nil {
		return Decision{}, err
	}
	return Decision{Next: screen, Mutation: m}, nil
}

func stepSendCode(screen models.Screen, outcome verification.Outcome) (Decision, error) {
	flow := screen.Flow()
	if outcome.OK() {
		return advance(screen, EventOTPSent, Mutation{OTP: &OTPMutation{Flow: flow}})
	}
	msg := otpMessage(outcome, MessageSendRejected, MessageSendFailed)
	return stay(screen, EventOTPSent, Mutation{
		OTP: &OTPMutation{Flow: flow, Error: msg, ReleaseCooldown: true},
	})
}

func stepVerifyCode(screen models.Screen, outcome verification.Outcome) (Decision, error) {
	flow := screen.Flow()
	if outcome.OK() {
		return advance(screen, EventCodeVerified, Mutation{OTP: &OTPMutation{Flow: flow}})
	}
	msg := otpMessage(outcome, MessageVerifyInvalid, MessageVerifyFailed)
	return stay(screen, EventCodeVerified, Mutation{OTP: &OTPMutation{Flow: flow, Error: msg}})
}

func stepSubmitProfile(screen models.Screen, outcome verification.Outcome) (Decision, error) {
	ev := EventProfileSaved
	if !outcome.OK() {
		ev = EventSaveFailed
	}
	m := Mutation{Reconcile: !outcome.OK()}
	switch screen.Flow() {
	case models.FlowStudent:
		pending := models.PaymentPending
		m.Patch.Student.PaymentStatus = &pending
	case models.FlowGuest:
		m.IssuePass = true
	}
	return advance(screen, ev, m)
}

func stepConfirmPayment(screen models.Screen, outcome verification.Outcome) (Decision, error) {
	ev := EventPaymentConfirmed
	if !outcome.OK() {
		ev = EventUpdateFailed
	}
	completed := models.PaymentCompleted
	m := Mutation{
		Patch:     models.FormPatch{Student: models.StudentPatch{PaymentStatus: &completed}},
		Reconcile: !outcome.OK(),
		IssuePass: true,
	}
	return advance(screen, ev, m)
}

func otpMessage(outcome verification.Outcome, rejected, failed string) string {
	if outcome.Kind == verification.KindTransportFailure {
		return failed
	}
	if outcome.Message != "" {
		return outcome.Message
	}
	return rejected
}
