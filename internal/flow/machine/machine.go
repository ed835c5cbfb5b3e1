// Package machine is the screen state machine. Everything here is pure: the
// caller owns the state and applies the returned Decision.
package machine

import (
	"errors"
	"fmt"

	"ticketflow/internal/flow/models"
	"ticketflow/pkg/platform/sentinel"
)

// Event drives a screen transition.
type Event string

const (
	EventStartTicket      Event = "start-ticket"
	EventStartGuest       Event = "start-guest"
	EventOTPSent          Event = "otp-sent"
	EventCodeVerified     Event = "code-verified"
	EventProfileSaved     Event = "profile-saved"
	EventSaveFailed       Event = "save-failed"
	EventPaidClaimed      Event = "paid-claimed"
	EventPaymentConfirmed Event = "payment-confirmed"
	EventUpdateFailed     Event = "update-failed"
	EventReset            Event = "reset"
	EventNavigateHome     Event = "navigate-home"
)

// Initial is the screen every flow starts on.
const Initial = models.ScreenHome

var edges = map[models.Screen]map[Event]models.Screen{
	models.ScreenHome: {
		EventStartTicket: models.ScreenEmail,
		EventStartGuest:  models.ScreenGuestEmail,
	},
	models.ScreenEmail: {
		EventOTPSent: models.ScreenOTP,
	},
	models.ScreenOTP: {
		EventOTPSent:      models.ScreenOTP,
		EventCodeVerified: models.ScreenRegistration,
	},
	models.ScreenRegistration: {
		EventProfileSaved: models.ScreenPayment,
		EventSaveFailed:   models.ScreenPayment,
	},
	models.ScreenPayment: {
		EventPaidClaimed: models.ScreenTransaction,
	},
	models.ScreenTransaction: {
		EventPaymentConfirmed: models.ScreenSuccess,
		EventUpdateFailed:     models.ScreenSuccess,
	},
	models.ScreenSuccess: {
		EventReset: models.ScreenHome,
	},
	models.ScreenGuestEmail: {
		EventOTPSent: models.ScreenGuestOTP,
	},
	models.ScreenGuestOTP: {
		EventOTPSent:      models.ScreenGuestOTP,
		EventCodeVerified: models.ScreenGuestRegistration,
	},
	models.ScreenGuestRegistration: {
		EventProfileSaved: models.ScreenGuestSuccess,
		EventSaveFailed:   models.ScreenGuestSuccess,
	},
	models.ScreenGuestSuccess: {
		EventReset: models.ScreenHome,
	},
}

// Transition returns the screen reached from screen on ev. Pairs with no edge
// return an error wrapping sentinel.ErrInvalidState.
func Transition(screen models.Screen, ev Event) (models.Screen, error) {
	if !screen.IsValid() {
		return screen, fmt.Errorf("unknown screen %q: %w", screen, sentinel.ErrInvalidState)
	}

	switch ev {
	case EventNavigateHome:
		// Terminal screens leave through reset so the form is cleared.
		if screen != models.ScreenHome && !screen.Terminal() {
			return models.ScreenHome, nil
		}
	case EventStartGuest:
		// The navigation bar offers the guest pass from anywhere in the
		// student journey.
		if screen.Flow() == models.FlowStudent && !screen.Terminal() {
			return models.ScreenGuestEmail, nil
		}
	}

	if next, ok := edges[screen][ev]; ok {
		return next, nil
	}
	return screen, fmt.Errorf("no %s transition from %s: %w", ev, screen, sentinel.ErrInvalidState)
}

// IsInvalidTransition reports whether err came from an undefined transition.
func IsInvalidTransition(err error) bool {
	return errors.Is(err, sentinel.ErrInvalidState)
}
