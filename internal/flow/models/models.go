// Package models holds the value types shared by the registration flow:
// screens, the profile form, OTP state, overlays and the view rendered by the
// display layer.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Screen identifies the single visible step of a flow.
type Screen string

const (
	ScreenHome Screen = "home"

	ScreenEmail        Screen = "email"
	ScreenOTP          Screen = "otp"
	ScreenRegistration Screen = "registration"
	ScreenPayment      Screen = "payment"
	ScreenTransaction  Screen = "transaction"
	ScreenSuccess      Screen = "success"

	ScreenGuestEmail        Screen = "guest-email"
	ScreenGuestOTP          Screen = "guest-otp"
	ScreenGuestRegistration Screen = "guest-registration"
	ScreenGuestProcessing   Screen = "guest-processing"
	ScreenGuestSuccess      Screen = "guest-success"
)

// IsValid reports whether s is a known screen.
func (s Screen) IsValid() bool {
	switch s {
	case ScreenHome,
		ScreenEmail, ScreenOTP, ScreenRegistration, ScreenPayment, ScreenTransaction, ScreenSuccess,
		ScreenGuestEmail, ScreenGuestOTP, ScreenGuestRegistration, ScreenGuestProcessing, ScreenGuestSuccess:
		return true
	}
	return false
}

// Terminal reports whether s ends a journey. The only way out is back home.
func (s Screen) Terminal() bool {
	return s == ScreenSuccess || s == ScreenGuestSuccess
}

// Flow returns the journey a screen belongs to; home belongs to neither.
func (s Screen) Flow() FlowKind {
	switch s {
	case ScreenEmail, ScreenOTP, ScreenRegistration, ScreenPayment, ScreenTransaction, ScreenSuccess:
		return FlowStudent
	case ScreenGuestEmail, ScreenGuestOTP, ScreenGuestRegistration, ScreenGuestProcessing, ScreenGuestSuccess:
		return FlowGuest
	}
	return FlowNone
}

// FlowKind distinguishes the paid student journey from the free guest one.
type FlowKind string

const (
	FlowNone    FlowKind = ""
	FlowStudent FlowKind = "student"
	FlowGuest   FlowKind = "guest"
)

func (k FlowKind) IsValid() bool {
	return k == FlowStudent || k == FlowGuest
}

// PaymentStatus tracks what the student was told about their payment.
type PaymentStatus string

const (
	PaymentNone      PaymentStatus = ""
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

// StudentForm is the student journey's sub-record.
type StudentForm struct {
	Email              string        `json:"email"`
	OTP                string        `json:"otp"`
	FullName           string        `json:"full_name"`
	RegistrationNumber string        `json:"registration_number"`
	Department         string        `json:"department"`
	Year               string        `json:"year"`
	Phone              string        `json:"phone"`
	TransactionID      string        `json:"transaction_id"`
	PaymentConfirmed   bool          `json:"payment_confirmed"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PassID             string        `json:"pass_id"`
}

// GuestForm is the guest journey's sub-record.
type GuestForm struct {
	Email      string `json:"email"`
	OTP        string `json:"otp"`
	Name       string `json:"name"`
	RollNumber string `json:"roll_number"`
	College    string `json:"college"`
	Department string `json:"department"`
	Phone      string `json:"phone"`
	PassID     string `json:"pass_id"`
}

// ProfileForm holds everything the participant entered. The two journeys
// never share a field.
type ProfileForm struct {
	Student StudentForm `json:"student"`
	Guest   GuestForm   `json:"guest"`
}

// StudentPatch overwrites the non-nil fields of a StudentForm.
type StudentPatch struct {
	Email              *string
	OTP                *string
	FullName           *string
	RegistrationNumber *string
	Department         *string
	Year               *string
	Phone              *string
	TransactionID      *string
	PaymentConfirmed   *bool
	PaymentStatus      *PaymentStatus
	PassID             *string
}

// GuestPatch overwrites the non-nil fields of a GuestForm.
type GuestPatch struct {
	Email      *string
	OTP        *string
	Name       *string
	RollNumber *string
	College    *string
	Department *string
	Phone      *string
	PassID     *string
}

// FormPatch is a shallow partial update of a ProfileForm.
type FormPatch struct {
	Student StudentPatch
	Guest   GuestPatch
}

// IsEmpty reports whether applying p would change nothing.
func (p FormPatch) IsEmpty() bool {
	return p.Student == (StudentPatch{}) && p.Guest == (GuestPatch{})
}

// OTPState is the resend/error state of one journey's code step.
// CanResend is true exactly when ResendTimer is zero.
type OTPState struct {
	CanResend   bool   `json:"can_resend"`
	ResendTimer int    `json:"resend_timer"`
	Error       string `json:"otp_error,omitempty"`
}

// Overlay is an informational panel shown on top of the current screen.
type Overlay string

const (
	OverlayNone     Overlay = ""
	OverlayAbout    Overlay = "about"
	OverlayEvents   Overlay = "events"
	OverlaySchedule Overlay = "schedule"
	OverlayContact  Overlay = "contact"
)

func (o Overlay) IsValid() bool {
	switch o {
	case OverlayAbout, OverlayEvents, OverlaySchedule, OverlayContact:
		return true
	}
	return false
}

// Action is a button press coming from the display layer.
type Action string

const (
	ActionStartTicket    Action = "start-ticket"
	ActionStartGuest     Action = "start-guest"
	ActionSendCode       Action = "send-code"
	ActionVerifyCode     Action = "verify-code"
	ActionSubmitProfile  Action = "submit-profile"
	ActionClaimPaid      Action = "claim-paid"
	ActionConfirmPayment Action = "confirm-payment"
	ActionReset          Action = "reset"
	ActionNavigateHome   Action = "navigate-home"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionStartTicket, ActionStartGuest, ActionSendCode, ActionVerifyCode,
		ActionSubmitProfile, ActionClaimPaid, ActionConfirmPayment, ActionReset, ActionNavigateHome:
		return true
	}
	return false
}

// Remote reports whether the action calls the verification service.
func (a Action) Remote() bool {
	switch a {
	case ActionSendCode, ActionVerifyCode, ActionSubmitProfile, ActionConfirmPayment:
		return true
	}
	return false
}

// View is the read-only projection handed to the display layer.
type View struct {
	FlowID     uuid.UUID   `json:"flow_id"`
	Screen     Screen      `json:"screen"`
	Form       ProfileForm `json:"form"`
	StudentOTP OTPState    `json:"student_otp"`
	GuestOTP   OTPState    `json:"guest_otp"`
	Loading    bool        `json:"loading"`
	Overlay    Overlay     `json:"overlay,omitempty"`
}

// Snapshot is the persisted form of one flow.
type Snapshot struct {
	FlowID        uuid.UUID   `json:"flow_id"`
	Screen        Screen      `json:"screen"`
	Form          ProfileForm `json:"form"`
	StudentOTP    OTPState    `json:"student_otp"`
	GuestOTP      OTPState    `json:"guest_otp"`
	Overlay       Overlay     `json:"overlay,omitempty"`
	OverlayScreen Screen      `json:"overlay_screen,omitempty"`
	SavedAt       time.Time   `json:"saved_at"`
}
