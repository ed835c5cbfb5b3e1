package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ticketflow/internal/flow/machine"
	"ticketflow/internal/flow/metrics"
	"ticketflow/internal/flow/models"
	"ticketflow/internal/flow/store"
	"ticketflow/internal/flow/timer"
	"ticketflow/internal/reconciliation"
	"ticketflow/internal/verification"
	dErrors "ticketflow/pkg/domain-errors"
	"ticketflow/pkg/email"
)

const otpLength = 6

// flowDeps is shared by every flow of a Service.
type flowDeps struct {
	client     VerificationClient
	reconciler Reconciler
	logger     *slog.Logger
	metrics    *metrics.Metrics
	cooldown   int
	clock      func() time.Time
	newID      func() uuid.UUID
}

// Flow is one participant's journey. All state is guarded by mu, which is
// never held while a remote call is in flight.
type Flow struct {
	mu sync.Mutex
	// saveMu orders snapshot writes so an older state never overwrites a newer one.
	saveMu sync.Mutex

	id            uuid.UUID
	deps          *flowDeps
	screen        models.Screen
	form          *store.Store
	studentTimer  *timer.Countdown
	guestTimer    *timer.Countdown
	studentErr    string
	guestErr      string
	overlay       models.Overlay
	overlayScreen models.Screen
	loading       bool
	ended         bool
	lastActive    time.Time
}

func newFlow(id uuid.UUID, deps *flowDeps) *Flow {
	return &Flow{
		id:           id,
		deps:         deps,
		screen:       machine.Initial,
		form:         store.New(),
		studentTimer: timer.New(),
		guestTimer:   timer.New(),
		lastActive:   deps.clock(),
	}
}

// restoreFlow rebuilds a flow from snap, applying elapsed whole seconds to
// both cooldowns.
func restoreFlow(snap models.Snapshot, deps *flowDeps, elapsed time.Duration) *Flow {
	f := &Flow{
		id:            snap.FlowID,
		deps:          deps,
		screen:        snap.Screen,
		form:          store.Restore(snap.Form),
		studentTimer:  timer.Restore(snap.StudentOTP.ResendTimer),
		guestTimer:    timer.Restore(snap.GuestOTP.ResendTimer),
		studentErr:    snap.StudentOTP.Error,
		guestErr:      snap.GuestOTP.Error,
		overlay:       snap.Overlay,
		overlayScreen: snap.OverlayScreen,
		lastActive:    deps.clock(),
	}
	if !f.screen.IsValid() {
		f.screen = machine.Initial
	}
	seconds := int(elapsed / time.Second)
	f.studentTimer.Advance(seconds)
	f.guestTimer.Advance(seconds)
	return f
}

func (f *Flow) ID() uuid.UUID {
	return f.id
}

// View returns the current projection for the display layer.
func (f *Flow) View() models.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.viewLocked()
}

func (f *Flow) viewLocked() models.View {
	v := models.View{
		FlowID:     f.id,
		Screen:     f.screen,
		Form:       f.form.Get(),
		StudentOTP: otpState(f.studentTimer, f.studentErr),
		GuestOTP:   otpState(f.guestTimer, f.guestErr),
		Loading:    f.loading,
	}
	if f.overlay != models.OverlayNone && f.overlayScreen == f.screen {
		v.Overlay = f.overlay
	}
	return v
}

func otpState(t *timer.Countdown, errMsg string) models.OTPState {
	return models.OTPState{
		CanResend:   t.CanResend(),
		ResendTimer: t.Remaining(),
		Error:       errMsg,
	}
}

// Snapshot captures the flow for persistence.
func (f *Flow) Snapshot() models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.Snapshot{
		FlowID:        f.id,
		Screen:        f.screen,
		Form:          f.form.Get(),
		StudentOTP:    otpState(f.studentTimer, f.studentErr),
		GuestOTP:      otpState(f.guestTimer, f.guestErr),
		Overlay:       f.overlay,
		OverlayScreen: f.overlayScreen,
		SavedAt:       f.deps.clock(),
	}
}

// Tick applies one elapsed second to both cooldowns.
func (f *Flow) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.studentTimer.Tick()
	f.guestTimer.Tick()
}

// EditFields merges field edits into one journey's sub-record.
func (f *Flow) EditFields(kind models.FlowKind, fields map[string]any) (models.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchLocked()
	if err := f.form.ApplyFields(kind, fields); err != nil {
		return f.viewLocked(), err
	}
	return f.viewLocked(), nil
}

// OpenOverlay shows an informational panel over the current screen.
func (f *Flow) OpenOverlay(o models.Overlay) (models.View, error) {
	if !o.IsValid() {
		return f.View(), dErrors.New(dErrors.CodeBadRequest, "unknown overlay")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchLocked()
	f.overlay = o
	f.overlayScreen = f.screen
	return f.viewLocked(), nil
}

func (f *Flow) CloseOverlay() models.View {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchLocked()
	f.overlay = models.OverlayNone
	f.overlayScreen = ""
	return f.viewLocked()
}

func (f *Flow) touchLocked() {
	f.lastActive = f.deps.clock()
}

func (f *Flow) touch() {
	f.mu.Lock()
	f.touchLocked()
	f.mu.Unlock()
}

// end marks the flow finished so it is never written back. A flow with a
// call in flight cannot end.
func (f *Flow) end() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return ErrBusy
	}
	f.ended = true
	return nil
}

func (f *Flow) isEnded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended
}

func (f *Flow) idleSince() (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive, f.loading
}

// Dispatch handles a button press. Actions blocked by missing input return
// the unchanged view and no error.
func (f *Flow) Dispatch(ctx context.Context, action models.Action) (models.View, error) {
	if !action.IsValid() {
		return f.View(), dErrors.New(dErrors.CodeBadRequest, "unknown action")
	}

	f.mu.Lock()
	f.touchLocked()
	if f.loading {
		view := f.viewLocked()
		f.mu.Unlock()
		return view, ErrBusy
	}

	if !action.Remote() {
		defer f.mu.Unlock()
		d, err := machine.Step(f.screen, action, nil)
		if err != nil {
			return f.viewLocked(), unavailable(err)
		}
		f.applyLocked(d)
		return f.viewLocked(), nil
	}

	// Dry run with a successful outcome: the action must be enabled on this
	// screen before we look at the input.
	dryRun := verification.Success("")
	if _, err := machine.Step(f.screen, action, &dryRun); err != nil {
		view := f.viewLocked()
		f.mu.Unlock()
		return view, unavailable(err)
	}

	switch action {
	case models.ActionSendCode:
		return f.sendCode(ctx)
	case models.ActionVerifyCode:
		return f.verifyCode(ctx)
	case models.ActionSubmitProfile:
		return f.submitProfile(ctx)
	default:
		return f.confirmPayment(ctx)
	}
}

// blockedLocked reports an action that was not dispatched and releases mu.
func (f *Flow) blockedLocked(action models.Action) (models.View, error) {
	view := f.viewLocked()
	f.mu.Unlock()
	f.deps.metrics.IncBlocked(string(action))
	return view, nil
}

// beginRemoteLocked marks the flow busy and releases mu for the call.
func (f *Flow) beginRemoteLocked() {
	f.loading = true
	f.mu.Unlock()
}

// finishRemote reacquires mu, feeds the outcome to the state machine and
// applies the decision.
func (f *Flow) finishRemote(action models.Action, outcome verification.Outcome) (models.View, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	d, err := machine.Step(f.screen, action, &outcome)
	if err != nil {
		return f.viewLocked(), unavailable(err)
	}
	if d.Mutation.Reconcile {
		f.deps.metrics.IncFallbackAdvance(string(action))
	}
	f.applyLocked(d)
	return f.viewLocked(), nil
}

func (f *Flow) sendCode(ctx context.Context) (models.View, error) {
	kind := f.screen.Flow()
	t, errMsg := f.otpLocked(kind)
	address := f.emailLocked(kind)
	if address == "" || !t.CanResend() {
		return f.blockedLocked(models.ActionSendCode)
	}

	t.Arm(f.deps.cooldown)
	*errMsg = ""
	f.beginRemoteLocked()

	outcome := f.deps.client.RequestCode(remoteContext(ctx), email.Normalize(address))
	if !outcome.OK() {
		f.deps.logger.InfoContext(ctx, "otp send failed",
			"flow_id", f.id.String(),
			"failure_kind", string(outcome.Kind),
		)
	}
	return f.finishRemote(models.ActionSendCode, outcome)
}

func (f *Flow) verifyCode(ctx context.Context) (models.View, error) {
	kind := f.screen.Flow()
	address := f.emailLocked(kind)
	code := strings.TrimSpace(f.codeLocked(kind))
	if len(code) != otpLength {
		return f.blockedLocked(models.ActionVerifyCode)
	}
	f.beginRemoteLocked()

	outcome := f.deps.client.ConfirmCode(remoteContext(ctx), email.Normalize(address), code)
	return f.finishRemote(models.ActionVerifyCode, outcome)
}

func (f *Flow) submitProfile(ctx context.Context) (models.View, error) {
	form := f.form.Get()
	var w softWrite

	switch f.screen.Flow() {
	case models.FlowStudent:
		s := form.Student
		if blank(s.FullName, s.RegistrationNumber, s.Department, s.Year, s.Phone) {
			return f.blockedLocked(models.ActionSubmitProfile)
		}
		profile := verification.StudentProfile{
			Name:          s.FullName,
			RegNo:         s.RegistrationNumber,
			Department:    s.Department,
			Year:          s.Year,
			Email:         email.Normalize(s.Email),
			Phone:         s.Phone,
			PaymentStatus: string(models.PaymentPending),
		}
		w = softWrite{
			op:      reconciliation.OpSaveStudent,
			email:   profile.Email,
			payload: profile,
			call: func(ctx context.Context) verification.Outcome {
				return f.deps.client.SubmitStudent(ctx, profile)
			},
		}
	default:
		g := form.Guest
		if blank(g.Name, g.College, g.Department, g.RollNumber, g.Phone) {
			return f.blockedLocked(models.ActionSubmitProfile)
		}
		profile := verification.GuestProfile{
			Name:       g.Name,
			RollNo:     g.RollNumber,
			College:    g.College,
			Department: g.Department,
			Email:      email.Normalize(g.Email),
			Phone:      g.Phone,
		}
		w = softWrite{
			op:      reconciliation.OpSaveGuest,
			email:   profile.Email,
			payload: profile,
			call: func(ctx context.Context) verification.Outcome {
				return f.deps.client.SubmitGuest(ctx, profile)
			},
		}
	}

	f.beginRemoteLocked()
	return f.performSoftly(remoteContext(ctx), w, func(outcome verification.Outcome) (models.View, error) {
		return f.finishRemote(models.ActionSubmitProfile, outcome)
	})
}

func (f *Flow) confirmPayment(ctx context.Context) (models.View, error) {
	s := f.form.Get().Student
	if blank(s.TransactionID) || !s.PaymentConfirmed {
		return f.blockedLocked(models.ActionConfirmPayment)
	}
	update := verification.PaymentUpdate{
		Email:         email.Normalize(s.Email),
		TransactionID: strings.TrimSpace(s.TransactionID),
		PaymentStatus: string(models.PaymentCompleted),
	}
	w := softWrite{
		op:      reconciliation.OpUpdatePayment,
		email:   update.Email,
		payload: update,
		call: func(ctx context.Context) verification.Outcome {
			return f.deps.client.ConfirmPayment(ctx, update)
		},
	}

	f.beginRemoteLocked()
	return f.performSoftly(remoteContext(ctx), w, func(outcome verification.Outcome) (models.View, error) {
		return f.finishRemote(models.ActionConfirmPayment, outcome)
	})
}

// applyLocked applies a state machine decision.
func (f *Flow) applyLocked(d machine.Decision) {
	m := d.Mutation
	f.form.Merge(m.Patch)

	if m.OTP != nil {
		t, errMsg := f.otpLocked(m.OTP.Flow)
		*errMsg = m.OTP.Error
		if m.OTP.ReleaseCooldown {
			t.Release()
		}
	}

	if m.IssuePass {
		f.issuePassLocked(f.screen.Flow())
	}

	if m.ResetForm {
		f.form.ResetAll()
		f.studentErr = ""
		f.guestErr = ""
	}

	if d.Next != f.screen {
		f.deps.metrics.IncTransition(string(f.screen), string(d.Next))
		f.overlay = models.OverlayNone
		f.overlayScreen = ""
	}
	f.screen = d.Next
}

func (f *Flow) issuePassLocked(kind models.FlowKind) {
	switch kind {
	case models.FlowStudent:
		id := passID("S", f.deps.newID())
		f.form.Merge(models.FormPatch{Student: models.StudentPatch{PassID: &id}})
	case models.FlowGuest:
		id := passID("G", f.deps.newID())
		f.form.Merge(models.FormPatch{Guest: models.GuestPatch{PassID: &id}})
	}
}

// passID formats VYM-<S|G>-<first 8 hex digits>.
func passID(prefix string, id uuid.UUID) string {
	return "VYM-" + prefix + "-" + strings.ToUpper(id.String()[:8])
}

func (f *Flow) otpLocked(kind models.FlowKind) (*timer.Countdown, *string) {
	if kind == models.FlowGuest {
		return f.guestTimer, &f.guestErr
	}
	return f.studentTimer, &f.studentErr
}

func (f *Flow) emailLocked(kind models.FlowKind) string {
	form := f.form.Get()
	if kind == models.FlowGuest {
		return strings.TrimSpace(form.Guest.Email)
	}
	return strings.TrimSpace(form.Student.Email)
}

func (f *Flow) codeLocked(kind models.FlowKind) string {
	form := f.form.Get()
	if kind == models.FlowGuest {
		return form.Guest.OTP
	}
	return form.Student.OTP
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

// remoteContext keeps request values but not cancellation: once a call has
// started its outcome is always applied, even if the caller went away.
func remoteContext(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
