package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"ticketflow/internal/flow/machine"
	"ticketflow/internal/flow/metrics"
	"ticketflow/internal/flow/models"
	"ticketflow/internal/flow/service/mocks"
	"ticketflow/internal/flow/store/session"
	"ticketflow/internal/platform/logger"
	"ticketflow/internal/reconciliation"
	reconstore "ticketflow/internal/reconciliation/store"
	"ticketflow/internal/verification"
	dErrors "ticketflow/pkg/domain-errors"
	"ticketflow/pkg/testutil/fakeremote"
)

var fixedID = uuid.MustParse("3f2a9c1e-7b4d-4e8a-9c2b-1d5e6f7a8b9c")

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	client     *mocks.MockVerificationClient
	reconciler *mocks.MockReconciler
	snapshots  *session.InMemoryStore
	clock      *testClock
	svc        *Service
	ctx        context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.client = mocks.NewMockVerificationClient(s.ctrl)
	s.reconciler = mocks.NewMockReconciler(s.ctrl)
	s.clock = &testClock{now: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)}
	s.snapshots = session.NewInMemory(session.WithClock(s.clock.Now))
	s.svc = s.newService()
	s.ctx = context.Background()
}

func (s *ServiceSuite) newService() *Service {
	return New(s.client, s.snapshots, logger.Discard(),
		WithReconciler(s.reconciler),
		WithMetrics(metrics.New(prometheus.NewRegistry())),
		WithClock(s.clock.Now),
		WithIDGenerator(func() uuid.UUID { return fixedID }),
	)
}

// uniqueIDs makes later flows get distinct ids.
func (s *ServiceSuite) uniqueIDs() {
	s.svc.deps.newID = uuid.New
}

func (s *ServiceSuite) create() uuid.UUID {
	view, err := s.svc.Create(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.ScreenHome, view.Screen)
	return view.FlowID
}

func (s *ServiceSuite) dispatch(id uuid.UUID, action models.Action) models.View {
	view, err := s.svc.Dispatch(s.ctx, id, action)
	s.Require().NoError(err)
	return view
}

func (s *ServiceSuite) edit(id uuid.UUID, kind models.FlowKind, fields map[string]any) {
	_, err := s.svc.EditFields(s.ctx, id, kind, fields)
	s.Require().NoError(err)
}

// toStudentRegistration drives a new flow to the student registration screen.
func (s *ServiceSuite) toStudentRegistration() uuid.UUID {
	id := s.create()
	s.dispatch(id, models.ActionStartTicket)
	s.edit(id, models.FlowStudent, map[string]any{"email": " Alice@Example.com "})
	s.client.EXPECT().RequestCode(gomock.Any(), "Alice@Example.com").Return(verification.Success("OTP sent"))
	s.dispatch(id, models.ActionSendCode)
	s.edit(id, models.FlowStudent, map[string]any{"otp": "123456"})
	s.client.EXPECT().ConfirmCode(gomock.Any(), "Alice@Example.com", "123456").Return(verification.Success(""))
	view := s.dispatch(id, models.ActionVerifyCode)
	s.Require().Equal(models.ScreenRegistration, view.Screen)
	s.edit(id, models.FlowStudent, map[string]any{
		"full_name":           "Alice",
		"registration_number": "21BCE1234",
		"department":          "CSE",
		"year":                "3",
		"phone":               "9876543210",
	})
	return id
}

func (s *ServiceSuite) toGuestRegistration() uuid.UUID {
	id := s.create()
	s.dispatch(id, models.ActionStartGuest)
	s.edit(id, models.FlowGuest, map[string]any{"email": "bob@college.edu"})
	s.client.EXPECT().RequestCode(gomock.Any(), "bob@college.edu").Return(verification.Success(""))
	s.dispatch(id, models.ActionSendCode)
	s.edit(id, models.FlowGuest, map[string]any{"otp": "654321"})
	s.client.EXPECT().ConfirmCode(gomock.Any(), "bob@college.edu", "654321").Return(verification.Success(""))
	view := s.dispatch(id, models.ActionVerifyCode)
	s.Require().Equal(models.ScreenGuestRegistration, view.Screen)
	s.edit(id, models.FlowGuest, map[string]any{
		"name":        "Bob",
		"roll_number": "R42",
		"college":     "Other College",
		"department":  "ECE",
		"phone":       "9000000000",
	})
	return id
}

func (s *ServiceSuite) TestStudentJourney() {
	id := s.toStudentRegistration()

	s.client.EXPECT().SubmitStudent(gomock.Any(), verification.StudentProfile{
		Name:          "Alice",
		RegNo:         "21BCE1234",
		Department:    "CSE",
		Year:          "3",
		Email:         "Alice@Example.com",
		Phone:         "9876543210",
		PaymentStatus: "pending",
	}).Return(verification.Success("saved"))
	view := s.dispatch(id, models.ActionSubmitProfile)
	s.Equal(models.ScreenPayment, view.Screen)
	s.Equal(models.PaymentPending, view.Form.Student.PaymentStatus)

	view = s.dispatch(id, models.ActionClaimPaid)
	s.Equal(models.ScreenTransaction, view.Screen)

	s.edit(id, models.FlowStudent, map[string]any{"transaction_id": "TXN1", "payment_confirmed": true})
	s.client.EXPECT().ConfirmPayment(gomock.Any(), verification.PaymentUpdate{
		Email:         "Alice@Example.com",
		TransactionID: "TXN1",
		PaymentStatus: "completed",
	}).Return(verification.Success(""))
	view = s.dispatch(id, models.ActionConfirmPayment)

	s.Equal(models.ScreenSuccess, view.Screen)
	s.Equal(models.PaymentCompleted, view.Form.Student.PaymentStatus)
	s.Equal("VYM-S-3F2A9C1E", view.Form.Student.PassID)
	s.Equal("TXN1", view.Form.Student.TransactionID)
}

func (s *ServiceSuite) TestStudentSubmitTransportFailureStillAdvances() {
	id := s.toStudentRegistration()

	s.client.EXPECT().SubmitStudent(gomock.Any(), gomock.Any()).
		Return(verification.TransportFailure(errors.New("connection refused")))
	s.reconciler.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec reconciliation.Record) error {
			s.Equal(id, rec.FlowID)
			s.Equal(reconciliation.OpSaveStudent, rec.Operation)
			s.Equal("Alice@Example.com", rec.Email)
			s.Equal(verification.KindTransportFailure, rec.FailureKind)
			return nil
		})

	view := s.dispatch(id, models.ActionSubmitProfile)
	s.Equal(models.ScreenPayment, view.Screen)
	s.Equal(models.PaymentPending, view.Form.Student.PaymentStatus)
	s.False(view.Loading)
}

func (s *ServiceSuite) TestPaymentUpdateRejectedStillSucceeds() {
	id := s.toStudentRegistration()
	s.client.EXPECT().SubmitStudent(gomock.Any(), gomock.Any()).Return(verification.Success(""))
	s.dispatch(id, models.ActionSubmitProfile)
	s.dispatch(id, models.ActionClaimPaid)
	s.edit(id, models.FlowStudent, map[string]any{"transaction_id": "TXN9", "payment_confirmed": true})

	s.client.EXPECT().ConfirmPayment(gomock.Any(), gomock.Any()).Return(verification.Rejected("unknown user"))
	s.reconciler.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec reconciliation.Record) error {
			s.Equal(reconciliation.OpUpdatePayment, rec.Operation)
			s.Equal("unknown user", rec.Message)
			return nil
		})

	view := s.dispatch(id, models.ActionConfirmPayment)
	s.Equal(models.ScreenSuccess, view.Screen)
	s.Equal(models.PaymentCompleted, view.Form.Student.PaymentStatus)
	s.NotEmpty(view.Form.Student.PassID)
}

func (s *ServiceSuite) TestGuestJourneyWithRejectedSave() {
	id := s.toGuestRegistration()

	s.client.EXPECT().SubmitGuest(gomock.Any(), verification.GuestProfile{
		Name:       "Bob",
		RollNo:     "R42",
		College:    "Other College",
		Department: "ECE",
		Email:      "bob@college.edu",
		Phone:      "9000000000",
	}).Return(verification.Rejected("duplicate"))
	s.reconciler.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rec reconciliation.Record) error {
			s.Equal(reconciliation.OpSaveGuest, rec.Operation)
			s.Equal(verification.KindRejected, rec.FailureKind)
			return nil
		})

	view := s.dispatch(id, models.ActionSubmitProfile)
	s.Equal(models.ScreenGuestSuccess, view.Screen)
	s.Equal("VYM-G-3F2A9C1E", view.Form.Guest.PassID)
	s.Empty(view.Form.Student.PassID)
}

func (s *ServiceSuite) TestReconcilerErrorDoesNotFailAction() {
	id := s.toGuestRegistration()
	s.client.EXPECT().SubmitGuest(gomock.Any(), gomock.Any()).
		Return(verification.TransportFailure(errors.New("timeout")))
	s.reconciler.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("outbox down"))

	view := s.dispatch(id, models.ActionSubmitProfile)
	s.Equal(models.ScreenGuestSuccess, view.Screen)
}

func (s *ServiceSuite) TestSendCode() {
	s.Run("rejected send surfaces message and releases cooldown", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})
		s.client.EXPECT().RequestCode(gomock.Any(), "x@y.com").Return(verification.Rejected("bad"))

		view := s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenEmail, view.Screen)
		s.Equal("bad", view.StudentOTP.Error)
		s.True(view.StudentOTP.CanResend)
		s.Equal(0, view.StudentOTP.ResendTimer)
	})

	s.Run("transport failure uses generic message", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})
		s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).
			Return(verification.TransportFailure(errors.New("dial tcp")))

		view := s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenEmail, view.Screen)
		s.Equal(machine.MessageSendFailed, view.StudentOTP.Error)
		s.True(view.StudentOTP.CanResend)
	})

	s.Run("success arms the cooldown and blocks resend until it runs out", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})
		s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).Return(verification.Success(""))

		view := s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenOTP, view.Screen)
		s.False(view.StudentOTP.CanResend)
		s.Equal(60, view.StudentOTP.ResendTimer)

		// Resend during the cooldown is not dispatched.
		view = s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenOTP, view.Screen)

		for range 60 {
			s.svc.TickAll()
		}
		view, err := s.svc.View(s.ctx, id)
		s.Require().NoError(err)
		s.True(view.StudentOTP.CanResend)

		s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).Return(verification.Success(""))
		view = s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenOTP, view.Screen)
		s.Equal(60, view.StudentOTP.ResendTimer)
	})
}

func (s *ServiceSuite) TestVerifyCodeRejected() {
	id := s.create()
	s.dispatch(id, models.ActionStartGuest)
	s.edit(id, models.FlowGuest, map[string]any{"email": "g@x.org"})
	s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).Return(verification.Success(""))
	s.dispatch(id, models.ActionSendCode)
	s.edit(id, models.FlowGuest, map[string]any{"otp": "000000"})

	s.client.EXPECT().ConfirmCode(gomock.Any(), "g@x.org", "000000").Return(verification.Rejected(""))
	view := s.dispatch(id, models.ActionVerifyCode)

	s.Equal(models.ScreenGuestOTP, view.Screen)
	s.Equal(machine.MessageVerifyInvalid, view.GuestOTP.Error)
	s.Empty(view.StudentOTP.Error)
}

func (s *ServiceSuite) TestBlockedActionsAreNotDispatched() {
	s.Run("empty email", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		view := s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenEmail, view.Screen)
		s.Empty(view.StudentOTP.Error)
	})

	s.Run("whitespace email", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		s.edit(id, models.FlowStudent, map[string]any{"email": "   "})
		view := s.dispatch(id, models.ActionSendCode)
		s.Equal(models.ScreenEmail, view.Screen)
		s.True(view.StudentOTP.CanResend)
	})

	s.Run("short code", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})
		s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).Return(verification.Success(""))
		s.dispatch(id, models.ActionSendCode)
		s.edit(id, models.FlowStudent, map[string]any{"otp": "12345"})
		view := s.dispatch(id, models.ActionVerifyCode)
		s.Equal(models.ScreenOTP, view.Screen)
	})

	s.Run("incomplete profile", func() {
		id := s.toStudentRegistration()
		s.edit(id, models.FlowStudent, map[string]any{"year": "  "})
		view := s.dispatch(id, models.ActionSubmitProfile)
		s.Equal(models.ScreenRegistration, view.Screen)
	})

	s.Run("payment not confirmed", func() {
		id := s.toStudentRegistration()
		s.client.EXPECT().SubmitStudent(gomock.Any(), gomock.Any()).Return(verification.Success(""))
		s.dispatch(id, models.ActionSubmitProfile)
		s.dispatch(id, models.ActionClaimPaid)
		s.edit(id, models.FlowStudent, map[string]any{"transaction_id": "TXN1"})
		view := s.dispatch(id, models.ActionConfirmPayment)
		s.Equal(models.ScreenTransaction, view.Screen)
	})
}

func (s *ServiceSuite) TestActionNotAvailableOnScreen() {
	id := s.create()

	view, err := s.svc.Dispatch(s.ctx, id, models.ActionVerifyCode)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal(models.ScreenHome, view.Screen)

	_, err = s.svc.Dispatch(s.ctx, id, models.ActionClaimPaid)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	_, err = s.svc.Dispatch(s.ctx, id, models.Action("fly"))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestBusyWhileRemoteCallInFlight() {
	id := s.create()
	s.dispatch(id, models.ActionStartTicket)
	s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})

	release := make(chan struct{})
	s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).DoAndReturn(
		func(context.Context, string) verification.Outcome {
			<-release
			return verification.Success("")
		})

	done := make(chan models.View, 1)
	go func() {
		view, _ := s.svc.Dispatch(s.ctx, id, models.ActionSendCode)
		done <- view
	}()

	s.Require().Eventually(func() bool {
		view, err := s.svc.View(s.ctx, id)
		return err == nil && view.Loading
	}, time.Second, 5*time.Millisecond)

	_, err := s.svc.Dispatch(s.ctx, id, models.ActionNavigateHome)
	s.ErrorIs(err, ErrBusy)

	// Overlays stay available while loading.
	view, err := s.svc.OpenOverlay(s.ctx, id, models.OverlayContact)
	s.Require().NoError(err)
	s.Equal(models.OverlayContact, view.Overlay)

	close(release)
	view = <-done
	s.Equal(models.ScreenOTP, view.Screen)
	s.False(view.Loading)
	s.Equal(models.OverlayNone, view.Overlay)
}

func (s *ServiceSuite) TestOverlays() {
	id := s.create()
	s.dispatch(id, models.ActionStartTicket)

	view, err := s.svc.OpenOverlay(s.ctx, id, models.OverlaySchedule)
	s.Require().NoError(err)
	s.Equal(models.OverlaySchedule, view.Overlay)
	s.Equal(models.ScreenEmail, view.Screen)

	view = s.dispatch(id, models.ActionNavigateHome)
	s.Equal(models.ScreenHome, view.Screen)
	s.Equal(models.OverlayNone, view.Overlay)

	_, err = s.svc.OpenOverlay(s.ctx, id, models.OverlayAbout)
	s.Require().NoError(err)
	view, err = s.svc.CloseOverlay(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.OverlayNone, view.Overlay)

	_, err = s.svc.OpenOverlay(s.ctx, id, models.Overlay("gallery"))
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestTerminalNavigateHomeResetsForm() {
	id := s.toGuestRegistration()
	s.client.EXPECT().SubmitGuest(gomock.Any(), gomock.Any()).Return(verification.Success(""))
	s.dispatch(id, models.ActionSubmitProfile)

	view := s.dispatch(id, models.ActionNavigateHome)
	s.Equal(models.ScreenHome, view.Screen)
	s.Equal(models.ProfileForm{}, view.Form)
}

func (s *ServiceSuite) TestNavigateHomeKeepsForm() {
	id := s.create()
	s.dispatch(id, models.ActionStartTicket)
	s.edit(id, models.FlowStudent, map[string]any{"email": "keep@me.com"})

	view := s.dispatch(id, models.ActionNavigateHome)
	s.Equal(models.ScreenHome, view.Screen)
	s.Equal("keep@me.com", view.Form.Student.Email)
}

func (s *ServiceSuite) TestRestoreFromSnapshotAppliesElapsedTime() {
	id := s.create()
	s.dispatch(id, models.ActionStartTicket)
	s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})
	s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).Return(verification.Success(""))
	s.dispatch(id, models.ActionSendCode)

	s.clock.Advance(25 * time.Second)
	restarted := s.newService()

	view, err := restarted.View(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.ScreenOTP, view.Screen)
	s.Equal("x@y.com", view.Form.Student.Email)
	s.Equal(35, view.StudentOTP.ResendTimer)
	s.False(view.StudentOTP.CanResend)
	s.Equal(1, restarted.Len())
}

func (s *ServiceSuite) TestEvictIdle() {
	s.uniqueIDs()
	idle := s.create()
	s.dispatch(idle, models.ActionStartGuest)

	s.clock.Advance(10 * time.Minute)
	active := s.create()

	s.clock.Advance(6 * time.Minute)
	evicted := s.svc.EvictIdle(s.ctx, s.clock.Now())
	s.Equal(1, evicted)
	s.Equal(1, s.svc.Len())

	view, err := s.svc.View(s.ctx, idle)
	s.Require().NoError(err)
	s.Equal(models.ScreenGuestEmail, view.Screen)

	_, err = s.svc.View(s.ctx, active)
	s.NoError(err)
}

func (s *ServiceSuite) TestSendCodeForwardsAddressAsTyped() {
	for _, address := range []string{"student@campus", "user@localhost", "Mixed.Case@Uni.EDU"} {
		s.Run(address, func() {
			id := s.create()
			s.dispatch(id, models.ActionStartTicket)
			s.edit(id, models.FlowStudent, map[string]any{"email": " " + address})
			s.client.EXPECT().RequestCode(gomock.Any(), address).Return(verification.Success(""))

			view := s.dispatch(id, models.ActionSendCode)
			s.Equal(models.ScreenOTP, view.Screen)
			s.Empty(view.StudentOTP.Error)
		})
	}
}

func (s *ServiceSuite) TestEvictIdleSkipsFlowJustRequested() {
	id := s.create()
	s.clock.Advance(16 * time.Minute)

	_, err := s.svc.View(s.ctx, id)
	s.Require().NoError(err)

	s.Equal(0, s.svc.EvictIdle(s.ctx, s.clock.Now()))
	s.Equal(1, s.svc.Len())
}

func (s *ServiceSuite) TestEvictIdleKeepsFlowReachedDuringSnapshot() {
	hooked := &hookStore{InMemoryStore: s.snapshots}
	s.svc = New(s.client, hooked, logger.Discard(),
		WithClock(s.clock.Now),
		WithIDGenerator(func() uuid.UUID { return fixedID }),
	)
	id := s.create()
	s.clock.Advance(16 * time.Minute)

	var reached *Flow
	hooked.onSave = func() {
		s.svc.mu.RLock()
		reached = s.svc.flows[id]
		s.svc.mu.RUnlock()
		_, err := s.svc.View(s.ctx, id)
		s.NoError(err)
	}

	s.Equal(0, s.svc.EvictIdle(s.ctx, s.clock.Now()))
	s.Require().NotNil(reached)

	s.svc.mu.RLock()
	current := s.svc.flows[id]
	s.svc.mu.RUnlock()
	s.Same(reached, current)
}

func (s *ServiceSuite) TestEnd() {
	s.uniqueIDs()
	s.Run("drops the flow and its snapshot", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartGuest)

		s.Require().NoError(s.svc.End(s.ctx, id))
		s.Equal(0, s.svc.Len())

		_, err := s.snapshots.Load(s.ctx, id)
		s.Error(err)
		_, err = s.svc.View(s.ctx, id)
		s.ErrorIs(err, ErrFlowNotFound)
		s.ErrorIs(s.svc.End(s.ctx, id), ErrFlowNotFound)
	})

	s.Run("evicted flow", func() {
		id := s.create()
		s.clock.Advance(16 * time.Minute)
		s.Require().Equal(1, s.svc.EvictIdle(s.ctx, s.clock.Now()))

		s.Require().NoError(s.svc.End(s.ctx, id))
		_, err := s.svc.View(s.ctx, id)
		s.ErrorIs(err, ErrFlowNotFound)
	})

	s.Run("busy flow", func() {
		id := s.create()
		s.dispatch(id, models.ActionStartTicket)
		s.edit(id, models.FlowStudent, map[string]any{"email": "x@y.com"})

		release := make(chan struct{})
		s.client.EXPECT().RequestCode(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, string) verification.Outcome {
				<-release
				return verification.Success("")
			})
		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.svc.Dispatch(s.ctx, id, models.ActionSendCode)
		}()
		s.Require().Eventually(func() bool {
			view, err := s.svc.View(s.ctx, id)
			return err == nil && view.Loading
		}, time.Second, 5*time.Millisecond)

		s.ErrorIs(s.svc.End(s.ctx, id), ErrBusy)
		close(release)
		<-done

		s.NoError(s.svc.End(s.ctx, id))
	})
}

func (s *ServiceSuite) TestUnknownFlow() {
	_, err := s.svc.View(s.ctx, uuid.New())
	s.ErrorIs(err, ErrFlowNotFound)

	_, err = s.svc.Dispatch(s.ctx, uuid.New(), models.ActionStartTicket)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// hookStore runs onSave before each snapshot write, once.
type hookStore struct {
	*session.InMemoryStore
	once   sync.Once
	onSave func()
}

func (h *hookStore) Save(ctx context.Context, snap models.Snapshot, ttl time.Duration) error {
	if h.onSave != nil {
		h.once.Do(h.onSave)
	}
	return h.InMemoryStore.Save(ctx, snap, ttl)
}

func TestStudentSubmitTimeoutStillReachesPayment(t *testing.T) {
	remote := fakeremote.New()
	remote.Set(fakeremote.PathSaveStudent, fakeremote.Hang(10*time.Second))
	srv := httptest.NewServer(remote.Handler())
	defer srv.Close()

	log := logger.Discard()
	outbox := reconstore.NewInMemory()
	client := verification.New(srv.URL,
		verification.WithWriteTimeout(time.Second),
		verification.WithLogger(log),
	)
	svc := New(client, nil, log, WithReconciler(reconciliation.NewRecorder(outbox, log)))
	ctx := context.Background()

	created, err := svc.Create(ctx)
	require.NoError(t, err)
	id := created.FlowID
	step := func(action models.Action) models.View {
		t.Helper()
		view, err := svc.Dispatch(ctx, id, action)
		require.NoError(t, err)
		return view
	}
	edit := func(fields map[string]any) {
		t.Helper()
		_, err := svc.EditFields(ctx, id, models.FlowStudent, fields)
		require.NoError(t, err)
	}

	step(models.ActionStartTicket)
	edit(map[string]any{"email": "asha@campus.edu"})
	step(models.ActionSendCode)
	edit(map[string]any{"otp": "123456"})
	require.Equal(t, models.ScreenRegistration, step(models.ActionVerifyCode).Screen)
	edit(map[string]any{
		"full_name":           "Asha Rao",
		"registration_number": "21BCE1001",
		"department":          "CSE",
		"year":                "2",
		"phone":               "9876543210",
	})

	start := time.Now()
	view := step(models.ActionSubmitProfile)
	elapsed := time.Since(start)

	assert.Equal(t, models.ScreenPayment, view.Screen)
	assert.Equal(t, models.PaymentPending, view.Form.Student.PaymentStatus)
	assert.False(t, view.Loading)
	assert.Less(t, elapsed, 2*time.Second)

	records := outbox.All()
	require.Len(t, records, 1)
	assert.Equal(t, reconciliation.OpSaveStudent, records[0].Operation)
	assert.Equal(t, verification.KindTransportFailure, records[0].FailureKind)
}

func TestServiceWithoutSnapshots(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := New(mocks.NewMockVerificationClient(ctrl), nil, logger.Discard())

	view, err := svc.Create(context.Background())
	require.NoError(t, err)

	evicted := svc.EvictIdle(context.Background(), time.Now().Add(time.Hour))
	assert.Equal(t, 1, evicted)

	_, err = svc.View(context.Background(), view.FlowID)
	assert.ErrorIs(t, err, ErrFlowNotFound)
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := New(mocks.NewMockVerificationClient(ctrl), nil, logger.Discard(),
		WithTickInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestPassID(t *testing.T) {
	assert.Equal(t, "VYM-S-3F2A9C1E", passID("S", fixedID))
	assert.Equal(t, "VYM-G-3F2A9C1E", passID("G", fixedID))
}
