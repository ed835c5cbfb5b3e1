package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/trace/noop"
)

type ClientSuite struct {
	suite.Suite
	mux      *http.ServeMux
	server   *httptest.Server
	client   *Client
	lastBody map[string]any
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

// SetupTest is also called at the start of each s.Run case to get a fresh mux.
func (s *ClientSuite) SetupTest() {
	if s.server != nil {
		s.server.Close()
	}
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	s.client = New(s.server.URL+"/",
		WithWriteTimeout(200*time.Millisecond),
		WithTracer(noop.NewTracerProvider().Tracer("verification-test")),
	)
	s.lastBody = nil
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) handle(path string, status int, body string) {
	s.mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("application/json", r.Header.Get("Content-Type"))
		s.NoError(json.NewDecoder(r.Body).Decode(&s.lastBody))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func (s *ClientSuite) TestRequestCode() {
	s.Run("success", func() {
		s.SetupTest()
		s.handle("/api/send-otp", http.StatusOK, `{"success":true}`)
		out := s.client.RequestCode(context.Background(), "a@uni.edu")
		s.True(out.OK())
		s.Equal("a@uni.edu", s.lastBody["email"])
	})

	s.Run("rejected with message", func() {
		s.SetupTest()
		s.handle("/api/send-otp", http.StatusOK, `{"success":false,"message":"bad"}`)
		out := s.client.RequestCode(context.Background(), "a@uni.edu")
		s.Equal(KindRejected, out.Kind)
		s.Equal("bad", out.Message)
	})

	s.Run("non JSON body", func() {
		s.SetupTest()
		s.handle("/api/send-otp", http.StatusBadGateway, `<html>bad gateway</html>`)
		out := s.client.RequestCode(context.Background(), "a@uni.edu")
		s.Equal(KindRejected, out.Kind)
		s.Equal(MessageMalformedResponse, out.Message)
	})
}

func (s *ClientSuite) TestConfirmCode() {
	s.Run("verified", func() {
		s.SetupTest()
		s.handle("/api/verify-otp", http.StatusOK, `{"verified":true}`)
		out := s.client.ConfirmCode(context.Background(), "a@uni.edu", "123456")
		s.True(out.OK())
		s.Equal("123456", s.lastBody["otp"])
	})

	s.Run("not verified is a rejection", func() {
		s.SetupTest()
		s.handle("/api/verify-otp", http.StatusOK, `{"verified":false,"message":"expired"}`)
		out := s.client.ConfirmCode(context.Background(), "a@uni.edu", "123456")
		s.Equal(KindRejected, out.Kind)
		s.Equal("expired", out.Message)
	})
}

func (s *ClientSuite) TestSubmitStudent() {
	s.Run("payload shape", func() {
		s.SetupTest()
		s.handle("/api/save-student", http.StatusOK, `{"success":true}`)
		out := s.client.SubmitStudent(context.Background(), StudentProfile{
			Name: "A", RegNo: "1", Department: "CS", Year: "2",
			Email: "a@uni.edu", Phone: "999", PaymentStatus: "pending",
		})
		s.True(out.OK())
		s.Equal("1", s.lastBody["regNo"])
		s.Equal("pending", s.lastBody["paymentStatus"])
	})

	s.Run("non 2xx is a rejection", func() {
		s.SetupTest()
		s.handle("/api/save-student", http.StatusInternalServerError, `{"success":true}`)
		out := s.client.SubmitStudent(context.Background(), StudentProfile{Name: "A"})
		s.Equal(KindRejected, out.Kind)
		s.Contains(out.Message, "500")
	})
}

func (s *ClientSuite) TestSubmitGuestTimeout() {
	release := make(chan struct{})
	defer close(release)
	s.mux.HandleFunc("/api/save-guest", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	start := time.Now()
	out := s.client.SubmitGuest(context.Background(), GuestProfile{Name: "G"})
	s.Equal(KindTransportFailure, out.Kind)
	s.Error(out.Err)
	s.Less(time.Since(start), 2*time.Second)
}

func (s *ClientSuite) TestConfirmPayment() {
	s.handle("/api/update-payment-status", http.StatusOK, `{"success":false,"message":"unknown transaction"}`)
	out := s.client.ConfirmPayment(context.Background(), PaymentUpdate{
		Email: "a@uni.edu", TransactionID: "TXN1", PaymentStatus: "completed",
	})
	s.Equal(KindRejected, out.Kind)
	s.Equal("TXN1", s.lastBody["transactionId"])
}

func TestConfirmPaymentOutlivesWriteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	out := New(srv.URL, WithWriteTimeout(10*time.Millisecond)).ConfirmPayment(context.Background(), PaymentUpdate{
		Email: "a@uni.edu", TransactionID: "TXN1", PaymentStatus: "completed",
	})
	assert.True(t, out.OK())
}

func TestConfirmPaymentNon2xxIsRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	out := New(srv.URL).ConfirmPayment(context.Background(), PaymentUpdate{Email: "a@uni.edu", TransactionID: "TXN1"})
	assert.Equal(t, KindRejected, out.Kind)
	assert.Equal(t, "HTTP error! status: 502", out.Message)
}

func TestRequestCodeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	out := New(url).RequestCode(context.Background(), "a@uni.edu")
	require.Equal(t, KindTransportFailure, out.Kind)
	assert.NotEmpty(t, out.Message)
}

func TestVerifyHasNoClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`{"verified":true}`))
	}))
	defer srv.Close()

	out := New(srv.URL, WithWriteTimeout(10*time.Millisecond)).ConfirmCode(context.Background(), "a@uni.edu", "123456")
	assert.True(t, out.OK())
}
