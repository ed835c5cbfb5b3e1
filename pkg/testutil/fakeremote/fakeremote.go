// Package fakeremote is an in-process stand-in for the verification and
// registration service. Each endpoint can be scripted to succeed, reject,
// hang or answer garbage.
package fakeremote

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Endpoint paths served by the fake.
const (
	PathSendOTP       = "/api/send-otp"
	PathVerifyOTP     = "/api/verify-otp"
	PathSaveStudent   = "/api/save-student"
	PathSaveGuest     = "/api/save-guest"
	PathUpdatePayment = "/api/update-payment-status"
)

// Behavior is how an endpoint answers.
type Behavior struct {
	Status  int
	Body    string
	Delay   time.Duration
	Dropped bool // close the connection without answering
}

var (
	Accept  = Behavior{Status: http.StatusOK, Body: `{"success":true,"verified":true}`}
	Garbage = Behavior{Status: http.StatusOK, Body: `<html>oops</html>`}
	Dropped = Behavior{Dropped: true}
)

// Reject answers success=false / verified=false with message.
func Reject(message string) Behavior {
	body, _ := json.Marshal(map[string]any{"success": false, "verified": false, "message": message})
	return Behavior{Status: http.StatusOK, Body: string(body)}
}

// Hang delays the answer by d.
func Hang(d time.Duration) Behavior {
	return Behavior{Status: http.StatusOK, Body: Accept.Body, Delay: d}
}

// Call is one request received by the fake.
type Call struct {
	Path string
	Body map[string]any
}

// Server scripts the remote service. The zero value is not usable; call New.
type Server struct {
	mu        sync.Mutex
	behaviors map[string]Behavior
	calls     []Call
	codes     map[string]string
}

// New returns a fake that accepts everything. Codes are only checked when
// registered with ExpectCode.
func New() *Server {
	return &Server{
		behaviors: make(map[string]Behavior),
		codes:     make(map[string]string),
	}
}

// Set scripts path to answer with b.
func (s *Server) Set(path string, b Behavior) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors[path] = b
}

// ExpectCode makes verify-otp accept only code for email.
func (s *Server) ExpectCode(email, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[email] = code
}

// Calls returns the requests received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the requests received on path.
func (s *Server) CallsTo(path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears scripted behaviors, expected codes and recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behaviors = make(map[string]Behavior)
	s.codes = make(map[string]string)
	s.calls = nil
}

// Handler returns the HTTP handler of the fake.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	for _, path := range []string{PathSendOTP, PathVerifyOTP, PathSaveStudent, PathSaveGuest, PathUpdatePayment} {
		r.Post(path, s.serve)
	}
	return r
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	s.mu.Lock()
	s.calls = append(s.calls, Call{Path: r.URL.Path, Body: body})
	b, scripted := s.behaviors[r.URL.Path]
	if !scripted && r.URL.Path == PathVerifyOTP {
		b = s.verifyLocked(body)
	} else if !scripted {
		b = Accept
	}
	s.mu.Unlock()

	if b.Delay > 0 {
		select {
		case <-time.After(b.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if b.Dropped {
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
		panic(http.ErrAbortHandler)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.Status)
	_, _ = w.Write([]byte(b.Body))
}

func (s *Server) verifyLocked(body map[string]any) Behavior {
	email, _ := body["email"].(string)
	want, ok := s.codes[email]
	if !ok {
		return Accept
	}
	if got, _ := body["otp"].(string); got != want {
		return Reject("Invalid OTP")
	}
	return Accept
}
