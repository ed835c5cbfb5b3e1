// Package timer implements the OTP resend cooldown. A Countdown never starts
// goroutines: time only moves when the owner pushes ticks in.
package timer

// DefaultSeconds is the resend cooldown used when none is configured.
const DefaultSeconds = 60

// Countdown counts whole seconds down to zero. It is not safe for concurrent
// use; the owning flow serialises access.
type Countdown struct {
	remaining int
}

// New returns an idle countdown that allows an immediate resend.
func New() *Countdown {
	return &Countdown{}
}

// Restore returns a countdown that resumes from remaining seconds.
func Restore(remaining int) *Countdown {
	c := &Countdown{}
	c.Arm(remaining)
	return c
}

// Arm starts (or restarts) the cooldown. Arming an already running countdown
// replaces its remaining time; there is still a single decrement source.
func (c *Countdown) Arm(seconds int) {
	if seconds < 0 {
		seconds = 0
	}
	c.remaining = seconds
}

// Tick applies one elapsed second. It returns true on the tick that brings the
// countdown to zero.
func (c *Countdown) Tick() bool {
	if c.remaining == 0 {
		return false
	}
	c.remaining--
	return c.remaining == 0
}

// Advance applies n elapsed seconds at once.
func (c *Countdown) Advance(n int) {
	if n <= 0 {
		return
	}
	if n >= c.remaining {
		c.remaining = 0
		return
	}
	c.remaining -= n
}

// Release stops the countdown immediately.
func (c *Countdown) Release() {
	c.remaining = 0
}

func (c *Countdown) Remaining() int {
	return c.remaining
}

// CanResend reports whether a new code may be requested.
func (c *Countdown) CanResend() bool {
	return c.remaining == 0
}

func (c *Countdown) Running() bool {
	return c.remaining > 0
}
