// Package clock lets services read the current time through an injected source
// so that expiry and suppression windows can be tested deterministically.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// NewReal returns the system clock in UTC. Use it only in cmd/.
func NewReal() Clock { return realClock{} }

func NewFixed(t time.Time) Clock { return fixedClock{t: t} }
