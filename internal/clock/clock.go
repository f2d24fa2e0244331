// Package clock supplies the time source the core consumes as an external
// collaborator: a real implementation for production use and a
// fake one tests can advance deterministically.
package clock

import "time"

// Clock abstracts "now" and "sleep" so the offset reconciliation core,
// discovery rounds and the update transport can be driven by a fake clock
// in tests without real delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
	After(d time.Duration) <-chan time.Time
}

// System is the production Clock, backed directly by the time package.
type System struct{}

func (System) Now() time.Time                  { return time.Now() }
func (System) Sleep(d time.Duration)            { time.Sleep(d) }
func (System) After(d time.Duration) <-chan time.Time { return time.After(d) }
