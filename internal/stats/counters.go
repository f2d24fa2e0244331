// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package stats tracks protocol-level counters an operator can watch to
// tell a healthy deployment from one losing frames, desyncing clients, or
// aborting updates.
package stats

import (
	"strconv"
	"sync/atomic"
)

// Counters holds every counter this stack exposes. All fields are
// accessed via atomic operations so any goroutine may bump them.
type Counters struct {
	FramesSent          atomic.Uint64
	FramesReceived      atomic.Uint64
	DecryptFailures     atomic.Uint64
	FilterRejections    atomic.Uint64
	ParseFailures       atomic.Uint64
	Timeouts            atomic.Uint64
	RecoveryEvents      atomic.Uint64
	DiscoveryRounds     atomic.Uint64
	DiscoveryCollisions atomic.Uint64
	UpdateAborts        atomic.Uint64
	UpdatesCompleted    atomic.Uint64
}

// Default is the process-wide counters instance, used the same way as a
// single package-level SNMP counter block.
var Default = &Counters{}

// Header returns the CSV column names in the same order as ToSlice.
func (*Counters) Header() []string {
	return []string{
		"FramesSent", "FramesReceived", "DecryptFailures", "FilterRejections",
		"ParseFailures", "Timeouts", "RecoveryEvents", "DiscoveryRounds",
		"DiscoveryCollisions", "UpdateAborts", "UpdatesCompleted",
	}
}

// ToSlice renders every counter as a string, in Header order, for CSV
// logging.
func (c *Counters) ToSlice() []string {
	return []string{
		itoa(c.FramesSent.Load()),
		itoa(c.FramesReceived.Load()),
		itoa(c.DecryptFailures.Load()),
		itoa(c.FilterRejections.Load()),
		itoa(c.ParseFailures.Load()),
		itoa(c.Timeouts.Load()),
		itoa(c.RecoveryEvents.Load()),
		itoa(c.DiscoveryRounds.Load()),
		itoa(c.DiscoveryCollisions.Load()),
		itoa(c.UpdateAborts.Load()),
		itoa(c.UpdatesCompleted.Load()),
	}
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}
