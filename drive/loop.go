// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Fixed period control loop

package drive

import (
	"sync/atomic"
	"time"
)

// Period is the default control loop period.
const Period = 20 * time.Millisecond

// Program is called at the start of every tick, before the drive is
// updated, so that it can change the state and target speed.
// count is the number of ticks completed so far.
type Program interface {
	Step(count int, d *Drive)
}

// ProgramFunc adapts a function to a Program.
type ProgramFunc func(count int, d *Drive)

func (f ProgramFunc) Step(count int, d *Drive) {
	f(count, d)
}

// Shuttle alternately moves at Speed for Ticks ticks and then
// ramps to a stop for Ticks ticks.
type Shuttle struct {
	Speed int
	Ticks int
}

func (s Shuttle) Step(count int, d *Drive) {
	if s.Ticks <= 0 || (count/s.Ticks)%2 == 0 {
		d.SetSpeed(s.Speed)
		d.SetState(Move)
	} else {
		d.SetState(Stop)
	}
}

// Loop advances a Drive once per period.
// Each tick sleeps for whatever remains of the period after the
// update; an overrunning tick is followed immediately by the next
// one, and no attempt is made to recover the lost time.
type Loop struct {
	drive   *Drive
	period  time.Duration
	program Program
	count   int64
	now     func() time.Time
	sleep   func(time.Duration)
}

// NewLoop creates a control loop for the drive. program may be nil.
func NewLoop(d *Drive, period time.Duration, program Program) *Loop {
	if period <= 0 {
		period = Period
	}
	return &Loop{
		drive:   d,
		period:  period,
		program: program,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// Count returns the number of completed ticks.
func (l *Loop) Count() int {
	return int(atomic.LoadInt64(&l.count))
}

// Run ticks until stop is closed. A nil stop channel runs forever.
func (l *Loop) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		l.Tick()
	}
}

// Tick runs a single iteration of the loop and returns the time slept.
func (l *Loop) Tick() time.Duration {
	start := l.now()
	if l.program != nil {
		l.program.Step(l.Count(), l.drive)
	}
	l.drive.Update()
	atomic.AddInt64(&l.count, 1)
	elapsed := l.now().Sub(start)
	if elapsed >= l.period {
		return 0
	}
	l.sleep(l.period - elapsed)
	return l.period - elapsed
}
