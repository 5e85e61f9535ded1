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

// Four wheel differential drive coordination

package drive

import (
	"fmt"
	"log"
	"strings"
	"sync"

	rerrors "github.com/aamcrae/rover/errors"
)

// State selects the update rule applied to the motors on each tick.
type State int

const (
	HardStop    State = iota // Remove drive immediately
	Stop                     // Ramp all motors down to zero
	Move                     // Ramp all motors towards the target speed
	LongTurn                 // Reserved, currently leaves the motors unchanged
	InPlaceTurn              // Reserved, currently leaves the motors unchanged
)

var stateNames = []string{"hardstop", "stop", "move", "longturn", "inplaceturn"}

func (s State) String() string {
	if s < HardStop || s > InPlaceTurn {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// ParseState converts a state name (as returned by String) to a State.
func ParseState(name string) (State, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range stateNames {
		if s == n {
			return State(i), nil
		}
	}
	return Stop, fmt.Errorf("unknown drive state %q", name)
}

// Motor positions.
const (
	FrontLeft = iota
	FrontRight
	BackLeft
	BackRight
	Motors
)

// Snapshot is a consistent copy of the drive state taken between ticks.
type Snapshot struct {
	State State
	Speed int
	Turn  int
	Power [Motors]int
	Duty  [Motors]uint32
}

// Drive coordinates the four motors of the chassis. The state,
// target speed and turn are set externally; Update advances every
// motor by one step of the current state's rule.
// The motors must be wired so that the same positive power drives
// every wheel forward.
type Drive struct {
	mu     sync.Mutex // Guards all fields below
	motors [Motors]*Motor
	state  State
	speed  int
	turn   int
	failed [Motors]bool // Output failure already reported
}

// NewDrive creates a Drive from the four motors, and sets them to
// zero power.
func NewDrive(fl, fr, bl, br *Motor) (*Drive, error) {
	d := &Drive{motors: [Motors]*Motor{fl, fr, bl, br}, state: Stop}
	for i, m := range d.motors {
		if m == nil {
			return nil, rerrors.Invalid("drive", "motor", "motor %d missing", i)
		}
		m.SetPower(0)
	}
	d.applyAll()
	return d, nil
}

// Motors returns the motors in FrontLeft, FrontRight, BackLeft, BackRight order.
func (d *Drive) Motors() [Motors]*Motor {
	return d.motors
}

// SetState selects the rule used on the next update.
func (d *Drive) SetState(s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = s
}

// SetSpeed sets the target speed used by Move, clamped to [-MaxPower, MaxPower].
func (d *Drive) SetSpeed(speed int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.speed = clamp(speed, -MaxPower, MaxPower)
}

// SetTurn sets the turn magnitude, clamped to [0, MaxPower].
func (d *Drive) SetTurn(turn int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.turn = clamp(turn, 0, MaxPower)
}

// State returns the current state.
func (d *Drive) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Snapshot returns a copy of the drive and motor state.
func (d *Drive) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{State: d.state, Speed: d.speed, Turn: d.turn}
	for i, m := range d.motors {
		s.Power[i] = m.Power()
		s.Duty[i] = m.Duty()
	}
	return s
}

// Update applies one tick of the current state to all four motors
// and writes the new duty cycles to the outputs.
func (d *Drive) Update() {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case HardStop:
		for _, m := range d.motors {
			m.SetPower(0)
		}
	case Stop:
		for _, m := range d.motors {
			m.SetPower(ramp(m.Power(), 0))
		}
	case Move:
		for _, m := range d.motors {
			m.SetPower(ramp(m.Power(), d.speed))
		}
	case LongTurn, InPlaceTurn:
		// TODO: apply the turn offset to the left and right side targets.
		return
	default:
		return
	}
	d.applyAll()
}

// applyAll writes every motor's outputs. A failing motor is reported
// once, and again when it recovers; the remaining motors are still written.
func (d *Drive) applyAll() {
	for i, m := range d.motors {
		err := m.Apply()
		switch {
		case err != nil && !d.failed[i]:
			log.Printf("drive: %v", err)
			d.failed[i] = true
		case err == nil && d.failed[i]:
			log.Printf("drive: %s: output recovered", m.Name)
			d.failed[i] = false
		}
	}
}

// ramp moves p one unit towards target.
func ramp(p, target int) int {
	switch {
	case p < target:
		return p + 1
	case p > target:
		return p - 1
	}
	return p
}
