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

// Package status presents the machine status on a status LED and an
// addressable RGB LED strip.
package status

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Color is a logical 24 bit colour packed as 0xRRGGBB.
type Color uint32

const (
	Black Color = 0x000000
	White Color = 0xFFFFFF
	Red   Color = 0xFF0000
)

// RGB packs the channels into a Color.
func RGB(r, g, b uint8) Color {
	return Color(r)<<16 | Color(g)<<8 | Color(b)
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

func (c Color) String() string {
	return fmt.Sprintf("#%06x", uint32(c)&0xFFFFFF)
}

// Code is the machine status.
type Code int32

const (
	Off Code = iota
	Ok
	Error
)

var codeNames = []string{"off", "ok", "error"}

// Colors binds each status to the colour shown on the strip.
var Colors = map[Code]Color{
	Ok:    White,
	Error: Red,
	Off:   Black,
}

// Color returns the colour for the status; unknown codes are black.
func (c Code) Color() Color {
	return Colors[c]
}

func (c Code) String() string {
	if c < Off || c > Error {
		return fmt.Sprintf("code(%d)", int(c))
	}
	return codeNames[c]
}

// ParseCode converts a status name to a Code.
func ParseCode(name string) (Code, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, s := range codeNames {
		if s == n {
			return Code(i), nil
		}
	}
	return Off, fmt.Errorf("unknown status %q", name)
}

// Shared is the machine status, set by whichever component owns
// it and read by the blinker from its own goroutine.
type Shared struct {
	code int32
}

// NewShared creates a Shared status holding c.
func NewShared(c Code) *Shared {
	return &Shared{code: int32(c)}
}

func (s *Shared) Get() Code {
	return Code(atomic.LoadInt32(&s.code))
}

func (s *Shared) Set(c Code) {
	atomic.StoreInt32(&s.code, int32(c))
}
