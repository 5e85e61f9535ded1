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

package status

import (
	"fmt"
	"io"
	"sync"

	rerrors "github.com/aamcrae/rover/errors"
)

// Strip is an addressable LED strip showing a single colour.
type Strip struct {
	enc  *Encoder
	w    io.Writer
	leds int
	mu   sync.Mutex // Guards last
	last Frame
}

// Limiter is implemented by outputs with a largest single transfer.
type Limiter interface {
	MaxTransfer() int
}

// NewStrip creates a strip of leds LEDs whose encoded frames are written to w.
// w must write each frame as one uninterrupted transfer; if w is a
// Limiter, a frame must fit in one transfer.
func NewStrip(enc *Encoder, w io.Writer, leds int) (*Strip, error) {
	if enc == nil || w == nil {
		return nil, rerrors.Invalid("strip", "", "encoder and output are required")
	}
	if leds <= 0 {
		return nil, rerrors.Invalid("strip", "leds", "%d", leds)
	}
	if l, ok := w.(Limiter); ok && enc.Size(leds) > l.MaxTransfer() {
		return nil, rerrors.Invalid("strip", "leds", "%d LEDs need %d bytes, output takes at most %d", leds, enc.Size(leds), l.MaxTransfer())
	}
	return &Strip{enc: enc, w: w, leds: leds, last: NewFrame(leds, Black)}, nil
}

// Len returns the number of LEDs.
func (s *Strip) Len() int {
	return s.leds
}

// Show sets every LED to c.
func (s *Strip) Show(c Color) error {
	f := NewFrame(s.leds, c)
	b := s.enc.Encode(f)
	n, err := s.w.Write(b)
	if err == nil && n != len(b) {
		err = fmt.Errorf("short write (%d of %d bytes)", n, len(b))
	}
	if err != nil {
		return fmt.Errorf("strip: %v", err)
	}
	s.mu.Lock()
	s.last = f
	s.mu.Unlock()
	return nil
}

// Render shows the status colour, or black when on is false.
func (s *Strip) Render(c Code, on bool) error {
	if !on {
		c = Off
	}
	return s.Show(c.Color())
}

// Frame returns a copy of the last frame written.
func (s *Strip) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append(Frame(nil), s.last...)
}
