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

// One-wire addressable LED (WS2812 class) bit stream encoding

package status

import (
	"fmt"
	"strings"
	"time"

	rerrors "github.com/aamcrae/rover/errors"
)

// Order is the order the colour channels are sent on the wire.
type Order int

const (
	OrderGRB Order = iota // WS2812 and most clones
	OrderRGB
)

// ParseOrder converts "grb" or "rgb" to an Order.
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grb":
		return OrderGRB, nil
	case "rgb":
		return OrderRGB, nil
	}
	return OrderGRB, fmt.Errorf("unknown colour order %q", s)
}

// Timing describes the shape of one transmitted bit in cycles of
// the output clock. A 1 is high for T1+T2 cycles then low for T3,
// a 0 is high for T1 then low for T2+T3. Latch is the minimum low
// time after the last bit for the LEDs to show the new colours.
type Timing struct {
	Hz         int
	T1, T2, T3 int
	Latch      time.Duration
}

// WS2812 is 2:5:3 cycles at 8MHz, giving a 1.25µs bit.
var WS2812 = Timing{Hz: 8_000_000, T1: 2, T2: 5, T3: 3, Latch: 50 * time.Microsecond}

const bitsPerLed = 24

// Frame is the colour of each LED in strip order.
type Frame []Color

// NewFrame returns a frame of n LEDs all set to c.
func NewFrame(n int, c Color) Frame {
	f := make(Frame, n)
	for i := range f {
		f[i] = c
	}
	return f
}

// Encoder converts frames into the sampled line levels of the
// one-wire protocol, packed MSB first, one sample per clock cycle.
// Writing the result to a shift register clocked at Timing.Hz
// (e.g a SPI bus) generates the line signal.
type Encoder struct {
	timing    Timing
	order     Order
	width     int    // cycles per bit
	one, zero uint64 // sample patterns of each bit value
	latch     int    // cycles of latch
}

// NewEncoder validates the timing and precomputes the bit patterns.
func NewEncoder(t Timing, order Order) (*Encoder, error) {
	if t.Hz <= 0 {
		return nil, rerrors.Invalid("encoder", "clock", "%d Hz", t.Hz)
	}
	if t.T1 <= 0 || t.T2 <= 0 || t.T3 <= 0 || t.T1+t.T2+t.T3 > 64 {
		return nil, rerrors.Invalid("encoder", "timing", "%d:%d:%d", t.T1, t.T2, t.T3)
	}
	if t.Latch <= 0 {
		return nil, rerrors.Invalid("encoder", "latch", "%s", t.Latch)
	}
	e := &Encoder{timing: t, order: order}
	e.width = t.T1 + t.T2 + t.T3
	e.one = highBits(t.T1+t.T2, e.width)
	e.zero = highBits(t.T1, e.width)
	// Round the latch up to whole cycles.
	e.latch = int((t.Latch.Nanoseconds()*int64(t.Hz) + 999_999_999) / 1_000_000_000)
	return e, nil
}

// highBits returns a pattern of n samples, the first h high.
func highBits(h, n int) uint64 {
	return ((uint64(1) << h) - 1) << (n - h)
}

// BitPeriod is the duration of one transmitted bit.
func (e *Encoder) BitPeriod() time.Duration {
	return time.Duration(int64(e.width) * int64(time.Second) / int64(e.timing.Hz))
}

// LatchCycles is the number of low cycles sent after the frame.
func (e *Encoder) LatchCycles() int {
	return e.latch
}

// Size is the encoded length in bytes of a frame of n LEDs.
func (e *Encoder) Size(n int) int {
	return (n*bitsPerLed*e.width + e.latch + 7) / 8
}

// Encode returns the line samples for the frame followed by the latch.
// The output depends only on the frame.
func (e *Encoder) Encode(f Frame) []byte {
	w := bitWriter{buf: make([]byte, 0, e.Size(len(f)))}
	for _, c := range f {
		v := e.wire(c)
		for i := bitsPerLed - 1; i >= 0; i-- {
			if v&(1<<i) != 0 {
				w.put(e.one, e.width)
			} else {
				w.put(e.zero, e.width)
			}
		}
	}
	for n := e.latch; n > 0; n -= 64 {
		if n > 64 {
			w.put(0, 64)
		} else {
			w.put(0, n)
		}
	}
	return w.flush()
}

// Decode recovers the frame from encoded samples. Decoding stops at
// the first bit period that is entirely low.
func (e *Encoder) Decode(b []byte) (Frame, error) {
	r := bitReader{buf: b}
	var f Frame
	var v uint32
	n := 0
	for r.left() >= e.width {
		s := r.get(e.width)
		switch s {
		case 0:
			if n != 0 {
				return f, fmt.Errorf("frame ends after %d bits of LED %d", n, len(f))
			}
			return f, nil
		case e.one:
			v = v<<1 | 1
		case e.zero:
			v <<= 1
		default:
			return f, fmt.Errorf("LED %d bit %d: bad pulse %0*b", len(f), n, e.width, s)
		}
		if n++; n == bitsPerLed {
			f = append(f, e.logical(v))
			v, n = 0, 0
		}
	}
	return f, fmt.Errorf("no latch after %d LEDs", len(f))
}

// wire reorders a colour into transmission order.
func (e *Encoder) wire(c Color) uint32 {
	if e.order == OrderGRB {
		return uint32(c.G())<<16 | uint32(c.R())<<8 | uint32(c.B())
	}
	return uint32(c) & 0xFFFFFF
}

func (e *Encoder) logical(v uint32) Color {
	if e.order == OrderGRB {
		return RGB(uint8(v>>8), uint8(v>>16), uint8(v))
	}
	return Color(v)
}

// bitWriter packs samples MSB first.
type bitWriter struct {
	buf  []byte
	acc  uint64
	bits int
}

func (w *bitWriter) put(v uint64, n int) {
	for i := n - 1; i >= 0; i-- {
		w.acc = w.acc<<1 | (v>>i)&1
		if w.bits++; w.bits == 8 {
			w.buf = append(w.buf, byte(w.acc))
			w.acc, w.bits = 0, 0
		}
	}
}

// flush pads the final byte with low samples.
func (w *bitWriter) flush() []byte {
	if w.bits != 0 {
		w.buf = append(w.buf, byte(w.acc<<(8-w.bits)))
		w.acc, w.bits = 0, 0
	}
	return w.buf
}

type bitReader struct {
	buf []byte
	pos int // in bits
}

func (r *bitReader) left() int {
	return len(r.buf)*8 - r.pos
}

func (r *bitReader) get(n int) uint64 {
	var v uint64
	for i := 0; i < n; i++ {
		bit := r.buf[r.pos/8] >> (7 - r.pos%8) & 1
		v = v<<1 | uint64(bit)
		r.pos++
	}
	return v
}
