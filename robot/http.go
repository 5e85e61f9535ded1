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

// HTTP server for the rover state

package robot

import (
	"fmt"
	"log"
	"math"
	"net/http"

	"github.com/aamcrae/rover/drive"
	"github.com/fogleman/gg"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

const (
	imgSize = 400
	ringR   = 150.0
	ledR    = 10.0
	barW    = 30.0
	barH    = 80.0
)

// Router returns the HTTP handlers:
//
//	GET /state       JSON snapshot
//	PUT /command     JSON command
//	GET /status.png  image of the strip and motor power
func (r *Robot) Router() http.Handler {
	m := chi.NewRouter()
	m.Get("/state", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, r.Snapshot())
	})
	m.Put("/command", func(w http.ResponseWriter, req *http.Request) {
		var cmd Command
		err := render.DecodeJSON(req.Body, &cmd)
		if err == nil {
			err = r.Apply(cmd)
		}
		if err != nil {
			render.Status(req, http.StatusBadRequest)
			render.JSON(w, req, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, req, r.Snapshot())
	})
	m.Get("/status.png", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		if err := r.Image().EncodePNG(w); err != nil {
			log.Printf("%s: error writing image: %v", r.Name, err)
		}
	})
	return m
}

// Serve runs the HTTP server on the port.
func (r *Robot) Serve(port int) error {
	url := fmt.Sprintf(":%d", port)
	log.Printf("%s: starting server on %s", r.Name, url)
	server := &http.Server{Addr: url, Handler: r.Router()}
	return server.ListenAndServe()
}

// Image draws the strip as a ring of LEDs, with the motor power
// as bars in the middle, laid out as the wheels are.
func (r *Robot) Image() *gg.Context {
	s := r.Snapshot()
	c := gg.NewContext(imgSize, imgSize)
	c.SetRGB(0.1, 0.1, 0.1)
	c.Clear()
	mid := float64(imgSize) / 2
	f := r.Strip.Frame()
	for i, col := range f {
		radians := float64(i)*2*math.Pi/float64(len(f)) - math.Pi/2
		x := ringR*math.Cos(radians) + mid
		y := ringR*math.Sin(radians) + mid
		c.DrawCircle(x, y, ledR)
		c.SetRGB255(int(col.R()), int(col.G()), int(col.B()))
		c.FillPreserve()
		c.SetRGB(0.5, 0.5, 0.5)
		c.SetLineWidth(1)
		c.Stroke()
	}
	for i, p := range s.Power {
		// Left motors on the left, front motors at the top.
		x := mid - 2*barW
		if i == drive.FrontRight || i == drive.BackRight {
			x = mid + barW
		}
		y := mid - barH/2 - 10
		if i == drive.BackLeft || i == drive.BackRight {
			y = mid + barH/2 + 10
		}
		h := float64(p) / drive.MaxPower * barH / 2
		c.DrawRectangle(x, y-h, barW, h)
		if p >= 0 {
			c.SetRGB(0, 0.8, 0)
		} else {
			c.SetRGB(0.8, 0, 0)
		}
		c.Fill()
		c.SetRGB(0.6, 0.6, 0.6)
		c.DrawLine(x, y, x+barW, y)
		c.Stroke()
	}
	c.SetRGB(1, 1, 1)
	c.DrawStringAnchored(fmt.Sprintf("%s %d", s.State, s.Speed), mid, mid, 0.5, 0.5)
	c.DrawStringAnchored(s.Status, mid, mid+15, 0.5, 0.5)
	return c
}
