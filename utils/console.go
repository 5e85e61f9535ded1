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

// Interactive rover console

package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/aamcrae/config"
	"github.com/aamcrae/rover/drive"
	"github.com/aamcrae/rover/robot"
	"github.com/aamcrae/rover/status"
	"github.com/abiosoft/ishell"
)

var configFile = flag.String("config", "rover.cfg", "Configuration file")

func main() {
	flag.Parse()
	conf, err := config.ParseFile(*configFile)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	c, err := robot.ParseConfig(conf)
	if err != nil {
		log.Fatalf("%s: %v", *configFile, err)
	}
	r, err := robot.New(c, nil)
	if err != nil {
		log.Fatalf("%s: %v", c.Name, err)
	}
	defer r.Close()
	r.Start()
	go r.Run()

	shell := ishell.New()
	shell.Println(c.Name + " console")
	shell.AddCmd(&ishell.Cmd{
		Name: "move",
		Help: "move <speed>",
		Func: func(ctx *ishell.Context) {
			speed, err := intArg(ctx, 0)
			if err != nil {
				ctx.Err(err)
				return
			}
			r.Drive.SetSpeed(speed)
			r.Drive.SetState(drive.Move)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "ramp down to a stop",
		Func: func(ctx *ishell.Context) {
			r.Drive.SetState(drive.Stop)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "hardstop",
		Help: "stop the motors immediately",
		Func: func(ctx *ishell.Context) {
			r.Drive.SetState(drive.HardStop)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "turn",
		Help: "turn long|inplace <amount>",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) != 2 {
				ctx.Println("turn long|inplace <amount>")
				return
			}
			st, err := drive.ParseState(ctx.Args[0] + "turn")
			if err != nil {
				ctx.Err(err)
				return
			}
			amount, err := intArg(ctx, 1)
			if err != nil {
				ctx.Err(err)
				return
			}
			r.Drive.SetTurn(amount)
			r.Drive.SetState(st)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "status off|ok|error",
		Func: func(ctx *ishell.Context) {
			if len(ctx.Args) != 1 {
				ctx.Println(r.Status.Get())
				return
			}
			code, err := status.ParseCode(ctx.Args[0])
			if err != nil {
				ctx.Err(err)
				return
			}
			r.Status.Set(code)
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "show",
		Help: "show the drive state",
		Func: func(ctx *ishell.Context) {
			s := r.Snapshot()
			ctx.Printf("%s: tick %d speed %d turn %d status %s\n", s.State, s.Ticks, s.Speed, s.Turn, s.Status)
			for i, m := range r.Drive.Motors() {
				ctx.Printf("  %-12s power %4d duty %d\n", m.Name, s.Power[i], s.Duty[i])
			}
			if s.RPM != nil {
				ctx.Printf("  rpm %.1f/%.1f\n", s.RPM[0], s.RPM[1])
			}
			if s.Line != nil {
				ctx.Printf("  line %v\n", *s.Line)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "range",
		Help: "range [angle]",
		Func: func(ctx *ishell.Context) {
			angle := 0
			if len(ctx.Args) > 0 {
				var err error
				if angle, err = intArg(ctx, 0); err != nil {
					ctx.Err(err)
					return
				}
			}
			d, err := r.Measure(angle)
			if err != nil {
				ctx.Err(err)
				return
			}
			ctx.Printf("%d degrees: %.1f cm\n", angle, d)
		},
	})
	shell.Run()
}

func intArg(ctx *ishell.Context, i int) (int, error) {
	if len(ctx.Args) <= i {
		return 0, strconv.ErrSyntax
	}
	return strconv.Atoi(ctx.Args[i])
}
