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

// Rover program

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aamcrae/config"
	"github.com/aamcrae/rover/drive"
	"github.com/aamcrae/rover/robot"
	"github.com/caarlos0/env/v6"
)

// EnvConfig holds the environment overrides. Flags take precedence.
type EnvConfig struct {
	Config  string `env:"ROVER_CONFIG" envDefault:"rover.cfg"`
	Broker  string `env:"ROVER_MQTT_BROKER"`
	Port    int    `env:"ROVER_HTTP_PORT" envDefault:"0"`
	Program string `env:"ROVER_PROGRAM" envDefault:"none"`
}

var ENV = parseEnv()

func parseEnv() *EnvConfig {
	e := new(EnvConfig)
	if err := env.Parse(e); err != nil {
		log.Fatalf("environment: %v", err)
	}
	return e
}

var configFile = flag.String("config", ENV.Config, "Configuration file")
var broker = flag.String("broker", ENV.Broker, "MQTT broker URL, overrides the config file")
var port = flag.Int("port", ENV.Port, "Web server port number, overrides the config file")
var program = flag.String("program", ENV.Program, "Drive program (shuttle or none)")

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
	if *broker != "" {
		c.Broker = *broker
	}
	if *port != 0 {
		c.Port = *port
	}
	var p drive.Program
	switch *program {
	case "none", "":
	case "shuttle":
		p = drive.Shuttle{Speed: drive.MaxPower, Ticks: 250}
	default:
		log.Fatalf("%s: unknown program", *program)
	}
	r, err := robot.New(c, p)
	if err != nil {
		log.Fatalf("%s: %v", c.Name, err)
	}
	defer r.Close()
	r.Start()
	if c.Port != 0 {
		go func() {
			log.Fatal(r.Serve(c.Port))
		}()
	}
	if c.Broker != "" {
		t := robot.NewTelemetry(r, c.Broker, c.Topic, c.Interval)
		t.Start()
		defer t.Close()
	}
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Printf("%s: %v, stopping", c.Name, s)
		r.Close()
	}()
	log.Printf("%s: running", c.Name)
	r.Run()
}
