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

// MQTT telemetry and command bridge

package robot

import (
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Telemetry publishes snapshots of the robot to <topic>/telemetry
// and applies commands received on <topic>/command.
type Telemetry struct {
	robot    *Robot
	client   mqtt.Client
	topic    string
	interval time.Duration
	stop     chan struct{}
}

// NewTelemetry creates the MQTT client. The broker is a URL such as
// tcp://localhost:1883.
func NewTelemetry(r *Robot, broker, topic string, interval time.Duration) *Telemetry {
	t := &Telemetry{robot: r, topic: topic, interval: interval, stop: make(chan struct{})}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(r.Name)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(c mqtt.Client) {
		log.Printf("%s: connected to MQTT broker %s", r.Name, broker)
		// Subscriptions are lost across reconnects.
		c.Subscribe(t.topic+"/command", 0, t.onCommand)
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		log.Printf("%s: MQTT connection lost: %v", r.Name, err)
	}
	t.client = mqtt.NewClient(opts)
	return t
}

// Start connects to the broker in the background and starts publishing.
func (t *Telemetry) Start() {
	t.client.Connect()
	go t.publisher()
}

// Close stops publishing and disconnects.
func (t *Telemetry) Close() {
	close(t.stop)
	t.client.Disconnect(250)
}

func (t *Telemetry) publisher() {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			if !t.client.IsConnectionOpen() {
				continue
			}
			b, err := t.payload()
			if err != nil {
				log.Printf("%s: telemetry: %v", t.robot.Name, err)
				continue
			}
			t.client.Publish(t.topic+"/telemetry", 0, false, b)
		}
	}
}

func (t *Telemetry) payload() ([]byte, error) {
	return json.Marshal(t.robot.Snapshot())
}

func (t *Telemetry) onCommand(c mqtt.Client, msg mqtt.Message) {
	var cmd Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		log.Printf("%s: bad command on %s: %v", t.robot.Name, msg.Topic(), err)
		return
	}
	if err := t.robot.Apply(cmd); err != nil {
		log.Printf("%s: command: %v", t.robot.Name, err)
	}
}
