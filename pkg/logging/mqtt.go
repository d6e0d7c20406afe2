// Copyright 2026 HydraIP Developers
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package logging

import (
	"context"
	"io"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTWriter is a log output that ships log lines to an MQTT topic,
// so long running update sessions can be followed centrally.
type MQTTWriter interface {
	io.Writer
	// Enable or disable shipping. Disabled writers buffer (and drop)
	// silently.
	Enable(enable bool)
	// SetDestination sets the topic and client used for shipping.
	SetDestination(topic string, client mqtt.Client)
}

type mqttLogger struct {
	mutex  sync.Mutex
	queue  chan []byte
	topic  string
	client mqtt.Client
	enable bool
}

const (
	mqttQueueSize      = 512
	mqttPublishTimeout = time.Second * 5
)

// NewMQTTWriter creates a new MQTT output for logs.
// The sender goroutine stops when the given context is canceled.
func NewMQTTWriter(ctx context.Context) MQTTWriter {
	l := &mqttLogger{
		queue: make(chan []byte, mqttQueueSize),
	}
	go l.run(ctx)
	return l
}

// Write queues a log line for shipping. When the queue is full the
// oldest entry is dropped; logging must never block the caller.
func (l *mqttLogger) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	msg := make([]byte, len(p))
	copy(msg, p)
	for attempt := 0; attempt < 10; attempt++ {
		select {
		case l.queue <- msg:
			return len(p), nil
		default:
			// Queue full; Take 1 out and try again
			select {
			case <-l.queue:
				// Continue
			default:
				// Also continue
			}
		}
	}
	// Ignore errors
	return len(p), nil
}

func (l *mqttLogger) Enable(enable bool) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.enable = enable
}

func (l *mqttLogger) SetDestination(topic string, client mqtt.Client) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.topic = topic
	l.client = client
}

func (l *mqttLogger) run(ctx context.Context) {
	for {
		l.mutex.Lock()
		client := l.client
		topic := l.topic
		enabled := l.enable
		l.mutex.Unlock()

		if enabled && topic != "" && client != nil {
			select {
			case msg := <-l.queue:
				token := client.Publish(topic, 0, false, msg)
				token.WaitTimeout(mqttPublishTimeout)
			case <-ctx.Done():
				return
			}
		} else {
			select {
			case <-time.After(time.Second):
				// Continue
			case <-ctx.Done():
				return
			}
		}
	}
}
