/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package sio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang/glog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTT is a Couplings that reads messages from subscribed topics and
// publishes Reports to an out-bound topic.
type MQTT struct {
	Client mqtt.Client

	// Quiesce is the disconnection quiescence in milliseconds.
	Quiesce uint

	// SubTopics is a comma-separated list of TOPIC[:QOS].
	SubTopics string

	// OutTopic, which can be TOPIC:QOS, receives Reports.
	OutTopic string

	// InTimeout bounds how long an in-bound message waits to be
	// queued.
	InTimeout time.Duration

	incoming chan interface{}
	outbound chan *Result
	done     chan bool
	wg       sync.WaitGroup
}

// MQTTOptions makes client options for the broker.
func MQTTOptions(broker, clientID string, keepAlive time.Duration) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(10 * time.Second)
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		glog.Warningf("MQTT connection lost: %s", err)
	}
	return opts
}

// NewMQTT makes MQTT Couplings with a new paho client.
func NewMQTT(opts *mqtt.ClientOptions, subTopics, outTopic string) *MQTT {
	return &MQTT{
		Client:    mqtt.NewClient(opts),
		Quiesce:   100,
		SubTopics: subTopics,
		OutTopic:  outTopic,
		InTimeout: 5 * time.Second,
		incoming:  make(chan interface{}),
		outbound:  make(chan *Result),
		done:      make(chan bool),
	}
}

func (c *MQTT) consume(ctx context.Context, topic string, payload []byte) {
	msg, err := ParseMessage(payload)
	if err != nil {
		glog.Warningf("ignoring message on %s: %s", topic, err)
		return
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		glog.V(1).Infof("not forwarding due to ctx.Done()")
	case c.incoming <- msg:
		glog.V(2).Infof("forwarded incoming %s", JShort(json.RawMessage(payload)))
	case <-to.C:
		glog.Warningf("not forwarding due to stall ('%s','%s')", topic, payload)
	}
}

// Start creates the MQTT session and subscribes.
func (c *MQTT) Start(ctx context.Context) error {
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	glog.Infof("connected to broker")

	handler := func(client mqtt.Client, msg mqtt.Message) {
		c.consume(ctx, msg.Topic(), msg.Payload())
	}

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
		glog.Infof("subscribed to %s (%d)", topic, qos)
	}

	return nil
}

// IO starts a loop to publish out-bound Reports.
func (c *MQTT) IO(ctx context.Context) (chan interface{}, chan *Result, chan bool, error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.outLoop(ctx)
	}()
	return c.incoming, c.outbound, c.done, nil
}

func (c *MQTT) outLoop(ctx context.Context) {
	topic, qos := parseTopic(c.OutTopic)
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-c.outbound:
			if r == nil {
				return
			}
			rep := NewReport(r)
			if rep.Empty() {
				continue
			}
			js, err := json.Marshal(rep)
			if err != nil {
				glog.Errorf("failed to marshal %#v", rep)
				continue
			}
			token := c.Client.Publish(topic, qos, false, js)
			if token.Wait() && token.Error() != nil {
				glog.Errorf("publish error: %s", token.Error())
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTT) Stop(context.Context) error {
	c.Client.Disconnect(c.Quiesce)
	c.wg.Wait()
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return s, 0
	}
	var qos byte
	if _, err := fmt.Sscanf(s[i+1:], "%d", &qos); err != nil || 2 < qos {
		return s, 0
	}
	return s[:i], qos
}
