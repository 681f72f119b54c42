// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/gpx_logger/internal/gps"
)

// FixMessage is the MQTT payload published for every logged fix.
type FixMessage struct {
	gps.Fix
	Session string `json:"session"`  // logging session id
	GPXFile string `json:"gpx_file"` // file the fix was appended to
}

// Publisher sends fixes to interested subscribers.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

func connectMQTT(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	log.Infof("connected to MQTT broker at %s as %s", broker, clientID)
	return client, nil
}

type mqttPublisher struct {
	client mqtt.Client
}

// NewMQTTPublisher connects to broker. Messages are retained so late
// subscribers see the latest fix at once.
func NewMQTTPublisher(broker, clientID string) (Publisher, error) {
	client, err := connectMQTT(broker, clientID)
	if err != nil {
		return nil, err
	}
	return &mqttPublisher{client: client}, nil
}

func (p *mqttPublisher) Publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, 0, true, payload)
	token.Wait()
	return token.Error()
}

func (p *mqttPublisher) Close() {
	p.client.Disconnect(250)
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte) error { return nil }
func (nopPublisher) Close()                       {}

// subscribeFixes delivers decoded FixMessages from topic to handle.
func subscribeFixes(client mqtt.Client, topic string, handle func(FixMessage)) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		m, err := decodeFixMessage(msg.Payload())
		if err != nil {
			log.Warnf("fix unmarshal error: %v", err)
			return
		}
		handle(m)
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, token.Error())
	}
	log.Infof("subscribed to MQTT topic %s", topic)
	return nil
}

func decodeFixMessage(payload []byte) (FixMessage, error) {
	var m FixMessage
	err := json.Unmarshal(payload, &m)
	return m, err
}
