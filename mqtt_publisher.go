package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTPublisher handles publishing demodulated packets to MQTT
type MQTTPublisher struct {
	client mqtt.Client
	config *MQTTConfig
	topic  string
}

// generateClientID creates a random MQTT client ID
func generateClientID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "lora_pyramid_" + hex.EncodeToString(bytes)
}

// NewMQTTPublisher creates a new MQTT publisher. Returns nil when publishing
// is disabled.
func NewMQTTPublisher(config *MQTTConfig, spreadingFactor int) (*MQTTPublisher, error) {
	if !config.Enabled {
		return nil, nil
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(generateClientID())

	if config.Username != "" {
		opts.SetUsername(config.Username)
	}
	if config.Password != "" {
		opts.SetPassword(config.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	// Set connection handlers
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		log.Println("MQTT: Broker connection up")
	})
	opts.SetConnectionLostHandler(func(client mqtt.Client, err error) {
		log.Printf("MQTT: Broker connection lost: %v", err)
	})
	opts.SetReconnectingHandler(func(client mqtt.Client, opts *mqtt.ClientOptions) {
		log.Println("MQTT: Reconnecting to broker...")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	log.Printf("MQTT: Connected to broker %s, publishing to %s/lora/sf%d",
		config.Broker, config.TopicPrefix, spreadingFactor)

	return &MQTTPublisher{
		client: client,
		config: config,
		topic:  fmt.Sprintf("%s/lora/sf%d", config.TopicPrefix, spreadingFactor),
	}, nil
}

// PublishResult publishes one demodulated packet envelope.
// Topic structure: {prefix}/lora/sf{spreading_factor}
func (mp *MQTTPublisher) PublishResult(payload []byte) error {
	if mp == nil || !mp.client.IsConnected() {
		return fmt.Errorf("MQTT not connected")
	}

	// Publish asynchronously
	token := mp.client.Publish(mp.topic, mp.config.QoS, mp.config.Retain, payload)

	// Wait for completion in background
	go func() {
		if token.Wait() && token.Error() != nil {
			log.Printf("MQTT ERROR: Failed to publish to %s: %v", mp.topic, token.Error())
		}
	}()

	return nil
}

// Disconnect gracefully disconnects from the MQTT broker
func (mp *MQTTPublisher) Disconnect() {
	if mp != nil && mp.client != nil && mp.client.IsConnected() {
		mp.client.Disconnect(250)
		log.Println("MQTT: Disconnected from broker")
	}
}
