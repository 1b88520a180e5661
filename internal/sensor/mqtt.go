package sensor

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/greenhouse-controller/internal/control"
)

// DefaultTopic is the topic the greenhouse sensor node publishes to.
const DefaultTopic = "greenhouse/sensors"

// MQTTSource receives readings published by the sensor node.
type MQTTSource struct {
	client paho.Client
	topic  string
	ch     chan control.Reading

	// The paho client delivers messages on its own goroutines; mu keeps
	// deliveries from racing the channel close during shutdown.
	mu     sync.Mutex
	closed bool
}

// NewMQTTSource connects to the broker and subscribes to the sensor topic.
func NewMQTTSource(broker, topic string) (*MQTTSource, error) {
	s := &MQTTSource{
		topic: topic,
		ch:    make(chan control.Reading, 1),
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("greenhouse-controller-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			// Resubscribe after every (re)connect.
			token := c.Subscribe(topic, 0, s.onMessage)
			go func() {
				token.Wait()
				if err := token.Error(); err != nil {
					log.Printf("sensor: subscribe %s: %v", topic, err)
				}
			}()
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("sensor broker connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to sensor broker: %w", err)
	}

	s.client = client
	return s, nil
}

func (s *MQTTSource) onMessage(_ paho.Client, msg paho.Message) {
	r, err := ParseReading(msg.Payload(), time.Now())
	if err != nil {
		// Malformed payloads never reach the control loop.
		log.Printf("sensor: dropping payload on %s: %v", msg.Topic(), err)
		return
	}
	s.deliver(r)
}

// deliver hands a reading to the control loop, dropping it if the source
// has been closed. Broker callbacks can still fire while Close runs.
func (s *MQTTSource) deliver(r control.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	offer(s.ch, r)
}

// Readings returns the reading channel.
func (s *MQTTSource) Readings() <-chan control.Reading {
	return s.ch
}

// Close unsubscribes and disconnects from the broker. Safe to call more
// than once.
func (s *MQTTSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()

	// Wait the unsubscribe out so the broker stops sending before we drop
	// the network connection.
	token := s.client.Unsubscribe(s.topic)
	if !token.WaitTimeout(2 * time.Second) {
		log.Printf("sensor: unsubscribe %s timed out", s.topic)
	} else if err := token.Error(); err != nil {
		log.Printf("sensor: unsubscribe %s: %v", s.topic, err)
	}
	s.client.Disconnect(1000)
	return nil
}
