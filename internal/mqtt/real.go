package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/bottle-cap-monitor/internal/logger"
	"github.com/sweeney/bottle-cap-monitor/internal/logic"
)

// backlogLimit bounds how many messages are held while disconnected.
const backlogLimit = 256

const publishTimeout = 5 * time.Second

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are buffered and replayed
// in order once it comes back.
type RealPublisher struct {
	client paho.Client
	log    *logger.Logger

	mu            sync.Mutex
	backlog       *backlog
	connectedOnce bool
}

// NewRealPublisher creates a publisher for the given broker. Connection
// happens in the background with automatic retry; the control loop never
// waits on the broker.
func NewRealPublisher(broker, clientID string, log *logger.Logger) *RealPublisher {
	p := &RealPublisher{
		log:     log,
		backlog: newBacklog(backlogLimit, log),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     "LWT",
		Reason:    "connection lost",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// Publish sends an inspection event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(bufferedMsg{topic: Topic, payload: payload})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) so lifecycle events survive a flaky link
	return p.publish(bufferedMsg{topic: TopicSystem, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if p.client.IsConnectionOpen() {
		// Anything still held goes out first to keep order.
		pending := p.backlog.drain()
		p.mu.Unlock()
		for _, m := range pending {
			p.send(m)
		}
		p.send(msg)
		return nil
	}
	p.backlog.push(msg)
	p.mu.Unlock()

	// The link may have come up, and onConnect drained, between the check
	// and the push.
	if p.client.IsConnectionOpen() {
		p.flush()
	}
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	go p.await(msg.topic, token)
}

// flush sends everything held in the backlog, oldest first.
func (p *RealPublisher) flush() {
	p.mu.Lock()
	pending := p.backlog.drain()
	p.mu.Unlock()
	for _, msg := range pending {
		p.send(msg)
	}
}

// await reports the delivery outcome off the control path.
func (p *RealPublisher) await(topic string, token paho.Token) {
	if !token.WaitTimeout(publishTimeout) {
		p.log.Warnw("mqtt publish timeout", "topic", topic)
		return
	}
	if err := token.Error(); err != nil {
		p.log.Warnw("mqtt publish failed", "topic", topic, "err", err)
	}
}

// Backlog reports how many messages are waiting for the broker and how many
// have been dropped on overflow since startup.
func (p *RealPublisher) Backlog() (pending, dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlog.len(), p.backlog.dropped
}

// IsConnected reports whether the broker connection is currently open.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	pending := p.backlog.drain()
	reconnect := p.connectedOnce
	p.connectedOnce = true
	p.mu.Unlock()

	p.log.Infow("mqtt connected", "replay", len(pending))

	// Runs on paho's goroutine; fire without waiting on tokens.
	for _, msg := range pending {
		c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		c.Publish(TopicSystem, 1, false, payload)
	}
}

func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.log.Warnw("mqtt connection lost", "err", err)
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
