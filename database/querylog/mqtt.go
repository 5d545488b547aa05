package querylog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is the MQTT topic for query records
const DefaultTopic = "dbal/queries"

// ErrPublishTimeout is returned when the broker does not acknowledge a
// record in time
var ErrPublishTimeout = errors.New("query log publish timed out")

// Publisher sends MQTT messages. mqtt.Client satisfies it.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTEngine publishes query records as JSON messages
type MQTTEngine struct {
	client  Publisher
	topic   string
	qos     byte
	timeout time.Duration
}

// NewMQTTEngine creates an engine publishing to topic
func NewMQTTEngine(client Publisher, topic string, qos byte, timeout time.Duration) *MQTTEngine {
	if topic == "" {
		topic = DefaultTopic
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MQTTEngine{client: client, topic: topic, qos: qos, timeout: timeout}
}

// MQTTOptions configures DialMQTT
type MQTTOptions struct {
	Broker   string        `mapstructure:"broker" yaml:"broker"`
	ClientID string        `mapstructure:"client_id" yaml:"client_id,omitempty"`
	Username string        `mapstructure:"username" yaml:"username,omitempty"`
	Password string        `mapstructure:"password" yaml:"password,omitempty"`
	Topic    string        `mapstructure:"topic" yaml:"topic,omitempty"`
	QoS      byte          `mapstructure:"qos" yaml:"qos,omitempty"`
	Timeout  time.Duration `mapstructure:"timeout" yaml:"timeout,omitempty"`
}

// DialMQTT connects to a broker and returns an engine on it. The returned
// close function disconnects.
func DialMQTT(opts MQTTOptions) (*MQTTEngine, func(), error) {
	co := mqtt.NewClientOptions()
	co.AddBroker(opts.Broker)
	co.SetClientID(opts.ClientID)
	if opts.Username != "" {
		co.SetUsername(opts.Username)
		co.SetPassword(opts.Password)
	}
	co.SetCleanSession(true)
	co.SetAutoReconnect(true)

	engine := NewMQTTEngine(nil, opts.Topic, opts.QoS, opts.Timeout)
	co.SetConnectTimeout(engine.timeout)

	client := mqtt.NewClient(co)
	token := client.Connect()
	if !token.WaitTimeout(engine.timeout) {
		return nil, nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	engine.client = client
	return engine, func() { client.Disconnect(250) }, nil
}

type mqttRecord struct {
	Connection string  `json:"connection,omitempty"`
	Query      string  `json:"query"`
	TookMS     float64 `json:"took_ms"`
	Rows       int64   `json:"rows"`
	Error      string  `json:"error,omitempty"`
	Time       string  `json:"time"`
}

// Log publishes q and waits for the broker acknowledgement
func (e *MQTTEngine) Log(_ context.Context, q LoggedQuery) error {
	rec := mqttRecord{
		Connection: q.Connection,
		Query:      q.Interpolate(),
		TookMS:     float64(q.Took) / float64(time.Millisecond),
		Rows:       q.NumRows,
		Time:       time.Now().UTC().Format(time.RFC3339Nano),
	}
	if q.Err != nil {
		rec.Error = q.Err.Error()
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode query record: %w", err)
	}

	token := e.client.Publish(e.topic, e.qos, false, payload)
	if !token.WaitTimeout(e.timeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}
