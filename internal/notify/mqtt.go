// Package notify publishes run-completion events to an MQTT broker so other
// systems can react to finished transcriptions without polling the API.
package notify

import (
	"encoding/json"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
)

type Notifier struct {
	conn      mqtt.Client
	topic     string
	connected atomic.Bool
	log       zerolog.Logger
}

type Options struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	Log       zerolog.Logger
}

// Connect establishes the broker connection. The client auto-reconnects;
// publishes while disconnected are dropped with a warning rather than
// blocking a transcription run.
func Connect(opts Options) (*Notifier, error) {
	n := &Notifier{
		topic: opts.Topic,
		log:   opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(n.onConnect).
		SetConnectionLostHandler(n.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	n.conn = mqtt.NewClient(clientOpts)
	token := n.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	return n, nil
}

// Publish sends a JSON payload to the configured topic at QoS 0.
func (n *Notifier) Publish(payload any) {
	if !n.connected.Load() {
		n.log.Warn().Str("topic", n.topic).Msg("mqtt disconnected, dropping notification")
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		n.log.Error().Err(err).Msg("marshal notification")
		return
	}
	n.conn.Publish(n.topic, 0, false, data)
}

func (n *Notifier) Connected() bool { return n.connected.Load() }

func (n *Notifier) Close() {
	n.conn.Disconnect(250)
}

func (n *Notifier) onConnect(mqtt.Client) {
	n.connected.Store(true)
	n.log.Info().Str("topic", n.topic).Msg("mqtt connected")
}

func (n *Notifier) onConnectionLost(_ mqtt.Client, err error) {
	n.connected.Store(false)
	n.log.Warn().Err(err).Msg("mqtt connection lost")
}
