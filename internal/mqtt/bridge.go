// Package mqtt connects brains to a home automation MQTT broker. Observations
// arrive on {prefix}/{brain}/training, prediction requests on
// {prefix}/{brain}/prediction, and every answer goes to {topic}/result.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"learninghouse/internal/brain"
	"learninghouse/internal/fault"
)

const (
	trainingAction   = "training"
	predictionAction = "prediction"
	resultSuffix     = "/result"
)

// Brains is the part of the brain service the bridge drives.
type Brains interface {
	Request(ctx context.Context, name string, dependentValue any, sensorsData map[string]any) (brain.Info, error)
	Predict(ctx context.Context, name string, observation map[string]any) (brain.PredictionResult, error)
}

type Config struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
}

type TrainingMessage struct {
	DependentValue any            `json:"dependent_value"`
	SensorsData    map[string]any `json:"sensors_data"`
}

type ErrorMessage struct {
	Error       fault.Kind `json:"error"`
	Description string     `json:"description"`
}

type publishFunc func(topic string, payload []byte) error

type Bridge struct {
	client  paho.Client
	brains  Brains
	config  Config
	publish publishFunc
	log     logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc
}

func newBridge(brains Brains, config Config, log logrus.FieldLogger) *Bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &Bridge{
		brains: brains,
		config: config,
		log:    log.WithField("component", "mqtt"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Connect dials the broker and subscribes on every (re)connect.
func Connect(brains Brains, config Config, log logrus.FieldLogger) (*Bridge, error) {
	b := newBridge(brains, config, log)

	opts := paho.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	// Training may take seconds; do not block the other brains.
	opts.SetOrderMatters(false)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		b.log.WithError(err).Warn("connection to broker lost")
	})

	b.client = paho.NewClient(opts)
	b.publish = b.publishMQTT

	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		b.cancel()
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", config.Broker, token.Error())
	}
	return b, nil
}

func (b *Bridge) onConnect(client paho.Client) {
	filters := map[string]byte{
		b.filter(trainingAction):   b.config.QoS,
		b.filter(predictionAction): b.config.QoS,
	}
	token := client.SubscribeMultiple(filters, func(_ paho.Client, msg paho.Message) {
		b.handle(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		b.log.WithError(token.Error()).Error("failed to subscribe")
		return
	}
	b.log.WithField("broker", b.config.Broker).WithField("prefix", b.config.TopicPrefix).Info("subscribed to brain topics")
}

func (b *Bridge) filter(action string) string {
	return b.config.TopicPrefix + "/+/" + action
}

func (b *Bridge) publishMQTT(topic string, payload []byte) error {
	token := b.client.Publish(topic, b.config.QoS, false, payload)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// parseTopic extracts brain name and action from {prefix}/{brain}/{action}.
func (b *Bridge) parseTopic(topic string) (name, action string, ok bool) {
	rest, found := strings.CutPrefix(topic, b.config.TopicPrefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		return "", "", false
	}
	switch parts[1] {
	case trainingAction, predictionAction:
		return parts[0], parts[1], true
	}
	return "", "", false
}

func (b *Bridge) handle(topic string, payload []byte) {
	name, action, ok := b.parseTopic(topic)
	if !ok {
		b.log.WithField("topic", topic).Debug("ignoring message")
		return
	}
	log := b.log.WithField("brain", name).WithField("action", action)

	var result any
	var err error
	switch action {
	case trainingAction:
		result, err = b.train(name, payload)
	case predictionAction:
		result, err = b.predict(name, payload)
	}

	if err != nil {
		if fault.KindOf(err) == fault.Unknown {
			log.WithError(err).Error("request failed")
		} else {
			log.WithError(err).Debug("request rejected")
		}
		result = ErrorMessage{Error: fault.KindOf(err), Description: fault.Describe(err)}
	}

	body, err := json.Marshal(result)
	if err != nil {
		log.WithError(err).Error("failed to encode result")
		return
	}
	if err := b.publish(topic+resultSuffix, body); err != nil {
		log.WithError(err).Warn("failed to publish result")
	}
}

func (b *Bridge) train(name string, payload []byte) (brain.Info, error) {
	var msg TrainingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return brain.Info{}, fault.New(fault.BadRequest, name, "training payload must be {dependent_value, sensors_data}")
	}
	// A message without dependent value and sensors retrains on the logged data.
	if msg.SensorsData == nil && msg.DependentValue != nil {
		msg.SensorsData = map[string]any{}
	}
	return b.brains.Request(b.ctx, name, msg.DependentValue, msg.SensorsData)
}

func (b *Bridge) predict(name string, payload []byte) (brain.PredictionResult, error) {
	var observation map[string]any
	if err := json.Unmarshal(payload, &observation); err != nil || observation == nil {
		return brain.PredictionResult{}, fault.New(fault.BadRequest, name, "prediction payload must be a JSON object of sensor values")
	}
	return b.brains.Predict(b.ctx, name, observation)
}

// Close cancels running requests and disconnects.
func (b *Bridge) Close() {
	b.cancel()
	if b.client != nil {
		b.client.Disconnect(250)
	}
	b.log.Info("disconnected from broker")
}
