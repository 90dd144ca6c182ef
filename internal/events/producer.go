package events

import (
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/tabla-live/tabla-server/internal/obslog"
	"go.uber.org/zap"
)

// Event types emitted over the game lifecycle.
const (
	TypeGameCreated   = "game.created"
	TypeDiceRolled    = "dice.rolled"
	TypeMoveMade      = "move.made"
	TypeGameFinished  = "game.finished"
	TypeClaimSettled  = "claim.settled"
	TypeTournamentNew = "tournament.created"
)

// Event is the message published to Kafka after a committed transition.
type Event struct {
	Type      string         `json:"type"`
	GameID    string         `json:"game_id,omitempty"`
	Actor     string         `json:"actor,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Producer publishes lifecycle events asynchronously. A nil Producer is a
// no-op so callers don't need to guard the disabled case.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true

	ap, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	p := &Producer{producer: ap, topic: topic}
	go p.drainErrors()
	return p, nil
}

func (p *Producer) drainErrors() {
	for err := range p.producer.Errors() {
		obslog.L().Warn("event_publish_error", zap.Error(err))
	}
}

// Emit publishes one event, keyed by game ID so per-game ordering survives
// partitioning. Delivery is best effort; game state never depends on it.
func (p *Producer) Emit(ev Event) {
	if p == nil || p.producer == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		obslog.L().Warn("event_marshal_error", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Value: sarama.ByteEncoder(raw),
	}
	if ev.GameID != "" {
		msg.Key = sarama.StringEncoder(ev.GameID)
	}
	p.producer.Input() <- msg
}

func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}
