package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/IBM/sarama"
)

// KafkaSender публикует VerificationCode в топик Kafka (ключ — email).
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
	ttl      time.Duration
	now      func() time.Time
	observe  func(status string)
}

// NewKafkaSender создаёт синхронного producer'а с подтверждением от всех реплик.
// ttl — время жизни кода, по нему вычисляется expires_at.
func NewKafkaSender(brokers []string, topic string, ttl time.Duration) (*KafkaSender, error) {
	const op = "notify.kafka.NewKafkaSender"

	if len(brokers) == 0 {
		return nil, fmt.Errorf("%s: %w", op, errors.New("kafka brokers required"))
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_7_0_0
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return NewKafkaSenderWithProducer(producer, topic, ttl), nil
}

// NewKafkaSenderWithProducer оборачивает готового producer'а.
func NewKafkaSenderWithProducer(producer sarama.SyncProducer, topic string, ttl time.Duration) *KafkaSender {
	return &KafkaSender{
		producer: producer,
		topic:    topic,
		ttl:      ttl,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetObserver регистрирует колбэк с исходом публикации ("success"/"error").
func (s *KafkaSender) SetObserver(fn func(status string)) {
	s.observe = fn
}

// SendCode публикует код подтверждения.
func (s *KafkaSender) SendCode(ctx context.Context, email, code string) error {
	const op = "notify.kafka.SendCode"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	payload, err := json.Marshal(VerificationCode{
		Email:     email,
		Code:      code,
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, _, err = s.producer.SendMessage(&sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(email),
		Value: sarama.ByteEncoder(payload),
	})

	if s.observe != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		s.observe(status)
	}

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает producer'а.
func (s *KafkaSender) Close() error {
	if s.producer == nil {
		return nil
	}

	return s.producer.Close()
}
