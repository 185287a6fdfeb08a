package mq

import (
	"log"

	"creditledger/internal/config"

	"github.com/IBM/sarama"
)

// Producer publishes ledger events to Kafka.
type Producer struct {
	producer sarama.SyncProducer
}

func NewProducer(producer sarama.SyncProducer) *Producer {
	return &Producer{producer: producer}
}

// InitKafka builds a producer that waits for every in-sync replica.
func InitKafka(cfg *config.KafkaConfig) *Producer {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig())
	if err != nil {
		log.Fatalf("[mq] create kafka producer: %v", err)
	}

	log.Printf("[mq] kafka producer ready: brokers=%v", cfg.Brokers)
	return NewProducer(producer)
}

func NewSaramaConfig() *sarama.Config {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true
	return kafkaConfig
}

// Send publishes one event. Events for the same key land on the same
// partition, so per-debt ordering is kept.
func (p *Producer) Send(topic, key, eventType, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(eventType)},
		},
	}

	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *Producer) Close() {
	if p == nil || p.producer == nil {
		return
	}
	if err := p.producer.Close(); err != nil {
		log.Printf("[mq] close kafka producer: %v", err)
	}
}
