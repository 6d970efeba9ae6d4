package broker

import (
	"github.com/IBM/sarama"
	"github.com/decred/slog"
)

// KafkaPublisher mirrors room events onto a Kafka topic. Messages are keyed
// by room id so per-room ordering survives partitioning.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	log      slog.Logger
	done     chan struct{}
}

// NewKafkaPublisher connects an async producer to the given brokers.
func NewKafkaPublisher(brokers []string, topic string, log slog.Logger) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		log:      log,
		done:     make(chan struct{}),
	}
	go p.drainErrors()
	return p, nil
}

// drainErrors logs delivery failures. Mirroring is best-effort; the room
// loop never learns about these.
func (p *KafkaPublisher) drainErrors() {
	for {
		select {
		case err, ok := <-p.producer.Errors():
			if !ok {
				return
			}
			p.log.Warnf("Failed to mirror event to broker: %v", err)
		case <-p.done:
			return
		}
	}
}

// Publish enqueues the payload for async delivery.
func (p *KafkaPublisher) Publish(roomID string, payload []byte) {
	select {
	case p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(roomID),
		Value: sarama.ByteEncoder(payload),
	}:
	default:
		p.log.Warnf("Broker queue full, dropping mirrored event for room %s", roomID)
	}
}

// Close shuts down the producer.
func (p *KafkaPublisher) Close() error {
	close(p.done)
	return p.producer.Close()
}
