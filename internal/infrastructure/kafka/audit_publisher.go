package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/jhoicas/perecederos-pos/internal/domain/entity"
	"github.com/jhoicas/perecederos-pos/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// DefaultAuditTopic tópico de auditoría si la configuración no indica otro.
const DefaultAuditTopic = "pos.audit"

var tracer = otel.Tracer("perecederos-pos/kafka")

// AuditPublisher publica eventos de auditoría en Kafka. Implementa audit.Sink.
type AuditPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *logger.Logger
}

// NewProducer crea un SyncProducer con acks de todas las réplicas.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Retry.Max = 3
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("crear productor kafka: %w", err)
	}
	return producer, nil
}

// NewAuditPublisher construye el publicador sobre un productor existente.
func NewAuditPublisher(producer sarama.SyncProducer, topic string, log *logger.Logger) *AuditPublisher {
	if topic == "" {
		topic = DefaultAuditTopic
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AuditPublisher{producer: producer, topic: topic, log: log}
}

// Write serializa el evento en JSON y lo publica con la clave de la tienda, de modo que los
// eventos de una misma tienda conservan su orden dentro de la partición. El contexto de traza
// viaja en los headers.
func (p *AuditPublisher) Write(ctx context.Context, ev entity.AuditEvent) error {
	ctx, span := tracer.Start(ctx, "kafka.publish.audit",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", p.topic),
			attribute.String("audit.action", ev.Action),
			attribute.String("audit.severity", ev.Severity),
		),
	)
	defer span.End()

	body, err := json.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "marshal")
		return fmt.Errorf("serializar evento de auditoría: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers := []sarama.RecordHeader{
		{Key: []byte("event_type"), Value: []byte(ev.Action)},
		{Key: []byte("event_id"), Value: []byte(ev.ID)},
		{Key: []byte("severity"), Value: []byte(ev.Severity)},
	}
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     sarama.StringEncoder(ev.StoreID),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send")
		return fmt.Errorf("publicar auditoría en %s: %w", p.topic, err)
	}
	span.SetAttributes(
		attribute.Int("messaging.kafka.partition", int(partition)),
		attribute.Int64("messaging.kafka.offset", offset),
	)
	p.log.WithContext(ctx).Debug().
		Str("audit_id", ev.ID).
		Str("action", ev.Action).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("audit event published")
	return nil
}

// Close cierra el productor.
func (p *AuditPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
