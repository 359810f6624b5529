// Package consumer feeds provider notifications forwarded over Kafka into the payment reconciler.
package consumer

import (
	"context"
	"net/http"
	"parking/config"
	"parking/infras/kafka"
	"parking/internal/domains/payment/model/dto"
	"parking/internal/domains/payment/service"
	"parking/shared/failure"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

type ProviderEvents struct {
	client  kafka.Client
	payment service.Payment
	cfg     *config.Config
}

func New(client kafka.Client, payment service.Payment, cfg *config.Config) *ProviderEvents {
	return &ProviderEvents{
		client:  client,
		payment: payment,
		cfg:     cfg,
	}
}

// Run blocks until ctx is done.
func (c *ProviderEvents) Run(ctx context.Context) {
	log.Info().Str("topic", c.cfg.Kafka.Topics.ProviderEvents).Msg("consuming provider events")

	c.client.Consume(ctx, c.cfg.Kafka.ConsumerGroup, c.cfg.Kafka.Topics.ProviderEvents, c.Handle)
}

// Handle returns an error only for failures worth redelivering. Messages that can never
// succeed are logged and acknowledged.
func (c *ProviderEvents) Handle(ctx context.Context, msg kafkaGo.Message) error {
	envelope, err := kafka.DecodeKafkaMessage[dto.ProviderEnvelope](msg)
	if err != nil {
		log.Error().Err(err).Int64("offset", msg.Offset).Msg("dropping undecodable provider event")

		return nil
	}

	err = c.payment.HandleWebhook(ctx, envelope.Payload, envelope.Signature)
	if err == nil {
		return nil
	}

	code := failure.GetCode(err)
	if code < http.StatusInternalServerError || code == http.StatusServiceUnavailable {
		log.Warn().Err(err).Int64("offset", msg.Offset).Msg("dropping rejected provider event")

		return nil
	}

	return err //nolint:wrapcheck
}

func (c *ProviderEvents) Close() error {
	return c.client.Close() //nolint:wrapcheck
}
