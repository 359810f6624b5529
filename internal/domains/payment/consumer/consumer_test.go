package consumer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"parking/config"
	"parking/infras/kafka"
	kafkaMocks "parking/infras/kafka/mocks"
	"parking/internal/domains/payment/consumer"
	paymentMocks "parking/internal/domains/payment/mocks"
	"parking/internal/domains/payment/model/dto"
	"parking/shared/failure"

	kafkaGo "github.com/segmentio/kafka-go"
)

func TestProviderEvents_Handle(t *testing.T) {
	envelope := kafka.Message{
		Key:   "evt_1",
		Value: dto.ProviderEnvelope{Payload: []byte(`{"id":"evt_1"}`), Signature: "t=1,v1=abc"},
	}

	valid, err := envelope.ToKafkaMessage("parking.provider-events")
	assert.NoError(t, err)

	tests := []struct {
		name      string
		msg       kafkaGo.Message
		setupMock func(payment *paymentMocks.MockPayment)
		wantErr   bool
	}{
		{
			name: "applied",
			msg:  valid,
			setupMock: func(payment *paymentMocks.MockPayment) {
				payment.EXPECT().HandleWebhook(gomock.Any(), []byte(`{"id":"evt_1"}`), "t=1,v1=abc").Return(nil)
			},
		},
		{
			name:    "undecodable message is dropped",
			msg:     kafkaGo.Message{Value: []byte("garbage")},
			wantErr: false,
		},
		{
			name: "rejected signature is dropped",
			msg:  valid,
			setupMock: func(payment *paymentMocks.MockPayment) {
				payment.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(failure.BadRequestFromString("invalid_signature"))
			},
		},
		{
			name: "payments disabled is dropped",
			msg:  valid,
			setupMock: func(payment *paymentMocks.MockPayment) {
				payment.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(failure.Disabled("payments_disabled"))
			},
		},
		{
			name: "store failure is redelivered",
			msg:  valid,
			setupMock: func(payment *paymentMocks.MockPayment) {
				payment.EXPECT().HandleWebhook(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("could not serialize access"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			payment := paymentMocks.NewMockPayment(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(payment)
			}

			c := consumer.New(kafkaMocks.NewMockClient(ctrl), payment, &config.Config{})

			err := c.Handle(context.Background(), tt.msg)
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			assert.NoError(t, err)
		})
	}
}

func TestProviderEvents_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	cfg := &config.Config{}
	cfg.Kafka.ConsumerGroup = "parking-worker"
	cfg.Kafka.Topics.ProviderEvents = "parking.provider-events"

	client := kafkaMocks.NewMockClient(ctrl)
	client.EXPECT().Consume(gomock.Any(), "parking-worker", "parking.provider-events", gomock.Any())

	consumer.New(client, paymentMocks.NewMockPayment(ctrl), cfg).Run(context.Background())
}
