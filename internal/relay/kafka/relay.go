// Package kafka transports transfer messages between domains over Kafka.
// Each source→destination lane is one single-partition topic, which gives
// the in-order, at-least-once delivery the gateways are designed against.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/gateway"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// LaneTopic names the topic for one source→destination lane.
func LaneTopic(sourceDomain, destDomain string) string {
	return fmt.Sprintf("transfers.%s.%s", sourceDomain, destDomain)
}

// Relay sends outbound transfer messages onto their lane topic.
type Relay struct {
	writer *kafka.Writer
}

func NewRelay(brokers []string) *Relay {
	return &Relay{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// Send publishes the message to its lane topic. Keying by lane keeps the
// messages of one lane on one partition, preserving send order.
func (r *Relay) Send(ctx context.Context, msg models.TransferMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	topic := LaneTopic(msg.SourceDomain, msg.DestDomain)
	return r.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(topic),
		Value: data,
	})
}

func (r *Relay) Close() error {
	return r.writer.Close()
}

var _ interfaces.Relay = (*Relay)(nil)

// Consumer reads one inbound lane and feeds each message to the local
// gateway's inbound leg. Offsets commit only after the gateway has
// processed a message, so a crash re-delivers it (at-least-once); the
// gateway's message dedup turns those replays into no-ops.
type Consumer struct {
	reader  *kafka.Reader
	gateway *gateway.Gateway
	log     *logrus.Entry
}

func NewConsumer(brokers []string, sourceDomain, localDomain string, gw *gateway.Gateway, log *logrus.Logger) *Consumer {
	topic := LaneTopic(sourceDomain, localDomain)
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: "ledger-" + localDomain,
			Topic:   topic,
		}),
		gateway: gw,
		log:     log.WithField("lane", topic),
	}
}

// Run consumes the lane until the context is canceled or a transient
// processing error forces a restart. Messages that fail validation are
// committed and dropped: redelivering them can never succeed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		msg, err := models.DecodeTransferMessage(m.Value)
		if err != nil {
			c.log.WithError(err).WithField("offset", m.Offset).Warn("dropping undecodable transfer message")
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				return fmt.Errorf("commit poison message: %w", err)
			}
			continue
		}

		credited, err := c.gateway.ReleaseOrMint(ctx, msg)
		if err != nil {
			if gateway.IsValidationFailed(err) {
				c.log.WithError(err).WithField("message_id", msg.MessageID).Warn("dropping transfer rejected by policy")
				if err := c.reader.CommitMessages(ctx, m); err != nil {
					return fmt.Errorf("commit rejected message: %w", err)
				}
				continue
			}
			// Transient (store) failure: leave the offset uncommitted so
			// the message is redelivered.
			return fmt.Errorf("release or mint %s: %w", msg.MessageID, err)
		}

		c.log.WithFields(logrus.Fields{
			"message_id": msg.MessageID,
			"receiver":   msg.Receiver,
			"credited":   credited,
		}).Info("inbound transfer credited")

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			return fmt.Errorf("commit message %s: %w", msg.MessageID, err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
