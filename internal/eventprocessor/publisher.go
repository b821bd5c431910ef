// Loglens - Server Access Log Analytics and Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/loglens

//go:build nats

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/loglens/internal/logging"
	"github.com/tomtom215/loglens/internal/metrics"
	"github.com/tomtom215/loglens/internal/models"
)

// Publisher wraps a Watermill NATS publisher with a circuit breaker.
type Publisher struct {
	publisher      message.Publisher
	subject        string
	circuitBreaker *gobreaker.CircuitBreaker[any]
	mu             sync.RWMutex
	closed         bool
}

// NewPublisher creates a Watermill NATS publisher for JetStream with
// message-ID deduplication. The stream must already exist.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLogger())
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Stream is created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		subject:   cfg.Subject,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[any]) {
	p.circuitBreaker = cb
}

// Publish sends a message with circuit breaker protection. The message
// UUID is used as Nats-Msg-Id when none is set.
func (p *Publisher) Publish(_ context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (any, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	metrics.RecordPublish(err)
	return err
}

// PublishEvent serializes and publishes one security event.
func (p *Publisher) PublishEvent(ctx context.Context, event *models.SecurityEvent) error {
	data, err := SerializeEvent(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("threat_type", string(event.ThreatType))
	msg.Metadata.Set("severity", string(event.Severity))
	msg.Metadata.Set("ip_address", event.IPAddress)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set("correlation_id", id)
	}

	return p.Publish(ctx, Topic(p.subject, event), msg)
}

// PublishSecurityEvents publishes every event. It stops early when the
// breaker is open and returns the joined errors of failed events.
func (p *Publisher) PublishSecurityEvents(ctx context.Context, events []models.SecurityEvent) error {
	var errs []error
	for i := range events {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		err := p.PublishEvent(ctx, &events[i])
		if err == nil {
			continue
		}
		errs = append(errs, fmt.Errorf("publish event %s: %w", events[i].EventID, err))
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, ErrPublisherClosed) {
			return fmt.Errorf("%d of %d events not published: %w",
				len(events)-i, len(events), errors.Join(errs...))
		}
	}
	return errors.Join(errs...)
}

// Close shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
