// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/engagefeed/internal/config"
)

// Transport backends.
const (
	BackendGoChannel = "gochannel"
	BackendNATS      = "nats"
)

// PubSub is a publisher/subscriber pair on one transport.
type PubSub struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber
	Backend    string

	closers []func() error
}

// NewPubSub opens the transport selected by cfg.Backend. For NATS, url
// overrides cfg.NATSURL when non-empty (the embedded server's client URL).
func NewPubSub(cfg *config.EventsConfig, url string, logger watermill.LoggerAdapter) (*PubSub, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	switch cfg.Backend {
	case BackendGoChannel, "":
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: cfg.OutputBuffer,
		}, logger)
		return &PubSub{
			Publisher:  ch,
			Subscriber: ch,
			Backend:    BackendGoChannel,
			closers:    []func() error{ch.Close},
		}, nil
	case BackendNATS:
		if url == "" {
			url = cfg.NATSURL
		}
		return newNATSPubSub(url, logger)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

func natsOptions(logger watermill.LoggerAdapter) []natsgo.Option {
	return []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

func newNATSPubSub(url string, logger watermill.LoggerAdapter) (*PubSub, error) {
	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOptions(logger),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: "engagefeed",
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		CloseTimeout:     30 * time.Second,
		NatsOptions:      natsOptions(logger),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			AutoProvision: true,
			DurablePrefix: "engagefeed-persist",
			SubscribeOptions: []natsgo.SubOpt{
				natsgo.DeliverAll(),
				natsgo.AckExplicit(),
				natsgo.MaxDeliver(10),
			},
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &PubSub{
		Publisher:  pub,
		Subscriber: sub,
		Backend:    BackendNATS,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}

// Close closes the subscriber then the publisher.
func (p *PubSub) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
