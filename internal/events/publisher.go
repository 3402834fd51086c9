// Engagefeed - Engagement-Driven Content Feed and Interaction Learning
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/engagefeed

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/engagefeed/internal/metrics"
	"github.com/tomtom215/engagefeed/internal/models"
)

// Publisher publishes interaction events onto one topic.
type Publisher struct {
	pub   message.Publisher
	topic string

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub for topic.
func NewPublisher(pub message.Publisher, topic string) *Publisher {
	return &Publisher{pub: pub, topic: topic}
}

// Topic returns the topic events are published to.
func (p *Publisher) Topic() string {
	return p.topic
}

// PublishInteraction validates and publishes ev. The message UUID is the
// event id so consumers and JetStream can deduplicate on it.
func (p *Publisher) PublishInteraction(ctx context.Context, ev *models.InteractionEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	data, err := MarshalInteraction(ev)
	if err != nil {
		return err
	}

	msg := message.NewMessage(ev.ID, data)
	msg.SetContext(ctx)
	msg.Metadata.Set("action", string(ev.Action))
	msg.Metadata.Set("user_id", ev.UserID)

	err = p.pub.Publish(p.topic, msg)
	metrics.RecordPublish(p.topic, err)
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close marks the publisher closed. The underlying transport is owned by
// PubSub and closed there.
func (p *Publisher) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}
