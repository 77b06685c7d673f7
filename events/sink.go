// Copyright 2024 The coreclient Authors
// This file is part of the coreclient library.
//
// The coreclient library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The coreclient library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the coreclient library. If not, see <http://www.gnu.org/licenses/>.

// Package events is an external EventSink the Client's worker loop can
// publish NewBlockFilter/NewPendingFilter change events to, for observers
// that live outside this process (SPEC_FULL §4.5.1) — mirroring in
// Kafka what the in-process filter.Registry already delivers to local
// watches. Grounded on datasync/chaindatafetcher/event/kafka/kafka.go's
// AsyncProducer setup, trimmed to publish-only (this module has no
// consumer-side use for Kafka).
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Shopify/sarama"
	uuid "github.com/hashicorp/go-uuid"

	"github.com/ground-x/coreclient/common"
	"github.com/ground-x/coreclient/log"
)

var logger = log.NewModuleLogger(log.EventSink)

// Topic names this module publishes to.
const (
	TopicNewBlock   = "new-block"
	TopicNewPending = "new-pending"
)

// NewBlockEvent is the payload published to TopicNewBlock.
type NewBlockEvent struct {
	Hash   common.Hash
	Number uint64
}

// NewPendingEvent is the payload published to TopicNewPending.
type NewPendingEvent struct {
	Hash common.Hash
}

// Sink is an external event publisher. A nil *Sink is valid and every
// method on it is a no-op, so the Client can carry an EventSink field
// unconditionally and only pay for Kafka when brokers are configured.
type Sink struct {
	producer sarama.AsyncProducer
}

// New dials brokers and returns a Sink publishing under clientID-prefixed
// producer identity. An empty brokers list yields a nil Sink (events
// disabled), the same "optional collaborator" shape startNetwork/Network
// follows.
func New(clientID string, brokers []string) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, nil
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Return.Successes = false

	id, err := uuid.GenerateUUID()
	if err != nil {
		return nil, err
	}
	config.ClientID = fmt.Sprintf("%s-%s", clientID, id)

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}
	return &Sink{producer: producer}, nil
}

func (s *Sink) publish(topic string, payload interface{}) {
	if s == nil || s.producer == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("failed to marshal event", "topic", topic, "err", err)
		return
	}
	s.producer.Input() <- &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(topic),
		Value: sarama.ByteEncoder(data),
	}
}

// PublishNewBlock notifies external observers of a newly imported block,
// the Kafka mirror of the in-process NewBlockFilter fan-out (spec §4.1
// phase 2/3).
func (s *Sink) PublishNewBlock(hash common.Hash, number uint64) {
	s.publish(TopicNewBlock, NewBlockEvent{Hash: hash, Number: number})
}

// PublishNewPending notifies external observers that a new transaction
// entered `post`, the Kafka mirror of NewPendingFilter.
func (s *Sink) PublishNewPending(hash common.Hash) {
	s.publish(TopicNewPending, NewPendingEvent{Hash: hash})
}

// Close shuts the producer down. Safe to call on a nil Sink.
func (s *Sink) Close() {
	if s == nil || s.producer == nil {
		return
	}
	if err := s.producer.Close(); err != nil {
		logger.Warn("failed to close event sink producer", "err", err)
	}
}
