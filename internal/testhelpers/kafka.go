//go:build integration

// Package testhelpers starts disposable Kafka brokers for run report tests.
package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	kafkatc "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	kafkaImage        = "confluentinc/confluent-local:7.7.0"
	readyPollInterval = 500 * time.Millisecond
	readyTimeout      = 30 * time.Second

	// RunReportPartitions is more than one so tests see the publisher's
	// per-conversation hashing rather than a single global order.
	RunReportPartitions = 3
)

// StartKafka runs a single-node broker for the lifetime of t and returns its
// address. The test is skipped when no container runtime is available.
func StartKafka(ctx context.Context, t testing.TB) string {
	t.Helper()

	container, err := kafkatc.Run(ctx, kafkaImage)
	if err != nil {
		t.Skipf("kafka container unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("kafka broker addresses: %v", err)
	}
	if len(brokers) == 0 {
		t.Fatal("kafka container reported no brokers")
	}
	if err := waitForBroker(ctx, brokers[0]); err != nil {
		t.Fatalf("wait for kafka broker: %v", err)
	}
	return brokers[0]
}

// CreateRunReportTopic creates topic with the given number of partitions and
// blocks until every partition has a leader. An existing topic is accepted.
func CreateRunReportTopic(ctx context.Context, broker, topic string, partitions int) error {
	if partitions <= 0 {
		partitions = RunReportPartitions
	}

	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	ctrlConn, err := kafkago.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("dial controller: %w", err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafkago.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}

	return pollUntil(ctx, func() bool {
		parts, err := conn.ReadPartitions(topic)
		if err != nil || len(parts) < partitions {
			return false
		}
		for _, p := range parts {
			if p.Leader.Host == "" {
				return false
			}
		}
		return true
	}, fmt.Sprintf("topic %s partitions", topic))
}

func waitForBroker(ctx context.Context, broker string) error {
	return pollUntil(ctx, func() bool {
		conn, err := kafkago.DialContext(ctx, "tcp", broker)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, fmt.Sprintf("broker %s", broker))
}

func pollUntil(ctx context.Context, ready func() bool, what string) error {
	deadline := time.Now().Add(readyTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}

	for time.Now().Before(deadline) {
		if ready() {
			return nil
		}
		select {
		case <-time.After(readyPollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s not ready before timeout", what)
}
