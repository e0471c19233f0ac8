package kafka

import "errors"

var (
	// ErrDisabled indicates Kafka publishing is disabled in config.
	ErrDisabled = errors.New("kafka: disabled in configuration")

	// ErrNotConnected indicates the producer has been closed.
	ErrNotConnected = errors.New("kafka: producer closed")

	// ErrNoBrokers indicates the broker list is empty.
	ErrNoBrokers = errors.New("kafka: no brokers configured")
)
