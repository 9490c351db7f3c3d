package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/gartstein/jobscraper/internal/ingest/dispatcher"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Dispatcher reconciles one decoded result.
type Dispatcher interface {
	Dispatch(ctx context.Context, result models.ScrapingResult) dispatcher.Report
}

// Publisher receives the report of every consumed result.
type Publisher interface {
	Produce(eventType EventType, key string, payload any)
}

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads ScrapingResults from the results topic. Every message is
// committed once handled, undecodable ones included, so a poison message
// never blocks the partition.
type Consumer struct {
	reader     KafkaReader
	dispatcher Dispatcher
	publisher  Publisher
	logger     *zap.Logger
	done       chan struct{}
}

func NewConsumer(brokers []string, groupID, topic string, d Dispatcher, publisher Publisher, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
		Dialer:  kafka.DefaultDialer,
	})
	return newConsumer(reader, d, publisher, logger)
}

func newConsumer(reader KafkaReader, d Dispatcher, publisher Publisher, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader:     reader,
		dispatcher: d,
		publisher:  publisher,
		logger:     logger.Named("kafka_consumer"),
		done:       make(chan struct{}),
	}
}

// Start consumes in the background until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		c.run(ctx)
	}()
}

func (c *Consumer) run(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	var result models.ScrapingResult
	if err := json.Unmarshal(msg.Value, &result); err != nil {
		c.logger.Error("Failed to parse scraping result",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
	} else {
		report := c.dispatcher.Dispatch(ctx, result)
		if c.publisher != nil {
			c.publisher.Produce(ResultReported, report.CommandID.String(), report)
		}
	}

	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
		)
	}
}

// Close stops the reader; a running consume loop returns on its next fetch.
func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}

// Done is closed when the consume loop returns.
func (c *Consumer) Done() <-chan struct{} {
	return c.done
}
