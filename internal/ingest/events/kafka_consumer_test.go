package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gartstein/jobscraper/internal/ingest/dispatcher"
	"github.com/gartstein/jobscraper/internal/ingest/models"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// fakeReader replays msgs and then reports io.EOF, like a closed reader.
type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	commitErr error
}

func (r *fakeReader) FetchMessage(context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return r.commitErr
}

func (r *fakeReader) Close() error { return nil }

type dispatchFunc func(context.Context, models.ScrapingResult) dispatcher.Report

func (f dispatchFunc) Dispatch(ctx context.Context, r models.ScrapingResult) dispatcher.Report {
	return f(ctx, r)
}

type recordingPublisher struct {
	mu     sync.Mutex
	types  []EventType
	keys   []string
	values []any
}

func (p *recordingPublisher) Produce(eventType EventType, key string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
	p.keys = append(p.keys, key)
	p.values = append(p.values, payload)
}

func TestConsumerDispatchesAndCommits(t *testing.T) {
	commandID := uuid.New()
	reader := &fakeReader{msgs: []kafka.Message{
		{Offset: 10, Value: []byte(`{"CommandId":"` + commandID.String() + `","CommandType":"GetCompany","Success":true,"Company":{"Name":"Acme"}}`)},
		{Offset: 11, Value: []byte(`not json`)},
	}}
	var got []models.ScrapingResult
	d := dispatchFunc(func(_ context.Context, r models.ScrapingResult) dispatcher.Report {
		got = append(got, r)
		return dispatcher.Report{CommandID: r.CommandID, Status: dispatcher.StatusSucceeded}
	})
	publisher := &recordingPublisher{}
	core, recorded := observer.New(zap.ErrorLevel)

	c := newConsumer(reader, d, publisher, zap.New(core))
	c.Start(context.Background())

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after EOF")
	}

	require.Len(t, got, 1)
	assert.Equal(t, models.CommandGetCompany, got[0].CommandType)
	assert.Equal(t, "Acme", got[0].Company.Name)

	assert.Equal(t, []int64{10, 11}, reader.committed, "poison messages are committed too")
	assert.Equal(t, []EventType{ResultReported}, publisher.types)
	assert.Equal(t, []string{commandID.String()}, publisher.keys)
	assert.Equal(t, 1, recorded.FilterMessage("Failed to parse scraping result").Len())
}

func TestConsumerLogsCommitFailure(t *testing.T) {
	reader := &fakeReader{commitErr: errors.New("rebalance in progress")}
	d := dispatchFunc(func(context.Context, models.ScrapingResult) dispatcher.Report {
		return dispatcher.Report{}
	})
	core, recorded := observer.New(zap.ErrorLevel)
	c := newConsumer(reader, d, nil, zap.New(core))

	c.handle(context.Background(), kafka.Message{Offset: 3, Value: []byte(`{"CommandType":0,"Success":true}`)})

	assert.Equal(t, 1, recorded.FilterMessage("Failed to commit message").Len())
}

func TestConsumerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	reader := &blockingReader{}
	c := newConsumer(reader, nil, nil, zaptest.NewLogger(t))

	c.Start(ctx)

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

type blockingReader struct{}

func (blockingReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (blockingReader) CommitMessages(context.Context, ...kafka.Message) error { return nil }

func (blockingReader) Close() error { return nil }
