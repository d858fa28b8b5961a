package querylog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/finmate-ai/voice-platform/pkg/logger"
)

const (
	streamName   = "QUERYLOG"
	subject      = "queries.log"
	maxRetention = 1000
)

// Entry is one recorded user query.
type Entry struct {
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	LoanType  string    `json:"loan_type,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Log appends user queries to a JetStream stream and reads them back
// newest-first. When constructed without a client it degrades to a no-op
// so the pipeline keeps working without NATS.
type Log struct {
	client *Client
	logger *logger.Logger
}

// New ensures the query stream exists and returns a Log. A nil client
// yields a no-op log.
func New(ctx context.Context, client *Client, log *logger.Logger) (*Log, error) {
	l := &Log{client: client, logger: log}
	if client == nil {
		log.Warn("query log disabled, NATS unavailable")
		return l, nil
	}

	cfg := jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxMsgs:   maxRetention,
	}

	if _, err := client.js.CreateOrUpdateStream(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to ensure query stream: %w", err)
	}
	return l, nil
}

// Record appends a query to the log. Failures are logged, never fatal.
func (l *Log) Record(ctx context.Context, sessionID, query, loanType string) {
	if l.client == nil {
		return
	}

	entry := Entry{
		SessionID: sessionID,
		Query:     query,
		LoanType:  loanType,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Error("failed to marshal query entry", "error", err)
		return
	}

	if _, err := l.client.js.Publish(ctx, subject, data); err != nil {
		l.logger.Warn("failed to record query", "error", err)
	}
}

// Recent returns up to n entries, newest first.
func (l *Log) Recent(ctx context.Context, n int) ([]Entry, error) {
	if l.client == nil {
		return nil, nil
	}
	if n <= 0 {
		return nil, nil
	}

	stream, err := l.client.js.Stream(ctx, streamName)
	if err != nil {
		return nil, fmt.Errorf("failed to get query stream: %w", err)
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream info: %w", err)
	}
	if info.State.Msgs == 0 {
		return nil, nil
	}

	startSeq := info.State.FirstSeq
	if info.State.LastSeq >= uint64(n) && info.State.LastSeq-uint64(n)+1 > startSeq {
		startSeq = info.State.LastSeq - uint64(n) + 1
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverByStartSequencePolicy,
		OptStartSeq:   startSeq,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	want := int(info.State.LastSeq - startSeq + 1)
	batch, err := cons.Fetch(want, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch query entries: %w", err)
	}

	var entries []Entry
	for msg := range batch.Messages() {
		var e Entry
		if err := json.Unmarshal(msg.Data(), &e); err != nil {
			l.logger.Warn("skipping malformed query entry", "error", err)
			continue
		}
		entries = append(entries, e)
	}

	// Newest first.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
