package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/brewcart/brewcart-backend/pkg/gcp"
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// RetryPolicy bounds retries of transient insert failures.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaximumBackoff time.Duration
}

var defaultRetry = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: 250 * time.Millisecond,
	MaximumBackoff: 2 * time.Second,
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultRetry.MaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultRetry.InitialBackoff
	}
	if p.MaximumBackoff <= 0 {
		p.MaximumBackoff = defaultRetry.MaximumBackoff
	}
	p.MaximumBackoff = max(p.MaximumBackoff, p.InitialBackoff)
	return p
}

// delay is the wait before retry n (1-based): doubling, capped.
func (p RetryPolicy) delay(n int) time.Duration {
	if n > 30 {
		return p.MaximumBackoff
	}
	d := p.InitialBackoff << (n - 1)
	if d <= 0 || d > p.MaximumBackoff {
		return p.MaximumBackoff
	}
	return d
}

type WriterConfig struct {
	Table string
	// BatchSize rows are buffered before an insert; 1 writes through.
	BatchSize   int
	RetryPolicy RetryPolicy
}

// Writer buffers order fact rows and streams them to BigQuery.
type Writer struct {
	client    tableInserter
	table     string
	batchSize int
	retry     RetryPolicy

	mu      sync.Mutex
	pending []OrderFactRow
}

func NewWriter(client tableInserter, cfg WriterConfig) (*Writer, error) {
	if client == nil {
		return nil, errors.New("bigquery client required")
	}
	table := strings.TrimSpace(cfg.Table)
	if table == "" {
		return nil, errors.New("order events table is required")
	}
	return &Writer{
		client:    client,
		table:     table,
		batchSize: max(cfg.BatchSize, 1),
		retry:     cfg.RetryPolicy.withDefaults(),
	}, nil
}

func (w *Writer) Insert(ctx context.Context, row OrderFactRow) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, row)
	if len(w.pending) < w.batchSize {
		return nil
	}
	return w.flushLocked(ctx)
}

func (w *Writer) Flush(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked(ctx)
}

// flushLocked drops the batch whether or not the insert succeeds. Failed
// events are nacked by the runner and come back through Pub/Sub.
func (w *Writer) flushLocked(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	batch := w.pending
	w.pending = nil

	rows := make([]any, len(batch))
	for i := range batch {
		rows[i] = batch[i].saver()
	}
	return w.insert(ctx, rows)
}

func (w *Writer) insert(ctx context.Context, rows []any) error {
	for attempt := 1; ; attempt++ {
		err := w.client.InsertRows(ctx, w.table, rows)
		if err == nil {
			return nil
		}
		if attempt >= w.retry.MaxAttempts || !retryable(err) {
			return fmt.Errorf("insert %d rows into %s after %d attempt(s): %w", len(rows), w.table, attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.retry.delay(attempt)):
		}
	}
}

// retryable unpacks BigQuery's aggregate errors; a batch is retried only when
// every inner failure is transient.
func retryable(err error) bool {
	var multi cbigquery.MultiError
	if errors.As(err, &multi) {
		return allTransient(len(multi), func(i int) error { return multi[i] })
	}
	var rowErrs cbigquery.PutMultiError
	if errors.As(err, &rowErrs) {
		return allTransient(len(rowErrs), func(i int) error { return rowErrs[i].Errors })
	}
	return gcp.Transient(err)
}

func allTransient(n int, at func(int) error) bool {
	if n == 0 {
		return false
	}
	for i := range n {
		if !retryable(at(i)) {
			return false
		}
	}
	return true
}
