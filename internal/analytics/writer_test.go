package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type insertCall struct {
	table    string
	rowCount int
}

type fakeInserter struct {
	responses []error
	calls     []insertCall
}

func (f *fakeInserter) InsertRows(_ context.Context, table string, rows []any) error {
	idx := len(f.calls)
	f.calls = append(f.calls, insertCall{table: table, rowCount: len(rows)})
	if idx < len(f.responses) {
		return f.responses[idx]
	}
	return nil
}

func newTestWriter(t *testing.T, batch int) (*Writer, *fakeInserter) {
	t.Helper()
	fake := &fakeInserter{}
	w, err := NewWriter(fake, WriterConfig{
		Table:     "order_events",
		BatchSize: batch,
		RetryPolicy: RetryPolicy{
			InitialBackoff: time.Millisecond,
			MaximumBackoff: time.Millisecond,
		},
	})
	require.NoError(t, err)
	return w, fake
}

func TestNewWriterValidation(t *testing.T) {
	_, err := NewWriter(nil, WriterConfig{Table: "order_events"})
	require.Error(t, err)
	_, err = NewWriter(&fakeInserter{}, WriterConfig{Table: " "})
	require.Error(t, err)
}

func TestWriterRetriesOnTransientError(t *testing.T) {
	w, fake := newTestWriter(t, 1)
	fake.responses = []error{&googleapi.Error{Code: http.StatusServiceUnavailable}, nil}

	require.NoError(t, w.Insert(context.Background(), OrderFactRow{EventID: "1"}))
	require.Len(t, fake.calls, 2)
	require.Equal(t, "order_events", fake.calls[1].table)
}

func TestWriterStopsOnPermanentError(t *testing.T) {
	w, fake := newTestWriter(t, 1)
	fake.responses = []error{&googleapi.Error{Code: http.StatusBadRequest}}

	err := w.Insert(context.Background(), OrderFactRow{EventID: "1"})
	require.Error(t, err)
	require.Len(t, fake.calls, 1)

	fake.responses = append(fake.responses, errors.New("opaque"))
	require.Error(t, w.Insert(context.Background(), OrderFactRow{EventID: "2"}))
	require.Len(t, fake.calls, 2)
}

func TestWriterBatchesAndFlushes(t *testing.T) {
	w, fake := newTestWriter(t, 2)

	require.NoError(t, w.Insert(context.Background(), OrderFactRow{EventID: "1"}))
	require.Empty(t, fake.calls)
	require.NoError(t, w.Insert(context.Background(), OrderFactRow{EventID: "2"}))
	require.Len(t, fake.calls, 1)
	require.Equal(t, 2, fake.calls[0].rowCount)

	require.NoError(t, w.Insert(context.Background(), OrderFactRow{EventID: "3"}))
	require.NoError(t, w.Flush(context.Background()))
	require.Len(t, fake.calls, 2)
	require.NoError(t, w.Flush(context.Background()))
	require.Len(t, fake.calls, 2)
}

func TestRetryableNeedsEveryInnerErrorTransient(t *testing.T) {
	busy := &googleapi.Error{Code: http.StatusServiceUnavailable}
	bad := &googleapi.Error{Code: http.StatusBadRequest}

	require.True(t, retryable(cbigquery.MultiError{busy, busy}))
	require.False(t, retryable(cbigquery.MultiError{busy, bad}))
	require.False(t, retryable(cbigquery.MultiError{}))
	require.True(t, retryable(cbigquery.PutMultiError{{Errors: cbigquery.MultiError{busy}}}))
	require.False(t, retryable(cbigquery.PutMultiError{{Errors: cbigquery.MultiError{bad}}}))
}

func TestRetryDelayDoublesUpToCap(t *testing.T) {
	p := RetryPolicy{InitialBackoff: 100 * time.Millisecond, MaximumBackoff: 300 * time.Millisecond}.withDefaults()
	require.Equal(t, 3, p.MaxAttempts)
	require.Equal(t, 100*time.Millisecond, p.delay(1))
	require.Equal(t, 200*time.Millisecond, p.delay(2))
	require.Equal(t, 300*time.Millisecond, p.delay(3))
	require.Equal(t, 300*time.Millisecond, p.delay(60))
}

func TestRowsCarryInsertIDAndPayload(t *testing.T) {
	row := OrderFactRow{EventID: "evt-1", Payload: jsonColumn(json.RawMessage(`{"foo":"baz"}`))}
	saver := row.saver()
	require.Equal(t, "evt-1", saver.InsertID)
	require.True(t, row.Payload.Valid)
	require.Equal(t, `{"foo":"baz"}`, row.Payload.JSONVal)
	require.False(t, jsonColumn(nil).Valid)
}
