package filesource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

func writeFile(t *testing.T, dir, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	var content string
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func drain(ch <-chan vlogs.Record) []vlogs.Record {
	var out []vlogs.Record
	for r := range ch {
		out = append(out, r)
	}
	return out
}

func TestConverter(t *testing.T) {
	c := NewConverter(timeutil.NewParser())
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }

	rec, ok := c.Convert("app.log", `{"_time":"2024-01-02T10:00:00Z","_msg":"hello","level":"info"}`)
	require.True(t, ok)
	assert.Equal(t, "hello", rec.Msg())
	assert.Equal(t, "2024-01-02T10:00:00Z", rec.Time())
	assert.Equal(t, `{source="app.log"}`, rec.Stream())
	assert.Len(t, rec.StreamID(), 32)

	rec, ok = c.Convert("app.log", `{"message":"from alias","ts":1700000000}`)
	require.True(t, ok)
	assert.Equal(t, "from alias", rec.Msg())
	assert.Equal(t, "2023-11-14T22:13:20.000000000Z", rec.Time())

	rec, ok = c.Convert("sys.log", "2024-01-02 10:11:12 ERROR disk full")
	require.True(t, ok)
	assert.Equal(t, "2024-01-02 10:11:12 ERROR disk full", rec.Msg())
	assert.Equal(t, "2024-01-02T10:11:12.000000000Z", rec.Time())

	rec, ok = c.Convert("sys.log", "{broken json")
	require.True(t, ok)
	assert.Equal(t, "{broken json", rec.Msg())
	assert.Equal(t, timeutil.FormatNano(fixed), rec.Time())

	_, ok = c.Convert("sys.log", "   ")
	assert.False(t, ok)

	a, _ := c.Convert("a.log", "x")
	b, _ := c.Convert("b.log", "x")
	assert.NotEqual(t, a.StreamID(), b.StreamID())
}

func TestReaderReadsAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.log", `{"_msg":"a1"}`, "", `{"_msg":"a2"}`)
	writeFile(t, dir, "b.log", "plain b1")

	r, err := NewReader([]string{filepath.Join(dir, "*.log")}, false, nil)
	require.NoError(t, err)
	assert.Len(t, r.Paths(), 2)

	recs := drain(r.Start())
	r.Wait()
	require.Len(t, recs, 3)
	assert.Equal(t, "a1", recs[0].Msg())
	assert.Equal(t, "plain b1", recs[2].Msg())
}

func TestReaderErrors(t *testing.T) {
	_, err := NewReader(nil, false, nil)
	assert.Error(t, err)
	_, err = NewReader([]string{filepath.Join(t.TempDir(), "*.none")}, false, nil)
	assert.Error(t, err)
	_, err = NewReader([]string{"[bad"}, false, nil)
	assert.Error(t, err)
}

func TestReaderFollow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "f.log", "first")

	r, err := NewReader([]string{path}, true, nil)
	require.NoError(t, err)
	ch := r.Start()

	select {
	case rec := <-ch:
		assert.Equal(t, "first", rec.Msg())
	case <-time.After(5 * time.Second):
		t.Fatal("initial content not read")
	}

	// give the watcher time to register before appending
	require.Eventually(t, func() bool {
		r.mu.Lock()
		defer r.mu.Unlock()
		return len(r.files) == 1
	}, 5*time.Second, 10*time.Millisecond)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("second\nthi")
	require.NoError(t, err)
	_, err = f.WriteString("rd\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	var got []string
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case rec := <-ch:
			got = append(got, rec.Msg())
		case <-timeout:
			t.Fatalf("appended lines not read, got %v", got)
		}
	}
	assert.Equal(t, []string{"second", "third"}, got)

	r.Stop()
	drain(ch)
	r.Wait()
	assert.Empty(t, r.files)
}

func storeWith(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		level := "info"
		if i%3 == 0 {
			level = "error"
		}
		s.Add(vlogs.Record{
			vlogs.FieldTime:     timeutil.FormatNano(base.Add(time.Duration(i) * time.Minute)),
			vlogs.FieldMsg:      fmt.Sprintf("request %d done", i),
			vlogs.FieldStream:   `{source="app.log"}`,
			vlogs.FieldStreamID: "s1",
			"level":             level,
		})
	}
	// out of order insert
	s.Add(vlogs.Record{
		vlogs.FieldTime:     timeutil.FormatNano(base.Add(-time.Minute)),
		vlogs.FieldMsg:      "boot",
		vlogs.FieldStream:   `{source="other.log"}`,
		vlogs.FieldStreamID: "s2",
		"level":             "warn",
	})
	s.Add(vlogs.Record{vlogs.FieldMsg: "no time"})
	return s
}

func TestStoreQuery(t *testing.T) {
	s := storeWith(t)
	assert.Equal(t, 7, s.Len())
	ctx := context.Background()

	span := s.Span()
	assert.Equal(t, time.Date(2024, 1, 2, 9, 59, 0, 0, time.UTC), span.Start)
	assert.Equal(t, time.Date(2024, 1, 2, 10, 5, 0, 0, time.UTC), span.End)
	assert.True(t, NewStore().Span().IsZero())

	all, err := s.Query(ctx, vlogs.QueryParams{Query: "*"})
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, "request 5 done", all[0].Msg(), "newest first")
	assert.Equal(t, "boot", all[6].Msg())

	limited, err := s.Query(ctx, vlogs.QueryParams{Query: "*", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	errs, err := s.Query(ctx, vlogs.QueryParams{Query: `REQUEST level:="error"`})
	require.NoError(t, err)
	require.Len(t, errs, 2)
	assert.Equal(t, "request 3 done", errs[0].Msg())

	streams, err := s.Query(ctx, vlogs.QueryParams{Query: `_stream:{source="other.log"}`})
	require.NoError(t, err)
	require.Len(t, streams, 1)

	partial, err := s.Query(ctx, vlogs.QueryParams{Query: `level:err _time:5m`})
	require.NoError(t, err)
	assert.Len(t, partial, 2)

	base := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	window, err := s.Query(ctx, vlogs.QueryParams{Query: "*", Period: timeutil.Period{Start: base.Add(time.Minute), End: base.Add(2 * time.Minute)}})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	_, err = s.Query(ctx, vlogs.QueryParams{Query: " "})
	assert.ErrorIs(t, err, vlogs.ErrEmptyQuery)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Query(canceled, vlogs.QueryParams{Query: "*"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreStreamContext(t *testing.T) {
	s := storeWith(t)
	all, _ := s.Query(context.Background(), vlogs.QueryParams{Query: "request 3"})
	require.Len(t, all, 1)
	pivot := all[0]

	ctxState := vlogs.NewStreamContext(pivot)
	for _, dir := range []vlogs.Direction{vlogs.After, vlogs.Before} {
		req, err := ctxState.Request(dir, 2)
		require.NoError(t, err)
		got, err := s.Query(context.Background(), vlogs.QueryParams{Query: req.Query})
		require.NoError(t, err)
		ctxState.Merge(req, got)
	}

	var msgs []string
	recs, pivotIdx := ctxState.Records()
	for _, r := range recs {
		msgs = append(msgs, r.Msg())
	}
	assert.Equal(t, []string{"request 5 done", "request 4 done", "request 3 done", "request 2 done", "request 1 done"}, msgs)
	assert.Equal(t, 2, pivotIdx)
	assert.True(t, ctxState.HasMore(vlogs.Before))
	assert.True(t, ctxState.HasMore(vlogs.After))

	req, err := ctxState.Request(vlogs.After, 5)
	require.NoError(t, err)
	got, err := s.Query(context.Background(), vlogs.QueryParams{Query: req.Query})
	require.NoError(t, err)
	ctxState.Merge(req, got)
	assert.False(t, ctxState.HasMore(vlogs.After))

	none, err := s.Query(context.Background(), vlogs.QueryParams{Query: "_stream_id:zz _time:2024-01-02T10:00:00.000000000Z | stream_context before 3 | sort by (_time) desc"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStoreHits(t *testing.T) {
	s := storeWith(t)
	buckets, err := s.Hits(context.Background(), vlogs.HitsParams{
		Query:       "*",
		Step:        2 * time.Minute,
		Fields:      []string{"level"},
		FieldsLimit: 2,
	})
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, map[string]string{"level": "info"}, buckets[0].Fields)
	assert.Equal(t, int64(4), buckets[0].Total)
	assert.Equal(t, map[string]string{"level": "error"}, buckets[1].Fields)
	assert.Equal(t, int64(2), buckets[1].Total)
	assert.True(t, buckets[2].IsOther)
	assert.Equal(t, int64(1), buckets[2].Total)

	g := hits.Align(buckets, 2*time.Minute)
	assert.Equal(t, int64(120), g.BucketWidth())
	assert.Equal(t, int64(7), hits.TotalHits(buckets))

	// info at minutes 1, 2, 4 and 5 falls into the 10:00, 10:02 and 10:04 buckets
	assert.Equal(t, []int64{1, 1, 2}, buckets[0].Values)
}
