package vlogs

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(id int) Record {
	return Record{
		FieldStreamID: "0000abcd",
		FieldTime:     fmt.Sprintf("2024-09-19T14:41:%02d.5Z", id),
		FieldMsg:      fmt.Sprintf("msg %d", id),
	}
}

func TestBuildContextQuery(t *testing.T) {
	q, err := BuildContextQuery(rec(13), Before, 10)
	require.NoError(t, err)
	assert.Equal(t, "_stream_id:0000abcd _time:2024-09-19T14:41:13.500000000Z | stream_context before 10 | sort by (_time) desc", q)

	_, err = BuildContextQuery(Record{FieldTime: "2024-09-19T14:41:13Z"}, After, 10)
	assert.ErrorIs(t, err, ErrMissingStreamFields)
	_, err = BuildContextQuery(Record{FieldStreamID: "x"}, After, 10)
	assert.ErrorIs(t, err, ErrMissingStreamFields)
}

func TestStreamContextMerge(t *testing.T) {
	pivot := rec(30)
	s := NewStreamContext(pivot)
	assert.True(t, s.HasMore(Before))
	assert.True(t, s.HasMore(After))

	// the initial pages both contain the pivot
	reqA, err := s.Request(After, 2)
	require.NoError(t, err)
	assert.True(t, reqA.Target.Equal(pivot))
	s.Merge(reqA, []Record{rec(32), rec(31), rec(30)})

	reqB, err := s.Request(Before, 2)
	require.NoError(t, err)
	s.Merge(reqB, []Record{rec(30), rec(29)})

	assert.Equal(t, []Record{rec(32), rec(31)}, s.After, "pivot is dropped from newer logs")
	assert.Equal(t, []Record{rec(30), rec(29)}, s.Before)
	assert.True(t, s.HasMore(After))
	assert.True(t, s.HasMore(Before))

	all, idx := s.Records()
	assert.Len(t, all, 4)
	assert.Equal(t, 2, idx)
	assert.True(t, all[idx].Equal(pivot))

	// load more newer logs starts from the newest loaded one
	assert.True(t, s.NextPivot(After).Equal(rec(32)))
	reqA, err = s.Request(After, 5)
	require.NoError(t, err)
	s.Merge(reqA, []Record{rec(33), rec(32)})
	assert.Equal(t, []Record{rec(33), rec(32), rec(31)}, s.After)
	assert.False(t, s.HasMore(After), "short page")

	// load more older logs starts from the oldest loaded one
	assert.True(t, s.NextPivot(Before).Equal(rec(29)))
	reqB, err = s.Request(Before, 2)
	require.NoError(t, err)
	s.Merge(reqB, []Record{rec(29), rec(28), rec(27)})
	assert.Equal(t, []Record{rec(30), rec(29), rec(28), rec(27)}, s.Before)
	assert.True(t, s.HasMore(Before))

	s.Merge(reqB, nil)
	assert.False(t, s.HasMore(Before))

	s.Reset()
	assert.Empty(t, s.After)
	assert.Empty(t, s.Before)
	assert.True(t, s.HasMore(Before))
	all, idx = s.Records()
	assert.Empty(t, all)
	assert.Equal(t, -1, idx)
}

func TestStreamContextRequestNeedsFields(t *testing.T) {
	s := NewStreamContext(Record{FieldMsg: "no stream"})
	_, err := s.Request(Before, 10)
	assert.ErrorIs(t, err, ErrMissingStreamFields)
}

func TestFetcher(t *testing.T) {
	f := NewFetcher()
	assert.False(t, f.Loading())

	id1, ctx1 := f.Begin(false)
	id2, ctx2 := f.Begin(true)
	assert.NotEqual(t, id1, id2)
	assert.NoError(t, ctx1.Err(), "kept when the caller prevents aborting")
	assert.True(t, f.Loading())

	id3, _ := f.Begin(false)
	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)

	assert.False(t, f.Finish(id1, nil, context.Canceled))
	assert.Empty(t, f.Err(), "cancellation is not reported")
	assert.True(t, f.Loading())

	assert.True(t, f.Finish(id3, []Record{rec(1)}, nil))
	assert.False(t, f.Loading())
	assert.Len(t, f.Records(), 1)

	id4, _ := f.Begin(false)
	assert.False(t, f.Finish(id4, nil, errors.New("boom")))
	assert.Equal(t, "boom", f.Err())
	assert.Empty(t, f.Records(), "a failure clears results")

	_, ctx5 := f.Begin(false)
	assert.Empty(t, f.Err(), "a new request clears the error")
	f.Close()
	assert.ErrorIs(t, ctx5.Err(), context.Canceled)
	assert.False(t, f.Loading())

	f.Reset()
	assert.Nil(t, f.Records())
}

func TestRecordHelpers(t *testing.T) {
	r, err := ParseRecord([]byte(`{"_time":"t","_msg":"hello world","_stream":"{a=\"b\"}","n":1.5,"obj":{"x":1},"z":"with space"}`))
	require.NoError(t, err)
	assert.Equal(t, "1.5", r["n"])
	assert.Equal(t, `{"x":1}`, r["obj"])
	assert.Equal(t, []string{"_time", "_stream", "_msg", "n", "obj", "z"}, r.Fields())
	assert.Equal(t, `t hello world n=1.5 obj="{\"x\":1}" z="with space"`, r.Line())
	assert.Contains(t, r.JSON(), "\n    \"_msg\": \"hello world\"")

	_, err = ParseRecord([]byte(`[1,2]`))
	assert.Error(t, err)

	groups := GroupByStream([]Record{{FieldStream: "a"}, {FieldStream: "b"}, {FieldStream: "a", "x": "1"}})
	require.Len(t, groups, 2)
	assert.Equal(t, "a", groups[0].Stream)
	assert.Len(t, groups[0].Records, 2)

	assert.Len(t, RemoveExactLog([]Record{rec(1), rec(2), rec(1)}, rec(1)), 1)
}
