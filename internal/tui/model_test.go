package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/control-theory/vlexplore/internal/filesource"
	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/textsel"
	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

type fakeBackend struct {
	mu      sync.Mutex
	records []vlogs.Record
	buckets []hits.Bucket
	err     error
	queries []vlogs.QueryParams
	hits    []vlogs.HitsParams
}

func (f *fakeBackend) Query(ctx context.Context, p vlogs.QueryParams) ([]vlogs.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, p)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeBackend) Hits(ctx context.Context, p vlogs.HitsParams) ([]hits.Bucket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hits = append(f.hits, p)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.buckets, nil
}

func (f *fakeBackend) lastQuery() vlogs.QueryParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type fakeTailer struct {
	records chan vlogs.Record
	started bool
	stopped bool
}

func newFakeTailer() *fakeTailer {
	return &fakeTailer{records: make(chan vlogs.Record, 10)}
}

func (f *fakeTailer) Start()                       { f.started = true }
func (f *fakeTailer) Stop()                        { f.stopped = true }
func (f *fakeTailer) Records() <-chan vlogs.Record { return f.records }
func (f *fakeTailer) Err() error                   { return nil }

var base = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func sampleStore() *filesource.Store {
	s := filesource.NewStore()
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
	s.Add(vlogs.Record{
		vlogs.FieldTime:     timeutil.FormatNano(base.Add(-time.Minute)),
		vlogs.FieldMsg:      "boot",
		vlogs.FieldStream:   `{source="other.log"}`,
		vlogs.FieldStreamID: "s2",
		"level":             "warn",
	})
	return s
}

// exec runs cmd and flattens batches. Commands that block, such as timers
// and cursor blinks, are dropped.
func exec(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if batch, ok := msg.(tea.BatchMsg); ok {
			var out []tea.Msg
			for _, c := range batch {
				out = append(out, exec(c)...)
			}
			return out
		}
		if msg == nil {
			return nil
		}
		return []tea.Msg{msg}
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

// settle feeds the results of cmd back into m until nothing is left
func settle(m *Model, cmd tea.Cmd) {
	for depth := 0; cmd != nil && depth < 5; depth++ {
		var next []tea.Cmd
		for _, msg := range exec(cmd) {
			_, c := m.Update(msg)
			next = append(next, c)
		}
		cmd = tea.Batch(next...)
	}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmds []tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "shift+tab":
			msg = tea.KeyMsg{Type: tea.KeyShiftTab}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		case "ctrl+u":
			msg = tea.KeyMsg{Type: tea.KeyCtrlU}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		_, cmd := m.Update(msg)
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func newTestModel(backend Backend, tail TailFunc) *Model {
	m := New(Config{
		Query:       "*",
		Limit:       100,
		GroupBy:     []string{"level"},
		FieldsLimit: 5,
		HitsStep:    time.Minute,
	}, backend, tail, nil)
	m.Update(tea.WindowSizeMsg{Width: 140, Height: 30})
	return m
}

func isQuit(cmd tea.Cmd) bool {
	for _, msg := range exec(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func TestParseView(t *testing.T) {
	v, err := ParseView("JSON")
	require.NoError(t, err)
	assert.Equal(t, ViewJSON, v)
	assert.Equal(t, "hits", ViewHits.String())

	_, err = ParseView("graph")
	assert.Error(t, err)
}

func TestRunQueryFillsEveryView(t *testing.T) {
	m := newTestModel(sampleStore(), nil)
	settle(m, m.Init())

	require.Len(t, m.Records(), 7)
	assert.False(t, m.Loading())
	assert.Empty(t, m.Err())

	group := m.groupView.Lines()
	assert.Equal(t, `── {source="app.log"} (6)`, group[0])
	assert.Contains(t, group[1], "request 5 done")
	assert.Contains(t, group, `── {source="other.log"} (1)`)

	assert.Equal(t, "{", m.jsonView.Lines()[0])
	assert.Contains(t, strings.Join(m.jsonView.Lines(), "\n"), `"_msg": "request 5 done"`)

	assert.Len(t, m.table.Rows(), 7)
	require.Len(t, m.chart.entries, 3)
	assert.Equal(t, `{level="info"}`, m.chart.entries[0].Label)

	view := m.View()
	assert.Contains(t, view, "LogsQL>")
	assert.Contains(t, view, "7 logs")
}

func TestQueryParamsAndErrors(t *testing.T) {
	fb := &fakeBackend{err: &vlogs.HTTPError{StatusCode: 400, Body: "cannot parse query"}}
	m := newTestModel(fb, nil)
	m.cfg.Since = time.Hour
	m.now = func() time.Time { return base }
	settle(m, m.Init())

	p := fb.lastQuery()
	assert.Equal(t, "*", p.Query)
	assert.Equal(t, 100, p.Limit)
	assert.Equal(t, base.Add(-time.Hour), p.Period.Start)
	require.Len(t, fb.hits, 1)
	assert.Equal(t, []string{"level"}, fb.hits[0].Fields)
	assert.Equal(t, 5, fb.hits[0].FieldsLimit)
	assert.Equal(t, time.Minute, fb.hits[0].Step)

	assert.Equal(t, "cannot parse query", m.Err())
	assert.Empty(t, m.Records())
	assert.Contains(t, m.View(), "cannot parse query")

	fb.mu.Lock()
	fb.err = nil
	fb.records = []vlogs.Record{{vlogs.FieldMsg: "ok"}}
	fb.mu.Unlock()
	settle(m, press(m, "r"))
	assert.Empty(t, m.Err())
	assert.Len(t, m.Records(), 1)
}

func TestStaleResultsAreDropped(t *testing.T) {
	fb := &fakeBackend{records: []vlogs.Record{{vlogs.FieldMsg: "fresh"}}}
	m := newTestModel(fb, nil)

	first := m.fetchLogs()
	second := m.fetchLogs()

	stale := exec(first)
	require.Len(t, stale, 1)
	assert.ErrorIs(t, stale[0].(logsMsg).err, context.Canceled)

	for _, msg := range exec(second) {
		m.Update(msg)
	}
	m.Update(logsMsg{id: "old", records: []vlogs.Record{{vlogs.FieldMsg: "stale"}}})
	m.Update(stale[0])

	require.Len(t, m.Records(), 1)
	assert.Equal(t, "fresh", m.Records()[0].Msg())
	assert.Empty(t, m.Err())
	assert.False(t, m.Loading())
}

func TestEditQuery(t *testing.T) {
	fb := &fakeBackend{}
	m := newTestModel(fb, nil)

	press(m, "/")
	assert.True(t, m.editing)
	press(m, "ctrl+u", "error")
	settle(m, press(m, "enter"))
	assert.False(t, m.editing)
	assert.Equal(t, "error", m.Query())
	assert.Equal(t, "error", fb.lastQuery().Query)

	press(m, "/", "ctrl+u", "discarded", "esc")
	assert.Equal(t, "error", m.Query())
	assert.Equal(t, "error", m.queryInput.Value())

	press(m, "/", "ctrl+u")
	settle(m, press(m, "enter"))
	assert.Equal(t, "*", m.Query(), "an empty query matches everything")
}

func TestViewsCycle(t *testing.T) {
	m := newTestModel(&fakeBackend{}, nil)
	assert.Equal(t, ViewGroup, m.ActiveView())
	press(m, "tab")
	assert.Equal(t, ViewJSON, m.ActiveView())
	press(m, "tab", "tab")
	assert.Equal(t, ViewHits, m.ActiveView())
	press(m, "tab")
	assert.Equal(t, ViewGroup, m.ActiveView())
	press(m, "shift+tab")
	assert.Equal(t, ViewHits, m.ActiveView())
}

func TestQuitAndCopy(t *testing.T) {
	m := newTestModel(sampleStore(), nil)
	settle(m, m.Init())

	m.groupView.SetSelection(&textsel.Position{Element: 1, Offset: 2}, &textsel.Position{Element: 1, Offset: 10})
	require.True(t, m.groupView.HasSelection())
	assert.False(t, isQuit(press(m, "ctrl+c")), "ctrl+c copies the selection")

	m.groupView.SetSelection(nil, nil)
	assert.True(t, isQuit(press(m, "ctrl+c")))

	m2 := newTestModel(&fakeBackend{}, nil)
	assert.True(t, isQuit(press(m2, "q")))
}

func TestHelpModal(t *testing.T) {
	m := newTestModel(&fakeBackend{}, nil)
	press(m, "?")
	require.True(t, m.showHelp)
	view := m.View()
	assert.Contains(t, view, "Help")
	assert.Contains(t, view, "edit query")

	assert.False(t, isQuit(press(m, "q")), "q closes help first")
	assert.False(t, m.showHelp)
}

func TestStreamContextModal(t *testing.T) {
	m := newTestModel(sampleStore(), nil)
	settle(m, m.Init())
	press(m, "tab", "tab")
	require.Equal(t, ViewTable, m.ActiveView())

	idx := -1
	for i, r := range m.Records() {
		if r.Msg() == "request 3 done" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	m.table.SetCursor(idx)

	settle(m, press(m, "enter"))
	require.NotNil(t, m.ctxModal)

	lines := m.ctxModal.view.Lines()
	require.Len(t, lines, 6)
	assert.Contains(t, lines[0], "request 5 done")
	assert.True(t, strings.HasPrefix(lines[2], "▶ "))
	assert.Contains(t, lines[2], "request 3 done")
	assert.Contains(t, lines[5], "request 0 done")
	assert.Contains(t, m.View(), "Stream context")

	// both directions came back short of the page size
	assert.Nil(t, press(m, "o"))
	assert.Equal(t, "no more older logs", m.ctxModal.status)

	press(m, "-")
	assert.Equal(t, 5, m.ctxModal.pageSize())
	press(m, "+", "+", "+", "+", "+")
	assert.Equal(t, 100, m.ctxModal.pageSize())

	press(m, "esc")
	assert.Nil(t, m.ctxModal)
	assert.Equal(t, ViewTable, m.ActiveView())
}

func TestStreamContextMissingFields(t *testing.T) {
	fb := &fakeBackend{records: []vlogs.Record{{vlogs.FieldMsg: "no stream"}}}
	m := newTestModel(fb, nil)
	settle(m, m.Init())
	m.view = ViewTable

	press(m, "enter")
	require.NotNil(t, m.ctxModal)
	assert.Equal(t, vlogs.ErrMissingStreamFields.Error(), m.ctxModal.status)
}

func TestHitsKeys(t *testing.T) {
	store := sampleStore()
	m := newTestModel(store, nil)
	settle(m, m.Init())
	m.view = ViewHits

	press(m, "right")
	require.GreaterOrEqual(t, m.chart.focus, 0)
	_, ok := m.chart.tooltip()
	assert.True(t, ok)

	press(m, "j")
	e, ok := m.chart.selectedEntry()
	require.True(t, ok)
	assert.Equal(t, `{level="error"}`, e.Label)

	press(m, "v")
	assert.False(t, m.chart.legend.IsShown(e.Label))
	press(m, "v", "f")
	assert.True(t, m.chart.legend.OnlyVisible(e.Label))
	press(m, "f")
	assert.True(t, m.chart.legend.IsShown(`{level="info"}`))

	press(m, "esc")
	assert.Equal(t, -1, m.chart.focus)

	settle(m, press(m, "a"))
	assert.Equal(t, `level:="error"`, m.Query())
	assert.Len(t, m.Records(), 2)
}

func TestLiveTail(t *testing.T) {
	ft := newFakeTailer()
	var tailed string
	m := newTestModel(&fakeBackend{records: []vlogs.Record{{vlogs.FieldMsg: "old"}}}, func(q string) Tailer {
		tailed = q
		return ft
	})
	settle(m, m.Init())

	cmd := press(m, "L")
	require.True(t, m.Tailing())
	assert.True(t, ft.started)
	assert.Equal(t, "*", tailed)

	ft.records <- vlogs.Record{vlogs.FieldMsg: "new 1"}
	ft.records <- vlogs.Record{vlogs.FieldMsg: "new 2"}
	msgs := exec(cmd)
	require.Len(t, msgs, 1)
	m.Update(msgs[0])

	var got []string
	for _, r := range m.Records() {
		got = append(got, r.Msg())
	}
	assert.Equal(t, []string{"new 2", "new 1", "old"}, got)

	press(m, "L")
	assert.False(t, m.Tailing())
	assert.True(t, ft.stopped)

	close(ft.records)
	m.Update(tailClosedMsg{tailer: ft})
	assert.Empty(t, m.Err(), "a stopped tail does not report")
}

func TestTailUnavailable(t *testing.T) {
	m := newTestModel(&fakeBackend{}, nil)
	press(m, "L")
	assert.False(t, m.Tailing())
	assert.Contains(t, m.View(), "live tail is not available")
}

func TestRefreshReRunsQuery(t *testing.T) {
	fb := &fakeBackend{}
	m := newTestModel(fb, nil)
	m.cfg.RefreshInterval = time.Hour

	_, cmd := m.Update(refreshMsg(time.Now()))
	settle(m, cmd)
	assert.Len(t, fb.queries, 1)
	assert.False(t, m.lastRun.IsZero())

	// no refresh while a request is in flight
	m.fetchLogs()
	_, cmd = m.Update(refreshMsg(time.Now()))
	settle(m, cmd)
	assert.Len(t, fb.queries, 1)
}

func TestRefreshKeepsViewerState(t *testing.T) {
	record := func(i int) vlogs.Record {
		return vlogs.Record{
			vlogs.FieldTime:     timeutil.FormatNano(base.Add(time.Duration(i) * time.Second)),
			vlogs.FieldMsg:      fmt.Sprintf("line %d", i),
			vlogs.FieldStream:   `{app="api"}`,
			vlogs.FieldStreamID: "s1",
		}
	}
	var recs []vlogs.Record
	for i := 60; i > 0; i-- {
		recs = append(recs, record(i))
	}
	fb := &fakeBackend{records: recs}
	m := newTestModel(fb, nil)
	m.cfg.RefreshInterval = time.Hour
	settle(m, m.Init())
	require.Len(t, m.Records(), 60)

	doc := m.groupView
	doc.ScrollBy(0, 30)
	start, end := textsel.Position{Element: 35, Offset: 2}, textsel.Position{Element: 36, Offset: 4}
	doc.SetSelection(&start, &end)
	selected := doc.SelectedText()
	require.NotEmpty(t, selected)

	// identical results
	_, cmd := m.Update(refreshMsg(time.Now()))
	settle(m, cmd)
	_, y := doc.ScrollOffset()
	assert.Equal(t, 30, y)
	assert.True(t, doc.HasSelection())
	assert.Equal(t, selected, doc.SelectedText())

	// tailed records push the same lines down
	m.appendTailed([]vlogs.Record{record(61), record(62)})
	_, y = doc.ScrollOffset()
	assert.Equal(t, 32, y)
	assert.Equal(t, 37, doc.Selection().Start.Element)
	assert.Equal(t, selected, doc.SelectedText())

	// a different query starts over
	m.query = "error"
	m.setRecords(recs)
	_, y = doc.ScrollOffset()
	assert.Zero(t, y)
	assert.False(t, doc.HasSelection())
}
