package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

// logsMsg carries the result of a logs query
type logsMsg struct {
	id      string
	records []vlogs.Record
	err     error
	took    time.Duration
}

// hitsMsg carries the result of a hits query
type hitsMsg struct {
	id      string
	buckets []hits.Bucket
	step    time.Duration
	err     error
}

// tailMsg carries records read from the live tail
type tailMsg struct {
	tailer  Tailer
	records []vlogs.Record
}

// tailClosedMsg is sent when the live tail stream ends
type tailClosedMsg struct {
	tailer Tailer
	err    error
}

// refreshMsg re-runs the query on the refresh interval
type refreshMsg time.Time

// maxTailBatch bounds how many buffered tail records one message carries
const maxTailBatch = 200

// runQuery starts the logs and hits requests for the current query. The two
// run concurrently on separate fetchers so neither aborts the other, while a
// new run aborts both of the previous run.
func (m *Model) runQuery() tea.Cmd {
	m.period = m.queryPeriod()
	m.lastRun = m.now()
	m.status = ""
	return tea.Batch(m.fetchLogs(), m.fetchHits())
}

func (m *Model) queryPeriod() timeutil.Period {
	if m.cfg.Since <= 0 {
		return timeutil.Period{}
	}
	return timeutil.Last(m.now(), m.cfg.Since)
}

func (m *Model) fetchLogs() tea.Cmd {
	id, ctx := m.logsFetcher.Begin(false)
	m.logsReqID = id
	params := vlogs.QueryParams{Query: m.query, Limit: m.cfg.Limit, Period: m.period}
	backend, logger := m.backend, m.logger

	return func() tea.Msg {
		start := time.Now()
		records, err := backend.Query(ctx, params)
		if err != nil {
			logger.Debug("logs query failed", zap.String("query", params.Query), zap.Error(err))
		}
		return logsMsg{id: id, records: records, err: err, took: time.Since(start)}
	}
}

func (m *Model) fetchHits() tea.Cmd {
	id, ctx := m.hitsFetcher.Begin(false)
	m.hitsReqID = id
	step := m.hitsStep()
	params := vlogs.HitsParams{
		Query:       m.query,
		Period:      m.period,
		Step:        step,
		Fields:      m.cfg.GroupBy,
		FieldsLimit: m.cfg.FieldsLimit,
	}
	backend := m.backend

	return func() tea.Msg {
		buckets, err := backend.Hits(ctx, params)
		return hitsMsg{id: id, buckets: buckets, step: step, err: err}
	}
}

// hitsStep returns the configured step or one fitting the chart width
func (m *Model) hitsStep() time.Duration {
	if m.cfg.HitsStep > 0 {
		return m.cfg.HitsStep
	}
	period := m.period
	if period.IsZero() {
		if s, ok := m.backend.(spanner); ok {
			period = s.Span()
		}
	}
	if period.Duration() <= 0 {
		return time.Minute
	}
	return timeutil.AutoStep(period, m.chart.columns())
}

func (m *Model) handleLogs(msg logsMsg) {
	if msg.id != m.logsReqID {
		m.logsFetcher.Finish(msg.id, nil, context.Canceled)
		return
	}
	if m.logsFetcher.Finish(msg.id, msg.records, msg.err) {
		m.took = msg.took
		m.setRecords(m.logsFetcher.Records())
		return
	}
	if msg.err != nil && m.logsFetcher.Err() != "" {
		m.setRecords(nil)
	}
}

func (m *Model) handleHits(msg hitsMsg) {
	if msg.id != m.hitsReqID {
		m.hitsFetcher.Finish(msg.id, nil, context.Canceled)
		return
	}
	if m.hitsFetcher.Finish(msg.id, nil, msg.err) {
		m.chart.setBuckets(msg.buckets, msg.step)
		return
	}
	if m.hitsFetcher.Err() != "" {
		m.chart.setBuckets(nil, msg.step)
	}
}

// startTail starts streaming live records for the current query
func (m *Model) startTail() tea.Cmd {
	if m.tail == nil {
		m.status = "live tail is not available for this source"
		return nil
	}
	m.stopTail()
	m.tailErr = ""
	t := m.tail(m.query)
	t.Start()
	m.tailer = t
	m.logger.Info("live tail started", zap.String("query", m.query))
	return waitForTail(t)
}

func (m *Model) stopTail() {
	if m.tailer == nil {
		return
	}
	m.tailer.Stop()
	m.tailer = nil
	m.logger.Info("live tail stopped")
}

// waitForTail blocks for the next tailed record and drains whatever else is
// already buffered
func waitForTail(t Tailer) tea.Cmd {
	return func() tea.Msg {
		rec, ok := <-t.Records()
		if !ok {
			return tailClosedMsg{tailer: t, err: t.Err()}
		}
		batch := []vlogs.Record{rec}
		for len(batch) < maxTailBatch {
			select {
			case r, ok := <-t.Records():
				if !ok {
					return tailMsg{tailer: t, records: batch}
				}
				batch = append(batch, r)
			default:
				return tailMsg{tailer: t, records: batch}
			}
		}
		return tailMsg{tailer: t, records: batch}
	}
}

func (m *Model) refreshTick() tea.Cmd {
	return tea.Tick(m.cfg.RefreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}
