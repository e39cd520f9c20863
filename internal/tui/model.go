package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/docview"
	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/render"
	"github.com/control-theory/vlexplore/internal/timeutil"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

// View identifies one of the result views
type View int

const (
	ViewGroup View = iota
	ViewJSON
	ViewTable
	ViewHits
)

var viewNames = []string{"group", "json", "table", "hits"}

func (v View) String() string {
	if v < 0 || int(v) >= len(viewNames) {
		return "unknown"
	}
	return viewNames[v]
}

// ParseView resolves a view name
func ParseView(name string) (View, error) {
	for i, n := range viewNames {
		if strings.EqualFold(n, name) {
			return View(i), nil
		}
	}
	return 0, fmt.Errorf("unknown view %q, expected one of %s", name, strings.Join(viewNames, ", "))
}

// Backend answers log queries and hit aggregations. Both the HTTP client
// and the offline file store implement it.
type Backend interface {
	Query(ctx context.Context, p vlogs.QueryParams) ([]vlogs.Record, error)
	Hits(ctx context.Context, p vlogs.HitsParams) ([]hits.Bucket, error)
}

// spanner is implemented by backends that know the time range they hold
type spanner interface {
	Span() timeutil.Period
}

// Tailer streams live records
type Tailer interface {
	Start()
	Stop()
	Records() <-chan vlogs.Record
	Err() error
}

// TailFunc builds an unstarted tailer for query
type TailFunc func(query string) Tailer

// Config holds the explorer settings
type Config struct {
	Query           string
	Limit           int
	Since           time.Duration // 0 means no time filter
	HitsStep        time.Duration // 0 picks a step from the chart width
	GroupBy         []string
	FieldsLimit     int
	ContextLines    int
	View            View
	Tail            bool
	RefreshInterval time.Duration // re-run the query periodically when > 0
	Source          string
}

// Model is the root bubbletea model of the explorer
type Model struct {
	cfg     Config
	backend Backend
	tail    TailFunc
	logger  *zap.Logger
	now     func() time.Time

	width  int
	height int
	view   View
	keys   KeyMap

	// Query editor
	queryInput textinput.Model
	editing    bool
	query      string
	period     timeutil.Period

	// Results
	logsFetcher *vlogs.Fetcher
	hitsFetcher *vlogs.Fetcher
	logsReqID   string
	hitsReqID   string
	records     []vlogs.Record
	shown       bool   // records have been rendered at least once
	shownQuery  string // query the rendered records came from
	groupKeys   []string
	jsonKeys    []string
	lastRun     time.Time
	took        time.Duration

	// Views
	groupView *docview.Model
	jsonView  *docview.Model
	table     table.Model
	chart     *hitsChart
	ctxModal  *contextModal

	// Live tail
	tailer  Tailer
	tailErr string

	// Help modal
	showHelp     bool
	help         help.Model
	helpViewport viewport.Model

	status string
}

// New creates the explorer. tail may be nil when live tail is unavailable.
func New(cfg Config, backend Backend, tail TailFunc, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Query == "" {
		cfg.Query = "*"
	}
	if cfg.ContextLines <= 0 {
		cfg.ContextLines = 10
	}

	qi := textinput.New()
	qi.Prompt = "LogsQL> "
	qi.PromptStyle = queryPromptStyle
	qi.TextStyle = queryTextStyle
	qi.Placeholder = "*"
	qi.CharLimit = 4096
	qi.SetValue(cfg.Query)

	jsonOpts := docview.DefaultOptions()
	jsonOpts.Highlighter = render.NewSyntaxHighlighter("json")

	m := &Model{
		cfg:          cfg,
		backend:      backend,
		tail:         tail,
		logger:       logger.Named("tui"),
		now:          time.Now,
		view:         cfg.View,
		keys:         DefaultKeyMap(),
		queryInput:   qi,
		query:        cfg.Query,
		logsFetcher:  vlogs.NewFetcher(),
		hitsFetcher:  vlogs.NewFetcher(),
		groupView:    docview.New(docview.DefaultOptions()),
		jsonView:     docview.New(jsonOpts),
		table:        newRecordTable(),
		chart:        newHitsChart(),
		help:         help.New(),
		helpViewport: viewport.New(0, 0),
	}
	return m
}

// Init runs the first query and starts tailing or refreshing when configured
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.runQuery()}
	if m.cfg.Tail {
		cmds = append(cmds, m.startTail())
	}
	if m.cfg.RefreshInterval > 0 {
		cmds = append(cmds, m.refreshTick())
	}
	return tea.Batch(cmds...)
}

// Records returns the records currently shown
func (m *Model) Records() []vlogs.Record {
	return m.records
}

// Query returns the query of the last run
func (m *Model) Query() string {
	return m.query
}

// ActiveView returns the selected view
func (m *Model) ActiveView() View {
	return m.view
}

// Loading reports whether a logs or hits request is in flight
func (m *Model) Loading() bool {
	return m.logsFetcher.Loading() || m.hitsFetcher.Loading()
}

// Err returns the user visible error of the last request
func (m *Model) Err() string {
	if err := m.logsFetcher.Err(); err != "" {
		return err
	}
	if err := m.hitsFetcher.Err(); err != "" {
		return err
	}
	return m.tailErr
}

// Tailing reports whether live tail is running
func (m *Model) Tailing() bool {
	return m.tailer != nil
}

// activeDoc returns the document viewer of the current view, if any
func (m *Model) activeDoc() *docview.Model {
	if m.ctxModal != nil {
		return m.ctxModal.view
	}
	switch m.view {
	case ViewGroup:
		return m.groupView
	case ViewJSON:
		return m.jsonView
	}
	return nil
}

// layout sizes every component to the terminal. Row 0 holds the query bar,
// the last row the status line.
func (m *Model) layout() {
	contentH := max(m.height-2, 1)
	for _, v := range []*docview.Model{m.groupView, m.jsonView} {
		v.SetRect(0, 1, m.width, contentH)
		v.SetScreenSize(m.width, m.height)
	}
	m.queryInput.Width = max(m.width-lipgloss.Width(m.queryInput.Prompt)-1, 1)
	m.table.SetWidth(m.width)
	m.table.SetHeight(max(contentH, 2))
	m.table.SetColumns(recordColumns(m.width))
	m.chart.setRect(0, 1, m.width, contentH)
	if m.ctxModal != nil {
		m.ctxModal.layout(m.width, m.height)
	}
}

// setRecords replaces the results and rebuilds every view. Results of the
// query already on screen keep the viewers' scroll position
// and selection.
func (m *Model) setRecords(records []vlogs.Record) {
	m.records = records
	groupL, groupK := groupLines(records)
	jsonL, jsonK := jsonLines(records)
	if m.shown && m.shownQuery == m.query {
		m.groupView.ReplaceLines(groupL, remapLines(m.groupKeys, groupK))
		m.jsonView.ReplaceLines(jsonL, remapLines(m.jsonKeys, jsonK))
	} else {
		m.groupView.SetLines(groupL)
		m.jsonView.SetLines(jsonL)
	}
	m.groupKeys, m.jsonKeys = groupK, jsonK
	m.shown, m.shownQuery = true, m.query
	m.table.SetRows(recordRows(records))
	if m.table.Cursor() >= len(records) {
		m.table.SetCursor(0)
	}
}

// appendTailed adds live records in front of the results, newest first
func (m *Model) appendTailed(recs []vlogs.Record) {
	merged := make([]vlogs.Record, 0, len(recs)+len(m.records))
	for i := len(recs) - 1; i >= 0; i-- {
		merged = append(merged, recs[i])
	}
	merged = append(merged, m.records...)
	if m.cfg.Limit > 0 && len(merged) > m.cfg.Limit {
		merged = merged[:m.cfg.Limit]
	}
	m.setRecords(merged)
}

// closeViews releases the timers of every viewer
func (m *Model) closeViews() {
	m.groupView.Close()
	m.jsonView.Close()
	if m.ctxModal != nil {
		m.ctxModal.close()
		m.ctxModal = nil
	}
	m.stopTail()
	m.logsFetcher.Close()
	m.hitsFetcher.Close()
}
