package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/docview"
	"github.com/control-theory/vlexplore/internal/vlogs"
)

// contextMsg carries one page of stream context
type contextMsg struct {
	modal   *contextModal
	id      string
	req     vlogs.ContextRequest
	records []vlogs.Record
	err     error
}

// contextModal shows the logs around a record of its stream. Newer and
// older pages load independently, so it keeps one request per direction.
type contextModal struct {
	backend Backend
	logger  *zap.Logger
	state   *vlogs.StreamContext
	fetcher *vlogs.Fetcher
	pending map[vlogs.Direction]string
	pageIdx int
	view    *docview.Model
	width   int
	height  int
	status  string
}

func newContextModal(backend Backend, pivot vlogs.Record, lines int, logger *zap.Logger) *contextModal {
	pageIdx := 0
	for i, n := range vlogs.ContextPageSizes {
		if n <= lines {
			pageIdx = i
		}
	}
	return &contextModal{
		backend: backend,
		logger:  logger,
		state:   vlogs.NewStreamContext(pivot),
		fetcher: vlogs.NewFetcher(),
		pending: map[vlogs.Direction]string{},
		pageIdx: pageIdx,
		view:    docview.New(docview.DefaultOptions()),
	}
}

func (c *contextModal) pageSize() int {
	return vlogs.ContextPageSizes[c.pageIdx]
}

// resizePage moves through the page sizes
func (c *contextModal) resizePage(delta int) {
	c.pageIdx = min(max(c.pageIdx+delta, 0), len(vlogs.ContextPageSizes)-1)
	c.status = fmt.Sprintf("page size %d", c.pageSize())
}

// open loads the first pages in both directions
func (c *contextModal) open() tea.Cmd {
	return tea.Batch(c.load(vlogs.After), c.load(vlogs.Before))
}

// load fetches the next page in dir unless one is already loading or the
// previous page came back short
func (c *contextModal) load(dir vlogs.Direction) tea.Cmd {
	if _, busy := c.pending[dir]; busy {
		return nil
	}
	if !c.state.HasMore(dir) {
		c.status = fmt.Sprintf("no more %s logs", directionName(dir))
		return nil
	}
	req, err := c.state.Request(dir, c.pageSize())
	if err != nil {
		c.status = err.Error()
		return nil
	}

	id, ctx := c.fetcher.Begin(true)
	c.pending[dir] = id
	c.status = "loading…"
	backend := c.backend
	return func() tea.Msg {
		records, err := backend.Query(ctx, vlogs.QueryParams{Query: req.Query})
		return contextMsg{modal: c, id: id, req: req, records: records, err: err}
	}
}

func (c *contextModal) handle(msg contextMsg) {
	if c.pending[msg.req.Dir] == msg.id {
		delete(c.pending, msg.req.Dir)
	}
	if !c.fetcher.Finish(msg.id, msg.records, msg.err) {
		if e := c.fetcher.Err(); e != "" {
			c.status = e
			c.logger.Warn("stream context failed", zap.String("direction", string(msg.req.Dir)), zap.Error(msg.err))
		}
		return
	}
	c.state.Merge(msg.req, msg.records)
	c.status = ""

	records, pivot := c.state.Records()
	c.view.SetLines(contextLines(records, pivot))
	if pivot > 0 {
		c.view.ScrollBy(0, pivot-c.viewHeight()/2)
	}
}

func (c *contextModal) viewHeight() int {
	_, _, _, h := c.view.Rect()
	return h
}

// layout places the modal box centred with a margin of 4 columns and 2 rows
func (c *contextModal) layout(width, height int) {
	c.width, c.height = width, height
	boxW, boxH := max(width-8, 20), max(height-4, 6)
	// inside the border, below the header row
	c.view.SetRect(5, 4, boxW-2, boxH-3)
	c.view.SetScreenSize(width, height)
}

func (c *contextModal) close() {
	c.fetcher.Close()
	c.view.Close()
}

func (c *contextModal) header() string {
	newer, older := "●", "●"
	if !c.state.HasMore(vlogs.After) {
		newer = "○"
	}
	if !c.state.HasMore(vlogs.Before) {
		older = "○"
	}
	text := fmt.Sprintf("Stream context  %s  n: newer %s  o: older %s  +/-: page %d  esc: close",
		c.state.Pivot.Stream(), newer, older, c.pageSize())
	if c.status != "" {
		text += "  " + c.status
	}
	return text
}

func (c *contextModal) View() string {
	boxW, boxH := max(c.width-8, 20), max(c.height-4, 6)
	header := lipgloss.NewStyle().
		Foreground(ColorBlue).
		Bold(true).
		Render(ansi.Truncate(c.header(), boxW-2, "…"))
	body := lipgloss.JoinVertical(lipgloss.Left, header, c.view.View())
	box := modalStyle.Width(boxW - 2).Height(boxH - 2).Render(body)
	return lipgloss.Place(c.width, c.height, lipgloss.Center, lipgloss.Center, box)
}

func directionName(dir vlogs.Direction) string {
	if dir == vlogs.After {
		return "newer"
	}
	return "older"
}
