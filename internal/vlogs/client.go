// Package vlogs is the VictoriaLogs select API client: queries, hits, live
// tail and stream context around a pivot log.
package vlogs

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/control-theory/vlexplore/internal/hits"
	"github.com/control-theory/vlexplore/internal/timeutil"
)

// ErrEmptyQuery is returned before any request is made when the query is blank
var ErrEmptyQuery = errors.New("query is required to /select/logsql/query")

// HTTPError is a non-2xx response. Its message is the raw response body.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return e.Status
}

// Options configures a Client
type Options struct {
	ServerURL  string
	User       string
	Password   string
	AccountID  string
	ProjectID  string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the VictoriaLogs select API
type Client struct {
	BaseURL   string
	User      string
	Password  string
	AccountID string
	ProjectID string
	Client    *http.Client
	logger    *zap.Logger
}

// NewClient creates a new VictoriaLogs client
func NewClient(opts Options) *Client {
	c := &Client{
		BaseURL:   strings.TrimSuffix(opts.ServerURL, "/"),
		User:      opts.User,
		Password:  opts.Password,
		AccountID: opts.AccountID,
		ProjectID: opts.ProjectID,
		Client:    opts.HTTPClient,
		logger:    opts.Logger,
	}
	if c.AccountID == "" {
		c.AccountID = "0"
	}
	if c.ProjectID == "" {
		c.ProjectID = "0"
	}
	if c.Client == nil {
		// no timeout: streaming requests rely on ctx cancellation
		c.Client = &http.Client{Timeout: 0}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// QueryParams are the inputs of a query request
type QueryParams struct {
	Query  string
	Limit  int
	Period timeutil.Period
}

// Query runs a LogsQL query and returns the decoded records. Malformed
// response lines are logged and skipped.
func (c *Client) Query(ctx context.Context, p QueryParams) ([]Record, error) {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	form := url.Values{}
	form.Set("query", q)
	if p.Limit > 0 {
		form.Set("limit", strconv.Itoa(p.Limit))
	}
	setPeriod(form, p.Period)

	resp, err := c.post(ctx, "/select/logsql/query", form, "application/stream+json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []Record
	err = scanNDJSON(resp.Body, func(line string) error {
		r, perr := ParseRecord([]byte(line))
		if perr != nil {
			c.logger.Warn("dropping malformed log line", zap.String("line", truncate(line, 256)), zap.Error(perr))
			return nil
		}
		records = append(records, r)
		if p.Limit > 0 && len(records) >= p.Limit {
			return errLimitReached
		}
		return nil
	})
	if err != nil && !errors.Is(err, errLimitReached) {
		return nil, fmt.Errorf("reading query response: %w", err)
	}
	c.logger.Debug("query finished", zap.String("query", q), zap.Int("records", len(records)))
	return records, nil
}

var errLimitReached = errors.New("limit reached")

// HitsParams are the inputs of a hits request
type HitsParams struct {
	Query       string
	Period      timeutil.Period
	Step        time.Duration
	Fields      []string
	FieldsLimit int
}

type hitsResponse struct {
	Hits []struct {
		Fields     map[string]string `json:"fields"`
		Timestamps []string          `json:"timestamps"`
		Values     []int64           `json:"values"`
		Total      int64             `json:"total"`
	} `json:"hits"`
}

// Hits fetches bucketed hit counts grouped by the requested fields. The
// bucket with empty fields aggregates every group beyond the fields limit.
func (c *Client) Hits(ctx context.Context, p HitsParams) ([]hits.Bucket, error) {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	form := url.Values{}
	form.Set("query", q)
	form.Set("step", timeutil.FormatStep(p.Step))
	for _, f := range p.Fields {
		form.Add("field", f)
	}
	if p.FieldsLimit > 0 {
		form.Set("fields_limit", strconv.Itoa(p.FieldsLimit))
	}
	setPeriod(form, p.Period)

	resp, err := c.post(ctx, "/select/logsql/hits", form, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body hitsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding hits response: %w", err)
	}

	buckets := make([]hits.Bucket, 0, len(body.Hits))
	for _, h := range body.Hits {
		b := hits.Bucket{
			Values:  h.Values,
			Total:   h.Total,
			Fields:  h.Fields,
			IsOther: len(h.Fields) == 0,
		}
		for _, raw := range h.Timestamps {
			ts, err := timeutil.ParseTime(raw)
			if err != nil {
				return nil, err
			}
			b.Timestamps = append(b.Timestamps, ts)
		}
		buckets = append(buckets, b)
	}
	return buckets, nil
}

// Tail live-tails logs matching LogsQL. Optionally pass params like
// start_offset=1h to replay recent history before live mode kicks in.
func (c *Client) Tail(ctx context.Context, logsQL string, params map[string]string, onLine func(string) error) error {
	q := strings.TrimSpace(logsQL)
	if q == "" {
		return ErrEmptyQuery
	}
	form := url.Values{}
	form.Set("query", q)
	for k, v := range params {
		form.Set(k, v)
	}

	resp, err := c.post(ctx, "/select/logsql/tail", form, "application/stream+json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return scanNDJSON(resp.Body, onLine)
}

func (c *Client) post(ctx context.Context, path string, form url.Values, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", accept)
	req.Header.Set("AccountID", c.AccountID)
	req.Header.Set("ProjectID", c.ProjectID)
	if c.User != "" {
		req.SetBasicAuth(c.User, c.Password)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

func setPeriod(form url.Values, p timeutil.Period) {
	if p.IsZero() {
		return
	}
	form.Set("start", timeutil.FormatISO(p.Start))
	form.Set("end", timeutil.FormatISO(p.End))
}

// scanNDJSON scans newline-delimited JSON from the response body
func scanNDJSON(r io.Reader, onLine func(string) error) error {
	scanner := bufio.NewScanner(r)

	const maxScanTokenSize = 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxScanTokenSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := onLine(line); err != nil {
			return err
		}
	}

	return scanner.Err()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
