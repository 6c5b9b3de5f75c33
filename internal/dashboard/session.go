// Package dashboard ties loading, interpretation, execution, charting and
// summarization together behind a per-user Session.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/csvdash/internal/ai"
	"github.com/KaramelBytes/csvdash/internal/chart"
	"github.com/KaramelBytes/csvdash/internal/dataset"
	"github.com/KaramelBytes/csvdash/internal/engine"
	"github.com/KaramelBytes/csvdash/internal/history"
	"github.com/KaramelBytes/csvdash/internal/intent"
	"github.com/KaramelBytes/csvdash/internal/profile"
	"github.com/KaramelBytes/csvdash/internal/suggest"
	"github.com/KaramelBytes/csvdash/internal/summary"
)

// MaxRecentQueries bounds the in-memory query history of a session.
const MaxRecentQueries = 10

var (
	ErrNoDataset  = errors.New("no dataset loaded")
	ErrEmptyQuery = errors.New("query is empty")
	ErrNoResult   = errors.New("no query has been answered yet")
)

// Services are shared by every session.
type Services struct {
	Gateway *ai.Gateway
	// History is optional.
	History     *history.Store
	Hints       intent.RateHints
	LoadOptions dataset.Options
	Profile     profile.Options
	Log         *zap.Logger
}

// Session is one loaded dataset and the queries asked about it. The dataset
// is replaced wholesale by Load; readers never observe a partial load.
type Session struct {
	ID      string
	Created time.Time

	svc    Services
	log    *zap.Logger
	interp *intent.Interpreter
	sugg   *suggest.Generator
	sum    *summary.Summarizer

	mu     sync.RWMutex
	ds     *dataset.Dataset
	set    *profile.Set
	report dataset.CleanReport
	recent []string
	last   *Answer
}

// NewSession returns an empty session.
func NewSession(svc Services) *Session {
	if svc.Log == nil {
		svc.Log = zap.NewNop()
	}
	if svc.LoadOptions == (dataset.Options{}) {
		svc.LoadOptions = dataset.DefaultOptions()
	}
	id := uuid.NewString()
	return &Session{
		ID:      id,
		Created: time.Now(),
		svc:     svc,
		log:     svc.Log.With(zap.String("session", id)),
		interp:  intent.NewInterpreter(svc.Gateway, svc.Hints),
		sugg:    suggest.NewGenerator(svc.Gateway),
		sum:     summary.New(svc.Gateway),
	}
}

// Load reads, cleans and profiles a table and makes it the session dataset.
func (s *Session) Load(r io.Reader, name string) (dataset.CleanReport, error) {
	ds, rep, err := dataset.Read(r, name, s.svc.LoadOptions)
	if err != nil {
		return rep, err
	}
	s.replace(ds, rep)
	return rep, nil
}

// LoadFile is Load for a path on disk.
func (s *Session) LoadFile(path string) (dataset.CleanReport, error) {
	ds, rep, err := dataset.LoadFile(path, s.svc.LoadOptions)
	if err != nil {
		return rep, err
	}
	s.replace(ds, rep)
	return rep, nil
}

// LoadSample loads the built-in employee dataset.
func (s *Session) LoadSample() dataset.CleanReport {
	ds, rep := dataset.SampleReport()
	s.replace(ds, rep)
	return rep
}

func (s *Session) replace(ds *dataset.Dataset, rep dataset.CleanReport) {
	set := profile.Profile(ds, s.svc.Profile)
	s.mu.Lock()
	s.ds, s.set, s.report = ds, set, rep
	s.recent = nil
	s.last = nil
	s.mu.Unlock()
	s.log.Info("dataset loaded",
		zap.String("dataset", ds.Name),
		zap.Int("rows", ds.Len()),
		zap.Int("columns", len(ds.Columns)),
		zap.String("quality", rep.Quality),
	)
}

func (s *Session) snapshot() (*dataset.Dataset, *profile.Set, dataset.CleanReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ds == nil {
		return nil, nil, dataset.CleanReport{}, ErrNoDataset
	}
	return s.ds, s.set, s.report, nil
}

// Overview is what the dashboard shows right after a load.
type Overview struct {
	SessionID string              `json:"session_id" yaml:"session_id"`
	Dataset   string              `json:"dataset" yaml:"dataset"`
	Rows      int                 `json:"rows" yaml:"rows"`
	Columns   []string            `json:"columns" yaml:"columns"`
	Report    dataset.CleanReport `json:"report" yaml:"report"`
	Profile   *profile.Set        `json:"profile" yaml:"profile"`
	KPIs      []profile.KPI       `json:"kpis" yaml:"kpis"`
	KPISource ai.Source           `json:"kpi_source" yaml:"kpi_source"`
	// Analysis is prose describing the structure of the dataset; it is only
	// filled when requested.
	Analysis       string    `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	AnalysisSource ai.Source `json:"analysis_source,omitempty" yaml:"analysis_source,omitempty"`
}

// Describe returns the profile, report and KPIs of the loaded dataset.
// withAnalysis adds a prose overview.
func (s *Session) Describe(ctx context.Context, withAnalysis bool) (*Overview, error) {
	ds, set, rep, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	ov := &Overview{
		SessionID: s.ID,
		Dataset:   ds.Name,
		Rows:      ds.Len(),
		Columns:   ds.Columns,
		Report:    rep,
		Profile:   set,
	}
	ov.KPIs, ov.KPISource = s.sum.KPIs(ctx, ds, set)
	if withAnalysis {
		ov.Analysis, ov.AnalysisSource = s.sum.Overview(ctx, ds, set, rep)
	}
	return ov, nil
}

// Suggestions proposes questions about the loaded dataset.
func (s *Session) Suggestions(ctx context.Context) (suggest.Result, error) {
	ds, set, _, err := s.snapshot()
	if err != nil {
		return suggest.Result{}, err
	}
	res := s.sugg.Generate(ctx, ds, set)
	if res.Err != nil && !errors.Is(res.Err, ai.ErrDisabled) {
		s.log.Warn("suggestions fell back", zap.Error(res.Err))
	}
	return res, nil
}

// AskOptions tunes Ask.
type AskOptions struct {
	// NoSummary skips the prose summary.
	NoSummary bool
}

// Answer is everything the dashboard renders for one query.
type Answer struct {
	Query         string           `json:"query"`
	Intent        intent.Intent    `json:"intent"`
	Result        engine.Result    `json:"result"`
	Records       []map[string]any `json:"records"`
	Chart         chart.Config     `json:"chart"`
	Summary       string           `json:"summary,omitempty"`
	SummarySource ai.Source        `json:"summary_source,omitempty"`
	Elapsed       time.Duration    `json:"elapsed_ns"`
}

// Ask interprets query, executes it against the loaded dataset, picks a
// chart and summarizes the result. Interpretation and summary failures fall
// back to local logic; execution failures yield a degraded result. The only
// errors are a missing dataset and an empty query.
func (s *Session) Ask(ctx context.Context, query string, opt AskOptions) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	ds, set, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	start := time.Now()

	in := s.interp.Interpret(ctx, ds, set, query)
	res := engine.Execute(ds, in)
	cfg := chart.Select(res, in)
	if cfg.Available() {
		res.Chart = cfg.Type
	}
	ans := &Answer{
		Query:   query,
		Intent:  in,
		Result:  res,
		Records: Records(res),
		Chart:   cfg,
	}
	if !opt.NoSummary {
		ans.Summary, ans.SummarySource = s.sum.Summarize(ctx, ds, in, res)
	}
	ans.Elapsed = time.Since(start)

	s.mu.Lock()
	if s.ds == ds {
		s.recent = append(s.recent, query)
		if len(s.recent) > MaxRecentQueries {
			s.recent = s.recent[len(s.recent)-MaxRecentQueries:]
		}
		s.last = ans
	}
	s.mu.Unlock()

	s.log.Info("query answered",
		zap.String("query", query),
		zap.String("type", string(in.Type)),
		zap.String("chart", string(res.Chart)),
		zap.String("intent_source", string(in.Source)),
		zap.Bool("degraded", res.Failed()),
		zap.Duration("elapsed", ans.Elapsed),
	)
	s.record(ctx, ds, ans)
	return ans, nil
}

func (s *Session) record(ctx context.Context, ds *dataset.Dataset, ans *Answer) {
	if s.svc.History == nil {
		return
	}
	_, err := s.svc.History.Record(ctx, history.Entry{
		SessionID: s.ID,
		Dataset:   ds.Name,
		Query:     ans.Query,
		QueryType: string(ans.Intent.Type),
		ChartType: string(ans.Result.Chart),
		Source:    string(ans.Intent.Source),
		Failed:    ans.Result.Failed(),
	})
	if err != nil {
		s.log.Warn("history write failed", zap.Error(err))
	}
}

// Recent returns the last queries asked in this session, oldest first.
func (s *Session) Recent() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.recent...)
}

// Last returns the most recent answer.
func (s *Session) Last() (*Answer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil, ErrNoResult
	}
	return s.last, nil
}

// Format is an export file format.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx" (case-insensitive, optional dot).
func ParseFormat(s string) (Format, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".") {
	case "", "csv":
		return CSV, nil
	case "xlsx":
		return XLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv or xlsx)", s)
}

// View selects what Export writes.
type View string

const (
	ViewDataset View = "dataset"
	ViewResult  View = "result"
)

// Export writes the cleaned dataset or the table behind the last answer.
func (s *Session) Export(w io.Writer, f Format, v View) error {
	var d *dataset.Dataset
	switch v {
	case ViewResult:
		ans, err := s.Last()
		if err != nil {
			return err
		}
		ds, _, _, err := s.snapshot()
		if err != nil {
			return err
		}
		d = ans.Result.Dataset(strings.TrimSuffix(ds.Name, ".csv") + "_result")
		d.Delimiter = ds.Delimiter
	default:
		ds, _, _, err := s.snapshot()
		if err != nil {
			return err
		}
		d = ds
	}
	if f == XLSX {
		return dataset.WriteXLSX(w, d)
	}
	return dataset.WriteCSV(w, d)
}

// Records flattens a result into JSON-friendly records. Grouped results use
// {<group column>: key, "value": v}; other payloads map column names to
// cells.
func Records(res engine.Result) []map[string]any {
	if res.Data == nil {
		return nil
	}
	if gs, ok := res.Data.(*engine.GroupSeries); ok {
		return gs.Records()
	}
	cols, rows := res.Data.Table()
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		m := make(map[string]any, len(cols))
		for i, c := range cols {
			if i < len(r) {
				m[c] = r[i]
			}
		}
		out = append(out, m)
	}
	return out
}
