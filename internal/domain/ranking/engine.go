// Package ranking computes the read-only ranking reports: the SJAL athlete
// ranking and the organization points tally.
package ranking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/divari/internal/domain/model"
	"github.com/okian/divari/pkg/logger"
	"github.com/okian/divari/pkg/metrics"
)

const tracerName = "github.com/okian/divari/internal/domain/ranking"

// Report names used in metrics.
const (
	ReportSJAL   = "sjal_ranking"
	ReportPoints = "organization_points"
)

// ResultFilter selects ranked results for the SJAL ranking.
type ResultFilter struct {
	// DateStart and DateEnd select competitions overlapping the window.
	DateStart        time.Time
	DateEnd          time.Time
	CompetitionTypes []string
	Categories       []string
}

// PlacementFilter selects placed results for the organization points tally.
type PlacementFilter struct {
	Levels []string
	// Year matches the competition start date.
	Year        int
	MaxPosition int
}

// Source reads the national results register.
type Source interface {
	// RankedResults returns matching results of athletes of non-external
	// organizations.
	RankedResults(ctx context.Context, f ResultFilter) ([]model.RankedResult, error)
	// PlacedResults returns results with position <= f.MaxPosition.
	PlacedResults(ctx context.Context, f PlacementFilter) ([]model.PlacedResult, error)
}

// Query parameters of the SJAL ranking. A zero date yields an empty ranking.
type Query struct {
	Division  Division
	DateStart time.Time
	DateEnd   time.Time
	// Limit truncates the ranking; non-positive means no limit.
	Limit int
}

// PointsQuery parameters of the organization points tally.
type PointsQuery struct {
	// Levels defaults to {DefaultLevel}.
	Levels []string
	Year   int
	// MaxPosition defaults to DefaultMaxPosition.
	MaxPosition int
}

// Engine computes ranking reports from a Source.
type Engine struct {
	source Source
	logger logger.Logger
	tracer trace.Tracer
}

// NewEngine creates an engine reading from source.
func NewEngine(source Source, opts ...Option) *Engine {
	e := &Engine{
		source: source,
		logger: logger.Get().Named("ranking"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SJAL returns the ranked SJAL entries for q.
func (e *Engine) SJAL(ctx context.Context, q Query) ([]Entry, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.SJAL", trace.WithAttributes(
		attribute.String("ranking.division", string(q.Division)),
		attribute.Int("ranking.limit", q.Limit),
	))
	defer span.End()

	if !q.Division.Valid() || q.DateStart.IsZero() || q.DateEnd.IsZero() {
		return []Entry{}, nil
	}

	start := time.Now()
	results, err := e.source.RankedResults(ctx, ResultFilter{
		DateStart:        model.Day(q.DateStart),
		DateEnd:          model.Day(q.DateEnd),
		CompetitionTypes: CompetitionTypes,
		Categories:       q.Division.Categories(),
	})
	if err != nil {
		err = fmt.Errorf("read ranked results: %w", err)
		e.fail(ctx, span, ReportSJAL, start, err)
		return nil, err
	}

	entries := AssignRanks(Aggregate(q.Division, results), q.Limit)
	if entries == nil {
		entries = []Entry{}
	}
	metrics.RecordReport(ReportSJAL, len(entries), msSince(start), nil)
	span.SetAttributes(attribute.Int("ranking.entries", len(entries)))
	e.logger.Debug(ctx, "sjal ranking computed",
		logger.String("division", string(q.Division)),
		logger.Date("date_start", q.DateStart),
		logger.Date("date_end", q.DateEnd),
		logger.Int("results", len(results)),
		logger.Int("entries", len(entries)),
	)
	return entries, nil
}

// OrganizationPoints returns the points tally for q.
func (e *Engine) OrganizationPoints(ctx context.Context, q PointsQuery) ([]OrganizationPoints, error) {
	if len(q.Levels) == 0 {
		q.Levels = []string{DefaultLevel}
	}
	if q.MaxPosition <= 0 {
		q.MaxPosition = DefaultMaxPosition
	}

	ctx, span := e.tracer.Start(ctx, "Engine.OrganizationPoints", trace.WithAttributes(
		attribute.StringSlice("ranking.levels", q.Levels),
		attribute.Int("ranking.year", q.Year),
		attribute.Int("ranking.max_position", q.MaxPosition),
	))
	defer span.End()

	start := time.Now()
	results, err := e.source.PlacedResults(ctx, PlacementFilter{
		Levels:      q.Levels,
		Year:        q.Year,
		MaxPosition: q.MaxPosition,
	})
	if err != nil {
		err = fmt.Errorf("read placed results: %w", err)
		e.fail(ctx, span, ReportPoints, start, err)
		return nil, err
	}

	points := TallyPoints(results, q.MaxPosition)
	if points == nil {
		points = []OrganizationPoints{}
	}
	metrics.RecordReport(ReportPoints, len(points), msSince(start), nil)
	span.SetAttributes(attribute.Int("ranking.entries", len(points)))
	return points, nil
}

func (e *Engine) fail(ctx context.Context, span trace.Span, report string, start time.Time, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.RecordReport(report, 0, msSince(start), err)
	e.logger.Error(ctx, "report failed", logger.String("report", report), logger.Error(err))
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
