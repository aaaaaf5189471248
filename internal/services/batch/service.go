// Package batch runs many analyses from a CSV of (ticker, date, model)
// rows and summarizes the outcomes as CSV.
package batch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/limiter"
	"github.com/ternarybob/tickerlens/internal/models"
	"github.com/ternarybob/tickerlens/internal/services/analysis"
)

// Header is the output column layout
var Header = []string{"ticker", "date", "model", "rating", "target_price", "consensus", "price", "price_source", "status"}

var (
	// ErrTooManyRows is returned when the input exceeds the row limit
	ErrTooManyRows = errors.New("batch exceeds row limit")

	// ErrInvalidCSV is returned when the input cannot be read as CSV
	ErrInvalidCSV = errors.New("invalid CSV")
)

// Analyzer runs one analysis
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest) (*analysis.Outcome, error)
}

// Config holds batch settings
type Config struct {
	Concurrency int
	MaxRows     int
}

// Row is one parsed input row
type Row struct {
	Line int
	models.AnalyzeRequest
}

// Service runs batches
type Service struct {
	config   Config
	analyzer Analyzer
	logger   arbor.ILogger
}

// NewService creates a batch runner
func NewService(config Config, analyzer Analyzer, logger arbor.ILogger) *Service {
	if config.Concurrency <= 0 {
		config.Concurrency = limiter.DefaultSize
	}
	if config.MaxRows <= 0 {
		config.MaxRows = 500
	}
	return &Service{config: config, analyzer: analyzer, logger: logger}
}

// ParseRows reads ticker,date[,model] rows. A first row whose first cell
// is "ticker" is treated as a header. Blank lines are skipped.
func ParseRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []Row
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if line == 1 && len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "ticker") {
			continue
		}
		if isBlank(record) {
			continue
		}

		row := Row{Line: line}
		row.Ticker = cell(record, 0)
		row.Date = cell(record, 1)
		row.Model = cell(record, 2)
		rows = append(rows, row)
	}
	return rows, nil
}

// Run analyses every row of in and writes one output row per input row,
// in input order. A failed row carries an ERROR marker and does not stop
// the batch.
func (s *Service) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	rows, err := ParseRows(in)
	if err != nil {
		return err
	}
	if len(rows) > s.config.MaxRows {
		return fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(rows), s.config.MaxRows)
	}

	batchID := common.NewBatchID()
	logger := s.logger.WithCorrelationId(batchID)
	start := time.Now()
	logger.Info().Int("rows", len(rows)).Int("concurrency", s.config.Concurrency).Msg("Batch started")

	outcomes := limiter.Map(ctx, rows, s.config.Concurrency, func(ctx context.Context, i int, row Row) (outcome *analysis.Outcome, err error) {
		err = common.RecoverError(logger, "batchRow", func() error {
			var runErr error
			outcome, runErr = s.analyzer.Analyze(ctx, row.AnalyzeRequest)
			return runErr
		})
		return outcome, err
	})

	w := csv.NewWriter(out)
	if err := w.Write(Header); err != nil {
		return err
	}

	failed := 0
	for i, row := range rows {
		if outcomes[i].Err != nil {
			failed++
			logger.Warn().Int("line", row.Line).Str("ticker", row.Ticker).Err(outcomes[i].Err).Msg("Batch row failed")
		}
		if err := w.Write(Summarize(row, outcomes[i].Value, outcomes[i].Err)); err != nil {
			return err
		}
	}
	w.Flush()

	logger.Info().
		Int("rows", len(rows)).
		Int("failed", failed).
		Str("duration", time.Since(start).String()).
		Msg("Batch complete")
	return w.Error()
}

// Summarize renders one output row
func Summarize(row Row, outcome *analysis.Outcome, err error) []string {
	if err != nil || outcome == nil {
		if err == nil {
			err = errors.New("no result")
		}
		marker := "ERROR: " + err.Error()
		return []string{row.Ticker, row.Date, row.Model, marker, marker, marker, marker, marker, marker}
	}

	result := outcome.Result
	summary := readSummary(result.Analysis)

	status := "ok"
	if outcome.Cached {
		status = "cached"
	}

	price := ""
	if result.Data.MarketData.Price > 0 {
		price = strconv.FormatFloat(result.Data.MarketData.Price, 'f', 2, 64)
	}

	return []string{
		result.Input.Ticker,
		result.Input.Date,
		result.Model,
		summary.Rating,
		summary.TargetPrice,
		summary.Consensus,
		price,
		result.Data.MarketData.PriceSource,
		status,
	}
}

type analysisSummary struct {
	Rating      string
	TargetPrice string
	Consensus   string
}

// readSummary pulls the headline fields out of the LLM analysis, leaving
// fields empty when the response does not carry them
func readSummary(raw json.RawMessage) analysisSummary {
	var doc struct {
		Rating      string          `json:"rating"`
		TargetPrice json.RawMessage `json:"targetPrice"`
		Consensus   json.RawMessage `json:"consensus"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return analysisSummary{}
	}

	out := analysisSummary{Rating: doc.Rating}

	var target float64
	if err := json.Unmarshal(doc.TargetPrice, &target); err == nil && target > 0 {
		out.TargetPrice = strconv.FormatFloat(target, 'f', 2, 64)
	}

	var consensus struct {
		View string `json:"view"`
	}
	if err := json.Unmarshal(doc.Consensus, &consensus); err == nil && consensus.View != "" {
		out.Consensus = consensus.View
	} else {
		_ = json.Unmarshal(doc.Consensus, &out.Consensus)
	}
	return out
}

func cell(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func isBlank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
