// Package filing runs the whole return pipeline for a set of statement
// files: read text, extract, aggregate, compute and optionally fill the
// base form. Every run gets an id that tags its log lines.
package filing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/a3tai/mcp-tax-filer/internal/extract"
	"github.com/a3tai/mcp-tax-filer/internal/income"
	"github.com/a3tai/mcp-tax-filer/internal/render"
	"github.com/a3tai/mcp-tax-filer/internal/taxcalc"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/textsource"
	"github.com/a3tai/mcp-tax-filer/internal/worksheet"
	"github.com/google/uuid"
	"github.com/phuslu/log"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent document reads and extractions
const DefaultWorkers = 4

// Options configures a Service
type Options struct {
	MaxFileSize   int64
	MinConfidence float64
	Workers       int
	Logger        *log.Logger
}

// Service runs filings. It holds read-only collaborators and is safe for
// concurrent use.
type Service struct {
	source    *textsource.Source
	extractor *extract.Extractor
	engine    *taxcalc.Engine
	renderer  *render.Renderer
	workers   int
	logger    *log.Logger
}

// DocumentRef names one statement file and, optionally, its declared type
type DocumentRef struct {
	Path         string               `json:"path"`
	DeclaredType *taxdoc.DocumentType `json:"declared_type,omitempty"`
}

// DocumentError is a statement that could not be read or recognized
type DocumentError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
	err   error
}

// Err returns the underlying error
func (e DocumentError) Err() error {
	return e.err
}

// ErrIncompleteRun is returned when a filled form or worksheet is
// requested but some documents could not be extracted, or none were given
var ErrIncompleteRun = errors.New("refusing to produce a return from incomplete documents")

// checkComplete fails when a return built from docs would silently leave
// out a statement
func checkComplete(docs []*taxdoc.ExtractedDocument, errs []DocumentError) error {
	if len(errs) > 0 {
		failed := make([]string, 0, len(errs))
		for _, e := range errs {
			failed = append(failed, e.Path+": "+e.Error)
		}
		return fmt.Errorf("%w: %s", ErrIncompleteRun, strings.Join(failed, "; "))
	}
	if len(docs) == 0 {
		return fmt.Errorf("%w: no documents were extracted", ErrIncompleteRun)
	}
	return nil
}

// Request is one filing run
type Request struct {
	Documents    []DocumentRef
	Profile      taxdoc.FilerProfile
	ProfileNotes []string
	// Template and Output are both required to fill the base form
	Template  string
	Output    string
	Worksheet string
}

// Report is the outcome of a filing run
type Report struct {
	RunID     string                      `json:"run_id"`
	TaxYear   int                         `json:"tax_year"`
	Documents []*taxdoc.ExtractedDocument `json:"documents"`
	Errors    []DocumentError             `json:"errors,omitempty"`
	Summary   taxdoc.IncomeSummary        `json:"summary"`
	Result    *taxdoc.TaxResult           `json:"result"`
	Notes     []string                    `json:"notes,omitempty"`
	Output    string                      `json:"output,omitempty"`
	Worksheet string                      `json:"worksheet,omitempty"`
	Duration  time.Duration               `json:"duration"`
}

// NewService creates a service over the built-in tables and form map
func NewService(opts Options) (*Service, error) {
	engine, err := taxcalc.NewDefaultEngine()
	if err != nil {
		return nil, fmt.Errorf("failed to load tax tables: %w", err)
	}
	renderer, err := render.NewDefaultRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load form map: %w", err)
	}

	var extractOpts []extract.Option
	if opts.MinConfidence > 0 {
		extractOpts = append(extractOpts, extract.WithMinConfidence(opts.MinConfidence))
	}

	s := &Service{
		source:    textsource.New(opts.MaxFileSize),
		extractor: extract.New(extractOpts...),
		engine:    engine,
		renderer:  renderer,
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
	if s.workers < 1 {
		s.workers = DefaultWorkers
	}
	if s.logger == nil {
		s.logger = &log.DefaultLogger
	}
	return s, nil
}

// Logger returns the logger runs are reported to
func (s *Service) Logger() *log.Logger {
	return s.logger
}

// Engine returns the tax engine
func (s *Service) Engine() *taxcalc.Engine {
	return s.engine
}

// Renderer returns the form renderer
func (s *Service) Renderer() *render.Renderer {
	return s.renderer
}

// Source returns the PDF text source
func (s *Service) Source() *textsource.Source {
	return s.source
}

// Extractor returns the document extractor
func (s *Service) Extractor() *extract.Extractor {
	return s.extractor
}

// ExtractFiles reads and extracts each statement. Documents that fail are
// reported per file and do not stop the others.
func (s *Service) ExtractFiles(ctx context.Context, refs []DocumentRef) ([]*taxdoc.ExtractedDocument, []DocumentError, error) {
	inputs := make([]extract.Input, len(refs))
	readErrs := make([]error, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, ref := range refs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := s.source.ReadFile(ref.Path)
			if err != nil {
				readErrs[i] = err
				return nil
			}
			inputs[i] = extract.Input{
				Source:       filepath.Base(ref.Path),
				Text:         doc.Text,
				DeclaredType: ref.DeclaredType,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		pending []extract.Input
		paths   []string
		errs    []DocumentError
	)
	for i, ref := range refs {
		if readErrs[i] != nil {
			errs = append(errs, documentError(ref.Path, readErrs[i]))
			continue
		}
		pending = append(pending, inputs[i])
		paths = append(paths, ref.Path)
	}

	outcomes, err := s.extractor.ExtractAll(ctx, pending, s.workers)
	if err != nil {
		return nil, nil, err
	}

	var docs []*taxdoc.ExtractedDocument
	for i, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, documentError(paths[i], o.Err))
			continue
		}
		docs = append(docs, o.Document)
	}
	return docs, errs, nil
}

func documentError(path string, err error) DocumentError {
	return DocumentError{Path: path, Error: err.Error(), err: err}
}

// File runs a complete filing. Unreadable documents are listed in the
// report and the return is computed over the rest, but no form or
// worksheet is written unless every document was extracted.
func (s *Service) File(ctx context.Context, req Request) (*Report, error) {
	start := time.Now()
	runID := uuid.NewString()

	s.logger.Info().
		Str("run_id", runID).
		Int("documents", len(req.Documents)).
		Str("filing_status", string(req.Profile.FilingStatus)).
		Msg("Starting filing run")

	docs, docErrs, err := s.ExtractFiles(ctx, req.Documents)
	if err != nil {
		return nil, fmt.Errorf("filing run %s: %w", runID, err)
	}
	for _, e := range docErrs {
		s.logger.Warn().Str("run_id", runID).Str("path", e.Path).Str("error", e.Error).Msg("Document skipped")
	}
	for _, d := range docs {
		if d.LowConfidence {
			s.logger.Warn().Str("run_id", runID).Str("source", d.Source).Float64("confidence", d.Confidence).Msg("Low extraction confidence")
		}
	}

	summary := income.Aggregate(docs)
	result, err := s.engine.Compute(summary, req.Profile)
	if err != nil {
		return nil, fmt.Errorf("filing run %s: %w", runID, err)
	}

	report := &Report{
		RunID:     runID,
		TaxYear:   s.engine.TaxYear(),
		Documents: docs,
		Errors:    docErrs,
		Summary:   summary,
		Result:    result,
	}
	report.Notes = append(report.Notes, req.ProfileNotes...)
	report.Notes = append(report.Notes, result.Notes...)

	fill := req.Template != "" && req.Output != ""
	if fill || req.Worksheet != "" {
		if err := checkComplete(docs, docErrs); err != nil {
			return nil, fmt.Errorf("filing run %s: %w", runID, err)
		}
	}

	if fill {
		if err := s.FillFile(ctx, result, &summary, &req.Profile, req.Template, req.Output); err != nil {
			return nil, fmt.Errorf("filing run %s: %w", runID, err)
		}
		report.Output = req.Output
	}

	if req.Worksheet != "" {
		if err := s.WriteWorksheet(report, &req.Profile, req.Worksheet); err != nil {
			return nil, fmt.Errorf("filing run %s: %w", runID, err)
		}
		report.Worksheet = req.Worksheet
	}

	report.Duration = time.Since(start)
	s.logger.Info().
		Str("run_id", runID).
		Int("extracted", len(docs)).
		Int("failed", len(docErrs)).
		Str("total_income", summary.TotalIncome().StringFixed(2)).
		Str("tax_liability", result.TaxLiability.StringFixed(2)).
		Str("refund_or_owed", result.RefundOrAmountOwed.StringFixed(2)).
		Dur("duration", report.Duration).
		Msg("Filing run complete")

	return report, nil
}

// LoadTemplate reads a base form from disk
func (s *Service) LoadTemplate(path string) (*render.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read base form %s: %w", path, err)
	}
	return render.LoadTemplate(data)
}

// FillFile renders the return onto the base form at templatePath and
// writes the result to outputPath
func (s *Service) FillFile(ctx context.Context, result *taxdoc.TaxResult, summary *taxdoc.IncomeSummary, profile *taxdoc.FilerProfile, templatePath, outputPath string) error {
	tmpl, err := s.LoadTemplate(templatePath)
	if err != nil {
		return err
	}

	out, err := s.renderer.Render(ctx, result, summary, profile, tmpl)
	if err != nil {
		return err
	}

	if err := writeFile(outputPath, out); err != nil {
		return err
	}
	s.logger.Info().
		Str("template", templatePath).
		Str("output", outputPath).
		Bool("named_fields", tmpl.HasForm()).
		Int("bytes", len(out)).
		Msg("Form filled")
	return nil
}

// WriteWorksheet exports the report as an Excel workbook
func (s *Service) WriteWorksheet(report *Report, profile *taxdoc.FilerProfile, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create worksheet directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create worksheet %s: %w", path, err)
	}

	werr := worksheet.Write(f, worksheet.Input{
		TaxYear:   report.TaxYear,
		Result:    report.Result,
		Summary:   &report.Summary,
		Profile:   profile,
		Documents: report.Documents,
	})
	if cerr := f.Close(); werr == nil && cerr != nil {
		werr = fmt.Errorf("failed to close worksheet %s: %w", path, cerr)
	}
	return werr
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
