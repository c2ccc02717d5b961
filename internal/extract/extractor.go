package extract

import (
	"context"
	"fmt"

	"github.com/a3tai/mcp-tax-filer/internal/patterns"
	"github.com/a3tai/mcp-tax-filer/internal/taxdoc"
	"github.com/a3tai/mcp-tax-filer/internal/taxerr"
	"golang.org/x/sync/errgroup"
)

// DefaultMinConfidence is the confidence below which a document is flagged
const DefaultMinConfidence = 0.5

// Input is the text of one document as supplied by the caller
type Input struct {
	Source       string
	Text         string
	DeclaredType *taxdoc.DocumentType
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMinConfidence overrides the low-confidence threshold
func WithMinConfidence(v float64) Option {
	return func(e *Extractor) {
		e.minConfidence = v
	}
}

// WithRegistry replaces the built-in pattern registry
func WithRegistry(r *patterns.Registry) Option {
	return func(e *Extractor) {
		e.registry = r
	}
}

// Extractor turns document text into structured records. It holds only
// read-only configuration and is safe for concurrent use.
type Extractor struct {
	registry      *patterns.Registry
	minConfidence float64
}

// New creates an extractor over the default registry
func New(opts ...Option) *Extractor {
	e := &Extractor{
		registry:      patterns.Default(),
		minConfidence: DefaultMinConfidence,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MinConfidence returns the configured threshold
func (e *Extractor) MinConfidence() float64 {
	return e.minConfidence
}

// Extract uses the default extractor
func Extract(in Input) (*taxdoc.ExtractedDocument, error) {
	return New().Extract(in)
}

// Extract resolves the document type and applies its field table
func (e *Extractor) Extract(in Input) (*taxdoc.ExtractedDocument, error) {
	detected, detectedOK := e.registry.Detect(in.Text)

	var docType taxdoc.DocumentType
	switch {
	case in.DeclaredType != nil:
		docType = *in.DeclaredType
	case detectedOK:
		docType = detected
	default:
		return nil, taxerr.NewWithContext(taxerr.ErrorTypeUnrecognizedDocumentType,
			"no document type anchor matched", in.Source)
	}

	fields, ok := e.registry.Fields(docType)
	if !ok {
		return nil, taxerr.NewWithContext(taxerr.ErrorTypeUnrecognizedDocumentType,
			fmt.Sprintf("no field rules for document type %q", docType), in.Source)
	}

	doc := &taxdoc.ExtractedDocument{
		DocumentType: docType,
		Source:       in.Source,
		Fields:       make(map[taxdoc.FieldName]taxdoc.FieldValue, len(fields)),
	}

	if in.DeclaredType != nil && detectedOK && detected != docType {
		doc.Warnings = append(doc.Warnings, taxerr.FieldExtractionWarning{
			Message: fmt.Sprintf("document type mismatch: declared %s, text looks like %s", docType, detected),
		})
	}

	required, matched := 0, 0
	for _, f := range fields {
		if f.Required {
			required++
		}

		value, found := f.Apply(in.Text)
		if !found {
			if f.Required {
				doc.Missing = append(doc.Missing, f.Field)
				doc.Warnings = append(doc.Warnings, taxerr.FieldExtractionWarning{
					Field:   string(f.Field),
					Message: "required field not found",
				})
			}
			continue
		}

		doc.Fields[f.Field] = value
		if f.Required {
			matched++
		}
	}

	doc.Confidence = float64(matched) / float64(required)
	if doc.Confidence < e.minConfidence {
		doc.LowConfidence = true
		doc.Warnings = append(doc.Warnings, taxerr.FieldExtractionWarning{
			Message: fmt.Sprintf("low extraction confidence %.2f (minimum %.2f)", doc.Confidence, e.minConfidence),
		})
	}

	return doc, nil
}

// Outcome is the result of extracting one input in ExtractAll
type Outcome struct {
	Document *taxdoc.ExtractedDocument
	Err      error
}

// ExtractAll extracts every input concurrently with at most workers in
// flight. Outcomes are returned in input order. A failing document does
// not stop the others; only context cancellation aborts the batch.
func (e *Extractor) ExtractAll(ctx context.Context, inputs []Input, workers int) ([]Outcome, error) {
	out := make([]Outcome, len(inputs))
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doc, err := e.Extract(inputs[i])
			out[i] = Outcome{Document: doc, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Documents splits outcomes into the extracted documents and the errors,
// both in input order
func Documents(outcomes []Outcome) ([]*taxdoc.ExtractedDocument, []error) {
	var (
		docs []*taxdoc.ExtractedDocument
		errs []error
	)
	for _, o := range outcomes {
		if o.Err != nil {
			errs = append(errs, o.Err)
			continue
		}
		docs = append(docs, o.Document)
	}
	return docs, errs
}
