// Package issuance orchestrates barcode generation for one certificate:
// bundle validation, identifier allocation and parallel per-record encoding.
package issuance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"hcert/internal/certificate/models"
	"hcert/internal/condense"
	"hcert/internal/issuance/metrics"
	"hcert/internal/uvci"
	dErrors "hcert/pkg/domain-errors"
	"hcert/pkg/requestcontext"
)

const (
	DefaultTestValidity     = 72 * time.Hour
	DefaultRecoveryValidity = 180 * 24 * time.Hour

	msgGenerationFailed = "barcode generation failed"
)

type Ledger interface {
	Allocate(ctx context.Context, a uvci.Allocation) (string, error)
}

type Condenser interface {
	Condense(ctx context.Context, in condense.Input) (condense.Payload, error)
}

type Encoder interface {
	Encode(ctx context.Context, payload cbor.Marshaler, country string) (string, error)
}

// Entry pairs one record with the location it was performed at, if known.
type Entry struct {
	Record   models.Record
	Location *models.Location
}

// Request is one certificate's worth of records of a single kind.
type Request struct {
	Kind    models.Kind
	Entries []Entry
	Subject models.Subject
	Issuing models.IssuingContext
}

// Result holds one BarcodeResult per entry, in input order, and the
// identifier they share. UVCI is empty when none was allocated.
type Result struct {
	UVCI     string
	Barcodes []models.BarcodeResult
}

type Config struct {
	// Issuer is the issuer segment of allocated identifiers.
	Issuer           string
	TestValidity     time.Duration
	RecoveryValidity time.Duration
	// MaxConcurrency bounds per-record workers; zero means unbounded.
	MaxConcurrency int
}

// Service generates barcodes. It is safe for concurrent use.
type Service struct {
	ledger    Ledger
	condenser Condenser
	encoder   Encoder
	cfg       Config
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(ledger Ledger, condenser Condenser, encoder Encoder, cfg Config, opts ...Option) *Service {
	if cfg.TestValidity == 0 {
		cfg.TestValidity = DefaultTestValidity
	}
	if cfg.RecoveryValidity == 0 {
		cfg.RecoveryValidity = DefaultRecoveryValidity
	}
	s := &Service{
		ledger:    ledger,
		condenser: condenser,
		encoder:   encoder,
		cfg:       cfg,
		logger:    slog.Default(),
		tracer:    otel.Tracer("hcert/issuance"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate produces exactly one BarcodeResult per entry. Validation and
// encoding failures are reported in the results, never as an error.
func (s *Service) Generate(ctx context.Context, req Request) *Result {
	start := time.Now()
	ctx = requestcontext.WithTime(ctx, requestcontext.Now(ctx))
	if requestcontext.RequestID(ctx) == "" {
		ctx = requestcontext.WithRequestID(ctx, uuid.NewString())
	}
	ctx, span := s.tracer.Start(ctx, "issuance.Generate", trace.WithAttributes(
		attribute.String("hcert.kind", req.Kind.String()),
		attribute.Int("hcert.records", len(req.Entries)),
	))
	defer span.End()
	defer func() { s.metrics.ObserveDuration(req.Kind.String(), time.Since(start)) }()

	if len(req.Entries) == 0 {
		span.SetStatus(codes.Error, "no records")
		return &Result{Barcodes: []models.BarcodeResult{
			models.Failure("", models.ResultNoRecords, "no records supplied"),
		}}
	}

	st, rejection := s.validate(req)
	if rejection != nil {
		span.SetStatus(codes.Error, rejection.Message)
		s.logger.InfoContext(ctx, "certificate bundle rejected",
			"request_id", requestcontext.RequestID(ctx),
			"kind", req.Kind,
			"code", rejection.Code,
			"reason", rejection.Message,
		)
		return s.rejectAll(req, rejection.Code, rejection.Message)
	}

	validUntil := st.validityEnd(req.Entries, req.Issuing)
	id, err := s.ledger.Allocate(ctx, uvci.Allocation{
		Issuer:    s.issuer(req.Issuing),
		Scenario:  req.Kind.String(),
		UserHash:  req.Subject.Hash(),
		ExpiresAt: validUntil,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "identifier allocation failed")
		s.logger.ErrorContext(ctx, "identifier allocation failed",
			"request_id", requestcontext.RequestID(ctx),
			"kind", req.Kind,
			"error", err,
		)
		return s.rejectAll(req, models.ResultBarcodeGenerationFailed, msgGenerationFailed)
	}
	span.SetAttributes(attribute.String("hcert.uvci", id))

	results := make([]models.BarcodeResult, len(req.Entries))
	var g errgroup.Group
	if s.cfg.MaxConcurrency > 0 {
		g.SetLimit(s.cfg.MaxConcurrency)
	}
	for i, entry := range req.Entries {
		g.Go(func() error {
			results[i] = s.encodeOne(ctx, st, req, entry, id, validUntil)
			return nil
		})
	}
	_ = g.Wait()

	return &Result{UVCI: id, Barcodes: results}
}

// validate runs the bundle-level checks. A non-nil ResultError rejects
// every entry.
func (s *Service) validate(req Request) (strategy, *models.ResultError) {
	if err := models.ValidateSubject(req.Subject); err != nil {
		return strategy{}, &models.ResultError{
			Code:    models.ResultInvalidSubject,
			Message: models.FormatValidationError(err),
		}
	}
	if !req.Kind.IsValid() {
		return strategy{}, &models.ResultError{
			Code:    models.ResultInvalidRecord,
			Message: fmt.Sprintf("unsupported certificate kind %q", req.Kind),
		}
	}
	st, err := s.strategyFor(req.Kind)
	if err != nil {
		return strategy{}, &models.ResultError{Code: models.ResultInvalidRecord, Message: err.Error()}
	}
	from, until := req.Issuing.ValidFrom, req.Issuing.ValidUntil
	if !from.IsZero() && !until.IsZero() && until.Before(from) {
		return strategy{}, &models.ResultError{
			Code:    models.ResultInvalidRecord,
			Message: "validity window ends before it starts",
		}
	}
	for i, e := range req.Entries {
		if e.Record == nil {
			return strategy{}, &models.ResultError{
				Code:    models.ResultInvalidRecord,
				Message: fmt.Sprintf("entry %d has no record", i),
			}
		}
		if err := st.validate(e.Record); err != nil {
			return strategy{}, &models.ResultError{Code: models.ResultInvalidRecord, Message: err.Error()}
		}
	}
	return st, nil
}

func (s *Service) rejectAll(req Request, code models.ResultCode, message string) *Result {
	results := make([]models.BarcodeResult, len(req.Entries))
	for i, e := range req.Entries {
		var id string
		if e.Record != nil {
			id = e.Record.RecordID()
		}
		results[i] = models.Failure(id, code, message)
		s.metrics.IncrementFailed(req.Kind.String(), string(code))
	}
	return &Result{Barcodes: results}
}

func (s *Service) issuer(issuing models.IssuingContext) string {
	if s.cfg.Issuer != "" {
		return s.cfg.Issuer
	}
	return issuing.Country
}

// encodeOne turns one entry into a barcode. It never panics and never
// affects sibling entries.
func (s *Service) encodeOne(
	ctx context.Context,
	st strategy,
	req Request,
	entry Entry,
	id string,
	validUntil time.Time,
) (result models.BarcodeResult) {
	recordID := entry.Record.RecordID()
	ctx, span := s.tracer.Start(ctx, "issuance.encodeRecord",
		trace.WithAttributes(attribute.String("hcert.record_id", recordID)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "barcode generation panicked",
				"request_id", requestcontext.RequestID(ctx),
				"record_id", recordID,
				"kind", st.kind,
				"panic", fmt.Sprint(r),
			)
			result = models.Failure(recordID, models.ResultBarcodeGenerationFailed, msgGenerationFailed)
		}
		if result.Failed() {
			span.SetStatus(codes.Error, string(result.Error.Code))
			s.metrics.IncrementFailed(st.kind.String(), string(result.Error.Code))
		} else {
			s.metrics.IncrementGenerated(st.kind.String())
		}
	}()

	var location *models.Location
	if entry.Location != nil {
		if err := models.ValidateLocation(*entry.Location); err != nil {
			return models.Failure(recordID, models.ResultInvalidLocation, models.FormatValidationError(err))
		}
		if st.pairsLocation {
			location = entry.Location
		}
	}

	payload, err := s.condenser.Condense(ctx, condense.Input{
		Record:     entry.Record,
		Location:   location,
		Subject:    req.Subject,
		Issuing:    req.Issuing,
		UVCI:       id,
		ValidUntil: validUntil,
	})
	if err != nil {
		return s.fail(ctx, span, st, recordID, err)
	}

	barcode, err := s.encoder.Encode(ctx, payload, req.Issuing.KeyCountry)
	if err != nil {
		return s.fail(ctx, span, st, recordID, dErrors.Wrap(err, dErrors.CodeInternal, "encode barcode"))
	}
	return models.Success(recordID, barcode)
}

// fail classifies err into a record result. Only mapping and validation
// errors carry their message; anything else is reported generically.
func (s *Service) fail(ctx context.Context, span trace.Span, st strategy, recordID string, err error) models.BarcodeResult {
	span.RecordError(err)
	switch {
	case dErrors.HasCode(err, dErrors.CodeMapping):
		return models.Failure(recordID, models.ResultMappingError, err.Error())
	case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return models.Failure(recordID, models.ResultInvalidRecord, err.Error())
	default:
		s.logger.ErrorContext(ctx, msgGenerationFailed,
			"request_id", requestcontext.RequestID(ctx),
			"record_id", recordID,
			"kind", st.kind,
			"error", err,
		)
		return models.Failure(recordID, models.ResultBarcodeGenerationFailed, msgGenerationFailed)
	}
}
