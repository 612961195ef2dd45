// Package extract turns free-form ticket emails into ticket drafts through a
// structured-output language model.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"busticket/internal/core"
	"busticket/internal/log"
)

// UserMessage is the only failure text shown to the user.
const UserMessage = "Failed to extract data. Please check input format."

var (
	ErrExtraction = errors.New("extraction failed")
	ErrEmptyInput = errors.New("no email text to extract from")
)

// ExtractionError wraps any failure of a single extraction. It matches
// ErrExtraction with errors.Is.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return "extraction failed: " + e.Reason
	}
	return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

func fail(reason string, err error) error {
	return &ExtractionError{Reason: reason, Err: err}
}

// Draft is a validated model response.
type Draft struct {
	Date        string
	TicketCount int64
	Rate        decimal.Decimal
	Subject     string
}

// TicketDraft converts d into the store's input type.
func (d Draft) TicketDraft() core.TicketDraft {
	return core.TicketDraft{Date: d.Date, Count: d.TicketCount, Rate: d.Rate, Subject: d.Subject}
}

// Model produces a JSON document conforming to the ticket schema.
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Extractor runs one model call per Extract. There is no retry.
type Extractor struct {
	model   Model
	timeout time.Duration
	logger  *log.Logger
}

func NewExtractor(model Model, timeout time.Duration, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Discard()
	}
	return &Extractor{model: model, timeout: timeout, logger: logger.WithComponent(log.ComponentExtract)}
}

// BuildPrompt embeds the email text in the extraction instruction.
func BuildPrompt(emailText string) string {
	return fmt.Sprintf("Extract bus ticket issuance data from the following email text.\nEmail Content: %q", emailText)
}

// Extract sends text to the model and validates the structured response.
func (e *Extractor) Extract(ctx context.Context, text string) (Draft, error) {
	if strings.TrimSpace(text) == "" {
		return Draft{}, fail("empty input", ErrEmptyInput)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := e.model.Generate(ctx, BuildPrompt(text))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", e.timeout, err)
		}
		e.logger.ErrorContext(ctx, "Extraction call failed",
			log.NewFields().WithOperation(log.OpExtract).WithError(err).ToSlice()...)
		return Draft{}, fail("model call", err)
	}

	draft, err := ParseResponse(raw)
	if err != nil {
		e.logger.WarnContext(ctx, "Extraction response rejected",
			log.NewFields().WithOperation(log.OpParse).WithError(err).ToSlice()...)
		return Draft{}, err
	}

	e.logger.InfoContext(ctx, "Ticket data extracted",
		log.FieldEntryDate, draft.Date,
		log.FieldTickets, draft.TicketCount,
		log.FieldRate, draft.Rate.String(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return draft, nil
}

type response struct {
	Date        *string          `json:"date"`
	TicketCount *float64         `json:"ticketCount"`
	Rate        *decimal.Decimal `json:"rate"`
	Subject     string           `json:"subject"`
}

// ParseResponse validates a model JSON document. date, ticketCount and rate
// are required and ticketCount must be a whole number.
func ParseResponse(raw string) (Draft, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Draft{}, fail("empty response", nil)
	}

	var r response
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return Draft{}, fail("invalid json", err)
	}

	var missing []string
	if r.Date == nil {
		missing = append(missing, "date")
	}
	if r.TicketCount == nil {
		missing = append(missing, "ticketCount")
	}
	if r.Rate == nil {
		missing = append(missing, "rate")
	}
	if len(missing) > 0 {
		return Draft{}, fail("missing "+strings.Join(missing, ", "), nil)
	}

	count := *r.TicketCount
	if count != math.Trunc(count) || math.IsInf(count, 0) || math.Abs(count) > math.MaxInt32 {
		return Draft{}, fail(fmt.Sprintf("ticketCount %v is not a whole number", count), nil)
	}

	return Draft{
		Date:        *r.Date,
		TicketCount: int64(count),
		Rate:        *r.Rate,
		Subject:     strings.TrimSpace(r.Subject),
	}, nil
}
