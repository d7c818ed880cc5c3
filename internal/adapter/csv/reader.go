// Package csv reads transaction events from CSV input.
package csv

import (
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tpe/txengine/internal/domain"
)

// ErrInvalidHeader is returned when the header row lacks a required column.
var ErrInvalidHeader = errors.New("invalid csv header")

var requiredColumns = []string{"type", "client", "tx"}

const amountColumn = "amount"

// record is a raw input row, trimmed but not yet typed.
type record struct {
	Type   string `validate:"required"`
	Client string `validate:"required,number"`
	Tx     string `validate:"required,number"`
	Amount string
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// RecordError rejects a single input row. It matches both
// domain.ErrMalformedRecord and the underlying cause.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() []error {
	return []error{domain.ErrMalformedRecord, e.Err}
}

// Reader yields transactions from a CSV stream with a `type, client, tx,
// amount` header. Column order is taken from the header; the amount column
// may be missing or empty for rows that carry no amount.
type Reader struct {
	r       *stdcsv.Reader
	columns map[string]int
}

// NewReader reads the header row of r. An empty input yields a reader that is
// immediately exhausted.
func NewReader(r io.Reader) (*Reader, error) {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	reader := &Reader{r: cr, columns: make(map[string]int)}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return reader, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeader, err)
	}

	for i, name := range header {
		reader.columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, name := range requiredColumns {
		if _, ok := reader.columns[name]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrInvalidHeader, name)
		}
	}

	return reader, nil
}

// Next returns the next transaction, io.EOF at the end of input, or a
// *RecordError for a row that cannot be used.
func (r *Reader) Next() (domain.Transaction, error) {
	if len(r.columns) == 0 {
		return domain.Transaction{}, io.EOF
	}

	fields, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		return domain.Transaction{}, io.EOF
	}

	if err != nil {
		var parseErr *stdcsv.ParseError
		if errors.As(err, &parseErr) {
			return domain.Transaction{}, &RecordError{Line: parseErr.StartLine, Err: err}
		}
		return domain.Transaction{}, err
	}

	line, _ := r.r.FieldPos(0)

	tx, err := r.parse(fields)
	if err != nil {
		return domain.Transaction{}, &RecordError{Line: line, Err: err}
	}

	return tx, nil
}

func (r *Reader) parse(fields []string) (domain.Transaction, error) {
	rec := record{
		Type:   r.field(fields, "type"),
		Client: r.field(fields, "client"),
		Tx:     r.field(fields, "tx"),
		Amount: r.field(fields, amountColumn),
	}

	if err := validate.Struct(rec); err != nil {
		return domain.Transaction{}, describe(err)
	}

	kind, err := domain.ParseTxKind(rec.Type)
	if err != nil {
		return domain.Transaction{}, err
	}

	client, err := strconv.ParseUint(rec.Client, 10, 16)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("client %q out of range", rec.Client)
	}

	id, err := strconv.ParseUint(rec.Tx, 10, 32)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("tx %q out of range", rec.Tx)
	}

	clientID := domain.ClientID(client)
	txID := domain.TransactionID(id)

	switch kind {
	case domain.TxKindDeposit, domain.TxKindWithdrawal:
		if rec.Amount == "" {
			return domain.Transaction{}, domain.MissingAmountError(kind)
		}

		amount, err := domain.ParseMoney(rec.Amount)
		if err != nil {
			return domain.Transaction{}, err
		}

		if err := domain.ValidateAmount(kind, amount); err != nil {
			return domain.Transaction{}, err
		}

		if kind == domain.TxKindDeposit {
			return domain.NewDeposit(txID, clientID, amount), nil
		}
		return domain.NewWithdrawal(txID, clientID, amount), nil
	case domain.TxKindDispute:
		return domain.NewDispute(txID, clientID), nil
	case domain.TxKindResolve:
		return domain.NewResolve(txID, clientID), nil
	default:
		return domain.NewChargeBack(txID, clientID), nil
	}
}

func (r *Reader) field(fields []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

// describe turns the first validation failure into a readable error.
func describe(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) || len(validationErrors) == 0 {
		return err
	}

	fe := validationErrors[0]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("field %s is required", strings.ToLower(fe.Field()))
	case "number":
		return fmt.Errorf("field %s must be an unsigned integer, got %q", strings.ToLower(fe.Field()), fe.Value())
	default:
		return fmt.Errorf("field %s failed %s validation", strings.ToLower(fe.Field()), fe.Tag())
	}
}
