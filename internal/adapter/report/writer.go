// Package report renders account reports.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/tpe/txengine/internal/domain"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format.
var ErrUnknownFormat = errors.New("unknown report format")

const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

var csvHeader = []string{"client", "available", "held", "total", "locked"}

// Writer renders a complete report to an output stream.
type Writer interface {
	Write(reports []domain.AccountReport) error
}

// NewWriter returns the writer for format.
func NewWriter(format string, w io.Writer) (Writer, error) {
	switch format {
	case FormatCSV:
		return NewCSVWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// CSVWriter writes `client,available,held,total,locked` rows.
type CSVWriter struct {
	w io.Writer
}

func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: w}
}

func (c *CSVWriter) Write(reports []domain.AccountReport) error {
	cw := csv.NewWriter(c.w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range reports {
		row := []string{
			r.Client.String(),
			r.Available,
			r.Held,
			r.Total,
			strconv.FormatBool(r.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// AccountReportResponse is the JSON form of one report line.
type AccountReportResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// AccountReportFromDomain converts a report line to its JSON form.
func AccountReportFromDomain(r domain.AccountReport) AccountReportResponse {
	return AccountReportResponse{
		Client:    uint16(r.Client),
		Available: r.Available,
		Held:      r.Held,
		Total:     r.Total,
		Locked:    r.Locked,
	}
}

// JSONWriter writes the report as an indented JSON array.
type JSONWriter struct {
	w io.Writer
}

func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: w}
}

func (j *JSONWriter) Write(reports []domain.AccountReport) error {
	result := make([]AccountReportResponse, len(reports))
	for i, r := range reports {
		result[i] = AccountReportFromDomain(r)
	}

	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
