// Package interchange encodes and decodes registry entities as delimited text files with a
// header row. Malformed rows are skipped and reported; only structural failures are fatal.
package interchange

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/ccrm-api/pkg/errors"
)

// DateLayout is the calendar date format of every date column.
const DateLayout = "2006-01-02"

// SkippedRecord identifies a dropped row by its starting line.
type SkippedRecord struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// DecodeReport lists the rows a decode skipped.
type DecodeReport struct {
	Rows    int             `json:"rows"`
	Skipped []SkippedRecord `json:"skipped,omitempty"`
}

func (r *DecodeReport) skip(line int, err error) {
	r.Skipped = append(r.Skipped, SkippedRecord{Line: line, Reason: err.Error()})
}

// ErrMissingHeader is returned when the input has no header row.
var ErrMissingHeader = errors.New("missing header row")

// schema describes the file layout of one entity type.
type schema[T any] struct {
	header     []string
	minColumns int
	encode     func(T) []string
	decode     func(fields) (T, error)
}

func encodeAll[T any](w io.Writer, s schema[T], items []T) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(s.header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, item := range items {
		if err := writer.Write(s.encode(item)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func decodeAll[T any](r io.Reader, s schema[T]) ([]T, DecodeReport, error) {
	var report DecodeReport
	reader := newRecordReader(r)

	if _, _, err := reader.read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, report, ErrMissingHeader
		}
		if !isSyntaxError(err) {
			return nil, report, fmt.Errorf("read header: %w", err)
		}
	}

	var out []T
	for {
		record, line, err := reader.read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isSyntaxError(err) {
				report.skip(line, malformed(err.Error()))
				continue
			}
			return out, report, fmt.Errorf("read row: %w", err)
		}
		if isBlank(record) {
			continue
		}
		report.Rows++
		if len(record) < s.minColumns {
			report.skip(line, malformed(fmt.Sprintf("expected at least %d columns, got %d", s.minColumns, len(record))))
			continue
		}
		item, err := s.decode(fields(record))
		if err != nil {
			report.skip(line, err)
			continue
		}
		out = append(out, item)
	}
	return out, report, nil
}

// recordReader splits delimited text into records. Quoted fields keep every byte between
// their quotes, so a carriage return written by csv.Writer reads back unchanged.
type recordReader struct {
	r    *bufio.Reader
	line int
}

func newRecordReader(r io.Reader) *recordReader {
	return &recordReader{r: bufio.NewReader(r)}
}

type fieldState int

const (
	fieldStart fieldState = iota
	fieldBare
	fieldQuoted
	fieldClosed
)

// read returns the next record and the line it starts on. A syntax error consumes the
// rest of the record and is returned as csv.ErrQuote or csv.ErrBareQuote.
func (rr *recordReader) read() ([]string, int, error) {
	start := rr.line + 1
	var (
		record []string
		field  strings.Builder
		syntax error
		state  = fieldStart
		empty  = true
	)
	endField := func() {
		record = append(record, field.String())
		field.Reset()
		state = fieldStart
	}
	finish := func() ([]string, int, error) {
		endField()
		if syntax != nil {
			return nil, start, syntax
		}
		return record, start, nil
	}

	for {
		b, err := rr.r.ReadByte()
		if errors.Is(err, io.EOF) {
			switch {
			case empty:
				return nil, start, io.EOF
			case state == fieldQuoted:
				return nil, start, csv.ErrQuote
			}
			return finish()
		}
		if err != nil {
			return nil, start, err
		}
		empty = false

		if state == fieldQuoted {
			if b == '"' {
				state = fieldClosed
				continue
			}
			if b == '\n' {
				rr.line++
			}
			field.WriteByte(b)
			continue
		}

		switch b {
		case ',':
			endField()
			continue
		case '\n':
			rr.line++
			return finish()
		case '\r':
			if next, _ := rr.r.Peek(1); len(next) == 1 && next[0] == '\n' {
				_, _ = rr.r.ReadByte()
				rr.line++
				return finish()
			}
		case '"':
			switch state {
			case fieldStart:
				state = fieldQuoted
				continue
			case fieldClosed:
				field.WriteByte('"')
				state = fieldQuoted
				continue
			}
			syntax = csv.ErrBareQuote
		}
		if state == fieldClosed && syntax == nil {
			syntax = csv.ErrQuote
		}
		field.WriteByte(b)
		state = fieldBare
	}
}

func isSyntaxError(err error) bool {
	return errors.Is(err, csv.ErrQuote) || errors.Is(err, csv.ErrBareQuote)
}

func malformed(reason string) error {
	return appErrors.Clone(appErrors.ErrMalformedRecord, reason)
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// fields gives positional access to a record; columns past the end read as empty.
type fields []string

func (f fields) at(i int) string {
	if i >= len(f) {
		return ""
	}
	return f[i]
}

func (f fields) date(i int, column string) (*time.Time, error) {
	raw := strings.TrimSpace(f.at(i))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, malformed(fmt.Sprintf("%s: invalid date %q", column, raw))
	}
	return &t, nil
}

func (f fields) float(i int, column string) (float64, error) {
	raw := strings.TrimSpace(f.at(i))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, malformed(fmt.Sprintf("%s: invalid number %q", column, raw))
	}
	return v, nil
}

func (f fields) integer(i int, column string) (int, error) {
	raw := strings.TrimSpace(f.at(i))
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, malformed(fmt.Sprintf("%s: invalid integer %q", column, raw))
	}
	return v, nil
}

// boolean reads true/false in any case. An absent column yields fallback; a present but
// empty one reads as false.
func (f fields) boolean(i int, column string, fallback bool) (bool, error) {
	if i >= len(f) {
		return fallback, nil
	}
	raw := strings.ToLower(strings.TrimSpace(f[i]))
	switch raw {
	case "", "false":
		return false, nil
	case "true":
		return true, nil
	}
	return false, malformed(fmt.Sprintf("%s: invalid boolean %q", column, raw))
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
