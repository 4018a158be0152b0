// Package export serializes search results for download.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/yourorg/listing-api/internal/listing"
	"github.com/yourorg/listing-api/internal/metrics"
)

// Format names an export encoding.
type Format string

const (
	JSON Format = "json"
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat defaults to JSON when s is empty.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, CSV, XLSX:
		return f, nil
	default:
		return "", fmt.Errorf("export format %q: %w", s, listing.ErrUnsupportedFormat)
	}
}

// ContentType is the response media type for f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Filename is the download name offered to clients.
func (f Format) Filename() string { return "search_results." + string(f) }

// Columns is the tabular header. images is never a column.
var Columns = []string{
	listing.FieldID,
	listing.FieldCustomID,
	listing.FieldAddress,
	listing.FieldCity,
	listing.FieldState,
	listing.FieldZipCode,
	listing.FieldPrice,
	listing.FieldBedrooms,
	listing.FieldBathrooms,
	listing.FieldSquareFootage,
	listing.FieldType,
	listing.FieldDateListed,
	listing.FieldDescription,
}

// Render encodes recs in the requested format.
func Render(f Format, recs []listing.Property) (out []byte, err error) {
	start := time.Now()
	defer func() { metrics.Codec("export", string(f), start, err) }()
	switch f {
	case CSV:
		return ToCSV(recs)
	case XLSX:
		return ToXLSX(recs)
	case JSON, "":
		return ToJSON(recs)
	}
	return nil, fmt.Errorf("export format %q: %w", f, listing.ErrUnsupportedFormat)
}

// ToJSON writes every record, images included, as an indented array.
func ToJSON(recs []listing.Property) ([]byte, error) {
	if recs == nil {
		recs = []listing.Property{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(recs); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ToCSV writes a header row and one row per record.
func ToCSV(recs []listing.Property) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Columns); err != nil {
		return nil, err
	}
	for _, r := range recs {
		if err := w.Write(row(r)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToXLSX writes the same table as ToCSV into a single worksheet.
func ToXLSX(recs []listing.Property) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "search_results"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}
	header := make([]any, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}
	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		vals := []any{
			r.ID, r.CustomID, r.Address, r.City, r.State, r.ZipCode, r.Price,
			r.Bedrooms, r.Bathrooms, r.SquareFootage, r.Type, r.DateListed, r.Description,
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func row(r listing.Property) []string {
	return []string{
		r.ID,
		r.CustomID,
		r.Address,
		r.City,
		r.State,
		strconv.Itoa(r.ZipCode),
		strconv.Itoa(r.Price),
		strconv.Itoa(r.Bedrooms),
		strconv.FormatFloat(r.Bathrooms, 'f', -1, 64),
		strconv.Itoa(r.SquareFootage),
		r.Type,
		r.DateListed,
		r.Description,
	}
}
