package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rcliao/quotebook/internal/model"
)

// DefaultExportFile is the file name offered for exports.
const DefaultExportFile = "quotes.json"

// ErrImportParse indicates import data was not a JSON array of quotes.
var ErrImportParse = errors.New("invalid import file")

// ImportParseError wraps the decoding failure behind ErrImportParse.
type ImportParseError struct {
	Err error
}

func (e *ImportParseError) Error() string {
	return fmt.Sprintf("%v: %v", ErrImportParse, e.Err)
}

func (e *ImportParseError) Unwrap() []error {
	return []error{ErrImportParse, e.Err}
}

// Export writes the full collection as indented JSON.
func (s *QuoteStore) Export(w io.Writer) error {
	quotes := s.All()
	if quotes == nil {
		quotes = []model.Quote{}
	}

	b, err := json.MarshalIndent(quotes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode quotes: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ParseQuotes decodes a JSON array of {text, category} objects.
func ParseQuotes(data []byte) ([]model.Quote, error) {
	var quotes []model.Quote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, &ImportParseError{Err: err}
	}
	if quotes == nil {
		return nil, &ImportParseError{Err: errors.New("expected a JSON array")}
	}
	return quotes, nil
}

// Import parses r and merges the quotes into the collection. Malformed input
// returns an *ImportParseError and leaves the collection untouched.
func (s *QuoteStore) Import(ctx context.Context, r io.Reader) (MergeResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return MergeResult{}, fmt.Errorf("read import: %w", err)
	}

	quotes, err := ParseQuotes(data)
	if err != nil {
		return MergeResult{}, err
	}

	return s.MergeExternal(ctx, quotes)
}
