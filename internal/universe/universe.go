package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// symbolColumn is the required header name, matched case-insensitively.
const symbolColumn = "Symbol"

// Load reads the symbol universe from a CSV file with a Symbol column.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening universe file: %w", err)
	}
	defer f.Close()

	symbols, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	log.Debug().
		Str("component", "universe").
		Str("path", path).
		Int("symbols", len(symbols)).
		Msg("Loaded symbol universe")
	return symbols, nil
}

// Parse reads symbols from CSV data. Cells are trimmed and uppercased,
// blanks are skipped and duplicates keep their first position.
func Parse(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty universe file")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.EqualFold(strings.TrimSpace(name), symbolColumn) {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing %q column", symbolColumn)
	}

	seen := make(map[string]struct{})
	var symbols []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if col >= len(record) {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSpace(record[col]))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		symbols = append(symbols, symbol)
	}
	if len(symbols) == 0 {
		return nil, errors.New("no symbols found")
	}
	return symbols, nil
}
