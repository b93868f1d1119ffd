package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/diabetes-o-meter/internal/analysis"
)

// DefaultPath is where the dataset is looked up when none is configured.
const DefaultPath = "diabetes.csv"

// CSVSource reads feature rows from a comma separated file.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a source for path, falling back to DefaultPath
func NewCSVSource(path string) *CSVSource {
	if path == "" {
		path = DefaultPath
	}
	return &CSVSource{Path: path}
}

// Rows implements analysis.RowSource. A missing file yields no rows.
func (s *CSVSource) Rows() ([]analysis.FeatureVector, error) {
	file, err := os.Open(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Dataset file not found", "path", s.Path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	rows, err := ReadRows(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", s.Path, err)
	}

	slog.Debug("Dataset loaded", "path", s.Path, "rows", len(rows))
	return rows, nil
}

// maxLineBytes bounds a single dataset line.
const maxLineBytes = 1 << 20

// ReadRows parses comma separated lines into feature vectors.
//
// Each line is one record; quotes carry no meaning. Tokens that are not
// finite numbers are skipped. The first FeatureCount numeric tokens of a
// line form its row; lines with fewer (headers, truncated lines) are dropped.
func ReadRows(r io.Reader) ([]analysis.FeatureVector, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var rows []analysis.FeatureVector
	skipped := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if row, ok := numericPrefix(strings.Split(line, ",")); ok {
			rows = append(rows, row)
		} else {
			skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if skipped > 0 {
		slog.Debug("Skipped dataset records", "skipped", skipped, "kept", len(rows))
	}
	return rows, nil
}

// ParseInstance parses a single sample typed by a user. Values may be
// separated by commas and/or whitespace.
func ParseInstance(line string) (analysis.FeatureVector, error) {
	fields := strings.Fields(strings.ReplaceAll(line, ",", " "))
	row, ok := numericPrefix(fields)
	if !ok {
		return nil, fmt.Errorf("%w: expected %d numeric values", analysis.ErrInvalidInput, analysis.FeatureCount)
	}
	return row, nil
}

func numericPrefix(tokens []string) (analysis.FeatureVector, bool) {
	row := make(analysis.FeatureVector, 0, analysis.FeatureCount)
	for _, tok := range tokens {
		v, ok := analysis.ParseNumber(tok)
		if !ok {
			continue
		}
		row = append(row, v)
		if len(row) == analysis.FeatureCount {
			return row, true
		}
	}
	return nil, false
}
