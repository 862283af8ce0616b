package challenge

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"icarecli/pkg/contracts/domain"
)

// ParsePatientMetadata parses "Key: Value" lines. Blank lines and lines
// without a colon are skipped.
func ParsePatientMetadata(r io.Reader) (*domain.PatientMetadata, error) {
	md := domain.NewPatientMetadata()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		md.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read patient metadata: %w", err)
	}
	return md, nil
}

// Recording metadata column names
const (
	columnHour    = "Hour"
	columnTime    = "Time"
	columnQuality = "Quality"
	columnRecord  = "Record"
)

// ParseRecordingMetadata parses the tab-separated recording metadata table.
// The header must name at least the Record column; Hour, Time and Quality
// are optional. Values of "nan" become NaN (Quality) or domain.MissingRecord.
func ParseRecordingMetadata(r io.Reader) (*domain.RecordingMetadata, error) {
	scanner := bufio.NewScanner(r)

	var header map[string]int
	md := &domain.RecordingMetadata{}
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")

		if header == nil {
			header = make(map[string]int, len(fields))
			for i, f := range fields {
				header[strings.TrimSpace(f)] = i
			}
			if _, ok := header[columnRecord]; !ok {
				return nil, fmt.Errorf("recording metadata header has no %s column", columnRecord)
			}
			continue
		}

		w, err := parseWindow(header, fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		md.Windows = append(md.Windows, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording metadata: %w", err)
	}
	if header == nil {
		return nil, fmt.Errorf("recording metadata is empty")
	}
	return md, nil
}

func parseWindow(header map[string]int, fields []string) (domain.RecordingWindow, error) {
	get := func(column string) string {
		i, ok := header[column]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	w := domain.RecordingWindow{
		Time:    get(columnTime),
		Quality: math.NaN(),
		Record:  get(columnRecord),
	}

	if h := get(columnHour); h != "" && !isNaNToken(h) {
		hour, err := strconv.Atoi(h)
		if err != nil {
			return w, fmt.Errorf("invalid hour %q: %w", h, err)
		}
		w.Hour = hour
	}

	if q := get(columnQuality); q != "" && !isNaNToken(q) {
		quality, err := strconv.ParseFloat(q, 64)
		if err != nil {
			return w, fmt.Errorf("invalid quality %q: %w", q, err)
		}
		w.Quality = quality
	}

	if w.Record == "" || isNaNToken(w.Record) {
		w.Record = domain.MissingRecord
	}
	return w, nil
}

func isNaNToken(s string) bool {
	return strings.EqualFold(s, "nan")
}
