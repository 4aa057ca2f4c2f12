package schedule

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nerrad567/homealone/internal/relay"
)

// DefaultSeparator is the column separator of a jobs file.
const DefaultSeparator = ";"

// Columns of a jobs file, in order. The first three are required.
const (
	colCron = iota
	colRelay
	colAction
	colJitter
	colDescription

	requiredColumns = colAction + 1
)

// LoadJobs reads job definitions from the file at path.
//
// See ParseJobs for the format.
func LoadJobs(path, separator string) ([]Job, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening jobs file: %w", err)
	}
	defer f.Close()

	jobs, err := ParseJobs(f, separator)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}

// ParseJobs reads job definitions in delimited text form:
//
//	Time;Relais;Action;Jitter;Description
//	0 0 20 * * ?;2.4;Off;10;Bedtijd kinderen
//	0 15 7 * * ?;1.2;On;5
//
// The first line is a header and is skipped, as are blank lines and rows
// with fewer than three columns. Fields are trimmed. Jitter is a whole
// number of seconds and defaults to 0; the description defaults to empty.
// Any invalid value fails the whole load and the error names the line.
func ParseJobs(r io.Reader, separator string) ([]Job, error) {
	if separator == "" {
		separator = DefaultSeparator
	}
	sep, size := utf8.DecodeRuneInString(separator)
	if size != len(separator) || sep == utf8.RuneError {
		return nil, fmt.Errorf("%w: separator must be a single character, got %q", ErrInvalidJob, separator)
	}

	reader := csv.NewReader(r)
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var jobs []Job
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading jobs: %w", err)
		}
		if header {
			header = false
			continue
		}

		line, _ := reader.FieldPos(0)
		if len(record) < requiredColumns {
			continue
		}

		job, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		job.Line = line
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func parseRecord(record []string) (Job, error) {
	field := func(i int) string {
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	job := Job{
		ID:          uuid.NewString(),
		Cron:        field(colCron),
		Description: field(colDescription),
	}

	addr, err := relay.ParseAddress(field(colRelay))
	if err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	job.Relay = addr

	action, err := relay.ParseAction(field(colAction))
	if err != nil {
		return Job{}, fmt.Errorf("%w: %w", ErrInvalidJob, err)
	}
	job.Action = action

	if s := field(colJitter); s != "" {
		seconds, err := strconv.Atoi(s)
		if err != nil || seconds < 0 {
			return Job{}, fmt.Errorf("%w: jitter must be a non-negative number of seconds, got %q", ErrInvalidJob, s)
		}
		job.Jitter = time.Duration(seconds) * time.Second
	}

	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}
