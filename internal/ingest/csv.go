// Package ingest loads raw signal observations and daily returns from CSV
// files and checks data sufficiency before a study runs.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"sentiment-alpha-lab/internal/domain"
)

// Ingest errors.
var (
	ErrBadHeader = errors.New("unexpected csv header")
	ErrBadRow    = errors.New("malformed csv row")
)

var observationHeader = []string{"entity_id", "observed_at_ms", "session_day_ms", "seconds_to_close", "value"}
var returnHeader = []string{"entity_id", "day_ms", "daily_return", "market_cap_lag"}

// LoadResult reports what a CSV load produced.
type LoadResult struct {
	Rows    int      // rows accepted
	Skipped []string // per-row skip reasons, "line N: reason"
}

// LoadObservationsCSV reads raw observations from a CSV file with header
// entity_id,observed_at_ms,session_day_ms,seconds_to_close,value.
// Rows with non-finite values or negative seconds-to-close are skipped and
// reported, not fatal; a malformed header or unparseable field aborts.
func LoadObservationsCSV(path string) ([]*domain.RawSignalObservation, *LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open observations csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if err := checkHeader(r, observationHeader); err != nil {
		return nil, nil, err
	}

	var obs []*domain.RawSignalObservation
	result := &LoadResult{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read observations csv: %w", err)
		}
		line++

		o, skip, err := parseObservationRow(record)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if skip != "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: %s", line, skip))
			continue
		}
		obs = append(obs, o)
		result.Rows++
	}
	return obs, result, nil
}

// LoadReturnsCSV reads daily returns from a CSV file with header
// entity_id,day_ms,daily_return,market_cap_lag. market_cap_lag may be
// empty when unknown.
func LoadReturnsCSV(path string) ([]*domain.DailyReturn, *LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open returns csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	if err := checkHeader(r, returnHeader); err != nil {
		return nil, nil, err
	}

	var rows []*domain.DailyReturn
	result := &LoadResult{}
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read returns csv: %w", err)
		}
		line++

		row, skip, err := parseReturnRow(record)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		if skip != "" {
			result.Skipped = append(result.Skipped, fmt.Sprintf("line %d: %s", line, skip))
			continue
		}
		rows = append(rows, row)
		result.Rows++
	}
	return rows, result, nil
}

func parseObservationRow(record []string) (*domain.RawSignalObservation, string, error) {
	if len(record) != len(observationHeader) {
		return nil, "", fmt.Errorf("%w: got %d fields, want %d", ErrBadRow, len(record), len(observationHeader))
	}
	if record[0] == "" {
		return nil, "empty entity_id", nil
	}

	observedAt, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: observed_at_ms %q", ErrBadRow, record[1])
	}
	sessionDay, err := strconv.ParseInt(record[2], 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: session_day_ms %q", ErrBadRow, record[2])
	}
	secondsToClose, err := strconv.ParseFloat(record[3], 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: seconds_to_close %q", ErrBadRow, record[3])
	}
	value, err := strconv.ParseFloat(record[4], 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: value %q", ErrBadRow, record[4])
	}

	// Same validity rules the fuser applies; skipping here keeps the bad
	// rows out of storage entirely.
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, "non-finite value", nil
	}
	if secondsToClose < 0 || math.IsNaN(secondsToClose) {
		return nil, "negative seconds_to_close", nil
	}

	return &domain.RawSignalObservation{
		EntityID:       record[0],
		ObservedAtMs:   observedAt,
		SessionDayMs:   sessionDay,
		SecondsToClose: secondsToClose,
		Value:          value,
	}, "", nil
}

func parseReturnRow(record []string) (*domain.DailyReturn, string, error) {
	if len(record) != len(returnHeader) {
		return nil, "", fmt.Errorf("%w: got %d fields, want %d", ErrBadRow, len(record), len(returnHeader))
	}
	if record[0] == "" {
		return nil, "empty entity_id", nil
	}

	dayMs, err := strconv.ParseInt(record[1], 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: day_ms %q", ErrBadRow, record[1])
	}
	ret, err := strconv.ParseFloat(record[2], 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: daily_return %q", ErrBadRow, record[2])
	}
	if math.IsNaN(ret) || math.IsInf(ret, 0) {
		return nil, "non-finite daily_return", nil
	}

	var marketCap float64
	if record[3] != "" {
		marketCap, err = strconv.ParseFloat(record[3], 64)
		if err != nil {
			return nil, "", fmt.Errorf("%w: market_cap_lag %q", ErrBadRow, record[3])
		}
		if marketCap < 0 || math.IsNaN(marketCap) || math.IsInf(marketCap, 0) {
			return nil, "invalid market_cap_lag", nil
		}
	}

	return &domain.DailyReturn{
		EntityID:     record[0],
		DayMs:        dayMs,
		Return:       ret,
		MarketCapLag: marketCap,
	}, "", nil
}

func checkHeader(r *csv.Reader, want []string) error {
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("read csv header: %w", err)
	}
	if len(header) != len(want) {
		return fmt.Errorf("%w: %v", ErrBadHeader, header)
	}
	for i, col := range want {
		if header[i] != col {
			return fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i, header[i], col)
		}
	}
	return nil
}
