package batch

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const judgmentDateLayout = "2006-01-02"

// rowCounts accumulates per-file validation results.
type rowCounts struct {
	total     int
	invalid   int
	duplicate int
}

// parseRows reads an ingest file of judgment records and validates each row.
// Expected columns: case_number, debtor_name, amount, judgment_date. A header
// row matching the first column name is skipped. Rows repeating an earlier
// case number within the same file count as duplicates and are not returned.
func parseRows(data []byte) ([]Row, rowCounts, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var (
		counts rowCounts
		rows   []Row
		seen   = make(map[string]struct{})
		first  = true
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A structurally broken line is an invalid row, not a fatal
			// parse failure; the error budget decides the batch's fate.
			counts.total++
			counts.invalid++
			continue
		}

		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(record[0]), "case_number") {
				continue
			}
		}

		counts.total++

		row, ok := validateRow(record)
		if !ok {
			counts.invalid++
			continue
		}
		if _, dup := seen[row.CaseNumber]; dup {
			counts.duplicate++
			continue
		}
		seen[row.CaseNumber] = struct{}{}
		rows = append(rows, row)
	}

	return rows, counts, nil
}

func validateRow(record []string) (Row, bool) {
	if len(record) < 4 {
		return Row{}, false
	}

	caseNumber := strings.TrimSpace(record[0])
	debtorName := strings.TrimSpace(record[1])
	if caseNumber == "" || debtorName == "" {
		return Row{}, false
	}

	amountCents, err := parseAmountCents(strings.TrimSpace(record[2]))
	if err != nil {
		return Row{}, false
	}

	judgmentDate, err := time.Parse(judgmentDateLayout, strings.TrimSpace(record[3]))
	if err != nil {
		return Row{}, false
	}

	return Row{
		CaseNumber:   caseNumber,
		DebtorName:   debtorName,
		AmountCents:  amountCents,
		JudgmentDate: judgmentDate,
	}, true
}

// parseAmountCents converts a decimal money string like "1234.56" to cents
// without going through floating point.
func parseAmountCents(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	// Check the sign on the raw input: "-0.50" has a non-negative whole part.
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount %q", s)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	cents, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents *= 100

	if hasFrac {
		if len(frac) != 2 {
			return 0, fmt.Errorf("invalid amount %q: expected two decimal places", s)
		}
		part, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || part < 0 {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		cents += part
	}

	return cents, nil
}
