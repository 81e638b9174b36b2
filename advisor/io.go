package advisor

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// MeasurementRecord is one row of a batch input file.
type MeasurementRecord struct {
	Row          int          `json:"row"`
	ID           string       `json:"id"`
	Measurements Measurements `json:"measurements"`
}

// BatchResult pairs an input row with its ranking.
type BatchResult struct {
	Record       MeasurementRecord `json:"record"`
	Ranked       []RankedCrop      `json:"ranked"`
	Explanations []Explanation     `json:"explanations,omitempty"`
	Err          error             `json:"-"`
}

// ParseMeasurementFile reads measurement rows from a CSV or TSV file. Columns
// are matched by header name; without a recognised header the first seven
// columns are read in N, P, K, temperature, humidity, pH, rainfall order.
// Missing cells take the field default and every value is clamped.
func ParseMeasurementFile(path string) ([]MeasurementRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}
	records, err := ParseMeasurements(f, comma)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// ParseMeasurements is ParseMeasurementFile for an arbitrary reader.
func ParseMeasurements(r io.Reader, comma rune) ([]MeasurementRecord, error) {
	reader := csv.NewReader(r)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("empty file")
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	cols, idCol, fromHeader := resolveMeasurementColumns(header)
	start := 0
	if fromHeader {
		start = 1
	}

	out := make([]MeasurementRecord, 0, len(rows)-start)
	for i, row := range rows[start:] {
		if blankRow(row) {
			continue
		}
		rowNum := start + i + 1
		vals := make([]float64, len(Fields))
		for fi, field := range Fields {
			raw := ""
			if c := cols[fi]; c >= 0 && c < len(row) {
				raw = cleanCell(row[c])
			}
			v, err := field.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", rowNum, err)
			}
			vals[fi] = v
		}
		m, _ := MeasurementsFromValues(vals)
		rec := MeasurementRecord{Row: rowNum, Measurements: m}
		if idCol >= 0 && idCol < len(row) {
			rec.ID = cleanCell(row[idCol])
		}
		if rec.ID == "" {
			rec.ID = strconv.Itoa(len(out) + 1)
		}
		out = append(out, rec)
	}
	return out, nil
}

func resolveMeasurementColumns(header []string) ([]int, int, bool) {
	candidates := getColumnCandidates()
	cols := make([]int, len(Fields))
	found := false
	for i, f := range Fields {
		cols[i] = findColumn(header, candidates.Fields[f.Key])
		if cols[i] >= 0 {
			found = true
		}
	}
	idCol := findColumn(header, candidates.ID)
	if found || idCol >= 0 {
		return cols, idCol, true
	}
	for i := range cols {
		cols[i] = i
	}
	return cols, -1, false
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for i, col := range header {
		for _, cand := range candidates {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

func blankRow(row []string) bool {
	for _, c := range row {
		if cleanCell(c) != "" {
			return false
		}
	}
	return true
}

// WriteResultCSV writes one line per input row: id, the readings, then label
// and probability for each of the TopK slots, then explanations when present.
func WriteResultCSV(w io.Writer, results []BatchResult) error {
	withExplanations := false
	for _, r := range results {
		if len(r.Explanations) > 0 {
			withExplanations = true
			break
		}
	}
	cw := csv.NewWriter(w)
	header := []string{"id"}
	for _, f := range Fields {
		header = append(header, f.Key)
	}
	for i := 1; i <= TopK; i++ {
		header = append(header, fmt.Sprintf("crop_%d", i), fmt.Sprintf("probability_%d", i))
	}
	if withExplanations {
		for i := 1; i <= TopK; i++ {
			header = append(header, fmt.Sprintf("explanation_%d", i))
		}
	}
	header = append(header, "error")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range results {
		row := []string{r.Record.ID}
		for i, v := range r.Record.Measurements.Values() {
			row = append(row, Fields[i].Format(v))
		}
		for i := 0; i < TopK; i++ {
			if i < len(r.Ranked) {
				row = append(row, r.Ranked[i].Label, strconv.FormatFloat(r.Ranked[i].Probability, 'f', 4, 64))
			} else {
				row = append(row, "", "")
			}
		}
		if withExplanations {
			for i := 0; i < TopK; i++ {
				if i < len(r.Explanations) {
					row = append(row, r.Explanations[i].Text)
				} else {
					row = append(row, "")
				}
			}
		}
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		row = append(row, errText)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", r.Record.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteResultFile writes results to path as CSV.
func WriteResultFile(path string, results []BatchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := WriteResultCSV(f, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
