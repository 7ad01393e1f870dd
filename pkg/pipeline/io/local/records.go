package local

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leadscope/lead-qualifier/pkg/pipeline"
)

// RecordHeader returns the stable CSV header for qualification records.
func RecordHeader() []string {
	return []string{
		"lead_id",
		"status",
		"score",
		"fit_score",
		"signals",
		"top_signals",
		"category",
		"reasoning",
		"error",
		"council_decision",
		"council_concerns",
	}
}

// WriteRecordsCSV writes run records as a CSV with the stable RecordHeader
// ordering. List fields are embedded as JSON arrays, empty when absent.
func WriteRecordsCSV(w io.Writer, recs []pipeline.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RecordHeader()); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := cw.Write([]string{
			rec.LeadID,
			rec.Status,
			strconv.Itoa(rec.Score),
			strconv.Itoa(rec.FitScore),
			jsonArrayOrEmpty(rec.Signals),
			jsonArrayOrEmpty(rec.TopSignals),
			rec.Category,
			rec.Reasoning,
			rec.Error,
			rec.CouncilDecision,
			jsonArrayOrEmpty(rec.CouncilConcerns),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRecordsJSONL writes one record per line.
func WriteRecordsJSONL(w io.Writer, recs []pipeline.Record) error {
	for _, rec := range recs {
		b, err := rec.MarshalJSONL()
		if err != nil {
			return fmt.Errorf("marshal record for %s: %w", rec.LeadID, err)
		}
		if _, err := w.Write(append(b, '\n')); err != nil {
			return err
		}
	}
	return nil
}

// ReadRecordsJSONL reads previously written records, one JSON object per
// line. Blank lines are skipped. Used for incremental reruns over a prior
// output file.
func ReadRecordsJSONL(r io.Reader) ([]pipeline.Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var recs []pipeline.Record
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec pipeline.Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

func jsonArrayOrEmpty(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	b, err := json.Marshal(vals)
	if err != nil {
		// Should not happen for []string, but keep output stable.
		return ""
	}
	return string(b)
}
