// Package local reads lead batches from local files and writes qualification
// records back out. It is the file-based boundary used by the CLI; other
// boundaries plug in through the same Record contract.
package local

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/leadscope/lead-qualifier/pkg/enrich"
	"github.com/leadscope/lead-qualifier/pkg/lead"
)

// leadColumns is the required CSV header for lead input. Extra columns are
// ignored.
var leadColumns = []string{"id", "business_name"}

// optional lead columns read when present.
var optionalColumns = []string{
	"website", "phone", "email", "city", "region", "rating", "review_count", "license_number",
}

// ReadLeadsCSV reads leads from a CSV with an id/business_name header.
//
// Required columns must exist; optional columns are picked up when present
// and extra columns are ignored. Numeric fields that fail to parse are
// reported with their row number.
func ReadLeadsCSV(r io.Reader) ([]lead.Lead, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range leadColumns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	var leads []lead.Lead
	for row := 2; ; row++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return leads, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", row, err)
		}

		get := func(col string) string {
			i, ok := index[col]
			if !ok || i < 0 || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		l := lead.Lead{
			ID:            get("id"),
			BusinessName:  get("business_name"),
			Website:       get("website"),
			Phone:         get("phone"),
			Email:         get("email"),
			City:          get("city"),
			Region:        get("region"),
			LicenseNumber: get("license_number"),
		}
		if v := get("rating"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad rating %q: %w", row, v, err)
			}
			l.Rating = f
		}
		if v := get("review_count"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("row %d: bad review_count %q: %w", row, v, err)
			}
			l.ReviewCount = n
		}
		leads = append(leads, l)
	}
}

// LeadLine is one JSONL input line: a lead plus optional pre-fetched provider
// data keyed into the static gateway.
type LeadLine struct {
	Lead      lead.Lead            `json:"lead"`
	Providers *enrich.ProviderData `json:"providers,omitempty"`
}

// ReadLeadsJSONL reads LeadLine records, one JSON object per line. Blank
// lines are skipped. The returned provider map holds only leads that carried
// embedded provider data and feeds enrich.NewStaticGateway.
func ReadLeadsJSONL(r io.Reader) ([]lead.Lead, map[string]enrich.ProviderData, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var leads []lead.Lead
	providers := make(map[string]enrich.ProviderData)
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var ll LeadLine
		if err := json.Unmarshal([]byte(raw), &ll); err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		leads = append(leads, ll.Lead)
		if ll.Providers != nil {
			providers[ll.Lead.ID] = *ll.Providers
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return leads, providers, nil
}
