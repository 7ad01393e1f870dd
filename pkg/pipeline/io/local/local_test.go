package local_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/leadscope/lead-qualifier/pkg/lead"
	"github.com/leadscope/lead-qualifier/pkg/pipeline"
	"github.com/leadscope/lead-qualifier/pkg/pipeline/io/local"
)

func TestReadLeadsCSV(t *testing.T) {
	t.Parallel()

	t.Run("reads required and optional columns", func(t *testing.T) {
		t.Parallel()

		in := "id,business_name,website,city,rating,review_count,extra\n" +
			"l1,Ace Plumbing,https://ace.example,Portland,4.2,31,ignored\n" +
			"l2,No Site Electric,,Salem,,,\n"
		got, err := local.ReadLeadsCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []lead.Lead{
			{ID: "l1", BusinessName: "Ace Plumbing", Website: "https://ace.example", City: "Portland", Rating: 4.2, ReviewCount: 31},
			{ID: "l2", BusinessName: "No Site Electric", City: "Salem"},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("leads mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("header is case-insensitive", func(t *testing.T) {
		t.Parallel()

		in := "ID,Business_Name\nl1,Ace Plumbing\n"
		got, err := local.ReadLeadsCSV(strings.NewReader(in))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].BusinessName != "Ace Plumbing" {
			t.Fatalf("unexpected leads: %#v", got)
		}
	})

	t.Run("missing required column errors", func(t *testing.T) {
		t.Parallel()

		if _, err := local.ReadLeadsCSV(strings.NewReader("id,website\nl1,x\n")); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("bad numeric field names the row", func(t *testing.T) {
		t.Parallel()

		in := "id,business_name,rating\nl1,Ace,not-a-number\n"
		_, err := local.ReadLeadsCSV(strings.NewReader(in))
		if err == nil || !strings.Contains(err.Error(), "row 2") {
			t.Fatalf("expected row-numbered error, got %v", err)
		}
	})
}

func TestReadLeadsJSONL(t *testing.T) {
	t.Parallel()

	in := `{"lead":{"id":"l1","business_name":"Ace Plumbing","website":"https://ace.example"},"providers":{"tech":{"has_crm":true,"has_booking_system":false,"has_analytics":true,"has_chat_widget":false,"cms":"wordpress"}}}

{"lead":{"id":"l2","business_name":"No Site Electric"}}
`
	leads, providers, err := local.ReadLeadsJSONL(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(leads) != 2 || leads[0].ID != "l1" || leads[1].ID != "l2" {
		t.Fatalf("unexpected leads: %#v", leads)
	}
	if len(providers) != 1 {
		t.Fatalf("expected provider data only for l1: %#v", providers)
	}
	pd, ok := providers["l1"]
	if !ok || pd.Tech == nil || !pd.Tech.HasCRM || pd.Tech.CMS != "wordpress" {
		t.Fatalf("unexpected provider data: %#v", pd)
	}

	t.Run("malformed line names the line", func(t *testing.T) {
		t.Parallel()

		_, _, err := local.ReadLeadsJSONL(strings.NewReader("{\"lead\":{\"id\":\"l1\"}}\nnot json\n"))
		if err == nil || !strings.Contains(err.Error(), "line 2") {
			t.Fatalf("expected line-numbered error, got %v", err)
		}
	})
}

func sampleRecords() []pipeline.Record {
	return []pipeline.Record{
		{
			LeadID:     "l1",
			Status:     "QUALIFIED",
			Score:      52,
			FitScore:   47,
			Signals:    []string{"missing_crm", "no_booking_system"},
			TopSignals: []string{"missing_crm"},
			Category:   "THE_MANUAL",
			Reasoning:  "website without crm or booking",
		},
		{
			LeadID: "l2",
			Status: "FAILED",
			Error:  "business_name: required",
		},
	}
}

func TestWriteRecordsCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := local.WriteRecordsCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if got, want := lines[0], strings.Join(local.RecordHeader(), ","); got != want {
		t.Fatalf("header mismatch:\n got %s\nwant %s", got, want)
	}
	if !strings.Contains(lines[1], `"[""missing_crm"",""no_booking_system""]"`) {
		t.Fatalf("signals must embed a JSON array: %s", lines[1])
	}
	// Empty list fields stay empty, not "[]".
	if strings.Contains(lines[2], "[]") {
		t.Fatalf("empty lists must render empty: %s", lines[2])
	}
}

func TestWriteRecordsJSONL(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := local.WriteRecordsJSONL(&buf, sampleRecords()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], `{"lead_id":"l1"`) {
		t.Fatalf("unexpected first line: %s", lines[0])
	}
}
