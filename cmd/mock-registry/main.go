package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/leadscope/lead-qualifier/pkg/mockregistry"
	"github.com/leadscope/lead-qualifier/pkg/resolve"
)

func main() {
	addr := defaultString("MOCK_REGISTRY_ADDR", ":8081")
	fixtures := defaultString("MOCK_REGISTRY_FIXTURES", "")

	fs := flag.NewFlagSet("mock-registry", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&fixtures, "fixtures", fixtures, "JSONL file of license records to serve")
	_ = fs.Parse(os.Args[1:])

	srv := mockregistry.New()
	loaded := 0
	if fixtures != "" {
		var err error
		loaded, err = loadFixtures(srv, fixtures)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "fixtures error: %v\n", err)
			os.Exit(1)
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-registry listening on %s (%d records)\n", addr, loaded)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

type fixtureRecord struct {
	LicenseNumber string `json:"license_number"`
	HolderName    string `json:"holder_name"`
	Status        string `json:"status"`
	BusinessName  string `json:"business_name"`
	OwnerName     string `json:"owner_name"`
}

func loadFixtures(srv *mockregistry.Server, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = f.Close()
	}()

	count := 0
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		var rec fixtureRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return count, fmt.Errorf("line %d: %w", line, err)
		}
		srv.Add(resolve.Record{
			Number:     rec.LicenseNumber,
			HolderName: rec.HolderName,
			Status:     rec.Status,
		}, rec.BusinessName, rec.OwnerName)
		count++
	}
	return count, sc.Err()
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
