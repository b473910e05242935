package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/txrecover/internal/config"
	"github.com/JonMunkholm/txrecover/internal/core"
)

const export = `created_at,provider,region,status,channel,currency,message
2024-01-01T10:00:00Z,hubtel,Ghana,successful,mobile_money,GHS,Approved
2024-01-01T10:01:00Z,hubtel,Ghana,failed,mobile_money,GHS,Insufficient funds
2024-01-02T09:30:00Z,ozow,successful,eft,ZAR,Paid
`

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadFrom(func(string) string { return "" })
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseFlags(t *testing.T) {
	cfg := defaultConfig(t)

	opts, err := parseFlags([]string{"-top", "3", "-workers", "4", "-html", "out.html", "export.csv"}, cfg, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.top != 3 || opts.workers != 4 || opts.htmlOut != "out.html" || opts.path != "export.csv" {
		t.Errorf("unexpected options: %+v", opts)
	}

	opts, err = parseFlags([]string{"export.csv"}, cfg, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags() error = %v", err)
	}
	if opts.top != cfg.Parse.TopN {
		t.Errorf("top = %d, want config default %d", opts.top, cfg.Parse.TopN)
	}
}

func TestParseFlags_Errors(t *testing.T) {
	cfg := defaultConfig(t)

	tests := []struct {
		name string
		args []string
	}{
		{"no path", nil},
		{"two paths", []string{"a.csv", "b.csv"}},
		{"zero top", []string{"-top", "0", "a.csv"}},
		{"unknown flag", []string{"-verbose", "a.csv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseFlags(tt.args, cfg, io.Discard); err == nil {
				t.Error("parseFlags() expected error")
			}
		})
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	opts := options{
		path:    writeTemp(t, "export.csv", export),
		top:     5,
		workers: 1,
		htmlOut: filepath.Join(dir, "report.html"),
		xlsxOut: filepath.Join(dir, "report.xlsx"),
	}

	var stdout bytes.Buffer
	if err := run(context.Background(), opts, &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	out := stdout.String()
	for _, want := range []string{
		"=== Ghana ===",
		"=== Aggregate ===",
		"Total transactions: 2",
		"1 group(s) could not be recovered.",
		"Report written to",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	for _, path := range []string{opts.htmlOut, opts.xlsxOut} {
		info, err := os.Stat(path)
		if err != nil {
			t.Errorf("expected %s: %v", path, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", path)
		}
	}
}

func TestRun_FileReadError(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(t.TempDir(), "nope.csv")},
		{"empty file", writeTemp(t, "empty.csv", "")},
		{"no transactions", writeTemp(t, "header.csv", "created_at,provider,region\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), options{path: tt.path, top: 5, workers: 1}, io.Discard)
			var fre *core.FileReadError
			if !errors.As(err, &fre) {
				t.Fatalf("run() error = %v, want *core.FileReadError", err)
			}
		})
	}
}

func TestRun_Vocabulary(t *testing.T) {
	vocab := writeTemp(t, "vocab.yaml", "providers: [acme]\nregions: [Mars]\n")
	path := writeTemp(t, "export.csv", "2024-01-01T10:00:00Z,acme,Mars,successful,card,USD,OK\n")

	var stdout bytes.Buffer
	if err := run(context.Background(), options{path: path, top: 5, workers: 1, vocab: vocab}, &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if !strings.Contains(stdout.String(), "=== Mars ===") {
		t.Errorf("custom region missing:\n%s", stdout.String())
	}
}
