// Command analyze recovers transactions from a payment export and prints a
// per-region summary. It can also write the HTML insight report and an
// XLSX workbook.
//
// Usage:
//
//	analyze [-top N] [-workers N] [-vocab file.yaml] [-canonical]
//	        [-html report.html] [-xlsx report.xlsx] export.csv
//
// Settings default to the PARSE_* environment variables (and .env).
// The exit code is 1 when the export cannot be read or yields no transactions.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/txrecover/internal/config"
	"github.com/JonMunkholm/txrecover/internal/core"
	"github.com/JonMunkholm/txrecover/internal/logging"
	"github.com/JonMunkholm/txrecover/internal/report"
)

// options are the resolved command-line settings.
type options struct {
	path      string
	top       int
	workers   int
	vocab     string
	canonical bool
	htmlOut   string
	xlsxOut   string
	title     string
}

func main() {
	// .env is optional; unlike the server, existing env vars win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(2)
	}
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	opts, err := parseFlags(os.Args[1:], cfg, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing %s: %s\n", opts.path, core.FormatUserError(err))
		slog.Debug("analysis failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg *config.Config, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.IntVar(&opts.top, "top", cfg.Parse.TopN, "number of top success/failure messages to display")
	fs.IntVar(&opts.workers, "workers", cfg.Parse.Workers, "rows parsed concurrently (1 = sequential)")
	fs.StringVar(&opts.vocab, "vocab", cfg.Parse.VocabularyFile, "YAML vocabulary file overriding the defaults")
	fs.BoolVar(&opts.canonical, "canonical", cfg.Parse.CanonicalMessages, "fold message variants (digits, case) together")
	fs.StringVar(&opts.htmlOut, "html", "", "write the HTML insight report to this file")
	fs.StringVar(&opts.xlsxOut, "xlsx", "", "write an XLSX workbook to this file")
	fs.StringVar(&opts.title, "title", "", "title of the HTML report")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: analyze [flags] export.csv")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, errors.New("expected exactly one export path")
	}
	if opts.top < 1 {
		fmt.Fprintf(stderr, "-top must be positive, got %d\n", opts.top)
		return opts, core.ErrInvalidTopCount
	}
	opts.path = fs.Arg(0)
	return opts, nil
}

func run(ctx context.Context, opts options, stdout io.Writer) error {
	vocab := core.DefaultVocabulary()
	if opts.vocab != "" {
		v, err := core.LoadVocabulary(opts.vocab)
		if err != nil {
			return err
		}
		vocab = v
	}

	result, err := core.ParseFile(ctx, opts.path, core.ParseOptions{
		Vocabulary:        vocab,
		Workers:           opts.workers,
		CanonicalMessages: opts.canonical,
	})
	if err != nil {
		return err
	}

	in := report.Build(result, core.Aggregate(result.Transactions), report.Options{
		Title:       opts.title,
		TopN:        opts.top,
		RegionOrder: vocab.Regions(),
	})

	if err := report.WriteText(stdout, in); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if result.Rejected > 0 {
		fmt.Fprintf(stdout, "\n%d group(s) could not be recovered.\n", result.Rejected)
	}

	if opts.htmlOut != "" {
		if err := writeFile(opts.htmlOut, func(w io.Writer) error { return report.WriteHTML(ctx, w, in) }); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Report written to %s\n", opts.htmlOut)
	}
	if opts.xlsxOut != "" {
		if err := writeFile(opts.xlsxOut, func(w io.Writer) error { return report.WriteXLSX(w, in) }); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Workbook written to %s\n", opts.xlsxOut)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
