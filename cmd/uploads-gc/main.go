package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/auditlog"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/config"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/exitcodes"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/logging"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/metrics"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/uploads"
)

func main() {
	configPath := flag.String("config", "/etc/uploads-gc/config.yaml", "Path to configuration file")
	urlsPath := flag.String("urls", "-", "File with one image URL per line ('-' for stdin)")
	dryRun := flag.Bool("dry-run", false, "Resolve and report without deleting files")
	jsonOutput := flag.Bool("json", false, "Print the report as JSON")
	flag.Parse()

	logger := logging.New()

	logger.Println("Uploads GC starting...")
	logger.Printf("Config file: %s", *configPath)
	if *dryRun {
		logger.Println("DRY RUN MODE: No files will be deleted")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Printf("ERROR: Failed to load config: %v", err)
		os.Exit(exitcodes.InvalidConfig)
	}
	logger.Printf("Uploads root: %s", cfg.UploadsRoot)

	metrics.Init()
	if cfg.Prometheus.Port > 0 {
		addr := cfg.PrometheusAddress()
		logger.Printf("Starting Prometheus metrics on %s", addr)
		metrics.StartServer(addr, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metrics.Shutdown(ctx, logger)
		}()
	}

	var db *auditlog.DB
	if cfg.DatabasePath != "" {
		logger.Printf("Opening deletion database: %s", cfg.DatabasePath)
		db, err = auditlog.Open(cfg.DatabasePath)
		if err != nil {
			logger.Printf("ERROR: Failed to open database: %v", err)
			os.Exit(exitcodes.RuntimeError)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Printf("ERROR: Failed to close database: %v", err)
			}
		}()
	}

	urls, err := readURLs(*urlsPath)
	if err != nil {
		logger.Printf("ERROR: Failed to read URL list: %v", err)
		os.Exit(exitcodes.RuntimeError)
	}

	resolver, err := uploads.NewResolver(cfg.UploadsRoot)
	if err != nil {
		logger.Printf("ERROR: Invalid uploads root %s: %v", cfg.UploadsRoot, err)
		os.Exit(exitcodes.InvalidConfig)
	}

	cleaner := uploads.NewCleaner(resolver, logger, *dryRun, db)

	start := time.Now()
	report := cleaner.DeleteLocalUploads(urls)
	metrics.RecordRun(time.Since(start))

	printReport(report, *jsonOutput)
	logger.Println("Uploads GC finished")
}

// readURLs reads one URL per line; blank lines are kept out here only to
// keep the log counts meaningful — the cleaner drops them anyway
func readURLs(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var urls []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		urls = append(urls, scanner.Text())
	}
	return urls, scanner.Err()
}

func printReport(report uploads.Report, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Run:        %s\n", report.RunID)
	fmt.Printf("Candidates: %d\n", len(report.Candidates))
	fmt.Printf("Removed:    %d\n", len(report.Removed))
	for _, p := range report.Removed {
		fmt.Printf("  removed   %s\n", p)
	}
	for _, p := range missing(report) {
		fmt.Printf("  not gone  %s\n", p)
	}
}

// missing returns candidates that did not end up removed
func missing(report uploads.Report) []string {
	removed := make(map[string]struct{}, len(report.Removed))
	for _, p := range report.Removed {
		removed[p] = struct{}{}
	}
	var out []string
	for _, p := range report.Candidates {
		if _, ok := removed[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
