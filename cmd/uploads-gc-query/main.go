package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/auditlog"
	"github.com/SHR-HR/DIPLOM-fandom-wiki-warhammer40k-API/internal/exitcodes"
)

func main() {
	dbPath := flag.String("db", "/var/lib/uploads-gc/deletions.db", "Path to deletion database")
	recent := flag.Int("recent", 0, "Show N most recent events")
	run := flag.String("run", "", "Show all events of one GC run")
	action := flag.String("action", "", "Filter by action (REMOVED, MISSING, ERROR, DRY_RUN)")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	stats := flag.Bool("stats", false, "Show deletion statistics")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	db, err := auditlog.Open(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		events, err := db.GetRecentEvents(*recent)
		renderEvents(events, err, *jsonOutput)
	case *run != "":
		events, err := db.GetEventsByRun(*run)
		renderEvents(events, err, *jsonOutput)
	case *action != "":
		events, err := db.GetEventsByAction(*action)
		renderEvents(events, err, *jsonOutput)
	case *pathPattern != "":
		events, err := db.GetEventsByPath(*pathPattern)
		renderEvents(events, err, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  uploads-gc-query --recent 10              # Show 10 most recent events")
		fmt.Println("  uploads-gc-query --stats                  # Show deletion statistics")
		fmt.Println("  uploads-gc-query --run <run-id>           # Show one GC run")
		fmt.Println("  uploads-gc-query --action REMOVED         # Show only deletions")
		fmt.Println("  uploads-gc-query --path '%/avatars/%'     # Filter by path")
		os.Exit(exitcodes.InvalidConfig)
	}
}

func showStats(db *auditlog.DB, days int, jsonOutput bool) {
	stats, err := db.GetStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Uploads GC Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("GC Runs:        %d\n", stats.RunCount)
	fmt.Printf("Files Removed:  %d\n", stats.TotalRemoved)
	fmt.Printf("Already Absent: %d\n", stats.TotalMissing)
	fmt.Printf("Errors:         %d\n\n", stats.TotalErrors)

	if len(stats.ByAction) > 0 {
		fmt.Println("By Action:")
		for action, count := range stats.ByAction {
			fmt.Printf("  %-10s %d\n", action, count)
		}
	}
}

func renderEvents(events []auditlog.Event, err error, jsonOutput bool) {
	if err != nil {
		log.Fatalf("ERROR: Query failed: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(events, "", "  ")
		fmt.Println(string(data))
		return
	}

	if len(events) == 0 {
		fmt.Println("No events found")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tPATH\tRUN\tERROR")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.8s\t%s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.Action,
			e.Path,
			e.RunID,
			e.ErrorMessage,
		)
	}
	w.Flush()
}
