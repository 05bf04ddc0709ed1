// Command graveyard finds unused HTTP API endpoints by cross-referencing an
// OpenAPI specification against access logs.
package main

import (
	"fmt"
	"os"

	"github.com/adylagad/gh-api-graveyard/internal/logger"
)

var version = "0.3.0"

const usage = `graveyard - find unused HTTP API endpoints

Usage:
  graveyard <command> [flags]

Commands:
  analyze   Analyze a spec against access logs and print the results
  report    Write a full report to a file
  prune     Remove high-confidence unused endpoints from a spec
  scan      Scan a fleet of services from a services file
  history   List or inspect persisted scans
  trends    Show trends, anomalies, and cost estimates from scan history
  serve     Serve analysis results as a JSON API
  version   Print the version

Run "graveyard <command> -h" for command flags.`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	log, err := logger.NewCLI()
	if err != nil {
		fmt.Fprintf(os.Stderr, "graveyard: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	var runErr error
	switch os.Args[1] {
	case "analyze":
		runErr = runAnalyze(os.Args[2:], log)
	case "report":
		runErr = runReport(os.Args[2:], log)
	case "prune":
		runErr = runPrune(os.Args[2:], log)
	case "scan":
		runErr = runScan(os.Args[2:], log)
	case "history":
		runErr = runHistory(os.Args[2:], log)
	case "trends":
		runErr = runTrends(os.Args[2:], log)
	case "serve":
		runErr = runServe(os.Args[2:], log)
	case "version":
		fmt.Println("graveyard " + version)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "graveyard: unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "graveyard: %v\n", runErr)
		os.Exit(1)
	}
}

