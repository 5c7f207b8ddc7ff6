package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const (
	daemonBinary = "oaspracticed"
	pidFile      = "oaspracticed.pid"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "doctor":
		err = cmdDoctor()
	case "config":
		err = cmdConfig()
	case "scenarios":
		err = cmdScenarios(os.Args[2:])
	case "topics":
		err = cmdTopics()
	case "show":
		err = cmdShow(os.Args[2:])
	case "submit":
		err = cmdSubmit(os.Args[2:])
	case "progress":
		err = cmdProgress()
	case "practice":
		err = cmdPractice()
	case "mcp":
		err = cmdMCP(os.Args[2:])
	case "events":
		err = cmdEvents()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("oaspractice %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`oaspractice - Hands-on OpenAPI Practice

Usage:
  oaspractice <command> [arguments]

Setup Commands:
  init            Initialize oaspractice (first-time setup)
  doctor          Check the local setup
  config          Show current configuration

Daemon Commands:
  start           Start the scenario daemon
  stop            Stop the scenario daemon
  status          Show daemon status
  logs            View daemon logs

Practice Commands:
  practice                     Open the interactive practice UI
  scenarios [-t topic] [-d level] [--hide-completed]
                               List scenarios
  topics                       List topics with scenario counts
  show <id>                    Show scenario instructions and requirements
  submit <id> <file>           Check a solution file and record progress
  progress                     Show points and completed scenarios

Integration Commands:
  mcp [--http addr]            Start MCP server (stdio by default)
  events                       Print progress events from the queue

Other:
  help            Show this help message
  version         Show version information

Examples:
  oaspractice init                          # Install scenarios and config
  oaspractice start                         # Start daemon
  oaspractice scenarios -d beginner         # Beginner scenarios
  oaspractice submit first-endpoint api.yaml
  oaspractice practice                      # Interactive UI`)
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(value float64, width int) string {
	filled := int(value * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}
