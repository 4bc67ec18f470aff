package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dmitrijs2005/mediagate/internal/buildinfo"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

var ErrUnknownCommand = errors.New("unknown command")

const helpText = `Available commands:
  key [forget]                      show the media proxy public key
  scan <mxc|event.json>             scan an attachment
  get <mxc|event.json> [thumb] [-]  scan, download and export an attachment
  url <mxc> [thumb]                 scan, then print the proxy download URL
  batch <events.json>               scan every attachment of a JSON array
  history [n]                       show the last journal records
  stats                             count journal records by state
  version                           show build information
  exit | quit                       leave the program`

// execIface is the command surface the REPL dispatches to. App implements
// it; tests substitute a stub.
type execIface interface {
	Key(ctx context.Context, args []string) error
	Scan(ctx context.Context, args []string) error
	Get(ctx context.Context, args []string) error
	URL(ctx context.Context, args []string) error
	Batch(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
}

// dispatch runs one command line. exit is true for exit and quit.
func dispatch(ctx context.Context, a execIface, cmd string, args []string) (exit bool, err error) {
	switch cmd {
	case "help":
		printlnFn(helpText)
	case "version":
		buildinfo.PrintBuildData(os.Stdout)
	case "key":
		err = a.Key(ctx, args)
	case "scan":
		err = a.Scan(ctx, args)
	case "get":
		err = a.Get(ctx, args)
	case "url":
		err = a.URL(ctx, args)
	case "batch":
		err = a.Batch(ctx, args)
	case "history":
		err = a.History(ctx, args)
	case "stats":
		err = a.Stats(ctx, args)
	case "exit", "quit":
		printlnFn("Bye!")
		return true, nil
	default:
		printlnFn("Unknown command:", cmd)
		err = fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
	return false, err
}

// runREPL reads commands line by line until EOF, exit or quit. Command
// errors are printed and the loop carries on.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		printlnFn("mg> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		exit, err := dispatch(ctx, a, parts[0], parts[1:])
		if err != nil && !errors.Is(err, ErrUnknownCommand) {
			printlnFn("Error:", err)
		}
		if exit {
			return
		}
	}
}

// Run executes args as a single command, or starts the REPL when args is
// empty.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) > 0 {
		_, err := dispatch(ctx, a, args[0], args[1:])
		return err
	}

	printlnFn("mediagate (type 'help' for commands)")
	runREPL(ctx, a, bufio.NewScanner(os.Stdin))
	return nil
}
