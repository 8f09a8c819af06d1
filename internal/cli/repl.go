package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Scan(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the LeafSync CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//	Not logged in:
//	  - help                                     — show available commands
//	  - login <token>                            — authenticate with a token
//	  - status                                   — connectivity and queue state
//	  - exit | quit                              — leave the program
//
//	Logged in:
//	  - help                                     — show available commands
//	  - scan <image> <crop> <disease> <conf>     — capture a diagnosis
//	  - list                                     — list pending scans
//	  - sync                                     — push pending scans now
//	  - status                                   — connectivity and queue state
//	  - logout                                   — log out
//	  - exit | quit                              — leave the program
//
// Handlers print their own usage and domain messages; an error return means
// an unexpected failure (storage write, file system) and is reported to the
// user here so no failure stays silent. The loop itself never aborts on a
// handler error.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("leafsync %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		var err error

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: scan <image> <crop> <disease> <confidence>, (l)ist, sync, status, logout, exit")
			} else {
				printlnFn("Available commands: login <token>, status, exit")
			}

		case "login":
			err = a.Login(ctx, args)

		case "logout":
			err = a.Logout(ctx)

		case "scan":
			err = a.Scan(ctx, args)

		case "l", "list":
			err = a.List(ctx)

		case "sync":
			err = a.Sync(ctx)

		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
