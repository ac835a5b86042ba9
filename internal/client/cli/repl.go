package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Show(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Refresh(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads commands from scanner until EOF, "exit" or "quit".
//
//	Not logged in:
//	  - help, login, status, exit | quit
//
//	Logged in:
//	  - help
//	  - show            print the profile
//	  - edit f=v ...    change profile fields
//	  - refresh         refetch from the API
//	  - status          connectivity and sync phase
//	  - logout
//	  - exit | quit
//
// Handlers report their own errors to the user; the loop ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("portal %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		cmd, args := splitCommand(scanner.Text())
		if cmd == "" {
			continue
		}

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: show, edit field=value..., refresh, status, logout, exit")
			} else {
				printlnFn("Available commands: login, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "show":
			_ = a.Show(ctx)

		case "edit":
			_ = a.Edit(ctx, args)

		case "refresh":
			_ = a.Refresh(ctx)

		case "status":
			_ = a.Status(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}

// Run resumes or starts a session, then serves the REPL on stdin until
// the user leaves or ctx ends. Engines and databases are closed on return.
func (a *App) Run(ctx context.Context) {
	defer func() {
		if err := a.Close(); err != nil {
			a.log.Warn(ctx, "shutdown finished with errors", "error", err)
		}
	}()

	printlnFn("Welcome to the portal CLI (type 'help' for commands)")

	if !a.Restore(ctx) {
		_ = a.Login(ctx)
	}

	watchCtx, stop := context.WithCancel(ctx)
	defer stop()
	if a.config.OnlineCheckInterval > 0 {
		go a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
