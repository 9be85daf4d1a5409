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
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Open(ctx context.Context, folder string) error
	More(ctx context.Context) error
	Thread(ctx context.Context, args []string) error
	Reply(ctx context.Context) error
	Send(ctx context.Context) error
	Listen(ctx context.Context) error
	Unlisten(ctx context.Context) error
	Backup(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches them to a. The loop
// exits on scanner EOF, on "exit"/"quit" or when ctx is done.
//
//	Not logged in:
//	  - help           show available commands
//	  - register       create an account and keyfile
//	  - login          unlock the keyfile and log in
//	  - exit | quit    leave the program
//
//	Logged in:
//	  - inbox | outbox open a folder and load its first page
//	  - folder <name>  same, by name
//	  - more           load the next older page of the current folder
//	  - thread <n>     open the n-th mail's thread of the current folder
//	  - reply          reply in the open thread
//	  - send           compose a new mail
//	  - listen         receive new mail live
//	  - unlisten       stop receiving new mail
//	  - backup <path>  write a sealed copy of the keyfile
//	  - logout         end the session
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("melon%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if !a.isLoggedIn() {
			switch cmd {
			case "help":
				printlnFn("Available commands: register, login, exit")
			case "register":
				_ = a.Register(ctx)
			case "login":
				_ = a.Login(ctx)
			case "exit", "quit":
				printlnFn("Bye!")
				return
			default:
				printlnFn("Unknown command:", cmd)
			}
			continue
		}

		switch cmd {
		case "help":
			printlnFn("Available commands: inbox, outbox, folder <name>, more, thread <n>, reply, send, listen, unlisten, backup <path>, logout, exit")
		case "inbox", "outbox":
			_ = a.Open(ctx, cmd)
		case "folder":
			if len(args) == 0 {
				printlnFn("Usage: folder <inbox|outbox>")
				continue
			}
			_ = a.Open(ctx, args[0])
		case "more":
			_ = a.More(ctx)
		case "thread":
			_ = a.Thread(ctx, args)
		case "reply":
			_ = a.Reply(ctx)
		case "send":
			_ = a.Send(ctx)
		case "listen":
			_ = a.Listen(ctx)
		case "unlisten":
			_ = a.Unlisten(ctx)
		case "backup":
			_ = a.Backup(ctx, args)
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
