package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

const defaultSimulateCount = 5

// execIface defines the minimal command surface the REPL needs to operate.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Ping(ctx context.Context) error
	Predict(ctx context.Context, path string) error
	Simulate(ctx context.Context, count int) error
}

// runREPL reads commands from scanner and dispatches them to a until EOF or
// "exit"/"quit". Commands that need a session are refused while signed out.
// Handler errors are reported by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("netguard %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: predict <file.json>, simulate [n], ping, whoami, logout, exit")
			} else {
				printlnFn("Available commands: login, ping, whoami, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "ping":
			_ = a.Ping(ctx)

		case "predict":
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			if len(args) != 1 {
				printlnFn("Usage: predict <file.json>")
				continue
			}
			_ = a.Predict(ctx, args[0])

		case "simulate":
			if !a.isLoggedIn() {
				printlnFn("Please login first")
				continue
			}
			count := defaultSimulateCount
			if len(args) > 0 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					printlnFn("Usage: simulate [n], n > 0")
					continue
				}
				count = n
			}
			_ = a.Simulate(ctx, count)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
