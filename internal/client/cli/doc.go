// Package cli provides the interactive NetGuard sensor command-line client.
//
// It wires configuration, the local session cache, the gRPC client and an
// interactive REPL. On start the cached session (if any) is restored and a
// background watcher keeps track of whether the server is reachable.
//
// Commands:
//   - login / logout / whoami
//   - ping
//   - predict <file.json>, classifying one record or an array of records
//   - simulate [n], printing synthetic feature records
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
