// Package cli provides the interactive portal command-line client.
//
// It wires configuration, the local stores, the API client and the sync
// engine into a REPL. Typical flow: restore the previous sign-in or prompt
// for a token, load the profile, start a background connectivity watcher
// and execute user commands.
//
// Commands:
//   - login / logout
//   - show: the profile as currently displayed, with sync status
//   - edit field=value ...: submit profile changes
//   - refresh: refetch the profile from the API
//   - status: connectivity and sync phase
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
