// Package cli provides the mediagate command-line client.
//
// It wires configuration, the journal database, the media proxy client and
// an export sink, then either runs a single command given on the command
// line or an interactive REPL.
//
// Commands:
//   - key [forget]               show (and pin) the media proxy public key
//   - scan <mxc|event.json>      scan an attachment
//   - get <mxc|event.json> [thumb] [-]
//     scan, then download and export it ("-" writes to stdout)
//   - url <mxc> [thumb]          scan, then print the proxy download URL
//   - batch <events.json>        scan every attachment of a JSON array
//   - history [n]                show the last journal records
//   - stats                      count journal records by final state
//   - version, help, exit | quit
package cli
