// Package client bootstraps the local journal database: it opens the SQLite
// file, applies the embedded goose migrations and wires the repositories
// that services persist through.
package client
