// Package cli is the FitIQ command line: account commands, profile and
// metric logging against the local cache, manual sync and the background
// sync daemon.
//
// Every command works offline. Mutations land in the local cache and the
// outbox; `fitiq sync run` or `fitiq daemon` deliver them.
package cli
