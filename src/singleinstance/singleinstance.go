package singleinstance

// This file defines the API for single-instance ownership and run-once delegation.

import (
	"context"
	"errors"
)

// ErrCancelled is returned by TryRunOnce when the resident's selection was cancelled.
var ErrCancelled = errors.New("selection cancelled by the user")

// Mode is what the delegating process wants done with the search link.
type Mode int

const (
	// ModeOpen asks the resident to open the link in the browser.
	ModeOpen Mode = iota
	// ModePrint asks the resident to send the link back to the client.
	ModePrint
)

func (m Mode) String() string {
	if m == ModePrint {
		return "PRINT"
	}
	return "OPEN"
}

// Server owns the TCP endpoint and answers run-once requests.
type Server interface {
	// Start listens on the first port of the configured range and accepts client requests.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted connection as a Conn, or ctx error.
	Next(ctx context.Context) (Conn, error)
	// Close releases ownership and stops accepting clients.
	Close() error
}

// Conn represents one client connection and exposes request + response API.
type Conn interface {
	// Request returns the parsed client request.
	Request() Request
	// RespondSuccess sends the search link.
	RespondSuccess(link string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// RespondCancelled reports that the user dismissed the selection.
	RespondCancelled() error
	// Close closes the underlying connection.
	Close() error
}

// Request represents a single run-once client request.
type Request struct {
	Mode Mode
}

// Client attempts to delegate run-once invocation to a resident server.
type Client interface {
	// TryRunOnce scans the port range, performs the handshake and delegates to the resident.
	// If no resident is found, returns delegated=false, err=nil.
	TryRunOnce(ctx context.Context, mode Mode) (delegated bool, link string, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTCPServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTCPClient() }
