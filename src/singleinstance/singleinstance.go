package singleinstance

// This file defines the API for single-instance ownership and scan delegation.

import (
	"context"
)

// Server owns the TCP endpoint and answers delegated requests.
type Server interface {
	// Start begins listening on the first port of the configured range and accepting client requests.
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
	// RespondSuccess acknowledges the request, optionally with text.
	RespondSuccess(text string) error
	// RespondError sends an error with human-readable message.
	RespondError(msg string) error
	// Close closes the underlying connection.
	Close() error
}

// Command is the first line a client sends after connecting.
type Command string

const (
	// CommandScan asks the resident to start a selection session.
	CommandScan Command = "SCAN"
)

// Request represents a single delegated client request.
type Request struct {
	Command Command
}

// Client attempts to delegate a scan to a resident server.
type Client interface {
	// TryScan scans the configured TCP range, performs the handshake, and asks the resident to scan.
	// If no resident is found, returns delegated=false, err=nil.
	TryScan(ctx context.Context) (delegated bool, err error)
}

// NewServer returns TCP implementation.
func NewServer() Server { return newTcpServer() }

// NewClient returns TCP implementation.
func NewClient() Client { return newTcpClient() }
