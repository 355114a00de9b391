package messages

import (
	"screen-qr-scan/src/screenshot"
)

// Message is the base interface for all inter-process messages
type Message interface {
	Type() string
}

// MessageType constants for type identification
const (
	TypeStartRequested    = "StartRequested"
	TypeStartSelection    = "StartSelection"
	TypeRequestNewCapture = "RequestNewCapture"
	TypeDieNow            = "DIENOW"
)

// StartRequested - the parameterless user "start" signal (tray, hotkey, delegated client)
type StartRequested struct {
	Source string // e.g. "tray", "hotkey", "client"
}

func (m StartRequested) Type() string { return TypeStartRequested }

// StartSelection - sent by the trigger to the page once both capture and overlay injection are done
type StartSelection struct {
	SessionID string
	Image     screenshot.RasterImage
}

func (m StartSelection) Type() string { return TypeStartSelection }

// RequestNewCapture - sent by the page when the user picks "Scan again"; carries no payload
// beyond the session it came from, which is only used for logging
type RequestNewCapture struct {
	SessionID string
}

func (m RequestNewCapture) Type() string { return TypeRequestNewCapture }

// DIENOW - emergency shutdown message sent to all processes
type DIENOW struct{}

func (m DIENOW) Type() string { return TypeDieNow }

// MessageEnvelope wraps messages with metadata for routing
type MessageEnvelope struct {
	From    string  // Source process name
	To      string  // Destination process name ("*" for broadcast)
	Message Message // The actual message
}

// ProcessNames - constants for process identification
const (
	ProcessMain    = "main"
	ProcessTrigger = "trigger"
	ProcessPage    = "page"
)
