package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"screen-qr-scan/src/messages"
)

const (
	defaultSendTimeout      = 5 * time.Second
	defaultBroadcastTimeout = 1 * time.Second
)

// ChannelInfo holds information about a process channel
type ChannelInfo struct {
	Channel   chan messages.MessageEnvelope
	ProcessID string
	Active    bool
}

// Router is the only channel between the trigger and page processes.
// Each registered process owns one buffered inbox.
type Router struct {
	channels    map[string]*ChannelInfo
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	sendTimeout time.Duration
	logMessages bool
}

// NewRouter creates a new message router
func NewRouter() *Router {
	ctx, cancel := context.WithCancel(context.Background())
	return &Router{
		channels:    make(map[string]*ChannelInfo),
		ctx:         ctx,
		cancel:      cancel,
		sendTimeout: defaultSendTimeout,
		logMessages: true,
	}
}

// RegisterProcess registers a process with the router
func (r *Router) RegisterProcess(processID string, bufferSize int) (<-chan messages.MessageEnvelope, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.channels[processID]; exists {
		return nil, fmt.Errorf("process %s already registered", processID)
	}

	ch := make(chan messages.MessageEnvelope, bufferSize)
	r.channels[processID] = &ChannelInfo{
		Channel:   ch,
		ProcessID: processID,
		Active:    true,
	}

	log.Debugf("Router: Registered process %s with buffer size %d", processID, bufferSize)
	return ch, nil
}

// UnregisterProcess removes a process from the router and closes its inbox
func (r *Router) UnregisterProcess(processID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if info, exists := r.channels[processID]; exists {
		info.Active = false
		close(info.Channel)
		delete(r.channels, processID)
		log.Debugf("Router: Unregistered process %s", processID)
	}
}

// Send delivers a message to one process, waiting at most the send timeout for inbox space
func (r *Router) Send(envelope messages.MessageEnvelope) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.logMessages {
		log.Debugf("Router: %s -> %s: %s", envelope.From, envelope.To, envelope.Message.Type())
	}

	if envelope.To == "*" {
		return r.broadcastMessage(envelope)
	}

	info, exists := r.channels[envelope.To]
	if !exists {
		return fmt.Errorf("process %s not found", envelope.To)
	}
	if !info.Active {
		return fmt.Errorf("process %s is not active", envelope.To)
	}

	timer := time.NewTimer(r.sendTimeout)
	defer timer.Stop()
	select {
	case info.Channel <- envelope:
		return nil
	case <-timer.C:
		return fmt.Errorf("timeout sending message to process %s", envelope.To)
	case <-r.ctx.Done():
		return fmt.Errorf("router is shutting down")
	}
}

// SendTo is a convenience wrapper around Send
func (r *Router) SendTo(from, to string, message messages.Message) error {
	return r.Send(messages.MessageEnvelope{From: from, To: to, Message: message})
}

// Broadcast sends a message to all registered processes except the sender
func (r *Router) Broadcast(envelope messages.MessageEnvelope) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.logMessages {
		log.Debugf("Router: Broadcasting %s from %s", envelope.Message.Type(), envelope.From)
	}

	_ = r.broadcastMessage(envelope)
}

func (r *Router) broadcastMessage(envelope messages.MessageEnvelope) error {
	var errs []string

	for processID, info := range r.channels {
		if !info.Active || processID == envelope.From {
			continue
		}

		envCopy := messages.MessageEnvelope{
			From:    envelope.From,
			To:      processID,
			Message: envelope.Message,
		}

		select {
		case info.Channel <- envCopy:
		case <-time.After(defaultBroadcastTimeout):
			errs = append(errs, fmt.Sprintf("timeout sending to %s", processID))
		case <-r.ctx.Done():
			return fmt.Errorf("router is shutting down")
		}
	}

	if len(errs) > 0 {
		log.Warnf("Router: Broadcast errors: %v", errs)
	}
	return nil
}

// GetActiveProcesses returns a list of active process IDs
func (r *Router) GetActiveProcesses() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []string
	for processID, info := range r.channels {
		if info.Active {
			active = append(active, processID)
		}
	}
	return active
}

// SetMessageLogging enables or disables message logging
func (r *Router) SetMessageLogging(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logMessages = enabled
}

// SetSendTimeout changes how long Send waits for a full inbox
func (r *Router) SetSendTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.sendTimeout = d
	}
}

// Shutdown closes every inbox; later sends fail
func (r *Router) Shutdown() {
	log.Debugf("Router: Shutting down...")

	r.cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	for processID, info := range r.channels {
		if info.Active {
			info.Active = false
			close(info.Channel)
			log.Debugf("Router: Closed channel for process %s", processID)
		}
	}
	r.channels = make(map[string]*ChannelInfo)
}

// IsHealthy returns true until Shutdown is called
func (r *Router) IsHealthy() bool {
	select {
	case <-r.ctx.Done():
		return false
	default:
		return true
	}
}

// WaitForMessage waits for a specific message type from a channel with timeout
func WaitForMessage(ch <-chan messages.MessageEnvelope, messageType string, timeout time.Duration) (messages.MessageEnvelope, error) {
	deadline := time.After(timeout)

	for {
		select {
		case envelope, ok := <-ch:
			if !ok {
				return messages.MessageEnvelope{}, fmt.Errorf("channel closed waiting for message type %s", messageType)
			}
			if envelope.Message.Type() == messageType {
				return envelope, nil
			}
		case <-deadline:
			return messages.MessageEnvelope{}, fmt.Errorf("timeout waiting for message type %s", messageType)
		}
	}
}

// DrainChannel drains all queued messages from a channel
func DrainChannel(ch <-chan messages.MessageEnvelope) int {
	count := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return count
			}
			count++
		default:
			return count
		}
	}
}
