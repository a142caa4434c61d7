// Transport implements the synchronous request/reply exchange with the
// simulation backend: newline-delimited JSON envelopes over a stream
// connection. The backend sends one batch, the scheduler sends exactly one
// reply, and only then may the next batch be read.

package sched

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"
)

// Transport frames batches and decision replies over a stream connection.
// It owns the scheduler's view of the logical clock: ReceiveBatch advances
// it, SendDecisions must echo it.
type Transport struct {
	conn    io.ReadWriteCloser
	reader  *bufio.Reader
	now     float64
	pending bool // a received batch awaits its reply
	started bool
}

// Dial connects to the backend at the given TCP endpoint.
func Dial(endpoint string) (*Transport, error) {
	conn, err := net.Dial("tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to backend at %s: %w", endpoint, err)
	}
	return NewTransport(conn), nil
}

// NewTransport wraps an established connection. Used by Dial and by tests
// that drive the scheduler over an in-memory pipe.
func NewTransport(conn io.ReadWriteCloser) *Transport {
	return &Transport{conn: conn, reader: bufio.NewReader(conn)}
}

// Now returns the logical time of the most recently received batch.
func (t *Transport) Now() float64 { return t.now }

// ReceiveBatch blocks until the backend sends the next event batch. It fails
// with *ProtocolError if called while a reply is still owed, on disconnect,
// on malformed JSON, or if the backend's clock moves backwards.
func (t *Transport) ReceiveBatch() (*Batch, error) {
	if t.pending {
		return nil, &ProtocolError{Reason: "receive before replying to previous batch"}
	}
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return nil, &ProtocolError{Reason: "backend disconnected", Err: err}
		}
		if err != io.EOF {
			return nil, &ProtocolError{Reason: "reading batch", Err: err}
		}
	}
	var batch Batch
	if err := json.Unmarshal(line, &batch); err != nil {
		return nil, &ProtocolError{Reason: "decoding batch envelope", Err: err}
	}
	if t.started && batch.Now < t.now {
		return nil, &ProtocolError{Reason: fmt.Sprintf("clock moved backwards: %f -> %f", t.now, batch.Now)}
	}
	t.now = batch.Now
	t.started = true
	t.pending = true
	logrus.Debugf("<< batch at t=%.3f with %d events", batch.Now, len(batch.Events))
	return &batch, nil
}

// SendDecisions replies to the current batch with the scheduler's decisions.
// It must be called exactly once per received batch, with the batch's own
// timestamp.
func (t *Transport) SendDecisions(now float64, decisions []Decision) error {
	if !t.pending {
		return &ProtocolError{Reason: "reply without a pending batch"}
	}
	if now != t.now {
		return &ProtocolError{Reason: fmt.Sprintf("reply timestamp %f does not match batch time %f", now, t.now)}
	}
	if decisions == nil {
		decisions = []Decision{}
	}
	reply := struct {
		Now    float64    `json:"now"`
		Events []Decision `json:"events"`
	}{Now: now, Events: decisions}
	payload, err := json.Marshal(reply)
	if err != nil {
		return &ProtocolError{Reason: "encoding reply envelope", Err: err}
	}
	payload = append(payload, '\n')
	if _, err := t.conn.Write(payload); err != nil {
		return &ProtocolError{Reason: "writing reply", Err: err}
	}
	t.pending = false
	logrus.Debugf(">> reply at t=%.3f with %d decisions", now, len(decisions))
	return nil
}

// Close tears down the connection. Safe to call after a fatal error.
func (t *Transport) Close() error {
	return t.conn.Close()
}
