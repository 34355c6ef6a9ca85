package output

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/flowrt/flowrt/ids"
	"github.com/flowrt/flowrt/progress"
)

// envelopeKind discriminates a wsEnvelope, mirroring the teacher's
// coordinator.MessageType taxonomy.
type envelopeKind string

const (
	envelopeCmdBlockStart     envelopeKind = "cmd_block_start"
	envelopeItemProgress      envelopeKind = "item_progress"
	envelopeItemLocationState envelopeKind = "item_location_state"
	envelopeProgressBegin     envelopeKind = "progress_begin"
	envelopeProgressEnd       envelopeKind = "progress_end"
	envelopePresent           envelopeKind = "present"
)

// wsEnvelope is the wire message sent to a connected viewer, grounded
// directly on coordinator.WSMessage{ID, Type, Timestamp, Payload}.
type wsEnvelope struct {
	ID        string       `json:"id"`
	Kind      envelopeKind `json:"kind"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   any          `json:"payload,omitempty"`
}

// WebSocketWriter streams progress to one connected gorilla/websocket
// client, grounded on coordinator.Coordinator's sendChan-plus-senderLoop
// pattern: writes never block the caller past the channel buffer, and a
// full buffer drops the update rather than stalling execution (spec.md
// §6: "none may fail fatally").
type WebSocketWriter struct {
	conn *websocket.Conn

	mu       sync.Mutex
	seq      int
	sendChan chan wsEnvelope
	done     chan struct{}
	onErr    func(error)
}

var _ Writer = (*WebSocketWriter)(nil)

// NewWebSocketWriter starts a sender goroutine writing envelopes to conn.
// onErr receives send/marshal failures (WriteErr also routes there); it
// may be nil.
func NewWebSocketWriter(conn *websocket.Conn, onErr func(error)) *WebSocketWriter {
	w := &WebSocketWriter{
		conn:     conn,
		sendChan: make(chan wsEnvelope, 256),
		done:     make(chan struct{}),
		onErr:    onErr,
	}
	go w.senderLoop()
	return w
}

// Close stops the sender goroutine and closes the underlying connection.
func (w *WebSocketWriter) Close() error {
	close(w.done)
	return w.conn.Close()
}

func (w *WebSocketWriter) senderLoop() {
	for {
		select {
		case <-w.done:
			return
		case env, ok := <-w.sendChan:
			if !ok {
				return
			}
			data, err := json.Marshal(env)
			if err != nil {
				w.reportErr(fmt.Errorf("output: marshaling %s: %w", env.Kind, err))
				continue
			}
			if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				w.reportErr(fmt.Errorf("output: writing %s: %w", env.Kind, err))
			}
		}
	}
}

func (w *WebSocketWriter) reportErr(err error) {
	if w.onErr != nil {
		w.onErr(err)
	}
}

func (w *WebSocketWriter) enqueue(kind envelopeKind, payload any) error {
	w.mu.Lock()
	w.seq++
	id := fmt.Sprintf("out-%d-%d", w.seq, time.Now().UnixNano()%1_000_000)
	w.mu.Unlock()

	env := wsEnvelope{ID: id, Kind: kind, Timestamp: time.Now(), Payload: payload}
	select {
	case w.sendChan <- env:
	default:
		w.reportErr(fmt.Errorf("output: send channel full, dropping %s", kind))
	}
	return nil
}

func (w *WebSocketWriter) CmdBlockStart(interactionType string) error {
	return w.enqueue(envelopeCmdBlockStart, map[string]string{"interaction_type": interactionType})
}

func (w *WebSocketWriter) ItemProgress(snap progress.Snapshot) error {
	payload := map[string]any{
		"item_id": snap.ItemID,
		"status":  snap.Status.String(),
		"units":   snap.UnitsCurrent,
	}
	if snap.Message != nil {
		payload["message"] = *snap.Message
	}
	return w.enqueue(envelopeItemProgress, payload)
}

func (w *WebSocketWriter) ItemLocationState(itemID ids.ItemId, state any) error {
	return w.enqueue(envelopeItemLocationState, map[string]any{"item_id": itemID, "state": state})
}

func (w *WebSocketWriter) ProgressBegin(flow ids.FlowId, blockCount int) error {
	return w.enqueue(envelopeProgressBegin, map[string]any{"flow_id": flow, "block_count": blockCount})
}

func (w *WebSocketWriter) ProgressEnd(flow ids.FlowId) error {
	return w.enqueue(envelopeProgressEnd, map[string]any{"flow_id": flow})
}

func (w *WebSocketWriter) Present(summary Summary) error {
	errs := make(map[string]string, len(summary.ItemErrors))
	for id, err := range summary.ItemErrors {
		errs[string(id)] = err.Error()
	}
	return w.enqueue(envelopePresent, map[string]any{
		"flow_id":          summary.Flow,
		"complete":         summary.Complete,
		"item_errors":      errs,
		"blocks_processed": summary.BlocksProcessed,
		"blocks_remaining": summary.BlocksRemaining,
	})
}

func (w *WebSocketWriter) WriteErr(err error) {
	w.reportErr(err)
}
