// Package progress implements the per-Item progress tracker, the sender
// handed to Items through FnCtx, and the update taxonomy a CmdExecution's
// renderer consumes, grounded on the teacher's coordinator package: a typed
// message envelope (Kind + Payload) fanned out to one handler per kind,
// the same shape as coordinator.WSMessage (MessageType + Payload) and its
// GetXPayload accessors (SPEC_FULL.md §4.8).
package progress

import (
	"context"
	"sync"
	"time"

	"github.com/flowrt/flowrt/ids"
)

// Status is one Item's place in the execution lifecycle.
type Status int

const (
	StatusInitialized Status = iota
	StatusExecPending
	StatusUserPending
	StatusQueued
	StatusRunning
	StatusRunningStalled
	StatusInterrupted
	StatusCompleteSuccess
	StatusCompleteFail
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "initialized"
	case StatusExecPending:
		return "exec_pending"
	case StatusUserPending:
		return "user_pending"
	case StatusQueued:
		return "queued"
	case StatusRunning:
		return "running"
	case StatusRunningStalled:
		return "running_stalled"
	case StatusInterrupted:
		return "interrupted"
	case StatusCompleteSuccess:
		return "complete_success"
	case StatusCompleteFail:
		return "complete_fail"
	default:
		return "unknown"
	}
}

// LimitKind discriminates a ProgressLimit.
type LimitKind int

const (
	LimitUnknown LimitKind = iota
	LimitSteps
	LimitBytes
)

// Limit bounds how far an Item's progress counter will climb. N is
// meaningless when Kind is LimitUnknown.
type Limit struct {
	Kind LimitKind
	N    uint64
}

// MsgUpdateKind discriminates a MsgUpdate.
type MsgUpdateKind int

const (
	MsgNoChange MsgUpdateKind = iota
	MsgClear
	MsgSet
)

// MsgUpdate carries an optional change to a tracker's human-readable
// message alongside a progress increment or tick.
type MsgUpdate struct {
	Kind    MsgUpdateKind
	Message string
}

// Tracker is one Item's mutable progress state. The zero value is ready to
// use (Status is StatusInitialized).
type Tracker struct {
	ItemID ids.ItemId

	mu           sync.Mutex
	status       Status
	limit        Limit
	message      *string
	lastUpdate   time.Time
	unitsCurrent uint64
}

// NewTracker returns a Tracker in the Initialized state for id.
func NewTracker(id ids.ItemId) *Tracker {
	return &Tracker{ItemID: id, status: StatusInitialized, lastUpdate: time.Now()}
}

// Snapshot is an immutable copy of a Tracker's state for rendering.
type Snapshot struct {
	ItemID       ids.ItemId
	Status       Status
	Limit        Limit
	Message      *string
	LastUpdate   time.Time
	UnitsCurrent uint64
}

func (t *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		ItemID:       t.ItemID,
		Status:       t.status,
		Limit:        t.limit,
		Message:      t.message,
		LastUpdate:   t.lastUpdate,
		UnitsCurrent: t.unitsCurrent,
	}
}

// Snapshot returns a copy of the tracker's current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Reset clears the tracker back to its initial state.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusInitialized
	t.limit = Limit{}
	t.message = nil
	t.unitsCurrent = 0
	t.lastUpdate = time.Now()
}

// ResetToPending moves the tracker back to ExecPending, for a re-run after
// an interrupted execution resumes.
func (t *Tracker) ResetToPending() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = StatusExecPending
	t.lastUpdate = time.Now()
}

// Interrupt moves the tracker to Interrupted if it is still in a state
// that has not yet committed to running (Initialized, ExecPending, or
// UserPending); otherwise it is a no-op, since an in-flight or completed
// item cannot be un-started.
func (t *Tracker) Interrupt() {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.status {
	case StatusInitialized, StatusExecPending, StatusUserPending:
		t.status = StatusInterrupted
		t.lastUpdate = time.Now()
	}
}

// Tick advances the animation clock without changing the unit count.
func (t *Tracker) Tick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastUpdate = time.Now()
}

// Inc advances the unit count by n.
func (t *Tracker) Inc(n uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unitsCurrent += n
	t.lastUpdate = time.Now()
}

// SetLimit records the item's progress ceiling.
func (t *Tracker) SetLimit(l Limit) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.limit = l
}

// SetStatus forces the tracker into status, bypassing Interrupt's guard.
// No CmdBlock or CmdExecution in this repository calls it, and Render
// does not change Status, so a tracker never reaches a Complete* status
// unless its owner sets one here.
func (t *Tracker) SetStatus(status Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	t.lastUpdate = time.Now()
}

// SetMessage applies a MsgUpdate to the tracker's message field.
func (t *Tracker) SetMessage(m MsgUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch m.Kind {
	case MsgClear:
		t.message = nil
	case MsgSet:
		msg := m.Message
		t.message = &msg
	}
}

// UpdateKind discriminates a CmdProgressUpdate.
type UpdateKind int

const (
	UpdateCmdBlockStart UpdateKind = iota
	UpdateItemProgress
	UpdateItemLocationState
	UpdateInterrupt
	UpdateResetToPending
)

// CmdBlockStartPayload accompanies UpdateCmdBlockStart.
type CmdBlockStartPayload struct {
	InteractionType string
}

// ItemProgressPayload accompanies UpdateItemProgress.
type ItemProgressPayload struct {
	ItemID ids.ItemId
	N      uint64
	Msg    MsgUpdate
}

// ItemLocationStatePayload accompanies UpdateItemLocationState.
type ItemLocationStatePayload struct {
	ItemID ids.ItemId
	State  any
}

// CmdProgressUpdate is the single message type sent over the progress
// channel from Items (via Sender) to the renderer, tagged by Kind with an
// untyped Payload narrowed by the accessor matching Kind.
type CmdProgressUpdate struct {
	Kind    UpdateKind
	Payload any
}

// ItemProgressPayload narrows u.Payload when u.Kind is UpdateItemProgress.
func (u CmdProgressUpdate) ItemProgressPayload() (ItemProgressPayload, bool) {
	p, ok := u.Payload.(ItemProgressPayload)
	return p, ok
}

// CmdBlockStartPayload narrows u.Payload when u.Kind is UpdateCmdBlockStart.
func (u CmdProgressUpdate) CmdBlockStartPayload() (CmdBlockStartPayload, bool) {
	p, ok := u.Payload.(CmdBlockStartPayload)
	return p, ok
}

// ItemLocationStatePayload narrows u.Payload when u.Kind is
// UpdateItemLocationState.
func (u CmdProgressUpdate) ItemLocationStatePayload() (ItemLocationStatePayload, bool) {
	p, ok := u.Payload.(ItemLocationStatePayload)
	return p, ok
}

// Sender is bound to one ItemId; every send is infallible from the
// Item's perspective — the only way a send fails to deliver is the
// execution ending (ctx done), which is indistinguishable from success to
// the caller.
type Sender struct {
	itemID ids.ItemId
	ch     chan<- CmdProgressUpdate
	ctx    context.Context
}

// NewSender returns a Sender bound to id, sending on ch until ctx is done.
func NewSender(ctx context.Context, id ids.ItemId, ch chan<- CmdProgressUpdate) *Sender {
	return &Sender{itemID: id, ch: ch, ctx: ctx}
}

func (s *Sender) send(u CmdProgressUpdate) {
	select {
	case s.ch <- u:
	case <-s.ctx.Done():
	}
}

// Inc reports n additional units of progress, optionally updating the
// tracker's message.
func (s *Sender) Inc(n uint64, msg MsgUpdate) {
	s.send(CmdProgressUpdate{
		Kind:    UpdateItemProgress,
		Payload: ItemProgressPayload{ItemID: s.itemID, N: n, Msg: msg},
	})
}

// Tick reports animation progress with no unit change.
func (s *Sender) Tick(msg MsgUpdate) {
	s.send(CmdProgressUpdate{
		Kind:    UpdateItemProgress,
		Payload: ItemProgressPayload{ItemID: s.itemID, N: 0, Msg: msg},
	})
}

// ItemID returns the Item this sender reports progress for.
func (s *Sender) ItemID() ids.ItemId { return s.itemID }

// Output is the narrow interface a renderer drives; the output package's
// writers implement it. Defined here, at the point of use, rather than in
// the output package, so progress has no dependency on it.
type Output interface {
	CmdBlockStart(interactionType string) error
	ItemProgress(snap Snapshot) error
	ItemLocationState(itemID ids.ItemId, state any) error
}

// Render consumes updates from rx, applying them to trackers and
// forwarding rendered state to output, until rx is closed (normal
// completion, returns nil) or an Interrupt update arrives (returns
// ErrInterrupted so the caller can distinguish the two).
func Render(trackers map[ids.ItemId]*Tracker, rx <-chan CmdProgressUpdate, output Output) error {
	for u := range rx {
		switch u.Kind {
		case UpdateCmdBlockStart:
			p, _ := u.CmdBlockStartPayload()
			if err := output.CmdBlockStart(p.InteractionType); err != nil {
				return err
			}
		case UpdateItemProgress:
			p, _ := u.ItemProgressPayload()
			t, ok := trackers[p.ItemID]
			if !ok {
				continue
			}
			if p.N > 0 {
				t.Inc(p.N)
			} else {
				t.Tick()
			}
			t.SetMessage(p.Msg)
			if err := output.ItemProgress(t.Snapshot()); err != nil {
				return err
			}
		case UpdateItemLocationState:
			p, _ := u.ItemLocationStatePayload()
			if err := output.ItemLocationState(p.ItemID, p.State); err != nil {
				return err
			}
		case UpdateInterrupt:
			for _, t := range trackers {
				t.Interrupt()
			}
			return ErrInterrupted
		case UpdateResetToPending:
			for _, t := range trackers {
				t.ResetToPending()
			}
		}
	}
	return nil
}

// ErrInterrupted is returned by Render when it stops early because an
// Interrupt update arrived, as opposed to the channel simply closing.
var ErrInterrupted = &interruptedError{}

type interruptedError struct{}

func (*interruptedError) Error() string { return "progress rendering stopped: interrupt received" }
