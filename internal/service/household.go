package service

import (
	"sync"

	"github.com/mmynk/foyer/internal/notify"
	"github.com/mmynk/foyer/internal/state"
)

// Result reports whether a mutation took effect and the messages it raised for the user.
type Result struct {
	OK            bool                  `json:"ok"`
	Notifications []notify.Notification `json:"notifications"`
}

// Outcome reports whether the call took effect and how many notifications it raised.
func (r Result) Outcome() (bool, int) { return r.OK, len(r.Notifications) }

// Household runs state operations on behalf of the RPC handlers. The recorder must be
// one of the notifiers of st; each call gets exactly the notifications it raised.
type Household struct {
	mu       sync.Mutex
	state    *state.State
	recorder *notify.Recorder
}

// NewHousehold wraps st and the recorder it notifies.
func NewHousehold(st *state.State, recorder *notify.Recorder) *Household {
	return &Household{state: st, recorder: recorder}
}

// State returns the wrapped state for read-only calls.
func (h *Household) State() *state.State {
	return h.state
}

func (h *Household) do(fn func(st *state.State) bool) Result {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.recorder.Drain()
	ok := fn(h.state)
	notes := h.recorder.Drain()
	if notes == nil {
		notes = []notify.Notification{}
	}
	return Result{OK: ok, Notifications: notes}
}
