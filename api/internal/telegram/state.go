package telegram

import (
	"sync"

	"docgpt/api/internal/diagnose"
)

type chatState struct {
	mu sync.Mutex
	w  *diagnose.Workflow
}

func (r *Router) chat(chatID int64) *chatState {
	v, _ := r.chats.LoadOrStore(chatID, &chatState{w: diagnose.New()})
	return v.(*chatState)
}

// update runs fn on the chat workflow under the chat lock.
func (r *Router) update(chatID int64, fn func(w *diagnose.Workflow) error) error {
	cs := r.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return fn(cs.w)
}

// state returns a copy of the chat workflow for read-only use.
func (r *Router) state(chatID int64) *diagnose.Workflow {
	cs := r.chat(chatID)
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cp := *cs.w
	return &cp
}
