package model

import (
	"sync"
	"time"

	"github.com/viant/orchestra/internal/clock"
)

// Status represents a flow lifecycle status.
type Status string

// Flow statuses recognised by the lifecycle manager.
const (
	StatusInitialized        Status = "initialized"
	StatusActive             Status = "active"
	StatusProcessing         Status = "processing"
	StatusPaused             Status = "paused"
	StatusWaitingForApproval Status = "waiting_for_approval"
	StatusCompleted          Status = "completed"
	StatusFailed             Status = "failed"
	StatusCancelled          Status = "cancelled"
)

// IsTerminal reports whether no regular outgoing transition exists. Failed and
// cancelled flows remain restartable via an explicit restart transition;
// completed is strictly terminal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// IsRestartable reports whether the status permits an explicit restart.
func (s Status) IsRestartable() bool {
	return s == StatusFailed || s == StatusCancelled
}

// Well-known persistence data keys.
const (
	KeyAwaitingUserApproval = "awaiting_user_approval"
	KeyStatus               = "status"
	KeyResumeContext        = "resume_context"

	// PersistenceStatusReset marks a flow whose state was administratively
	// reset; such flows may always be resumed.
	PersistenceStatusReset = "reset"
)

// JournalEntry is an audit annotation appended to a flow on status updates.
type JournalEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Actor     string                 `json:"actor,omitempty"`
	Operation string                 `json:"operation"`
	Note      string                 `json:"note,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// Flow is one instance of a multi-phase business workflow being orchestrated.
// The lifecycle manager is the single writer for Status; PersistenceData is
// the only channel by which phases pass data forward and is merge-only.
type Flow struct {
	ID              string                 `json:"id"`
	Type            string                 `json:"type"`
	Name            string                 `json:"name"`
	Status          Status                 `json:"status"`
	CurrentPhase    string                 `json:"currentPhase,omitempty"`
	Configuration   map[string]interface{} `json:"configuration,omitempty"`
	PersistenceData map[string]interface{} `json:"persistenceData,omitempty"`
	Owner           string                 `json:"owner,omitempty"`
	Tenant          string                 `json:"tenant,omitempty"`
	Engagement      string                 `json:"engagement,omitempty"`
	Journal         []*JournalEntry        `json:"journal,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
	UpdatedAt       time.Time              `json:"updatedAt"`
	FinishedAt      *time.Time             `json:"finishedAt,omitempty"`
	mu              sync.RWMutex
}

// GetStatus returns the flow status.
func (f *Flow) GetStatus() Status {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.Status
}

// SetStatus updates the flow status and bookkeeping timestamps.
func (f *Flow) SetStatus(status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = status
	now := clock.Now()
	f.UpdatedAt = now
	if status == StatusCompleted || status == StatusFailed {
		f.FinishedAt = &now
	}
}

// SetCurrentPhase advances the flow's current phase marker.
func (f *Flow) SetCurrentPhase(phase string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CurrentPhase = phase
	f.UpdatedAt = clock.Now()
}

// GetCurrentPhase returns the current phase marker.
func (f *Flow) GetCurrentPhase() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.CurrentPhase
}

// PersistenceSnapshot returns a shallow copy of PersistenceData.
func (f *Flow) PersistenceSnapshot() map[string]interface{} {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]interface{}, len(f.PersistenceData))
	for k, v := range f.PersistenceData {
		out[k] = v
	}
	return out
}

// MergePersistenceData merges data into PersistenceData. Existing keys are
// overwritten by the incoming value; keys absent from data are never dropped.
func (f *Flow) MergePersistenceData(data map[string]interface{}) {
	if len(data) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PersistenceData == nil {
		f.PersistenceData = make(map[string]interface{}, len(data))
	}
	for k, v := range data {
		f.PersistenceData[k] = v
	}
	f.UpdatedAt = clock.Now()
}

// PersistenceValue returns a value from PersistenceData.
func (f *Flow) PersistenceValue(key string) (interface{}, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.PersistenceData[key]
	return v, ok
}

// AwaitingUserApproval reports whether the flow carries the approval flag.
func (f *Flow) AwaitingUserApproval() bool {
	v, ok := f.PersistenceValue(KeyAwaitingUserApproval)
	if !ok {
		return false
	}
	flag, _ := v.(bool)
	return flag
}

// ClearApprovalFlag removes the awaiting-approval marker.
func (f *Flow) ClearApprovalFlag() {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.PersistenceData, KeyAwaitingUserApproval)
	f.UpdatedAt = clock.Now()
}

// AppendJournal appends an audit annotation to the flow.
func (f *Flow) AppendJournal(entry *JournalEntry) {
	if entry == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = clock.Now()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Journal = append(f.Journal, entry)
}

// CopyFrom updates exported fields from src. It intentionally skips the
// mutex as copying it would corrupt internal state.
func (f *Flow) CopyFrom(src any) {
	other, ok := src.(*Flow)
	if !ok || other == nil || f == other {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Status = other.Status
	f.CurrentPhase = other.CurrentPhase
	f.PersistenceData = other.PersistenceData
	f.Journal = other.Journal
	f.UpdatedAt = other.UpdatedAt
	f.FinishedAt = other.FinishedAt
	// Configuration, Owner, Tenant and Engagement are immutable after creation.
}

// Clone creates a deep copy of the flow suitable for safe mutation outside the
// owning store. Configuration is shared because it is immutable after create.
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := &Flow{
		ID:            f.ID,
		Type:          f.Type,
		Name:          f.Name,
		Status:        f.Status,
		CurrentPhase:  f.CurrentPhase,
		Configuration: f.Configuration,
		Owner:         f.Owner,
		Tenant:        f.Tenant,
		Engagement:    f.Engagement,
		CreatedAt:     f.CreatedAt,
		UpdatedAt:     f.UpdatedAt,
		FinishedAt:    f.FinishedAt,
	}
	if f.PersistenceData != nil {
		out.PersistenceData = make(map[string]interface{}, len(f.PersistenceData))
		for k, v := range f.PersistenceData {
			out.PersistenceData[k] = v
		}
	}
	if len(f.Journal) > 0 {
		out.Journal = append([]*JournalEntry(nil), f.Journal...)
	}
	return out
}

// NewFlow creates a flow in the initialized state.
func NewFlow(id, flowType, name string, configuration, initial map[string]interface{}) *Flow {
	now := clock.Now()
	if initial == nil {
		initial = make(map[string]interface{})
	}
	return &Flow{
		ID:              id,
		Type:            flowType,
		Name:            name,
		Status:          StatusInitialized,
		Configuration:   configuration,
		PersistenceData: initial,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
