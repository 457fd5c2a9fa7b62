// Package events defines the lifecycle events emitted while a workflow
// runs. The workflow engine emits run and stage events; the aggregator
// emits section and finalize events.
package events

import (
	"time"

	"github.com/pentestflow/pentestflow/pkg/report"
)

// EventType identifies an event.
type EventType string

const (
	// EventTypeRunStarted indicates the workflow has begun for a target.
	EventTypeRunStarted EventType = "run_started"
	// EventTypeStage indicates a stage has finished.
	EventTypeStage EventType = "stage"
	// EventTypeSection indicates a section was appended to the report.
	EventTypeSection EventType = "section"
	// EventTypeFinalized indicates the report artifacts were written.
	EventTypeFinalized EventType = "finalized"
)

// Event is implemented by every lifecycle event.
type Event interface {
	EventType() EventType
	Timestamp() time.Time
	RunID() string
}

// BaseEvent carries the fields shared by all events.
type BaseEvent struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`
	Run  string    `json:"run_id"`
}

func (b BaseEvent) EventType() EventType { return b.Type }
func (b BaseEvent) Timestamp() time.Time { return b.Time }
func (b BaseEvent) RunID() string        { return b.Run }

// RunStartedEvent is emitted once per run before the first stage.
type RunStartedEvent struct {
	BaseEvent
	Mode   string   `json:"mode"`
	Target string   `json:"target"`
	Stages []string `json:"stages"`
}

// StageEvent is emitted when a stage returns.
type StageEvent struct {
	BaseEvent
	Stage    string        `json:"stage"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration,format:nano"`
	Sections int           `json:"sections"`
}

// SectionEvent is emitted for every appended section.
type SectionEvent struct {
	BaseEvent
	Position int            `json:"position"`
	Section  report.Section `json:"section"`
}

// FinalizedEvent is emitted after every renderer has run.
type FinalizedEvent struct {
	BaseEvent
	Mode      string            `json:"mode,omitempty"`
	Snapshot  report.Snapshot   `json:"snapshot"`
	Artifacts []report.Artifact `json:"artifacts"`
	Warnings  []string          `json:"warnings,omitempty"`
	Duration  time.Duration     `json:"duration,format:nano"`
}

// NewBase returns a BaseEvent stamped with the current time.
func NewBase(t EventType, runID string) BaseEvent {
	return BaseEvent{Type: t, Time: time.Now(), Run: runID}
}
