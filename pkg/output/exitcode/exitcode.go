// Package exitcode maps a run's outcome to a process exit code for
// CI/CD pipelines.
//
// Exit codes:
//   - 0: Success
//   - 1: Policy failed
//   - 2: Artifacts incomplete (only with FailOnWarnings)
//   - 3: Invalid configuration
//   - 5: Run interrupted
package exitcode

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pentestflow/pentestflow/pkg/output/dispatcher"
	"github.com/pentestflow/pentestflow/pkg/output/events"
	"github.com/pentestflow/pentestflow/pkg/output/policy"
)

// Code is a process exit code.
type Code int

const (
	Success       Code = 0
	PolicyFailed  Code = 1
	Artifacts     Code = 2
	Configuration Code = 3
	Interrupted   Code = 5
)

var codeStrings = map[Code]string{
	Success:       "success",
	PolicyFailed:  "policy_failed",
	Artifacts:     "artifacts_incomplete",
	Configuration: "invalid_configuration",
	Interrupted:   "run_interrupted",
}

var codeDescriptions = map[Code]string{
	Success:       "Run completed",
	PolicyFailed:  "Report failed the policy gate",
	Artifacts:     "One or more report artifacts could not be written",
	Configuration: "Invalid configuration provided",
	Interrupted:   "Run was interrupted by user or signal",
}

// Config tunes the manager.
type Config struct {
	// FailOnWarnings turns finalize warnings into exit code 2.
	FailOnWarnings bool
}

var _ dispatcher.Hook = (*Manager)(nil)

// Manager accumulates outcomes. It is also a dispatcher hook that counts
// finalize warnings.
type Manager struct {
	cfg Config

	mu             sync.Mutex
	warnings       int
	policyFailures []string
	configError    bool
	interrupted    bool
}

// New creates a manager.
func New(cfg Config) *Manager {
	return &Manager{cfg: cfg}
}

// OnEvent counts warnings from FinalizedEvent.
func (m *Manager) OnEvent(_ context.Context, event events.Event) error {
	if fin, ok := event.(*events.FinalizedEvent); ok {
		m.mu.Lock()
		m.warnings += len(fin.Warnings)
		m.mu.Unlock()
	}
	return nil
}

// EventTypes returns the finalized event type.
func (m *Manager) EventTypes() []events.EventType {
	return []events.EventType{events.EventTypeFinalized}
}

// RecordPolicy records a policy evaluation.
func (m *Manager) RecordPolicy(res policy.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.policyFailures = append(m.policyFailures, res.Failures...)
}

// SetConfigError marks a configuration failure.
func (m *Manager) SetConfigError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configError = true
}

// SetInterrupted marks the run as interrupted.
func (m *Manager) SetInterrupted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interrupted = true
}

// ExitCode returns the code and a reason. Priority: interrupted,
// configuration, policy, artifacts, success.
func (m *Manager) ExitCode() (Code, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.interrupted:
		return Interrupted, codeDescriptions[Interrupted]
	case m.configError:
		return Configuration, codeDescriptions[Configuration]
	case len(m.policyFailures) > 0:
		return PolicyFailed, fmt.Sprintf("%s: %s", codeDescriptions[PolicyFailed], strings.Join(m.policyFailures, "; "))
	case m.cfg.FailOnWarnings && m.warnings > 0:
		return Artifacts, fmt.Sprintf("%s (warnings: %d)", codeDescriptions[Artifacts], m.warnings)
	}
	return Success, codeDescriptions[Success]
}

// CodeString returns the short name of code.
func CodeString(code Code) string {
	if s, ok := codeStrings[code]; ok {
		return s
	}
	return fmt.Sprintf("unknown_code_%d", code)
}

// CodeDescription returns a sentence describing code.
func CodeDescription(code Code) string {
	if s, ok := codeDescriptions[code]; ok {
		return s
	}
	return fmt.Sprintf("Unknown exit code %d", code)
}
