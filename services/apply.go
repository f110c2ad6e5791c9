package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"nasforge/db"
	"nasforge/logger"
	"nasforge/plan"
	"nasforge/sysinfo"
	"nasforge/truenas"
)

const (
	ModeAPI   = "api"
	ModeLocal = "local"
)

const (
	OutcomeCreated   = "created"
	OutcomeUnchanged = "unchanged"
	OutcomeUpdated   = "updated"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

type RowResult struct {
	Phase   int    `json:"phase"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// Applier runs the four provisioning phases over one plan. Phases are
// strictly ordered to break the circular dependency between user home
// paths and dataset ownership: users exist before chown can run, datasets
// exist before homes point at them.
type Applier struct {
	Plan   *plan.Plan
	Client *truenas.Client
	Mode   string
	DryRun bool
	Facts  *sysinfo.HostFacts
	Record bool

	runID    string
	results  []RowResult
	groupIDs map[string]int
}

// ApplyAll runs every phase in order and stops at the first hard error,
// like a provisioning script under set -e.
func (a *Applier) ApplyAll() ([]RowResult, error) {
	a.results = nil
	a.runID = uuid.New().String()
	started := time.Now().UTC()
	if a.Record {
		if err := db.AddRun(a.runID, a.Mode, started); err != nil {
			return nil, fmt.Errorf("record run: %w", err)
		}
	}

	logger.Info("apply started", "run", a.runID, "mode", a.Mode)
	err := a.runPhases()
	if a.Record {
		if ferr := db.FinishRun(a.runID, err == nil, time.Now().UTC()); ferr != nil {
			logger.Error("FinishRun failed: " + ferr.Error())
		}
	}
	if err != nil {
		logger.Error("apply failed", "run", a.runID, "error", err.Error())
		return a.results, err
	}
	logger.Info("apply finished", "run", a.runID, "rows", len(a.results))
	return a.results, nil
}

func (a *Applier) runPhases() error {
	if err := a.ApplyAccounts(); err != nil {
		return err
	}
	if err := a.ApplyDatasets(); err != nil {
		return err
	}
	if err := a.ApplyHomes(); err != nil {
		return err
	}
	if err := a.ApplySnapshots(); err != nil {
		return err
	}
	return a.ApplyTunables()
}

// ApplyPhase runs one numbered phase on its own.
func (a *Applier) ApplyPhase(phase int) error {
	switch phase {
	case 1:
		return a.ApplyAccounts()
	case 2:
		return a.ApplyDatasets()
	case 3:
		return a.ApplyHomes()
	case 4:
		if err := a.ApplySnapshots(); err != nil {
			return err
		}
		return a.ApplyTunables()
	default:
		return fmt.Errorf("unknown phase %d", phase)
	}
}

func (a *Applier) record(phase int, kind, name, outcome, detail string) {
	a.results = append(a.results, RowResult{Phase: phase, Kind: kind, Name: name, Outcome: outcome, Detail: detail})
	logger.Info("row "+outcome, "phase", phase, "kind", kind, "name", name)
	if a.Record && a.runID != "" {
		if err := db.AddRunRow(a.runID, phase, kind, name, outcome, detail); err != nil {
			logger.Error("AddRunRow failed: " + err.Error())
		}
	}
	if a.Record && (outcome == OutcomeCreated || outcome == OutcomeUpdated || outcome == OutcomeUnchanged) {
		if err := db.UpsertApplied(kind, name, detail); err != nil {
			logger.Error("UpsertApplied failed: " + err.Error())
		}
	}
}

func (a *Applier) fail(phase int, kind, name string, err error) error {
	a.record(phase, kind, name, OutcomeFailed, err.Error())
	return fmt.Errorf("phase %d: %s %s: %w", phase, kind, name, err)
}

// Results returns the rows of the last run.
func (a *Applier) Results() []RowResult {
	return a.results
}
