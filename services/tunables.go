package services

import (
	"errors"
	"fmt"

	"nasforge/plan"
	"nasforge/sysinfo"
	"nasforge/truenas"
)

// ApplyTunables is the tunable half of phase 4. Value mismatches are
// converged by delete and recreate: the middleware applies some module
// parameters only on insert, and the troubleshooting fallback of
// disable-instead-of-delete lives in the client.
func (a *Applier) ApplyTunables() error {
	for _, t := range a.Plan.Tunables {
		if err := a.applyTunable(t); err != nil {
			return err
		}
	}
	return nil
}

// resolveValue turns "auto" into a host derived value.
func (a *Applier) resolveValue(t plan.Tunable) (string, error) {
	if t.Value != "auto" {
		return t.Value, nil
	}
	if a.Facts == nil {
		facts, err := sysinfo.Collect()
		if err != nil {
			return "", fmt.Errorf("resolve auto value for %s: %w", t.Var, err)
		}
		a.Facts = facts
	}
	v, ok := sysinfo.ResolveAuto(t.Var, a.Facts)
	if !ok {
		return "", fmt.Errorf("no auto rule for tunable %s", t.Var)
	}
	return v, nil
}

func (a *Applier) applyTunable(t plan.Tunable) error {
	if a.Mode == ModeLocal {
		a.record(4, "tunable", t.Var, OutcomeSkipped, "tunables need the middleware API")
		return nil
	}

	value, err := a.resolveValue(t)
	if err != nil {
		return a.fail(4, "tunable", t.Var, err)
	}

	existing, err := a.Client.QueryTunable(t.Var, t.Type)
	if errors.Is(err, truenas.ErrNotFound) {
		if a.DryRun {
			a.record(4, "tunable", t.Var, OutcomeSkipped, "dry-run: would create")
			return nil
		}
		if _, err := a.Client.CreateTunable(t.Var, value, t.Type, t.Comment, t.IsEnabled()); err != nil {
			return a.fail(4, "tunable", t.Var, err)
		}
		a.record(4, "tunable", t.Var, OutcomeCreated, value)
		return nil
	}
	if err != nil {
		return a.fail(4, "tunable", t.Var, err)
	}

	if existing.Value == value && existing.Enabled == t.IsEnabled() {
		a.record(4, "tunable", t.Var, OutcomeUnchanged, value)
		return nil
	}

	if a.DryRun {
		a.record(4, "tunable", t.Var, OutcomeSkipped, fmt.Sprintf("dry-run: would replace %s with %s", existing.Value, value))
		return nil
	}
	if err := a.Client.DeleteTunable(existing.ID); err != nil {
		return a.fail(4, "tunable", t.Var, err)
	}
	if _, err := a.Client.CreateTunable(t.Var, value, t.Type, t.Comment, t.IsEnabled()); err != nil {
		return a.fail(4, "tunable", t.Var, err)
	}
	a.record(4, "tunable", t.Var, OutcomeUpdated, fmt.Sprintf("%s -> %s", existing.Value, value))
	return nil
}
