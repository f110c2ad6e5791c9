package services

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nasforge/account"
	"nasforge/truenas"
	"nasforge/zfs"
)

// DriftItem is one live value that no longer matches the plan.
type DriftItem struct {
	Kind  string `json:"kind"`
	Name  string `json:"name"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Have  string `json:"have"`
}

// Drift re-enumerates the plan against live state without mutating
// anything. The returned list is empty when the target converged.
func (a *Applier) Drift() ([]DriftItem, error) {
	if a.Mode == ModeLocal {
		return a.driftLocal()
	}
	return a.driftAPI()
}

func (a *Applier) driftAPI() ([]DriftItem, error) {
	var items []DriftItem

	for _, g := range a.Plan.Groups {
		live, err := a.Client.QueryGroup(g.Name)
		if errors.Is(err, truenas.ErrNotFound) {
			items = append(items, DriftItem{"group", g.Name, "presence", "exists", "missing"})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("drift: group %s: %w", g.Name, err)
		}
		if live.GID != g.GID {
			items = append(items, DriftItem{"group", g.Name, "gid", strconv.Itoa(g.GID), strconv.Itoa(live.GID)})
		}
	}

	for _, s := range a.Plan.Services {
		live, err := a.Client.QueryUser(s.Name)
		if errors.Is(err, truenas.ErrNotFound) {
			items = append(items, DriftItem{"user", s.Name, "presence", "exists", "missing"})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("drift: user %s: %w", s.Name, err)
		}
		if live.UID != s.UID {
			items = append(items, DriftItem{"user", s.Name, "uid", strconv.Itoa(s.UID), strconv.Itoa(live.UID)})
		}
		if live.Home != s.Home {
			items = append(items, DriftItem{"user", s.Name, "home", s.Home, live.Home})
		}
		if live.Shell != s.Shell {
			items = append(items, DriftItem{"user", s.Name, "shell", s.Shell, live.Shell})
		}
	}

	for _, d := range a.Plan.Datasets {
		live, err := a.Client.QueryDataset(d.Name)
		if errors.Is(err, truenas.ErrNotFound) {
			items = append(items, DriftItem{"dataset", d.Name, "presence", "exists", "missing"})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("drift: dataset %s: %w", d.Name, err)
		}
		for _, diff := range datasetDrift(d, live) {
			field, vals, _ := strings.Cut(diff, " ")
			have, want, _ := strings.Cut(vals, "->")
			items = append(items, DriftItem{"dataset", d.Name, field, want, have})
		}
	}

	for _, t := range a.Plan.Snapshots {
		sched, err := t.CronSchedule()
		if err != nil {
			return nil, fmt.Errorf("drift: snapshot %s: %w", t.Dataset, err)
		}
		tasks, err := a.Client.QuerySnapshotTasks(t.Dataset)
		if err != nil {
			return nil, fmt.Errorf("drift: snapshot %s: %w", t.Dataset, err)
		}
		found := false
		for _, task := range tasks {
			if task.NamingSchema == t.NamingSchema && task.Schedule == sched &&
				task.LifetimeValue == t.Retention.Value && task.LifetimeUnit == t.Retention.Unit &&
				task.Recursive == t.Recursive {
				found = true
				break
			}
		}
		if !found {
			items = append(items, DriftItem{"snapshot", t.Dataset, "task", sched.String(), "missing or different"})
		}
	}

	for _, t := range a.Plan.Tunables {
		value, err := a.resolveValue(t)
		if err != nil {
			return nil, fmt.Errorf("drift: tunable %s: %w", t.Var, err)
		}
		live, err := a.Client.QueryTunable(t.Var, t.Type)
		if errors.Is(err, truenas.ErrNotFound) {
			items = append(items, DriftItem{"tunable", t.Var, "presence", "exists", "missing"})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("drift: tunable %s: %w", t.Var, err)
		}
		if live.Value != value {
			items = append(items, DriftItem{"tunable", t.Var, "value", value, live.Value})
		}
		if live.Enabled != t.IsEnabled() {
			items = append(items, DriftItem{"tunable", t.Var, "enabled", strconv.FormatBool(t.IsEnabled()), strconv.FormatBool(live.Enabled)})
		}
	}

	return items, nil
}

// driftLocal covers what the shell fallback can see: accounts and
// datasets. Snapshot tasks and tunables only exist middleware side.
func (a *Applier) driftLocal() ([]DriftItem, error) {
	var items []DriftItem

	for _, g := range a.Plan.Groups {
		if !account.GroupExists(g.Name) {
			items = append(items, DriftItem{"group", g.Name, "presence", "exists", "missing"})
		}
	}
	for _, s := range a.Plan.Services {
		if !account.UserExists(s.Name) {
			items = append(items, DriftItem{"user", s.Name, "presence", "exists", "missing"})
			continue
		}
		home, err := account.LookupUserHome(s.Name)
		if err != nil {
			return nil, fmt.Errorf("drift: user %s: %w", s.Name, err)
		}
		if home != s.Home {
			items = append(items, DriftItem{"user", s.Name, "home", s.Home, home})
		}
	}
	for _, d := range a.Plan.Datasets {
		if !zfs.DatasetExists(d.Name) {
			items = append(items, DriftItem{"dataset", d.Name, "presence", "exists", "missing"})
			continue
		}
		if d.Recordsize != "" {
			have, err := zfs.GetProperty(d.Name, "recordsize")
			if err != nil {
				return nil, fmt.Errorf("drift: dataset %s: %w", d.Name, err)
			}
			if !strings.EqualFold(have, d.Recordsize) {
				items = append(items, DriftItem{"dataset", d.Name, "recordsize", d.Recordsize, have})
			}
		}
	}

	return items, nil
}
