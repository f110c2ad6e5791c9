package services

import (
	"fmt"

	"nasforge/plan"
)

// ApplySnapshots is the snapshot half of phase 4. Local mode has no
// periodic snapshot scheduler to talk to, so the rows are skipped there.
func (a *Applier) ApplySnapshots() error {
	for _, t := range a.Plan.Snapshots {
		if err := a.applySnapshotTask(t); err != nil {
			return err
		}
	}
	return nil
}

func (a *Applier) applySnapshotTask(t plan.SnapshotTask) error {
	if a.Mode == ModeLocal {
		a.record(4, "snapshot", t.Dataset, OutcomeSkipped, "snapshot tasks need the middleware API")
		return nil
	}

	sched, err := t.CronSchedule()
	if err != nil {
		return a.fail(4, "snapshot", t.Dataset, err)
	}

	existing, err := a.Client.QuerySnapshotTasks(t.Dataset)
	if err != nil {
		return a.fail(4, "snapshot", t.Dataset, err)
	}

	for _, task := range existing {
		if task.NamingSchema != t.NamingSchema {
			continue
		}
		same := task.Recursive == t.Recursive &&
			task.LifetimeValue == t.Retention.Value &&
			task.LifetimeUnit == t.Retention.Unit &&
			task.Schedule == sched
		if same {
			a.record(4, "snapshot", t.Dataset, OutcomeUnchanged, sched.String())
			return nil
		}
		if a.DryRun {
			a.record(4, "snapshot", t.Dataset, OutcomeSkipped, "dry-run: would update task")
			return nil
		}
		if err := a.Client.UpdateSnapshotTask(task.ID, t.Dataset, t.Recursive, t.Retention, t.NamingSchema, sched); err != nil {
			return a.fail(4, "snapshot", t.Dataset, err)
		}
		a.record(4, "snapshot", t.Dataset, OutcomeUpdated, sched.String())
		return nil
	}

	if a.DryRun {
		a.record(4, "snapshot", t.Dataset, OutcomeSkipped, "dry-run: would create task")
		return nil
	}
	id, err := a.Client.CreateSnapshotTask(t.Dataset, t.Recursive, t.Retention, t.NamingSchema, sched)
	if err != nil {
		return a.fail(4, "snapshot", t.Dataset, err)
	}
	a.record(4, "snapshot", t.Dataset, OutcomeCreated, fmt.Sprintf("task %d, %s keep %d %s", id, sched.String(), t.Retention.Value, t.Retention.Unit))
	return nil
}
