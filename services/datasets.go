package services

import (
	"errors"
	"fmt"
	"strings"

	"nasforge/plan"
	"nasforge/truenas"
	"nasforge/zfs"
)

// ApplyDatasets is phase 2: create every dataset and converge its
// properties. Runs after accounts so phase 3 can chown mountpoints.
func (a *Applier) ApplyDatasets() error {
	for _, d := range a.Plan.Datasets {
		if err := a.applyDataset(d); err != nil {
			return err
		}
	}
	return nil
}

func datasetProps(d plan.Dataset) truenas.DatasetProps {
	return truenas.DatasetProps{
		Recordsize:  d.Recordsize,
		Compression: d.Compression,
		Atime:       d.Atime,
		Exec:        d.Exec,
		Quota:       d.Quota,
		Comments:    d.Comments,
	}
}

// datasetDrift lists the properties whose live values differ from the
// plan. Comparison is case insensitive because the middleware reports
// LZ4/ON/OFF in upper case.
func datasetDrift(d plan.Dataset, live *truenas.Dataset) []string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	var diffs []string
	if d.Recordsize != "" && !strings.EqualFold(live.Recordsize.Value, d.Recordsize) {
		diffs = append(diffs, fmt.Sprintf("recordsize %s->%s", live.Recordsize.Value, d.Recordsize))
	}
	if d.Compression != "" && !strings.EqualFold(live.Compression.Value, d.Compression) {
		diffs = append(diffs, fmt.Sprintf("compression %s->%s", live.Compression.Value, d.Compression))
	}
	if !strings.EqualFold(live.Atime.Value, onOff(d.Atime)) {
		diffs = append(diffs, fmt.Sprintf("atime %s->%s", live.Atime.Value, onOff(d.Atime)))
	}
	if !strings.EqualFold(live.Exec.Value, onOff(d.Exec)) {
		diffs = append(diffs, fmt.Sprintf("exec %s->%s", live.Exec.Value, onOff(d.Exec)))
	}
	return diffs
}

func (a *Applier) applyDataset(d plan.Dataset) error {
	if a.Mode == ModeLocal {
		return a.applyDatasetLocal(d)
	}

	live, err := a.Client.QueryDataset(d.Name)
	if errors.Is(err, truenas.ErrNotFound) {
		if a.DryRun {
			a.record(2, "dataset", d.Name, OutcomeSkipped, "dry-run: would create")
			return nil
		}
		if err := a.Client.CreateDataset(d.Name, datasetProps(d)); err != nil && !errors.Is(err, truenas.ErrAlreadyExists) {
			return a.fail(2, "dataset", d.Name, err)
		}
		a.record(2, "dataset", d.Name, OutcomeCreated, d.Recordsize)
		return nil
	}
	if err != nil {
		return a.fail(2, "dataset", d.Name, err)
	}

	diffs := datasetDrift(d, live)
	if len(diffs) == 0 {
		a.record(2, "dataset", d.Name, OutcomeUnchanged, "")
		return nil
	}
	if a.DryRun {
		a.record(2, "dataset", d.Name, OutcomeSkipped, "dry-run: would set "+strings.Join(diffs, ", "))
		return nil
	}
	if err := a.Client.UpdateDataset(d.Name, datasetProps(d)); err != nil {
		return a.fail(2, "dataset", d.Name, err)
	}
	a.record(2, "dataset", d.Name, OutcomeUpdated, strings.Join(diffs, ", "))
	return nil
}

func (a *Applier) applyDatasetLocal(d plan.Dataset) error {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	props := map[string]string{
		"atime": onOff(d.Atime),
		"exec":  onOff(d.Exec),
	}
	if d.Recordsize != "" {
		props["recordsize"] = d.Recordsize
	}
	if d.Compression != "" {
		props["compression"] = d.Compression
	}
	if d.Quota != "" {
		props["refquota"] = d.Quota
	}

	if zfs.DatasetExists(d.Name) {
		var diffs []string
		for key, want := range props {
			have, err := zfs.GetProperty(d.Name, key)
			if err != nil {
				return a.fail(2, "dataset", d.Name, err)
			}
			if !strings.EqualFold(have, want) {
				diffs = append(diffs, key)
				if a.DryRun {
					continue
				}
				if err := zfs.SetProperty(d.Name, key, want); err != nil {
					return a.fail(2, "dataset", d.Name, err)
				}
			}
		}
		if len(diffs) == 0 {
			a.record(2, "dataset", d.Name, OutcomeUnchanged, "")
		} else if a.DryRun {
			a.record(2, "dataset", d.Name, OutcomeSkipped, "dry-run: would set "+strings.Join(diffs, ", "))
		} else {
			a.record(2, "dataset", d.Name, OutcomeUpdated, strings.Join(diffs, ", "))
		}
		return nil
	}

	if a.DryRun {
		a.record(2, "dataset", d.Name, OutcomeSkipped, "dry-run: would create")
		return nil
	}
	if err := zfs.CreateDataset(d.Name, props); err != nil {
		return a.fail(2, "dataset", d.Name, err)
	}
	a.record(2, "dataset", d.Name, OutcomeCreated, d.Recordsize)
	return nil
}
