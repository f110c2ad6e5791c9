package db

//this file holds all apply run related database functions

import (
	"time"
)

type Run struct {
	ID         string
	Mode       string
	StartedAt  time.Time
	FinishedAt *time.Time
	Ok         bool
}

type RunRow struct {
	Id      int
	RunID   string
	Phase   int
	Kind    string
	Name    string
	Outcome string
	Detail  string
}

func CreateRunTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		started_at TIMESTAMP NOT NULL,
		finished_at TIMESTAMP,
		ok INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS run_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		phase INTEGER NOT NULL,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		outcome TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := DB.Exec(query)
	return err
}

func AddRun(id, mode string, startedAt time.Time) error {
	query := `
	INSERT INTO runs (id, mode, started_at)
	VALUES (?, ?, ?);
	`
	_, err := DB.Exec(query, id, mode, startedAt)
	return err
}

func FinishRun(id string, ok bool, finishedAt time.Time) error {
	query := `
	UPDATE runs SET finished_at = ?, ok = ?
	WHERE id = ?;
	`
	_, err := DB.Exec(query, finishedAt, ok, id)
	return err
}

func AddRunRow(runID string, phase int, kind, name, outcome, detail string) error {
	query := `
	INSERT INTO run_rows (run_id, phase, kind, name, outcome, detail)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err := DB.Exec(query, runID, phase, kind, name, outcome, detail)
	return err
}

func GetRuns(limit int) ([]Run, error) {
	const query = `
	SELECT id, mode, started_at, finished_at, ok
	FROM runs
	ORDER BY started_at DESC
	LIMIT ?;
	`
	rows, err := DB.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Mode, &run.StartedAt, &run.FinishedAt, &run.Ok); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func GetRunRows(runID string) ([]RunRow, error) {
	const query = `
	SELECT id, run_id, phase, kind, name, outcome, detail
	FROM run_rows
	WHERE run_id = ?
	ORDER BY id;
	`
	rows, err := DB.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunRow
	for rows.Next() {
		var r RunRow
		if err := rows.Scan(&r.Id, &r.RunID, &r.Phase, &r.Kind, &r.Name, &r.Outcome, &r.Detail); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func DoesRunExist(id string) (bool, error) {
	const query = `
	SELECT COUNT(*)
	FROM runs
	WHERE id = ?;
	`
	var count int
	err := DB.QueryRow(query, id).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
