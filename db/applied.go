package db

//last known applied value per entity, used by the drift report

import (
	"time"
)

type Applied struct {
	Kind      string
	Name      string
	Value     string
	UpdatedAt time.Time
}

func CreateAppliedTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS applied (
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (kind, name)
	);
	`
	_, err := DB.Exec(query)
	return err
}

func UpsertApplied(kind, name, value string) error {
	query := `
	INSERT INTO applied (kind, name, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(kind, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;
	`
	_, err := DB.Exec(query, kind, name, value, time.Now().UTC())
	return err
}

func GetApplied(kind string) ([]Applied, error) {
	const query = `
	SELECT kind, name, value, updated_at
	FROM applied
	WHERE kind = ?
	ORDER BY name;
	`
	rows, err := DB.Query(query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Kind, &a.Name, &a.Value, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func GetAllApplied() ([]Applied, error) {
	const query = `
	SELECT kind, name, value, updated_at
	FROM applied
	ORDER BY kind, name;
	`
	rows, err := DB.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Applied
	for rows.Next() {
		var a Applied
		if err := rows.Scan(&a.Kind, &a.Name, &a.Value, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
