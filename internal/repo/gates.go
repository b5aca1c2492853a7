package repo

import (
	"context"
	"database/sql"
	"errors"
	"sort"

	"phasegate/internal/domain"
)

const gateColumns = `id,project_id,phase,status,deliverables_json,COALESCE(notes,''),created_at,updated_at`

func scanGate(row rowScanner) (domain.QualityGate, error) {
	var g domain.QualityGate
	var deliverables sql.NullString
	err := row.Scan(&g.ID, &g.ProjectID, &g.Phase, &g.Status, &deliverables, &g.Notes, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	g.Deliverables = map[string]domain.Deliverable{}
	if err := unmarshalMap(deliverables, &g.Deliverables); err != nil {
		return g, err
	}
	return g, nil
}

func (r Repo) InsertGate(ctx context.Context, tx *sql.Tx, g domain.QualityGate) error {
	if g.Deliverables == nil {
		g.Deliverables = map[string]domain.Deliverable{}
	}
	deliverables, err := marshalMap(g.Deliverables)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO quality_gates(id,project_id,phase,status,deliverables_json,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?)`,
		g.ID, g.ProjectID, g.Phase, g.Status, deliverables, nullable(g.Notes), g.CreatedAt, g.UpdatedAt)
	return err
}

func (r Repo) GetGate(ctx context.Context, tx *sql.Tx, id string) (domain.QualityGate, error) {
	return scanGate(r.q(tx).QueryRowContext(ctx, `SELECT `+gateColumns+` FROM quality_gates WHERE id=?`, id))
}

// ListGates returns a project's gates in gate-phase order, independent of
// insertion order.
func (r Repo) ListGates(ctx context.Context, tx *sql.Tx, projectID string) ([]domain.QualityGate, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+gateColumns+` FROM quality_gates WHERE project_id=?`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.QualityGate
	for rows.Next() {
		g, err := scanGate(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(res, func(i, j int) bool {
		return domain.GateIndex(res[i].Phase) < domain.GateIndex(res[j].Phase)
	})
	return res, nil
}

func (r Repo) CountGates(ctx context.Context, tx *sql.Tx, projectID string) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM quality_gates WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

func (r Repo) UpdateGate(ctx context.Context, tx *sql.Tx, g domain.QualityGate) error {
	if g.Deliverables == nil {
		g.Deliverables = map[string]domain.Deliverable{}
	}
	deliverables, err := marshalMap(g.Deliverables)
	if err != nil {
		return err
	}
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE quality_gates SET status=?,deliverables_json=?,notes=?,updated_at=? WHERE id=?`,
		g.Status, deliverables, nullable(g.Notes), g.UpdatedAt, g.ID))
}
