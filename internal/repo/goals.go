package repo

import (
	"context"
	"database/sql"
	"errors"

	"phasegate/internal/domain"
)

func (r Repo) InsertGoal(ctx context.Context, tx *sql.Tx, g domain.StrategicGoal) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO strategic_goals(id,title,description,owner_id,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		g.ID, g.Title, nullable(g.Description), g.OwnerID, g.CreatedAt, g.UpdatedAt)
	return err
}

func (r Repo) GetGoal(ctx context.Context, tx *sql.Tx, id string) (domain.StrategicGoal, error) {
	var g domain.StrategicGoal
	err := r.q(tx).QueryRowContext(ctx, `SELECT id,title,COALESCE(description,''),owner_id,created_at,updated_at FROM strategic_goals WHERE id=?`, id).
		Scan(&g.ID, &g.Title, &g.Description, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return g, ErrNotFound
	}
	return g, err
}

func (r Repo) ListGoals(ctx context.Context) ([]domain.StrategicGoal, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,title,COALESCE(description,''),owner_id,created_at,updated_at FROM strategic_goals ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StrategicGoal
	for rows.Next() {
		var g domain.StrategicGoal
		if err := rows.Scan(&g.ID, &g.Title, &g.Description, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, g)
	}
	return res, rows.Err()
}

func (r Repo) DeleteGoal(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM strategic_goals WHERE id=?`, id))
}

const objectiveColumns = `id,goal_id,title,COALESCE(description,''),created_at,updated_at`

func scanObjective(row rowScanner) (domain.Objective, error) {
	var o domain.Objective
	err := row.Scan(&o.ID, &o.GoalID, &o.Title, &o.Description, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return o, ErrNotFound
	}
	return o, err
}

func (r Repo) InsertObjective(ctx context.Context, tx *sql.Tx, o domain.Objective) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO objectives(id,goal_id,title,description,created_at,updated_at) VALUES (?,?,?,?,?,?)`,
		o.ID, o.GoalID, o.Title, nullable(o.Description), o.CreatedAt, o.UpdatedAt)
	return err
}

func (r Repo) GetObjective(ctx context.Context, tx *sql.Tx, id string) (domain.Objective, error) {
	return scanObjective(r.q(tx).QueryRowContext(ctx, `SELECT `+objectiveColumns+` FROM objectives WHERE id=?`, id))
}

func (r Repo) ListObjectives(ctx context.Context, goalID string) ([]domain.Objective, error) {
	query := `SELECT ` + objectiveColumns + ` FROM objectives`
	var args []any
	if goalID != "" {
		query += ` WHERE goal_id=?`
		args = append(args, goalID)
	}
	query += ` ORDER BY created_at ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Objective
	for rows.Next() {
		o, err := scanObjective(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, o)
	}
	return res, rows.Err()
}

func (r Repo) UpdateObjective(ctx context.Context, tx *sql.Tx, o domain.Objective) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE objectives SET title=?,description=?,updated_at=? WHERE id=?`,
		o.Title, nullable(o.Description), o.UpdatedAt, o.ID))
}

func (r Repo) DeleteObjective(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM objectives WHERE id=?`, id))
}

const keyResultColumns = `id,objective_id,title,metric_type,COALESCE(unit,''),start_value,target_value,current_value,created_at,updated_at`

func scanKeyResult(row rowScanner) (domain.KeyResult, error) {
	var kr domain.KeyResult
	err := row.Scan(&kr.ID, &kr.ObjectiveID, &kr.Title, &kr.MetricType, &kr.Unit, &kr.StartValue, &kr.TargetValue, &kr.CurrentValue, &kr.CreatedAt, &kr.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return kr, ErrNotFound
	}
	return kr, err
}

func (r Repo) InsertKeyResult(ctx context.Context, tx *sql.Tx, kr domain.KeyResult) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO key_results(id,objective_id,title,metric_type,unit,start_value,target_value,current_value,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		kr.ID, kr.ObjectiveID, kr.Title, kr.MetricType, nullable(kr.Unit), kr.StartValue, kr.TargetValue, kr.CurrentValue, kr.CreatedAt, kr.UpdatedAt)
	return err
}

func (r Repo) GetKeyResult(ctx context.Context, tx *sql.Tx, id string) (domain.KeyResult, error) {
	return scanKeyResult(r.q(tx).QueryRowContext(ctx, `SELECT `+keyResultColumns+` FROM key_results WHERE id=?`, id))
}

func (r Repo) ListKeyResults(ctx context.Context, tx *sql.Tx, objectiveID string) ([]domain.KeyResult, error) {
	rows, err := r.q(tx).QueryContext(ctx, `SELECT `+keyResultColumns+` FROM key_results WHERE objective_id=? ORDER BY created_at ASC, id ASC`, objectiveID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.KeyResult
	for rows.Next() {
		kr, err := scanKeyResult(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, kr)
	}
	return res, rows.Err()
}

func (r Repo) UpdateKeyResult(ctx context.Context, tx *sql.Tx, kr domain.KeyResult) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE key_results SET title=?,metric_type=?,unit=?,start_value=?,target_value=?,current_value=?,updated_at=? WHERE id=?`,
		kr.Title, kr.MetricType, nullable(kr.Unit), kr.StartValue, kr.TargetValue, kr.CurrentValue, kr.UpdatedAt, kr.ID))
}

func (r Repo) DeleteKeyResult(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM key_results WHERE id=?`, id))
}
