package repo

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"phasegate/internal/domain"
)

const phaseColumns = `id,project_id,phase_type,status,start_date,end_date,COALESCE(notes,''),created_at,updated_at`

func scanPhase(row rowScanner) (domain.WorkflowPhase, error) {
	var ph domain.WorkflowPhase
	var start, end sql.NullString
	err := row.Scan(&ph.ID, &ph.ProjectID, &ph.PhaseType, &ph.Status, &start, &end, &ph.Notes, &ph.CreatedAt, &ph.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ph, ErrNotFound
	}
	ph.StartDate = stringPtr(start)
	ph.EndDate = stringPtr(end)
	return ph, err
}

// SortPhases orders phases by lifecycle position, then project.
func SortPhases(phases []domain.WorkflowPhase) {
	sort.SliceStable(phases, func(i, j int) bool {
		if phases[i].ProjectID != phases[j].ProjectID {
			return phases[i].ProjectID < phases[j].ProjectID
		}
		return domain.PhaseIndex(phases[i].PhaseType) < domain.PhaseIndex(phases[j].PhaseType)
	})
}

func (r Repo) InsertPhase(ctx context.Context, tx *sql.Tx, ph domain.WorkflowPhase) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO workflow_phases(id,project_id,phase_type,status,start_date,end_date,notes,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		ph.ID, ph.ProjectID, ph.PhaseType, ph.Status, nullableStringPtr(ph.StartDate), nullableStringPtr(ph.EndDate), nullable(ph.Notes), ph.CreatedAt, ph.UpdatedAt)
	return err
}

func (r Repo) GetPhase(ctx context.Context, tx *sql.Tx, id string) (domain.WorkflowPhase, error) {
	return scanPhase(r.q(tx).QueryRowContext(ctx, `SELECT `+phaseColumns+` FROM workflow_phases WHERE id=?`, id))
}

// ListPhases returns a project's phases in lifecycle order. An empty
// projectID lists phases across every project.
func (r Repo) ListPhases(ctx context.Context, tx *sql.Tx, projectID string) ([]domain.WorkflowPhase, error) {
	query := `SELECT ` + phaseColumns + ` FROM workflow_phases`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id=?`
		args = append(args, projectID)
	}
	rows, err := r.q(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkflowPhase
	for rows.Next() {
		ph, err := scanPhase(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, ph)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortPhases(res)
	return res, nil
}

func (r Repo) CountPhases(ctx context.Context, tx *sql.Tx, projectID string) (int, error) {
	var n int
	err := r.q(tx).QueryRowContext(ctx, `SELECT COUNT(*) FROM workflow_phases WHERE project_id=?`, projectID).Scan(&n)
	return n, err
}

func (r Repo) UpdatePhase(ctx context.Context, tx *sql.Tx, ph domain.WorkflowPhase) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE workflow_phases SET status=?,start_date=?,end_date=?,notes=?,updated_at=? WHERE id=?`,
		ph.Status, nullableStringPtr(ph.StartDate), nullableStringPtr(ph.EndDate), nullable(ph.Notes), ph.UpdatedAt, ph.ID))
}

func (r Repo) DeletePhase(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM workflow_phases WHERE id=?`, id))
}

const taskColumns = `id,phase_id,project_id,task_type,title,COALESCE(description,''),status,priority,assignee_id,due_date,deliverables_json,integrations_json,created_at,updated_at,completed_at`

func scanTask(row rowScanner) (domain.WorkflowTask, error) {
	var t domain.WorkflowTask
	var assignee, due, deliverables, integrations, completed sql.NullString
	err := row.Scan(&t.ID, &t.PhaseID, &t.ProjectID, &t.TaskType, &t.Title, &t.Description, &t.Status, &t.Priority,
		&assignee, &due, &deliverables, &integrations, &t.CreatedAt, &t.UpdatedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.AssigneeID = stringPtr(assignee)
	t.DueDate = stringPtr(due)
	t.CompletedAt = stringPtr(completed)
	if err := unmarshalMap(deliverables, &t.Deliverables); err != nil {
		return t, err
	}
	if err := unmarshalMap(integrations, &t.Integrations); err != nil {
		return t, err
	}
	return t, nil
}

func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.WorkflowTask) error {
	deliverables, err := marshalMap(t.Deliverables)
	if err != nil {
		return err
	}
	integrations, err := marshalMap(t.Integrations)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO workflow_tasks(id,phase_id,project_id,task_type,title,description,status,priority,assignee_id,due_date,deliverables_json,integrations_json,created_at,updated_at,completed_at) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.PhaseID, t.ProjectID, t.TaskType, t.Title, nullable(t.Description), t.Status, t.Priority,
		nullableStringPtr(t.AssigneeID), nullableStringPtr(t.DueDate), deliverables, integrations, t.CreatedAt, t.UpdatedAt, nullableStringPtr(t.CompletedAt))
	return err
}

func (r Repo) GetTask(ctx context.Context, tx *sql.Tx, id string) (domain.WorkflowTask, error) {
	return scanTask(r.q(tx).QueryRowContext(ctx, `SELECT `+taskColumns+` FROM workflow_tasks WHERE id=?`, id))
}

type TaskFilters struct {
	ProjectID  string
	PhaseID    string
	Status     string
	Priority   string
	AssigneeID string
	Limit      int
}

func (r Repo) ListTasks(ctx context.Context, f TaskFilters) ([]domain.WorkflowTask, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.ProjectID != "" {
		clauses = append(clauses, "project_id=?")
		args = append(args, f.ProjectID)
	}
	if f.PhaseID != "" {
		clauses = append(clauses, "phase_id=?")
		args = append(args, f.PhaseID)
	}
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.AssigneeID != "" {
		clauses = append(clauses, "assignee_id=?")
		args = append(args, f.AssigneeID)
	}
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE ` + strings.Join(clauses, " AND ") + ` ORDER BY created_at ASC, id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.WorkflowTask
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) UpdateTask(ctx context.Context, tx *sql.Tx, t domain.WorkflowTask) error {
	deliverables, err := marshalMap(t.Deliverables)
	if err != nil {
		return err
	}
	integrations, err := marshalMap(t.Integrations)
	if err != nil {
		return err
	}
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE workflow_tasks SET task_type=?,title=?,description=?,status=?,priority=?,assignee_id=?,due_date=?,deliverables_json=?,integrations_json=?,updated_at=?,completed_at=? WHERE id=?`,
		t.TaskType, t.Title, nullable(t.Description), t.Status, t.Priority, nullableStringPtr(t.AssigneeID), nullableStringPtr(t.DueDate),
		deliverables, integrations, t.UpdatedAt, nullableStringPtr(t.CompletedAt), t.ID))
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `DELETE FROM workflow_tasks WHERE id=?`, id))
}

// DeleteTasksByPhase removes a phase's tasks and reports how many went.
func (r Repo) DeleteTasksByPhase(ctx context.Context, tx *sql.Tx, phaseID string) (int64, error) {
	res, err := r.q(tx).ExecContext(ctx, `DELETE FROM workflow_tasks WHERE phase_id=?`, phaseID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TaskCountsByPhase returns phase id -> task status -> count for a project.
func (r Repo) TaskCountsByPhase(ctx context.Context, projectID string) (map[string]map[domain.TaskStatus]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT phase_id,status,COUNT(*) FROM workflow_tasks WHERE project_id=? GROUP BY phase_id,status`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]map[domain.TaskStatus]int{}
	for rows.Next() {
		var phaseID string
		var status domain.TaskStatus
		var n int
		if err := rows.Scan(&phaseID, &status, &n); err != nil {
			return nil, err
		}
		if out[phaseID] == nil {
			out[phaseID] = map[domain.TaskStatus]int{}
		}
		out[phaseID][status] = n
	}
	return out, rows.Err()
}
