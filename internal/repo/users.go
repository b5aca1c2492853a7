package repo

import (
	"context"
	"database/sql"
	"errors"

	"phasegate/internal/domain"
)

const userColumns = `id,email,COALESCE(name,''),external_id,provider,created_at,updated_at`

func scanUser(row rowScanner) (domain.User, error) {
	var u domain.User
	var externalID, provider sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.Name, &externalID, &provider, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	u.ExternalID = stringPtr(externalID)
	u.Provider = stringPtr(provider)
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, tx *sql.Tx, u domain.User) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO users(id,email,name,external_id,provider,created_at,updated_at) VALUES (?,?,?,?,?,?,?)`,
		u.ID, u.Email, nullable(u.Name), nullableStringPtr(u.ExternalID), nullableStringPtr(u.Provider), u.CreatedAt, u.UpdatedAt)
	return err
}

func (r Repo) GetUser(ctx context.Context, tx *sql.Tx, id string) (domain.User, error) {
	return scanUser(r.q(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, tx *sql.Tx, email string) (domain.User, error) {
	return scanUser(r.q(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=? COLLATE NOCASE`, email))
}

func (r Repo) GetUserByExternalID(ctx context.Context, tx *sql.Tx, externalID, provider string) (domain.User, error) {
	return scanUser(r.q(tx).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE external_id=? AND provider=?`, externalID, provider))
}

// LinkExternalID attaches an SSO identity to an existing account.
func (r Repo) LinkExternalID(ctx context.Context, tx *sql.Tx, userID, externalID, provider, updatedAt string) error {
	return mustAffect(r.q(tx).ExecContext(ctx, `UPDATE users SET external_id=?,provider=?,updated_at=? WHERE id=?`,
		externalID, provider, updatedAt, userID))
}
