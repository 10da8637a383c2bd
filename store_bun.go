package tenantauth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewSQLiteDB opens a SQLite-backed bun.DB, used by tests and by
// deployments that keep the system-of-record local.
func NewSQLiteDB(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to open sqlite database")
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// CreateAuthSchema creates the tables the auth core reads and writes.
// The users and tenants tables normally already exist in the system of
// record; this covers fresh development databases and tests.
func CreateAuthSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*User)(nil),
		(*Tenant)(nil),
		(*RevocationEntry)(nil),
		(*AuditRecord)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to create auth table")
		}
	}

	return nil
}

// bunUserStore implements UserStore against the system-of-record users
// table.
type bunUserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) UserStore {
	return &bunUserStore{db: db}
}

func (s *bunUserStore) GetByID(ctx context.Context, id int64) (*User, error) {
	user := &User{}

	err := s.db.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"user_id": id})
		}
		return nil, err
	}

	return user, nil
}

func (s *bunUserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}

	err := s.db.NewSelect().
		Model(user).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("user not found", goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"email": email})
		}
		return nil, err
	}

	return user, nil
}

func (s *bunUserStore) TrackSuccessfulLogin(ctx context.Context, user *User) error {
	// NOTE: raw update so login_attempt_at and login_attempts reset in
	// the same statement.
	loggedInAt := time.Now()
	_, err := s.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("usr".id = ?);
	`, loggedInAt, user.ID).Exec(ctx)

	return err
}

func (s *bunUserStore) TrackAttemptedLogin(ctx context.Context, user *User) error {
	now := time.Now()
	_, err := s.db.NewRaw(`
		UPDATE "users" AS "usr"
		SET
			"login_attempt_at" = ?,
			"login_attempts" = ?
		WHERE
			("usr".id = ?);
	`, now, user.LoginAttempts+1, user.ID).Exec(ctx)

	return err
}

// bunTenantStore implements TenantStore.
type bunTenantStore struct {
	db *bun.DB
}

func NewTenantStore(db *bun.DB) TenantStore {
	return &bunTenantStore{db: db}
}

func (s *bunTenantStore) GetByID(ctx context.Context, id int64) (*Tenant, error) {
	tenant := &Tenant{}

	err := s.db.NewSelect().
		Model(tenant).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, goerrors.New("tenant not found", goerrors.CategoryNotFound).
				WithMetadata(map[string]any{"tenant_id": id})
		}
		return nil, err
	}

	return tenant, nil
}

// bunRevocationStore implements RevocationStore on a plain table. TTL is
// modeled as an expires_at column: existence checks filter expired rows,
// and PurgeExpiredRevocations reclaims them.
type bunRevocationStore struct {
	db *bun.DB
}

func NewBunRevocationStore(db *bun.DB) RevocationStore {
	return &bunRevocationStore{db: db}
}

func (s *bunRevocationStore) Exists(ctx context.Context, key string) (bool, error) {
	return s.db.NewSelect().
		Model((*RevocationEntry)(nil)).
		Where("?TableAlias.key = ?", key).
		Where("?TableAlias.expires_at > ?", time.Now()).
		Exists(ctx)
}

func (s *bunRevocationStore) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	entry := &RevocationEntry{
		Key:       key,
		ExpiresAt: time.Now().Add(ttl),
	}

	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (key) DO UPDATE").
		Set("expires_at = EXCLUDED.expires_at").
		Exec(ctx)

	return err
}

// PurgeExpiredRevocations hard-deletes markers past their TTL. Safe to
// run from a periodic job; correctness does not depend on it since
// expired rows are filtered on read.
func PurgeExpiredRevocations(ctx context.Context, db *bun.DB) (int64, error) {
	res, err := db.NewDelete().
		Model((*RevocationEntry)(nil)).
		Where("?TableAlias.expires_at <= ?", time.Now()).
		Exec(ctx)

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// bunAuditSink persists audit entries to the audit_records table.
type bunAuditSink struct {
	db *bun.DB
}

func NewBunAuditSink(db *bun.DB) AuditSink {
	return &bunAuditSink{db: db}
}

func (s *bunAuditSink) WriteAudit(ctx context.Context, entry AuditEntry) error {
	record := &AuditRecord{
		ID:            uuid.New(),
		ActorUserID:   entry.Actor.UserID,
		ActorEmail:    entry.Actor.Email,
		ActorTenantID: entry.Actor.TenantID,
		Action:        entry.Action,
		Category:      entry.Category,
		TargetUserID:  entry.TargetUserID,
		Details:       entry.Details,
		CreatedAt:     entry.OccurredAt,
	}

	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}
