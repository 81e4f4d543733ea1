package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"todo-api/internal/models"

	"github.com/lib/pq"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostgresUserRepository stores each user as one JSONB document. Columns
// that are queried or constrained (email, reset code) are kept alongside.
type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// pgDocument is the JSONB payload. It mirrors models.User without the
// json:"-" hiding used for API responses.
type pgDocument struct {
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Avatar    *models.Avatar `json:"avatar,omitempty"`
	Verified  bool           `json:"verified"`
	OTP       *int           `json:"otp"`
	OTPExpiry *time.Time     `json:"otpExpiry"`
	Tasks     []models.Task  `json:"tasks"`
	CreatedAt time.Time      `json:"createdAt"`
}

const selectUser = `SELECT id, password_hash, reset_otp, reset_otp_expiry, version, document FROM users`

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	doc, err := encodeDocument(user)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, reset_otp, reset_otp_expiry, version, document)
		 VALUES ($1, $2, $3, $4, $5, 1, $6)`,
		user.ID.Hex(), user.Email, user.PasswordHash,
		nullInt(user.ResetPasswordOTP), nullTime(user.ResetPasswordOTPExpiry), doc)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.Version = 1
	return nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.queryOne(ctx, selectUser+` WHERE id = $1`, id.Hex())
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.queryOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresUserRepository) FindByResetOTP(ctx context.Context, otp int, now time.Time) (*models.User, error) {
	return r.queryOne(ctx, selectUser+` WHERE reset_otp = $1 AND reset_otp_expiry > $2 LIMIT 1`, otp, now)
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *models.User) error {
	doc, err := encodeDocument(user)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email = $2, password_hash = $3, reset_otp = $4, reset_otp_expiry = $5,
		     document = $6, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1 AND version = $7`,
		user.ID.Hex(), user.Email, user.PasswordHash,
		nullInt(user.ResetPasswordOTP), nullTime(user.ResetPasswordOTPExpiry), doc, user.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("update user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, user.ID.Hex()).Scan(&exists); err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}
	user.Version++
	return nil
}

func (r *PostgresUserRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*models.User, error) {
	var (
		id       string
		hash     string
		resetOTP sql.NullInt64
		resetExp sql.NullTime
		version  int64
		raw      []byte
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&id, &hash, &resetOTP, &resetExp, &version, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	var doc pgDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode user document: %w", err)
	}
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("decode user id: %w", err)
	}

	u := &models.User{
		ID:           oid,
		Name:         doc.Name,
		Email:        doc.Email,
		PasswordHash: hash,
		Avatar:       doc.Avatar,
		Verified:     doc.Verified,
		OTP:          doc.OTP,
		OTPExpiry:    doc.OTPExpiry,
		Tasks:        doc.Tasks,
		CreatedAt:    doc.CreatedAt,
		Version:      version,
	}
	if u.Tasks == nil {
		u.Tasks = []models.Task{}
	}
	if resetOTP.Valid && resetExp.Valid {
		u.SetResetOTP(int(resetOTP.Int64), resetExp.Time)
	}
	return u, nil
}

func encodeDocument(u *models.User) ([]byte, error) {
	doc, err := json.Marshal(pgDocument{
		Name:      u.Name,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Verified:  u.Verified,
		OTP:       u.OTP,
		OTPExpiry: u.OTPExpiry,
		Tasks:     u.Tasks,
		CreatedAt: u.CreatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("encode user document: %w", err)
	}
	return doc, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *p, Valid: true}
}
