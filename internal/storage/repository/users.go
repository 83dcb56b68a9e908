package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shipforge/payment-ledger/internal/models"
)

// RegisterUser saves a new user and returns its UID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "repository.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	metadata, err := marshalUserMetadata(user.Metadata)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var newUID string
	query := `INSERT INTO users (email, username, name, image, password_hash, role,
			      email_verified, metadata)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING uid;`
	if err := s.DB.QueryRowContext(ctx, query,
		strings.ToLower(user.Email), user.Username, user.Name, user.Image,
		user.PasswordHash, user.Role, user.EmailVerified, metadata).Scan(&newUID); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return newUID, nil
}

// FindUserByEmail returns the user with the given e-mail (case-insensitive),
// reporting presence with a boolean rather than an error.
func (s *Storage) FindUserByEmail(ctx context.Context, email string) (*models.User, bool, error) {
	const op = "repository.FindUserByEmail"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := userSelect + ` WHERE email = $1`
	u, err := s.scanUser(s.DB.QueryRowContext(ctx, query, strings.ToLower(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// GetUser returns the user with the given UID.
func (s *Storage) GetUser(ctx context.Context, userUID string) (*models.User, bool, error) {
	const op = "repository.GetUser"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := userSelect + ` WHERE uid = $1`
	u, err := s.scanUser(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// GetUserByUsername returns the user with the given login name.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, bool, error) {
	const op = "repository.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, false, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := userSelect + ` WHERE username = $1`
	u, err := s.scanUser(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	return u, true, nil
}

// UpdateUserImportData updates the profile fields and metadata the importer
// resolved for a user. Name and image are written only when non-nil; the
// caller decides whether an existing value may be replaced.
func (s *Storage) UpdateUserImportData(ctx context.Context, userUID string, name, image *string, metadata *models.UserMetadata) error {
	const op = "repository.UpdateUserImportData"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	md, err := marshalUserMetadata(metadata)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE users
			  SET name = COALESCE($1, name),
			      image = COALESCE($2, image),
			      metadata = $3,
			      updated_at = NOW()
			  WHERE uid = $4`
	if _, err := s.DB.ExecContext(ctx, query, name, image, md, userUID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const userSelect = `SELECT uid, email, username, name, image, password_hash, role,
			      email_verified, metadata, created_at, updated_at
			  FROM users`

func (s *Storage) scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var (
		name, image, passwordHash sql.NullString
		emailVerified             sql.NullTime
		metadata                  []byte
	)
	if err := row.Scan(&u.UID, &u.Email, &u.Username, &name, &image, &passwordHash,
		&u.Role, &emailVerified, &metadata, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if name.Valid {
		u.Name = &name.String
	}
	if image.Valid {
		u.Image = &image.String
	}
	if passwordHash.Valid {
		u.PasswordHash = &passwordHash.String
	}
	if emailVerified.Valid {
		u.EmailVerified = &emailVerified.Time
	}
	if len(metadata) > 0 {
		var md models.UserMetadata
		if err := json.Unmarshal(metadata, &md); err != nil {
			return nil, err
		}
		u.Metadata = &md
	}
	return u, nil
}

func marshalUserMetadata(md *models.UserMetadata) ([]byte, error) {
	if md == nil {
		return nil, nil
	}
	return json.Marshal(md)
}
