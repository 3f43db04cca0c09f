package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docmarkapp/docmark-server/internal/domain"
)

// userColumns is the ordered list of columns selected in user queries.
// Must match the scan order in scanUser.
const userColumns = `id, google_id, email, name, watch_folder_id, palette, refresh_token, created_at, updated_at`

// scanUser scans a sql.Row (or sql.Rows via its Scan method) into a domain.User.
func scanUser(scanner interface{ Scan(dest ...any) error }) (*domain.User, error) {
	var u domain.User

	var (
		palette   string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.Name,
		&u.WatchFolderID,
		&palette,
		&u.RefreshToken,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(palette), &u.Palette); err != nil {
		return nil, fmt.Errorf("decode palette: %w", err)
	}

	u.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// CreateUser inserts a new user.
// Returns ErrAlreadyExists on duplicate Google id.
func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	palette, err := json.Marshal(u.Palette)
	if err != nil {
		return fmt.Errorf("encode palette: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, google_id, email, name, watch_folder_id, palette, refresh_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.GoogleID,
		u.Email,
		u.Name,
		u.WatchFolderID,
		string(palette),
		u.RefreshToken,
		formatTime(u.CreatedAt),
		formatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUserByID retrieves a user by id.
// Returns ErrNotFound if the user does not exist.
func (s *Store) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, userID)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUserByGoogleID retrieves a user by Google account id.
// Returns ErrNotFound if no such user exists.
func (s *Store) GetUserByGoogleID(ctx context.Context, googleID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateUserProfile refreshes the email, display name, and refresh token
// captured from the identity provider at login.
func (s *Store) UpdateUserProfile(ctx context.Context, userID, email, name, refreshToken string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, name = ?, refresh_token = ?, updated_at = ?
		WHERE id = ?`,
		email, name, refreshToken, formatTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// UpdateUserSettings replaces the watch folder and palette.
func (s *Store) UpdateUserSettings(ctx context.Context, userID, watchFolderID string, palette []string) error {
	encoded, err := json.Marshal(palette)
	if err != nil {
		return fmt.Errorf("encode palette: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET watch_folder_id = ?, palette = ?, updated_at = ?
		WHERE id = ?`,
		watchFolderID, string(encoded), formatTime(time.Now()), userID)
	if err != nil {
		return err
	}
	return requireRowAffected(res)
}

// requireRowAffected converts a zero-row UPDATE/DELETE into ErrNotFound.
func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
