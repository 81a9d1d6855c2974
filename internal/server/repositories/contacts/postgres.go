package contacts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dkovalenko/contactbook/internal/common"
	"github.com/dkovalenko/contactbook/internal/dbx"
	"github.com/dkovalenko/contactbook/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const contactColumns = `id, user_id, first_name, last_name, email, phone, birthday, notes, avatar_key, created_at, updated_at`

func scanContact(row interface{ Scan(dest ...any) error }) (*models.Contact, error) {
	c := &models.Contact{}
	err := row.Scan(&c.ID, &c.UserID, &c.FirstName, &c.LastName, &c.Email,
		&c.Phone, &c.Birthday, &c.Notes, &c.AvatarKey, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *PostgresRepository) queryContacts(ctx context.Context, query string, args ...any) ([]*models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {

	query :=
		`INSERT INTO contacts (id, user_id, first_name, last_name, email, phone, birthday, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at, updated_at
		 `

	contact.ID = uuid.NewString()

	err := r.db.QueryRowContext(ctx, query,
		contact.ID, contact.UserID, contact.FirstName, contact.LastName,
		contact.Email, contact.Phone, contact.Birthday, contact.Notes).
		Scan(&contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, userID string, id string) (*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1 AND id = $2
		 `

	contact, err := scanContact(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, offset int, limit int) ([]*models.Contact, error) {
	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1
		 ORDER BY last_name, first_name
		 OFFSET $2 LIMIT $3
		 `

	return r.queryContacts(ctx, query, userID, offset, limit)
}

func (r *PostgresRepository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	query :=
		`UPDATE contacts
		 SET first_name = $3, last_name = $4, email = $5, phone = $6, birthday = $7, notes = $8, updated_at = now()
		 WHERE user_id = $1 AND id = $2
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		contact.UserID, contact.ID, contact.FirstName, contact.LastName,
		contact.Email, contact.Phone, contact.Birthday, contact.Notes).
		Scan(&contact.CreatedAt, &contact.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return contact, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, userID string, id string) error {
	query :=
		`DELETE FROM contacts
		 WHERE user_id = $1 AND id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}

func (r *PostgresRepository) Search(ctx context.Context, userID string, query string) ([]*models.Contact, error) {
	sqlQuery :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1
		   AND (first_name ILIKE $2 OR last_name ILIKE $2 OR email ILIKE $2)
		 ORDER BY last_name, first_name
		 `

	return r.queryContacts(ctx, sqlQuery, userID, "%"+query+"%")
}

func (r *PostgresRepository) WithBirthdayOn(ctx context.Context, userID string, monthDays []string) ([]*models.Contact, error) {
	if len(monthDays) == 0 {
		return nil, nil
	}

	placeholders := make([]string, 0, len(monthDays))
	args := make([]any, 0, len(monthDays)+1)
	args = append(args, userID)
	for i, md := range monthDays {
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		args = append(args, md)
	}

	query :=
		`SELECT ` + contactColumns + ` FROM contacts
		 WHERE user_id = $1
		   AND birthday IS NOT NULL
		   AND to_char(birthday, 'MM-DD') IN (` + strings.Join(placeholders, ", ") + `)
		 ORDER BY to_char(birthday, 'MM-DD')
		 `

	return r.queryContacts(ctx, query, args...)
}

func (r *PostgresRepository) SetAvatarKey(ctx context.Context, userID string, id string, key string) error {
	query :=
		`UPDATE contacts
		 SET avatar_key = $3, updated_at = now()
		 WHERE user_id = $1 AND id = $2
		 `

	res, err := r.db.ExecContext(ctx, query, userID, id, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}

	return nil
}
