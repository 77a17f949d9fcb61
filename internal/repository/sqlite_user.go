package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bobby4fischer/pettrack/internal/db"
	"github.com/bobby4fischer/pettrack/internal/domain"
)

// SQLiteUserRepo implements UserRepo using a SQLite database.
type SQLiteUserRepo struct {
	db db.DBTX
}

// NewSQLiteUserRepo creates a new SQLiteUserRepo.
func NewSQLiteUserRepo(conn db.DBTX) *SQLiteUserRepo {
	return &SQLiteUserRepo{db: conn}
}

const userColumns = `id, email, display_name, gems, email_opt_in, last_digest_sent_at,
	pet_vitality, pet_last_decay_at, inv_food, inv_milk, inv_toys, created_at, updated_at`

// invColumn maps an item kind to its inventory column. Kinds are validated
// against the canonical set before being interpolated into SQL.
func invColumn(kind domain.ItemKind) (string, error) {
	if !domain.ValidItemKinds[kind] {
		return "", fmt.Errorf("unknown item kind %q", kind)
	}
	switch kind {
	case domain.ItemFood:
		return "inv_food", nil
	case domain.ItemMilk:
		return "inv_milk", nil
	default:
		return "inv_toys", nil
	}
}

func (r *SQLiteUserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		u.ID,
		u.Email,
		u.DisplayName,
		u.Gems,
		boolToInt(u.EmailOptIn),
		nullableTimeToString(u.LastDigestSentAt, time.RFC3339),
		u.Pet.Vitality,
		u.Pet.LastDecayAt.Format(time.RFC3339),
		u.Inventory.Food,
		u.Inventory.Milk,
		u.Inventory.Toys,
		u.CreatedAt.Format(time.RFC3339),
		u.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *SQLiteUserRepo) Award(ctx context.Context, id string, amount int) error {
	query := `UPDATE users SET gems = gems + ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, amount, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("awarding gems: %w", err)
	}
	return requireRow(res, "user")
}

func (r *SQLiteUserRepo) SpendClamped(ctx context.Context, id string, amount int) error {
	query := `UPDATE users SET gems = MAX(0, gems - ?), updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, amount, time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("spending gems: %w", err)
	}
	return requireRow(res, "user")
}

func (r *SQLiteUserRepo) PurchaseItem(ctx context.Context, id string, kind domain.ItemKind, cost int) (bool, error) {
	col, err := invColumn(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE users
		SET gems = gems - ?, %s = MIN(?, %s + 1), updated_at = ?
		WHERE id = ? AND gems >= ?`, col, col)
	res, err := r.db.ExecContext(ctx, query,
		cost, domain.InventoryMax, time.Now().UTC().Format(time.RFC3339), id, cost)
	if err != nil {
		return false, fmt.Errorf("purchasing item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("purchasing item: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteUserRepo) SavePetState(ctx context.Context, id string, pet domain.Pet, expectedLastDecayAt time.Time) (bool, error) {
	query := `UPDATE users SET pet_vitality = ?, pet_last_decay_at = ?, updated_at = ?
		WHERE id = ? AND pet_last_decay_at = ?`
	res, err := r.db.ExecContext(ctx, query,
		pet.Vitality,
		pet.LastDecayAt.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
		expectedLastDecayAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("saving pet state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("saving pet state: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteUserRepo) ApplyFeed(ctx context.Context, id string, kind domain.ItemKind, pet domain.Pet, expectedLastDecayAt time.Time) (bool, error) {
	col, err := invColumn(kind)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(`UPDATE users
		SET pet_vitality = ?, pet_last_decay_at = ?, %s = %s - 1, updated_at = ?
		WHERE id = ? AND pet_last_decay_at = ? AND %s >= 1`, col, col, col)
	res, err := r.db.ExecContext(ctx, query,
		pet.Vitality,
		pet.LastDecayAt.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
		expectedLastDecayAt.Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("applying feed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("applying feed: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteUserRepo) ResetLedger(ctx context.Context, id string, pet domain.Pet) error {
	query := `UPDATE users
		SET pet_vitality = ?, pet_last_decay_at = ?, gems = 0,
		    inv_food = 0, inv_milk = 0, inv_toys = 0, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		pet.Vitality,
		pet.LastDecayAt.Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
		id,
	)
	if err != nil {
		return fmt.Errorf("resetting ledger: %w", err)
	}
	return requireRow(res, "user")
}

func (r *SQLiteUserRepo) ListOptedIn(ctx context.Context) ([]*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email_opt_in = 1 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing opted-in users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := r.scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

func (r *SQLiteUserRepo) SetLastDigestSentAt(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE users SET last_digest_sent_at = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		at.Format(time.RFC3339), time.Now().UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("setting last digest time: %w", err)
	}
	return requireRow(res, "user")
}

// requireRow converts a zero-rows-affected result into ErrNotFound.
func requireRow(res sql.Result, entity string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", entity, ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteUserRepo) scanUser(row *sql.Row) (*domain.User, error) {
	u, err := r.scanInto(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	return u, err
}

func (r *SQLiteUserRepo) scanUserRow(rows *sql.Rows) (*domain.User, error) {
	return r.scanInto(rows)
}

func (r *SQLiteUserRepo) scanInto(s rowScanner) (*domain.User, error) {
	var u domain.User
	var optIn int
	var lastDigest sql.NullString
	var lastDecayStr, createdStr, updatedStr string

	err := s.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.Gems, &optIn, &lastDigest,
		&u.Pet.Vitality, &lastDecayStr,
		&u.Inventory.Food, &u.Inventory.Milk, &u.Inventory.Toys,
		&createdStr, &updatedStr,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.EmailOptIn = intToBool(optIn)
	u.LastDigestSentAt = parseNullableTime(lastDigest, time.RFC3339)
	if u.Pet.LastDecayAt, err = time.Parse(time.RFC3339, lastDecayStr); err != nil {
		return nil, fmt.Errorf("parsing pet_last_decay_at: %w", err)
	}
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if u.UpdatedAt, err = time.Parse(time.RFC3339, updatedStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &u, nil
}
