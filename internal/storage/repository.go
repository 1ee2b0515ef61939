// Package storage is the system of record: a SQLite database holding all
// persisted collections. Column names use the snake_case wire convention;
// the rename and type coercion between rows and the camel-cased domain
// model happens entirely inside this package.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"finboard/internal/aggregate"
	"finboard/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateAutoCharge signals the unique-index backstop against
	// materializing the same subscription charge twice in one month.
	ErrDuplicateAutoCharge = errors.New("auto charge already materialized for this month")
)

type Repository struct {
	db *sql.DB
}

func New(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Snapshot loads a consistent view of every collection for aggregation.
func (r *Repository) Snapshot(ctx context.Context) (aggregate.Snapshot, error) {
	var snap aggregate.Snapshot
	var err error
	if snap.Companies, err = r.ListCompanies(ctx); err != nil {
		return snap, err
	}
	if snap.Incomes, err = r.ListIncomes(ctx); err != nil {
		return snap, err
	}
	if snap.Expenses, err = r.ListAllExpenses(ctx); err != nil {
		return snap, err
	}
	if snap.Subscriptions, err = r.ListSubscriptions(ctx); err != nil {
		return snap, err
	}
	return snap, nil
}

// --- companies ---

func (r *Repository) CreateCompany(ctx context.Context, c core.Company) (core.Company, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (name, payment_type, payment_day, expected_amount, color)
		VALUES (?, ?, ?, ?, ?)`,
		c.Name, string(c.PaymentType), nullInt(c.PaymentDay), c.ExpectedAmount, c.Color)
	if err != nil {
		return core.Company{}, fmt.Errorf("create company: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	c.CreatedAt = time.Now().UTC()
	return c, nil
}

func (r *Repository) ListCompanies(ctx context.Context) ([]core.Company, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, payment_type, payment_day, expected_amount, color, created_at
		FROM companies ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var out []core.Company
	for rows.Next() {
		var c core.Company
		var paymentType string
		var paymentDay sql.NullInt64
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &paymentType, &paymentDay, &c.ExpectedAmount, &c.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		c.PaymentType = core.PaymentType(paymentType)
		if paymentDay.Valid {
			c.PaymentDay = int(paymentDay.Int64)
		}
		c.CreatedAt = parseTimestamp(createdAt)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateCompany(ctx context.Context, c core.Company) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE companies SET name = ?, payment_type = ?, payment_day = ?, expected_amount = ?, color = ?
		WHERE id = ?`,
		c.Name, string(c.PaymentType), nullInt(c.PaymentDay), c.ExpectedAmount, c.Color, c.ID)
	if err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return requireRow(res)
}

// DeleteCompany removes a company together with its incomes, matching the
// cascade the UI expects.
func (r *Repository) DeleteCompany(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete company: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM incomes WHERE company_id = ?`, id); err != nil {
		return fmt.Errorf("delete company incomes: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// --- incomes ---

func (r *Repository) CreateIncome(ctx context.Context, in core.Income) (core.Income, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO incomes (company_id, period, payment_date, amount, status, received_date, note)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.CompanyID, in.Period, nullDate(in.PaymentDate), in.Amount, string(in.Status),
		nullDate(in.ReceivedDate), in.Note)
	if err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	in.ID, _ = res.LastInsertId()
	in.CreatedAt = time.Now().UTC()
	return in, nil
}

func (r *Repository) ListIncomes(ctx context.Context) ([]core.Income, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, period, payment_date, amount, status, received_date, note, created_at
		FROM incomes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var out []core.Income
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateIncome(ctx context.Context, in core.Income) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE incomes SET company_id = ?, period = ?, payment_date = ?, amount = ?,
			status = ?, received_date = ?, note = ?
		WHERE id = ?`,
		in.CompanyID, in.Period, nullDate(in.PaymentDate), in.Amount, string(in.Status),
		nullDate(in.ReceivedDate), in.Note, in.ID)
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteIncome(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	return requireRow(res)
}

// ToggleIncomeStatus flips pending/received. Marking received stamps the
// received date with now; flipping back clears it.
func (r *Repository) ToggleIncomeStatus(ctx context.Context, id int64, now time.Time) (core.Income, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, company_id, period, payment_date, amount, status, received_date, note, created_at
		FROM incomes WHERE id = ?`, id)
	in, err := scanIncome(row)
	if err != nil {
		return core.Income{}, err
	}

	if in.Status == core.StatusReceived {
		in.Status = core.StatusPending
		in.ReceivedDate = nil
	} else {
		in.Status = core.StatusReceived
		d := now.UTC().Truncate(24 * time.Hour)
		in.ReceivedDate = &d
	}
	if err := r.UpdateIncome(ctx, in); err != nil {
		return core.Income{}, err
	}
	return in, nil
}

// --- expenses ---

func (r *Repository) CreateExpense(ctx context.Context, e core.Expense) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (category, amount, description, raw_input, date)
		VALUES (?, ?, ?, ?, ?)`,
		e.Category, e.Amount, e.Description, e.RawInput, e.Date.Format(dateLayout))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return 0, ErrDuplicateAutoCharge
		}
		return 0, fmt.Errorf("create expense: %w", err)
	}
	id, _ := res.LastInsertId()
	slog.InfoContext(ctx, "Expense saved",
		"id", id,
		"description", e.Description,
		"amount", e.Amount,
		"category", e.Category,
		"date", e.Date.Format(dateLayout))
	return id, nil
}

func (r *Repository) GetExpense(ctx context.Context, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category, amount, description, raw_input, date, created_at
		FROM expenses WHERE id = ? AND deleted = 0`, id)
	return scanExpense(row)
}

// ListExpenses returns live expenses dated within the inclusive range,
// newest first.
func (r *Repository) ListExpenses(ctx context.Context, from, to time.Time) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, amount, description, raw_input, date, created_at
		FROM expenses
		WHERE deleted = 0 AND date >= ? AND date <= ?
		ORDER BY date DESC, id DESC`,
		from.Format(dateLayout), to.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return collectExpenses(rows)
}

// ListAllExpenses returns every live expense, for snapshot aggregation.
func (r *Repository) ListAllExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, amount, description, raw_input, date, created_at
		FROM expenses WHERE deleted = 0
		ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list all expenses: %w", err)
	}
	return collectExpenses(rows)
}

func (r *Repository) UpdateExpense(ctx context.Context, e core.Expense) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET category = ?, amount = ?, description = ?, raw_input = ?, date = ?,
			version = version + 1, synced = 0
		WHERE id = ? AND deleted = 0`,
		e.Category, e.Amount, e.Description, e.RawInput, e.Date.Format(dateLayout), e.ID)
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	return requireRow(res)
}

// DeleteExpense soft deletes so the mirror can propagate the removal.
func (r *Repository) DeleteExpense(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE expenses SET deleted = 1, synced = 0 WHERE id = ? AND deleted = 0`, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	return requireRow(res)
}

// AutoChargeExists reports whether a live expense carries the exact
// auto-charge marker with a date inside the given month.
func (r *Repository) AutoChargeExists(ctx context.Context, marker string, month core.MonthPeriod) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM expenses
		WHERE deleted = 0 AND raw_input = ? AND substr(date, 1, 7) = ?`,
		marker, string(month)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check auto charge: %w", err)
	}
	return n > 0, nil
}

// ExpenseVersion reads the sync version of a row, including soft-deleted
// ones.
func (r *Repository) ExpenseVersion(ctx context.Context, id int64) (int64, error) {
	var v int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM expenses WHERE id = ?`, id).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("expense version: %w", err)
	}
	return v, nil
}

// PendingSyncExpense is the minimal row the sync worker needs to queue or
// backfill a mirror write.
type PendingSyncExpense struct {
	ID      int64
	Version int64
	Deleted bool
}

// PendingSyncExpenses returns expenses not yet mirrored, oldest first.
func (r *Repository) PendingSyncExpenses(ctx context.Context, limit int) ([]PendingSyncExpense, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, deleted FROM expenses
		WHERE synced = 0 AND sync_error = 0
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending sync expenses: %w", err)
	}
	defer rows.Close()

	var out []PendingSyncExpense
	for rows.Next() {
		var p PendingSyncExpense
		if err := rows.Scan(&p.ID, &p.Version, &p.Deleted); err != nil {
			return nil, fmt.Errorf("scan pending expense: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE expenses SET synced = 1, sync_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	return nil
}

func (r *Repository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE expenses SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark expense sync error: %w", err)
	}
	slog.WarnContext(ctx, "Expense marked with sync error", "id", id)
	return nil
}

// --- subscriptions ---

func (r *Repository) CreateSubscription(ctx context.Context, s core.Subscription) (core.Subscription, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (name, amount, billing_day, category, is_active, color)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Name, s.Amount, s.BillingDay, s.Category, s.IsActive, s.Color)
	if err != nil {
		return core.Subscription{}, fmt.Errorf("create subscription: %w", err)
	}
	s.ID, _ = res.LastInsertId()
	s.CreatedAt = time.Now().UTC()
	return s, nil
}

func (r *Repository) ListSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	return r.listSubscriptions(ctx, false)
}

// ListActiveSubscriptions returns only subscriptions eligible for
// materialization.
func (r *Repository) ListActiveSubscriptions(ctx context.Context) ([]core.Subscription, error) {
	return r.listSubscriptions(ctx, true)
}

func (r *Repository) listSubscriptions(ctx context.Context, activeOnly bool) ([]core.Subscription, error) {
	q := `SELECT id, name, amount, billing_day, category, is_active, color, created_at
		FROM subscriptions`
	if activeOnly {
		q += ` WHERE is_active = 1`
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []core.Subscription
	for rows.Next() {
		var s core.Subscription
		var createdAt string
		if err := rows.Scan(&s.ID, &s.Name, &s.Amount, &s.BillingDay, &s.Category, &s.IsActive, &s.Color, &createdAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.CreatedAt = parseTimestamp(createdAt)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateSubscription(ctx context.Context, s core.Subscription) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET name = ?, amount = ?, billing_day = ?, category = ?, is_active = ?, color = ?
		WHERE id = ?`,
		s.Name, s.Amount, s.BillingDay, s.Category, s.IsActive, s.Color, s.ID)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteSubscription(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	return requireRow(res)
}

// ToggleSubscriptionActive flips the soft activation switch that stops
// future materialization while keeping history.
func (r *Repository) ToggleSubscriptionActive(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions SET is_active = NOT is_active WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("toggle subscription: %w", err)
	}
	return requireRow(res)
}

// --- tasks ---

func (r *Repository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (title, description, status, priority, due_date, color, sort_order, company_id)
		VALUES (?, ?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), -1) + 1 FROM tasks WHERE status = ?), ?)`,
		t.Title, t.Description, string(t.Status), string(t.Priority), nullDate(t.DueDate),
		t.Color, string(t.Status), nullID(t.CompanyID))
	if err != nil {
		return core.Task{}, fmt.Errorf("create task: %w", err)
	}
	t.ID, _ = res.LastInsertId()
	t.CreatedAt = time.Now().UTC()
	return t, nil
}

func (r *Repository) ListTasks(ctx context.Context) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, status, priority, due_date, color, sort_order, company_id, created_at
		FROM tasks ORDER BY status, sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []core.Task
	for rows.Next() {
		var t core.Task
		var status, priority, createdAt string
		var dueDate sql.NullString
		var companyID sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &status, &priority, &dueDate, &t.Color, &t.SortOrder, &companyID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Status = core.TaskStatus(status)
		t.Priority = core.TaskPriority(priority)
		t.DueDate = parseNullDate(dueDate)
		if companyID.Valid {
			id := companyID.Int64
			t.CompanyID = &id
		}
		t.CreatedAt = parseTimestamp(createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateTask(ctx context.Context, t core.Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, due_date = ?, color = ?, company_id = ?
		WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), nullDate(t.DueDate),
		t.Color, nullID(t.CompanyID), t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return requireRow(res)
}

// MoveTask repositions a task inside a status column, shifting the tasks
// at or after the target slot one place down.
func (r *Repository) MoveTask(ctx context.Context, id int64, status core.TaskStatus, sortOrder int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin move task: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE tasks SET sort_order = sort_order + 1
		WHERE status = ? AND sort_order >= ? AND id != ?`,
		string(status), sortOrder, id); err != nil {
		return fmt.Errorf("shift tasks: %w", err)
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE tasks SET status = ?, sort_order = ? WHERE id = ?`,
		string(status), sortOrder, id)
	if err != nil {
		return fmt.Errorf("move task: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}
	return tx.Commit()
}

// --- scanning helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncome(row rowScanner) (core.Income, error) {
	var in core.Income
	var status, createdAt string
	var paymentDate, receivedDate sql.NullString
	err := row.Scan(&in.ID, &in.CompanyID, &in.Period, &paymentDate, &in.Amount,
		&status, &receivedDate, &in.Note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Income{}, ErrNotFound
	}
	if err != nil {
		return core.Income{}, fmt.Errorf("scan income: %w", err)
	}
	in.Status = core.IncomeStatus(status)
	in.PaymentDate = parseNullDate(paymentDate)
	in.ReceivedDate = parseNullDate(receivedDate)
	in.CreatedAt = parseTimestamp(createdAt)
	return in, nil
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var e core.Expense
	var dateStr, createdAt string
	err := row.Scan(&e.ID, &e.Category, &e.Amount, &e.Description, &e.RawInput, &dateStr, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("scan expense: %w", err)
	}
	e.Date, _ = time.Parse(dateLayout, dateStr)
	e.CreatedAt = parseTimestamp(createdAt)
	return e, nil
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseNullDate(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullID(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// parseTimestamp reads SQLite's CURRENT_TIMESTAMP format; date-only
// values are accepted for rows written by older tooling.
func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
