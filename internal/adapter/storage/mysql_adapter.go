package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/biosales/agent-sales/internal/core/domain"
)

// MySQLStockStore persists stock items. TryDecrement is implemented as a
// single conditional UPDATE checked via affected rows, so the availability
// check and the write are indivisible at the database level.
type MySQLStockStore struct {
	db *sql.DB
}

func NewMySQLStockStore(db *sql.DB) *MySQLStockStore {
	return &MySQLStockStore{db: db}
}

func (m *MySQLStockStore) Create(ctx context.Context, item *domain.StockItem) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock (id, product_name, quantity, price, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.ID, item.Name, item.Quantity, item.UnitPrice, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock: %w", err)
	}
	return nil
}

func (m *MySQLStockStore) Get(ctx context.Context, id string) (*domain.StockItem, error) {
	var item domain.StockItem
	err := m.db.QueryRowContext(ctx, `
		SELECT id, product_name, quantity, price, created_at, updated_at
		FROM stock WHERE id = ?`, id,
	).Scan(&item.ID, &item.Name, &item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	return &item, nil
}

func (m *MySQLStockStore) List(ctx context.Context) ([]domain.StockItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, product_name, quantity, price, created_at, updated_at
		FROM stock ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query stock: %w", err)
	}
	defer rows.Close()

	var items []domain.StockItem
	for rows.Next() {
		var item domain.StockItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Quantity, &item.UnitPrice, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLStockStore) Update(ctx context.Context, item *domain.StockItem) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE stock
		SET product_name = ?, quantity = ?, price = ?, updated_at = NOW()
		WHERE id = ?`,
		item.Name, item.Quantity, item.UnitPrice, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

func (m *MySQLStockStore) Delete(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM stock WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

func (m *MySQLStockStore) TryDecrement(ctx context.Context, id string, amount int) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE stock
		SET quantity = quantity - ?, updated_at = NOW()
		WHERE id = ? AND quantity >= ?`,
		amount, id, amount,
	)
	if err != nil {
		return 0, fmt.Errorf("update stock: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT quantity FROM stock WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrStockNotFound
		}
		if err != nil {
			return 0, fmt.Errorf("query stock: %w", err)
		}
		return 0, domain.ErrInsufficientStock
	}

	// The row lock taken by the UPDATE is still held, so this reads the
	// exact post-decrement value.
	var newQuantity int
	if err := tx.QueryRowContext(ctx, `SELECT quantity FROM stock WHERE id = ?`, id).Scan(&newQuantity); err != nil {
		return 0, fmt.Errorf("query stock: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return newQuantity, nil
}

func (m *MySQLStockStore) Restore(ctx context.Context, id string, amount int) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE stock
		SET quantity = quantity + ?, updated_at = NOW()
		WHERE id = ?`,
		amount, id,
	)
	if err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrStockNotFound
	}
	return nil
}

// MySQLTransactionLog is the append-only record of settled sales. Records
// are inserted once and never updated or deleted.
type MySQLTransactionLog struct {
	db *sql.DB
}

func NewMySQLTransactionLog(db *sql.DB) *MySQLTransactionLog {
	return &MySQLTransactionLog{db: db}
}

func (m *MySQLTransactionLog) Append(ctx context.Context, tx domain.SaleTransaction) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO transactions (id, stock_id, quantity, total_price, transaction_date)
		VALUES (?, ?, ?, ?, ?)`,
		tx.ID, tx.StockID, tx.Quantity, tx.TotalPrice, tx.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (m *MySQLTransactionLog) ListByStock(ctx context.Context, stockID string) ([]domain.SaleTransaction, error) {
	return m.list(ctx, `
		SELECT id, stock_id, quantity, total_price, transaction_date
		FROM transactions WHERE stock_id = ?
		ORDER BY transaction_date ASC`, stockID)
}

func (m *MySQLTransactionLog) ListAll(ctx context.Context) ([]domain.SaleTransaction, error) {
	return m.list(ctx, `
		SELECT id, stock_id, quantity, total_price, transaction_date
		FROM transactions
		ORDER BY transaction_date ASC`)
}

func (m *MySQLTransactionLog) list(ctx context.Context, query string, args ...any) ([]domain.SaleTransaction, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.SaleTransaction
	for rows.Next() {
		var tx domain.SaleTransaction
		if err := rows.Scan(&tx.ID, &tx.StockID, &tx.Quantity, &tx.TotalPrice, &tx.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// MySQLAgentStore handles agent CRUD.
type MySQLAgentStore struct {
	db *sql.DB
}

func NewMySQLAgentStore(db *sql.DB) *MySQLAgentStore {
	return &MySQLAgentStore{db: db}
}

func (m *MySQLAgentStore) Create(ctx context.Context, agent *domain.Agent) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, email, nationalId, role, biometric_data, password, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.Name, agent.Email, agent.NationalID, agent.Role,
		agent.BiometricData, agent.PasswordHash, agent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

func (m *MySQLAgentStore) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	var agent domain.Agent
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, email, nationalId, role, biometric_data, password, created_at
		FROM agents WHERE email = ? LIMIT 1`, email,
	).Scan(&agent.ID, &agent.Name, &agent.Email, &agent.NationalID, &agent.Role,
		&agent.BiometricData, &agent.PasswordHash, &agent.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query agent: %w", err)
	}
	return &agent, nil
}

func (m *MySQLAgentStore) List(ctx context.Context, role string) ([]domain.Agent, error) {
	query := `
		SELECT id, name, email, nationalId, role, biometric_data, password, created_at
		FROM agents`
	var args []any
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}
	query += ` ORDER BY created_at`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(&agent.ID, &agent.Name, &agent.Email, &agent.NationalID, &agent.Role,
			&agent.BiometricData, &agent.PasswordHash, &agent.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

func (m *MySQLAgentStore) Update(ctx context.Context, agent *domain.Agent) error {
	result, err := m.db.ExecContext(ctx, `
		UPDATE agents
		SET name = ?, email = ?, nationalId = ?, role = ?, password = ?
		WHERE id = ?`,
		agent.Name, agent.Email, agent.NationalID, agent.Role, agent.PasswordHash, agent.ID,
	)
	if err != nil {
		return fmt.Errorf("update agent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}

func (m *MySQLAgentStore) Delete(ctx context.Context, id string) error {
	result, err := m.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrAgentNotFound
	}
	return nil
}
