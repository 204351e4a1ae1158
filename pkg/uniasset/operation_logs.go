package uniasset

import (
	"context"
	"database/sql"
)

const defaultLogPageSize = 50

// AddOperationLog appends an audit entry.
func (c *Core) AddOperationLog(ctx context.Context, log OperationLog) (int64, error) {
	var oldValue, newValue sql.NullFloat64
	if log.OldValue != nil {
		oldValue = sql.NullFloat64{Float64: log.OldValue.Float64(), Valid: true}
	}
	if log.NewValue != nil {
		newValue = sql.NullFloat64{Float64: log.NewValue.Float64(), Valid: true}
	}
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO operation_logs (operation_type, symbol, wallet_address, details, old_value, new_value)
		VALUES (?, ?, ?, ?, ?, ?)
	`, log.Operation, log.Symbol, log.Wallet, log.Details, oldValue, newValue)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert operation log", err)
	}
	return result.LastInsertId()
}

// GetOperationLogs returns audit entries, newest first.
func (c *Core) GetOperationLogs(ctx context.Context, limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = defaultLogPageSize
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, operation_type, symbol, wallet_address, details, old_value, new_value, created_at FROM operation_logs ORDER BY id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query operation logs", err)
	}
	defer rows.Close()

	logs := []OperationLog{}
	for rows.Next() {
		var log OperationLog
		var symbol, wallet, details, createdAt sql.NullString
		var oldValue, newValue sql.NullFloat64
		if err := rows.Scan(&log.ID, &log.Operation, &symbol, &wallet, &details, &oldValue, &newValue, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan operation log", err)
		}
		if symbol.Valid {
			log.Symbol = &symbol.String
		}
		if wallet.Valid {
			log.Wallet = &wallet.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if oldValue.Valid {
			log.OldValue = amountPtr(NewAmount(oldValue.Float64))
		}
		if newValue.Valid {
			log.NewValue = amountPtr(NewAmount(newValue.Float64))
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// record writes an audit entry. The store change already happened, so a
// failure is logged and swallowed.
func (c *Core) record(ctx context.Context, log OperationLog) {
	if _, err := c.AddOperationLog(ctx, log); err != nil {
		c.logger.Warn("operation log write failed", "operation", log.Operation, "err", err)
	}
}
