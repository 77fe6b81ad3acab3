package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// diffJoin reconciles a join table's rows for one owner against the
// desired child ids: children not yet linked are inserted, linked
// children no longer desired are deleted. Existing rows are left alone.
func diffJoin(ctx context.Context, tx *sql.Tx, table, ownerCol, childCol string, ownerID int64, want []int64) error {
	rows, err := tx.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s = ?", childCol, table, ownerCol), ownerID)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	current := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan %s: %w", table, err)
		}
		current[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate %s: %w", table, err)
	}

	wanted := map[int64]bool{}
	for _, id := range want {
		wanted[id] = true
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, ownerCol, childCol)
	for _, id := range want {
		if !current[id] {
			if _, err := tx.ExecContext(ctx, insert, ownerID, id); err != nil {
				return fmt.Errorf("failed to insert into %s: %w", table, err)
			}
			current[id] = true
		}
	}

	remove := fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ?", table, ownerCol, childCol)
	for id := range current {
		if !wanted[id] {
			if _, err := tx.ExecContext(ctx, remove, ownerID, id); err != nil {
				return fmt.Errorf("failed to delete from %s: %w", table, err)
			}
		}
	}

	return nil
}

// insertJoins links each child id to the owner
func insertJoins(ctx context.Context, tx *sql.Tx, table, ownerCol, childCol string, ownerID int64, children []int64) error {
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)", table, ownerCol, childCol)
	for _, id := range children {
		if _, err := tx.ExecContext(ctx, query, ownerID, id); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// clearJoins removes every join row owned by ownerID in col
func clearJoins(ctx context.Context, tx *sql.Tx, table, col string, ownerID int64) error {
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, col), ownerID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	return nil
}
