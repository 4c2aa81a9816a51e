package orderstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
create table if not exists seen_orders (
	account text not null,
	position integer not null,
	order_id text not null,
	primary key (account, order_id)
);
`

// SQLite keeps the record in a sqlite database, one row per (account, order id).
type SQLite struct {
	db *sql.DB
}

var _ Backend = SQLite{}

// OpenSQLite opens (and creates if needed) the database at `path`, `:memory:` works too.
func OpenSQLite(path string) (SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return SQLite{}, err
	}
	// every connection to `:memory:` is its own database
	db.SetMaxOpenConns(1)

	_, err = db.Exec(sqliteSchema)
	if err != nil {
		db.Close()
		return SQLite{}, fmt.Errorf("create schema: %w", err)
	}
	return SQLite{db: db}, nil
}

func (s SQLite) Close() error {
	return s.db.Close()
}

func (s SQLite) Load(ctx context.Context) (map[string][]OrderID, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select account, order_id from seen_orders order by account, position",
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	seen := map[string][]OrderID{}
	for rows.Next() {
		var account, raw string
		err := rows.Scan(&account, &raw)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", ErrCorrupt, err)
		}
		id, err := ParseOrderID([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: account %s: %w", ErrCorrupt, account, err)
		}
		seen[account] = append(seen[account], id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return seen, nil
}

// Save replaces every row inside of a single transaction.
func (s SQLite) Save(ctx context.Context, seen map[string][]OrderID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, "delete from seen_orders")
	if err != nil {
		return fmt.Errorf("clear seen orders: %w", err)
	}

	stmt, err := tx.PrepareContext(
		ctx,
		"insert into seen_orders (account, position, order_id) values (?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for account, ids := range seen {
		for position, id := range ids {
			raw, err := id.MarshalJSON()
			if err != nil {
				return err
			}
			_, err = stmt.ExecContext(ctx, account, position, string(raw))
			if err != nil {
				return fmt.Errorf("insert %s/%s: %w", account, id, err)
			}
		}
	}

	return tx.Commit()
}
