package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mainframe-ci/endevor-fetch/internal/model"
)

// Store is the sqlite backed Registry shared by every job on a controller.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the connections database at dbPath.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; serializing the pool keeps concurrent
	// FindOrCreate calls from tripping over SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS connections (
			id TEXT PRIMARY KEY,
			description TEXT NOT NULL DEFAULT '',
			host TEXT NOT NULL,
			port TEXT NOT NULL DEFAULT '',
			protocol TEXT NOT NULL DEFAULT '',
			code_page TEXT NOT NULL,
			timeout TEXT NOT NULL DEFAULT '',
			UNIQUE (host, port, code_page)
		)`,
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FindByID(ctx context.Context, id string) (model.HostConnection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, host, port, protocol, code_page, timeout
		 FROM connections WHERE id=?`, id,
	)
	return scanConnection(row)
}

func (s *Store) FindByHostAndCodePage(ctx context.Context, hostPort, codePage string) (model.HostConnection, error) {
	host, port := model.SplitHostPort(hostPort)
	row := s.db.QueryRowContext(ctx,
		`SELECT id, description, host, port, protocol, code_page, timeout
		 FROM connections WHERE host=? AND port=? AND code_page=?`, host, port, codePage,
	)
	return scanConnection(row)
}

func (s *Store) Add(ctx context.Context, conn model.HostConnection) error {
	// INSERT OR IGNORE suppresses duplicates on (host, port, code_page).
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO connections (id, description, host, port, protocol, code_page, timeout)
		 VALUES (?,?,?,?,?,?,?);`,
		conn.ID, conn.Description, conn.Host, conn.Port, conn.Protocol, conn.CodePage, conn.Timeout,
	)
	if err != nil {
		return fmt.Errorf("executing sql insert failed: %w", err)
	}
	return nil
}

func (s *Store) FindOrCreate(ctx context.Context, hostPort, codePage string) (model.HostConnection, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.HostConnection{}, err
	}
	defer func(ctx context.Context) {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.ErrorContext(ctx, "Calling `tx.Rollback()` failed.",
				slog.String("host", hostPort), slog.String("codePage", codePage))
		}
	}(ctx)

	host, port := model.SplitHostPort(hostPort)
	row := tx.QueryRowContext(ctx,
		`SELECT id, description, host, port, protocol, code_page, timeout
		 FROM connections WHERE host=? AND port=? AND code_page=?`, host, port, codePage,
	)
	conn, err := scanConnection(row)
	switch {
	case err == nil:
		if err := tx.Commit(); err != nil {
			return model.HostConnection{}, fmt.Errorf("committing transaction failed: %w", err)
		}
		return conn, nil
	case !errors.Is(err, ErrNotFound):
		return model.HostConnection{}, err
	}

	conn = model.NewHostConnection(hostPort+" "+codePage, hostPort, codePage, "", "")
	_, err = tx.ExecContext(ctx,
		`INSERT INTO connections (id, description, host, port, protocol, code_page, timeout)
		 VALUES (?,?,?,?,?,?,?);`,
		conn.ID, conn.Description, conn.Host, conn.Port, conn.Protocol, conn.CodePage, conn.Timeout,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// another process registered the connection between our read
			// and write, hand back its row
			_ = tx.Rollback()
			return s.FindByHostAndCodePage(ctx, hostPort, codePage)
		}
		return model.HostConnection{}, fmt.Errorf("executing sql insert failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.HostConnection{}, fmt.Errorf("committing transaction failed: %w", err)
	}
	return conn, nil
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// List returns every registered connection, ordered by description.
func (s *Store) List(ctx context.Context) ([]model.HostConnection, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, description, host, port, protocol, code_page, timeout
		 FROM connections ORDER BY description, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("executing sql query failed: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []model.HostConnection
	for rows.Next() {
		var conn model.HostConnection
		err := rows.Scan(&conn.ID, &conn.Description, &conn.Host, &conn.Port,
			&conn.Protocol, &conn.CodePage, &conn.Timeout)
		if err != nil {
			return nil, fmt.Errorf("scanning sql row failed: %w", err)
		}
		out = append(out, conn)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConnection(row scanner) (model.HostConnection, error) {
	var conn model.HostConnection
	err := row.Scan(&conn.ID, &conn.Description, &conn.Host, &conn.Port,
		&conn.Protocol, &conn.CodePage, &conn.Timeout)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return model.HostConnection{}, ErrNotFound
	case err != nil:
		return model.HostConnection{}, fmt.Errorf("executing sql query failed: %w", err)
	}
	return conn, nil
}
