package sweep

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/fumin/ctm/tensor"
)

const tableResults = "results"

// Store persists sweep points in a sqlite database, keyed by
// (model, chi, temperature). Re-running a sweep overwrites its points.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	sqlStr := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	model TEXT,
	chi INTEGER,
	temperature REAL,
	iterations INTEGER,
	converged INTEGER,
	z REAL, m REAL, f REAL, es REAL, xi REAL, m_fixed REAL,
	corner TEXT,
	edge TEXT,
	PRIMARY KEY (model, chi, temperature)) STRICT`, tableResults)
	if _, err := db.ExecContext(ctx, sqlStr); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Put inserts or replaces a sweep point.
func (s *Store) Put(ctx context.Context, p Point) error {
	corner, err := json.Marshal(p.C)
	if err != nil {
		return errors.Wrap(err, "")
	}
	edge, err := json.Marshal(p.T)
	if err != nil {
		return errors.Wrap(err, "")
	}

	sqlStr := fmt.Sprintf(`INSERT OR REPLACE INTO %s
	(model, chi, temperature, iterations, converged, z, m, f, es, xi, m_fixed, corner, edge)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, tableResults)
	args := []any{p.Model, p.Chi, p.Temperature, p.Iterations, p.Converged, p.Z, p.M, p.F, p.Es, p.Xi, p.MFixed, string(corner), string(edge)}
	if _, err := s.db.ExecContext(ctx, sqlStr, args...); err != nil {
		return errors.Wrap(err, fmt.Sprintf("%s %f", p.Model, p.Temperature))
	}
	return nil
}

// Points returns the stored points of a sweep in ascending temperature
// order.
func (s *Store) Points(ctx context.Context, model string, chi int) ([]Point, error) {
	sqlStr := fmt.Sprintf(`SELECT model, chi, temperature, iterations, converged, z, m, f, es, xi, m_fixed, corner, edge
	FROM %s WHERE model=? AND chi=? ORDER BY temperature`, tableResults)
	rows, err := s.db.QueryContext(ctx, sqlStr, model, chi)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	points := make([]Point, 0)
	for rows.Next() {
		var p Point
		var corner, edge string
		if err := rows.Scan(&p.Model, &p.Chi, &p.Temperature, &p.Iterations, &p.Converged, &p.Z, &p.M, &p.F, &p.Es, &p.Xi, &p.MFixed, &corner, &edge); err != nil {
			return nil, errors.Wrap(err, "")
		}
		p.C = new(tensor.Dense)
		if err := json.Unmarshal([]byte(corner), p.C); err != nil {
			return nil, errors.Wrap(err, "")
		}
		p.T = new(tensor.Dense)
		if err := json.Unmarshal([]byte(edge), p.T); err != nil {
			return nil, errors.Wrap(err, "")
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return points, nil
}
