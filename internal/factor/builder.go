// Package factor implements FactorBuilder, SliverFilter, and
// RoundingCorrector: turning distributed tile weights into the final
// (a_id, b_id, a_to_b, b_to_a) factor table.
package factor

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/zonetrans/engine/internal/weight"
)

// Row is one correspondence between a zone in layer A and a zone in layer
// B, with the two directional correspondence factors.
type Row struct {
	AID, BID string
	AToB     float64
	BToA     float64
	// ZeroWeightA/ZeroWeightB record that S_a(a) or S_b(b) was zero: the
	// corresponding factor is the NaN sentinel rather than a silent
	// division.
	ZeroWeightA bool
	ZeroWeightB bool
}

// Build aggregates distributed tiles into the factor table by running the
// three sums T(a,b), S_a(a), S_b(b) as SQL GROUP BY aggregates against an
// in-process DuckDB connection. These sums are literally a SQL GROUP BY
// SUM, so routing them through DuckDB rather than hand-rolled Go
// accumulation is the natural idiom for this component (see DESIGN.md).
func Build(ctx context.Context, conn *sql.DB, tiles []weight.DistributedTile) ([]Row, error) {
	if err := createTileTable(ctx, conn); err != nil {
		return nil, err
	}
	defer func() { _, _ = conn.ExecContext(ctx, `DROP TABLE IF EXISTS tiles`) }()

	if err := insertTiles(ctx, conn, tiles); err != nil {
		return nil, err
	}

	pairSums, err := querySums(ctx, conn, `SELECT a_id, b_id, SUM(weight) FROM tiles GROUP BY a_id, b_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate T(a,b): %w", err)
	}
	aSums, err := queryGroupSum(ctx, conn, `SELECT a_id, SUM(weight) FROM tiles GROUP BY a_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate S_a(a): %w", err)
	}
	bSums, err := queryGroupSum(ctx, conn, `SELECT b_id, SUM(weight) FROM tiles GROUP BY b_id`)
	if err != nil {
		return nil, fmt.Errorf("aggregate S_b(b): %w", err)
	}

	rows := make([]Row, 0, len(pairSums))
	for key, t := range pairSums {
		row := Row{AID: key.a, BID: key.b}

		sa := aSums[key.a]
		if sa == 0 {
			row.ZeroWeightA = true
			row.AToB = math.NaN()
		} else {
			row.AToB = t / sa
		}

		sb := bSums[key.b]
		if sb == 0 {
			row.ZeroWeightB = true
			row.BToA = math.NaN()
		} else {
			row.BToA = t / sb
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func createTileTable(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE tiles (
			a_id VARCHAR NOT NULL,
			b_id VARCHAR NOT NULL,
			weight DOUBLE NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create tiles table: %w", err)
	}
	return nil
}

func insertTiles(ctx context.Context, conn *sql.DB, tiles []weight.DistributedTile) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tile insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tiles (a_id, b_id, weight) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare tile insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tiles {
		if _, err := stmt.ExecContext(ctx, t.A, t.B, t.Weight); err != nil {
			return fmt.Errorf("insert tile (%s,%s): %w", t.A, t.B, err)
		}
	}
	return tx.Commit()
}

type pairKey struct{ a, b string }

func querySums(ctx context.Context, conn *sql.DB, query string) (map[pairKey]float64, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[pairKey]float64)
	for rows.Next() {
		var a, b string
		var sum float64
		if err := rows.Scan(&a, &b, &sum); err != nil {
			return nil, err
		}
		out[pairKey{a, b}] = sum
	}
	return out, rows.Err()
}

func queryGroupSum(ctx context.Context, conn *sql.DB, query string) (map[string]float64, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var id string
		var sum float64
		if err := rows.Scan(&id, &sum); err != nil {
			return nil, err
		}
		out[id] = sum
	}
	return out, rows.Err()
}
