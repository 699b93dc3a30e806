package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vietddude/rpcwatch/internal/core/domain"
	"github.com/vietddude/rpcwatch/internal/infra/rpc/failover"
	"github.com/vietddude/rpcwatch/internal/infra/storage"
)

const defaultHistoryLimit = 100

type probeRow struct {
	SweepID   string    `db:"sweep_id"`
	Chain     string    `db:"chain"`
	RPCURL    string    `db:"rpc_url"`
	Status    string    `db:"status"`
	Error     string    `db:"error"`
	LatencyMS int64     `db:"latency_ms"`
	CheckedAt time.Time `db:"checked_at"`
}

type transitionRow struct {
	ID        string    `db:"id"`
	Chain     string    `db:"chain"`
	FromIndex int       `db:"from_index"`
	ToIndex   int       `db:"to_index"`
	FromURL   string    `db:"from_url"`
	ToURL     string    `db:"to_url"`
	Reason    string    `db:"reason"`
	State     string    `db:"state"`
	At        time.Time `db:"at"`
}

// ProbeRepo implements storage.HistoryRepository for PostgreSQL.
type ProbeRepo struct {
	db *DB
}

func NewProbeRepo(db *DB) *ProbeRepo {
	return &ProbeRepo{db: db}
}

func (r *ProbeRepo) SaveProbes(ctx context.Context, sweepID string, results []domain.HealthResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO probe_results (sweep_id, chain, rpc_url, status, error, latency_ms, checked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, res := range results {
		_, err := tx.ExecContext(ctx, query,
			sweepID,
			string(res.Chain),
			res.URL,
			string(res.Status),
			res.Error,
			res.Latency.Milliseconds(),
			res.CheckedAt,
		)
		if err != nil {
			return fmt.Errorf("insert probe result: %w", err)
		}
	}
	return tx.Commit()
}

func (r *ProbeRepo) SaveTransition(ctx context.Context, t failover.Transition) error {
	query := `
		INSERT INTO failover_transitions (id, chain, from_index, to_index, from_url, to_url, reason, state, at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		string(t.Chain),
		t.From,
		t.To,
		t.FromURL,
		t.ToURL,
		string(t.Reason),
		string(t.State),
		t.At,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (r *ProbeRepo) RecentProbes(ctx context.Context, chain domain.ChainAlias, limit int) ([]storage.ProbeRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows []probeRow
	query := `
		SELECT sweep_id, chain, rpc_url, status, error, latency_ms, checked_at
		FROM probe_results
		WHERE chain = $1
		ORDER BY checked_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &rows, query, string(chain), limit); err != nil {
		return nil, fmt.Errorf("select probe results: %w", err)
	}

	out := make([]storage.ProbeRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, storage.ProbeRecord{
			SweepID: row.SweepID,
			HealthResult: domain.HealthResult{
				Chain:     domain.ChainAlias(row.Chain),
				Status:    domain.HealthStatus(row.Status),
				URL:       row.RPCURL,
				Error:     row.Error,
				Latency:   time.Duration(row.LatencyMS) * time.Millisecond,
				CheckedAt: row.CheckedAt,
			},
		})
	}
	return out, nil
}

func (r *ProbeRepo) RecentTransitions(ctx context.Context, chain domain.ChainAlias, limit int) ([]failover.Transition, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	var rows []transitionRow
	query := `
		SELECT id, chain, from_index, to_index, from_url, to_url, reason, state, at
		FROM failover_transitions
		WHERE chain = $1
		ORDER BY at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &rows, query, string(chain), limit); err != nil {
		return nil, fmt.Errorf("select transitions: %w", err)
	}

	out := make([]failover.Transition, 0, len(rows))
	for _, row := range rows {
		out = append(out, failover.Transition{
			ID:      row.ID,
			Chain:   domain.ChainAlias(row.Chain),
			From:    row.FromIndex,
			To:      row.ToIndex,
			FromURL: row.FromURL,
			ToURL:   row.ToURL,
			Reason:  failover.Reason(row.Reason),
			State:   failover.State(row.State),
			At:      row.At,
		})
	}
	return out, nil
}

func (r *ProbeRepo) DeleteOlderThan(ctx context.Context, threshold time.Time) (int64, error) {
	var total int64

	res, err := r.db.ExecContext(ctx, `DELETE FROM probe_results WHERE checked_at < $1`, threshold)
	if err != nil {
		return 0, fmt.Errorf("prune probe results: %w", err)
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = r.db.ExecContext(ctx, `DELETE FROM failover_transitions WHERE at < $1`, threshold)
	if err != nil {
		return total, fmt.Errorf("prune transitions: %w", err)
	}
	n, _ = res.RowsAffected()
	total += n

	return total, nil
}
