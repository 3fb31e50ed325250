package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cellar-valuation/internal/db"
	"github.com/sells-group/cellar-valuation/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Migrate creates the valuation and critic score tables.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// MigrateCatalog creates minimal inventory tables for development databases
// that are not shared with the inventory service.
func (s *PostgresStore) MigrateCatalog(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresCatalog)
	return eris.Wrap(err, "postgres: migrate catalog")
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) LookupWine(ctx context.Context, userID, wineID int64) (*model.Wine, error) {
	var w model.Wine
	err := s.pool.QueryRow(ctx, db.Rebind(qLookupWine), wineID, userID).Scan(&w.ID, &w.Name, &w.ProducerName)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: lookup wine %d", wineID)
	}
	return &w, nil
}

func (s *PostgresStore) InventoryPairs(ctx context.Context, userID int64) ([]model.Pair, error) {
	rows, err := s.pool.Query(ctx, db.Rebind(qInventoryPairs), userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: inventory pairs")
	}
	defer rows.Close()

	var pairs []model.Pair
	for rows.Next() {
		var (
			wineID  int64
			vintage int
		)
		if err := rows.Scan(&wineID, &vintage); err != nil {
			return nil, eris.Wrap(err, "postgres: scan inventory pair")
		}
		pairs = append(pairs, model.Pair{WineID: wineID, Vintage: model.VintageFromValue(vintage)})
	}
	return pairs, eris.Wrap(rows.Err(), "postgres: iterate inventory pairs")
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.pool.Query(ctx, qListUserIDs)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list users")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan user id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "postgres: iterate users")
}

func (s *PostgresStore) PortfolioTotals(ctx context.Context, userID int64) (*model.PortfolioTotals, error) {
	t, err := scanTotals(s.pool.QueryRow(ctx, db.Rebind(qPortfolioTotals), userID))
	if err != nil {
		return nil, eris.Wrap(err, "postgres: portfolio totals")
	}
	return t, nil
}

// GetValuation returns the valuation for the pair, or nil if none exists.
func (s *PostgresStore) GetValuation(ctx context.Context, wineID int64, vintage *int) (*model.Valuation, error) {
	key := model.Pair{WineID: wineID, Vintage: vintage}
	v, err := scanValuation(s.pool.QueryRow(ctx, db.Rebind(qGetValuation), wineID, key.VintageValue()))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get valuation %s", key)
	}
	return v, nil
}

func (s *PostgresStore) GetValuationByID(ctx context.Context, userID, id int64) (*model.Valuation, error) {
	v, err := scanValuation(s.pool.QueryRow(ctx, db.Rebind(qGetValuationByID), id, userID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get valuation %d", id)
	}
	return v, nil
}

// UpsertValuation inserts or fully overwrites the valuation keyed by
// (wine_id, vintage).
func (s *PostgresStore) UpsertValuation(ctx context.Context, v *model.Valuation) (*model.Valuation, error) {
	out := *v
	out.UpdatedAt = time.Now().UTC()
	if err := s.pool.QueryRow(ctx, pgValuationUpsert, valuationArgs(&out)...).Scan(&out.ID); err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert valuation %s", out.Key())
	}
	return &out, nil
}

func (s *PostgresStore) UpdateValuationStatus(ctx context.Context, id int64, status model.ValuationStatus) (*model.Valuation, error) {
	tag, err := s.pool.Exec(ctx, db.Rebind(qUpdateValuationStatus), string(status), time.Now().UTC(), id)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: update valuation status %d", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	v, err := scanValuation(s.pool.QueryRow(ctx, db.Rebind(qGetValuationByIDUnscoped), id))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: reload valuation %d", id)
	}
	return v, nil
}

func (s *PostgresStore) ListValuations(ctx context.Context, userID int64) ([]model.ValuationRow, error) {
	rows, err := s.pool.Query(ctx, db.Rebind(qListValuations), userID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list valuations")
	}
	defer rows.Close()

	var out []model.ValuationRow
	for rows.Next() {
		r, err := scanValuationRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan valuation")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate valuations")
}

// UpsertCriticScore inserts or overwrites the score keyed by
// (wine_id, vintage, critic).
func (s *PostgresStore) UpsertCriticScore(ctx context.Context, cs *model.CriticScore) (*model.CriticScore, error) {
	out := *cs
	out.UpdatedAt = time.Now().UTC()
	if err := s.pool.QueryRow(ctx, pgCriticUpsert, criticArgs(&out)...).Scan(&out.ID); err != nil {
		return nil, eris.Wrapf(err, "postgres: upsert critic score %s %s", out.Key(), out.Critic)
	}
	return &out, nil
}

// InsertCriticScore inserts a new score and returns ErrConflict when the
// critic already scored the pair.
func (s *PostgresStore) InsertCriticScore(ctx context.Context, cs *model.CriticScore) (*model.CriticScore, error) {
	out := *cs
	out.UpdatedAt = time.Now().UTC()
	err := s.pool.QueryRow(ctx, db.Rebind(qInsertCriticScore), criticArgs(&out)...).Scan(&out.ID)
	if isUniqueViolation(err) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert critic score %s %s", out.Key(), out.Critic)
	}
	return &out, nil
}

func (s *PostgresStore) GetCriticScore(ctx context.Context, userID, id int64) (*model.CriticScore, error) {
	cs, err := scanCriticScore(s.pool.QueryRow(ctx, db.Rebind(qGetCriticScore), id, userID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get critic score %d", id)
	}
	return cs, nil
}

func (s *PostgresStore) DeleteCriticScore(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, db.Rebind(qDeleteCriticScore), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete critic score %d", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListCriticScores(ctx context.Context, userID int64, filter CriticFilter) ([]model.CriticScoreRow, error) {
	q, args := listCriticQuery(userID, filter)
	rows, err := s.pool.Query(ctx, db.Rebind(q), args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list critic scores")
	}
	defer rows.Close()

	var out []model.CriticScoreRow
	for rows.Next() {
		r, err := scanCriticScoreRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan critic score")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate critic scores")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
