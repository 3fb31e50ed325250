package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cellar-valuation/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// MigrateCatalog creates minimal inventory tables for local databases.
func (s *SQLiteStore) MigrateCatalog(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteCatalog)
	return eris.Wrap(err, "sqlite: migrate catalog")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LookupWine(ctx context.Context, userID, wineID int64) (*model.Wine, error) {
	var w model.Wine
	err := s.db.QueryRowContext(ctx, qLookupWine, wineID, userID).Scan(&w.ID, &w.Name, &w.ProducerName)
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: lookup wine %d", wineID)
	}
	return &w, nil
}

func (s *SQLiteStore) InventoryPairs(ctx context.Context, userID int64) ([]model.Pair, error) {
	rows, err := s.db.QueryContext(ctx, qInventoryPairs, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: inventory pairs")
	}
	defer rows.Close()

	var pairs []model.Pair
	for rows.Next() {
		var (
			wineID  int64
			vintage int
		)
		if err := rows.Scan(&wineID, &vintage); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan inventory pair")
		}
		pairs = append(pairs, model.Pair{WineID: wineID, Vintage: model.VintageFromValue(vintage)})
	}
	return pairs, eris.Wrap(rows.Err(), "sqlite: iterate inventory pairs")
}

func (s *SQLiteStore) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, qListUserIDs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list users")
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan user id")
		}
		ids = append(ids, id)
	}
	return ids, eris.Wrap(rows.Err(), "sqlite: iterate users")
}

func (s *SQLiteStore) PortfolioTotals(ctx context.Context, userID int64) (*model.PortfolioTotals, error) {
	t, err := scanTotals(s.db.QueryRowContext(ctx, qPortfolioTotals, userID))
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: portfolio totals")
	}
	return t, nil
}

// GetValuation returns the valuation for the pair, or nil if none exists.
func (s *SQLiteStore) GetValuation(ctx context.Context, wineID int64, vintage *int) (*model.Valuation, error) {
	key := model.Pair{WineID: wineID, Vintage: vintage}
	v, err := scanValuation(s.db.QueryRowContext(ctx, qGetValuation, wineID, key.VintageValue()))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get valuation %s", key)
	}
	return v, nil
}

func (s *SQLiteStore) GetValuationByID(ctx context.Context, userID, id int64) (*model.Valuation, error) {
	v, err := scanValuation(s.db.QueryRowContext(ctx, qGetValuationByID, id, userID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get valuation %d", id)
	}
	return v, nil
}

func (s *SQLiteStore) UpsertValuation(ctx context.Context, v *model.Valuation) (*model.Valuation, error) {
	out := *v
	out.UpdatedAt = time.Now().UTC()
	if err := s.db.QueryRowContext(ctx, sqliteValuationUpsert, valuationArgs(&out)...).Scan(&out.ID); err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert valuation %s", out.Key())
	}
	return &out, nil
}

func (s *SQLiteStore) UpdateValuationStatus(ctx context.Context, id int64, status model.ValuationStatus) (*model.Valuation, error) {
	res, err := s.db.ExecContext(ctx, qUpdateValuationStatus, string(status), time.Now().UTC(), id)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update valuation status %d", id)
	}
	if err := checkRowsAffected(res); err != nil {
		return nil, err
	}
	v, err := scanValuation(s.db.QueryRowContext(ctx, qGetValuationByIDUnscoped, id))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: reload valuation %d", id)
	}
	return v, nil
}

func (s *SQLiteStore) ListValuations(ctx context.Context, userID int64) ([]model.ValuationRow, error) {
	rows, err := s.db.QueryContext(ctx, qListValuations, userID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list valuations")
	}
	defer rows.Close()

	var out []model.ValuationRow
	for rows.Next() {
		r, err := scanValuationRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan valuation")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate valuations")
}

func (s *SQLiteStore) UpsertCriticScore(ctx context.Context, cs *model.CriticScore) (*model.CriticScore, error) {
	out := *cs
	out.UpdatedAt = time.Now().UTC()
	if err := s.db.QueryRowContext(ctx, sqliteCriticUpsert, criticArgs(&out)...).Scan(&out.ID); err != nil {
		return nil, eris.Wrapf(err, "sqlite: upsert critic score %s %s", out.Key(), out.Critic)
	}
	return &out, nil
}

func (s *SQLiteStore) InsertCriticScore(ctx context.Context, cs *model.CriticScore) (*model.CriticScore, error) {
	out := *cs
	out.UpdatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx, qInsertCriticScore, criticArgs(&out)...).Scan(&out.ID)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert critic score %s %s", out.Key(), out.Critic)
	}
	return &out, nil
}

func (s *SQLiteStore) GetCriticScore(ctx context.Context, userID, id int64) (*model.CriticScore, error) {
	cs, err := scanCriticScore(s.db.QueryRowContext(ctx, qGetCriticScore, id, userID))
	if isNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get critic score %d", id)
	}
	return cs, nil
}

func (s *SQLiteStore) DeleteCriticScore(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, qDeleteCriticScore, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete critic score %d", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) ListCriticScores(ctx context.Context, userID int64, filter CriticFilter) ([]model.CriticScoreRow, error) {
	q, args := listCriticQuery(userID, filter)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list critic scores")
	}
	defer rows.Close()

	var out []model.CriticScoreRow
	for rows.Next() {
		r, err := scanCriticScoreRow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan critic score")
		}
		out = append(out, *r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate critic scores")
}

// checkRowsAffected returns ErrNotFound if no rows were affected.
func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
