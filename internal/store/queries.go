package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/sells-group/cellar-valuation/internal/db"
	"github.com/sells-group/cellar-valuation/internal/model"
)

// Queries use ? placeholders; the Postgres store rebinds them to $n.

const valuationCols = `v.id, v.wine_id, v.vintage, v.price_estimate, v.price_low, v.price_high,
	v.source, v.source_url, v.source_wine_id, v.source_name, v.status, v.confidence,
	v.fetched_at, v.updated_at`

const criticCols = `c.id, c.wine_id, c.vintage, c.critic, c.score, c.note, c.source_url, c.source, c.updated_at`

const (
	qLookupWine = `SELECT w.id, w.name, p.name FROM wines w
	JOIN producers p ON p.id = w.producer_id
	WHERE w.id = ? AND w.user_id = ?`

	qInventoryPairs = `SELECT DISTINCT wine_id, COALESCE(vintage, 0) FROM inventory_lots
	WHERE user_id = ? ORDER BY 1, 2`

	qListUserIDs = `SELECT id FROM users ORDER BY id`

	qPortfolioTotals = `SELECT COALESCE(SUM(l.quantity), 0),
	COALESCE(SUM(l.quantity * l.purchase_price_per_bottle), 0),
	COALESCE(SUM(l.quantity * v.price_estimate), 0)
	FROM inventory_lots l
	LEFT JOIN wine_valuations v ON v.wine_id = l.wine_id AND v.vintage = COALESCE(l.vintage, 0)
	WHERE l.user_id = ?`

	qGetValuation = `SELECT ` + valuationCols + ` FROM wine_valuations v WHERE v.wine_id = ? AND v.vintage = ?`

	qGetValuationByID = `SELECT ` + valuationCols + ` FROM wine_valuations v
	JOIN wines w ON w.id = v.wine_id
	WHERE v.id = ? AND w.user_id = ?`

	qGetValuationByIDUnscoped = `SELECT ` + valuationCols + ` FROM wine_valuations v WHERE v.id = ?`

	qUpdateValuationStatus = `UPDATE wine_valuations SET status = ?, updated_at = ? WHERE id = ?`

	qListValuations = `SELECT ` + valuationCols + `, w.name, p.name FROM wine_valuations v
	JOIN wines w ON w.id = v.wine_id
	JOIN producers p ON p.id = w.producer_id
	WHERE w.user_id = ?
	ORDER BY p.name, w.name, v.vintage`

	qInsertCriticScore = `INSERT INTO wine_critic_scores (wine_id, vintage, critic, score, note, source_url, source, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`

	qGetCriticScore = `SELECT ` + criticCols + ` FROM wine_critic_scores c
	JOIN wines w ON w.id = c.wine_id
	WHERE c.id = ? AND w.user_id = ?`

	qDeleteCriticScore = `DELETE FROM wine_critic_scores WHERE id = ?`

	qListCriticScores = `SELECT ` + criticCols + `, w.name, p.name FROM wine_critic_scores c
	JOIN wines w ON w.id = c.wine_id
	JOIN producers p ON p.id = w.producer_id
	WHERE w.user_id = ?`
)

var valuationUpsert = db.UpsertConfig{
	Table: "wine_valuations",
	Columns: []string{
		"wine_id", "vintage", "price_estimate", "price_low", "price_high",
		"source", "source_url", "source_wine_id", "source_name",
		"status", "confidence", "fetched_at", "updated_at",
	},
	ConflictKeys: []string{"wine_id", "vintage"},
	Returning:    []string{"id"},
}

var criticUpsert = db.UpsertConfig{
	Table:        "wine_critic_scores",
	Columns:      []string{"wine_id", "vintage", "critic", "score", "note", "source_url", "source", "updated_at"},
	ConflictKeys: []string{"wine_id", "vintage", "critic"},
	Returning:    []string{"id"},
}

func valuationArgs(v *model.Valuation) []any {
	var fetched any
	if v.FetchedAt != nil {
		fetched = v.FetchedAt.UTC()
	}
	return []any{
		v.WineID, v.Key().VintageValue(), v.PriceEstimate, v.PriceLow, v.PriceHigh,
		v.Source, v.SourceURL, v.SourceWineID, v.SourceName,
		string(v.Status), v.Confidence, fetched, v.UpdatedAt.UTC(),
	}
}

func criticArgs(s *model.CriticScore) []any {
	return []any{
		s.WineID, s.Key().VintageValue(), string(s.Critic), s.Score,
		s.Note, s.SourceURL, s.Source, s.UpdatedAt.UTC(),
	}
}

// listCriticQuery appends the optional filter clauses.
func listCriticQuery(userID int64, f CriticFilter) (string, []any) {
	q := qListCriticScores
	args := []any{userID}
	if f.WineID != nil {
		q += ` AND c.wine_id = ?`
		args = append(args, *f.WineID)
	}
	if f.Vintage != nil {
		q += ` AND c.vintage = ?`
		args = append(args, *f.Vintage)
	}
	q += ` ORDER BY c.score DESC, c.critic`
	return q, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanValuation(row scannable, extra ...any) (*model.Valuation, error) {
	var (
		v                 model.Valuation
		vintage           int
		est, low, high    sql.NullFloat64
		confidence        sql.NullFloat64
		fetched           sql.NullTime
		status            string
		url, wid, srcName sql.NullString
		source            sql.NullString
	)
	dest := []any{
		&v.ID, &v.WineID, &vintage, &est, &low, &high,
		&source, &url, &wid, &srcName, &status, &confidence,
		&fetched, &v.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	v.Vintage = model.VintageFromValue(vintage)
	v.PriceEstimate = nullFloat(est)
	v.PriceLow = nullFloat(low)
	v.PriceHigh = nullFloat(high)
	v.Confidence = nullFloat(confidence)
	v.Source = source.String
	v.SourceURL = url.String
	v.SourceWineID = wid.String
	v.SourceName = srcName.String
	v.Status = model.ValuationStatus(status)
	if fetched.Valid {
		t := fetched.Time.UTC()
		v.FetchedAt = &t
	}
	v.UpdatedAt = v.UpdatedAt.UTC()
	return &v, nil
}

func scanValuationRow(row scannable) (*model.ValuationRow, error) {
	var r model.ValuationRow
	v, err := scanValuation(row, &r.WineName, &r.ProducerName)
	if err != nil {
		return nil, err
	}
	r.Valuation = *v
	return &r, nil
}

func scanCriticScore(row scannable, extra ...any) (*model.CriticScore, error) {
	var (
		s         model.CriticScore
		vintage   int
		critic    string
		note, url sql.NullString
	)
	dest := []any{&s.ID, &s.WineID, &vintage, &critic, &s.Score, &note, &url, &s.Source, &s.UpdatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	s.Vintage = model.VintageFromValue(vintage)
	s.Critic = model.Critic(critic)
	s.Note = note.String
	s.SourceURL = url.String
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func scanCriticScoreRow(row scannable) (*model.CriticScoreRow, error) {
	var r model.CriticScoreRow
	s, err := scanCriticScore(row, &r.WineName, &r.ProducerName)
	if err != nil {
		return nil, err
	}
	r.CriticScore = *s
	return &r, nil
}

func scanTotals(row scannable) (*model.PortfolioTotals, error) {
	var (
		t           model.PortfolioTotals
		cost, value sql.NullFloat64
	)
	if err := row.Scan(&t.Bottles, &cost, &value); err != nil {
		return nil, err
	}
	t.Cost = cost.Float64
	t.Value = value.Float64
	return &t, nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Float64
	return &f
}

func mustUpsertSQL(cfg db.UpsertConfig, ph db.Placeholder) string {
	q, err := db.UpsertSQL(cfg, ph)
	if err != nil {
		panic(err)
	}
	return q
}

var (
	pgValuationUpsert     = mustUpsertSQL(valuationUpsert, db.Dollar)
	pgCriticUpsert        = mustUpsertSQL(criticUpsert, db.Dollar)
	sqliteValuationUpsert = mustUpsertSQL(valuationUpsert, db.Question)
	sqliteCriticUpsert    = mustUpsertSQL(criticUpsert, db.Question)
)

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows)
}
