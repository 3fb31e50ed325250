package store

// Non-vintage rows store vintage 0 so the unique keys hold without NULL
// semantics getting in the way.

const postgresMigration = `
CREATE TABLE IF NOT EXISTS wine_valuations (
	id             BIGSERIAL PRIMARY KEY,
	wine_id        BIGINT NOT NULL,
	vintage        INT NOT NULL DEFAULT 0,
	price_estimate NUMERIC(12,2),
	price_low      NUMERIC(12,2),
	price_high     NUMERIC(12,2),
	source         TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	source_wine_id TEXT NOT NULL DEFAULT '',
	source_name    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'matched', 'needs_review', 'confirmed', 'no_match', 'manual')),
	confidence     NUMERIC(3,2),
	fetched_at     TIMESTAMPTZ,
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (wine_id, vintage)
);

CREATE TABLE IF NOT EXISTS wine_critic_scores (
	id         BIGSERIAL PRIMARY KEY,
	wine_id    BIGINT NOT NULL,
	vintage    INT NOT NULL DEFAULT 0,
	critic     TEXT NOT NULL,
	score      INT NOT NULL CHECK (score BETWEEN 0 AND 100),
	note       TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'manual',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (wine_id, vintage, critic)
);

CREATE INDEX IF NOT EXISTS idx_wine_valuations_status ON wine_valuations(status);
CREATE INDEX IF NOT EXISTS idx_wine_critic_scores_wine ON wine_critic_scores(wine_id, vintage);
`

const postgresCatalog = `
CREATE TABLE IF NOT EXISTS users (
	id    BIGSERIAL PRIMARY KEY,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS producers (
	id      BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS wines (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users(id),
	producer_id BIGINT NOT NULL REFERENCES producers(id),
	name        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory_lots (
	id                        BIGSERIAL PRIMARY KEY,
	user_id                   BIGINT NOT NULL REFERENCES users(id),
	wine_id                   BIGINT NOT NULL REFERENCES wines(id),
	vintage                   INT,
	quantity                  INT NOT NULL DEFAULT 0,
	purchase_price_per_bottle NUMERIC(12,2)
);

CREATE INDEX IF NOT EXISTS idx_inventory_lots_user ON inventory_lots(user_id);
`

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS wine_valuations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	wine_id        INTEGER NOT NULL,
	vintage        INTEGER NOT NULL DEFAULT 0,
	price_estimate REAL,
	price_low      REAL,
	price_high     REAL,
	source         TEXT NOT NULL DEFAULT '',
	source_url     TEXT NOT NULL DEFAULT '',
	source_wine_id TEXT NOT NULL DEFAULT '',
	source_name    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending'
		CHECK (status IN ('pending', 'matched', 'needs_review', 'confirmed', 'no_match', 'manual')),
	confidence     REAL,
	fetched_at     DATETIME,
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (wine_id, vintage)
);

CREATE TABLE IF NOT EXISTS wine_critic_scores (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	wine_id    INTEGER NOT NULL,
	vintage    INTEGER NOT NULL DEFAULT 0,
	critic     TEXT NOT NULL,
	score      INTEGER NOT NULL CHECK (score BETWEEN 0 AND 100),
	note       TEXT NOT NULL DEFAULT '',
	source_url TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT 'manual',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (wine_id, vintage, critic)
);

CREATE INDEX IF NOT EXISTS idx_wine_valuations_status ON wine_valuations(status);
CREATE INDEX IF NOT EXISTS idx_wine_critic_scores_wine ON wine_critic_scores(wine_id, vintage);
`

const sqliteCatalog = `
CREATE TABLE IF NOT EXISTS users (
	id    INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS producers (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	name    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS wines (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id     INTEGER NOT NULL REFERENCES users(id),
	producer_id INTEGER NOT NULL REFERENCES producers(id),
	name        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory_lots (
	id                        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id                   INTEGER NOT NULL REFERENCES users(id),
	wine_id                   INTEGER NOT NULL REFERENCES wines(id),
	vintage                   INTEGER,
	quantity                  INTEGER NOT NULL DEFAULT 0,
	purchase_price_per_bottle REAL
);

CREATE INDEX IF NOT EXISTS idx_inventory_lots_user ON inventory_lots(user_id);
`
