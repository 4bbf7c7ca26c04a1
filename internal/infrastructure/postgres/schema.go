package postgres

// Schema creates the catalog and prediction tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS products (
	id          SERIAL PRIMARY KEY,
	name        TEXT NOT NULL,
	brand       TEXT NOT NULL,
	price       NUMERIC(10,2),
	image_url   TEXT,
	rating      NUMERIC(3,2),
	reviews     INTEGER DEFAULT 0,
	description TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS product_specs (
	id               SERIAL PRIMARY KEY,
	product_id       INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	display_size     TEXT,
	processor        TEXT,
	ram              TEXT,
	storage          TEXT,
	camera           TEXT,
	battery          TEXT,
	operating_system TEXT
);

CREATE TABLE IF NOT EXISTS product_features (
	id           SERIAL PRIMARY KEY,
	product_id   INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	feature_name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS predictions (
	id               UUID PRIMARY KEY,
	user_id          TEXT NOT NULL,
	brand            TEXT,
	display_size     TEXT,
	processor        TEXT,
	ram              TEXT,
	storage          TEXT,
	camera           TEXT,
	battery          TEXT,
	predicted_price  NUMERIC(10,2) NOT NULL,
	confidence_score NUMERIC(5,2) NOT NULL,
	model_version    TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_predictions_user_created ON predictions (user_id, created_at DESC);
`

const listProductsQuery = `
SELECT
	p.id::text,
	p.name,
	LOWER(p.brand),
	COALESCE(ps.display_size, ''),
	COALESCE(ps.ram, ''),
	COALESCE(ps.storage, ''),
	COALESCE(ps.camera, ''),
	COALESCE(ps.battery, ''),
	COALESCE(ps.processor, ''),
	COALESCE(ps.operating_system, ''),
	COALESCE(p.image_url, ''),
	COALESCE(p.price, 0)::float8,
	COALESCE(p.rating, 0)::float8,
	COALESCE(p.reviews, 0),
	COALESCE(p.description, ''),
	ARRAY_REMOVE(ARRAY_AGG(pf.feature_name ORDER BY pf.id), NULL)
FROM products p
LEFT JOIN product_specs ps ON p.id = ps.product_id
LEFT JOIN product_features pf ON p.id = pf.product_id
GROUP BY p.id, ps.id
ORDER BY p.created_at DESC, p.id`

const savePredictionQuery = `
INSERT INTO predictions (
	id, user_id, brand, display_size, processor, ram, storage, camera, battery,
	predicted_price, confidence_score, model_version
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const listUserPredictionsQuery = `
SELECT
	id::text, user_id,
	COALESCE(brand, ''), COALESCE(display_size, ''), COALESCE(processor, ''),
	COALESCE(ram, ''), COALESCE(storage, ''), COALESCE(camera, ''), COALESCE(battery, ''),
	predicted_price::float8, confidence_score::float8, model_version, created_at
FROM predictions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
