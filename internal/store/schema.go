package store

// Table names double as realtime channel names.
const (
	TableProfiles        = "profiles"
	TableTransactions    = "transactions"
	TableCategories      = "categories"
	TableGoals           = "goals"
	TableFriendships     = "friendships"
	TableChallenges      = "challenges"
	TableBadges          = "badges"
	TableSubscriptions   = "subscriptions"
	TableBankConnections = "bank_connections"
	TableAuditLog        = "security_audit_log"
	TableRankings        = "monthly_rankings"
)

// schemaSQL is portable between SQLite and PostgreSQL. Timestamps are
// RFC 3339 UTC text and amounts are decimal text so both engines compare
// and round-trip them identically.
var schemaSQL = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
    id              TEXT PRIMARY KEY,
    display_name    TEXT NOT NULL,
    phone           TEXT NOT NULL DEFAULT '',
    score           INTEGER NOT NULL DEFAULT 0,
    created_at      TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS categories (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL DEFAULT '',
    name            TEXT NOT NULL,
    kind            TEXT NOT NULL,
    monthly_budget  TEXT NOT NULL DEFAULT '0',
    UNIQUE (user_id, name)
)`,
	`CREATE TABLE IF NOT EXISTS transactions (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    kind            TEXT NOT NULL,
    amount          TEXT NOT NULL,
    description     TEXT NOT NULL,
    merchant        TEXT NOT NULL DEFAULT '',
    category_id     TEXT NOT NULL DEFAULT '',
    source          TEXT NOT NULL DEFAULT 'manual',
    external_id     TEXT,
    occurred_at     TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    UNIQUE (user_id, external_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, occurred_at)`,
	`CREATE TABLE IF NOT EXISTS goals (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL,
    name                TEXT NOT NULL,
    target              TEXT NOT NULL,
    saved               TEXT NOT NULL DEFAULT '0',
    daily_contribution  TEXT NOT NULL DEFAULT '0',
    risk_level          TEXT NOT NULL DEFAULT '',
    deadline            TEXT NOT NULL DEFAULT '',
    created_at          TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS friendships (
    id              TEXT PRIMARY KEY,
    requester_id    TEXT NOT NULL,
    addressee_id    TEXT NOT NULL,
    status          TEXT NOT NULL,
    created_at      TEXT NOT NULL,
    responded_at    TEXT NOT NULL DEFAULT '',
    UNIQUE (requester_id, addressee_id)
)`,
	`CREATE TABLE IF NOT EXISTS challenges (
    id              TEXT PRIMARY KEY,
    creator_id      TEXT NOT NULL,
    title           TEXT NOT NULL,
    kind            TEXT NOT NULL,
    target          TEXT NOT NULL DEFAULT '0',
    starts_at       TEXT NOT NULL,
    ends_at         TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS challenge_participants (
    challenge_id    TEXT NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
    user_id         TEXT NOT NULL,
    progress        TEXT NOT NULL DEFAULT '0',
    joined_at       TEXT NOT NULL,
    PRIMARY KEY (challenge_id, user_id)
)`,
	`CREATE TABLE IF NOT EXISTS badges (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    code            TEXT NOT NULL,
    name            TEXT NOT NULL,
    awarded_at      TEXT NOT NULL,
    UNIQUE (user_id, code)
)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    merchant        TEXT NOT NULL,
    amount          TEXT NOT NULL,
    cadence         TEXT NOT NULL,
    next_charge     TEXT NOT NULL DEFAULT '',
    status          TEXT NOT NULL,
    source          TEXT NOT NULL,
    confidence      DOUBLE PRECISION NOT NULL DEFAULT 0,
    updated_at      TEXT NOT NULL,
    UNIQUE (user_id, merchant, cadence)
)`,
	`CREATE TABLE IF NOT EXISTS bank_connections (
    id                  TEXT PRIMARY KEY,
    user_id             TEXT NOT NULL,
    institution         TEXT NOT NULL,
    item_id             TEXT NOT NULL UNIQUE,
    access_token_enc    TEXT NOT NULL,
    status              TEXT NOT NULL,
    last_synced_at      TEXT NOT NULL DEFAULT '',
    created_at          TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS security_audit_log (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    action          TEXT NOT NULL,
    detail          TEXT NOT NULL DEFAULT '',
    remote_ip       TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS monthly_rankings (
    month           TEXT NOT NULL,
    user_id         TEXT NOT NULL,
    rank            INTEGER NOT NULL,
    score           DOUBLE PRECISION NOT NULL,
    savings_rate    DOUBLE PRECISION NOT NULL,
    income          TEXT NOT NULL,
    expense         TEXT NOT NULL,
    PRIMARY KEY (month, user_id)
)`,
}
