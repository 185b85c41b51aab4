package postgres

// Embedded migration SQL. One row per group; the full penalty state lives in
// a JSONB column so load and save stay single-statement operations.

const migration001Up = `
CREATE TABLE IF NOT EXISTS penalty_states (
    group_id   TEXT PRIMARY KEY,
    state      JSONB NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
`

const migration001Down = `
DROP TABLE IF EXISTS penalty_states;
`

const migration002Up = `
CREATE INDEX IF NOT EXISTS idx_penalty_states_updated_at
    ON penalty_states (updated_at);
`

const migration002Down = `
DROP INDEX IF EXISTS idx_penalty_states_updated_at;
`

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_penalty_states",
			UpSQL:   migration001Up,
			DownSQL: migration001Down,
		},
		{
			Version: 2,
			Name:    "index_penalty_states_updated_at",
			UpSQL:   migration002Up,
			DownSQL: migration002Down,
		},
	}
}
