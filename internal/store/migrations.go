package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations. The table layout
// matches the session files written by other agent tooling, so existing
// databases can be reused.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create agent sessions and messages",
		SQL: `
			CREATE TABLE IF NOT EXISTS agent_sessions (
				session_id  TEXT PRIMARY KEY,
				created_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				updated_at  TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			);

			CREATE TABLE IF NOT EXISTS agent_messages (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				session_id    TEXT NOT NULL,
				message_data  TEXT NOT NULL,
				created_at    TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (session_id) REFERENCES agent_sessions (session_id) ON DELETE CASCADE
			);

			CREATE INDEX IF NOT EXISTS idx_agent_messages_session_id
				ON agent_messages (session_id, created_at);
		`,
	},
	{
		Version: 2,
		Name:    "index sessions by update time",
		SQL: `
			CREATE INDEX IF NOT EXISTS idx_agent_sessions_updated_at
				ON agent_sessions (updated_at);
		`,
	},
}
