package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create unknown questions",
		SQL: `
			CREATE TABLE unknown_questions (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				asked_at    TEXT NOT NULL,
				question    TEXT NOT NULL
			);

			CREATE INDEX idx_unknown_questions_asked ON unknown_questions (asked_at);
		`,
	},
}
