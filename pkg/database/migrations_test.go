package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := New(Config{Path: MemoryPath}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrate(t *testing.T) {
	db := openMemory(t)

	require.NoError(t, Migrate(db, zap.NewNop()))
	// second run is a no-op
	require.NoError(t, Migrate(db, zap.NewNop()))

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 3, versions)

	seeded := map[int]string{}
	rows, err := db.Query("SELECT id, description FROM statuses")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var id int
		var desc string
		require.NoError(t, rows.Scan(&id, &desc))
		seeded[id] = desc
	}
	assert.Equal(t, map[int]string{6: "saveandhold", 7: "Deleted", 8: "ongoing", 9: "approved", 10: "rejected"}, seeded)
}

func TestLoadMigrations_Ordered(t *testing.T) {
	migrations, err := loadMigrations(Migrations())
	require.NoError(t, err)
	require.Len(t, migrations, 3)

	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "initial_schema", migrations[0].Name)
	assert.Equal(t, "seed_statuses", migrations[1].Name)
	assert.Equal(t, 3, migrations[2].Version)
}

func TestCommentsAreAppendOnly(t *testing.T) {
	db := openMemory(t)
	require.NoError(t, Migrate(db, zap.NewNop()))

	_, err := db.Exec(`INSERT INTO tasks (cover_page_no, task_id, process_id, status_id, initiated_on, updated_on)
		VALUES ('OO/2025/1', 't1', 'p1', 6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO task_comments (task_id, process_id, commenter, text, created_at)
		VALUES ('t1', 'p1', 'u1', 'first', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)

	_, err = db.Exec(`UPDATE task_comments SET text = 'edited'`)
	assert.ErrorContains(t, err, "append-only")
	_, err = db.Exec(`DELETE FROM task_comments`)
	assert.ErrorContains(t, err, "append-only")
}
