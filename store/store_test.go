package store

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryAndExec(t *testing.T) {
	db, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`))
	require.NoError(t, db.Exec(`INSERT INTO widgets (id, name) VALUES (?, ?)`, 1, "gear"))
}

func TestPrepareExecEach(t *testing.T) {
	db, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`))

	insert, err := db.Prepare(`INSERT INTO widgets (id, name) VALUES (?, ?)`)
	require.NoError(t, err)
	require.NoError(t, insert.Exec(1, "gear"))
	require.NoError(t, insert.Exec(2, "cog"))

	selectAll, err := db.Prepare(`SELECT id, name FROM widgets ORDER BY id`)
	require.NoError(t, err)

	var names []string
	err = selectAll.Each(func(rows *sql.Rows) error {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"gear", "cog"}, names)
}

func TestFirstReportsPresence(t *testing.T) {
	db, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`))

	selectOne, err := db.Prepare(`SELECT name FROM widgets WHERE id = ?`)
	require.NoError(t, err)

	var name string
	found, err := selectOne.First(func(rows *sql.Rows) error {
		return rows.Scan(&name)
	}, 1)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, db.Exec(`INSERT INTO widgets (id, name) VALUES (1, 'gear')`))
	found, err = selectOne.First(func(rows *sql.Rows) error {
		return rows.Scan(&name)
	}, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "gear", name)
}

func TestExecOnBadSQLIsSystemError(t *testing.T) {
	db, err := Open(":memory:", nil)
	require.NoError(t, err)
	defer db.Close()
	err = db.Exec(`NOT VALID SQL`)
	assert.Error(t, err)
}

func TestBindUint64RoundTripsHighBitSet(t *testing.T) {
	var v uint64 = 1<<63 + 7
	i := BindUint64(v)
	assert.Equal(t, v, UnbindUint64(i))
}

func TestPackUnpackPermissions(t *testing.T) {
	for _, cw := range []bool{true, false} {
		for _, ce := range []bool{true, false} {
			blob := PackPermissions(cw, ce)
			gotCW, gotCE, err := UnpackPermissions(blob)
			require.NoError(t, err)
			assert.Equal(t, cw, gotCW)
			assert.Equal(t, ce, gotCE)
		}
	}
}

func TestUnpackPermissionsRejectsWrongSize(t *testing.T) {
	_, _, err := UnpackPermissions([]byte{1, 2})
	assert.Error(t, err)
}
