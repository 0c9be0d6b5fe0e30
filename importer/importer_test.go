package importer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbaio/weblate/config"
	"github.com/dbaio/weblate/datastore"
)

const testDocument = `<?xml version="1.0" encoding="utf-8"?>
<xliff version="1.2">
  <file source-language="en" target-language="cs" datatype="plaintext" original="messages">
    <body>
      <trans-unit id="1" resname="greeting">
        <source>Hello world</source>
        <target>Ahoj světe</target>
        <context-group purpose="location">
          <context context-type="sourcefile">foo.bar</context>
          <context context-type="linenumber">123</context>
        </context-group>
      </trans-unit>
    </body>
  </file>
</xliff>`

func TestImport(t *testing.T) {
	dir := t.TempDir()
	dbFile := filepath.Join(dir, "test.db")
	importPath := filepath.Join(dir, "xliff-in")
	require.NoError(t, os.Mkdir(importPath, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(importPath, "messages.cs.xliff"), []byte(testDocument), 0o644))

	db, err := sqlx.Connect("sqlite3", dbFile)
	require.NoError(t, err)
	ds, err := datastore.New(db, config.DbDriverSqlite3)
	require.NoError(t, err)
	_, err = ds.MigrateUp()
	require.NoError(t, err)
	require.NoError(t, db.Close())

	c := config.Config{
		DB:    config.DbConfig{Driver: config.DbDriverSqlite3, File: dbFile},
		XLIFF: config.XliffConfig{ImportPath: importPath},
	}
	Import(c)

	db, err = sqlx.Connect("sqlite3", dbFile)
	require.NoError(t, err)
	defer db.Close()
	ds, err = datastore.New(db, config.DbDriverSqlite3)
	require.NoError(t, err)

	units, err := ds.GetUnitList("messages")
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "greeting", units[0].Context)
	assert.Equal(t, "foo.bar:123", units[0].Location)
	assert.Equal(t, "cs", units[0].Translation.Language.Code)
}
