package datastore

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Sqlite3Adapter provides support for SQLite3 databases.
type Sqlite3Adapter struct{}

func (s Sqlite3Adapter) EnsureVersionTableExists(db *sqlx.DB) (err error) {
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS "schema_migrations" ("version" INTEGER PRIMARY KEY NOT NULL)`)
	if err != nil {
		return err
	}

	var count int
	err = db.Get(&count, `SELECT COUNT(*) FROM schema_migrations`)
	if err != nil {
		return err
	}
	switch {
	case count == 0:
		_, err = db.Exec(`INSERT INTO schema_migrations (version) VALUES (0)`)
	case count > 1:
		err = errors.New("too many rows in schema_migrations table")
	}

	return err
}

func (s Sqlite3Adapter) PostCreate(db *sqlx.DB) (err error) {
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return err
	}
	// Faster than using default journal file
	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return err
	}
	// Default (full) is slower
	_, err = db.Exec("PRAGMA synchronous = NORMAL")
	if err != nil {
		return err
	}

	return nil
}

func (s Sqlite3Adapter) up() []string {
	return []string{
		// 1
		`
CREATE TABLE "language" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "code" TEXT UNIQUE,
    "name" TEXT,
    "direction" TEXT NOT NULL DEFAULT 'ltr'
);
CREATE INDEX "language_code" ON "language" ("code");
CREATE TABLE "project" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "slug" TEXT UNIQUE,
    "name" TEXT
);
CREATE TABLE "component" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "project_id" INTEGER REFERENCES "project"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "slug" TEXT UNIQUE,
    "name" TEXT,
    "repoweb" TEXT NOT NULL DEFAULT ''
);
CREATE INDEX "component_project_id" ON "component" ("project_id");
CREATE TABLE "unit" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "component_id" INTEGER REFERENCES "component"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "language_id" INTEGER REFERENCES "language"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "context" TEXT NOT NULL DEFAULT '',
    "location" TEXT NOT NULL DEFAULT '',
    "source" TEXT NOT NULL DEFAULT '',
    "previous_source" TEXT NOT NULL DEFAULT '',
    "target" TEXT NOT NULL DEFAULT '',
    "changed_at" TIMESTAMP
);
CREATE INDEX "unit_component_id" ON "unit" ("component_id");
CREATE UNIQUE INDEX "unit_identity" ON "unit" ("component_id", "language_id", "context");
INSERT INTO language (code, name, direction) VALUES
    ('ar', 'Arabic', 'rtl'),
    ('cs', 'Czech', 'ltr'),
    ('de', 'German', 'ltr'),
    ('en', 'English', 'ltr'),
    ('es', 'Spanish', 'ltr'),
    ('fr', 'French', 'ltr'),
    ('he', 'Hebrew', 'rtl'),
    ('hu', 'Hungarian', 'ltr'),
    ('it', 'Italian', 'ltr'),
    ('nl', 'Dutch', 'ltr'),
    ('pl', 'Polish', 'ltr'),
    ('pt', 'Portuguese', 'ltr');
`,
		// 2
		`
CREATE TABLE "glossary" (
    "id" INTEGER PRIMARY KEY AUTOINCREMENT,
    "language_id" INTEGER REFERENCES "language"("id") ON UPDATE CASCADE ON DELETE CASCADE,
    "source" TEXT NOT NULL,
    "target" TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX "glossary_term" ON "glossary" ("language_id", "source");
`,
	}
}

func (s Sqlite3Adapter) down() []string {
	return []string{
		// 1
		`
DROP TABLE unit;
DROP TABLE component;
DROP TABLE project;
DROP TABLE language;
`,
		// 2
		`DROP TABLE glossary`,
	}
}

func (s Sqlite3Adapter) MigrateUp(db *sqlx.DB) (version int64, err error) {
	startVer, err := s.version(db)
	if err != nil {
		return version, err
	}

	for i, query := range s.up() {
		migTo := int64(i + 1)
		if migTo <= startVer {
			version = migTo
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = s.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (s Sqlite3Adapter) MigrateDown(db *sqlx.DB) (version int64, err error) {
	startVer, err := s.version(db)
	if err != nil {
		return version, err
	}

	down := s.down()
	for i := len(down) - 1; i >= 0; i-- {
		query := down[i]
		migVer := int64(i + 1) // The version of the Down migration we will apply
		migTo := int64(i)      // The version we will end up at

		// Skip migrations for newer versions
		if migVer > startVer {
			version = startVer
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = s.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (s Sqlite3Adapter) SupportsLastInsertId() bool {
	return true
}

func (s Sqlite3Adapter) CreateLanguageQuery() string {
	return "INSERT INTO language (code, name, direction) VALUES (?, ?, ?)"
}

func (s Sqlite3Adapter) CreateProjectQuery() string {
	return "INSERT INTO project (slug, name) VALUES (?, ?)"
}

func (s Sqlite3Adapter) CreateComponentQuery() string {
	return "INSERT INTO component (project_id, slug, name, repoweb) VALUES (?, ?, ?, ?)"
}

func (s Sqlite3Adapter) CreateUnitQuery() string {
	return "INSERT INTO unit (component_id, language_id, context, location, source, previous_source, target, changed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
}

func (s Sqlite3Adapter) CreateGlossaryTermQuery() string {
	return "INSERT INTO glossary (language_id, source, target) VALUES (?, ?, ?)"
}

func (s Sqlite3Adapter) GetAllLanguagesQuery() string {
	return "SELECT id, code, name, direction FROM language ORDER BY code"
}

func (s Sqlite3Adapter) GetAllComponentsQuery() string {
	return "SELECT component.id, component.slug, component.name, component.repoweb, project.id AS project_id, project.slug AS project_slug, project.name AS project_name FROM component INNER JOIN project ON project.id = component.project_id ORDER BY component.slug"
}

func (s Sqlite3Adapter) GetSingleLanguageQuery() string {
	return "SELECT id, code, name, direction FROM language WHERE code=?"
}

func (s Sqlite3Adapter) GetSingleProjectIdQuery() string {
	return "SELECT id FROM project WHERE slug=?"
}

func (s Sqlite3Adapter) GetSingleComponentQuery() string {
	return "SELECT component.id, component.slug, component.name, component.repoweb, project.id AS project_id, project.slug AS project_slug, project.name AS project_name FROM component INNER JOIN project ON project.id = component.project_id WHERE component.slug=?"
}

func (s Sqlite3Adapter) GetSingleComponentIdQuery() string {
	return "SELECT id FROM component WHERE slug=?"
}

func (s Sqlite3Adapter) GetSingleUnitQuery() string {
	return unitSelect + " WHERE unit.id=?"
}

func (s Sqlite3Adapter) GetSingleUnitIdQuery() string {
	return "SELECT id FROM unit WHERE component_id=? AND language_id=? AND context=?"
}

func (s Sqlite3Adapter) GetSingleGlossaryTermIdQuery() string {
	return "SELECT id FROM glossary WHERE language_id=? AND source=?"
}

func (s Sqlite3Adapter) GetUnitListQuery() string {
	return unitSelect + " WHERE component.slug=? ORDER BY unit.context"
}

func (s Sqlite3Adapter) GetGlossaryQuery() string {
	return "SELECT glossary.source, glossary.target FROM glossary INNER JOIN language ON language.id = glossary.language_id WHERE language.code=? ORDER BY glossary.source"
}

func (s Sqlite3Adapter) UpdateComponentRepowebQuery() string {
	return "UPDATE component SET repoweb=? WHERE slug=?"
}

func (s Sqlite3Adapter) UpdateUnitQuery() string {
	return "UPDATE unit SET previous_source = source, location=?, source=?, target=?, changed_at=? WHERE id=?"
}

func (s Sqlite3Adapter) DeleteUnitQuery() string {
	return "DELETE FROM unit WHERE id = ?"
}

// Shared by the single-unit and unit-list queries; both need the component,
// project and language joined in for display rendering.
const unitSelect = `SELECT unit.id, unit.context, unit.location, unit.source, unit.previous_source, unit.target, unit.changed_at,
    component.id AS component_id, component.slug AS component_slug, component.name AS component_name, component.repoweb,
    project.slug AS project_slug, project.name AS project_name,
    language.id AS language_id, language.code, language.name AS language_name, language.direction
FROM unit
INNER JOIN component ON component.id = unit.component_id
INNER JOIN project ON project.id = component.project_id
INNER JOIN language ON language.id = unit.language_id`

func (s Sqlite3Adapter) version(db *sqlx.DB) (version int64, err error) {
	row := db.QueryRow("SELECT version FROM schema_migrations")
	err = row.Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		return 0, nil
	case err != nil:
		return 0, err
	default:
		return version, nil
	}
}

func (s Sqlite3Adapter) updateVersion(version int64, db *sqlx.DB) (err error) {
	_, err = db.Exec("UPDATE schema_migrations SET version = ?", version)

	return err
}
