package datastore

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// PostgresAdapter provides support for PostgreSQL databases.
type PostgresAdapter struct{}

func (a PostgresAdapter) EnsureVersionTableExists(db *sqlx.DB) (err error) {
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version integer PRIMARY KEY NOT NULL)`)
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

func (a PostgresAdapter) PostCreate(db *sqlx.DB) (err error) {
	return nil
}

func (a PostgresAdapter) up() []string {
	return []string{
		// 1
		`
CREATE TABLE language (
    id serial PRIMARY KEY,
    code text UNIQUE,
    name text,
    direction text NOT NULL DEFAULT 'ltr'
);
CREATE TABLE project (
    id serial PRIMARY KEY,
    slug text UNIQUE,
    name text
);
CREATE TABLE component (
    id serial PRIMARY KEY,
    project_id integer REFERENCES project(id) ON UPDATE CASCADE ON DELETE CASCADE,
    slug text UNIQUE,
    name text,
    repoweb text NOT NULL DEFAULT ''
);
CREATE INDEX component_project_id ON component (project_id);
CREATE TABLE unit (
    id serial PRIMARY KEY,
    component_id integer REFERENCES component(id) ON UPDATE CASCADE ON DELETE CASCADE,
    language_id integer REFERENCES language(id) ON UPDATE CASCADE ON DELETE CASCADE,
    context text NOT NULL DEFAULT '',
    location text NOT NULL DEFAULT '',
    source text NOT NULL DEFAULT '',
    previous_source text NOT NULL DEFAULT '',
    target text NOT NULL DEFAULT '',
    changed_at timestamptz
);
CREATE INDEX unit_component_id ON unit (component_id);
CREATE UNIQUE INDEX unit_identity ON unit (component_id, language_id, context);
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
CREATE TABLE glossary (
    id serial PRIMARY KEY,
    language_id integer REFERENCES language(id) ON UPDATE CASCADE ON DELETE CASCADE,
    source text NOT NULL,
    target text NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX glossary_term ON glossary (language_id, source);
`,
	}
}

func (a PostgresAdapter) down() []string {
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

func (a PostgresAdapter) MigrateUp(db *sqlx.DB) (version int64, err error) {
	startVer, err := a.version(db)
	if err != nil {
		return version, err
	}

	for i, query := range a.up() {
		migTo := int64(i + 1)
		if migTo <= startVer {
			version = migTo
			continue
		}

		_, err = db.Exec(query)
		if err != nil {
			return version, err
		}

		err = a.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (a PostgresAdapter) MigrateDown(db *sqlx.DB) (version int64, err error) {
	startVer, err := a.version(db)
	if err != nil {
		return version, err
	}

	down := a.down()
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

		err = a.updateVersion(migTo, db)
		if err != nil {
			return version, err
		}

		version = migTo
	}

	return version, err
}

func (a PostgresAdapter) SupportsLastInsertId() bool {
	return false
}

func (a PostgresAdapter) CreateLanguageQuery() string {
	return `INSERT INTO language (code, name, direction) VALUES ($1, $2, $3) RETURNING id;`
}

func (a PostgresAdapter) CreateProjectQuery() string {
	return `INSERT INTO project (slug, name) VALUES ($1, $2) RETURNING id;`
}

func (a PostgresAdapter) CreateComponentQuery() string {
	return `INSERT INTO component (project_id, slug, name, repoweb) VALUES ($1, $2, $3, $4) RETURNING id;`
}

func (a PostgresAdapter) CreateUnitQuery() string {
	return `INSERT INTO unit (component_id, language_id, context, location, source, previous_source, target, changed_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
}

func (a PostgresAdapter) CreateGlossaryTermQuery() string {
	return `INSERT INTO glossary (language_id, source, target) VALUES ($1, $2, $3);`
}

func (a PostgresAdapter) GetAllLanguagesQuery() string {
	return `SELECT id, code, name, direction FROM language ORDER BY code;`
}

func (a PostgresAdapter) GetAllComponentsQuery() string {
	return `SELECT component.id, component.slug, component.name, component.repoweb, project.id AS project_id, project.slug AS project_slug, project.name AS project_name FROM component INNER JOIN project ON project.id = component.project_id ORDER BY component.slug;`
}

func (a PostgresAdapter) GetSingleLanguageQuery() string {
	return `SELECT id, code, name, direction FROM language WHERE code=$1;`
}

func (a PostgresAdapter) GetSingleProjectIdQuery() string {
	return `SELECT id FROM project WHERE slug=$1;`
}

func (a PostgresAdapter) GetSingleComponentQuery() string {
	return `SELECT component.id, component.slug, component.name, component.repoweb, project.id AS project_id, project.slug AS project_slug, project.name AS project_name FROM component INNER JOIN project ON project.id = component.project_id WHERE component.slug=$1;`
}

func (a PostgresAdapter) GetSingleComponentIdQuery() string {
	return `SELECT id FROM component WHERE slug=$1;`
}

func (a PostgresAdapter) GetSingleUnitQuery() string {
	return unitSelect + ` WHERE unit.id=$1;`
}

func (a PostgresAdapter) GetSingleUnitIdQuery() string {
	return `SELECT id FROM unit WHERE component_id=$1 AND language_id=$2 AND context=$3;`
}

func (a PostgresAdapter) GetSingleGlossaryTermIdQuery() string {
	return `SELECT id FROM glossary WHERE language_id=$1 AND source=$2;`
}

func (a PostgresAdapter) GetUnitListQuery() string {
	return unitSelect + ` WHERE component.slug=$1 ORDER BY unit.context;`
}

func (a PostgresAdapter) GetGlossaryQuery() string {
	return `SELECT glossary.source, glossary.target FROM glossary INNER JOIN language ON language.id = glossary.language_id WHERE language.code=$1 ORDER BY glossary.source;`
}

func (a PostgresAdapter) UpdateComponentRepowebQuery() string {
	return `UPDATE component SET repoweb=$1 WHERE slug=$2;`
}

func (a PostgresAdapter) UpdateUnitQuery() string {
	return `UPDATE unit SET previous_source = source, location=$1, source=$2, target=$3, changed_at=$4 WHERE id=$5;`
}

func (a PostgresAdapter) DeleteUnitQuery() string {
	return `DELETE FROM unit WHERE id = $1;`
}

func (a PostgresAdapter) version(db *sqlx.DB) (version int64, err error) {
	row := db.QueryRow(`SELECT version FROM schema_migrations;`)
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

func (a PostgresAdapter) updateVersion(version int64, db *sqlx.DB) (err error) {
	_, err = db.Exec(`UPDATE schema_migrations SET version = $1`, version)

	return err
}
