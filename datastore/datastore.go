package datastore

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dbaio/weblate/config"
	"github.com/dbaio/weblate/trans"
	"github.com/dbaio/weblate/xliff"
)

var ErrAlreadyExists = errors.New("already exists")

// Adapter provides database-driver-specific query strings, etc.
type Adapter interface {
	PostCreate(*sqlx.DB) error
	EnsureVersionTableExists(*sqlx.DB) error
	MigrateUp(*sqlx.DB) (int64, error)
	MigrateDown(*sqlx.DB) (int64, error)
	SupportsLastInsertId() bool
	CreateLanguageQuery() string
	CreateProjectQuery() string
	CreateComponentQuery() string
	CreateUnitQuery() string
	CreateGlossaryTermQuery() string
	GetAllLanguagesQuery() string
	GetAllComponentsQuery() string
	GetSingleLanguageQuery() string
	GetSingleProjectIdQuery() string
	GetSingleComponentQuery() string
	GetSingleComponentIdQuery() string
	GetSingleUnitQuery() string
	GetSingleUnitIdQuery() string
	GetSingleGlossaryTermIdQuery() string
	GetUnitListQuery() string
	GetGlossaryQuery() string
	UpdateComponentRepowebQuery() string
	UpdateUnitQuery() string
	DeleteUnitQuery() string
}

type DataStore struct {
	adapter        Adapter
	db             *sqlx.DB
	componentCache map[string]int64
	unitCache      map[UnitKey]int64
	Stats          Stats
}

type UnitKey struct {
	ComponentId int64
	LanguageId  int64
	Context     string
}

type Stats map[StatKey]StatItem

type StatKey struct {
	Name   string
	Action string
}

type StatItem struct {
	Duration time.Duration
	Count    int
}

func (s Stats) Log(name, action string, d time.Duration) {
	item := s[StatKey{Name: name, Action: action}]
	item.Count++
	item.Duration += d
	s[StatKey{Name: name, Action: action}] = item
}

func (s Stats) String() (out string) {
	for k, v := range s {
		out += fmt.Sprintf("%v  %v '%v' actions took %v total, %v avg\n", v.Count, k.Name, k.Action, v.Duration, v.Duration/time.Duration(v.Count))
	}

	return out
}

// Creates a new datastore using the given database connection. The driver parameter is used to
// select the appropriate database adapter, and should be one of the config.DbDriver* constants.
func New(db *sqlx.DB, driver string) (ds *DataStore, err error) {
	adp, err := newAdapter(driver)
	if err != nil {
		return &DataStore{}, err
	}

	ds = &DataStore{
		adapter:        adp,
		db:             db,
		componentCache: make(map[string]int64),
		unitCache:      make(map[UnitKey]int64),
		Stats:          make(map[StatKey]StatItem),
	}

	err = ds.adapter.PostCreate(ds.db)
	if err != nil {
		return ds, err
	}

	return ds, nil
}

func newAdapter(driver string) (adp Adapter, err error) {
	switch driver {
	case config.DbDriverSqlite3:
		adp = &Sqlite3Adapter{}
	case config.DbDriverPostgresql:
		adp = &PostgresAdapter{}
	}

	if adp == nil {
		return nil, fmt.Errorf("no adapter available for database driver '%v'", driver)
	}

	return adp, nil
}

// Runs an insert query and returns the new row id. Drivers without
// LastInsertId support (postgres) end their insert queries in RETURNING id,
// so the id is scanned from the query result instead.
func (ds *DataStore) insertWithId(query string, args ...interface{}) (id int64, err error) {
	if !ds.adapter.SupportsLastInsertId() {
		err = ds.db.QueryRow(query, args...).Scan(&id)

		return id, err
	}

	result, err := ds.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// Migrates the database up to the newest schema version.
func (ds *DataStore) MigrateUp() (version int64, err error) {
	if err = ds.adapter.EnsureVersionTableExists(ds.db); err != nil {
		return 0, err
	}

	return ds.adapter.MigrateUp(ds.db)
}

// Rolls all schema migrations back.
func (ds *DataStore) MigrateDown() (version int64, err error) {
	if err = ds.adapter.EnsureVersionTableExists(ds.db); err != nil {
		return 0, err
	}

	return ds.adapter.MigrateDown(ds.db)
}

// Gets all available languages
func (ds *DataStore) GetLanguageList() (languages []trans.Language, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("language", "get", time.Since(start)) }()

	err = ds.db.Select(&languages, ds.adapter.GetAllLanguagesQuery())

	return languages, err
}

// Gets the language with the given code.
// Returns sql.ErrNoRows when the code is unknown.
func (ds *DataStore) GetLanguage(code string) (l trans.Language, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("language", "get", time.Since(start)) }()

	err = ds.db.Get(&l, ds.adapter.GetSingleLanguageQuery(), code)

	return l, err
}

// Creates a new language. Returns ErrAlreadyExists when the code is taken.
func (ds *DataStore) CreateLanguage(code, name, direction string) (id int64, err error) {
	if _, err = ds.GetLanguage(code); err == nil {
		return 0, ErrAlreadyExists
	} else if err != sql.ErrNoRows {
		return 0, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("language", "insert", time.Since(start)) }()

	if direction == "" {
		direction = "ltr"
	}

	return ds.insertWithId(ds.adapter.CreateLanguageQuery(), code, name, direction)
}

func (ds *DataStore) getProjectId(slug string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("project", "get", time.Since(start)) }()

	row := ds.db.QueryRow(ds.adapter.GetSingleProjectIdQuery(), slug)
	err = row.Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (ds *DataStore) createProject(slug, name string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("project", "insert", time.Since(start)) }()

	return ds.insertWithId(ds.adapter.CreateProjectQuery(), slug, name)
}

func (ds *DataStore) createOrGetProject(slug, name string) (id int64, err error) {
	id, err = ds.getProjectId(slug)

	if err == sql.ErrNoRows {
		return ds.createProject(slug, name)
	}

	return id, err
}

func (ds *DataStore) getComponentId(slug string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("component", "get", time.Since(start)) }()

	if id, ok := ds.componentCache[slug]; ok {
		return id, nil
	}

	row := ds.db.QueryRow(ds.adapter.GetSingleComponentIdQuery(), slug)
	err = row.Scan(&id)
	if err != nil {
		return 0, err
	}
	ds.componentCache[slug] = id

	return id, nil
}

func (ds *DataStore) createComponent(projectId int64, slug, name, repoweb string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("component", "insert", time.Since(start)) }()

	return ds.insertWithId(ds.adapter.CreateComponentQuery(), projectId, slug, name, repoweb)
}

func (ds *DataStore) createOrGetComponent(projectId int64, slug, name, repoweb string) (id int64, err error) {
	id, err = ds.getComponentId(slug)

	if err == sql.ErrNoRows {
		return ds.createComponent(projectId, slug, name, repoweb)
	}

	return id, err
}

type componentRow struct {
	Id          int64  `db:"id"`
	Slug        string `db:"slug"`
	Name        string `db:"name"`
	Repoweb     string `db:"repoweb"`
	ProjectId   int64  `db:"project_id"`
	ProjectSlug string `db:"project_slug"`
	ProjectName string `db:"project_name"`
}

func (r componentRow) component() trans.Component {
	return trans.Component{
		Id:      r.Id,
		Slug:    r.Slug,
		Name:    r.Name,
		Repoweb: r.Repoweb,
		Project: &trans.Project{Id: r.ProjectId, Slug: r.ProjectSlug, Name: r.ProjectName},
	}
}

// Gets all available components with their projects.
func (ds *DataStore) GetComponentList() (components []trans.Component, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("component", "get", time.Since(start)) }()

	var rows []componentRow
	err = ds.db.Select(&rows, ds.adapter.GetAllComponentsQuery())
	if err != nil {
		return components, err
	}

	components = make([]trans.Component, len(rows))
	for i, r := range rows {
		components[i] = r.component()
	}

	return components, nil
}

// Gets the component with the given slug, including its project.
// Returns sql.ErrNoRows when the slug is unknown.
func (ds *DataStore) GetComponent(slug string) (c trans.Component, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("component", "get", time.Since(start)) }()

	var row componentRow
	err = ds.db.Get(&row, ds.adapter.GetSingleComponentQuery(), slug)
	if err != nil {
		return c, err
	}

	return row.component(), nil
}

// Sets the repository browser URL template of a component.
// Returns sql.ErrNoRows when the slug is unknown.
func (ds *DataStore) SetComponentRepoweb(slug, repoweb string) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("component", "update", time.Since(start)) }()

	result, err := ds.db.Exec(ds.adapter.UpdateComponentRepowebQuery(), repoweb, slug)
	if err != nil {
		return err
	}

	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return sql.ErrNoRows
	}

	return nil
}

type unitRow struct {
	Id             int64     `db:"id"`
	Context        string    `db:"context"`
	Location       string    `db:"location"`
	Source         string    `db:"source"`
	PreviousSource string    `db:"previous_source"`
	Target         string    `db:"target"`
	ChangedAt      time.Time `db:"changed_at"`
	ComponentId    int64     `db:"component_id"`
	ComponentSlug  string    `db:"component_slug"`
	ComponentName  string    `db:"component_name"`
	Repoweb        string    `db:"repoweb"`
	ProjectSlug    string    `db:"project_slug"`
	ProjectName    string    `db:"project_name"`
	LanguageId     int64     `db:"language_id"`
	Code           string    `db:"code"`
	LanguageName   string    `db:"language_name"`
	Direction      string    `db:"direction"`
}

func (r unitRow) unit() *trans.Unit {
	return &trans.Unit{
		Id:             r.Id,
		Context:        r.Context,
		Location:       r.Location,
		Source:         r.Source,
		PreviousSource: r.PreviousSource,
		Target:         r.Target,
		ChangedAt:      r.ChangedAt,
		Translation: &trans.Translation{
			Component: &trans.Component{
				Id:      r.ComponentId,
				Slug:    r.ComponentSlug,
				Name:    r.ComponentName,
				Repoweb: r.Repoweb,
				Project: &trans.Project{Slug: r.ProjectSlug, Name: r.ProjectName},
			},
			Language: &trans.Language{
				Id:        r.LanguageId,
				Code:      r.Code,
				Name:      r.LanguageName,
				Direction: r.Direction,
			},
		},
	}
}

// Gets a single unit with its component, project and language populated.
// Returns sql.ErrNoRows when the id is unknown.
func (ds *DataStore) GetUnit(id int64) (u *trans.Unit, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("unit", "get", time.Since(start)) }()

	var row unitRow
	err = ds.db.Get(&row, ds.adapter.GetSingleUnitQuery(), id)
	if err != nil {
		return nil, err
	}

	return row.unit(), nil
}

// Gets all units of the component with the given slug.
// Returns sql.ErrNoRows when the slug is unknown.
func (ds *DataStore) GetUnitList(componentSlug string) (units []trans.Unit, err error) {
	if _, err = ds.getComponentId(componentSlug); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("unit", "get", time.Since(start)) }()

	var rows []unitRow
	err = ds.db.Select(&rows, ds.adapter.GetUnitListQuery(), componentSlug)
	if err != nil {
		return nil, err
	}

	units = make([]trans.Unit, len(rows))
	for i, r := range rows {
		units[i] = *r.unit()
	}

	return units, nil
}

func (ds *DataStore) getUnitId(componentId, languageId int64, context string) (id int64, err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("unit", "get", time.Since(start)) }()

	row := ds.db.QueryRow(ds.adapter.GetSingleUnitIdQuery(), componentId, languageId, context)
	err = row.Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (ds *DataStore) insertUnit(componentId, languageId int64, u trans.Unit) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("unit", "insert", time.Since(start)) }()

	changed := u.ChangedAt
	if changed.IsZero() {
		changed = time.Now().UTC()
	}

	_, err = ds.db.Exec(ds.adapter.CreateUnitQuery(),
		componentId, languageId, u.Context, u.Location, u.Source, u.PreviousSource, u.Target, changed)

	return err
}

// Updates a stored unit in place. The stored source becomes the unit's
// previous source so diffs against the last revision stay possible.
func (ds *DataStore) updateUnit(unitId int64, u trans.Unit) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("unit", "update", time.Since(start)) }()

	changed := u.ChangedAt
	if changed.IsZero() {
		changed = time.Now().UTC()
	}

	_, err = ds.db.Exec(ds.adapter.UpdateUnitQuery(), u.Location, u.Source, u.Target, changed, unitId)

	return err
}

// Updates the unit identified by its context within the given component and
// language. When allowCreate is false, returns an error if the unit does not
// exist; otherwise missing units are created.
func (ds *DataStore) CreateOrUpdateUnit(componentSlug, langCode string, u trans.Unit, allowCreate bool) (err error) {
	componentId, err := ds.getComponentId(componentSlug)
	if err != nil {
		return err
	}

	lang, err := ds.GetLanguage(langCode)
	if err != nil {
		return err
	}

	unitId, err := ds.getUnitId(componentId, lang.Id, u.Context)
	if err != nil && !allowCreate {
		return err
	} else if err == sql.ErrNoRows && allowCreate {
		err = ds.insertUnit(componentId, lang.Id, u)
	} else if err == nil {
		err = ds.updateUnit(unitId, u)
	}

	return err
}

// Deletes a single unit.
// Returns sql.ErrNoRows when the id is unknown.
func (ds *DataStore) DeleteUnit(id int64) (err error) {
	start := time.Now()
	defer func() { ds.Stats.Log("unit", "delete", time.Since(start)) }()

	result, err := ds.db.Exec(ds.adapter.DeleteUnitQuery(), id)
	if err != nil {
		return err
	}

	count, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Gets all glossary terms for the language with the given code.
func (ds *DataStore) GetGlossary(langCode string) (terms []trans.Term, err error) {
	if _, err = ds.GetLanguage(langCode); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("glossary", "get", time.Since(start)) }()

	err = ds.db.Select(&terms, ds.adapter.GetGlossaryQuery(), langCode)

	return terms, err
}

// Adds a glossary term for a language. Returns ErrAlreadyExists when the
// source term is already present.
func (ds *DataStore) AddGlossaryTerm(langCode string, term trans.Term) (err error) {
	lang, err := ds.GetLanguage(langCode)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() { ds.Stats.Log("glossary", "insert", time.Since(start)) }()

	var id int64
	row := ds.db.QueryRow(ds.adapter.GetSingleGlossaryTermIdQuery(), lang.Id, term.Source)
	err = row.Scan(&id)
	if err == nil {
		return ErrAlreadyExists
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = ds.db.Exec(ds.adapter.CreateGlossaryTermQuery(), lang.Id, term.Source, term.Target)

	return err
}

// Imports a set of units into the given component, creating the component
// (and a project mirroring its slug) as needed.
func (ds *DataStore) ImportUnits(componentSlug, langCode string, units []trans.Unit) (err error) {
	projectId, err := ds.createOrGetProject(componentSlug, componentSlug)
	if err != nil {
		return err
	}

	componentId, err := ds.createOrGetComponent(projectId, componentSlug, componentSlug, "")
	if err != nil {
		return err
	}
	ds.componentCache[componentSlug] = componentId

	lang, err := ds.GetLanguage(langCode)
	if err != nil {
		return err
	}

	for _, u := range units {
		key := UnitKey{ComponentId: componentId, LanguageId: lang.Id, Context: u.Context}
		unitId, ok := ds.unitCache[key]
		if !ok {
			unitId, err = ds.getUnitId(componentId, lang.Id, u.Context)
			if err != nil && err != sql.ErrNoRows {
				return err
			}
		}

		if unitId == 0 {
			err = ds.insertUnit(componentId, lang.Id, u)
			if err != nil {
				return err
			}
			unitId, err = ds.getUnitId(componentId, lang.Id, u.Context)
			if err != nil {
				return err
			}
		} else {
			err = ds.updateUnit(unitId, u)
			if err != nil {
				return err
			}
		}
		ds.unitCache[key] = unitId
	}

	return nil
}

// Imports all XLIFF files in dir, sending each imported file name to notify.
func (ds *DataStore) ImportDir(dir string, notify chan string) (count int, err error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.xliff"))
	if err != nil {
		return 0, err
	}

	for i, file := range files {
		x, err := xliff.NewFromFile(file)
		if err != nil {
			return i, err
		}

		err = ds.ImportUnits(x.Component(), x.Language(), x.Units())
		if err != nil {
			return i, err
		}

		notify <- filepath.Base(file)
	}

	return len(files), nil
}
