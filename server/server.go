package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"

	"github.com/dbaio/weblate/config"
	"github.com/dbaio/weblate/datastore"
	"github.com/dbaio/weblate/display"
	"github.com/dbaio/weblate/trans"
)

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func checkHttpWithStatus(e error, w http.ResponseWriter, status int) (hadError bool) {
	if e != nil {
		w.WriteHeader(status)

		errMsg := e.Error()
		// Don't expose the 'sql: no rows in result set' message to the user
		if status == http.StatusNotFound && e == sql.ErrNoRows {
			errMsg = "not found"
		}

		jsonErr := struct {
			Error string `json:"error"`
		}{
			Error: errMsg,
		}
		enc := json.NewEncoder(w)
		enc.Encode(jsonErr)

		return true
	}
	return false
}

func checkHttp(e error, w http.ResponseWriter) (hadError bool) {
	status := http.StatusInternalServerError
	if e == sql.ErrNoRows {
		status = http.StatusNotFound
	}
	return checkHttpWithStatus(e, w, status)
}

// Instantiates a datastore for a request using the given DB connection
func handleWithDatastore(db *sqlx.DB, driver string, f func(http.ResponseWriter, *http.Request, *datastore.DataStore)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ds, err := datastore.New(db, driver)

		if checkHttpWithStatus(err, w, http.StatusServiceUnavailable) {
			return
		}
		f(w, r, ds)
	}
}

func setJsonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		h.ServeHTTP(w, r)
	})
}

// Gets list of available languages
func getLanguagesHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	ls, err := ds.GetLanguageList()
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(ls), w)
}

// Creates a new language
func createLanguageHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	code := mux.Vars(r)["lang"]

	var content struct {
		Name      string `json:"name"`
		Direction string `json:"direction"`
	}

	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&content)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	_, err = ds.CreateLanguage(code, content.Name, content.Direction)
	switch {
	case err == datastore.ErrAlreadyExists:
		_ = checkHttpWithStatus(err, w, http.StatusConflict)
		return

	case checkHttp(err, w):
		return
	}

	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Gets list of available components with their projects
func getComponentsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	cs, err := ds.GetComponentList()
	if checkHttp(err, w) {
		return
	}

	var output struct {
		Components []trans.Component `json:"components"`
	}
	output.Components = cs

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Updates a component's repository browser URL template
func updateComponentHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	slug := mux.Vars(r)["component"]

	var content struct {
		Repoweb string `json:"repoweb"`
	}

	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&content)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	err = ds.SetComponentRepoweb(slug, content.Repoweb)
	if checkHttp(err, w) {
		return
	}

	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Gets all units of a component
func getUnitsHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	slug := mux.Vars(r)["component"]

	units, err := ds.GetUnitList(slug)
	if checkHttp(err, w) {
		return
	}

	var output struct {
		Units []*Unit `json:"units"`
	}
	output.Units = make([]*Unit, len(units))
	for i := range units {
		output.Units[i] = NewUnit(&units[i])
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Gets a single unit
func getUnitHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if checkHttpWithStatus(err, w, http.StatusBadRequest) {
		return
	}

	u, err := ds.GetUnit(id)
	if checkHttp(err, w) {
		return
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(NewUnit(u)), w)
}

// Renders a unit for display. The query string controls the rendering:
// diff=1 diffs the source against its previous revision, glossary=1 annotates
// glossary terms of the unit's language, editor overrides the instance
// editor link template.
func renderUnitHandler(editorLink string) func(http.ResponseWriter, *http.Request, *datastore.DataStore) {
	return func(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
		id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
		if checkHttpWithStatus(err, w, http.StatusBadRequest) {
			return
		}

		u, err := ds.GetUnit(id)
		if checkHttp(err, w) {
			return
		}

		q := r.URL.Query()

		var opts []display.Option
		if q.Get("diff") == "1" && u.PreviousSource != "" {
			opts = append(opts, display.WithDiff(u.PreviousSource))
		}
		if q.Get("glossary") == "1" {
			terms, err := ds.GetGlossary(u.Translation.Language.Code)
			if checkHttp(err, w) {
				return
			}
			opts = append(opts, display.WithGlossary(terms))
		}

		profile := trans.Profile{EditorLink: editorLink}
		if editor := q.Get("editor"); editor != "" {
			profile.EditorLink = editor
		}

		enc := json.NewEncoder(w)
		checkHttp(enc.Encode(NewRenderedUnit(u, profile, opts, time.Now())), w)
	}
}

// Renders caller-supplied text without touching stored units. The language
// must exist; diff and glossary are optional.
func renderHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	var content struct {
		Text     string       `json:"text"`
		Language string       `json:"language"`
		Diff     *string      `json:"diff"`
		Glossary []trans.Term `json:"glossary"`
	}

	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&content)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	lang, err := ds.GetLanguage(content.Language)
	if checkHttp(err, w) {
		return
	}

	var opts []display.Option
	if content.Diff != nil {
		opts = append(opts, display.WithDiff(*content.Diff))
	}
	if len(content.Glossary) > 0 {
		opts = append(opts, display.WithGlossary(content.Glossary))
	}

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(display.FormatTranslation(content.Text, lang, opts...)), w)
}

// Update a unit with new content (or create it if we have a POST request)
func createOrUpdateUnitHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	slug := mux.Vars(r)["component"]
	lang := mux.Vars(r)["lang"]

	var content struct {
		Context  string `json:"context"`
		Location string `json:"location"`
		Source   string `json:"source"`
		Target   string `json:"target"`
	}

	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&content)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	allowCreate := false
	if r.Method == "POST" {
		allowCreate = true
	}

	u := trans.Unit{
		Context:  content.Context,
		Location: content.Location,
		Source:   content.Source,
		Target:   content.Target,
	}
	err = ds.CreateOrUpdateUnit(slug, lang, u, allowCreate)
	if checkHttp(err, w) {
		return
	}

	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Deletes a single unit.
func deleteUnitHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if checkHttpWithStatus(err, w, http.StatusBadRequest) {
		return
	}

	err = ds.DeleteUnit(id)
	if checkHttp(err, w) {
		return
	}

	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Gets the glossary of a language
func getGlossaryHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	lang := mux.Vars(r)["lang"]

	terms, err := ds.GetGlossary(lang)
	if checkHttp(err, w) {
		return
	}

	var output struct {
		Terms []trans.Term `json:"terms"`
	}
	output.Terms = terms

	enc := json.NewEncoder(w)
	checkHttp(enc.Encode(output), w)
}

// Adds a glossary term to a language
func addGlossaryTermHandler(w http.ResponseWriter, r *http.Request, ds *datastore.DataStore) {
	lang := mux.Vars(r)["lang"]

	var term trans.Term
	decoder := json.NewDecoder(r.Body)
	err := decoder.Decode(&term)
	if err != nil {
		http.Error(w, fmt.Sprintf("Could not decode request (%v)", err.Error()), http.StatusBadRequest)
		return
	}

	err = ds.AddGlossaryTerm(lang, term)
	switch {
	case err == datastore.ErrAlreadyExists:
		_ = checkHttpWithStatus(err, w, http.StatusConflict)
		return

	case checkHttp(err, w):
		return
	}

	w.Write([]byte("{\"result\":\"ok\"}\n"))
}

// Builds the service's router around the given DB connection. editorLink is
// the instance-wide editor link template applied when a render request
// carries none.
func NewRouter(db *sqlx.DB, driver, editorLink string) http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/languages", handleWithDatastore(db, driver, getLanguagesHandler)).Methods("GET")
	r.HandleFunc("/languages/{lang}", handleWithDatastore(db, driver, createLanguageHandler)).Methods("POST")
	r.HandleFunc("/components", handleWithDatastore(db, driver, getComponentsHandler)).Methods("GET")
	r.HandleFunc("/components/{component}", handleWithDatastore(db, driver, updateComponentHandler)).Methods("PUT")
	r.HandleFunc("/components/{component}/units", handleWithDatastore(db, driver, getUnitsHandler)).Methods("GET")
	r.HandleFunc("/components/{component}/languages/{lang}/units", handleWithDatastore(db, driver, createOrUpdateUnitHandler)).Methods("POST", "PUT")
	r.HandleFunc("/units/{id:[0-9]+}", handleWithDatastore(db, driver, getUnitHandler)).Methods("GET")
	r.HandleFunc("/units/{id:[0-9]+}", handleWithDatastore(db, driver, deleteUnitHandler)).Methods("DELETE")
	r.HandleFunc("/units/{id:[0-9]+}/render", handleWithDatastore(db, driver, renderUnitHandler(editorLink))).Methods("GET")
	r.HandleFunc("/render", handleWithDatastore(db, driver, renderHandler)).Methods("POST")
	r.HandleFunc("/glossary/{lang}", handleWithDatastore(db, driver, getGlossaryHandler)).Methods("GET")
	r.HandleFunc("/glossary/{lang}", handleWithDatastore(db, driver, addGlossaryTermHandler)).Methods("POST")

	return setJsonHeaders(r)
}

func Serve(c config.Config) {
	var db *sqlx.DB
	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)

	rWithMiddleWares := handlers.CombinedLoggingHandler(os.Stdout, NewRouter(db, c.DB.Driver, c.Display.EditorLink))

	fmt.Printf("Listening on port %v\n", c.Server.Port)
	http.ListenAndServe(fmt.Sprintf(":%v", c.Server.Port), rWithMiddleWares)
}
