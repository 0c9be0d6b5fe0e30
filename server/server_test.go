package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbaio/weblate/config"
	"github.com/dbaio/weblate/datastore"
	"github.com/dbaio/weblate/trans"
)

func newTestServer(t *testing.T) (*httptest.Server, *datastore.DataStore) {
	return newTestServerWithEditor(t, "")
}

func newTestServerWithEditor(t *testing.T, editorLink string) (*httptest.Server, *datastore.DataStore) {
	t.Helper()

	db, err := sqlx.Connect("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ds, err := datastore.New(db, config.DbDriverSqlite3)
	require.NoError(t, err)
	_, err = ds.MigrateUp()
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(db, config.DbDriverSqlite3, editorLink))
	t.Cleanup(srv.Close)

	return srv, ds
}

func importGreeting(t *testing.T, ds *datastore.DataStore) int64 {
	t.Helper()

	require.NoError(t, ds.ImportUnits("messages", "cs", []trans.Unit{
		{Context: "greeting", Source: "Hello world", Target: "Ahoj světe", Location: "foo.bar:123"},
	}))

	units, err := ds.GetUnitList("messages")
	require.NoError(t, err)
	require.Len(t, units, 1)

	return units[0].Id
}

func getJson(t *testing.T, url string, out interface{}) *http.Response {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func postJson(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)

	return resp
}

type renderedResponse struct {
	Id      int64  `json:"id"`
	Context string `json:"context"`
	Items   []struct {
		Content string `json:"content"`
	} `json:"items"`
	TargetItems []struct {
		Content string `json:"content"`
	} `json:"target_items"`
	Direction  string `json:"direction"`
	Location   string `json:"location"`
	LastChange string `json:"last_change"`
}

func TestGetLanguages(t *testing.T) {
	srv, _ := newTestServer(t)

	var languages []trans.Language
	resp := getJson(t, srv.URL+"/languages", &languages)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NotEmpty(t, languages)
	assert.Equal(t, "ar", languages[0].Code)
}

func TestCreateLanguage(t *testing.T) {
	srv, ds := newTestServer(t)

	resp := postJson(t, srv.URL+"/languages/ja", map[string]string{"name": "Japanese"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	l, err := ds.GetLanguage("ja")
	require.NoError(t, err)
	assert.Equal(t, "Japanese", l.Name)

	// Duplicate codes conflict
	resp = postJson(t, srv.URL+"/languages/ja", map[string]string{"name": "Japanese"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGetUnit(t *testing.T) {
	srv, ds := newTestServer(t)
	id := importGreeting(t, ds)

	var unit Unit
	resp := getJson(t, fmt.Sprintf("%v/units/%v", srv.URL, id), &unit)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "greeting", unit.Context)
	assert.Equal(t, "messages", unit.Component)
	assert.Equal(t, "cs", unit.Language)
	assert.Equal(t, "Hello world", unit.Source)
}

func TestGetUnitNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	var errResp struct {
		Error string `json:"error"`
	}
	resp, err := http.Get(srv.URL + "/units/12345")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	assert.Equal(t, "not found", errResp.Error)
}

func TestRenderUnit(t *testing.T) {
	srv, ds := newTestServer(t)
	id := importGreeting(t, ds)

	var rendered renderedResponse
	resp := getJson(t, fmt.Sprintf("%v/units/%v/render", srv.URL, id), &rendered)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rendered.Items, 1)
	assert.Equal(t, "Hello world", rendered.Items[0].Content)
	require.Len(t, rendered.TargetItems, 1)
	assert.Equal(t, "Ahoj světe", rendered.TargetItems[0].Content)
	assert.Equal(t, "ltr", rendered.Direction)
	assert.Equal(t, "foo.bar:123", rendered.Location)
	assert.Contains(t, rendered.LastChange, "<span title=")
}

func TestRenderUnitDiff(t *testing.T) {
	srv, ds := newTestServer(t)
	importGreeting(t, ds)

	// A second import stores the old source as the previous revision.
	require.NoError(t, ds.ImportUnits("messages", "cs", []trans.Unit{
		{Context: "greeting", Source: "Hello, world!", Target: "Ahoj světe", Location: "foo.bar:123"},
	}))
	units, err := ds.GetUnitList("messages")
	require.NoError(t, err)

	var rendered renderedResponse
	resp := getJson(t, fmt.Sprintf("%v/units/%v/render?diff=1", srv.URL, units[0].Id), &rendered)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rendered.Items, 1)
	assert.Equal(t, "Hello<ins>,</ins> world<ins>!</ins>", rendered.Items[0].Content)
}

func TestRenderUnitGlossary(t *testing.T) {
	srv, ds := newTestServer(t)
	id := importGreeting(t, ds)
	require.NoError(t, ds.AddGlossaryTerm("cs", trans.Term{Source: "hello", Target: "ahoj"}))

	var rendered renderedResponse
	resp := getJson(t, fmt.Sprintf("%v/units/%v/render?glossary=1", srv.URL, id), &rendered)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, rendered.Items, 1)
	assert.Equal(t,
		"<span class=\"glossary-term\" title=\"Glossary translation: ahoj\">Hello</span> world",
		rendered.Items[0].Content)
}

func TestRenderUnitRepoweb(t *testing.T) {
	srv, ds := newTestServer(t)
	id := importGreeting(t, ds)
	require.NoError(t, ds.SetComponentRepoweb("messages", "http://example.net/{{filename}}#L{{line}}"))

	var rendered renderedResponse
	resp := getJson(t, fmt.Sprintf("%v/units/%v/render", srv.URL, id), &rendered)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"<a class=\"wrap-text\" href=\"http://example.net/foo.bar#L123\" target=\"_blank\" dir=\"ltr\" rel=\"noopener noreferrer\">foo.bar:123</a>",
		rendered.Location)
}

func TestRenderUnitEditorLink(t *testing.T) {
	srv, ds := newTestServer(t)
	id := importGreeting(t, ds)
	require.NoError(t, ds.SetComponentRepoweb("messages", "http://example.net/{{filename}}#L{{line}}"))

	editor := "editor%3A%2F%2Fopen%2F%3Ffile%3D%7B%7Bfilename%7D%7D%26line%3D%7B%7Bline%7D%7D"
	var rendered renderedResponse
	resp := getJson(t, fmt.Sprintf("%v/units/%v/render?editor=%v", srv.URL, id, editor), &rendered)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"<a class=\"wrap-text\" href=\"editor://open/?file=foo.bar&amp;line=123\" target=\"_blank\" dir=\"ltr\" rel=\"noopener noreferrer\">foo.bar:123</a>",
		rendered.Location)
}

func TestRenderUnitInstanceEditorLink(t *testing.T) {
	srv, ds := newTestServerWithEditor(t, "editor://open/?file={{filename}}&line={{line}}")
	id := importGreeting(t, ds)
	require.NoError(t, ds.SetComponentRepoweb("messages", "http://example.net/{{filename}}#L{{line}}"))

	// No editor query parameter; the instance template still wins over repoweb.
	var rendered renderedResponse
	resp := getJson(t, fmt.Sprintf("%v/units/%v/render", srv.URL, id), &rendered)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"<a class=\"wrap-text\" href=\"editor://open/?file=foo.bar&amp;line=123\" target=\"_blank\" dir=\"ltr\" rel=\"noopener noreferrer\">foo.bar:123</a>",
		rendered.Location)
}

func TestRender(t *testing.T) {
	srv, _ := newTestServer(t)

	var rendered struct {
		Items []struct {
			Content string `json:"content"`
		} `json:"items"`
		Direction string `json:"direction"`
	}

	resp := postJson(t, srv.URL+"/render", map[string]interface{}{
		"text":     "Hello world",
		"language": "en",
		"diff":     "Hello, world!",
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rendered))
	require.Len(t, rendered.Items, 1)
	assert.Equal(t, "Hello<del>,</del> world<del>!</del>", rendered.Items[0].Content)
	assert.Equal(t, "ltr", rendered.Direction)
}

func TestRenderGlossary(t *testing.T) {
	srv, _ := newTestServer(t)

	var rendered struct {
		Items []struct {
			Content string `json:"content"`
		} `json:"items"`
	}

	resp := postJson(t, srv.URL+"/render", map[string]interface{}{
		"text":     "Hello world",
		"language": "en",
		"glossary": []map[string]string{{"source": "hello", "target": "ahoj"}},
	})
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rendered))
	require.Len(t, rendered.Items, 1)
	assert.Equal(t,
		"<span class=\"glossary-term\" title=\"Glossary translation: ahoj\">Hello</span> world",
		rendered.Items[0].Content)
}

func TestRenderUnknownLanguage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJson(t, srv.URL+"/render", map[string]interface{}{
		"text":     "Hello world",
		"language": "xx",
	})
	resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateAndUpdateUnit(t *testing.T) {
	srv, ds := newTestServer(t)
	importGreeting(t, ds)

	resp := postJson(t, srv.URL+"/components/messages/languages/cs/units", map[string]string{
		"context":  "farewell",
		"source":   "Goodbye",
		"target":   "Sbohem",
		"location": "foo.bar:200",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	units, err := ds.GetUnitList("messages")
	require.NoError(t, err)
	assert.Len(t, units, 2)

	// PUT cannot create new units
	data, err := json.Marshal(map[string]string{"context": "brand-new", "source": "New"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/components/messages/languages/cs/units", bytes.NewReader(data))
	require.NoError(t, err)
	putResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	putResp.Body.Close()
	assert.Equal(t, http.StatusNotFound, putResp.StatusCode)
}

func TestDeleteUnit(t *testing.T) {
	srv, ds := newTestServer(t)
	id := importGreeting(t, ds)

	req, err := http.NewRequest(http.MethodDelete, fmt.Sprintf("%v/units/%v", srv.URL, id), nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGlossaryEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJson(t, srv.URL+"/glossary/cs", map[string]string{"source": "hello", "target": "ahoj"})
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var output struct {
		Terms []trans.Term `json:"terms"`
	}
	getResp := getJson(t, srv.URL+"/glossary/cs", &output)
	assert.Equal(t, http.StatusOK, getResp.StatusCode)
	assert.Equal(t, []trans.Term{{Source: "hello", Target: "ahoj"}}, output.Terms)

	resp = postJson(t, srv.URL+"/glossary/cs", map[string]string{"source": "hello", "target": "nazdar"})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateComponent(t *testing.T) {
	srv, ds := newTestServer(t)
	importGreeting(t, ds)

	data, err := json.Marshal(map[string]string{"repoweb": "http://example.net/{{filename}}#L{{line}}"})
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPut, srv.URL+"/components/messages", bytes.NewReader(data))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	c, err := ds.GetComponent("messages")
	require.NoError(t, err)
	assert.Equal(t, "http://example.net/{{filename}}#L{{line}}", c.Repoweb)
}
