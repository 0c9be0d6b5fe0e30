// Package importer loads translation units from XLIFF files into the
// datastore, one component per file.
package importer

import (
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/dbaio/weblate/config"
	"github.com/dbaio/weblate/datastore"
)

func checkFatal(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Imports the units of every XLIFF file in the configured import path,
// printing each file as its component lands and a timing summary at the end.
func Import(c config.Config) {
	start := time.Now()

	db, err := sqlx.Connect(c.DB.Driver, c.DB.ConnectionString())
	checkFatal(err)
	ds, err := datastore.New(db, c.DB.Driver)
	checkFatal(err)

	imported := make(chan string, 100)
	printed := make(chan struct{})
	go func() {
		for file := range imported {
			fmt.Println("Imported units from", file)
		}
		close(printed)
	}()

	count, importErr := ds.ImportDir(c.XLIFF.ImportPath, imported)
	close(imported)
	<-printed
	checkFatal(importErr)

	fmt.Printf("Imported %v XLIFF files in %.2fs\n\n", count, time.Since(start).Seconds())

	fmt.Fprintln(os.Stderr, ds.Stats)
}
