/*
A service for managing a database of translations and serving display-ready
renderings of them over a JSON API: relative timestamps, source location
links and diff/glossary-annotated translation markup.

Various program settings are controlled by a TOML config file, which must be
available for the program to run. By default, the program will look for a
file called 'weblate.toml' in the same directory as its binary.

The program must be run with a 'command' argument to indicate what you would
like it to do. Available commands are:

  - import: Imports translation units from XLIFF files in the xliff 'import_path' given in the config file.
  - init-db: Creates or migrates the database schema.
  - serve: Starts an HTTP server providing a JSON API for accessing, modifying and rendering the translation data.
  - help: Prints usage instructions
*/
package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/dbaio/weblate/config"
	"github.com/dbaio/weblate/importer"
	"github.com/dbaio/weblate/server"
)

var (
	configPath string
)

const (
	cmdMissing      = "missing"
	cmdUnrecognised = "unrecognised"
	cmdHelp         = "help"
	cmdImport       = "import"
	cmdInitDb       = "init-db"
	cmdServe        = "serve"
)

func init() {
	defaultConfigPath := filepath.FromSlash("./weblate.toml")
	flag.StringVar(&configPath, "config", defaultConfigPath, "Full `path` and file name to the config file")
}

type Command interface {
	Run(config.Config)
}

type CommandFunc func(config.Config)

func (f CommandFunc) Run(c config.Config) {
	f(c)
}

// Converts os.Args to one of the cmd* constants.
func parseArgs(args []string) (command string) {
	if len(args) < 1 {
		return cmdMissing
	}

	switch args[0] {
	case cmdHelp:
		return cmdHelp
	case cmdImport:
		return cmdImport
	case cmdInitDb:
		return cmdInitDb
	case cmdServe:
		return cmdServe
	}

	return cmdUnrecognised
}

func main() {
	flag.Parse()
	config, cfgErr := config.Load(configPath)
	var command = parseArgs(os.Args[1:])

	var commandFunc = CommandFunc(printMissingCommandUsage)
	switch command {
	case cmdUnrecognised:
		commandFunc = printUnrecognisedCommandUsage(command)
	case cmdHelp:
		commandFunc = CommandFunc(printUsage)
	case cmdImport:
		commandFunc = CommandFunc(importer.Import)
	case cmdInitDb:
		commandFunc = CommandFunc(initDb)
	case cmdServe:
		commandFunc = CommandFunc(server.Serve)
	}

	// Invalid config only matters for non-'help' commands
	if command != cmdUnrecognised && command != cmdMissing && command != cmdHelp {
		checkFatal(cfgErr)
	}

	commandFunc.Run(config)
}
