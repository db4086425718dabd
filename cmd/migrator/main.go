package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	app := kingpin.New("migrator", "Applies the taskhub postgres schema.")
	storagePath := app.Flag("storage", "Postgres connection URL.").Envar("STORAGE_DSN").Required().String()
	migrationPath := app.Flag("migrations", "Path to the migrations directory.").Default("./migrations").String()
	down := app.Flag("down", "Revert every migration instead of applying them.").Bool()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	m, err := migrate.New("file://"+*migrationPath, *storagePath)
	if err != nil {
		panic(err)
	}
	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return
		}
		panic(err)
	}
}
