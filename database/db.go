package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/MRT0B13/AgentX/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn *sql.DB
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		instance = &Datasource{Conn: con}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database connection")
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, errors.Wrap(err, "failed to ping database")
	}
	err = createLaunchPackTable(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create launchpacks table")
	}
	return db, nil
}

// createLaunchPackTable creates the PostgreSQL table backing LaunchPack
// storage. The document column holds the full record; the status and
// timestamp columns are denormalized copies used purely to make the claim
// predicates and due-publish scans indexable.
func createLaunchPackTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS launchpacks (
			id SERIAL PRIMARY KEY,
			launchpack_id TEXT NOT NULL UNIQUE,
			idempotency_key TEXT UNIQUE,
			version BIGINT NOT NULL DEFAULT 1,
			launch_status TEXT NOT NULL DEFAULT 'draft',
			launch_requested_at TIMESTAMPTZ,
			tg_status TEXT NOT NULL DEFAULT 'idle',
			tg_failed_at TIMESTAMPTZ,
			x_status TEXT NOT NULL DEFAULT 'idle',
			x_failed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			document JSONB NOT NULL
		)
	`)
	if err != nil {
		log.Printf("Error creating launchpacks table: %v", err)
	}
	return err
}
