package postgres

import (
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"

	"github.com/RevenueCat/purchases-android-sub005/cache/tests"
	"github.com/RevenueCat/purchases-android-sub005/database/pgtest"

	_ "github.com/jackc/pgx/v4/stdlib"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	log := logrus.StandardLogger()

	testPool, err := dockertest.NewPool("")
	if err != nil {
		log.WithError(err).Error("Error creating docker pool")
		os.Exit(1)
	}

	databaseURL, closeDB, err := pgtest.StartPostgresDB(testPool)
	if err != nil {
		log.WithError(err).Error("Error starting postgres image")
		os.Exit(1)
	}
	defer closeDB()

	testDB, err = pgtest.WaitForConnection(databaseURL)
	if err != nil {
		log.WithError(err).Error("Error waiting for connection")
		os.Exit(1)
	}

	if _, err := testDB.Exec(Schema); err != nil {
		log.WithError(err).Error("Error applying schema")
		os.Exit(1)
	}

	code := m.Run()
	closeDB()
	os.Exit(code)
}

func TestCache_PostgresStore(t *testing.T) {
	testStore := NewInPostgres(testDB)
	teardown := func() {
		testStore.(*store).reset()
	}
	tests.RunStoreTests(t, testStore, teardown)
}
