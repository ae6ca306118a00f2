package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
)

var testConfig = Config{
	Host:     "db.local",
	Port:     "5432",
	User:     "helplink",
	Password: "secret",
	DBName:   "helplink",
	SSLMode:  "disable",
}

func TestDialectorPostgres(t *testing.T) {
	d, err := Dialector(testConfig)
	require.NoError(t, err)

	pg, ok := d.(*postgres.Dialector)
	require.True(t, ok)
	assert.Equal(t, "postgres", pg.Name())
	assert.Equal(t, "host=db.local port=5432 user=helplink password=secret dbname=helplink sslmode=disable", pg.Config.DSN)
}

func TestDialectorMySQL(t *testing.T) {
	cfg := testConfig
	cfg.Driver = "mysql"
	cfg.Port = "3306"

	d, err := Dialector(cfg)
	require.NoError(t, err)

	my, ok := d.(*mysql.Dialector)
	require.True(t, ok)
	assert.Equal(t, "mysql", my.Name())
	assert.Equal(t, "helplink:secret@tcp(db.local:3306)/helplink?charset=utf8mb4&parseTime=true&loc=UTC", my.Config.DSN)
}

func TestDialectorUnknownDriver(t *testing.T) {
	cfg := testConfig
	cfg.Driver = "oracle"

	_, err := Dialector(cfg)
	assert.Error(t, err)
}
