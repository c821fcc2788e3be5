package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joefazee/settlement/models"
)

func TestConfig(t *testing.T) {
	c := &Config{
		Host: "db", Port: "5432", User: "settle", Password: "p@ss word",
		Database: "settlement", ConnMaxLifetime: time.Hour,
	}
	assert.NoError(t, c.Validate())
	assert.Equal(t, "host=db user=settle password=p@ss word dbname=settlement port=5432 sslmode=disable", c.DSN())
	assert.Equal(t, "postgres://settle:p%40ss%20word@db:5432/settlement?sslmode=disable", c.URL())

	c.UseSSL = true
	assert.Contains(t, c.URL(), "sslmode=require")

	_, err := New(&Config{Host: "db"})
	assert.ErrorIs(t, err, models.ErrDatabaseCredentialNotConfigured)

	_, _, err = Migrate(&Config{}, 0)
	assert.ErrorIs(t, err, models.ErrDatabaseCredentialNotConfigured)
}
