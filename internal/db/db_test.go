package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnect_InvalidURL(t *testing.T) {
	db, err := Connect(context.Background(), "postgres://%zz@localhost/jobs")
	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to connect to database")
}

func TestClose_WithoutPool(t *testing.T) {
	assert.NoError(t, (&DB{}).Close())
}
