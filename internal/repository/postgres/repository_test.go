package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sealdrop/sealdrop/internal/atrest"
)

func TestNewFileRepository(t *testing.T) {
	db := &Connection{}
	keys := atrest.NewKeyring(nil)
	repo := NewFileRepository(db, keys)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
	assert.Equal(t, keys, repo.keys)
}

func TestNewGrantRepository(t *testing.T) {
	db := &Connection{}
	keys := atrest.NewKeyring(nil)
	repo := NewGrantRepository(db, keys)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestNewAuditRepository(t *testing.T) {
	db := &Connection{}
	repo := NewAuditRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}
