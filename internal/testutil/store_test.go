package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/lexstore/internal/record"
)

func TestSeedAndRead(t *testing.T) {
	s := NewStore(t)
	Seed(t, s, record.CollectionUsers, record.User{ID: "u2"}, record.User{ID: "u1"})

	users := Read[record.User](t, s, record.CollectionUsers)
	assert.Equal(t, []string{"u2", "u1"}, Keys(users))
}

func TestSeedEmpty(t *testing.T) {
	s := NewStore(t)
	Seed[record.Order](t, s, record.CollectionOrders)

	assert.Empty(t, Read[record.Order](t, s, record.CollectionOrders))
	assert.Empty(t, Read[record.Purchase](t, s, record.CollectionPurchases))
}
