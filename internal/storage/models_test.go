package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilibilimnb/CS2-Map-Ban-Pick-Tool/internal/engine"
)

func TestMapPool_CardsAreFreshAndOrdered(t *testing.T) {
	pool := MapPool{
		Name: "active duty",
		Maps: []MapDef{
			{Name: "Mirage"}, {Name: "Inferno"}, {Name: "Dust2"}, {Name: "Nuke"},
			{Name: "Anubis"}, {Name: "Vertigo"}, {Name: "Ancient"},
		},
	}

	cards := pool.Cards()
	require.Len(t, cards, 7)
	assert.Equal(t, "map01", cards[0].ID)
	assert.Equal(t, "map07", cards[6].ID)
	for _, c := range cards {
		assert.Equal(t, engine.MapAvailable, c.Status)
	}
}

func TestGenerateRoomCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code, err := GenerateRoomCode()
		require.NoError(t, err)
		require.Len(t, code, 8)
		for _, ch := range code {
			assert.Contains(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789", string(ch))
		}
		seen[code] = true
	}
	assert.Greater(t, len(seen), 45, "codes should be effectively unique")
}
