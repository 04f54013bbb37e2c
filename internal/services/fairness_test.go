package services_test

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFairnessSeedIsReplayable(t *testing.T) {
	want := sha256.Sum256([]byte("server-client-42"))
	assert.Equal(t, want, services.FairnessSeed("server", "client", 42))
	assert.NotEqual(t, want, services.FairnessSeed("server", "client", 43))

	hash := services.HashServerSeed("server")
	assert.Len(t, hash, 64)
}

func TestVerifyReplaysResolver(t *testing.T) {
	req := &models.VerifyRequest{
		ServerSeed: "seed",
		ClientSeed: "player",
		Nonce:      7,
		GameType:   models.GameTypeDice,
		Choice:     7,
	}

	v, err := services.Verify(req)
	require.NoError(t, err)

	random := services.FairnessSeed("seed", "player", 7)
	out, err := services.ResolveOutcome(models.GameTypeDice, 7, random)
	require.NoError(t, err)

	assert.Equal(t, hex.EncodeToString(random[:]), v.RandomValue)
	assert.Equal(t, out.Value, v.Outcome)
	assert.Equal(t, out.IsWin, v.IsWin)
	assert.Equal(t, services.HashServerSeed("seed"), v.ServerSeedHash)

	req.Choice = 13
	_, err = services.Verify(req)
	assert.ErrorIs(t, err, models.ErrInvalidChoice)
}

func TestFairnessSourceRotation(t *testing.T) {
	src, err := services.NewFairnessSource("casino")
	require.NoError(t, err)

	committed := src.ServerSeedHash()
	first := src.Draw(1)
	assert.Equal(t, first, src.Draw(1))
	assert.NotEqual(t, first, src.Draw(2))

	revealed, err := src.Rotate()
	require.NoError(t, err)
	assert.Equal(t, committed, services.HashServerSeed(revealed))
	assert.Equal(t, first, services.FairnessSeed(revealed, src.ClientSeed(), 1))
	assert.NotEqual(t, committed, src.ServerSeedHash())
}
