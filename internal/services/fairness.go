package services

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"casino-vault-backend/internal/models"
)

// FairnessSeed derives random bytes that a player can replay:
// sha256("<server seed>-<client seed>-<nonce>").
func FairnessSeed(serverSeed, clientSeed string, nonce uint64) [32]byte {
	return sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%d", serverSeed, clientSeed, nonce)))
}

func HashServerSeed(serverSeed string) string {
	hash := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(hash[:])
}

func GenerateServerSeed() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate server seed: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type Verification struct {
	ServerSeedHash string `json:"server_seed_hash"`
	RandomValue    string `json:"random_value"`
	Outcome        uint8  `json:"outcome"`
	IsWin          bool   `json:"is_win"`
	MultiplierBP   uint64 `json:"multiplier_bp"`
}

// Verify replays a provably fair draw through the outcome resolver.
func Verify(req *models.VerifyRequest) (*Verification, error) {
	if err := req.GameType.ValidateChoice(req.Choice); err != nil {
		return nil, err
	}
	random := FairnessSeed(req.ServerSeed, req.ClientSeed, req.Nonce)
	out, err := ResolveOutcome(req.GameType, req.Choice, random)
	if err != nil {
		return nil, err
	}
	return &Verification{
		ServerSeedHash: HashServerSeed(req.ServerSeed),
		RandomValue:    hex.EncodeToString(random[:]),
		Outcome:        out.Value,
		IsWin:          out.IsWin,
		MultiplierBP:   out.MultiplierBP,
	}, nil
}

// FairnessSource hands out provably fair random values for mock-mode
// sessions. The server seed is only revealed on rotation.
type FairnessSource struct {
	mu         sync.RWMutex
	serverSeed string
	clientSeed string
}

func NewFairnessSource(clientSeed string) (*FairnessSource, error) {
	seed, err := GenerateServerSeed()
	if err != nil {
		return nil, err
	}
	return &FairnessSource{serverSeed: seed, clientSeed: clientSeed}, nil
}

func (f *FairnessSource) ServerSeedHash() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return HashServerSeed(f.serverSeed)
}

func (f *FairnessSource) ClientSeed() string {
	return f.clientSeed
}

// Draw uses the game id as the nonce so each session gets its own value.
func (f *FairnessSource) Draw(gameID uint64) [32]byte {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return FairnessSeed(f.serverSeed, f.clientSeed, gameID)
}

// Rotate reveals the current server seed and commits to a new one.
func (f *FairnessSource) Rotate() (revealed string, err error) {
	next, err := GenerateServerSeed()
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	revealed, f.serverSeed = f.serverSeed, next
	return revealed, nil
}
