package services

import "casino-vault-backend/internal/models"

// Outcome is the result of applying 32 random bytes to a game.
type Outcome struct {
	Value        uint8
	IsWin        bool
	MultiplierBP uint64
}

// ResolveOutcome is a pure function of the game, the player's choice and the
// random bytes. It never touches state.
func ResolveOutcome(gameType models.GameType, choice uint8, random [32]byte) (Outcome, error) {
	switch gameType {
	case models.GameTypeCoinFlip:
		var side uint8
		if random[0] >= 128 {
			side = 1
		}
		return outcome(side, side == choice, models.PayoutMultiplierBP), nil

	case models.GameTypeDice:
		roll := (random[0]%6 + 1) + (random[1]%6 + 1)
		return outcome(roll, roll == choice, models.DiceMultiplierBP), nil

	case models.GameTypeSlots:
		r1, r2, r3 := uint32(random[0]%10), uint32(random[1]%10), uint32(random[2]%10)
		packed := uint8((r1*100 + r2*10 + r3) % 256)
		return outcome(packed, r1 == r2 && r2 == r3, models.SlotsMultiplierBP), nil
	}
	return Outcome{}, models.ErrInvalidGameType
}

func outcome(value uint8, win bool, bp uint64) Outcome {
	o := Outcome{Value: value, IsWin: win}
	if win {
		o.MultiplierBP = bp
	}
	return o
}

// Payout is floor(bet * multiplier / 10000), zero for a loss.
func (o Outcome) Payout(bet uint64) (uint64, error) {
	if !o.IsWin {
		return 0, nil
	}
	return models.ApplyBasisPoints(bet, o.MultiplierBP)
}

// PotentialPayout is the worst case the vault must be able to cover for a
// bet. One global multiplier is used for every game.
func PotentialPayout(bet uint64) (uint64, error) {
	return models.ApplyBasisPoints(bet, models.PayoutMultiplierBP)
}
