package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
)

type EngineOptions struct {
	ProgramID             string
	SessionExpiry         time.Duration
	PlayerBuffer          uint64
	SessionDeposit        uint64
	DefaultRandomnessMode models.RandomnessMode
	Clock                 func() time.Time
	Broadcaster           Broadcaster
}

// CasinoEngine runs every wagering and settlement operation as one atomic
// unit against the ledger.
type CasinoEngine struct {
	ledger      Ledger
	programID   string
	expiry      time.Duration
	buffer      uint64
	deposit     uint64
	defaultMode models.RandomnessMode
	now         func() time.Time
	broadcaster Broadcaster
}

func NewCasinoEngine(ledger Ledger, opts EngineOptions) *CasinoEngine {
	ce := &CasinoEngine{
		ledger:      ledger,
		programID:   opts.ProgramID,
		expiry:      opts.SessionExpiry,
		buffer:      opts.PlayerBuffer,
		deposit:     opts.SessionDeposit,
		defaultMode: opts.DefaultRandomnessMode,
		now:         opts.Clock,
		broadcaster: opts.Broadcaster,
	}
	if ce.programID == "" {
		ce.programID = "casino"
	}
	if ce.expiry <= 0 {
		ce.expiry = models.DefaultSessionExpiry
	}
	if !ce.defaultMode.Valid() {
		ce.defaultMode = models.RandomnessModeMock
	}
	if ce.now == nil {
		ce.now = time.Now
	}
	if ce.broadcaster == nil {
		ce.broadcaster = nopBroadcaster{}
	}
	return ce
}

func (ce *CasinoEngine) SessionExpiry() time.Duration {
	return ce.expiry
}

func (ce *CasinoEngine) Initialize(ctx context.Context, caller string, params models.InitializeParams) (*models.CasinoConfig, error) {
	if params.RandomnessMode == "" {
		params.RandomnessMode = ce.defaultMode
	}

	var cfg *models.CasinoConfig
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		_, err := tx.Config()
		if err == nil {
			return models.ErrAlreadyInitialized
		}
		if !errors.Is(err, models.ErrNotInitialized) {
			return err
		}
		if err := params.Validate(); err != nil {
			return err
		}

		cfg = &models.CasinoConfig{
			Authority:       caller,
			ProgramID:       ce.programID,
			VaultAccount:    models.VaultAccount,
			TreasuryAccount: models.TreasuryAccount,
			MinBet:          params.MinBet,
			MaxBet:          params.MaxBet,
			TotalFunded:     params.InitialFunding,
			IsActive:        true,
			RandomnessMode:  params.RandomnessMode,
			CreatedAt:       ce.now().Unix(),
		}
		if params.OracleFeed != "" {
			feed := params.OracleFeed
			cfg.OracleFeed = &feed
		}

		if _, err := newVaultMover(tx, cfg).escrow(caller, params.InitialFunding); err != nil {
			return err
		}
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("authority", caller).
		Str("min_bet", models.FormatLamports(cfg.MinBet)).
		Str("max_bet", models.FormatLamports(cfg.MaxBet)).
		Str("vault", models.FormatLamports(params.InitialFunding)).
		Str("randomness_mode", string(cfg.RandomnessMode)).
		Msg("casino initialized")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventVaultFunded,
		Player:    caller,
		Amount:    params.InitialFunding,
		CreatedAt: cfg.CreatedAt,
	})
	return cfg.Clone(), nil
}

func (ce *CasinoEngine) Pause(ctx context.Context, caller string) error {
	return ce.setActive(ctx, caller, false)
}

func (ce *CasinoEngine) Resume(ctx context.Context, caller string) error {
	return ce.setActive(ctx, caller, true)
}

func (ce *CasinoEngine) setActive(ctx context.Context, caller string, active bool) error {
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		if caller != cfg.Authority {
			return models.ErrUnauthorized
		}
		cfg.IsActive = active
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return err
	}

	eventType := models.EventCasinoResumed
	if !active {
		eventType = models.EventCasinoPaused
	}
	logger.Info(ctx).Bool("active", active).Msg("casino state changed")
	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{Type: eventType, CreatedAt: ce.now().Unix()})
	return nil
}

// PlaceBet escrows a wager and opens a pending session. All checks run
// before the first write, so a rejected bet leaves no trace.
func (ce *CasinoEngine) PlaceBet(ctx context.Context, caller string, req *models.BetRequest) (*models.GameSession, error) {
	var session *models.GameSession
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		if !cfg.IsOperational() {
			return models.ErrCasinoPaused
		}
		if err := req.GameType.ValidateChoice(req.Choice); err != nil {
			return err
		}
		if err := cfg.ValidateBetAmount(req.BetAmount); err != nil {
			return err
		}

		playerBal, err := tx.Balance(models.PlayerAccount(caller))
		if err != nil {
			return err
		}
		required, err := models.CheckedAdd(req.BetAmount, ce.buffer)
		if err != nil {
			return err
		}
		if playerBal < required {
			return models.ErrInsufficientPlayerFunds
		}

		potential, err := PotentialPayout(req.BetAmount)
		if err != nil {
			return err
		}
		vaultBal, err := tx.Balance(cfg.VaultAccount)
		if err != nil {
			return err
		}
		if vaultBal < potential {
			return models.ErrInsufficientVaultLiquidity
		}

		gameID := cfg.TotalGames
		if cfg.TotalGames, err = models.CheckedAdd(gameID, 1); err != nil {
			return err
		}

		mover := newVaultMover(tx, cfg)
		if _, err := mover.escrow(caller, req.BetAmount); err != nil {
			return err
		}
		if err := mover.debit(caller, ce.deposit); err != nil {
			return err
		}

		session = &models.GameSession{
			Player:            caller,
			GameID:            gameID,
			GameType:          req.GameType,
			BetAmount:         req.BetAmount,
			Choice:            req.Choice,
			Status:            models.SessionStatusPending,
			RandomnessRequest: randomnessRequest(cfg, gameID),
			StorageDeposit:    ce.deposit,
			CreatedAt:         ce.now().Unix(),
		}
		if err := tx.PutSession(session); err != nil {
			return err
		}

		if cfg.TotalVolume, err = models.CheckedAdd(cfg.TotalVolume, req.BetAmount); err != nil {
			return err
		}
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("player", caller).
		Uint64("game_id", session.GameID).
		Str("game_type", string(session.GameType)).
		Str("bet", models.FormatLamports(session.BetAmount)).
		Str("request_id", session.RandomnessRequest.RequestID).
		Msg("bet placed")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventBetPlaced,
		Player:    caller,
		Amount:    session.BetAmount,
		Session:   session.Clone(),
		CreatedAt: session.CreatedAt,
	})
	return session, nil
}

func randomnessRequest(cfg *models.CasinoConfig, gameID uint64) models.RandomnessRequest {
	if cfg.RandomnessMode == models.RandomnessModeOracle {
		req := models.RandomnessRequest{RequestID: fmt.Sprintf("oracle_%d", gameID)}
		if cfg.OracleFeed != nil {
			feed := *cfg.OracleFeed
			req.OracleRequest = &feed
		}
		return req
	}
	return models.RandomnessRequest{IsMock: true, RequestID: fmt.Sprintf("mock_%d", gameID)}
}

// FulfillRandomness resolves a pending session. A winning payout is
// transferred at once only when the player fulfils their own session; when
// the authority fulfils it the payout waits for ClaimPayout.
func (ce *CasinoEngine) FulfillRandomness(ctx context.Context, caller, player string, gameID uint64, random [32]byte) (*models.GameSession, error) {
	var session *models.GameSession
	var transferred bool
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		session, err = tx.Session(player, gameID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionStatusPending {
			return models.ErrAlreadyResolved
		}
		now := ce.now()
		if session.IsExpired(now, ce.expiry) {
			return models.ErrSessionExpired
		}
		if caller != cfg.Authority && caller != session.Player {
			return models.ErrUnauthorized
		}
		if err := checkRandomnessSource(cfg.RandomnessMode, session.RandomnessRequest); err != nil {
			return err
		}

		out, err := ResolveOutcome(session.GameType, session.Choice, random)
		if err != nil {
			return err
		}
		payout, err := out.Payout(session.BetAmount)
		if err != nil {
			return err
		}

		result := &models.GameResult{Outcome: out.Value, IsWin: out.IsWin, Payout: payout, PayoutClaimed: true}
		if out.IsWin && payout > 0 {
			if caller == session.Player {
				if _, err := newVaultMover(tx, cfg).release(session.Player, payout); err != nil {
					return err
				}
				if cfg.TotalPayouts, err = models.CheckedAdd(cfg.TotalPayouts, payout); err != nil {
					return err
				}
				transferred = true
			} else {
				result.PayoutClaimed = false
			}
		}

		resolvedAt := now.Unix()
		session.Status = models.SessionStatusResolved
		session.Result = result
		session.ResolvedAt = &resolvedAt
		if err := tx.PutSession(session); err != nil {
			return err
		}
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("player", player).
		Uint64("game_id", gameID).
		Str("fulfilled_by", caller).
		Uint8("outcome", session.Result.Outcome).
		Bool("win", session.Result.IsWin).
		Str("payout", models.FormatLamports(session.Result.Payout)).
		Bool("paid", transferred).
		Msg("session resolved")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventSessionResolved,
		Player:    player,
		Amount:    session.Result.Payout,
		Session:   session.Clone(),
		CreatedAt: *session.ResolvedAt,
	})
	return session, nil
}

func checkRandomnessSource(mode models.RandomnessMode, req models.RandomnessRequest) error {
	switch {
	case mode == models.RandomnessModeMock && !req.IsMock:
		return models.ErrInvalidRandomnessCallback
	case mode == models.RandomnessModeOracle && req.IsMock:
		return models.ErrMockVRFNotAllowed
	}
	return nil
}

// ClaimPayout transfers a deferred win to the caller. A second claim fails
// with ErrNothingToClaim.
func (ce *CasinoEngine) ClaimPayout(ctx context.Context, caller string, gameID uint64) (*models.GameSession, error) {
	var session *models.GameSession
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		session, err = tx.Session(caller, gameID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionStatusResolved || session.Result == nil {
			return models.ErrNotResolved
		}
		if !session.HasUnclaimedPayout() {
			return models.ErrNothingToClaim
		}

		payout := session.Result.Payout
		if _, err := newVaultMover(tx, cfg).release(caller, payout); err != nil {
			return err
		}
		if cfg.TotalPayouts, err = models.CheckedAdd(cfg.TotalPayouts, payout); err != nil {
			return err
		}
		session.Result.PayoutClaimed = true

		if err := tx.PutSession(session); err != nil {
			return err
		}
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("player", caller).
		Uint64("game_id", gameID).
		Str("payout", models.FormatLamports(session.Result.Payout)).
		Msg("payout claimed")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventPayoutClaimed,
		Player:    caller,
		Amount:    session.Result.Payout,
		Session:   session.Clone(),
		CreatedAt: ce.now().Unix(),
	})
	return session, nil
}

// RefundExpired returns the bet and the storage deposit of a session that
// was never resolved, then deletes it. Anyone may trigger it. The returned
// session is the final expired snapshot.
func (ce *CasinoEngine) RefundExpired(ctx context.Context, caller, player string, gameID uint64) (*models.GameSession, error) {
	var session *models.GameSession
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		session, err = tx.Session(player, gameID)
		if err != nil {
			return err
		}
		if session.Status != models.SessionStatusPending {
			return models.ErrAlreadyResolved
		}
		now := ce.now()
		if !session.IsExpired(now, ce.expiry) {
			return models.ErrSessionNotExpiredYet
		}

		mover := newVaultMover(tx, cfg)
		if _, err := mover.release(player, session.BetAmount); err != nil {
			return err
		}

		resolvedAt := now.Unix()
		session.Status = models.SessionStatusExpired
		session.ResolvedAt = &resolvedAt

		if err := mover.credit(player, session.StorageDeposit); err != nil {
			return err
		}
		return tx.DeleteSession(player, gameID)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("player", player).
		Uint64("game_id", gameID).
		Str("refunded_by", caller).
		Str("bet", models.FormatLamports(session.BetAmount)).
		Msg("expired session refunded")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventSessionRefunded,
		Player:    player,
		Amount:    session.BetAmount,
		Session:   session.Clone(),
		CreatedAt: *session.ResolvedAt,
	})
	return session, nil
}

// SkimExcessToTreasury moves vault surplus to the treasury while keeping at
// least minVaultReserve in the vault.
func (ce *CasinoEngine) SkimExcessToTreasury(ctx context.Context, caller string, amount, minVaultReserve uint64) (*models.SkimRecord, error) {
	var record *models.SkimRecord
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		if caller != cfg.Authority {
			return models.ErrUnauthorized
		}
		if amount == 0 {
			return models.ErrInvalidSkimAmount
		}
		floor, err := models.CheckedAdd(amount, minVaultReserve)
		if err != nil {
			return err
		}
		vaultBal, err := tx.Balance(cfg.VaultAccount)
		if err != nil {
			return err
		}
		if vaultBal < floor {
			return models.ErrInsufficientVaultLiquidity
		}

		vaultAfter, treasuryAfter, err := newVaultMover(tx, cfg).skim(amount)
		if err != nil {
			return err
		}
		if cfg.TotalTreasurySkimmed, err = models.CheckedAdd(cfg.TotalTreasurySkimmed, amount); err != nil {
			return err
		}

		record = &models.SkimRecord{
			Amount:               amount,
			VaultBalanceAfter:    vaultAfter,
			TreasuryBalanceAfter: treasuryAfter,
			MinVaultReserve:      minVaultReserve,
		}
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx).
		Str("amount", models.FormatLamports(record.Amount)).
		Str("vault_after", models.FormatLamports(record.VaultBalanceAfter)).
		Str("treasury_after", models.FormatLamports(record.TreasuryBalanceAfter)).
		Msg("treasury skimmed")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventTreasurySkimmed,
		Player:    caller,
		Amount:    amount,
		Skim:      record,
		CreatedAt: ce.now().Unix(),
	})
	return record, nil
}

// FundVault tops up the vault from the caller's own account.
func (ce *CasinoEngine) FundVault(ctx context.Context, caller string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, models.ErrInvalidAmount
	}

	var vaultAfter uint64
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		cfg, err := tx.Config()
		if err != nil {
			return err
		}
		if vaultAfter, err = newVaultMover(tx, cfg).escrow(caller, amount); err != nil {
			return err
		}
		if cfg.TotalFunded, err = models.CheckedAdd(cfg.TotalFunded, amount); err != nil {
			return err
		}
		return tx.PutConfig(cfg)
	})
	if err != nil {
		return 0, err
	}

	logger.Info(ctx).
		Str("funder", caller).
		Str("amount", models.FormatLamports(amount)).
		Str("vault_after", models.FormatLamports(vaultAfter)).
		Msg("vault funded")

	ce.broadcaster.BroadcastEvent(ctx, &models.CasinoEvent{
		Type:      models.EventVaultFunded,
		Player:    caller,
		Amount:    amount,
		CreatedAt: ce.now().Unix(),
	})
	return vaultAfter, nil
}

// Airdrop credits a player account out of thin air. Development only: the
// API never exposes it, only the operator CLI does.
func (ce *CasinoEngine) Airdrop(ctx context.Context, identity string, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, models.ErrInvalidAmount
	}
	var balance uint64
	err := ce.ledger.Atomic(ctx, func(tx LedgerTx) error {
		account := models.PlayerAccount(identity)
		bal, err := tx.Balance(account)
		if err != nil {
			return err
		}
		if balance, err = models.CheckedAdd(bal, amount); err != nil {
			return err
		}
		return tx.SetBalance(account, balance)
	})
	if err != nil {
		return 0, err
	}
	logger.Warn(ctx).Str("player", identity).Str("amount", models.FormatLamports(amount)).Msg("airdrop credited")
	return balance, nil
}

func (ce *CasinoEngine) GetConfig(ctx context.Context) (*models.CasinoConfig, error) {
	return ce.ledger.GetConfig(ctx)
}

func (ce *CasinoEngine) GetSession(ctx context.Context, player string, gameID uint64) (*models.GameSession, error) {
	return ce.ledger.GetSession(ctx, player, gameID)
}

func (ce *CasinoEngine) PlayerSessions(ctx context.Context, player string) ([]*models.GameSession, error) {
	return ce.ledger.PlayerSessions(ctx, player)
}

func (ce *CasinoEngine) PendingSessions(ctx context.Context) ([]*models.GameSession, error) {
	return ce.ledger.PendingSessions(ctx)
}

func (ce *CasinoEngine) Balance(ctx context.Context, identity string) (uint64, error) {
	return ce.ledger.GetBalance(ctx, models.PlayerAccount(identity))
}

func (ce *CasinoEngine) VaultBalance(ctx context.Context) (uint64, error) {
	return ce.ledger.GetBalance(ctx, models.VaultAccount)
}

func (ce *CasinoEngine) TreasuryBalance(ctx context.Context) (uint64, error) {
	return ce.ledger.GetBalance(ctx, models.TreasuryAccount)
}
