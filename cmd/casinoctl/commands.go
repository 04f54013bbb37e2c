package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"casino-vault-backend/internal/config"
	"casino-vault-backend/internal/logger"
	"casino-vault-backend/internal/models"
	"casino-vault-backend/internal/services"
)

// openEngine connects to the ledger configured in the environment.
func openEngine() (*services.CasinoEngine, *services.RedisService, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	engine := services.NewCasinoEngine(redisService, services.EngineOptions{
		ProgramID:             cfg.ProgramID,
		SessionExpiry:         cfg.SessionExpiry,
		PlayerBuffer:          cfg.PlayerBuffer,
		SessionDeposit:        cfg.SessionDeposit,
		DefaultRandomnessMode: models.RandomnessMode(cfg.RandomnessMode),
	})
	return engine, redisService, cfg, nil
}

func withEngine(fn func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		engine, redisService, cfg, err := openEngine()
		if err != nil {
			return err
		}
		defer redisService.Close()
		return fn(cmd.Context(), engine, cfg)
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func amountFlag(cmd *cobra.Command, name string) (uint64, error) {
	raw, _ := cmd.Flags().GetString(name)
	return models.ParseSOL(raw)
}

// issue a signed API token
func TokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for an identity",
		RunE:  issueToken,
	}
	cmd.Flags().StringP("identity", "i", "", "player or operator identity")
	cmd.MarkFlagRequired("identity")
	cmd.Flags().StringP("role", "r", services.RolePlayer, "player or operator")
	return cmd
}

func issueToken(cmd *cobra.Command, args []string) error {
	identity, _ := cmd.Flags().GetString("identity")
	role, _ := cmd.Flags().GetString("role")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, err := services.NewJWTService(cfg).GenerateToken(identity, role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// credit development funds
func AirdropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "airdrop",
		Short: "Credit an identity with development funds",
	}
	cmd.Flags().StringP("to", "t", "", "receiving identity")
	cmd.MarkFlagRequired("to")
	cmd.Flags().StringP("amount", "a", "", "amount in SOL")
	cmd.MarkFlagRequired("amount")

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		if cfg.IsProduction() {
			return fmt.Errorf("airdrop is disabled in production")
		}
		to, _ := cmd.Flags().GetString("to")
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return err
		}
		balance, err := engine.Airdrop(ctx, to, amount)
		if err != nil {
			return err
		}
		return printJSON(models.BalanceResponse{Identity: to, Balance: balance, Formatted: models.FormatLamports(balance)})
	})
	return cmd
}

// record funds received off-ledger; allowed in every environment
func DepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Credit an identity with funds received outside the casino",
	}
	cmd.Flags().StringP("to", "t", "", "receiving identity")
	cmd.MarkFlagRequired("to")
	cmd.Flags().StringP("amount", "a", "", "amount in SOL")
	cmd.MarkFlagRequired("amount")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		to, _ := cmd.Flags().GetString("to")
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return err
		}

		_, redisService, _, err := openEngine()
		if err != nil {
			return err
		}
		defer redisService.Close()

		res, err := deposit(cmd.Context(), redisService, to, amount)
		if err != nil {
			return err
		}
		return printJSON(res)
	}
	return cmd
}

func deposit(ctx context.Context, ledger *services.RedisService, identity string, amount uint64) (*models.BalanceResponse, error) {
	if identity == "" {
		return nil, fmt.Errorf("deposit needs a receiving identity")
	}
	if err := ledger.Credit(ctx, models.PlayerAccount(identity), amount); err != nil {
		return nil, err
	}
	balance, err := ledger.GetBalance(ctx, models.PlayerAccount(identity))
	if err != nil {
		return nil, err
	}
	logger.Info(ctx).Str("player", identity).Str("amount", models.FormatLamports(amount)).Msg("deposit credited")
	return &models.BalanceResponse{Identity: identity, Balance: balance, Formatted: models.FormatLamports(balance)}, nil
}

func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the casino and seed the vault from the authority",
	}
	cmd.Flags().StringP("authority", "u", "", "authority identity, funds the vault")
	cmd.MarkFlagRequired("authority")
	cmd.Flags().String("min-bet", "0.0001", "minimum bet in SOL")
	cmd.Flags().String("max-bet", "", "maximum bet in SOL")
	cmd.MarkFlagRequired("max-bet")
	cmd.Flags().StringP("funding", "f", "", "initial vault funding in SOL")
	cmd.MarkFlagRequired("funding")
	cmd.Flags().StringP("mode", "m", "", "randomness mode, mock or oracle")
	cmd.Flags().String("feed", "", "oracle feed reference")

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		authority, _ := cmd.Flags().GetString("authority")
		mode, _ := cmd.Flags().GetString("mode")
		feed, _ := cmd.Flags().GetString("feed")

		minBet, err := amountFlag(cmd, "min-bet")
		if err != nil {
			return err
		}
		maxBet, err := amountFlag(cmd, "max-bet")
		if err != nil {
			return err
		}
		funding, err := amountFlag(cmd, "funding")
		if err != nil {
			return err
		}

		casino, err := engine.Initialize(ctx, authority, models.InitializeParams{
			MinBet:         minBet,
			MaxBet:         maxBet,
			InitialFunding: funding,
			RandomnessMode: models.RandomnessMode(mode),
			OracleFeed:     feed,
		})
		if err != nil {
			return err
		}
		return printJSON(casino)
	})
	return cmd
}

func PauseCmd() *cobra.Command {
	return activeCmd("pause", "Stop accepting bets", false)
}

func ResumeCmd() *cobra.Command {
	return activeCmd("resume", "Accept bets again", true)
}

func activeCmd(use, short string, active bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
	}
	cmd.Flags().StringP("authority", "u", "", "authority identity")
	cmd.MarkFlagRequired("authority")

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		authority, _ := cmd.Flags().GetString("authority")
		var err error
		if active {
			err = engine.Resume(ctx, authority)
		} else {
			err = engine.Pause(ctx, authority)
		}
		if err != nil {
			return err
		}
		return printJSON(map[string]bool{"is_active": active})
	})
	return cmd
}

func FundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fund",
		Short: "Move funds from an identity into the vault",
	}
	cmd.Flags().StringP("from", "f", "", "funding identity")
	cmd.MarkFlagRequired("from")
	cmd.Flags().StringP("amount", "a", "", "amount in SOL")
	cmd.MarkFlagRequired("amount")

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		from, _ := cmd.Flags().GetString("from")
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return err
		}
		vault, err := engine.FundVault(ctx, from, amount)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{"vault_balance": vault, "formatted": models.FormatLamports(vault)})
	})
	return cmd
}

func SkimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skim",
		Short: "Move vault surplus to the treasury",
	}
	cmd.Flags().StringP("authority", "u", "", "authority identity")
	cmd.MarkFlagRequired("authority")
	cmd.Flags().StringP("amount", "a", "", "amount in SOL")
	cmd.MarkFlagRequired("amount")
	cmd.Flags().StringP("reserve", "r", "0", "minimum vault reserve in SOL")

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		authority, _ := cmd.Flags().GetString("authority")
		amount, err := amountFlag(cmd, "amount")
		if err != nil {
			return err
		}
		reserve, err := amountFlag(cmd, "reserve")
		if err != nil {
			return err
		}
		record, err := engine.SkimExcessToTreasury(ctx, authority, amount, reserve)
		if err != nil {
			return err
		}
		return printJSON(record)
	})
	return cmd
}

func StatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the casino config and pool balances",
	}

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		casino, err := engine.GetConfig(ctx)
		if err != nil {
			return err
		}
		vault, err := engine.VaultBalance(ctx)
		if err != nil {
			return err
		}
		treasury, err := engine.TreasuryBalance(ctx)
		if err != nil {
			return err
		}
		return printJSON(models.CasinoResponse{
			Config:          casino,
			VaultBalance:    vault,
			TreasuryBalance: treasury,
			VaultFormatted:  models.FormatLamports(vault),
			Solvent:         casino.IsSolvent(),
		})
	})
	return cmd
}

// run the keeper once, refunding expired sessions
func SweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Refund every expired pending session",
	}

	cmd.RunE = withEngine(func(ctx context.Context, engine *services.CasinoEngine, cfg *config.Config) error {
		res, err := services.NewOracleKeeper(engine, nil, cfg.KeeperInterval, false).Sweep(ctx)
		if err != nil {
			return err
		}
		return printJSON(res)
	})
	return cmd
}
