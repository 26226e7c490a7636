package cli

import (
	"fmt"
	"io"

	"github.com/martijn/accountd/internal/core/repository"
	"github.com/martijn/accountd/internal/core/service"
	"github.com/martijn/accountd/internal/infrastructure/jsonl"
	"github.com/martijn/accountd/internal/infrastructure/sqlite"
	"github.com/martijn/accountd/pkg/config"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	cfg     *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "accountd",
	Short: "accountd - user account storage and authentication service",
	Long: `accountd is a minimal HTTP service for user account storage and authentication.

It provides:
- User registration with bcrypt password hashing
- Login with signed session tokens
- Token-gated profile update and account deletion
- A flat-file line-delimited document store (or an optional sqlite backend)
- REST API on a single port`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for commands that don't need it
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		// Load configuration; all settings have defaults, so the flag is optional
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults apply without one)")
}

// initServices initializes the store and services
func initServices() (*Services, error) {
	var (
		userRepo repository.UserRepository
		closer   io.Closer
	)

	switch cfg.StoreType {
	case "sqlite":
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		userRepo = sqlite.NewUserRepository(db)
		closer = db
	default:
		users, err := jsonl.Open(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open document store: %w", err)
		}
		userRepo = jsonl.NewUserRepository(users)
		closer = users
	}

	tokenService := service.NewTokenService(cfg.JWTSecretKey, cfg.JWTAlgorithm)
	accountService := service.NewAccountService(userRepo, tokenService, cfg.BcryptCost)

	return &Services{
		store:          closer,
		UserRepo:       userRepo,
		TokenService:   tokenService,
		AccountService: accountService,
	}, nil
}

// Services holds all initialized services
type Services struct {
	store          io.Closer
	UserRepo       repository.UserRepository
	TokenService   *service.TokenService
	AccountService *service.AccountService
}

// Close closes all resources
func (s *Services) Close() {
	if s.store != nil {
		s.store.Close()
	}
}
