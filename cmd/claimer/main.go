package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/ligun0805/airdrop-claimer/internal/config"
	"github.com/spf13/cobra"
)

// flags shared by every command
type globalFlags struct {
	envFile     string
	configFile  string
	keysFile    string
	metricsAddr string
}

var gf globalFlags

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "claimer",
		Short:         "Claim a merkle airdrop for every key in a list",
		Long:          "Walks a key list one key at a time: opens a wallet-enabled browser, fetches the claim proof, checks the chain and sends claim(amount, proof).",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadSettings(gf)
			if err != nil {
				return err
			}
			return runClaim(cmd.Context(), st)
		},
	}
	root.PersistentFlags().StringVar(&gf.envFile, "env", ".env", "dotenv file to load before reading the environment")
	root.PersistentFlags().StringVar(&gf.configFile, "config", "", "optional YAML config file (environment wins)")
	root.PersistentFlags().StringVar(&gf.keysFile, "keys", "", "key list file (default: KEYS_FILE or keys.txt)")
	root.PersistentFlags().StringVar(&gf.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(newKeysCmd())
	root.AddCommand(newGasCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// readSettings layers defaults, YAML file, dotenv + environment and flags.
func readSettings(f globalFlags) (config.Settings, error) {
	if f.envFile != "" {
		_ = godotenv.Load(f.envFile)
	}
	_ = godotenv.Overload(".env.local")

	st := config.Defaults()
	if f.configFile != "" {
		if err := config.LoadFile(f.configFile, &st); err != nil {
			return st, err
		}
	}
	config.ApplyEnv(&st)
	if f.keysFile != "" {
		st.KeysFile = f.keysFile
	}
	if f.metricsAddr != "" {
		st.MetricsAddr = f.metricsAddr
	}
	return st, nil
}

// loadSettings is readSettings plus validation of what a claim run needs.
func loadSettings(f globalFlags) (config.Settings, error) {
	st, err := readSettings(f)
	if err != nil {
		return st, err
	}
	if err := st.Validate(); err != nil {
		return st, fmt.Errorf("config: %w", err)
	}
	return st, nil
}

// exitCode is 0 for a finished batch and 1 for anything that stopped it.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	if errors.Is(err, claimcore.ErrEmptyKeyList) {
		fmt.Fprintln(os.Stderr, "add one private key per line to the key list")
	}
	askExitAndQuit(exitCode(err))
}
