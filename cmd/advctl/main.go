// advctl is the operator command line: account seeding, password hashes and
// offline register generation from a directory of QR token files.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/config"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "advctl",
		Short:         "Operator tools for the seed production backend",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSeedUserCmd(), newHashPasswordCmd(), newGenerateCmd(), newDeadLettersCmd())
	return root
}

// openDatabase loads the server configuration and connects (and migrates) the database.
func openDatabase() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
