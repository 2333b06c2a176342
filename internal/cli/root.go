// Package cli is wmsctl, an operator tool that runs the engine against a
// local pallet dataset without the gRPC service.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os"
	"time"

	"github.com/fekuna/spaceflow-wms-service/config"
	"github.com/fekuna/spaceflow-wms-service/internal/command"
	"github.com/fekuna/spaceflow-wms-service/internal/location"
	"github.com/fekuna/spaceflow-wms-service/internal/logger"
	"github.com/fekuna/spaceflow-wms-service/internal/pallet"
	palletRepoPkg "github.com/fekuna/spaceflow-wms-service/internal/pallet/repository"
	palletUCPkg "github.com/fekuna/spaceflow-wms-service/internal/pallet/usecase"
	"github.com/fekuna/spaceflow-wms-service/internal/translator"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
)

var (
	cfg  *config.Config
	opts struct {
		dataFile   string
		layoutFile string
		write      bool
		seed       int64
		verbose    bool
	}
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wmsctl",
		Short: "Run warehouse intents and simulations against a local pallet dataset",
		Long: `wmsctl loads a pallets.json snapshot, applies intents, prompts or
simulation ticks through the same engine the service uses, and prints the
result. With --write the mutated snapshot is saved back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cobra.OnInitialize(initConfig)

	root.PersistentFlags().StringVar(&opts.dataFile, "data", "", "pallet snapshot (default $DATA_FILE)")
	root.PersistentFlags().StringVar(&opts.layoutFile, "layout", "", "warehouse layout YAML (default $WAREHOUSE_LAYOUT_FILE)")
	root.PersistentFlags().BoolVar(&opts.write, "write", false, "save the mutated snapshot back to --data")
	root.PersistentFlags().Int64Var(&opts.seed, "seed", 0, "random seed for the simulation (0 = time based)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log engine activity to stderr")

	root.AddCommand(applyCmd())
	root.AddCommand(askCmd())
	root.AddCommand(simulateCmd())
	root.AddCommand(kpisCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(palletsCmd())
	return root
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	_ = godotenv.Load()
	cfg = config.LoadEnv()
	if opts.dataFile == "" {
		opts.dataFile = cfg.Data.File
	}
	if opts.layoutFile == "" {
		opts.layoutFile = cfg.Warehouse.LayoutFile
	}
	if opts.seed == 0 {
		opts.seed = cfg.Simulation.Seed
	}
}

// session is one loaded dataset plus the engine around it.
type session struct {
	repo     *palletRepoPkg.JSONRepository
	layout   location.Layout
	grid     *location.Grid
	store    pallet.UseCase
	commands *command.Service
	log      logger.ZapLogger
}

func openSession(ctx context.Context, tr translator.Translator) (*session, error) {
	layout, err := config.LoadLayout(opts.layoutFile)
	if err != nil {
		return nil, err
	}
	grid, err := location.NewGrid(layout)
	if err != nil {
		return nil, err
	}

	log := newLogger()

	seed := opts.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	repo := palletRepoPkg.NewJSONRepository(opts.dataFile)
	store, err := palletUCPkg.NewPalletUseCase(ctx, repo, grid, log,
		palletUCPkg.WithRand(rand.New(rand.NewSource(seed))),
	)
	if err != nil {
		return nil, err
	}
	if tr == nil {
		tr = offlineTranslator{}
	}
	commands, err := command.NewService(store, tr, command.Config{
		Zones:            layout.Zones,
		LegacyVocabulary: cfg.Translator.LegacyVocabulary,
		Locale:           cfg.Locale,
	}, nil, log)
	if err != nil {
		return nil, err
	}
	return &session{repo: repo, layout: layout, grid: grid, store: store, commands: commands, log: log}, nil
}

func newLogger() logger.ZapLogger {
	if !opts.verbose {
		return logger.NewNop()
	}
	return logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     true,
		Encoding:          "console",
		Level:             "debug",
		DisableStacktrace: true,
		Output:            zapcore.Lock(os.Stderr),
	})
}

// finish saves the snapshot when --write is set.
func (s *session) finish(ctx context.Context) error {
	defer s.log.Sync()
	if !opts.write {
		return nil
	}
	return s.repo.SavePallets(ctx, s.store.Pallets())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, res *command.Result) error {
	if res.Applied {
		fmt.Fprintf(w, "ok: %s\n", res.Message)
	} else {
		fmt.Fprintf(w, "rejected (%s): %s\n", res.Reason, res.Message)
	}
	if len(res.Conflicts) > 0 {
		fmt.Fprintf(w, "slot conflicts: %v\n", res.Conflicts)
	}
	if res.Bulk != nil && len(res.Bulk.Skipped) > 0 {
		fmt.Fprintf(w, "skipped: %v\n", res.Bulk.Skipped)
	}
	if !res.Applied {
		return fmt.Errorf("%s", res.Reason)
	}
	return nil
}
