package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/perch-term/perch/internal/config"
	"github.com/perch-term/perch/internal/handoff"
	"github.com/perch-term/perch/internal/logging"
	"github.com/perch-term/perch/internal/orchestrator"
)

var rootCmd = &cobra.Command{
	Use:   "perch [flags] [-- window args]",
	Short: "Multi-window terminal orchestrator",
	Long: `Perch coordinates every window of the terminal under a single owning
process: duplicate launches hand their command line off to the owner and
exit, closed windows are kept warm for reuse, and global hotkeys and the
tray icon reflect the aggregate window state.`,
	RunE: runRoot,
	// The command line is an opaque pass-through payload for the handoff
	// mechanism; unknown flags belong to the window, not to this command.
	FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/perch/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.Flags().Bool("isolated", false, "skip instance coordination; this launch owns its own windows")
	_ = viper.BindPFlag("instance.isolated", rootCmd.Flags().Lookup("isolated"))

	rootCmd.Flags().String("show", "", "initial show command: normal, minimized, or maximized")
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/perch")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PERCH")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PERCH_INSTANCE_ISOLATED for instance.isolated
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := orchestrator.New(cfg, logger)
	code, err := orch.Run(ctx, os.Args, showCommand(cmd, cfg))
	if err != nil {
		logger.Error("fatal", "error", err)
		_ = logger.Close()
		os.Exit(1)
	}

	// Hard exit: refrigerated window goroutines are parked forever and
	// are deliberately not joined.
	_ = logger.Close()
	os.Exit(code)
	return nil
}

func newLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(cfg.State.ResolveDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
}

// showCommand maps the --show flag to the wire show-command value, falling
// back to the configured initial show mode.
func showCommand(cmd *cobra.Command, cfg *config.Config) uint32 {
	show, _ := cmd.Flags().GetString("show")
	if show == "" {
		show = cfg.Window.InitialShow
	}
	switch show {
	case "minimized":
		return handoff.ShowMinimized
	case "maximized":
		return handoff.ShowMaximized
	default:
		return handoff.ShowNormal
	}
}
