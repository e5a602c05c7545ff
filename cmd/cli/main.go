package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/grocerycompare/price-service/config"
	"github.com/grocerycompare/price-service/internal/app"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
	svc     *app.App
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "grocery",
	Short: "Grocery Compare CLI - price comparison and access administration",
	Long: `A CLI tool for operating the Sweden/Denmark grocery price comparison
service: apply database migrations, print or export per-item comparisons,
inspect the SEK to DKK exchange rate and review access requests.`,
	PersistentPreRunE:  persistentPreRun,
	PersistentPostRunE: persistentPostRun,
	SilenceUsage:       true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// needsServices marks commands that run against the wired services.
const needsServices = "services"

// persistentPreRun initializes the logger and, for commands annotated
// with needsServices, the database-backed services.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()

	if _, ok := cmd.Annotations[needsServices]; !ok {
		return nil
	}
	if cfg == nil {
		return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	var err error
	svc, err = app.New(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("service initialization failed: %w", err)
	}
	return nil
}

func persistentPostRun(cmd *cobra.Command, args []string) error {
	if svc == nil {
		return nil
	}
	return svc.Close()
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Logs go to stderr so command output can be piped
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stderr
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: noColor}
	}

	log := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &log
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
