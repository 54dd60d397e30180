// Package cmd implements the bitpack command line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/bitpack/config"
)

var (
	// Version is the version of the binary, set by main.
	Version = "0.0.0"

	// Commit is the commit hash of the binary, set by main.
	Commit = ""
)

var (
	cfg = config.DefaultConfig()

	cfgFile     string
	logLevel    string
	printConfig bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bitpack",
	Short: "Pack and unpack datasets of fixed bit-width items",
	Long: `bitpack packs streams of fixed bit-width items into datasets of packed
files and unpacks them back, at bit granularity where needed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd.Flags()); err != nil {
			return err
		}
		if printConfig {
			spew.Dump(cfg)
		}
		return setupLogger()
	},
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s+%s", Version, Commit)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bitpack:", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file path")
	flags.StringVar(&cfg.DataDir, "datadir", cfg.DataDir, "filesystem datadir path")
	flags.UintVar(&cfg.ItemBits, "itembits", cfg.ItemBits, "bit width of every packed item (1 to 64)")
	flags.StringVar(&cfg.ByteOrder, "byteorder", cfg.ByteOrder, "byte order of byte-granular items (little or big)")
	flags.Uint64Var(&cfg.MaxFileSize, "maxfilesize", cfg.MaxFileSize, "max packed file size, in bytes")
	flags.IntVar(&cfg.BufferSize, "buffersize", cfg.BufferSize, "file buffer size, in bytes")
	flags.Uint64Var(&cfg.LogRate, "lograte", cfg.LogRate, "number of items between progress log lines")
	flags.StringVar(&logLevel, "log-level", zapcore.InfoLevel.String(), "log level (debug, info, warn, error)")
	flags.BoolVar(&printConfig, "print-config", false, "print the effective config and continue")
}

// loadConfig merges the config file, environment and flags, flags winning.
func loadConfig(flags *pflag.FlagSet) error {
	vip := viper.New()
	vip.SetEnvPrefix("BITPACK")
	vip.AutomaticEnv()

	if cfgFile != "" {
		vip.SetConfigFile(cfgFile)
		if err := vip.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	fileCfg := cfg
	if err := vip.Unmarshal(&fileCfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// Flags the user set on the command line stay ahead of the file.
	set := map[string]bool{}
	flags.Visit(func(f *pflag.Flag) { set[f.Name] = true })

	if !set["datadir"] {
		cfg.DataDir = fileCfg.DataDir
	}
	if !set["itembits"] {
		cfg.ItemBits = fileCfg.ItemBits
	}
	if !set["byteorder"] {
		cfg.ByteOrder = fileCfg.ByteOrder
	}
	if !set["maxfilesize"] {
		cfg.MaxFileSize = fileCfg.MaxFileSize
	}
	if !set["buffersize"] {
		cfg.BufferSize = fileCfg.BufferSize
	}
	if !set["lograte"] {
		cfg.LogRate = fileCfg.LogRate
	}

	return cfg.Validate()
}

func setupLogger() error {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid `log-level`; expected: debug, info, warn or error, given: %q", logLevel)
	}

	zapCfg := zap.Config{
		Level:    zap.NewAtomicLevelAt(level),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "T",
			LevelKey:       "L",
			NameKey:        "N",
			MessageKey:     "M",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
		},
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err = zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
