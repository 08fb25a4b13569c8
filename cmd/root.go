// cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ColonelBlimp/cwlistener/internal/config"
	"github.com/ColonelBlimp/cwlistener/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "cwlistener",
	Short: "Morse code decoder for a keyed serial or audio line",
	Long: `Samples a keyed line at a fixed rate and decodes it as Morse code at a
configured speed. The line is either the CTS pin of a serial port or a tone
on an audio input.`,
	SilenceUsage: true,
}

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().Float64P("wpm", "w", 15, "sending speed in words per minute")
	rootCmd.PersistentFlags().IntP("rate", "r", 100, "line reads per second")
	rootCmd.PersistentFlags().String("journal", "", "SQLite session journal path")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")
}

// bindFlags binds flags to viper keys. It runs on every initialization so
// bindings survive viper.Reset.
func bindFlags() {
	viper.BindPFlag("wpm", rootCmd.PersistentFlags().Lookup("wpm"))
	viper.BindPFlag("reads_per_second", rootCmd.PersistentFlags().Lookup("rate"))
	viper.BindPFlag("journal_path", rootCmd.PersistentFlags().Lookup("journal"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))

	viper.BindPFlag("source", listenCmd.Flags().Lookup("source"))
	viper.BindPFlag("serial_device", listenCmd.Flags().Lookup("serial-device"))
	viper.BindPFlag("history_path", listenCmd.Flags().Lookup("history"))
	viper.BindPFlag("volume", listenCmd.Flags().Lookup("volume"))
	viper.BindPFlag("device_index", listenCmd.Flags().Lookup("device"))
}

func initConfig() {
	bindFlags()
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// loadSettings returns validated settings or a config error.
func loadSettings() (*config.Settings, error) {
	settings, err := config.Get()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return settings, nil
}

// newLogger logs to the command's error stream, human-readable on a terminal.
func newLogger(cmd *cobra.Command, debug bool) *slog.Logger {
	w := cmd.ErrOrStderr()
	return logger.New(w, logger.Options{Debug: debug, Console: isTerminal(w)})
}

// styled reports whether the command's output should be rendered as tables.
func styled(cmd *cobra.Command) bool {
	return isTerminal(cmd.OutOrStdout())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && logger.IsTerminal(f)
}
