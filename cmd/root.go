// cmd/root.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ColonelBlimp/keydecoder/internal/config"
	"github.com/ColonelBlimp/keydecoder/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "keydecoder",
	Short: "Morse key decoder",
	Long: `Decodes a hand-keyed Morse signal from a push button (GPIO) or a keyed
sidetone (audio) and writes the decoded characters to stdout or a serial port.`,
	RunE:          runDecoder,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags (override config file)
	rootCmd.PersistentFlags().StringP("input", "i", "gpio", "key input: gpio or tone")
	rootCmd.PersistentFlags().StringP("pin", "p", "GPIO17", "GPIO pin name of the key")
	rootCmd.PersistentFlags().StringP("led", "l", "", "GPIO pin name of the key-down LED")
	rootCmd.PersistentFlags().StringP("output", "o", "stdout", "stdout or a serial device path")
	rootCmd.PersistentFlags().IntP("baud", "b", 57600, "serial baud rate")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "enable debug output")

	rootCmd.AddCommand(devicesCmd, tableCmd)
}

// flagKeys maps each persistent flag to the config key it overrides.
var flagKeys = map[string]string{
	"input":  "input",
	"pin":    "button_pin",
	"led":    "led_pin",
	"output": "output",
	"baud":   "baud_rate",
	"debug":  "debug",
}

func bindFlags() error {
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func initConfig() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := bindFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
}

// runDecoder wires the collaborators from the settings and decodes until
// the process is interrupted.
func runDecoder(cmd *cobra.Command, _ []string) error {
	settings, err := config.Get()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, closeLog, err := logger.New(settings.LoggerConfig())
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dec, cleanup, err := buildDecoder(ctx, settings, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := dec.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info("decoder stopped", "written", dec.Written())
	return nil
}
