// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/cwlistener/internal/audio"
	"github.com/ColonelBlimp/cwlistener/internal/serialline"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List serial ports and audio capture devices",
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	log := newLogger(cmd, settings.Debug)
	out := cmd.OutOrStdout()

	re, err := serialline.CompilePattern(settings.SerialPattern)
	if err != nil {
		return err
	}
	ports, err := serialline.ListDevices()
	if err != nil {
		log.Warn("serial ports unavailable", "error", err)
	}
	fmt.Fprintf(out, "Serial ports (* matches %q):\n", settings.SerialPattern)
	if len(ports) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for _, p := range ports {
		mark := " "
		if p.Matches(re) {
			mark = "*"
		}
		fmt.Fprintf(out, "%s %s\n", mark, serialline.Describe(p))
	}

	capture := audio.New(audio.DefaultConfig())
	if err := capture.Init(); err != nil {
		log.Warn("audio devices unavailable", "error", err)
		return nil
	}
	defer capture.Close()

	infos, err := capture.ListDevices()
	if err != nil {
		log.Warn("audio devices unavailable", "error", err)
		return nil
	}
	fmt.Fprintln(out, "Audio capture devices:")
	if len(infos) == 0 {
		fmt.Fprintln(out, "  none")
	}
	for i, d := range infos {
		fmt.Fprintf(out, "  [%d] %s\n", i, d.Name())
	}
	return nil
}
