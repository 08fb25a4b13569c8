// cmd/replay.go
package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ColonelBlimp/cwlistener/internal/cw"
	"github.com/ColonelBlimp/cwlistener/internal/history"
	"github.com/ColonelBlimp/cwlistener/internal/report"
	"github.com/spf13/cobra"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE.npy",
	Short: "Decode a saved sample history",
	Long: `Feeds a .npy history saved by "listen --history" through the decoder as if
it were read at --rate samples per second, then prints the decoded text and
the timing report.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	log := newLogger(cmd, settings.Debug)

	samples, err := history.Load(args[0])
	if err != nil {
		return err
	}
	dec, err := cw.NewStreamDecoder(settings.WPM)
	if err != nil {
		return err
	}
	units, err := history.Replay(dec, samples, settings.ReadsPerSecond, time.Unix(0, 0))
	if err != nil {
		return err
	}

	var text strings.Builder
	for _, u := range units {
		if u.Unknown {
			log.Warn("unknown code", "symbols", u.Symbols)
		}
		text.WriteString(u.Text)
	}
	log.Debug("replayed", "path", args[0], "samples", len(samples), "units", len(units))

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, text.String())
	fmt.Fprint(out, report.Timing(dec.TimingReport(), styled(cmd)))
	return nil
}
