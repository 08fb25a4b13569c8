// cmd/listen.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ColonelBlimp/cwlistener/internal/audio"
	"github.com/ColonelBlimp/cwlistener/internal/config"
	"github.com/ColonelBlimp/cwlistener/internal/history"
	"github.com/ColonelBlimp/cwlistener/internal/journal"
	"github.com/ColonelBlimp/cwlistener/internal/line"
	"github.com/ColonelBlimp/cwlistener/internal/listener"
	"github.com/ColonelBlimp/cwlistener/internal/report"
	"github.com/ColonelBlimp/cwlistener/internal/serialline"
	"github.com/spf13/cobra"
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Decode the keyed line until interrupted",
	Long: `Samples the configured line, prints decoded text as it arrives and, on
Ctrl-C, prints the timing report. The raw samples and a journal entry are
saved when history_path and journal_path are set.`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

// sidetoneKeyer is a started sidetone.
type sidetoneKeyer interface {
	listener.Keyer
	io.Closer
}

// Seams for tests.
var (
	openSampler  = openLine
	openSidetone = startSidetone
)

func init() {
	listenCmd.Flags().StringP("source", "s", config.SourceSerial, `line source: "serial" or "audio"`)
	listenCmd.Flags().String("serial-device", "", "serial port to read (default: first port matching serial_pattern)")
	listenCmd.Flags().String("history", "", "save raw samples to this .npy file at session end")
	listenCmd.Flags().Bool("no-sidetone", false, "do not play a sidetone")
	listenCmd.Flags().Float64("volume", 0.1, "sidetone volume (0.0-1.0)")
	listenCmd.Flags().IntP("device", "d", -1, "audio capture device index (-1 for default)")

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if off, _ := cmd.Flags().GetBool("no-sidetone"); off {
		settings.Sidetone = false
	}
	log := newLogger(cmd, settings.Debug)

	sampler, err := openSampler(settings, log)
	if err != nil {
		return err
	}
	defer sampler.Close()

	var keyer listener.Keyer
	if settings.Sidetone {
		st, err := openSidetone(settings)
		if err != nil {
			log.Warn("sidetone unavailable", "error", err)
		} else {
			defer st.Close()
			keyer = st
		}
	}

	l, err := listener.New(listener.Config{
		WPM:            settings.WPM,
		ReadsPerSecond: settings.ReadsPerSecond,
		Source:         settings.Source,
	}, sampler, keyer, cmd.OutOrStdout(), log)
	if err != nil {
		return err
	}

	sess, runErr := l.Run(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout())

	// The run context is usually cancelled by now.
	saveErr := finishSession(context.WithoutCancel(cmd.Context()), cmd, settings, sess, log)
	if runErr != nil {
		return errors.Join(fmt.Errorf("listen: %w", runErr), saveErr)
	}
	return saveErr
}

// finishSession saves history and the journal entry, then prints the report.
func finishSession(ctx context.Context, cmd *cobra.Command, settings *config.Settings, sess listener.Session, log *slog.Logger) error {
	var errs []error

	if settings.HistoryPath != "" {
		if err := history.Save(settings.HistoryPath, sess.History); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("history saved", "path", settings.HistoryPath, "samples", len(sess.History))
		}
	}

	if settings.JournalPath != "" {
		if err := recordSession(ctx, settings.JournalPath, sess); err != nil {
			errs = append(errs, err)
		} else {
			log.Info("session journaled", "path", settings.JournalPath)
		}
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Timing(sess.Stats, styled(cmd)))
	return errors.Join(errs...)
}

func recordSession(ctx context.Context, path string, sess listener.Session) error {
	store, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.InsertSession(ctx, journal.Session{
		StartedAt: sess.StartedAt,
		EndedAt:   sess.EndedAt,
		WPM:       sess.WPM,
		Source:    sess.Source,
		Text:      sess.Text,
		Unknown:   sess.Unknown,
		Samples:   len(sess.History),
		Stats:     sess.Stats,
	})
	return err
}

// openLine opens the sampler for the configured source.
func openLine(settings *config.Settings, log *slog.Logger) (line.Sampler, error) {
	switch settings.Source {
	case config.SourceSerial:
		devices, err := serialline.ListDevices()
		if err != nil {
			return nil, err
		}
		name, err := serialline.Select(devices, settings.SerialDevice, settings.SerialPattern)
		if err != nil {
			return nil, err
		}
		s, err := serialline.Open(name, settings.BaudRate)
		if err != nil {
			return nil, err
		}
		log.Info("serial line open", "port", name, "baud", settings.BaudRate)
		return s, nil

	case config.SourceAudio:
		capture := audio.DefaultConfig()
		capture.DeviceIndex = settings.DeviceIndex
		capture.SampleRate = uint32(settings.SampleRate)
		tl, err := audio.OpenToneLine(audio.ToneLineConfig{
			Capture:       capture,
			ToneFrequency: settings.ToneFrequency,
			BlockSize:     settings.BlockSize,
			Threshold:     settings.Threshold,
			Hysteresis:    settings.Hysteresis,
		})
		if err != nil {
			return nil, err
		}
		log.Info("audio line open",
			"device_index", settings.DeviceIndex,
			"sample_rate", settings.SampleRate,
			"tone_frequency", settings.ToneFrequency,
		)
		return tl, nil
	}
	return nil, fmt.Errorf("unknown source %q", settings.Source)
}

func startSidetone(settings *config.Settings) (sidetoneKeyer, error) {
	st, err := audio.NewSidetone(audio.SidetoneConfig{
		Frequency:  settings.SidetoneFrequency,
		SampleRate: uint32(settings.SidetoneSampleRate),
		Volume:     settings.Volume,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Start(); err != nil {
		return nil, err
	}
	return st, nil
}
