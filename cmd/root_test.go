package cmd

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ColonelBlimp/cwlistener/internal/config"
	"github.com/ColonelBlimp/cwlistener/internal/cw"
	"github.com/ColonelBlimp/cwlistener/internal/history"
	"github.com/ColonelBlimp/cwlistener/internal/journal"
	"github.com/ColonelBlimp/cwlistener/internal/line"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetForTest clears viper and flag state and points the config at a fresh
// home directory containing configYAML.
func resetForTest(t *testing.T, configYAML string) string {
	t.Helper()
	viper.Reset()
	resetFlags(rootCmd)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Chdir(t.TempDir())

	configDir := filepath.Join(home, ".config", config.AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configYAML), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return home
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(ctx context.Context, args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), errOut.String(), err
}

func TestRootCmd_Properties(t *testing.T) {
	if rootCmd.Use != "cwlistener" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "cwlistener")
	}
	if rootCmd.Short == "" {
		t.Error("rootCmd.Short is empty")
	}
	if rootCmd.Long == "" {
		t.Error("rootCmd.Long is empty")
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	for _, name := range []string{"listen", "devices", "replay", "sessions"} {
		t.Run(name, func(t *testing.T) {
			c, _, err := rootCmd.Find([]string{name})
			if err != nil || c.Name() != name {
				t.Errorf("subcommand %q not found (err = %v)", name, err)
			}
		})
	}
}

func TestFlags_ShorthandsAndDefaults(t *testing.T) {
	tests := []struct {
		flags        *pflag.FlagSet
		name         string
		shorthand    string
		defaultValue string
	}{
		{rootCmd.PersistentFlags(), "wpm", "w", "15"},
		{rootCmd.PersistentFlags(), "rate", "r", "100"},
		{rootCmd.PersistentFlags(), "journal", "", ""},
		{rootCmd.PersistentFlags(), "debug", "D", "false"},
		{listenCmd.Flags(), "source", "s", "serial"},
		{listenCmd.Flags(), "serial-device", "", ""},
		{listenCmd.Flags(), "history", "", ""},
		{listenCmd.Flags(), "no-sidetone", "", "false"},
		{listenCmd.Flags(), "volume", "", "0.1"},
		{listenCmd.Flags(), "device", "d", "-1"},
		{sessionsCmd.Flags(), "limit", "n", "10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := tt.flags.Lookup(tt.name)
			if flag == nil {
				t.Fatalf("flag %q not found", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("flag %q shorthand = %q, want %q", tt.name, flag.Shorthand, tt.shorthand)
			}
			if flag.DefValue != tt.defaultValue {
				t.Errorf("flag %q default = %q, want %q", tt.name, flag.DefValue, tt.defaultValue)
			}
			if flag.Usage == "" {
				t.Errorf("flag %q has no description", tt.name)
			}
		})
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	resetForTest(t, "wpm: 15")

	out, _, err := execute(context.Background(), "--help")
	if err != nil {
		t.Fatalf("Execute() with --help error = %v", err)
	}
	for _, want := range []string{"cwlistener", "listen", "replay", "--wpm"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

func TestInitConfig(t *testing.T) {
	resetForTest(t, "wpm: 20")

	initConfig()

	if viper.GetFloat64("wpm") != 20 {
		t.Errorf("viper.GetFloat64(wpm) = %v, want 20", viper.GetFloat64("wpm"))
	}
}

func TestInitConfig_FlagOverridesFile(t *testing.T) {
	resetForTest(t, "wpm: 20")
	if err := rootCmd.PersistentFlags().Set("wpm", "25"); err != nil {
		t.Fatal(err)
	}

	initConfig()

	if viper.GetFloat64("wpm") != 25 {
		t.Errorf("viper.GetFloat64(wpm) = %v, want 25", viper.GetFloat64("wpm"))
	}
}

// saveDitHistory writes 50 off, 10 on, 50 off samples: one dit at 7 WPM and 100 reads/s.
func saveDitHistory(t *testing.T) string {
	t.Helper()
	samples := make([]byte, 110)
	for i := 50; i < 60; i++ {
		samples[i] = 1
	}
	path := filepath.Join(t.TempDir(), "dit.npy")
	if err := history.Save(path, samples); err != nil {
		t.Fatalf("save history: %v", err)
	}
	return path
}

func TestReplay(t *testing.T) {
	resetForTest(t, "wpm: 7\nreads_per_second: 100")
	path := saveDitHistory(t)

	out, _, err := execute(context.Background(), "replay", path)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	lines := strings.Split(out, "\n")
	if lines[0] != "e" {
		t.Errorf("decoded text = %q, want %q", lines[0], "e")
	}
	if !strings.Contains(out, "dit: Mean: 0.583 || Observations: 1") {
		t.Errorf("report missing dit line:\n%s", out)
	}
}

func TestReplay_RateFlag(t *testing.T) {
	resetForTest(t, "wpm: 7")
	path := saveDitHistory(t)

	// At 10 reads/s the ten on samples last a full second: a dah.
	out, _, err := execute(context.Background(), "replay", "--rate", "10", path)
	if err != nil {
		t.Fatalf("replay error = %v", err)
	}
	// The trailing five seconds of silence also close the word.
	if first := strings.SplitN(out, "\n", 2)[0]; first != "t " {
		t.Errorf("decoded text = %q, want %q", first, "t ")
	}
}

func TestReplay_MissingFile(t *testing.T) {
	resetForTest(t, "wpm: 15")

	_, _, err := execute(context.Background(), "replay", filepath.Join(t.TempDir(), "absent.npy"))
	if err == nil {
		t.Error("expected error for missing history file, got nil")
	}
}

func TestReplay_InvalidConfig(t *testing.T) {
	resetForTest(t, "wpm: 0")
	path := saveDitHistory(t)

	_, _, err := execute(context.Background(), "replay", path)
	if err == nil {
		t.Fatal("expected error for invalid config, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

func TestSessions_RequiresJournal(t *testing.T) {
	resetForTest(t, "wpm: 15")

	_, _, err := execute(context.Background(), "sessions")
	if !errors.Is(err, ErrNoJournal) {
		t.Errorf("error = %v, want ErrNoJournal", err)
	}
}

func TestSessions_Lists(t *testing.T) {
	resetForTest(t, "wpm: 15")
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	store, err := journal.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, text := range []string{"older", "newer"} {
		if _, err := store.InsertSession(context.Background(), journal.Session{
			StartedAt: start,
			EndedAt:   start.Add(time.Minute),
			WPM:       15,
			Source:    "serial",
			Text:      text,
		}); err != nil {
			t.Fatal(err)
		}
		start = start.Add(time.Hour)
	}
	store.Close()

	out, _, err := execute(context.Background(), "sessions", "--journal", dbPath, "--limit", "1")
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	if !strings.Contains(out, "newer") || strings.Contains(out, "older") {
		t.Errorf("output = %q, want only the newest session", out)
	}
}

func TestSessions_Empty(t *testing.T) {
	resetForTest(t, "wpm: 15")

	out, _, err := execute(context.Background(), "sessions", "--journal", filepath.Join(t.TempDir(), "j.db"))
	if err != nil {
		t.Fatalf("sessions error = %v", err)
	}
	if !strings.Contains(out, "no sessions recorded") {
		t.Errorf("output = %q", out)
	}
}

func TestListen_InvalidSource(t *testing.T) {
	resetForTest(t, "wpm: 15")

	_, _, err := execute(context.Background(), "listen", "--source", "bogus")
	if err == nil {
		t.Fatal("expected error for invalid source, got nil")
	}
	if !strings.Contains(err.Error(), "config") {
		t.Errorf("expected config error, got: %v", err)
	}
}

type fakeSidetone struct {
	mu     sync.Mutex
	keyed  bool
	closed bool
}

func (f *fakeSidetone) SetKeyed(on bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keyed = f.keyed || on
}

func (f *fakeSidetone) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// stubLine replaces the line and sidetone openers for one test.
func stubLine(t *testing.T, sampler line.Sampler, st sidetoneKeyer, stErr error) {
	t.Helper()
	prevSampler, prevSidetone := openSampler, openSidetone
	openSampler = func(*config.Settings, *slog.Logger) (line.Sampler, error) {
		return sampler, nil
	}
	openSidetone = func(*config.Settings) (sidetoneKeyer, error) {
		return st, stErr
	}
	t.Cleanup(func() {
		openSampler, openSidetone = prevSampler, prevSidetone
	})
}

// ditScript keys a single dit at 20 WPM (60 ms units).
func ditScript() *line.Script {
	return line.NewScript(
		line.Step{On: false, For: 100 * time.Millisecond},
		line.Step{On: true, For: 60 * time.Millisecond},
		line.Step{On: false, For: time.Hour},
	)
}

func TestListen_EndToEnd(t *testing.T) {
	resetForTest(t, "wpm: 20\nreads_per_second: 100")
	dir := t.TempDir()
	historyPath := filepath.Join(dir, "h.npy")
	journalPath := filepath.Join(dir, "j.db")
	st := &fakeSidetone{}
	stubLine(t, ditScript(), st, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 800*time.Millisecond)
	defer cancel()
	out, _, err := execute(ctx, "listen", "--history", historyPath, "--journal", journalPath)
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}

	if !strings.HasPrefix(out, "e") {
		t.Errorf("output = %q, want decoded %q first", out, "e")
	}
	if !strings.Contains(out, "dit: Mean:") {
		t.Errorf("output missing timing report:\n%s", out)
	}
	if !st.keyed || !st.closed {
		t.Errorf("sidetone keyed = %v, closed = %v; want both true", st.keyed, st.closed)
	}

	samples, err := history.Load(historyPath)
	if err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(samples) == 0 {
		t.Error("history is empty")
	}

	store, err := journal.Open(journalPath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	sessions, err := store.ListSessions(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("journal has %d sessions, want 1", len(sessions))
	}
	if !strings.HasPrefix(sessions[0].Text, "e") || sessions[0].Samples != len(samples) {
		t.Errorf("journal session = %+v", sessions[0])
	}
	if len(sessions[0].Stats) != len(cw.Categories()) {
		t.Errorf("journal stats = %d lines, want %d", len(sessions[0].Stats), len(cw.Categories()))
	}
}

func TestListen_SidetoneFailureIsNotFatal(t *testing.T) {
	resetForTest(t, "wpm: 20")
	stubLine(t, ditScript(), nil, errors.New("no playback device"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, errOut, err := execute(ctx, "listen")
	if err != nil {
		t.Fatalf("listen error = %v", err)
	}
	if !strings.Contains(errOut, "sidetone unavailable") {
		t.Errorf("stderr = %q, want sidetone warning", errOut)
	}
}

func TestListen_NoSidetoneFlag(t *testing.T) {
	resetForTest(t, "wpm: 20")
	st := &fakeSidetone{}
	stubLine(t, ditScript(), st, nil)
	opened := false
	openSidetone = func(*config.Settings) (sidetoneKeyer, error) {
		opened = true
		return st, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, _, err := execute(ctx, "listen", "--no-sidetone"); err != nil {
		t.Fatalf("listen error = %v", err)
	}
	if opened {
		t.Error("sidetone opened despite --no-sidetone")
	}
}
