package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	diagLog  = zerolog.Nop()
	diagFile *os.File
	logMu    sync.Mutex
	logReady bool
	level    = zerolog.InfoLevel
	pid      int
	dir      string
)

func ResolveDir(flagPath string) (string, error) {
	// Priority 1: -logpath flag
	if flagPath != "" {
		return absolute(flagPath)
	}

	// Priority 2: TONEGEN_LOG_PATH environment variable
	if envPath := os.Getenv("TONEGEN_LOG_PATH"); envPath != "" {
		return absolute(envPath)
	}

	// Priority 3: Default OS-specific location
	return getDefaultDir()
}

func absolute(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

// SetLevel parses one of debug, info, warn, error, disabled. It applies to
// loggers created by the next Init or InitWriter.
func SetLevel(name string) error {
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	logMu.Lock()
	level = l
	logMu.Unlock()
	return nil
}

// Init opens <dir>/diagnostics_log.txt for appending.
func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	diagFile = f
	setup(f)
	return nil
}

// InitWriter sends diagnostics to w instead of the log file.
func InitWriter(w io.Writer) {
	logMu.Lock()
	defer logMu.Unlock()
	setup(w)
}

func setup(w io.Writer) {
	pid = os.Getpid()
	consoleWriter := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).Level(level).With().Timestamp().Int("pid", pid).Logger()
	logReady = true
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	diagLog = zerolog.Nop()
	logReady = false
}

// Logger returns the diagnostics logger for components that take one. Before
// Init it discards everything.
func Logger() zerolog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	return diagLog
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if logReady {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func SessionStart(backend, device string) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("backend", backend).
		Str("device", device).
		Msg("session_start")
}

type Tone struct {
	Waveform   string
	Frequency  float64
	DurationS  float64
	Samples    int
	SampleRate int
	Amplitude  int
}

func Playback(t Tone) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("waveform", t.Waveform).
		Float64("freq_hz", t.Frequency).
		Float64("duration_s", t.DurationS).
		Int("samples", t.Samples).
		Int("rate", t.SampleRate).
		Int("amplitude", t.Amplitude).
		Msg("playback")
}

func SessionEnd(played bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Bool("played", played).
		Msg("session_end")
}
