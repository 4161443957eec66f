package log

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DiagnosticsFile = "diagnostics_log.txt"
	IntentFile      = "intent_log.txt"
	CrashFile       = "crash_log.txt"

	envDir = "INTENTDECK_LOG_PATH"
)

var (
	diagLog    zerolog.Logger
	diagFile   *os.File
	intentFile *os.File
	logMu      sync.Mutex
	logReady   bool
	pid        int
	dir        string
)

// AnalysisMetrics describes one round trip to the intent endpoint.
type AnalysisMetrics struct {
	Source      string // "mic" or "upload"
	Format      string
	PayloadKB   float64
	AudioLength time.Duration
	Voiced      bool
	Status      int
	DNS         time.Duration
	TLS         time.Duration
	TTFB        time.Duration
	Total       time.Duration
	ConnReused  bool
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

// ResolveDir picks the log directory: the flag value, then
// INTENTDECK_LOG_PATH, then the per-OS default.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absolute(flagPath)
	}
	if envPath := os.Getenv(envDir); envPath != "" {
		return absolute(envPath)
	}
	return defaultDir()
}

func SetDir(d string) { dir = d }

func Dir() string { return dir }

func EnsureDir() error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func openAppend(name string) (*os.File, error) {
	return os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

// Init opens the diagnostics and intent history files. Every logging call
// before Init, or after Close, is a no-op.
func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := EnsureDir(); err != nil {
		return err
	}
	pid = os.Getpid()

	var err error
	if diagFile, err = openAppend(DiagnosticsFile); err != nil {
		return err
	}
	if intentFile, err = openAppend(IntentFile); err != nil {
		diagFile.Close()
		diagFile = nil
		return err
	}

	diagLog = zerolog.New(zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

// OpenCrashFile returns the crash log opened for append, for use with
// debug.SetCrashOutput.
func OpenCrashFile() (*os.File, error) {
	if err := EnsureDir(); err != nil {
		return nil, err
	}
	return openAppend(CrashFile)
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	logReady = false
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if intentFile != nil {
		intentFile.Close()
		intentFile = nil
	}
}

func ready() bool {
	logMu.Lock()
	defer logMu.Unlock()
	return logReady
}

func Info(msg string) {
	if ready() {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if ready() {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if ready() {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if ready() {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Error(msg string) {
	if ready() {
		diagLog.Error().Msg(msg)
	}
}

func Errorf(format string, args ...any) {
	if ready() {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

func ms(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }

func Analysis(m AnalysisMetrics, classifier, intent string) {
	if !ready() {
		return
	}
	conn := "new"
	if m.ConnReused {
		conn = "reused"
	}
	diagLog.Info().
		Str("source", m.Source).
		Str("format", m.Format).
		Str("classifier", classifier).
		Str("conn", conn).
		Int("status", m.Status).
		Bool("voiced", m.Voiced).
		Float64("audio_s", m.AudioLength.Seconds()).
		Float64("payload_kb", m.PayloadKB).
		Float64("dns_ms", ms(m.DNS)).
		Float64("tls_ms", ms(m.TLS)).
		Float64("ttfb_ms", ms(m.TTFB)).
		Float64("total_ms", ms(m.Total)).
		Str("intent", intent).
		Msg("analysis")
}

// IntentText appends one line to the intent history:
// "time\t[pid]\tsource\tintent".
func IntentText(source, intent string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady || intentFile == nil {
		return
	}
	intent = strings.ReplaceAll(intent, "\n", " ")
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, source, intent)
	intentFile.WriteString(line)
}

func SessionStart(device, format string, countdown int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("device", device).
		Str("format", format).
		Int("countdown", countdown).
		Msg("session_start")
}

func SessionEnd(reason string, duration time.Duration, payloadBytes int) {
	if !ready() {
		return
	}
	diagLog.Info().
		Str("reason", reason).
		Float64("audio_s", duration.Seconds()).
		Int("payload_bytes", payloadBytes).
		Msg("session_end")
}
