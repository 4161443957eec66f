package log

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "intentdeck"

// defaultDir is ~/Library/Logs/intentdeck on macOS,
// %LOCALAPPDATA%\intentdeck\logs on Windows and
// $XDG_CONFIG_HOME/intentdeck/logs elsewhere.
func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Logs", appName), nil
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, appName, "logs"), nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName, "logs"), nil
}
