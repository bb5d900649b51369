package log

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "talkback"

func getDefaultDir() (string, error) {
	return platformDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

// platformDir is the per-OS log location: ~/Library/Logs on macOS,
// %LOCALAPPDATA% on Windows, $XDG_CONFIG_HOME (or ~/.config) elsewhere.
func platformDir(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	switch goos {
	case "windows":
		base := getenv("LOCALAPPDATA")
		if base == "" {
			h, err := home()
			if err != nil {
				return "", err
			}
			base = filepath.Join(h, "AppData", "Local")
		}
		return filepath.Join(base, appName, "logs"), nil
	case "darwin":
		h, err := home()
		if err != nil {
			return "", err
		}
		return filepath.Join(h, "Library", "Logs", appName), nil
	default:
		base := getenv("XDG_CONFIG_HOME")
		if base == "" {
			h, err := home()
			if err != nil {
				return "", err
			}
			base = filepath.Join(h, ".config")
		}
		return filepath.Join(base, appName, "logs"), nil
	}
}
