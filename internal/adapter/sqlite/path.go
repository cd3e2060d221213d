package sqlite

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DataDirEnv overrides where the diary database lives.
const DataDirEnv = "DIARY_DATA_DIR"

const appDir = "diary"

// ResolveDataDir returns the directory that holds DBName.
func ResolveDataDir() (string, error) {
	return dataDir(runtime.GOOS, os.Getenv, os.UserHomeDir)
}

// dataDir picks the per-user application data location for goos. The
// override wins everywhere; XDG_DATA_HOME is honoured only off darwin and
// windows.
func dataDir(goos string, getenv func(string) string, home func() (string, error)) (string, error) {
	if dir := getenv(DataDirEnv); dir != "" {
		return dir, nil
	}

	var base []string
	switch goos {
	case "windows":
		appdata := getenv("APPDATA")
		if appdata == "" {
			return "", fmt.Errorf("set %s or APPDATA", DataDirEnv)
		}
		return filepath.Join(appdata, appDir), nil
	case "darwin":
		base = []string{"Library", "Application Support"}
	default:
		if xdg := getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appDir), nil
		}
		base = []string{".local", "share"}
	}

	h, err := home()
	if err != nil || h == "" {
		return "", errors.Join(fmt.Errorf("set %s: no home directory", DataDirEnv), err)
	}
	return filepath.Join(append(append([]string{h}, base...), appDir)...), nil
}
