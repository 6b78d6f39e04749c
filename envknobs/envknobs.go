package envknobs

import (
	"os"
	"path/filepath"
	"strconv"
)

func ASCBaseURL() string { return env("ASC_BASE_URL", "https://api.appstoreconnect.apple.com") }
func ASCDebug() bool     { return boolEnv("ASC_DEBUG") }
func Debug() bool        { return boolEnv("TFM_DEBUG") }

// NoColor reports whether NO_COLOR is set to any non-empty value. See
// https://no-color.org.
func NoColor() bool { return os.Getenv("NO_COLOR") != "" }

// ConfigDir returns the directory holding credentials.json and config.json.
func ConfigDir() string {
	return env("TFM_CONFIG_DIR", filepath.Join(XDGConfigHome(), "testflight-mgmt"))
}

func XDGConfigHome() string {
	if e := os.Getenv("XDG_CONFIG_HOME"); e != "" {
		return e
	}
	home, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	return filepath.Join(home, ".config")
}

func env(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func boolEnv(name string) bool {
	v, _ := strconv.ParseBool(os.Getenv(name))
	return v
}
