package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "sasspipe"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	cacheDirFlagName    = "cache-dir"
	noCacheFlagName     = "no-cache"
	logFileFlagName     = "log-file"
	verboseFlagName     = "verbose"
	outDirFlagName      = "out-dir"
	parallelFlagName    = "parallel"
	debounceFlagName    = "debounce"
	tuiFlagName         = "tui"
	stylesheetsFlagName = "stylesheets"

	compassPathKey     = "css.compass_path"
	outputStyleKey     = "css.output_style"
	requireLibsKey     = "css.require_libs"
	yuiCompressKey     = "css.yui_compress"
	yuiMungeKey        = "css.yui_munge"
	compileTimeoutKey  = "css.timeout"
	stylesheetsPathKey = "theme.stylesheets_path"
	mtimeResolutionKey = "fingerprint.mtime_resolution"
	cacheDirKey        = "cache.dir"
	cacheDisabledKey   = "cache.disabled"
	compileParallelKey = "compile.parallel"
	compileOutDirKey   = "compile.out_dir"
	watchDebounceKey   = "watch.debounce"
	watchOutDirKey     = "watch.out_dir"
	watchTUIKey        = "watch.tui"

	defaultCompassPath     = "/usr/bin/compass"
	defaultOutputStyle     = "compressed"
	defaultYUICompress     = false
	defaultYUIMunge        = false
	defaultCompileTimeout  = "2m"
	defaultMtimeResolution = "0s"
	defaultCacheDir        = ".sasspipe-cache"
	defaultCacheDisabled   = false
	defaultCompileParallel = 1
	defaultWatchDebounce   = "300ms"
	defaultWatchTUI        = false

	envPrefix = "SASSPIPE"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".sasspipe.log"
	defaultLogLevel      = "info"
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

// deprecatedKeys maps old configuration keys to their replacements.
var deprecatedKeys = []struct {
	old     string
	current string
}{
	{old: "compass.compass_path", current: compassPathKey},
	{old: "compass.output_style", current: outputStyleKey},
}

// configWarnings collects problems found while loading the configuration.
// They are logged once the logger is configured.
var configWarnings []string

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	configWarnings = loadConfig(viper.GetViper())
}

// loadConfig reads the config file of v and resolves deprecated keys. A
// missing file is not a problem; an unreadable or malformed one leaves the
// defaults in place and is reported as a warning.
func loadConfig(v *viper.Viper) []string {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return []string{fmt.Sprintf("failed to read config file %s, using defaults: %v", v.ConfigFileUsed(), err)}
	}

	return resolveDeprecatedKeys(v)
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(compassPathKey, defaultCompassPath)
	viper.SetDefault(outputStyleKey, defaultOutputStyle)
	viper.SetDefault(requireLibsKey, []string{})
	viper.SetDefault(yuiCompressKey, defaultYUICompress)
	viper.SetDefault(yuiMungeKey, defaultYUIMunge)
	viper.SetDefault(compileTimeoutKey, defaultCompileTimeout)
	viper.SetDefault(stylesheetsPathKey, "")
	viper.SetDefault(mtimeResolutionKey, defaultMtimeResolution)
	viper.SetDefault(cacheDirKey, defaultCacheDir)
	viper.SetDefault(cacheDisabledKey, defaultCacheDisabled)
	viper.SetDefault(compileParallelKey, defaultCompileParallel)
	viper.SetDefault(compileOutDirKey, "")
	viper.SetDefault(watchDebounceKey, defaultWatchDebounce)
	viper.SetDefault(watchOutDirKey, "")
	viper.SetDefault(watchTUIKey, defaultWatchTUI)

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// resolveDeprecatedKeys copies values set under deprecated keys to their
// replacements. A replacement set explicitly in the config file wins.
// It returns one warning per deprecated key found.
func resolveDeprecatedKeys(v *viper.Viper) []string {
	var warnings []string

	for _, key := range deprecatedKeys {
		if !v.InConfig(key.old) {
			continue
		}

		warnings = append(warnings, fmt.Sprintf("config key %q is deprecated, use %q instead", key.old, key.current))

		if v.InConfig(key.current) {
			continue
		}

		v.Set(key.current, v.Get(key.old))
	}

	return warnings
}

func logConfigWarnings() {
	for _, warning := range configWarnings {
		slog.Warn("Configuration problem", "detail", warning)
	}

	configWarnings = nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}

// configDuration reads a duration setting, falling back to def when the
// value cannot be parsed.
func configDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(viper.GetString(key))
	if raw == "" {
		return def
	}

	// Bare numbers are seconds.
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Duration(n) * time.Second
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("Invalid duration in configuration, using default", "key", key, "value", raw, "default", def)
		return def
	}

	return d
}
