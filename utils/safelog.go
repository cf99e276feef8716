// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks sensitive data in production
// ============================================================================
// Every log line of the API goes through this file. In production, emails,
// UUIDs and amounts are masked before they reach the output.
// ============================================================================

package utils

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ============================================================================
// CONFIGURATION
// ============================================================================

var (
	// IsProduction enables masking of personal and financial data.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	// LogLevel filters log output (DEBUG, INFO, WARN, ERROR).
	LogLevel = getLogLevel(os.Getenv("LOG_LEVEL"))

	logMu  sync.RWMutex
	logger = newLogger(os.Stdout, LogLevel, IsProduction)
)

func getLogLevel(level string) zerolog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN", "WARNING":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func newLogger(w io.Writer, level zerolog.Level, production bool) zerolog.Logger {
	if !production {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// ConfigureLogging rebuilds the process logger once the configuration is loaded.
func ConfigureLogging(level string, production bool) {
	SetLogOutput(os.Stdout, level, production)
}

// SetLogOutput redirects logs, mostly useful in tests.
func SetLogOutput(w io.Writer, level string, production bool) {
	logMu.Lock()
	defer logMu.Unlock()
	IsProduction = production
	LogLevel = getLogLevel(level)
	logger = newLogger(w, LogLevel, production)
}

// Logger returns the process logger.
func Logger() zerolog.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return logger
}

// ============================================================================
// MASKING PATTERNS
// ============================================================================

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	amountWithCurrencyRegex = regexp.MustCompile(`\b\d+([.,]\d{1,2})?\s*(€|EUR|MXN|USD|£|\$)`)

	cardRegex = regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`)

	uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
)

// ============================================================================
// MASKING
// ============================================================================

// MaskString masks sensitive data inside a free-form string.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = cardRegex.ReplaceAllString(result, "****-****-****-****")
	result = amountWithCurrencyRegex.ReplaceAllString(result, "***")
	result = uuidRegex.ReplaceAllStringFunc(result, shortenID)

	return result
}

func shortenID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return "***"
}

// MaskAmount masks a monetary amount.
func MaskAmount(amount float64) string {
	if IsProduction {
		return "***"
	}
	return fmt.Sprintf("%.2f", amount)
}

// MaskID keeps the first 8 characters of an ID.
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

// MaskEmail masks an email address.
func MaskEmail(email string) string {
	if !IsProduction {
		return email
	}
	return "***@***.***"
}

// ============================================================================
// SAFE LOGGING
// ============================================================================

// SafeLog logs at info level after masking.
func SafeLog(format string, args ...interface{}) {
	SafeInfo(format, args...)
}

func SafeDebug(format string, args ...interface{}) {
	l := Logger()
	l.Debug().Msg(MaskString(fmt.Sprintf(format, args...)))
}

func SafeInfo(format string, args ...interface{}) {
	l := Logger()
	l.Info().Msg(MaskString(fmt.Sprintf(format, args...)))
}

func SafeWarn(format string, args ...interface{}) {
	l := Logger()
	l.Warn().Msg(MaskString(fmt.Sprintf(format, args...)))
}

func SafeError(format string, args ...interface{}) {
	l := Logger()
	l.Error().Msg(MaskString(fmt.Sprintf(format, args...)))
}

// ============================================================================
// DOMAIN LOGGING
// ============================================================================

// LogExpenseAction logs an expense mutation without amounts or descriptions.
func LogExpenseAction(action string, expenseID string, userID string) {
	l := Logger()
	l.Info().
		Str("scope", "expense").
		Str("action", action).
		Str("expense_id", MaskID(expenseID)).
		Str("user_id", MaskID(userID)).
		Msg("expense action")
}

// LogAuthAction logs an authentication attempt.
func LogAuthAction(action string, email string, success bool) {
	status := "SUCCESS"
	if !success {
		status = "FAILED"
	}

	l := Logger()
	l.Info().
		Str("scope", "auth").
		Str("action", action).
		Str("email", MaskEmail(email)).
		Str("status", status).
		Msg("auth action")
}

// LogAPIRequest logs one served request.
func LogAPIRequest(method string, path string, userID string, statusCode int, duration time.Duration) {
	if IsProduction {
		path = uuidRegex.ReplaceAllStringFunc(path, shortenID)
	}

	l := Logger()
	event := l.Info()
	if statusCode >= 500 {
		event = l.Error()
	} else if statusCode >= 400 {
		event = l.Warn()
	}
	event.
		Str("scope", "api").
		Str("method", method).
		Str("path", path).
		Str("user_id", MaskID(userID)).
		Int("status", statusCode).
		Dur("duration", duration).
		Msg("request")
}

// LogWebSocket logs a websocket lifecycle event.
func LogWebSocket(action string, userID string) {
	l := Logger()
	l.Info().
		Str("scope", "ws").
		Str("action", action).
		Str("user_id", MaskID(userID)).
		Msg("websocket")
}

// ============================================================================
// HELPERS
// ============================================================================

// GetEnvMode returns the current environment mode.
func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

// LogStartup logs startup information.
func LogStartup(appName string, version string, port string) {
	l := Logger()
	l.Info().
		Str("app", appName).
		Str("version", version).
		Str("mode", GetEnvMode()).
		Str("port", port).
		Str("log_level", LogLevel.String()).
		Msg("🚀 starting")
	if IsProduction {
		l.Info().Msg("⚠️  production mode: sensitive data will be masked in logs")
	}
}
