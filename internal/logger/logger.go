package logger

import (
	"net/url"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// redactedPassword matches what url.URL.Redacted writes.
const redactedPassword = "xxxxx"

// Init builds the process logger and installs it as zap's global logger.
// Production gets JSON output at info level; everything else gets the
// human-readable development encoder at debug level.
func Init(production bool) (*zap.Logger, error) {
	var cfg zap.Config
	if production {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(l)
	return l, nil
}

// MaskURI hides the password portion of a connection string before it is logged.
func MaskURI(uri string) string {
	if u, err := url.Parse(uri); err == nil {
		return u.Redacted()
	}

	// Seed lists url.Parse rejects: mask between the scheme and the last '@'.
	at := strings.LastIndexByte(uri, '@')
	if at < 0 {
		return uri
	}
	start := 0
	if i := strings.Index(uri, "://"); i >= 0 && i < at {
		start = i + len("://")
	}
	if colon := strings.IndexByte(uri[start:at], ':'); colon >= 0 {
		return uri[:start+colon+1] + redactedPassword + uri[at:]
	}
	return uri
}
