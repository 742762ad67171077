// Package rtplog provides the optional structured logger used across the
// session and transport packages. Callers that don't configure one get a
// no-op logger, so nothing needs a nil check.
package rtplog

import "go.uber.org/zap"

// Logger is the interface the session and transport packages depend on.
// *zap.SugaredLogger satisfies it directly.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// NoOp returns a logger that discards everything, used when the host does
// not configure one.
func NoOp() Logger {
	return zap.NewNop().Sugar()
}

// Development returns a human-readable console logger, used by cmd/rtpmidid.
func Development() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}
