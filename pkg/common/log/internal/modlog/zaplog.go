/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package modlog

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nanderstabel/identity/pkg/common/log/internal/metadata"
	"github.com/nanderstabel/identity/spi/log"
)

// callerSkip is the number of wrapper frames between the logging code and zap.
const callerSkip = 4

// ZapLogger writes the lines of one module as zap console entries named after the module.
type ZapLogger struct {
	module string
	plain  *zap.SugaredLogger
	caller *zap.SugaredLogger
}

// NewZap returns the zap logger of module writing to out. The zap core accepts every level;
// filtering is left to Filter.
func NewZap(module string, out io.Writer) *ZapLogger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	base := zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(out), zapcore.DebugLevel)).
		Named(module)

	return &ZapLogger{
		module: module,
		plain:  base.Sugar(),
		caller: base.WithOptions(zap.AddCaller(), zap.AddCallerSkip(callerSkip)).Sugar(),
	}
}

func (l *ZapLogger) at(level log.Level) *zap.SugaredLogger {
	if metadata.IsCallerInfoEnabled(l.module, level) {
		return l.caller
	}

	return l.plain
}

// Fatalf writes a CRITICAL line and exits the process.
func (l *ZapLogger) Fatalf(format string, args ...interface{}) {
	l.at(log.CRITICAL).Fatalf(format, args...)
}

// Panicf writes a CRITICAL line and panics with the message.
func (l *ZapLogger) Panicf(format string, args ...interface{}) {
	l.at(log.CRITICAL).Panicf(format, args...)
}

// Errorf writes an error line.
func (l *ZapLogger) Errorf(format string, args ...interface{}) {
	l.at(log.ERROR).Errorf(format, args...)
}

// Warnf writes a warning line.
func (l *ZapLogger) Warnf(format string, args ...interface{}) {
	l.at(log.WARNING).Warnf(format, args...)
}

// Infof writes an info line.
func (l *ZapLogger) Infof(format string, args ...interface{}) {
	l.at(log.INFO).Infof(format, args...)
}

// Debugf writes a debug line.
func (l *ZapLogger) Debugf(format string, args ...interface{}) {
	l.at(log.DEBUG).Debugf(format, args...)
}
