/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"io"
	"os"
	"sync"

	"github.com/nanderstabel/identity/pkg/common/log/internal/modlog"
	"github.com/nanderstabel/identity/spi/log"
)

// ZapProvider builds zap console loggers that share one output.
type ZapProvider struct {
	out io.Writer
}

// NewZapProvider returns a provider of zap loggers writing to out.
func NewZapProvider(out io.Writer) *ZapProvider {
	return &ZapProvider{out: out}
}

// GetLogger returns the zap logger of module.
func (p *ZapProvider) GetLogger(module string) log.Logger {
	return modlog.NewZap(module, p.out)
}

// backend holds the provider behind every module logger. It is fixed by Initialize or by the
// first logged line, whichever happens first.
//
//nolint:gochecknoglobals
var backend struct {
	mu       sync.Mutex
	provider log.LoggerProvider
}

// Initialize makes p the provider of every module logger and reports whether it was installed.
// It has no effect once a provider is in place, including the default one set up by the first
// logged line.
func Initialize(p log.LoggerProvider) bool {
	if p == nil {
		return false
	}

	backend.mu.Lock()
	installed := backend.provider == nil

	if installed {
		backend.provider = p
	}
	backend.mu.Unlock()

	if installed {
		New(loggerModule).Debugf("logger provider initialized")
	}

	return installed
}

// moduleLogger returns the level filtered logger of module, falling back to zap on stdout when
// no provider was initialized.
func moduleLogger(module string) log.Logger {
	backend.mu.Lock()
	fallback := backend.provider == nil

	if fallback {
		backend.provider = NewZapProvider(os.Stdout)
	}

	p := backend.provider
	backend.mu.Unlock()

	if fallback {
		New(loggerModule).Debugf(loggerNotInitializedMsg)
	}

	return modlog.NewFilter(p.GetLogger(module), module)
}
