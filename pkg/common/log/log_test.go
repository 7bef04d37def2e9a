/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package log

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nanderstabel/identity/pkg/common/log/mocklogger"
	"github.com/nanderstabel/identity/spi/log"
)

// resetProvider clears the installed provider for the duration of the test.
func resetProvider(t *testing.T) {
	t.Helper()

	backend.mu.Lock()
	saved := backend.provider
	backend.provider = nil
	backend.mu.Unlock()

	t.Cleanup(func() {
		backend.mu.Lock()
		backend.provider = saved
		backend.mu.Unlock()
	})
}

// TestCustomLogger tests logging through a custom provider supplied via 'Initialize()'.
func TestCustomLogger(t *testing.T) {
	const module = "sample-module-custom"

	resetProvider(t)

	mock := &mocklogger.MockLogger{}
	require.True(t, Initialize(&mocklogger.Provider{Logger: mock}))
	require.False(t, Initialize(NewZapProvider(io.Discard)))
	require.False(t, Initialize(nil))

	SetLevel(module, log.INFO)

	logger := New(module)
	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.Errorf("failure: %s", "x")

	require.Equal(t, []string{"INFO shown 2", "ERROR failure: x"}, mock.Lines())
}

func TestZapProvider(t *testing.T) {
	const module = "sample-module-zap"

	t.Run("installed", func(t *testing.T) {
		resetProvider(t)

		buf := &bytes.Buffer{}
		require.True(t, Initialize(NewZapProvider(buf)))

		SetLevel(module, log.WARNING)

		logger := New(module)
		logger.Infof("hidden %d", 1)
		logger.Warnf("shown %d", 2)

		require.NotContains(t, buf.String(), "hidden 1")
		require.Contains(t, buf.String(), "shown 2")
		require.Contains(t, buf.String(), module)
	})

	t.Run("first line fixes the default", func(t *testing.T) {
		resetProvider(t)

		SetLevel(module, log.CRITICAL)
		New(module).Infof("filtered")

		require.False(t, Initialize(NewZapProvider(io.Discard)))
	})
}

// TestAllLevels tests logging level behaviour
// logging levels can be set per modules, if not set then it will default to 'INFO'.
func TestAllLevels(t *testing.T) {
	module := "sample-module-critical"
	SetLevel(module, log.CRITICAL)
	require.Equal(t, log.CRITICAL, GetLevel(module))
	verifyLevels(t, module, []log.Level{log.CRITICAL}, []log.Level{log.ERROR, log.WARNING, log.INFO, log.DEBUG})

	module = "sample-module-warning"
	SetLevel(module, log.WARNING)
	require.Equal(t, log.WARNING, GetLevel(module))
	verifyLevels(t, module, []log.Level{log.CRITICAL, log.ERROR, log.WARNING}, []log.Level{log.INFO, log.DEBUG})

	module = "sample-module-debug"
	SetLevel(module, log.DEBUG)
	require.Equal(t, log.DEBUG, GetLevel(module))
	verifyLevels(t, module, []log.Level{log.CRITICAL, log.ERROR, log.WARNING, log.INFO, log.DEBUG}, []log.Level{})
}

// TestCallerInfos callerinfo behavior which displays caller function details in log lines.
func TestCallerInfos(t *testing.T) {
	module := "sample-module-caller-info"

	ShowCallerInfo(module, log.CRITICAL)
	HideCallerInfo(module, log.INFO)

	require.True(t, IsCallerInfoEnabled(module, log.CRITICAL))
	require.False(t, IsCallerInfoEnabled(module, log.INFO))
}

// TestLogLevel testing 'ParseLevel()' used for parsing log levels from strings.
func TestLogLevel(t *testing.T) {
	verifyLevelsNoError := func(expected log.Level, levels ...string) {
		for _, level := range levels {
			actual, err := ParseLevel(level)
			require.NoError(t, err, "not supposed to fail while parsing level string [%s]", level)
			require.Equal(t, expected, actual)
		}
	}

	verifyLevelsNoError(log.CRITICAL, "critical", "CRITICAL", "CriticAL")
	verifyLevelsNoError(log.ERROR, "error", "ERROR", "ErroR")
	verifyLevelsNoError(log.WARNING, "warning", "WARNING", "WarninG")
	verifyLevelsNoError(log.DEBUG, "debug", "DEBUG", "DebUg")
	verifyLevelsNoError(log.INFO, "info", "INFO", "iNFo")

	for _, level := range []string{"", "D", "DE BUG", "."} {
		_, err := ParseLevel(level)
		require.ErrorIs(t, err, log.ErrInvalidLogLevel)
	}
}

func verifyLevels(t *testing.T, module string, enabled, disabled []log.Level) {
	t.Helper()

	for _, level := range enabled {
		require.True(t, IsEnabledFor(module, level),
			"expected level [%s] to be enabled for module [%s]", level, module)
	}

	for _, level := range disabled {
		require.False(t, IsEnabledFor(module, level),
			"expected level [%s] to be disabled for module [%s]", level, module)
	}
}
