/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mocklogger records log lines for assertions in tests.
package mocklogger

import (
	"fmt"
	"sync"

	"github.com/nanderstabel/identity/spi/log"
)

// MockLogger is a mocked logger that can be used for testing.
type MockLogger struct {
	mu       sync.Mutex
	Messages []string
}

// Fatalf records a fatal message.
func (l *MockLogger) Fatalf(msg string, args ...interface{}) {
	l.record("FATAL", msg, args...)
}

// Panicf records a panic message.
func (l *MockLogger) Panicf(msg string, args ...interface{}) {
	l.record("PANIC", msg, args...)
}

// Debugf records a debug message.
func (l *MockLogger) Debugf(msg string, args ...interface{}) {
	l.record("DEBUG", msg, args...)
}

// Infof records an info message.
func (l *MockLogger) Infof(msg string, args ...interface{}) {
	l.record("INFO", msg, args...)
}

// Warnf records a warning message.
func (l *MockLogger) Warnf(msg string, args ...interface{}) {
	l.record("WARN", msg, args...)
}

// Errorf records an error message.
func (l *MockLogger) Errorf(msg string, args ...interface{}) {
	l.record("ERROR", msg, args...)
}

// Lines returns a copy of the recorded messages.
func (l *MockLogger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]string(nil), l.Messages...)
}

func (l *MockLogger) record(level, msg string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.Messages = append(l.Messages, level+" "+fmt.Sprintf(msg, args...))
}

// Provider is a mock logger provider that can be used for testing.
type Provider struct {
	Logger *MockLogger
}

// GetLogger returns the mock logger for every module.
func (p *Provider) GetLogger(string) log.Logger {
	return p.Logger
}
