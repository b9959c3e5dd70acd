package database

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"
)

// zerologWriter adapts a zerolog logger to the gorm logger Writer interface
type zerologWriter struct {
	logger zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...any) {
	w.logger.Info().Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// FilteredLogger drops statements matching any ignored pattern and prefixes
// the rest with the application caller.
type FilteredLogger struct {
	gormlogger.Interface
	ignoredQueryPatterns []string
}

// NewFilteredLogger wraps l, ignoring SQL that contains any of the patterns
func NewFilteredLogger(l gormlogger.Interface, ignoredPatterns ...string) *FilteredLogger {
	return &FilteredLogger{
		Interface:            l,
		ignoredQueryPatterns: ignoredPatterns,
	}
}

// LogMode implements logger.Interface
func (l *FilteredLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	return &FilteredLogger{
		Interface:            l.Interface.LogMode(level),
		ignoredQueryPatterns: l.ignoredQueryPatterns,
	}
}

// Trace implements logger.Interface
func (l *FilteredLogger) Trace(ctx context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	sql, rows := fc()
	if l.ignored(sql) {
		return
	}

	caller := findCaller()
	l.Interface.Trace(ctx, begin, func() (string, int64) {
		if caller != "" {
			return fmt.Sprintf("[caller: %s] %s", caller, sql), rows
		}
		return sql, rows
	}, err)
}

func (l *FilteredLogger) ignored(sql string) bool {
	for _, pattern := range l.ignoredQueryPatterns {
		if strings.Contains(sql, pattern) {
			return true
		}
	}
	return false
}

// findCaller returns the first frame outside gorm and the persistence packages
func findCaller() string {
	for i := 2; i < 15; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if strings.Contains(file, "gorm.io") ||
			strings.Contains(file, "internal/database") ||
			strings.Contains(file, "internal/store") {
			continue
		}

		if fn := runtime.FuncForPC(pc); fn != nil {
			name := fn.Name()
			if idx := strings.LastIndexByte(name, '.'); idx != -1 {
				name = name[idx+1:]
			}
			return fmt.Sprintf("%s() at %s:%d", name, file, line)
		}
		return fmt.Sprintf("%s:%d", file, line)
	}
	return ""
}
