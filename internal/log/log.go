// Package log is a small leveled logger with key-value context, shared by
// the load pipeline, the synchronizer and the web layer. Output goes to
// stderr, one line per entry:
//
//	2024-01-01T00:00:00+00:00 [INFO] records loaded count=42 window=2024-01
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

var (
	mu       sync.Mutex
	out      io.Writer = os.Stderr
	minLevel           = LevelInfo
)

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := levelRank[l]; ok {
		minLevel = l
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

func Debug(msg string, kv ...any) {
	emit(LevelDebug, msg, kv)
}

func Info(msg string, kv ...any) {
	emit(LevelInfo, msg, kv)
}

func Warn(msg string, kv ...any) {
	emit(LevelWarn, msg, kv)
}

// Error logs msg with err prepended to the key-value context as "err".
func Error(msg string, err error, kv ...any) {
	emit(LevelError, msg, append([]any{"err", err}, kv...))
}

func emit(level Level, msg string, kv []any) {
	mu.Lock()
	defer mu.Unlock()
	if levelRank[level] < levelRank[minLevel] {
		return
	}

	line := time.Now().Format(time.RFC3339) + " [" + string(level) + "] " + msg
	// kv comes in pairs; a trailing odd element is dropped.
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		line += " " + key + "=" + fmt.Sprint(kv[i+1])
	}
	fmt.Fprintln(out, line)
}
