package testutil

import (
	"fmt"
	"strings"
	"sync"
)

// Entry is one message captured by RecordingLogger.
type Entry struct {
	Level string
	Msg   string
	KV    []interface{}
}

func (e Entry) String() string {
	var b strings.Builder
	b.WriteString(e.Level + " " + e.Msg)
	for i := 0; i+1 < len(e.KV); i += 2 {
		fmt.Fprintf(&b, " %v=%v", e.KV[i], e.KV[i+1])
	}
	return b.String()
}

// RecordingLogger implements ui.Logger by keeping every entry in memory.
type RecordingLogger struct {
	mu      sync.Mutex
	Entries []Entry
}

func (l *RecordingLogger) add(level, msg string, kv []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, KV: kv})
}

func (l *RecordingLogger) Debug(msg string, kv ...interface{})   { l.add("debug", msg, kv) }
func (l *RecordingLogger) Info(msg string, kv ...interface{})    { l.add("info", msg, kv) }
func (l *RecordingLogger) Success(msg string, kv ...interface{}) { l.add("success", msg, kv) }
func (l *RecordingLogger) Warn(msg string, kv ...interface{})    { l.add("warn", msg, kv) }
func (l *RecordingLogger) Error(msg string, kv ...interface{})   { l.add("error", msg, kv) }

// Messages returns the rendered entries at level, or all entries when level is empty.
func (l *RecordingLogger) Messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.Entries {
		if level == "" || e.Level == level {
			out = append(out, e.String())
		}
	}
	return out
}

// Contains reports whether an entry at level contains substr.
func (l *RecordingLogger) Contains(level, substr string) bool {
	for _, m := range l.Messages(level) {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// StaticPrompter answers every confirmation with Answer and records the questions.
type StaticPrompter struct {
	Answer    bool
	Err       error
	Questions []string
}

func (p *StaticPrompter) Confirm(question string) (bool, error) {
	p.Questions = append(p.Questions, question)
	return p.Answer, p.Err
}
