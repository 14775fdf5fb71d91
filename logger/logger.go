// Package logger defines the logging surface the session controller writes
// to. The default used throughout the library is Nop; applications plug in
// the zap implementation or their own.
package logger

// Logger is a leveled, structured logger.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// F is shorthand for a field map at call sites.
type F = map[string]any

// Nop discards everything.
type Nop struct{}

func (Nop) Debug(string, map[string]any) {}
func (Nop) Info(string, map[string]any)  {}
func (Nop) Warn(string, map[string]any)  {}
func (Nop) Error(string, map[string]any) {}
