// Package log provides the terminal slog handler: no timestamps, colour by
// level when the terminal supports it and level prefixes when it does not.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// ColorMode represents the color capability of the terminal
type ColorMode int

const (
	ColorModeNone ColorMode = iota
	ColorMode16
	ColorMode256
)

// Special attribute key for marking success messages
const SuccessKey = "_success"

const colorReset = "\033[0m"

// palette holds the escape sequences of one color mode
type palette struct {
	debug, warn, err string
	key, value       string
	success          string
}

var palettes = map[ColorMode]palette{
	ColorMode256: {
		debug:   "\033[90m",
		warn:    "\033[38;5;214m",
		err:     "\033[38;5;203m",
		key:     "\033[38;5;219m",
		value:   "\033[38;5;117m",
		success: "\033[38;5;156m",
	},
	ColorMode16: {
		debug:   "\033[90m",
		warn:    "\033[33m",
		err:     "\033[31m",
		key:     "\033[35m",
		value:   "\033[36m",
		success: "\033[32m",
	},
}

// levelPrefixes replace colors when the terminal has none
var levelPrefixes = map[slog.Level]string{
	slog.LevelDebug: "debug: ",
	slog.LevelInfo:  "info: ",
	slog.LevelWarn:  "warning: ",
	slog.LevelError: "error: ",
}

// DetectColorMode detects the terminal's color capability based on TERM
func DetectColorMode() ColorMode {
	term := os.Getenv("TERM")
	switch {
	case term == "" || term == "dumb":
		return ColorModeNone
	case strings.Contains(term, "256color"):
		return ColorMode256
	default:
		return ColorMode16
	}
}

// Handler is a slog handler writing one line per record without timestamps
type Handler struct {
	w         io.Writer
	level     slog.Leveler
	attrs     []slog.Attr
	group     string
	colorMode ColorMode
	mu        *sync.Mutex
}

// NewHandler creates a Handler using the color mode of the terminal
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	return NewHandlerWithColor(w, level, DetectColorMode())
}

// NewHandlerWithColor creates a Handler with a fixed color mode
func NewHandlerWithColor(w io.Writer, level slog.Leveler, mode ColorMode) *Handler {
	return &Handler{
		w:         w,
		level:     level,
		colorMode: mode,
		mu:        &sync.Mutex{},
	}
}

// Enabled reports whether the handler handles records at the given level
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes a log record
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	colors, colored := palettes[h.colorMode]

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	isSuccess := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == SuccessKey {
			isSuccess = true
			return true
		}
		attrs = append(attrs, h.qualify(a))
		return true
	})

	var b strings.Builder
	if colored {
		color := levelColor(colors, r.Level)
		if color == "" && isSuccess {
			color = colors.success
		}
		if color != "" {
			b.WriteString(color + r.Message + colorReset)
		} else {
			b.WriteString(r.Message)
		}
	} else {
		b.WriteString(levelPrefixes[r.Level] + r.Message)
	}

	for _, attr := range flatten("", attrs) {
		h.writeAttr(&b, attr, colors, colored)
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func levelColor(colors palette, level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return colors.err
	case level >= slog.LevelWarn:
		return colors.warn
	case level < slog.LevelInfo:
		return colors.debug
	}
	return ""
}

func (h *Handler) writeAttr(b *strings.Builder, attr slog.Attr, colors palette, colored bool) {
	value := attr.Value.Resolve()

	var formatted string
	switch value.Kind() {
	case slog.KindInt64, slog.KindUint64, slog.KindFloat64, slog.KindBool:
		formatted = value.String()
	default:
		formatted = fmt.Sprintf("%q", value.String())
	}

	if !colored {
		fmt.Fprintf(b, " %s=%s", attr.Key, formatted)
		return
	}
	if _, isErr := value.Any().(error); isErr && value.Kind() == slog.KindAny {
		fmt.Fprintf(b, " %s%s=%s%s", colors.err, attr.Key, formatted, colorReset)
		return
	}
	fmt.Fprintf(b, " %s%s%s=%s%s%s", colors.key, attr.Key, colorReset, colors.value, formatted, colorReset)
}

// qualify prefixes the key with the handler's group
func (h *Handler) qualify(a slog.Attr) slog.Attr {
	if h.group == "" {
		return a
	}
	return slog.Attr{Key: h.group + a.Key, Value: a.Value}
}

// flatten expands group attributes into dotted keys
func flatten(prefix string, attrs []slog.Attr) []slog.Attr {
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Value.Kind() != slog.KindGroup {
			if a.Key != "" {
				out = append(out, slog.Attr{Key: prefix + a.Key, Value: a.Value})
			}
			continue
		}
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix += a.Key + "."
		}
		out = append(out, flatten(groupPrefix, a.Value.Group())...)
	}
	return out
}

// WithAttrs returns a new Handler with the given attributes
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

// WithGroup returns a new Handler with the given group
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.group = h.group + name + "."
	return &clone
}

// Success returns an Attr that marks a log message as a success message
func Success() slog.Attr {
	return slog.Bool(SuccessKey, true)
}
