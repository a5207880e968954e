package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	reset  = "\033[0m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	purple = "\033[35m"
	cyan   = "\033[36m"
	gray   = "\033[37m"
	white  = "\033[97m"
)

// New builds the process logger. format is "json" or "pretty".
func New(w io.Writer, format string, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(NewPrettyHandler(w, opts))
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// PrettyHandler writes one colored line per record for terminals.
type PrettyHandler struct {
	opts  slog.HandlerOptions
	w     io.Writer
	mu    *sync.Mutex
	attrs []scopedAttr
	group string
}

// scopedAttr remembers the group that was open when the attribute was added.
type scopedAttr struct {
	group string
	attr  slog.Attr
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	return &PrettyHandler{
		opts:  *opts,
		w:     w,
		mu:    &sync.Mutex{},
	}
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.opts.Level != nil {
		minLevel = h.opts.Level.Level()
	}
	return level >= minLevel
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s%s%s ", gray, r.Time.Format("15:04:05.000"), reset)
	fmt.Fprintf(&b, "%s%-5s%s ", levelColor(r.Level), r.Level.String(), reset)
	fmt.Fprintf(&b, "%s%s%s", white, r.Message, reset)

	for _, sa := range h.attrs {
		writeAttr(&b, sa.group, sa.attr)
	}

	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.group, a)
		return true
	})

	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func levelColor(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return red
	case level >= slog.LevelWarn:
		return yellow
	case level >= slog.LevelInfo:
		return green
	default:
		return purple
	}
}

func writeAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	if group != "" {
		key = group + "." + key
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, nested := range a.Value.Group() {
			writeAttr(b, key, nested)
		}
		return
	}

	fmt.Fprintf(b, " %s%s%s=%s", cyan, key, reset, formatValue(a.Value))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindString:
		s := v.String()
		if strings.ContainsAny(s, " \t\n\"=") {
			return strconv.Quote(s)
		}
		return s
	default:
		return fmt.Sprintf("%v", v.Any())
	}
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]scopedAttr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	for _, a := range attrs {
		newAttrs = append(newAttrs, scopedAttr{group: h.group, attr: a})
	}

	return &PrettyHandler{
		opts:  h.opts,
		w:     h.w,
		mu:    h.mu,
		attrs: newAttrs,
		group: h.group,
	}
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	newGroup := name
	if h.group != "" {
		newGroup = h.group + "." + name
	}

	return &PrettyHandler{
		opts:  h.opts,
		w:     h.w,
		mu:    h.mu,
		attrs: h.attrs,
		group: newGroup,
	}
}
