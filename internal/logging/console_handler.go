package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// infoAttrLimit caps the fields shown under an INFO line; DEBUG shows all.
const infoAttrLimit = 8

// Keys surfaced first under INFO lines, in display order.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldProgressPercent,
	FieldKey,
	"status",
	"command",
	"error",
	FieldErrorHint,
	FieldImpact,
	"elapsed",
	"attempted",
	"failed",
}

// Keys rendered in the header subject rather than as fields.
var subjectKeys = map[string]struct{}{
	FieldComponent: {},
	FieldLesson:    {},
	FieldRendition: {},
	FieldPhase:     {},
	FieldRunID:     {},
}

type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	timestamp := record.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	kvs := make([]kv, 0, record.NumAttrs()+len(h.attrs))
	flattenAttrs(&kvs, h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		flattenAttr(&kvs, h.groups, attr)
		return true
	})
	kvs = dedupeKVsByKey(kvs)

	var subj subject
	fields := make([]kv, 0, len(kvs))
	for _, item := range kvs {
		if _, ok := subjectKeys[item.key]; ok {
			subj.set(item.key, attrString(item.value))
			if item.key != FieldRunID || record.Level >= slog.LevelInfo {
				continue
			}
		}
		fields = append(fields, item)
	}

	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(192 + len(fields)*32)
	buf.WriteString(formatTimestamp(timestamp))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if subj.component != "" {
		buf.WriteString(" [")
		buf.WriteString(subj.component)
		buf.WriteByte(']')
	}
	if s := subj.String(); s != "" {
		buf.WriteByte(' ')
		buf.WriteString(s)
	}
	buf.WriteString(" - ")
	buf.WriteString(message)
	if h.addSource {
		if src := record.Source(); src != nil {
			buf.WriteString(" [")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(']')
		}
	}
	buf.WriteByte('\n')

	if record.Level < slog.LevelInfo {
		for _, item := range fields {
			writeField(&buf, item.key, formatValue(item.value))
		}
	} else {
		shown, hidden := selectInfoFields(fields)
		for _, item := range shown {
			writeField(&buf, item.key, formatValue(item.value))
		}
		if hidden > 0 {
			buf.WriteString("    + ")
			buf.WriteString(strconv.Itoa(hidden))
			buf.WriteString(" more field")
			if hidden != 1 {
				buf.WriteByte('s')
			}
			buf.WriteByte('\n')
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func writeField(buf *bytes.Buffer, key, value string) {
	buf.WriteString("    - ")
	buf.WriteString(key)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteByte('\n')
}

// selectInfoFields orders highlighted keys first and trims to infoAttrLimit.
func selectInfoFields(fields []kv) ([]kv, int) {
	if len(fields) <= infoAttrLimit {
		return sortHighlighted(fields), 0
	}
	ordered := sortHighlighted(fields)
	return ordered[:infoAttrLimit], len(ordered) - infoAttrLimit
}

func sortHighlighted(fields []kv) []kv {
	out := make([]kv, 0, len(fields))
	used := make([]bool, len(fields))
	for _, key := range infoHighlightKeys {
		for i, item := range fields {
			if !used[i] && item.key == key {
				out = append(out, item)
				used[i] = true
			}
		}
	}
	for i, item := range fields {
		if !used[i] {
			out = append(out, item)
		}
	}
	return out
}

type subject struct {
	component string
	lesson    string
	rendition string
	phase     string
}

func (s *subject) set(key, value string) {
	value = strings.TrimSpace(value)
	switch key {
	case FieldComponent:
		if s.component == "" {
			s.component = value
		}
	case FieldLesson:
		s.lesson = value
	case FieldRendition:
		s.rendition = value
	case FieldPhase:
		s.phase = value
	}
}

// String renders "lesson · rendition (phase)" with absent parts omitted.
func (s subject) String() string {
	parts := make([]string, 0, 2)
	if s.lesson != "" {
		parts = append(parts, s.lesson)
	}
	switch {
	case s.rendition != "" && s.phase != "":
		parts = append(parts, s.rendition+" ("+s.phase+")")
	case s.rendition != "":
		parts = append(parts, s.rendition)
	case s.phase != "":
		parts = append(parts, s.phase)
	}
	return strings.Join(parts, " · ")
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *prettyHandler) clone() *prettyHandler {
	return &prettyHandler{
		mu:        h.mu,
		writer:    h.writer,
		level:     h.level,
		addSource: h.addSource,
		attrs:     append([]slog.Attr(nil), h.attrs...),
		groups:    append([]string(nil), h.groups...),
	}
}

type kv struct {
	key   string
	value slog.Value
}

// dedupeKVsByKey keeps the first position of each key with its last value.
func dedupeKVsByKey(attrs []kv) []kv {
	if len(attrs) < 2 {
		return attrs
	}
	positions := make(map[string]int, len(attrs))
	deduped := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if pos, ok := positions[attr.key]; ok {
			deduped[pos].value = attr.value
			continue
		}
		positions[attr.key] = len(deduped)
		deduped = append(deduped, attr)
	}
	return deduped
}

func flattenAttrs(dst *[]kv, prefix []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		flattenAttr(dst, prefix, attr)
	}
}

func flattenAttr(dst *[]kv, prefix []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		flattenAttrs(dst, next, attr.Value.Group())
		return
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), key), ".")
	}
	*dst = append(*dst, kv{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
