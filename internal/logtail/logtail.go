package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
)

// Line is one decoded log record. Lines that are not JSON keep their text in
// Message with Raw set.
type Line struct {
	Time    time.Time
	Level   string
	Message string
	Fields  string
	Raw     bool
}

// Read returns at most maxLines decoded records from the end of the file at
// path. A missing file yields no lines.
func Read(path string, maxLines int) ([]Line, error) {
	if maxLines <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	ring := make([]string, maxLines)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, idx := 0, 0
	for scanner.Scan() {
		text := scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		ring[idx] = text
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	start := 0
	if count == maxLines {
		start = idx
	}
	lines := make([]Line, count)
	for i := 0; i < count; i++ {
		lines[i] = Parse(ring[(start+i)%maxLines])
	}
	return lines, nil
}

// Parse decodes one zap JSON record.
func Parse(text string) Line {
	var rec map[string]any
	if err := json.Unmarshal([]byte(text), &rec); err != nil {
		return Line{Message: text, Raw: true}
	}
	line := Line{}
	if v, ok := rec["ts"].(string); ok {
		if ts, err := time.Parse("2006-01-02T15:04:05.000Z0700", v); err == nil {
			line.Time = ts
		} else if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
			line.Time = ts
		}
	}
	line.Level, _ = rec["level"].(string)
	line.Message, _ = rec["msg"].(string)
	delete(rec, "ts")
	delete(rec, "level")
	delete(rec, "msg")
	delete(rec, "caller")
	delete(rec, "stacktrace")

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, rec[k]))
	}
	line.Fields = strings.Join(parts, " ")
	return line
}

// String renders the line for a plain text pane.
func (l Line) String() string {
	if l.Raw {
		return l.Message
	}
	var b strings.Builder
	if !l.Time.IsZero() {
		b.WriteString(l.Time.Format("15:04:05"))
		b.WriteByte(' ')
	}
	b.WriteString(strings.ToUpper(l.Level))
	b.WriteByte(' ')
	b.WriteString(l.Message)
	if l.Fields != "" {
		b.WriteByte(' ')
		b.WriteString(l.Fields)
	}
	return b.String()
}
