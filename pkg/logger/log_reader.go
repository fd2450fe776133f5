package logger

import (
	"bufio"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// LogEntry represents a parsed log entry
type LogEntry struct {
	Timestamp string                 `json:"timestamp"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Category  string                 `json:"category"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// LogReader reads the daily category log files
type LogReader struct {
	logsDir string
}

// NewLogReader creates a new log reader
func NewLogReader(logsDir string) *LogReader {
	return &LogReader{
		logsDir: logsDir,
	}
}

// GetLogPath returns the path to a category log file for a specific date
func (lr *LogReader) GetLogPath(category LogCategory, date time.Time) string {
	return CategoryLogPath(lr.logsDir, category, date.Format(dateLayout))
}

// ReadLogs returns the last limit entries of a category file, oldest first.
// A missing file yields no entries.
func (lr *LogReader) ReadLogs(category LogCategory, date time.Time, limit int) ([]LogEntry, error) {
	return lr.read(category, date, limit, nil)
}

// SearchLogs returns the last limit entries whose message or fields contain
// query, case-insensitively
func (lr *LogReader) SearchLogs(category LogCategory, date time.Time, query string, limit int) ([]LogEntry, error) {
	query = strings.ToLower(query)
	return lr.read(category, date, limit, func(line string) bool {
		return strings.Contains(strings.ToLower(line), query)
	})
}

func (lr *LogReader) read(category LogCategory, date time.Time, limit int, match func(string) bool) ([]LogEntry, error) {
	file, err := os.Open(lr.GetLogPath(category, date))
	if err != nil {
		if os.IsNotExist(err) {
			return []LogEntry{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || (match != nil && !match(line)) {
			continue
		}
		lines = append(lines, line)
		if limit > 0 && len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	entries := make([]LogEntry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, parseEntry(category, line))
	}
	return entries, nil
}

// parseEntry decodes one JSON line; non-JSON lines become plain info entries
func parseEntry(category LogCategory, line string) LogEntry {
	if !gjson.Valid(line) {
		return LogEntry{Level: "info", Message: line, Category: string(category)}
	}

	entry := LogEntry{Category: string(category)}
	fields := map[string]interface{}{}
	gjson.Parse(line).ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "ts":
			entry.Timestamp = value.String()
		case "level":
			entry.Level = value.String()
		case "msg":
			entry.Message = value.String()
		default:
			fields[key.String()] = value.Value()
		}
		return true
	})
	if len(fields) > 0 {
		entry.Fields = fields
	}
	return entry
}
