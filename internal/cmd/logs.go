package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/handoff/internal/config"
	"github.com/Iron-Ham/handoff/internal/logging"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View dispatcher logs",
	Long: `View and filter the JSON log written when logging.enabled is set.

The log is read from logging.dir unless --dir is given.

Examples:
  # Show the last 50 lines
  handoff logs

  # Only what happened to task 7
  handoff logs --task 7 -n 0

  # Follow logs in real-time
  handoff logs -f

  # Warnings and errors from the last hour
  handoff logs --level warn --since 1h`,
	RunE: runLogs,
}

var (
	logsDir    string
	logsTail   int
	logsFollow bool
	logsLevel  string
	logsSince  string
	logsGrep   string
	logsTask   uint64
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsDir, "dir", "", "Log directory (default: logging.dir)")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of lines to show (0 for all)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output (like tail -f)")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Filter by minimum level (debug/info/warn/error)")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter logs matching pattern (regex)")
	logsCmd.Flags().Uint64Var(&logsTask, "task", 0, "Only show entries for this task ID")
}

// logEntry represents a parsed JSON log line
type logEntry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Msg     string         `json:"msg"`
	TaskID  uint64         `json:"task_id,omitempty"`
	OwnerID string         `json:"owner_id,omitempty"`
	Phase   string         `json:"phase,omitempty"`
	Extra   map[string]any `json:"-"` // Captures additional fields
}

// UnmarshalJSON implements custom unmarshaling to capture extra fields
func (e *logEntry) UnmarshalJSON(data []byte) error {
	// First, unmarshal known fields using a type alias to avoid recursion
	type Alias logEntry
	aux := &struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var all map[string]any
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for _, known := range []string{"time", "level", "msg", "task_id", "owner_id", "phase"} {
		delete(all, known)
	}
	if len(all) > 0 {
		e.Extra = all
	}
	return nil
}

// logFilter holds the criteria an entry must meet to be shown.
type logFilter struct {
	minLevel int
	since    time.Time
	grep     *regexp.Regexp
	taskID   uint64
}

// ANSI color codes for terminal output
const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorCyan   = "\033[36m"
)

// levelColor returns the ANSI color code for a log level
func levelColor(level string) string {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return colorGray
	case logging.LevelInfo:
		return colorBlue
	case logging.LevelWarn:
		return colorYellow
	case logging.LevelError:
		return colorRed
	default:
		return colorReset
	}
}

// levelPriority returns the priority of a log level for filtering
func levelPriority(level string) int {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return 0
	case logging.LevelInfo:
		return 1
	case logging.LevelWarn:
		return 2
	case logging.LevelError:
		return 3
	default:
		return -1
	}
}

// logFormatter renders entries, with ANSI colors when writing to a terminal.
type logFormatter struct {
	color bool
}

func (f logFormatter) paint(code, s string) string {
	if !f.color {
		return s
	}
	return code + s + colorReset
}

// format formats a log entry for terminal output
func (f logFormatter) format(entry *logEntry) string {
	var sb strings.Builder

	sb.WriteString(f.paint(colorGray, "["+entry.Time.Format("15:04:05.000")+"]"))
	sb.WriteString(" ")
	sb.WriteString(f.paint(levelColor(entry.Level), "["+strings.ToUpper(entry.Level)+"]"))
	sb.WriteString(" ")
	sb.WriteString(entry.Msg)

	if entry.Phase != "" {
		sb.WriteString(" " + f.paint(colorCyan, "phase=") + entry.Phase)
	}
	if entry.TaskID != 0 {
		sb.WriteString(" " + f.paint(colorCyan, "task_id=") + fmt.Sprint(entry.TaskID))
	}
	if entry.OwnerID != "" {
		sb.WriteString(" " + f.paint(colorCyan, "owner_id=") + entry.OwnerID)
	}

	// Extra fields, in a stable order
	keys := make([]string, 0, len(entry.Extra))
	for k := range entry.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(" " + f.paint(colorCyan, k+"=") + fmt.Sprintf("%v", entry.Extra[k]))
	}

	return sb.String()
}

func runLogs(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	dir := logsDir
	if dir == "" {
		dir = config.Get().Logging.Dir
	}
	if dir == "" {
		fmt.Fprintln(out, "Logging writes to stderr; set logging.dir or pass --dir to read a log file.")
		return nil
	}

	logPath := filepath.Join(dir, logging.LogFileName)
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		fmt.Fprintf(out, "No log file at %s\n", logPath)
		return nil
	}

	filter := logFilter{minLevel: -1, taskID: logsTask}
	if logsLevel != "" {
		filter.minLevel = levelPriority(logging.ParseLevel(logsLevel))
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.since = time.Now().Add(-duration)
	}
	if logsGrep != "" {
		re, err := regexp.Compile(logsGrep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
		filter.grep = re
	}

	f := logFormatter{color: isTerminal(out)}
	if logsFollow {
		return followLogs(cmd, logPath, filter, f)
	}
	return displayLogs(out, logPath, logsTail, filter, f)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// displayLogs reads the log file and displays filtered entries
func displayLogs(out io.Writer, logPath string, tail int, filter logFilter, f logFormatter) error {
	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []string
	scanner := bufio.NewScanner(file)

	// Increase buffer size for potentially long log lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if line, ok := renderLine(scanner.Text(), filter, f); ok {
			entries = append(entries, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	if tail > 0 && len(entries) > tail {
		entries = entries[len(entries)-tail:]
	}
	for _, entry := range entries {
		fmt.Fprintln(out, entry)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No matching log entries found.")
	}
	return nil
}

// followLogs prints entries appended to the log file until the command's
// context ends. New data is picked up on fsnotify write events.
func followLogs(cmd *cobra.Command, logPath string, filter logFilter, f logFormatter) error {
	out := cmd.OutOrStdout()

	file, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}
	defer func() { _ = watcher.Close() }()
	if err := watcher.Add(logPath); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	fmt.Fprintf(out, "Following %s... (Ctrl+C to stop)\n\n", logPath)

	reader := bufio.NewReader(file)
	drain := func() error {
		for {
			line, err := reader.ReadString('\n')
			if err == io.EOF {
				// Partial line stays buffered until the rest arrives.
				return nil
			}
			if err != nil {
				return fmt.Errorf("error reading log file: %w", err)
			}
			if rendered, ok := renderLine(line, filter, f); ok {
				fmt.Fprintln(out, rendered)
			}
		}
	}

	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Write) {
				if err := drain(); err != nil {
					return err
				}
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching log file: %w", werr)
		}
	}
}

// renderLine parses and filters one raw line. Lines that are not JSON are
// shown as they are.
func renderLine(line string, filter logFilter, f logFormatter) (string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", false
	}

	var entry logEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line, true
	}
	if !passesFilters(&entry, filter) {
		return "", false
	}
	return f.format(&entry), true
}

// passesFilters checks if a log entry passes all filter criteria
func passesFilters(entry *logEntry, filter logFilter) bool {
	if filter.minLevel >= 0 && levelPriority(entry.Level) < filter.minLevel {
		return false
	}
	if !filter.since.IsZero() && entry.Time.Before(filter.since) {
		return false
	}
	if filter.taskID != 0 && entry.TaskID != filter.taskID {
		return false
	}
	if filter.grep != nil {
		searchText := entry.Msg
		for _, v := range entry.Extra {
			searchText += " " + fmt.Sprintf("%v", v)
		}
		if !filter.grep.MatchString(searchText) {
			return false
		}
	}
	return true
}
