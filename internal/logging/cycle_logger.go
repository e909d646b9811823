package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// CycleLogger manages logging for a single orchestration cycle. Each
// cycle gets its own log file under cycle_logs/, and every line is
// mirrored to the application logger so a tail of the console shows
// the same story.
type CycleLogger struct {
	cycleID   string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

var (
	currentLogger *CycleLogger
	loggerMutex   sync.Mutex
)

// StartCycleLogging initializes logging for a new cycle. Any previous
// cycle logger is closed first; there is only ever one cycle in flight.
func StartCycleLogging(cycleID string) (*CycleLogger, error) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if currentLogger != nil {
		currentLogger.close()
	}

	timestamp := time.Now().Format("20060102_150405")
	logFileName := fmt.Sprintf("cycle_%s_%s.log", cycleID, timestamp)
	logPath := filepath.Join("cycle_logs", logFileName)

	if err := os.MkdirAll("cycle_logs", 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &CycleLogger{
		cycleID:   cycleID,
		logFile:   logFile,
		startTime: time.Now(),
	}

	currentLogger = logger
	logger.writeHeader()

	return logger, nil
}

// GetCurrentLogger returns the active cycle logger, or nil when no
// cycle is running. Callers must tolerate nil.
func GetCurrentLogger() *CycleLogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()
	return currentLogger
}

// Log writes a formatted message to the cycle log.
func (c *CycleLogger) Log(format string, args ...interface{}) {
	if c == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(c.startTime)
	logMessage := fmt.Sprintf(format, args...)

	message := fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed.Round(time.Millisecond), logMessage)
	c.logFile.WriteString(message)
	c.logFile.Sync()

	log.Debug().Str("cycle_id", c.cycleID).Msg(logMessage)
}

// LogError writes an error with its operation name.
func (c *CycleLogger) LogError(operation string, err error) {
	if c == nil {
		return
	}
	c.Log("ERROR in %s: %v", operation, err)
	log.Error().Err(err).Str("cycle_id", c.cycleID).Str("operation", operation).Msg("cycle error")
}

// LogSection writes a section header to the log.
func (c *CycleLogger) LogSection(title string) {
	if c == nil {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	separator := strings.Repeat("=", 60)
	c.logFile.WriteString(fmt.Sprintf("\n%s\n%s\n%s\n", separator, title, separator))
	c.logFile.Sync()
}

// Close finalizes the cycle log and writes a footer with the total
// duration.
func (c *CycleLogger) Close() {
	if c == nil {
		return
	}

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	c.close()
	if currentLogger == c {
		currentLogger = nil
	}
}

func (c *CycleLogger) close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.logFile == nil {
		return
	}

	elapsed := time.Since(c.startTime)
	c.logFile.WriteString(fmt.Sprintf("\n--- cycle %s finished in %v ---\n", c.cycleID, elapsed.Round(time.Millisecond)))
	c.logFile.Close()
	c.logFile = nil
}

func (c *CycleLogger) writeHeader() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.logFile.WriteString(fmt.Sprintf("=== Cycle %s ===\n", c.cycleID))
	c.logFile.WriteString(fmt.Sprintf("Started: %s\n\n", c.startTime.Format(time.RFC3339)))
	c.logFile.Sync()
}
