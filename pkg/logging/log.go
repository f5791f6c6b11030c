// Package logging provides leveled, package-level logging with an
// optional rotating log file.
package logging

import (
	"fmt"
	"log"
	"time"

	"github.com/natefinch/lumberjack"
)

type ModeFlag uint

const (
	DebugMode ModeFlag = iota
	InfoMode
	WarningMode
	ErrorMode
	CriticalMode
	SilentMode
)

var (
	mode = InfoMode

	// file is set once a log file has been configured.
	file *lumberjack.Logger
)

// SetLogMode sets the severity required for a message to be printed.
// SetLogMode(WarningMode) logs Warningf, Errorf and Criticalf calls; use
// SilentMode to turn logging off.
func SetLogMode(newMode ModeFlag) {
	mode = newMode
}

// LogMode returns the current severity threshold.
func LogMode() ModeFlag {
	return mode
}

func output(level, format string, args ...interface{}) {
	log.Printf(" "+level+" "+format, args...)
}

// Debugf records a message at Debug level.
func Debugf(format string, args ...interface{}) {
	if mode <= DebugMode {
		output("DEBUG", format, args...)
	}
}

// Infof records a message at Info level.
func Infof(format string, args ...interface{}) {
	if mode <= InfoMode {
		output("INFO", format, args...)
	}
}

func Warningf(format string, args ...interface{}) {
	if mode <= WarningMode {
		output("WARNING", format, args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if mode <= ErrorMode {
		output("ERROR", format, args...)
	}
}

func Criticalf(format string, args ...interface{}) {
	if mode <= CriticalMode {
		output("CRITICAL", format, args...)
	}
}

// LogConfig selects a rotating log file.
type LogConfig struct {
	Logfile string `yaml:"logfile" toml:"logfile"`
	MaxSize int    `yaml:"maxSize" toml:"max_log_size"`
	MaxAge  int    `yaml:"maxAge" toml:"max_log_age"`
}

// SetLogger sends log output to the configured file. Without a file name
// messages keep going to the standard logger.
func (c *LogConfig) SetLogger() {
	if c == nil || c.Logfile == "" {
		Debugf("Sending log messages to stderr since no log file specified.")
		return
	}
	fmt.Printf("Sending log messages to: %s\n", c.Logfile)
	l := &lumberjack.Logger{
		Filename: c.Logfile,
		MaxSize:  c.MaxSize, // megabytes
		MaxAge:   c.MaxAge,  // days
	}
	log.SetOutput(l)
	file = l
}

// Shutdown closes the log file, if any.
func Shutdown() {
	if file != nil {
		log.Printf("Closing log file...\n")
		file.Close()
		file = nil
	}
}

// TimeLog adds elapsed time to logging.
//
//	tlog := NewTimeLog()
//	...
//	tlog.Infof("merged %d slices", n) // appends time since NewTimeLog()
type TimeLog struct {
	start time.Time
}

func NewTimeLog() TimeLog {
	return TimeLog{time.Now()}
}

func (t TimeLog) Debugf(format string, args ...interface{}) {
	Debugf(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Infof(format string, args ...interface{}) {
	Infof(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Warningf(format string, args ...interface{}) {
	Warningf(format+": %s", append(args, time.Since(t.start))...)
}

func (t TimeLog) Errorf(format string, args ...interface{}) {
	Errorf(format+": %s", append(args, time.Since(t.start))...)
}

// Elapsed returns the time since the log was started.
func (t TimeLog) Elapsed() time.Duration {
	return time.Since(t.start)
}
