// Package log echoes messages to Stdout and, after Init, appends them to
// daily files. Errors also go to a separate errors log with a callstack.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/kjk/inventory/filerotate"
)

var (
	logFile    *filerotate.File
	errorsFile *filerotate.File

	// if true, Verbosef() will log messages
	Verbose bool

	// where Logf() echoes messages, nil to not echo
	Stdout io.Writer = os.Stdout
)

type Config struct {
	// directory where log files are stored
	// regular and error logs have their own subdirectory
	// if empty, we only log to Stdout
	Dir string
}

func openDaily(dir string) (*filerotate.File, error) {
	return filerotate.NewDaily(&filerotate.Config{
		Dir: dir,
		Ext: ".txt",
	})
}

// Init closes previously opened log files and opens new ones in config.Dir
func Init(config *Config) error {
	Close()
	if config == nil || config.Dir == "" {
		return nil
	}
	f, err := openDaily(filepath.Join(config.Dir, "log"))
	if err != nil {
		return fmt.Errorf("log: %w", err)
	}
	ef, err := openDaily(filepath.Join(config.Dir, "errors"))
	if err != nil {
		f.Close()
		return fmt.Errorf("log: %w", err)
	}
	logFile, errorsFile = f, ef
	return nil
}

// Close closes log files. Logging continues to Stdout.
func Close() {
	for _, f := range []**filerotate.File{&logFile, &errorsFile} {
		if *f != nil {
			(*f).Close()
			*f = nil
		}
	}
}

func writeTo(f *filerotate.File, s string) {
	if f != nil {
		f.Write([]byte(s))
	}
}

func Logf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	if Stdout != nil {
		fmt.Fprint(Stdout, s)
	}
	writeTo(logFile, s)
}

func Verbosef(format string, args ...any) {
	if !Verbose {
		return
	}
	Logf(format, args...)
}

// callstack returns file:line of callers, one per line
func callstack(skip int) string {
	var callers [32]uintptr
	n := runtime.Callers(skip+1, callers[:])
	frames := runtime.CallersFrames(callers[:n])
	var lines []string
	for {
		frame, more := frames.Next()
		if !more {
			break
		}
		lines = append(lines, frame.File+":"+strconv.Itoa(frame.Line))
	}
	return strings.Join(lines, "\n")
}

// Errorf logs an error message along with the callstack
// it's also written to the errors log
func Errorf(s string, args ...any) {
	if len(args) > 0 {
		s = fmt.Sprintf(s, args...)
	}
	s = fmt.Sprintf("%s\n%s\n", s, callstack(2))
	Logf("%s", s)
	writeTo(errorsFile, s)
}

// if err != nil, log and return true
// IfErrf(err) => logs err.Error()
// IfErrf(err, "error is: %v", err) => logs message formatted
func IfErrf(err error, a ...any) bool {
	if err == nil {
		return false
	}
	if len(a) == 0 {
		Errorf("%s", err.Error())
		return true
	}
	s, ok := a[0].(string)
	if !ok {
		s = fmt.Sprint(a[0])
	}
	if len(a) > 1 {
		s = fmt.Sprintf(s, a[1:]...)
	}
	Errorf("%s", s)
	return true
}
