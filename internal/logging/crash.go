package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"
)

// CrashLogMaxBytes is the size at which crash.log is rotated to crash.log.old.
const CrashLogMaxBytes int64 = 1_000_000

// RecoverToCrashLog is deferred at the top of the daemon goroutine. It appends
// the panic value and stack to <dir>/crash.log, echoes it to stderr, and then
// re-panics so the process still exits with a failure.
func RecoverToCrashLog(dir string) {
	r := recover()
	if r == nil {
		return
	}
	msg := fmt.Sprintf("[%s] PANIC: %v\n%s\n", time.Now().Format("2006-01-02 15:04:05"), r, debug.Stack())
	if err := AppendCrashLog(dir, msg); err != nil {
		fmt.Fprintf(os.Stderr, "write crash log: %v\n", err)
	}
	fmt.Fprint(os.Stderr, msg)
	panic(r)
}

// AppendCrashLog writes msg to the crash log in dir, rotating first when the
// current file has reached CrashLogMaxBytes.
func AppendCrashLog(dir, msg string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(dir, "crash.log")
	if info, err := os.Stat(path); err == nil && info.Size() >= CrashLogMaxBytes {
		if err := os.Rename(path, filepath.Join(dir, "crash.log.old")); err != nil {
			return fmt.Errorf("rotate crash log: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = file.WriteString(msg)
	return err
}
