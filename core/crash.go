// Package core holds process-level helpers shared by the engine loop and the binary
package core

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
)

var (
	crashScreen atomic.Pointer[tcell.Screen]

	// exit is swapped in tests
	exit = os.Exit
)

// SetCrashScreen registers the console screen restored before a crash report
func SetCrashScreen(s tcell.Screen) {
	if s == nil {
		crashScreen.Store(nil)
		return
	}
	crashScreen.Store(&s)
}

// HandleCrash restores the terminal, logs and prints the stack trace, then exits
func HandleCrash(r any) {
	if r == nil {
		return
	}
	stack := debug.Stack()

	if s := crashScreen.Load(); s != nil {
		(*s).Fini()
	}

	slog.Error("crash", "component", "core", "panic", fmt.Sprint(r), "stack", string(stack))
	fmt.Fprintf(os.Stderr, "\n\x1b[31mCRASH DETECTED: %v\x1b[0m\n", r)
	fmt.Fprintf(os.Stderr, "Stack Trace:\n%s\n", stack)

	exit(1)
}

// Go runs a function in a new goroutine with panic recovery
// Use this instead of the 'go' keyword so the console is restored on crash
func Go(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				HandleCrash(r)
			}
		}()
		fn()
	}()
}
