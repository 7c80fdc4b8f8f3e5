//go:build unix

package main

import (
	"os"
	"syscall"
)

// pauseSignal toggles pause and resume of the running request.
var pauseSignal os.Signal = syscall.SIGUSR1
