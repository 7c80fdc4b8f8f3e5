//go:build !unix

package main

import "os"

var pauseSignal os.Signal
