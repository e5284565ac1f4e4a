package main

import (
	"fmt"
	"os"
	"time"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "demotool"
)

// SessionStartTime names the log file of this run.
var SessionStartTime = time.Now()

func main() {
	a := newApp()
	err := newRootCmd(a).Execute()
	a.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
