// Package main is the single-binary entrypoint for trackd.
// trackd is the time-tracking engine behind the task board — one binary
// serving the timer API and its CLI client.
package main

import "github.com/taskhive/trackd/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
