// Command lifelock scores tasks and serves the LifeLock rewards API.
package main

import "github.com/lifelock-app/lifelock/internal/cli"

// Overridden at release time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Execute(version)
}
