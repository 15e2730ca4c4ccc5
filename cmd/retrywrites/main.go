// Command retrywrites answers retried writes from a SQLite oplog.
package main

import (
	"os"

	"github.com/roach88/retrywrites/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
