// logpull - Log query client
//
// logpull runs queries against a Logentries-style REST query service, waits
// for the asynchronous result and prints every matching record.
package main

import (
	"os"

	"github.com/ccollicutt/logpull/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
