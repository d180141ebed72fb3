// Command sqaaas-server runs the pipeline orchestration engine's HTTP
// front end.
package main

import (
	"fmt"
	"os"

	"github.com/alvarolopez/sqaaas-api-server/cmd/sqaaas-server/serve"
)

func main() {
	if err := serve.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
