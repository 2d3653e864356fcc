// Package main provides the deeptube CLI entry point.
// deeptube picks the country of a DEEPTUBE account.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/deeptube/deeptube/internal/cli"
)

func main() {
	if err := cli.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
