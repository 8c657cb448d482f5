// cmd/main.go is the application entry point.
package main

import (
	"fmt"
	"os"

	"github.com/Shivanand-hulikatti/training-registration/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
