package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fitiq/fitiq/internal/client/cli"
	"github.com/fitiq/fitiq/internal/client/config"
)

func main() {
	env, err := config.Environ(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.Execute(context.Background(), os.Args[1:], env, os.Stdin, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
