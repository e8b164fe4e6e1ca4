package main

import (
	"os"

	"github.com/soyeahso/proxychat/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.WithTools, os.Args[1:], os.Stdout, os.Stderr))
}
