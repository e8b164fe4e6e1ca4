package main

import (
	"os"

	"github.com/soyeahso/proxychat/internal/cli"
)

func main() {
	os.Exit(cli.Main(cli.Basic, os.Args[1:], os.Stdout, os.Stderr))
}
