package main

import (
	"os"

	"github.com/zhouzirui/z-salon/backend/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
