package main

import (
	"os"

	"github.com/blackwell-systems/logs2eca/internal/app"
)

func main() {
	os.Exit(app.ExitStatus(app.Execute(), os.Stderr))
}
