package main

import (
	"os"

	"github.com/sonroyaalmerol/ical-search/internal/app"
)

func main() {
	os.Exit(app.Execute())
}
