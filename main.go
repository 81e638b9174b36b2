package main

import (
	"os"

	"yashubustudio/cropadvisor/internal/app"
)

func main() {
	// config.json in the working directory
	if err := app.Run(""); err != nil {
		os.Exit(1)
	}
}
