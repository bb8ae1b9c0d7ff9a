package main

import (
	"os"
)

var (
	GitCommit string
	GitTag    string
	BuildTime string
)

// @title Books Catalog API
// @version 1.0
// @description Catalog of books with their comments.
// @BasePath /
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
