// Command mindcraft imports books into worlds and lets their characters talk.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
