// Command lorebinders builds a story bible from a manuscript.
package main

import "os"

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
