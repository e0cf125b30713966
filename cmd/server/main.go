// Command server runs the deckstudy API and its maintenance commands.
package main

import (
	"context"
	"os"
)

func main() {
	if err := run(context.Background(), os.Args, os.Stdout); err != nil {
		os.Exit(1)
	}
}
