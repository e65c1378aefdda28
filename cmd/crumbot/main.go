// crumbot plays an idle cookie game by watching the screen and driving the
// pointer: it clicks the main target, catches bonus cookies and buys whatever
// pays for itself fastest.
package main

import (
	"os"

	"github.com/GriffinCanCode/crumbot/cmd/crumbot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
