// cartctl inspecte et modifie le panier stocké localement : l'équivalent du
// panneau de debug des pages.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
