// fiximages corrige les chemins d'image des pages produit statiques.
package main

import (
	"fmt"
	"os"

	"noirbleed_cart/internal/htmlfix"
	"noirbleed_cart/internal/logger"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var (
		dir   string
		debug bool
	)
	cmd := &cobra.Command{
		Use:          "fiximages [fichier.html ...]",
		Short:        "Remplacer image: ...split('/').pop() par le chemin complet",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := logger.New(debug)
			if err != nil {
				return err
			}
			defer l.Sync()

			files := htmlfix.DefaultFiles
			if len(args) > 0 {
				files = args
			}

			res := htmlfix.NewPatcher(l).Run(dir, files)
			fmt.Fprintf(cmd.OutOrStdout(), "✅ %d corrigés, %d inchangés, %d en échec\n",
				len(res.Fixed), len(res.Unchanged), len(res.Failed))
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d fichiers en échec", len(res.Failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "dossier des pages")
	cmd.Flags().BoolVar(&debug, "debug", false, "logs détaillés")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
