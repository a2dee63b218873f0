package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"noirbleed_cart/internal/app"
	"noirbleed_cart/internal/cart"
	"noirbleed_cart/internal/config"
	"noirbleed_cart/internal/extract"
	"noirbleed_cart/internal/logger"
	"noirbleed_cart/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type opener func(ctx context.Context) (*cart.Store, func() error, error)

func openFromEnv(ctx context.Context) (*cart.Store, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	l, err := logger.New(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	backend, closeBackend, err := app.OpenBackend(ctx, cfg, l)
	if err != nil {
		return nil, nil, err
	}
	return app.NewStore(cfg, backend, l), func() error {
		l.Sync()
		return closeBackend()
	}, nil
}

type cli struct {
	open    opener
	store   *cart.Store
	closeFn func() error
}

func newRootCmd(open opener) *cobra.Command {
	c := &cli{open: open}

	root := &cobra.Command{
		Use:           "cartctl",
		Short:         "Inspecter et modifier le panier NOIR BLEED",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			store, closeFn, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			c.store, c.closeFn = store, closeFn
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.closeFn != nil {
				return c.closeFn()
			}
			return nil
		},
	}

	root.AddCommand(
		c.showCmd(),
		c.addTestCmd(),
		c.addCmd(),
		c.removeCmd(),
		c.updateCmd(),
		c.clearCmd(),
		c.countCmd(),
		c.totalsCmd(),
		c.extractCmd(),
	)
	return root
}

func (c *cli) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Afficher le contenu brut du stockage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			raw, ok := c.store.Persisted(ctx)
			fmt.Fprintf(out, "clé %s présente : %t\n", c.store.Key(), ok)
			if ok {
				fmt.Fprintf(out, "contenu : %s\n", raw)
			} else {
				fmt.Fprintln(out, "contenu : null")
			}
			fmt.Fprintf(out, "articles : %d\n", c.store.GetCartItemCount(ctx))
			return nil
		},
	}
}

// testProduct est l'article du bouton "ajouter un produit test".
func testProduct() models.Product {
	cartID, _ := json.Marshal(fmt.Sprintf("test_%d", time.Now().UnixMilli()))
	return models.Product{
		ID:       models.IntID(999),
		Name:     "Test Product",
		Price:    "PKR 1,000",
		Image:    "product1men.jpg",
		Color:    "black",
		Size:     "M",
		Quantity: 1,
		Extra:    map[string]json.RawMessage{"cartId": cartID},
	}
}

func (c *cli) addTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-test",
		Short: "Ajouter le produit de test",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lines := c.store.AddToCart(cmd.Context(), testProduct())
			fmt.Fprintf(cmd.OutOrStdout(), "produit test ajouté (%d lignes)\n", len(lines))
			return nil
		},
	}
}

func parseProductID(s string) models.ProductID {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return models.IntID(n)
	}
	return models.StringID(s)
}

func (c *cli) addCmd() *cobra.Command {
	var (
		id string
		p  models.Product
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Valider puis ajouter un produit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p.ID = parseProductID(id)
			lines, err := c.store.AddValidated(cmd.Context(), p)
			if err != nil {
				return err
			}
			printLines(cmd, lines)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "identifiant produit (nombre ou texte)")
	cmd.Flags().StringVar(&p.Name, "name", "", "nom affiché")
	cmd.Flags().StringVar(&p.Price, "price", "", `prix, ex. "PKR 6,190"`)
	cmd.Flags().StringVar(&p.Image, "image", "", "chemin ou URL de l'image")
	cmd.Flags().StringVar(&p.Color, "color", "", "couleur choisie")
	cmd.Flags().StringVar(&p.Size, "size", "", "taille choisie")
	cmd.Flags().IntVar(&p.Quantity, "qty", 1, "quantité")
	return cmd
}

func (c *cli) removeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <cartLineId>",
		Short: "Retirer une ligne",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			printLines(cmd, c.store.RemoveFromCart(cmd.Context(), args[0]))
			return nil
		},
	}
}

func (c *cli) updateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update <cartLineId> <quantity>",
		Short: "Changer la quantité d'une ligne (< 1 retire la ligne)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantité invalide %q", args[1])
			}
			printLines(cmd, c.store.UpdateQuantity(cmd.Context(), args[0], qty))
			return nil
		},
	}
}

func (c *cli) clearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Vider le panier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.store.ClearCart(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "panier vidé")
			return nil
		},
	}
}

func (c *cli) countCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Nombre d'articles (pour le badge)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.store.GetCartItemCount(cmd.Context()))
			return nil
		},
	}
}

func (c *cli) totalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Sous-total, livraison, taxe et total en USD",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := c.store.CalculateTotals(c.store.GetCart(cmd.Context()))
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Subtotal: %s\n", usd(t.Subtotal))
			fmt.Fprintf(out, "Shipping: %s\n", usd(t.Shipping))
			fmt.Fprintf(out, "Tax: %s\n", usd(t.Tax))
			fmt.Fprintf(out, "Total: %s\n", usd(t.Total))
			return nil
		},
	}
}

func usd(amount string) string {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return amount
	}
	return cart.FormatUSD(d)
}

func (c *cli) extractCmd() *cobra.Command {
	var (
		pageURL string
		add     bool
		qty     int
	)
	cmd := &cobra.Command{
		Use:   "extract <page.html>",
		Short: "Lire la sélection d'une page produit rendue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if pageURL == "" {
				if pageURL, err = fileURL(args[0]); err != nil {
					return err
				}
			}
			sel, err := extract.FromHTML(f, pageURL)
			if err != nil {
				return err
			}

			p := sel.Product(qty)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(p); err != nil {
				return err
			}

			if !add {
				return nil
			}
			lines, err := c.store.AddValidated(cmd.Context(), p)
			if err != nil {
				return err
			}
			printLines(cmd, lines)
			return nil
		},
	}
	cmd.Flags().StringVar(&pageURL, "url", "", "URL de la page (id produit, image absolue)")
	cmd.Flags().BoolVar(&add, "add", false, "ajouter la sélection au panier")
	cmd.Flags().IntVar(&qty, "qty", 1, "quantité")
	return cmd
}

// fileURL rend le chemin absolu avant d'en faire une URL file://, sinon un
// chemin relatif serait lu comme un nom d'hôte.
func fileURL(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

func printLines(cmd *cobra.Command, lines []models.CartLine) {
	out := cmd.OutOrStdout()
	if len(lines) == 0 {
		fmt.Fprintln(out, "panier vide")
		return
	}
	for _, l := range lines {
		fmt.Fprintf(out, "%s\t%s\t%s/%s\tx%d\t%s\n", l.CartLineID, l.Name, l.Color, l.Size, l.Quantity, l.Price)
	}
}
