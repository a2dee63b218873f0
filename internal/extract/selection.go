// Package extract lit la sélection courante (produit, couleur, taille) dans
// une page produit déjà rendue.
package extract

import (
	"errors"
	"io"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"noirbleed_cart/internal/models"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrSelectionIncomplete = errors.New("veuillez choisir une couleur et une taille avant d'ajouter au panier")

const (
	DefaultName  = "Unknown Product"
	DefaultPrice = "PKR 0"
	DefaultImage = "default-product.jpg"
)

// Selection est ce que la page expose au panier.
type Selection struct {
	ProductID models.ProductID
	Name      string
	Price     string
	Image     string
	Color     string
	Size      string
}

func (s Selection) Product(quantity int) models.Product {
	return models.Product{
		ID:       s.ProductID,
		Name:     s.Name,
		Price:    s.Price,
		Image:    s.Image,
		Color:    s.Color,
		Size:     s.Size,
		Quantity: quantity,
	}
}

var productPathPatterns = []*regexp.Regexp{
	regexp.MustCompile(`fproduct(\d+)detail\.html`),
	regexp.MustCompile(`product(\d+)detail\.html`),
	regexp.MustCompile(`womenhoodies(\d+)detail\.html`),
	regexp.MustCompile(`menhoodies(\d+)detail\.html`),
	regexp.MustCompile(`fproduct(\d+)\.html`),
	regexp.MustCompile(`product(\d+)\.html`),
}

// ProductIDFromPath reconnaît les noms de pages produit (product3detail.html,
// womenhoodies2detail.html, ...).
func ProductIDFromPath(p string) (models.ProductID, bool) {
	name := path.Base(p)
	for _, re := range productPathPatterns {
		m := re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		return models.IntID(n), true
	}
	return models.ProductID{}, false
}

var firstNumber = regexp.MustCompile(`\d+`)

// FromHTML analyse la page. pageURL sert à trouver l'id produit et à rendre
// absolu le chemin de l'image ; il peut être vide.
func FromHTML(r io.Reader, pageURL string) (Selection, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return Selection{}, err
	}

	var base *url.URL
	if pageURL != "" {
		if base, err = url.Parse(pageURL); err != nil {
			return Selection{}, err
		}
	}

	colorBtn := selectedButton(doc, "colorOptions", func(n *html.Node) bool {
		return hasClass(n, "ring-2") || hasClass(n, "bg-black") || strings.Contains(attr(n, "style"), "border: 2px")
	})
	sizeBtn := selectedButton(doc, "sizeOptions", func(n *html.Node) bool {
		return hasClass(n, "bg-black") || strings.Contains(attr(n, "style"), "background-color: black")
	})
	if colorBtn == nil || sizeBtn == nil {
		return Selection{}, ErrSelectionIncomplete
	}

	sel := Selection{
		ProductID: productID(doc, base),
		Name:      DefaultName,
		Price:     DefaultPrice,
		Image:     DefaultImage,
		Color:     dataOrText(colorBtn, "data-color"),
		Size:      dataOrText(sizeBtn, "data-size"),
	}

	if n := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.H1 || n.DataAtom == atom.H2 || hasClass(n, "product-name")
	}); n != nil {
		if t := text(n); t != "" {
			sel.Name = t
		}
	}

	if n := find(doc, func(n *html.Node) bool {
		return hasClass(n, "text-red-600") || hasClass(n, "product-price") || strings.Contains(attr(n, "class"), "price")
	}); n != nil {
		if t := text(n); t != "" {
			sel.Price = t
		}
	}

	if n := find(doc, func(n *html.Node) bool {
		if n.DataAtom != atom.Img {
			return false
		}
		src := attr(n, "src")
		return strings.Contains(src, "product") || strings.Contains(src, "hoodie") || strings.Contains(attr(n, "alt"), "product")
	}); n != nil {
		if src := attr(n, "src"); src != "" {
			sel.Image = resolve(base, src)
		}
	}

	return sel, nil
}

func productID(doc *html.Node, base *url.URL) models.ProductID {
	if base != nil {
		if id, ok := ProductIDFromPath(base.Path); ok {
			return id
		}
	}

	code := find(doc, func(n *html.Node) bool {
		return (n.DataAtom == atom.P && hasClass(n, "text-gray-500")) ||
			hasClass(n, "product-code") ||
			strings.Contains(attr(n, "class"), "code")
	})
	if code != nil {
		if m := firstNumber.FindString(text(code)); m != "" {
			if n, err := strconv.ParseInt(m, 10, 64); err == nil {
				return models.IntID(n)
			}
		}
	}

	// Dernier recours : horodatage, comme les pages d'origine.
	return models.IntID(time.Now().UnixMilli())
}

func selectedButton(doc *html.Node, containerID string, selected func(*html.Node) bool) *html.Node {
	container := find(doc, func(n *html.Node) bool { return attr(n, "id") == containerID })
	if container == nil {
		return nil
	}
	return find(container, func(n *html.Node) bool {
		return n != container && n.DataAtom == atom.Button && selected(n)
	})
}

func dataOrText(n *html.Node, dataAttr string) string {
	if v := attr(n, dataAttr); v != "" {
		return v
	}
	return text(n)
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}

// find renvoie le premier élément (ordre du document) qui satisfait match.
func find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root.Type == html.ElementNode && match(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if n := find(c, match); n != nil {
			return n
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
