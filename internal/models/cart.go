package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
)

// ProductID garde l'identifiant tel que fourni par la page : nombre ou chaîne.
// Deux ids ne sont égaux que si la forme et la valeur correspondent (7 != "7").
type ProductID struct {
	value   string
	numeric bool
}

func IntID(n int64) ProductID {
	return ProductID{value: strconv.FormatInt(n, 10), numeric: true}
}

func StringID(s string) ProductID {
	return ProductID{value: s}
}

func (id ProductID) String() string { return id.value }

func (id ProductID) IsNumeric() bool { return id.numeric }

// IsZero indique si l'id compte comme absent : "" ou 0 numérique.
func (id ProductID) IsZero() bool {
	if !id.numeric {
		return id.value == ""
	}
	f, err := strconv.ParseFloat(id.value, 64)
	return err != nil || f == 0
}

func (id ProductID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.value), nil
	}
	return json.Marshal(id.value)
}

func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ProductID{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}

	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("product id: %w", err)
	}
	*id = ProductID{value: strconv.FormatFloat(f, 'f', -1, 64), numeric: true}
	return nil
}

// CartLine est une ligne du panier persisté.
type CartLine struct {
	ID         ProductID `json:"id"`
	Name       string    `json:"name"`
	Price      string    `json:"price"`
	Image      string    `json:"image"`
	Color      string    `json:"color"`
	Size       string    `json:"size"`
	Quantity   int       `json:"quantity"`
	CartLineID string    `json:"cartLineId"`

	// Champs inconnus (ex. un cartId fourni par la page), conservés tels quels
	// à la relecture.
	Extra map[string]json.RawMessage `json:"-"`
}

// SameSelection : même produit, même couleur, même taille.
func (l CartLine) SameSelection(p Product) bool {
	return l.ID == p.ID && l.Color == p.Color && l.Size == p.Size
}

var cartLineFields = []string{"id", "name", "price", "image", "color", "size", "quantity", "cartLineId"}

// Anciens paniers : l'identifiant de ligne s'appelait cartId.
const legacyLineIDField = "cartId"

type cartLineAlias CartLine

func (l CartLine) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(cartLineAlias(l))
	if err != nil {
		return nil, err
	}
	return appendExtra(data, l.Extra, cartLineFields)
}

func (l *CartLine) UnmarshalJSON(data []byte) error {
	var alias cartLineAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := splitExtra(data, cartLineFields)
	if err != nil {
		return err
	}
	alias.Extra = extra

	if alias.CartLineID == "" {
		if raw, ok := extra[legacyLineIDField]; ok {
			alias.CartLineID = rawString(raw)
		}
	}

	*l = CartLine(alias)
	return nil
}

// Product est un article candidat construit par la page avant l'ajout.
type Product struct {
	ID       ProductID `json:"id" validate:"required"`
	Name     string    `json:"name" validate:"required"`
	Price    string    `json:"price" validate:"required"`
	Image    string    `json:"image" validate:"required"`
	Color    string    `json:"color" validate:"required"`
	Size     string    `json:"size" validate:"required"`
	Quantity int       `json:"quantity" validate:"required,gte=1"`

	Extra map[string]json.RawMessage `json:"-"`
}

var productFields = []string{"id", "name", "price", "image", "color", "size", "quantity"}

type productAlias Product

func (p Product) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(productAlias(p))
	if err != nil {
		return nil, err
	}
	return appendExtra(data, p.Extra, productFields)
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var alias productAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	extra, err := splitExtra(data, productFields)
	if err != nil {
		return err
	}
	alias.Extra = extra
	*p = Product(alias)
	return nil
}

// NewLine crée la ligne de panier correspondant au produit.
func (p Product) NewLine(lineID string) CartLine {
	return CartLine{
		ID:         p.ID,
		Name:       p.Name,
		Price:      p.Price,
		Image:      p.Image,
		Color:      p.Color,
		Size:       p.Size,
		Quantity:   p.Quantity,
		CartLineID: lineID,
		Extra:      cloneExtra(p.Extra, cartLineFields),
	}
}

func splitExtra(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// appendExtra ajoute les champs inconnus après les champs connus (clés triées).
// Une clé de known n'est jamais réécrite : le champ typé fait foi.
func appendExtra(data []byte, extra map[string]json.RawMessage, known []string) ([]byte, error) {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !slices.Contains(known, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return data, nil
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(data[:len(data)-1])
	for _, k := range keys {
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// cloneExtra copie extra sans les clés réservées (ex. un cartLineId fourni
// par l'appelant ne remplace pas l'identifiant généré).
func cloneExtra(extra map[string]json.RawMessage, reserved []string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(extra))
	for k, v := range extra {
		if slices.Contains(reserved, k) {
			continue
		}
		out[k] = append(json.RawMessage(nil), v...)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(bytes.TrimSpace(raw))
}
