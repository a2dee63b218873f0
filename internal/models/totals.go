package models

// FreeShipping remplace le montant de livraison quand elle est offerte.
const FreeShipping = "FREE"

// Totals : montants en devise de destination, deux décimales.
type Totals struct {
	Subtotal string `json:"subtotal"`
	Shipping string `json:"shipping"`
	Tax      string `json:"tax"`
	Total    string `json:"total"`
}

// CartSummary regroupe ce que le badge et la page panier affichent.
type CartSummary struct {
	Items  []CartLine `json:"items"`
	Count  int        `json:"count"`
	Totals Totals     `json:"totals"`
}
