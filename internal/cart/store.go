// Package cart gère le panier persisté : lecture tolérante, ajout avec
// fusion, mise à jour, suppression et calcul des totaux.
package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"noirbleed_cart/internal/models"
	"noirbleed_cart/internal/storage"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultKey est la clé du panier dans le stockage.
const DefaultKey = "noirBleedCart"

type Store struct {
	backend  storage.Backend
	key      string
	rate     decimal.Decimal
	logger   *zap.Logger
	newID    func() string
	validate *validator.Validate
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithRate(rate decimal.Decimal) Option {
	return func(s *Store) { s.rate = rate }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l.Named("cart.store") }
}

// WithIDGenerator remplace le générateur d'identifiants de ligne.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

func NewStore(backend storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		key:      DefaultKey,
		rate:     DefaultRate,
		logger:   zap.NewNop(),
		newID:    uuid.NewString,
		validate: defaultValidator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string { return s.key }

func (s *Store) Rate() decimal.Decimal { return s.rate }

// GetCart ne renvoie jamais d'erreur : clé absente, JSON invalide ou valeur
// qui n'est pas un tableau donnent un panier vide.
func (s *Store) GetCart(ctx context.Context) []models.CartLine {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("aucun panier en stockage, panier vide")
		return []models.CartLine{}
	}
	if err != nil {
		s.logger.Error("lecture du panier impossible", zap.String("key", s.key), zap.Error(err))
		return []models.CartLine{}
	}

	lines, err := decodeLines(data)
	if err != nil {
		s.logger.Warn("panier illisible, panier vide", zap.String("key", s.key), zap.Error(err))
		return []models.CartLine{}
	}
	s.logger.Debug("panier lu", zap.Int("lines", len(lines)))
	return lines
}

var errNotArray = errors.New("le panier stocké n'est pas un tableau")

func decodeLines(data string) ([]models.CartLine, error) {
	raw := bytes.TrimSpace([]byte(data))
	if len(raw) == 0 {
		return []models.CartLine{}, nil
	}
	if raw[0] != '[' {
		if !json.Valid(raw) {
			return nil, errors.New("JSON invalide")
		}
		return nil, errNotArray
	}

	var lines []models.CartLine
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []models.CartLine{}
	}
	return lines, nil
}

// SaveCart écrase le panier stocké. Un slice nil est refusé. Toute erreur
// est journalisée et se traduit par false.
func (s *Store) SaveCart(ctx context.Context, lines []models.CartLine) bool {
	if lines == nil {
		s.logger.Error("sauvegarde refusée : le panier doit être un tableau")
		return false
	}

	data, err := json.Marshal(lines)
	if err != nil {
		s.logger.Error("encodage du panier impossible", zap.Error(err))
		return false
	}

	if err := s.backend.Set(ctx, s.key, string(data)); err != nil {
		s.logger.Error("sauvegarde du panier impossible",
			zap.String("key", s.key),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		return false
	}
	s.logger.Debug("panier sauvegardé", zap.Int("lines", len(lines)))
	return true
}

// AddToCart fusionne avec la ligne de même (id, couleur, taille) ou ajoute
// une nouvelle ligne. Le produit n'est pas validé ici, voir AddValidated.
func (s *Store) AddToCart(ctx context.Context, p models.Product) []models.CartLine {
	lines := s.GetCart(ctx)

	found := false
	for i := range lines {
		if lines[i].SameSelection(p) {
			lines[i].Quantity += p.Quantity
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, p.NewLine(s.uniqueLineID(lines)))
	}

	s.SaveCart(ctx, lines)
	return lines
}

// AddValidated valide le produit avant de l'ajouter.
func (s *Store) AddValidated(ctx context.Context, p models.Product) ([]models.CartLine, error) {
	if err := validateProduct(s.validate, p); err != nil {
		s.logger.Info("produit refusé", zap.String("id", p.ID.String()), zap.Error(err))
		return nil, err
	}
	return s.AddToCart(ctx, p), nil
}

func (s *Store) uniqueLineID(lines []models.CartLine) string {
	for {
		id := s.newID()
		taken := false
		for _, l := range lines {
			if l.CartLineID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

// RemoveFromCart : un identifiant inconnu n'est pas une erreur.
func (s *Store) RemoveFromCart(ctx context.Context, cartLineID string) []models.CartLine {
	lines := s.GetCart(ctx)

	kept := make([]models.CartLine, 0, len(lines))
	for _, l := range lines {
		if l.CartLineID != cartLineID {
			kept = append(kept, l)
		}
	}

	s.SaveCart(ctx, kept)
	return kept
}

// UpdateQuantity : une quantité < 1 supprime la ligne.
func (s *Store) UpdateQuantity(ctx context.Context, cartLineID string, quantity int) []models.CartLine {
	if quantity < 1 {
		return s.RemoveFromCart(ctx, cartLineID)
	}

	lines := s.GetCart(ctx)
	for i := range lines {
		if lines[i].CartLineID == cartLineID {
			lines[i].Quantity = quantity
		}
	}

	s.SaveCart(ctx, lines)
	return lines
}

// ClearCart supprime la clé elle-même.
func (s *Store) ClearCart(ctx context.Context) {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.logger.Error("vidage du panier impossible", zap.String("key", s.key), zap.Error(err))
		return
	}
	s.logger.Debug("panier vidé")
}

// Persisted renvoie la valeur brute stockée, pour le diagnostic. false si la
// clé est absente ou illisible.
func (s *Store) Persisted(ctx context.Context) (string, bool) {
	data, err := s.backend.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("lecture du panier impossible", zap.String("key", s.key), zap.Error(err))
		}
		return "", false
	}
	return data, true
}

func (s *Store) GetCartItemCount(ctx context.Context) int {
	return countItems(s.GetCart(ctx))
}

func countItems(lines []models.CartLine) int {
	n := 0
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// CalculateTotals utilise le taux du store.
func (s *Store) CalculateTotals(lines []models.CartLine) models.Totals {
	return CalculateTotals(lines, s.rate)
}

func (s *Store) Convert(price string) decimal.Decimal {
	return ConvertPrice(price, s.rate)
}

// Snapshot lit le panier une seule fois et en dérive compte et totaux.
func (s *Store) Snapshot(ctx context.Context) models.CartSummary {
	return s.summarize(s.GetCart(ctx))
}

func (s *Store) summarize(lines []models.CartLine) models.CartSummary {
	return models.CartSummary{
		Items:  lines,
		Count:  countItems(lines),
		Totals: s.CalculateTotals(lines),
	}
}
