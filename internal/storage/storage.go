// Package storage fournit l'emplacement clé/valeur où le panier est persisté,
// et la notification de changement que les autres onglets écoutent.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("storage: clé introuvable")
	ErrQuotaExceeded = errors.New("storage: quota dépassé")
)

//go:generate mockgen -source=storage.go -destination=../mock/storage/storage_mock.go -package=mock
type Backend interface {
	// Get renvoie ErrNotFound si la clé est absente.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type EventKind string

const (
	EventUpdated EventKind = "updated"
	EventCleared EventKind = "cleared"
)

// Event signale qu'un autre contexte a écrit ou supprimé la clé.
type Event struct {
	Key    string    `json:"key"`
	Kind   EventKind `json:"kind"`
	Origin string    `json:"origin"`
}

// Notifier est implémenté par les backends capables de prévenir les autres
// contextes d'une écriture. Les événements produits par le contexte abonné
// lui-même ne sont pas livrés. Le canal est fermé quand ctx est annulé.
type Notifier interface {
	Subscribe(ctx context.Context, key string) (<-chan Event, error)
}

const eventBuffer = 16
