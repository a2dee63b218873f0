package cart

import (
	"context"
	"fmt"

	"noirbleed_cart/internal/models"
	"noirbleed_cart/internal/storage"

	"go.uber.org/zap"
)

// Subscribe s'abonne aux écritures faites par d'autres contextes sur la clé
// du panier. À chaque événement le panier est relu depuis le stockage (jamais
// depuis une copie en mémoire) et envoyé sur le canal renvoyé, qui est fermé
// à l'annulation de ctx. Le canal garde au plus un instantané en attente.
//
// Pas de verrou ni de fusion : la dernière écriture gagne.
func (s *Store) Subscribe(ctx context.Context) (<-chan models.CartSummary, error) {
	n, ok := s.backend.(storage.Notifier)
	if !ok {
		return nil, ErrNotificationsUnsupported
	}

	events, err := n.Subscribe(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("abonnement à %s: %w", s.key, err)
	}

	out := make(chan models.CartSummary, 1)
	go func() {
		defer close(out)
		for ev := range events {
			s.logger.Debug("changement externe du panier",
				zap.String("kind", string(ev.Kind)),
				zap.String("origin", ev.Origin),
			)
			summary := s.Snapshot(ctx)
			// Seul le dernier état compte : un instantané non lu est remplacé.
			select {
			case <-out:
			default:
			}
			select {
			case out <- summary:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Watch appelle fn après chaque changement externe, jusqu'à l'annulation de
// ctx. Bloquant.
func (s *Store) Watch(ctx context.Context, fn func(models.CartSummary)) error {
	updates, err := s.Subscribe(ctx)
	if err != nil {
		return err
	}
	for summary := range updates {
		fn(summary)
	}
	return ctx.Err()
}
