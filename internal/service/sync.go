package service

import (
	"context"
	"fmt"

	"portfolio-messageboard/backend/internal/models"
	"portfolio-messageboard/backend/internal/normalize"
	"portfolio-messageboard/backend/internal/repository"
	"portfolio-messageboard/backend/pkg/logger"
)

// SyncResult summarizes one copy between backends
type SyncResult struct {
	Copied  int
	Skipped int
}

// Syncer copies messages from one backend into another
type Syncer struct {
	log *logger.Logger
}

// NewSyncer creates a Syncer
func NewSyncer(log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &Syncer{log: log.WithComponent("sync")}
}

// Copy writes every message of from that keep accepts into to, oldest first.
// A message is skipped when to already holds one with the same id or the
// same author, email and content, so repeated runs do not duplicate entries
// on backends that assign their own ids.
func (s *Syncer) Copy(ctx context.Context, from, to repository.MessageRepository, keep func(models.Message) bool) (SyncResult, error) {
	var result SyncResult

	src, err := from.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("list %s: %w", from.Name(), err)
	}
	dst, err := to.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("list %s: %w", to.Name(), err)
	}

	seenIDs := make(map[string]struct{}, len(dst))
	seenBodies := make(map[models.Record]struct{}, len(dst))
	for _, m := range dst {
		seenIDs[m.ID] = struct{}{}
		seenBodies[fingerprint(m)] = struct{}{}
	}

	normalize.SortByRecency(src)
	for i := len(src) - 1; i >= 0; i-- {
		m := src[i]
		if keep != nil && !keep(m) {
			continue
		}
		if _, ok := seenIDs[m.ID]; ok {
			result.Skipped++
			continue
		}
		if _, ok := seenBodies[fingerprint(m)]; ok {
			result.Skipped++
			continue
		}

		created, err := to.Create(ctx, m)
		if err != nil {
			return result, fmt.Errorf("copy message %s into %s: %w", m.ID, to.Name(), err)
		}
		seenIDs[created.ID] = struct{}{}
		seenBodies[fingerprint(created)] = struct{}{}
		result.Copied++
	}

	s.log.Info("Sync finished",
		"from", from.Name(),
		"to", to.Name(),
		"copied", result.Copied,
		"skipped", result.Skipped,
	)
	return result, nil
}

// PublicOnly keeps public messages
func PublicOnly(m models.Message) bool {
	return m.IsPublic
}

func fingerprint(m models.Message) models.Record {
	r := m.Record()
	r.IsPublic = false
	return r
}
