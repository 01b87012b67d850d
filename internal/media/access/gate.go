// Package access decides whether a viewer may see a piece of content
// before the reference is handed to the resolver or a player.
package access

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/romariotrain/media-pipeline/internal/media/models"
	"github.com/romariotrain/media-pipeline/internal/platform/metrics"
)

// RelationshipChecker answers "does a (viewer, owner, tier) relationship
// row exist". Absence of the row is not an error.
type RelationshipChecker interface {
	Exists(ctx context.Context, viewer, owner uuid.UUID, tier string) (bool, error)
}

// Content carries the fields of a reference the gate needs.
type Content struct {
	OwnerID uuid.UUID
	Level   models.AccessLevel
}

// Viewer identifies who is asking. A Nil ID is an anonymous viewer.
type Viewer struct {
	ID uuid.UUID
}

type Gate struct {
	rel     RelationshipChecker
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func New(rel RelationshipChecker, log zerolog.Logger) *Gate {
	return &Gate{
		rel: rel,
		log: log.With().Str("component", "access_gate").Logger(),
	}
}

// WithMetrics enables counting of negative decisions by reason.
func (g *Gate) WithMetrics(m *metrics.Metrics) *Gate {
	g.metrics = m
	return g
}

// relationship tier names as stored by the relationship collaborator.
const (
	tierFollow       = "follow"
	tierSubscription = "subscription"
	tierPurchase     = "purchase"
)

// Check computes one AccessDecision per (content, viewer) pair. Decisions
// are never cached here. Public content and owners short-circuit with zero
// relationship queries; tiered levels issue exactly one existence query. A
// genuine query error denies with ReasonCheckFailed so the caller can offer
// "try again" instead of "upgrade to unlock".
func (g *Gate) Check(ctx context.Context, content Content, viewer Viewer) models.AccessDecision {
	if content.Level == "" || content.Level == models.AccessPublic {
		return models.AccessDecision{CanAccess: true}
	}
	if viewer.ID != uuid.Nil && viewer.ID == content.OwnerID {
		return models.AccessDecision{CanAccess: true}
	}
	if content.Level == models.AccessPrivate {
		return g.deny(models.ReasonPrivate, false)
	}

	tier, ok := tierFor(content.Level)
	if !ok {
		g.log.Warn().Str("level", string(content.Level)).Msg("unknown access level")
		return g.deny(models.ReasonNotEntitled, false)
	}
	if viewer.ID == uuid.Nil {
		// Anonymous viewers cannot hold a relationship row.
		return g.deny(models.ReasonNotEntitled, false)
	}

	exists, err := g.rel.Exists(ctx, viewer.ID, content.OwnerID, tier)
	if err != nil {
		g.log.Error().Err(err).
			Str("tier", tier).
			Stringer("viewer", viewer.ID).
			Stringer("owner", content.OwnerID).
			Msg("relationship check failed")
		return g.deny(models.ReasonCheckFailed, true)
	}
	if !exists {
		return g.deny(models.ReasonNotEntitled, false)
	}
	return models.AccessDecision{CanAccess: true}
}

func (g *Gate) deny(reason string, errored bool) models.AccessDecision {
	g.metrics.IncAccessDenied(reason)
	return models.AccessDecision{CanAccess: false, Reason: reason, Errored: errored}
}

func tierFor(level models.AccessLevel) (string, bool) {
	switch level {
	case models.AccessFollowers:
		return tierFollow, true
	case models.AccessSubscribers:
		return tierSubscription, true
	case models.AccessPayPerView:
		return tierPurchase, true
	default:
		return "", false
	}
}
