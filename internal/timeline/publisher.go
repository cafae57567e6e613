package timeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Transport carries a serialised timeline to gateways. Satisfied by the
// MQTT client; publication is fire-and-forget, no gateway acknowledgement
// is awaited.
type Transport interface {
	Publish(topic string, payload []byte) error
}

// Publisher persists and distributes generated timelines, suppressing
// no-op updates by hash comparison.
type Publisher struct {
	repo      Repository
	transport Transport
	log       Logger
}

// NewPublisher builds a Publisher. transport and log may be nil; without a
// transport timelines are persisted only.
func NewPublisher(repo Repository, transport Transport, log Logger) *Publisher {
	if log == nil {
		log = noopLogger{}
	}
	return &Publisher{repo: repo, transport: transport, log: log}
}

// TopicFor returns the gateway topic for a studio's timeline.
func TopicFor(studioID string) string {
	return "onair/timeline/" + studioID
}

// Publish persists tl and pushes it to gateways. When the hash matches
// the stored timeline nothing is written or sent; gateways never see a
// regeneration that changed nothing.
func (p *Publisher) Publish(ctx context.Context, tl *Timeline) (published bool, err error) {
	existing, err := p.repo.Get(ctx, tl.StudioID)
	if err != nil && !errors.Is(err, ErrTimelineNotFound) {
		return false, fmt.Errorf("load existing timeline: %w", err)
	}
	if existing != nil && existing.Hash == tl.Hash {
		p.log.Debug("timeline unchanged, skipping publish",
			"studio_id", tl.StudioID, "hash", tl.Hash)
		return false, nil
	}

	if err := p.repo.Save(ctx, tl); err != nil {
		return false, err
	}

	if p.transport != nil {
		payload, err := json.Marshal(tl)
		if err != nil {
			return false, fmt.Errorf("encode timeline for publish: %w", err)
		}
		if err := p.transport.Publish(TopicFor(tl.StudioID), payload); err != nil {
			// Persisted state is the source of truth; a transient
			// broker failure is recoverable on the next regeneration.
			p.log.Warn("timeline publish failed",
				"studio_id", tl.StudioID, "error", err)
		}
	}

	p.log.Debug("timeline published",
		"studio_id", tl.StudioID, "generation", tl.Generation,
		"objects", len(tl.Objects), "hash", tl.Hash)
	return true, nil
}
