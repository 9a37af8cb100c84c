package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/krpetrov/svyaz/internal/data"
)

// presenceStore is the slice of the users store the tracker needs.
type presenceStore interface {
	SetPresence(ctx context.Context, id string, online bool, lastSeen time.Time) error
	PresenceSnapshot(ctx context.Context, ids []string) (map[string]data.PresenceStatus, error)
}

// PresenceTracker turns registry transitions into persisted presence records
// and broadcast events. Persistence is best-effort: a store failure is
// logged and never blocks the broadcast. The next reconnect self-heals the
// stored record.
type PresenceTracker struct {
	registry *ConnectionRegistry
	users    presenceStore
	logger   *zap.Logger
}

// NewPresenceTracker wires a tracker over the registry and users store.
func NewPresenceTracker(registry *ConnectionRegistry, users presenceStore, logger *zap.Logger) *PresenceTracker {
	return &PresenceTracker{registry: registry, users: users, logger: logger}
}

// MarkOnline persists online=true, broadcasts user_online to every other
// registered connection and sends the full online snapshot (including the
// new arrival itself) to the freshly registered connection only. The caller
// must have registered the connection before calling, so the snapshot
// already contains it.
func (p *PresenceTracker) MarkOnline(ctx context.Context, userID string) {
	if err := p.users.SetPresence(ctx, userID, true, time.Now()); err != nil {
		p.logger.Warn("presence persist failed", zap.String("user_id", userID), zap.Error(err))
	}

	snapshot := p.registry.Snapshot()
	online := make([]string, 0, len(snapshot))
	for id := range snapshot {
		online = append(online, id)
	}

	ev := userOnlineEvent(userID)
	for id, conn := range snapshot {
		if id == userID {
			continue
		}
		if err := conn.Send(ev); err != nil {
			// swallowed: a broken peer must not abort the presence update
			p.logger.Warn("presence broadcast failed", zap.String("to", id), zap.Error(err))
		}
	}

	if conn, ok := snapshot[userID]; ok {
		if err := conn.Send(onlineUsersListEvent(online)); err != nil {
			p.logger.Warn("online list send failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
}

// MarkOffline persists online=false/last_seen=now and broadcasts
// user_offline to all remaining connections.
func (p *PresenceTracker) MarkOffline(ctx context.Context, userID string) {
	if err := p.users.SetPresence(ctx, userID, false, time.Now()); err != nil {
		p.logger.Warn("presence persist failed", zap.String("user_id", userID), zap.Error(err))
	}

	ev := userOfflineEvent(userID)
	for id, conn := range p.registry.Snapshot() {
		if err := conn.Send(ev); err != nil {
			p.logger.Warn("presence broadcast failed", zap.String("to", id), zap.Error(err))
		}
	}
}

// SnapshotStatus batch-reads presence for a set of user ids, for populating
// search results and friend lists without per-row round trips.
func (p *PresenceTracker) SnapshotStatus(ctx context.Context, ids []string) (map[string]data.PresenceStatus, error) {
	return p.users.PresenceSnapshot(ctx, ids)
}
