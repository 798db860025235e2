package service

import (
	"context"

	"fanarena/internal/domain"
	"fanarena/internal/store"
	"fanarena/pkg/logger"
)

// Notifier fans a message out to every tournament participant. Delivery is
// fire-and-forget: implementations log failures and never propagate them
// into the calling operation.
type Notifier interface {
	NotifyParticipants(ctx context.Context, t *domain.Tournament, kind, message string)
}

// CreditAwarder records a tournament win for a user. It operates inside the
// store's mutation boundary and must be idempotent per (user, tournament):
// re-awarding the same pair changes nothing.
type CreditAwarder interface {
	AwardWinnerCredit(state *store.State, userID string, t *domain.Tournament)
}

// UserResolver is the read-only lookup into the user collaborator, used to
// snapshot usernames, points, and characters into tournament and fight
// records.
type UserResolver interface {
	Resolve(ctx context.Context, userID string) (*domain.ResolvedUser, error)
}

// LogNotifier is the default Notifier. Push delivery lives in an external
// system; this implementation records the fan-out so operators can trace it.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a notifier that only logs
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// NotifyParticipants implements Notifier
func (n *LogNotifier) NotifyParticipants(ctx context.Context, t *domain.Tournament, kind, message string) {
	n.log.WithFields(map[string]interface{}{
		"tournament_id": t.ID,
		"kind":          kind,
		"participants":  len(t.Participants),
	}).Info("Participant notification: " + message)
}

// StoreCreditAwarder keeps winner credits inside the shared document, which
// is what makes the award idempotent across the HTTP path and the sweeps.
type StoreCreditAwarder struct{}

// NewStoreCreditAwarder creates the default awarder
func NewStoreCreditAwarder() *StoreCreditAwarder {
	return &StoreCreditAwarder{}
}

// AwardWinnerCredit implements CreditAwarder
func (a *StoreCreditAwarder) AwardWinnerCredit(state *store.State, userID string, t *domain.Tournament) {
	key := userID + ":" + t.ID
	if _, awarded := state.Credits[key]; awarded {
		return
	}
	state.Credits[key] = &domain.WinnerCredit{
		UserID:       userID,
		TournamentID: t.ID,
		Badge:        "tournament_winner",
	}
	state.WinCounts[userID]++
}

// StaticResolver is a map-backed UserResolver for tests and local runs.
// Unknown users resolve to a minimal profile rather than an error, mirroring
// how the platform tolerates deleted accounts in historical records.
type StaticResolver struct {
	users map[string]domain.ResolvedUser
}

// NewStaticResolver creates a resolver over a fixed user set
func NewStaticResolver(users []domain.ResolvedUser) *StaticResolver {
	index := make(map[string]domain.ResolvedUser, len(users))
	for _, u := range users {
		index[u.ID] = u
	}
	return &StaticResolver{users: index}
}

// Resolve implements UserResolver
func (r *StaticResolver) Resolve(ctx context.Context, userID string) (*domain.ResolvedUser, error) {
	if u, ok := r.users[userID]; ok {
		resolved := u
		return &resolved, nil
	}
	return &domain.ResolvedUser{ID: userID, Username: "user-" + userID}, nil
}
