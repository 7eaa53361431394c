package service

import (
	"context"
	"errors"

	"github.com/dom/gauntlet/internal/domain"
	"github.com/dom/gauntlet/internal/ranking"
)

// Advancement reports where a finished round's players were sent. Player ids
// list the tourney players actually registered; duplicates are left out.
type Advancement struct {
	NextRoundID       *uint  `json:"next_round_id,omitempty"`
	Advanced          []uint `json:"advanced"`
	RedemptionRoundID *uint  `json:"redemption_round_id,omitempty"`
	Redeemed          []uint `json:"redeemed"`
}

// fanOut registers the top players of a ranked round into its successor and,
// for a top-level round, the rest into its first redemption round. A
// redemption round never feeds a further redemption round.
func (s *ProgressionService) fanOut(ctx context.Context, round *domain.Round, entries []*domain.PlayerRound, result ranking.Result) (*Advancement, error) {
	playerOf := make(map[uint]uint, len(entries))
	for _, e := range entries {
		playerOf[e.ID] = e.PlayerID
	}
	players := func(entryIDs []uint) []uint {
		out := make([]uint, 0, len(entryIDs))
		for _, id := range entryIDs {
			out = append(out, playerOf[id])
		}
		return out
	}

	advancing, remaining := result.Advancing(round.PlayersAdvancing)
	adv := &Advancement{Advanced: []uint{}, Redeemed: []uint{}}

	if round.NextRoundID != nil {
		registered, err := s.registerAll(ctx, *round.NextRoundID, players(advancing))
		if err != nil {
			return nil, err
		}
		adv.NextRoundID = round.NextRoundID
		adv.Advanced = registered
	}

	if round.IsRedemption() || len(remaining) == 0 {
		return adv, nil
	}
	redemption, err := s.roundRepo.GetRedemption(ctx, round.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return adv, nil
	}
	if err != nil {
		return nil, err
	}
	registered, err := s.registerAll(ctx, redemption.ID, players(remaining))
	if err != nil {
		return nil, err
	}
	adv.RedemptionRoundID = &redemption.ID
	adv.Redeemed = registered
	return adv, nil
}

// registerAll enters players into a round one by one. A player who already
// has an entry there is skipped, so repeating a registration is harmless.
func (s *ProgressionService) registerAll(ctx context.Context, roundID uint, playerIDs []uint) ([]uint, error) {
	registered := make([]uint, 0, len(playerIDs))
	for _, playerID := range playerIDs {
		entry := &domain.PlayerRound{RoundID: roundID, PlayerID: playerID}
		err := s.playerRoundRepo.Create(ctx, entry)
		if errors.Is(err, domain.ErrDuplicateRegistration) {
			s.logger.Debug("player already registered", "round_id", roundID, "player_id", playerID)
			continue
		}
		if err != nil {
			return nil, err
		}
		registered = append(registered, playerID)
	}
	return registered, nil
}
