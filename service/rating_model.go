package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/htc101524/BoardGameMondays-sub002/models"
)

// RatingModel contains the pure Elo update logic. It has no dependencies and
// no side effects: the same outcome and ratings always produce the same
// deltas, so a historical re-derivation reproduces the stored numbers.
type RatingModel struct {
	k int
}

// NewRatingModel creates a rating model with the given K-factor
func NewRatingModel(k int) *RatingModel {
	return &RatingModel{k: k}
}

// expectedScore is the logistic expectation of self beating opponent
func expectedScore(self, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-self)/400))
}

// UpdateRatings computes new ratings for every participant of an outcome.
// Two players update pairwise (0.5 each on an explicit draw). With more than
// two players the winner plays the field: the field counts as one opponent at
// the mean rating of the non-winners, and each non-winner updates against the
// winner's pre-update rating. Changes are returned ordered by member ID.
func (m *RatingModel) UpdateRatings(ratings map[int64]int, outcome *models.SessionOutcome) ([]models.RatingChange, error) {
	participants := append([]int64(nil), outcome.ParticipantIDs...)
	sort.Slice(participants, func(i, j int) bool { return participants[i] < participants[j] })

	if len(participants) < 2 {
		return nil, fmt.Errorf("rating update needs at least 2 participants, got %d", len(participants))
	}
	for _, id := range participants {
		if _, ok := ratings[id]; !ok {
			return nil, fmt.Errorf("missing rating for participant %d", id)
		}
	}

	if len(participants) == 2 {
		return m.updateHeadToHead(ratings, participants, outcome)
	}

	return m.updateWinnerVsField(ratings, participants, outcome)
}

func (m *RatingModel) updateHeadToHead(ratings map[int64]int, participants []int64, outcome *models.SessionOutcome) ([]models.RatingChange, error) {
	a, b := participants[0], participants[1]

	var scoreA float64
	switch {
	case outcome.IsDraw:
		scoreA = 0.5
	case outcome.HasIndividualWinner() && *outcome.WinnerMemberID == a:
		scoreA = 1
	case outcome.HasIndividualWinner() && *outcome.WinnerMemberID == b:
		scoreA = 0
	default:
		return nil, fmt.Errorf("outcome for session %d: %w", outcome.SessionID, models.ErrUnsupportedOutcome)
	}

	ratingA, ratingB := ratings[a], ratings[b]
	expectedA := expectedScore(ratingA, ratingB)

	deltaA := int(math.Round(float64(m.k) * (scoreA - expectedA)))

	return []models.RatingChange{
		{MemberID: a, OldRating: ratingA, NewRating: ratingA + deltaA},
		{MemberID: b, OldRating: ratingB, NewRating: ratingB - deltaA},
	}, nil
}

func (m *RatingModel) updateWinnerVsField(ratings map[int64]int, participants []int64, outcome *models.SessionOutcome) ([]models.RatingChange, error) {
	if !outcome.HasIndividualWinner() {
		return nil, fmt.Errorf("outcome for session %d: %w", outcome.SessionID, models.ErrUnsupportedOutcome)
	}
	winnerID := *outcome.WinnerMemberID

	winnerRating, ok := ratings[winnerID]
	if !ok {
		return nil, fmt.Errorf("winner %d is not a participant", winnerID)
	}

	fieldTotal := 0
	fieldSize := 0
	for _, id := range participants {
		if id != winnerID {
			fieldTotal += ratings[id]
			fieldSize++
		}
	}
	fieldMean := int(math.Round(float64(fieldTotal) / float64(fieldSize)))

	changes := make([]models.RatingChange, 0, len(participants))
	for _, id := range participants {
		old := ratings[id]
		var delta int
		if id == winnerID {
			delta = int(math.Round(float64(m.k) * (1 - expectedScore(winnerRating, fieldMean))))
		} else {
			delta = int(math.Round(float64(m.k) * (0 - expectedScore(old, winnerRating))))
		}
		changes = append(changes, models.RatingChange{
			MemberID:  id,
			OldRating: old,
			NewRating: old + delta,
		})
	}

	return changes, nil
}
