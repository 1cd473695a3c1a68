package service

import (
	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/models"
	"github.com/mmynk/splitpass/pkg/api"
)

func toAPITrip(t *models.Trip) api.Trip {
	return api.Trip{
		ID:          t.ID,
		LegID:       t.LegID,
		Name:        t.Name,
		ServiceDate: t.ServiceDate,
		DepartsAt:   t.DepartsAt,
		CreatedAt:   t.CreatedAt,
	}
}

func toAPIParticipant(p *models.Participant) api.Participant {
	return api.Participant{
		ID:             p.ID,
		RiderID:        p.RiderID,
		Legs:           p.Legs,
		WillingSteward: p.WillingSteward,
		CheckedIn:      p.CheckedIn,
		GroupID:        p.GroupID,
	}
}

// toAPIGroups resolves member rider IDs through byID and splits
// priceCents across each group. A zero price leaves shares at zero.
func toAPIGroups(groups []*models.Group, byID map[string]*models.Participant, priceCents int64) []api.Group {
	out := make([]api.Group, 0, len(groups))
	for _, g := range groups {
		var shares []int64
		if priceCents > 0 && len(g.Members) > 0 {
			// Limits guarantee a positive headcount and the price is
			// validated at startup, so this cannot fail.
			shares, _ = calculator.ShareCents(priceCents, len(g.Members))
		}

		members := make([]api.Member, len(g.Members))
		for i, id := range g.Members {
			members[i] = api.Member{ParticipantID: id, Steward: id == g.StewardID}
			if p, ok := byID[id]; ok {
				members[i].RiderID = p.RiderID
			}
			if shares != nil {
				members[i].ShareCents = shares[i]
			}
		}

		out = append(out, api.Group{
			ID:        g.ID,
			Number:    g.Number,
			StewardID: g.StewardID,
			Status:    string(g.Status),
			Members:   members,
			CreatedAt: g.CreatedAt,
		})
	}
	return out
}

func toAPIFailures(failures map[models.FailureReason]int) map[string]int {
	if len(failures) == 0 {
		return nil
	}
	out := make(map[string]int, len(failures))
	for reason, n := range failures {
		out[string(reason)] = n
	}
	return out
}

func toAPITripResult(r models.TripResult) api.TripResult {
	return api.TripResult{
		TripID:    r.TripID,
		Groups:    r.Groups,
		Grouped:   r.Grouped,
		Ungrouped: r.Ungrouped,
		Failures:  toAPIFailures(r.Failures),
		Error:     r.Error,
	}
}

func toAPIRunResult(r *models.RunResult) api.RunResult {
	trips := make([]api.TripResult, len(r.Trips))
	for i, t := range r.Trips {
		trips[i] = toAPITripResult(t)
	}
	return api.RunResult{
		ID:             r.ID,
		Mode:           string(r.Mode),
		StartedAt:      r.StartedAt.Unix(),
		FinishedAt:     r.FinishedAt.Unix(),
		Skipped:        r.Skipped,
		SkipReason:     r.SkipReason,
		TotalGroups:    r.TotalGroups,
		TotalGrouped:   r.TotalGrouped,
		TotalUngrouped: r.TotalUngrouped,
		Failures:       toAPIFailures(r.Failures),
		Trips:          trips,
	}
}
