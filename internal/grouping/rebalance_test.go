package grouping

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitpass/internal/calculator"
	"github.com/mmynk/splitpass/internal/models"
)

func roster(n, stewards int) []*models.Participant {
	out := make([]*models.Participant, n)
	for i := range out {
		out[i] = &models.Participant{
			ID:             fmt.Sprintf("p%02d", i),
			Legs:           []string{"L1"},
			WillingSteward: i < stewards,
			JoinedAt:       int64(i),
		}
	}
	return out
}

func member(id string, steward bool) *models.Participant {
	return &models.Participant{ID: id, Legs: []string{"L1"}, WillingSteward: steward}
}

func stewardMap(groups []*models.Group) map[string]int {
	m := make(map[string]int, len(groups))
	for _, g := range groups {
		m[g.StewardID] = g.Number
	}
	return m
}

func memberSets(groups []*models.Group) map[int]string {
	m := make(map[int]string, len(groups))
	for _, g := range groups {
		m[g.Number] = fmt.Sprint(g.Members)
	}
	return m
}

func TestRebalancerPlan(t *testing.T) {
	r := NewRebalancer(calculator.DefaultLimits)

	t.Run("fresh roster numbers groups from one", func(t *testing.T) {
		p := r.Plan("trip", "L1", roster(13, 3), nil)
		require.Len(t, p.Groups, 3)
		for i, g := range p.Groups {
			require.Equal(t, i+1, g.Number)
			require.True(t, g.HasMember(g.StewardID))
		}
		require.Equal(t, 13, p.Result.Grouped)
		require.Zero(t, p.Result.Ungrouped)
	})

	t.Run("previous steward keeps its number", func(t *testing.T) {
		previous := map[string]int{"p01": 1, "p00": 2}
		p := r.Plan("trip", "L1", roster(6, 2), previous)
		require.Equal(t, previous, stewardMap(p.Groups))
	})

	t.Run("idempotent on an unchanged roster", func(t *testing.T) {
		members := roster(11, 4)
		first := r.Plan("trip", "L1", members, nil)
		second := r.Plan("trip", "L1", members, stewardMap(first.Groups))
		require.Equal(t, stewardMap(first.Groups), stewardMap(second.Groups))
		require.Equal(t, memberSets(first.Groups), memberSets(second.Groups))
	})

	t.Run("departed steward's number is not reused by survivors", func(t *testing.T) {
		// p01 stewarded group 2 and is gone; p00 and p02 keep 1 and 3.
		members := roster(9, 3)
		members = append(members[:1], members[2:]...)
		previous := map[string]int{"p00": 1, "p01": 2, "p02": 3}
		p := r.Plan("trip", "L1", members, previous)
		require.Equal(t, map[string]int{"p00": 1, "p02": 3}, stewardMap(p.Groups))
	})

	t.Run("new group after a gap does not outrank a senior steward", func(t *testing.T) {
		// Group 2 is gone. The steward promoted for the joiner must be
		// numbered after 3, or c loses group 3 once the joiner leaves.
		members := []*models.Participant{
			member("a", true), member("b", false), member("c", true), member("d", true), member("e", false),
		}
		before := r.Plan("trip", "L1", members, map[string]int{"a": 1, "c": 3})
		require.Equal(t, map[string]int{"a": 1, "c": 3}, stewardMap(before.Groups))

		mid := r.Plan("trip", "L1", append(members, member("z", false)), stewardMap(before.Groups))
		require.Equal(t, map[string]int{"a": 1, "c": 3, "d": 4}, stewardMap(mid.Groups))

		after := r.Plan("trip", "L1", members, stewardMap(mid.Groups))
		require.Equal(t, stewardMap(before.Groups), stewardMap(after.Groups))
		require.Equal(t, memberSets(before.Groups), memberSets(after.Groups))
	})

	t.Run("failure leaves everyone ungrouped", func(t *testing.T) {
		p := r.Plan("trip", "L1", roster(3, 0), nil)
		require.Empty(t, p.Groups)
		require.Equal(t, 3, p.Result.Ungrouped)
		require.Equal(t, 1, p.Result.Failures[models.FailureNoSteward])
	})

	t.Run("mixed itineraries never share a group", func(t *testing.T) {
		members := roster(6, 2)
		members[1].Legs = []string{"L2"}
		members[4].Legs = []string{"L2"}
		p := r.Plan("trip", "L1", members, nil)
		require.Len(t, p.Groups, 2)
		legsOf := map[string]string{}
		for _, m := range members {
			legsOf[m.ID] = fmt.Sprint(m.Legs)
		}
		for _, g := range p.Groups {
			for _, id := range g.Members {
				require.Equal(t, legsOf[g.Members[0]], legsOf[id])
			}
		}
	})
}

func TestFailureReason(t *testing.T) {
	require.Equal(t, models.FailureTooSmall, FailureReason(fmt.Errorf("x: %w", calculator.ErrTooSmall)))
	require.Equal(t, models.FailureNoSteward, FailureReason(calculator.ErrNoSteward))
	require.Equal(t, models.FailureInfeasible, FailureReason(calculator.ErrInfeasible))
	require.Equal(t, models.FailureOverflow, FailureReason(calculator.ErrOverflow))
	require.Equal(t, models.FailurePersistence, FailureReason(ErrPersistence))
}

func TestRebalancerJoinLeaveRoundTrip(t *testing.T) {
	r := NewRebalancer(calculator.DefaultLimits)

	for n := 4; n <= 14; n++ {
		for stewards := 1; stewards <= n; stewards++ {
			for _, willing := range []bool{false, true} {
				// Drop the steward of group 1 so numbering starts with a gap.
				members := roster(n, stewards)
				first := r.Plan("trip", "L1", members, nil)
				if len(first.Groups) == 0 {
					continue
				}
				gone := first.Groups[0].StewardID
				var rest []*models.Participant
				for _, m := range members {
					if m.ID != gone {
						rest = append(rest, m)
					}
				}
				gapped := r.Plan("trip", "L1", rest, stewardMap(first.Groups))
				if len(gapped.Groups) == 0 {
					continue
				}

				joiner := member("z", willing)
				mid := r.Plan("trip", "L1", append(rest, joiner), stewardMap(gapped.Groups))
				if len(mid.Groups) == 0 {
					// The join made the bucket infeasible and cleared it.
					continue
				}
				after := r.Plan("trip", "L1", rest, stewardMap(mid.Groups))

				name := fmt.Sprintf("n=%d stewards=%d willing=%v", n, stewards, willing)
				require.Equal(t, stewardMap(gapped.Groups), stewardMap(after.Groups), name)
				require.Equal(t, memberSets(gapped.Groups), memberSets(after.Groups), name)
			}
		}
	}
}
