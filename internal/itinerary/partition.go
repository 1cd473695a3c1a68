package itinerary

import (
	"slices"

	"github.com/mmynk/splitpass/internal/models"
)

// Bucket holds the participants sharing one itinerary.
type Bucket struct {
	Identity Identity
	Legs     []string

	// Participants in input order.
	Participants []*models.Participant

	// StewardCandidates is the steward-willing subset, in input order.
	StewardCandidates []*models.Participant
}

// Size returns the number of participants in the bucket.
func (b *Bucket) Size() int {
	return len(b.Participants)
}

func (b *Bucket) add(p *models.Participant) {
	b.Participants = append(b.Participants, p)
	if p.WillingSteward {
		b.StewardCandidates = append(b.StewardCandidates, p)
	}
}

// Partition splits participants into buckets by itinerary.
// Buckets are returned in the order their first participant appears.
// currentLeg is the fallback for participants with no resolved legs.
func Partition(participants []*models.Participant, currentLeg string) []*Bucket {
	var buckets []*Bucket
	byIdentity := make(map[Identity][]*Bucket)

	for _, p := range participants {
		legs := Resolve(p.Legs, currentLeg)
		id := Of(legs)

		// Identity equality is a hash match; confirm on the legs themselves.
		var bucket *Bucket
		for _, candidate := range byIdentity[id] {
			if slices.Equal(candidate.Legs, legs) {
				bucket = candidate
				break
			}
		}
		if bucket == nil {
			bucket = &Bucket{Identity: id, Legs: slices.Clone(legs)}
			byIdentity[id] = append(byIdentity[id], bucket)
			buckets = append(buckets, bucket)
		}
		bucket.add(p)
	}

	return buckets
}
