package customer

import "dddkit/domain/shared"

// Tier sets how many open orders a customer may hold
type Tier struct {
	shared.Enumeration
	openOrderLimit int
}

var (
	TierStandard = Tier{shared.NewEnumeration(1, "Standard"), 3}
	TierSilver   = Tier{shared.NewEnumeration(2, "Silver"), 5}
	TierGold     = Tier{shared.NewEnumeration(3, "Gold"), 10}
)

var _ = shared.RegisterEnumeration(TierStandard, TierSilver, TierGold)

func (t Tier) OpenOrderLimit() int { return t.openOrderLimit }

// Next returns the tier above t, or t itself at the top
func (t Tier) Next() Tier {
	next, err := shared.FromValue[Tier](t.ID() + 1)
	if err != nil {
		return t
	}
	return next
}
