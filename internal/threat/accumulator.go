package threat

// Observation is the tier one vessel received against one glider.
type Observation struct {
	MMSI   int64
	Glider string
	Tier   Tier
}

// Accumulator holds the worst tier each vessel reached during one run.
type Accumulator map[int64]Tier

// Observe raises the vessel's tier to t if t is higher.
func (a Accumulator) Observe(mmsi int64, t Tier) {
	if cur, ok := a[mmsi]; !ok || t > cur {
		a[mmsi] = t
	}
}

// Fold reduces observations to the maximum tier per vessel.
func Fold(obs []Observation) Accumulator {
	acc := make(Accumulator, len(obs))
	for _, o := range obs {
		acc.Observe(o.MMSI, o.Tier)
	}
	return acc
}
