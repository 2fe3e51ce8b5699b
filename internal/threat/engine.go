package threat

import (
	"fmt"
	"strconv"

	"github.com/eervaisa/FMI-Gliders/internal/ais"
	"github.com/eervaisa/FMI-Gliders/internal/geo"
	"github.com/eervaisa/FMI-Gliders/internal/gliders"
	"github.com/eervaisa/FMI-Gliders/internal/monitoring"
	"github.com/eervaisa/FMI-Gliders/internal/predict"
	"github.com/eervaisa/FMI-Gliders/internal/regions"
)

// DefaultAllowList holds the research and support vessels that always
// classify as TierAllowListed.
var DefaultAllowList = []int64{
	230145000, // Aranda
	230149210, // Augusta
}

// Engine runs one classification pass over a vessel and glider snapshot.
// It holds no per-run state and may be shared between goroutines.
type Engine struct {
	Regions   *regions.Classifier
	Predictor *predict.Predictor
	Cascade   *Cascade
	AllowList map[int64]bool
}

// EngineOptions configures NewEngine. Zero values select the defaults.
type EngineOptions struct {
	Regions     *regions.Classifier
	Predictor   *predict.Predictor
	Corridors   []Corridor
	ProximityKm float64
	AllowList   []int64
}

// NewEngine returns an engine over the Baltic regions unless opts say otherwise.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Regions == nil {
		opts.Regions = regions.NewBalticClassifier()
	}
	if opts.Predictor == nil {
		opts.Predictor = predict.NewPredictor()
	}
	if opts.Corridors == nil {
		opts.Corridors = BalticCorridors
	}
	if opts.ProximityKm <= 0 {
		opts.ProximityKm = DefaultProximityKm
	}
	if opts.AllowList == nil {
		opts.AllowList = DefaultAllowList
	}

	allow := make(map[int64]bool, len(opts.AllowList))
	for _, mmsi := range opts.AllowList {
		allow[mmsi] = true
	}
	return &Engine{
		Regions:   opts.Regions,
		Predictor: opts.Predictor,
		Cascade: NewCascade(CascadeOptions{
			Corridors:   opts.Corridors,
			ProximityKm: opts.ProximityKm,
			AllowList:   opts.AllowList,
		}),
		AllowList: allow,
	}
}

// ClassifiedVessel is an input vessel with its prediction and worst tier.
type ClassifiedVessel struct {
	ais.Vessel
	Prediction         predict.Prediction `json:"prediction"`
	DestinationRegions []string           `json:"destination_regions,omitempty"`
	MaxTier            Tier               `json:"max_tier"`
	Colour             string             `json:"max_class_colour"`
}

// Rejection is an input record excluded from classification.
type Rejection struct {
	Kind   string `json:"kind"` // "vessel" or "glider"
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

func (r Rejection) Error() string {
	return fmt.Sprintf("%s %s rejected: %v", r.Kind, r.ID, r.Err)
}

func (r Rejection) Unwrap() error { return r.Err }

// Result is the output of one run.
type Result struct {
	Vessels      []ClassifiedVessel `json:"vessels"`
	Gliders      []gliders.Glider   `json:"gliders"`
	Records      []Record           `json:"records"`
	Observations []Observation      `json:"-"`
	Rejected     []Rejection        `json:"rejected,omitempty"`
}

// TierCounts returns how many vessels ended the run at each tier.
func (r *Result) TierCounts() map[Tier]int {
	out := make(map[Tier]int)
	for _, v := range r.Vessels {
		out[v.MaxTier]++
	}
	return out
}

// Run classifies every valid vessel against every valid glider. Records are
// emitted per glider, in glider order then vessel order, for each pair whose
// tier is actionable.
func (e *Engine) Run(vessels []ais.Vessel, gs []gliders.Glider) *Result {
	res := &Result{}

	var validGliders []gliders.Glider
	for _, g := range gs {
		prepared, err := e.prepareGlider(g)
		if err != nil {
			res.reject("glider", g.Name, err)
			continue
		}
		validGliders = append(validGliders, prepared)
	}
	res.Gliders = validGliders

	type prepared struct {
		vessel ais.Vessel
		region string
		dests  []string
		pred   predict.Prediction
	}
	var valid []prepared
	for _, v := range vessels {
		if err := v.Validate(); err != nil {
			res.reject("vessel", strconv.FormatInt(v.MMSI, 10), err)
			continue
		}
		region := v.Region
		if region == "" {
			r, err := e.Regions.Classify(v.Position)
			if err != nil {
				res.reject("vessel", strconv.FormatInt(v.MMSI, 10), err)
				continue
			}
			region = r
		}
		valid = append(valid, prepared{
			vessel: v,
			region: region,
			dests:  v.DestinationRegions(),
			pred:   e.Predictor.Predict(v.Position, v.SOG, v.COG, v.ROT),
		})
	}

	for _, g := range validGliders {
		for _, pv := range valid {
			p := &Pair{
				Vessel:             pv.vessel,
				VesselRegion:       pv.region,
				DestinationRegions: pv.dests,
				Prediction:         pv.pred,
				Glider:             g,
				DistanceKm:         geo.DistanceKm(pv.vessel.Position, g.Position),
			}
			tier, _ := e.Cascade.Classify(p)
			res.Observations = append(res.Observations, Observation{MMSI: pv.vessel.MMSI, Glider: g.Name, Tier: tier})
			if tier.Actionable() {
				res.Records = append(res.Records, newRecord(p, tier))
			}
		}
	}

	acc := Fold(res.Observations)
	for _, pv := range valid {
		worst, seen := acc[pv.vessel.MMSI]
		if !seen && e.AllowList[pv.vessel.MMSI] {
			// No gliders to compare against; support vessels are still marked.
			worst = TierAllowListed
		}
		v := pv.vessel
		v.Region = pv.region
		res.Vessels = append(res.Vessels, ClassifiedVessel{
			Vessel:             v,
			Prediction:         pv.pred,
			DestinationRegions: pv.dests,
			MaxTier:            worst,
			Colour:             worst.Colour(),
		})
	}
	return res
}

// prepareGlider validates g and fills in its route and route regions.
func (e *Engine) prepareGlider(g gliders.Glider) (gliders.Glider, error) {
	if err := g.Validate(); err != nil {
		return g, err
	}
	if len(g.Route) == 0 {
		g.Route = []geo.Point{g.Position}
	}
	if len(g.RouteRegions) == 0 {
		rs, err := e.Regions.ClassifyAll(g.Route)
		if err != nil {
			return g, fmt.Errorf("glider %s: %w", g.Name, err)
		}
		g.RouteRegions = rs
	}
	return g, nil
}

func (r *Result) reject(kind, id string, err error) {
	monitoring.Logf("Threat engine: rejected %s %s: %v", kind, id, err)
	r.Rejected = append(r.Rejected, Rejection{Kind: kind, ID: id, Reason: err.Error(), Err: err})
}
