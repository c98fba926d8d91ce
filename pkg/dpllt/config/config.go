// Package config loads and validates the solver's Options record (spec
// §6's "Configuration"), YAML-loadable via gopkg.in/yaml.v3 the way both
// theRebelliousNerd-codenerd and ehrlich-b-wingthing load their own
// config trees, in addition to being constructible programmatically for
// callers that never touch a file.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"dpllt/pkg/dpllt/weight"
)

// Polarity is the initial phase policy for undecided atoms.
type Polarity string

const (
	PolarityTrue   Polarity = "TRUE"
	PolarityFalse  Polarity = "FALSE"
	PolarityStored Polarity = "STORED"
	PolarityRand   Polarity = "RAND"
)

// DefSemantics selects the model class the definition engine computes.
type DefSemantics string

const (
	DefStable      DefSemantics = "STABLE"
	DefWellFounded DefSemantics = "WELL_FOUNDED"
	DefCompletion  DefSemantics = "COMPLETION"
)

// UFSStrategy selects the unfounded-set search order. Spec §6 names only
// one recognized value; kept as an enum so a future strategy slots in
// without an Options field rename.
type UFSStrategy string

const (
	UFSBreadthFirst UFSStrategy = "BREADTH_FIRST"
)

// DefnStrategy controls how often PropagateEndOfQueue's unfounded-set
// search runs relative to every propagation round.
type DefnStrategy string

const (
	DefnAlways   DefnStrategy = "ALWAYS"
	DefnAdaptive DefnStrategy = "ADAPTIVE"
	DefnLazy     DefnStrategy = "LAZY"
)

// AggClauseSaving names how aggressively aggregate propagators would
// materialize reason clauses versus deferring to Explain (see the
// SUPPLEMENTED FEATURES entry in SPEC_FULL.md). The value is validated and
// stored, but no aggregate propagator reads it: all three modes behave
// alike.
type AggClauseSaving string

const (
	ClauseSavingNone   AggClauseSaving = "NONE"
	ClauseSavingClause AggClauseSaving = "CLAUSE"
	ClauseSavingReason AggClauseSaving = "REASON"
)

// Options is the full recognized configuration surface of spec §6,
// constructible programmatically (Default()) or loaded from YAML
// (Load/LoadBytes).
type Options struct {
	Verbosity        int             `yaml:"verbosity"`
	RandomSeed       int64           `yaml:"random_seed"`
	Polarity         Polarity        `yaml:"polarity"`
	DefSemantics     DefSemantics    `yaml:"def_semantics"`
	UFSStrategy      UFSStrategy     `yaml:"ufs_strategy"`
	DefnStrategy     DefnStrategy    `yaml:"defn_strategy"`
	AggClauseSaving  AggClauseSaving `yaml:"agg_clause_saving"`
	WatchesRatio     float64         `yaml:"watches_ratio"`
	PBToCNF          bool            `yaml:"pb_to_cnf"`
	BDDThreshold     float64         `yaml:"bdd_threshold"`
	SortThreshold    float64         `yaml:"sort_threshold"`
	CheckWellFounded bool            `yaml:"check_well_founded"`
	RemapVars        bool            `yaml:"remap_vars"`
	// WeightMode selects fixed- or arbitrary-precision aggregate weights
	// (package weight's one stdlib-only ambient concern); not named in
	// spec §6's option list directly, but required to pick one of the two
	// weight.Mode values before any Set is added.
	WeightMode weight.Mode `yaml:"-"`
}

// Default returns the recognized defaults named in spec §6: verbosity
// off, a fixed seed for reproducible test runs, stored-polarity phase
// saving, stable semantics without the optional well-foundedness check,
// eager breadth-first UFS search, PB-to-CNF enabled with FW preferred on
// watches_ratio ties (DECISIONS ON OPEN QUESTIONS #1 in SPEC_FULL.md).
func Default() Options {
	return Options{
		Verbosity:        0,
		RandomSeed:       1,
		Polarity:         PolarityStored,
		DefSemantics:     DefStable,
		UFSStrategy:      UFSBreadthFirst,
		DefnStrategy:     DefnAlways,
		AggClauseSaving:  ClauseSavingClause,
		WatchesRatio:     0.5,
		PBToCNF:          true,
		BDDThreshold:     0.2,
		SortThreshold:    0.2,
		CheckWellFounded: false,
		RemapVars:        true,
		WeightMode:       weight.Fixed,
	}
}

// Load reads and validates an Options record from a YAML file, starting
// from Default() so a partial file only overrides the fields it names.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, errors.Wrapf(err, "config: read %q", path)
	}
	return LoadBytes(data)
}

// LoadBytes parses raw YAML into an Options record.
func LoadBytes(data []byte) (Options, error) {
	opts := Default()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, errors.Wrap(err, "config: parse yaml")
	}
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// ErrInvalidOption is wrapped with the offending field for every
// validation failure Validate reports.
var ErrInvalidOption = errors.New("config: invalid option")

// Validate rejects any enum field holding a value outside its recognized
// set, and any threshold/ratio outside [0, 1].
func (o Options) Validate() error {
	switch o.Polarity {
	case PolarityTrue, PolarityFalse, PolarityStored, PolarityRand:
	default:
		return errors.Wrapf(ErrInvalidOption, "polarity=%q", o.Polarity)
	}
	switch o.DefSemantics {
	case DefStable, DefWellFounded, DefCompletion:
	default:
		return errors.Wrapf(ErrInvalidOption, "def_semantics=%q", o.DefSemantics)
	}
	switch o.UFSStrategy {
	case UFSBreadthFirst:
	default:
		return errors.Wrapf(ErrInvalidOption, "ufs_strategy=%q", o.UFSStrategy)
	}
	switch o.DefnStrategy {
	case DefnAlways, DefnAdaptive, DefnLazy:
	default:
		return errors.Wrapf(ErrInvalidOption, "defn_strategy=%q", o.DefnStrategy)
	}
	switch o.AggClauseSaving {
	case ClauseSavingNone, ClauseSavingClause, ClauseSavingReason:
	default:
		return errors.Wrapf(ErrInvalidOption, "agg_clause_saving=%q", o.AggClauseSaving)
	}
	if o.WatchesRatio < 0 || o.WatchesRatio > 1 {
		return errors.Wrapf(ErrInvalidOption, "watches_ratio=%v outside [0,1]", o.WatchesRatio)
	}
	if o.BDDThreshold < 0 || o.BDDThreshold > 1 {
		return errors.Wrapf(ErrInvalidOption, "bdd_threshold=%v outside [0,1]", o.BDDThreshold)
	}
	if o.SortThreshold < 0 || o.SortThreshold > 1 {
		return errors.Wrapf(ErrInvalidOption, "sort_threshold=%v outside [0,1]", o.SortThreshold)
	}
	if o.Verbosity < 0 || o.Verbosity > 10 {
		return errors.Wrapf(ErrInvalidOption, "verbosity=%d outside [0,10]", o.Verbosity)
	}
	return nil
}
