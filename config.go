package grn

import "fmt"

// Config holds the resolved parameters of one run, populated from CLI
// flags and validated/clamped by Validate before the driver starts.
type Config struct {
	ExprPath string
	RegPath  string
	OutDir   string

	Alpha        float64
	Subsample    float64
	NumSubnets   int
	Threads      int
	NoAlpha      bool
	NoMaxEnt     bool
	Adaptive     bool
	NoConsolidate bool
	ConsolidateOnly bool
	Method       Method
	Seed         int64
	MIThreshold  float64
	NumNulls     int

	TargetsPerRegulator      int
	NumSubnetsToConsolidate  int

	// CompressOutputs toggles pgzip-compressed subnet/consolidated
	// output files, set by the --gzip flag.
	CompressOutputs bool
}

// NewDefaultConfig returns a Config with every spec-defaulted field set,
// ready to be overridden by parsed CLI flags before Validate runs.
func NewDefaultConfig() *Config {
	return &Config{
		Alpha:       DefaultAlpha,
		Subsample:   DefaultSubsamplePercent,
		NumSubnets:  1,
		Threads:     1,
		Method:      MethodFDR,
		Seed:        0,
		MIThreshold: 0,
		NumNulls:    DefaultNumNulls,
	}
}

// Validate applies the ParamError clamping policy: alpha and subsample
// are clamped into range with a logged warning; an unknown method or a
// missing required path is fatal. --noAlpha forces alpha to
// NoAlphaSentinel (1.01), not 1.0, so that the p-value <= alpha
// comparison never excludes an edge on a rounding boundary.
func (c *Config) Validate() error {
	if c.ExprPath == "" || c.RegPath == "" || c.OutDir == "" {
		return &UsageError{Msg: "expression matrix (-e), regulator list (-r), and output directory (-o) are required"}
	}
	if c.Threads < 1 {
		c.Threads = 1
	}
	if c.NumSubnets < 1 {
		c.NumSubnets = 1
	}
	if c.NumNulls <= 0 {
		return &ParamError{Msg: fmt.Sprintf("--numnulls must be positive, got %d", c.NumNulls)}
	}
	if _, err := ParseMethod(c.Method.String()); err != nil {
		return err
	}

	c.TargetsPerRegulator = c.NumSubnets
	c.NumSubnetsToConsolidate = c.NumSubnets

	if c.NoAlpha {
		c.Alpha = NoAlphaSentinel
	} else {
		clamped := clampFloat(c.Alpha, 1e-9, 1.0)
		if clamped != c.Alpha {
			log.Warningf("--alpha %g out of range, clamped to %g", c.Alpha, clamped)
			c.Alpha = clamped
		}
	}

	clampedSub := clampFloat(c.Subsample, 1e-9, 1.0)
	if clampedSub != c.Subsample {
		log.Warningf("--subsample %g out of range, clamped to %g", c.Subsample, clampedSub)
		c.Subsample = clampedSub
	}

	return nil
}
