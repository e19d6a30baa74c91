package grn

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Driver orchestrates one end-to-end run: load inputs, build the null
// model, fan out subnets (or re-read them in consolidate-only mode), and
// consolidate, writing a run-summary log on success. It is the single
// place that owns the log-file handle appended to by exactly one writer.
type Driver struct {
	Config *Config
}

// Run executes the pipeline described by d.Config and returns the final
// exit code alongside any error, matching the CLI's 0/1/2 contract.
func (d *Driver) Run() (int, error) {
	cfg := d.Config
	if err := cfg.Validate(); err != nil {
		return exitCode(err), err
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		ioErr := &IoError{Path: cfg.OutDir, Op: "mkdir", Err: err}
		return exitCode(ioErr), ioErr
	}
	logDir := filepath.Join(cfg.OutDir, "log")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		ioErr := &IoError{Path: logDir, Op: "mkdir", Err: err}
		return exitCode(ioErr), ioErr
	}

	runLogPath := filepath.Join(logDir, "run.log")
	runLogFh, err := os.Create(runLogPath)
	if err != nil {
		ioErr := &IoError{Path: runLogPath, Op: "create", Err: err}
		return exitCode(ioErr), ioErr
	}
	defer runLogFh.Close()
	SetLogFile(runLogFh)

	banner(fmt.Sprintf("grn %s — command: %s", Version, strings.Join(os.Args, " ")))
	log.Noticef("config: %+v", *cfg)

	err = d.run(cfg)
	if err != nil {
		log.Errorf("run failed: %v", err)
		return exitCode(err), err
	}

	fmt.Fprintf(runLogFh, "\n# run completed successfully at %s\n", time.Now().UTC().Format(time.RFC3339))
	return 0, nil
}

func (d *Driver) run(cfg *Config) error {
	rng := rand.New(rand.NewSource(cfg.Seed))

	banner("Phase 1: loading expression matrix and regulator list")
	full, err := LoadExpressionMatrix(cfg.ExprPath, rng)
	if err != nil {
		return err
	}
	regs, err := LoadRegulatorList(cfg.RegPath, full.GeneIndex)
	if err != nil {
		return err
	}
	log.Noticef("loaded %d genes (%d samples), %d regulators", full.NumGenes(), full.N, len(regs))

	if cfg.ConsolidateOnly {
		return d.runConsolidateOnly(cfg, full)
	}

	banner("Phase 2: calibrating null-MI distribution")
	nullPath := ""
	if cfg.OutDir != "" {
		nullPath = filepath.Join(cfg.OutDir, fmt.Sprintf("null_mi_N%d.npy", full.N))
	}
	null, err := LoadOrBuildNullModel(nullPath, full.N, cfg.NumNulls, deriveRNG(rng, 0))
	if err != nil {
		return err
	}

	banner("Phase 3: running subnets")
	results, err := RunSubnets(full, regs, cfg, null, deriveRNG(rng, 1))
	if err != nil {
		return err
	}
	log.Noticef("completed %d subnets", len(results))

	for _, res := range results {
		meta := subnetMeta{
			Index:             res.Index,
			Method:            cfg.Method.String(),
			Alpha:             cfg.Alpha,
			MaxEntEnabled:     !cfg.NoMaxEnt,
			NAfterMaxEntPruning: countEdges(res.Network),
			FPREstimateSubnet: res.FPREstimate,
			Seed:              cfg.Seed,
		}
		if err := WriteSubnetFile(cfg.OutDir, res, full.GeneNames, meta, cfg.CompressOutputs); err != nil {
			return err
		}
	}

	if cfg.NoConsolidate {
		log.Notice("--noconsolidate set, skipping consolidation")
		return nil
	}
	return d.consolidateAndWrite(cfg, full, results)
}

func (d *Driver) runConsolidateOnly(cfg *Config, full *ExpressionMatrix) error {
	banner("Phase 2': reloading prior subnets for consolidate-only mode")
	results := make([]*SubnetResult, 0, cfg.NumSubnetsToConsolidate)
	for i := 0; i < cfg.NumSubnetsToConsolidate; i++ {
		res, meta, err := ReadSubnetFile(cfg.OutDir, i, full.GeneIndex)
		if err != nil {
			return err
		}
		log.Noticef("reloaded subnet %d: method=%s alpha=%g fpr_est=%g", i, meta.Method, meta.Alpha, meta.FPREstimateSubnet)
		results = append(results, res)
	}
	return d.consolidateAndWrite(cfg, full, results)
}

func (d *Driver) consolidateAndWrite(cfg *Config, full *ExpressionMatrix, results []*SubnetResult) error {
	banner("Phase 4: consolidating subnets")
	edges, err := Consolidate(results, full, cfg.Threads)
	if err != nil {
		return err
	}
	log.Noticef("consolidated network: %d edges", len(edges))
	if err := WriteConsolidatedFile(cfg.OutDir, edges, full.GeneNames, cfg.CompressOutputs); err != nil {
		return err
	}

	var meanFPR float64
	for _, res := range results {
		meanFPR += res.FPREstimate
	}
	if len(results) > 0 {
		meanFPR /= float64(len(results))
	}
	log.Noticef("mean fpr_est_subnet across %d subnets: %g", len(results), meanFPR)
	return nil
}
