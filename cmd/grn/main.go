package main

import (
	"fmt"
	"os"

	logging "github.com/op/go-logging"
	"github.com/tanghaibao/grn"
	"github.com/urfave/cli"
)

func init() {
	cli.AppHelpTemplate = `
   ____ ____ _   _
  / ___|  _ \| \ | |
 | |  _| |_) |  \| |
 | |_| |  _ <| |\  |
  \____|_| \_\_| \_|

` + cli.AppHelpTemplate
}

func main() {
	os.Exit(run())
}

// run builds and executes the CLI app, returning a process exit code. It
// is split out from main so that testscript can register it as a
// subcommand of the test binary.
func run() int {
	logging.SetBackend(grn.BackendFormatter)

	app := cli.NewApp()
	app.Name = "grn"
	app.Usage = "infer a gene regulatory network via adaptive partitioning mutual information"
	app.Version = grn.Version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "expr, e", Usage: "gene expression matrix (TSV, genes x samples)"},
		cli.StringFlag{Name: "regulators, r", Usage: "regulator gene list, one name per line"},
		cli.StringFlag{Name: "outdir, o", Usage: "output directory"},
		cli.Float64Flag{Name: "alpha", Value: grn.DefaultAlpha, Usage: "significance level for edge pruning"},
		cli.Float64Flag{Name: "subsample", Value: grn.DefaultSubsamplePercent, Usage: "fraction of samples drawn per subnet"},
		cli.IntFlag{Name: "x", Usage: "number of subnets (sets num_subnets, targets_per_regulator, num_subnets_to_consolidate)"},
		cli.IntFlag{Name: "threads", Value: 1, Usage: "worker pool size"},
		cli.BoolFlag{Name: "noAlpha", Usage: "disable significance pruning (alpha forced to 1.01)"},
		cli.BoolFlag{Name: "noMaxEnt", Usage: "disable MaxEnt/DPI pruning"},
		cli.BoolFlag{Name: "adaptive", Usage: "spawn subnets until every regulator reaches targets_per_regulator distinct targets"},
		cli.BoolFlag{Name: "noconsolidate", Usage: "stop after writing per-subnet files, skip consolidation"},
		cli.BoolFlag{Name: "consolidate", Usage: "consolidate-only mode: re-read prior subnet files in outdir"},
		cli.BoolFlag{Name: "FDR", Usage: "select the FDR pruning method (default)"},
		cli.BoolFlag{Name: "FWER", Usage: "select the FWER (Bonferroni) pruning method"},
		cli.BoolFlag{Name: "FPR", Usage: "select the FPR (per-edge) pruning method"},
		cli.Int64Flag{Name: "seed", Value: 0, Usage: "base RNG seed"},
		cli.Float64Flag{Name: "mithresh", Value: 0, Usage: "discard edges below this MI during subnet computation"},
		cli.IntFlag{Name: "numnulls", Value: grn.DefaultNumNulls, Usage: "null-MI calibration sample size"},
		cli.BoolFlag{Name: "gzip", Usage: "gzip-compress subnet and consolidated output files"},
	}
	app.Action = func(c *cli.Context) error {
		cfg := grn.NewDefaultConfig()
		cfg.ExprPath = c.String("expr")
		cfg.RegPath = c.String("regulators")
		cfg.OutDir = c.String("outdir")
		cfg.Alpha = c.Float64("alpha")
		cfg.Subsample = c.Float64("subsample")
		if x := c.Int("x"); x > 0 {
			cfg.NumSubnets = x
		}
		cfg.Threads = c.Int("threads")
		cfg.NoAlpha = c.Bool("noAlpha")
		cfg.NoMaxEnt = c.Bool("noMaxEnt")
		cfg.Adaptive = c.Bool("adaptive")
		cfg.NoConsolidate = c.Bool("noconsolidate")
		cfg.ConsolidateOnly = c.Bool("consolidate")
		cfg.Seed = c.Int64("seed")
		cfg.MIThreshold = c.Float64("mithresh")
		cfg.NumNulls = c.Int("numnulls")
		cfg.CompressOutputs = c.Bool("gzip")

		method, err := selectMethod(c)
		if err != nil {
			cli.ShowAppHelp(c)
			return cli.NewExitError(err.Error(), 1)
		}
		cfg.Method = method

		driver := &grn.Driver{Config: cfg}
		code, err := driver.Run()
		if err != nil {
			if _, ok := err.(*grn.UsageError); ok {
				cli.ShowAppHelp(c)
			}
			return cli.NewExitError(err.Error(), code)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if exitErr, ok := err.(cli.ExitCoder); ok {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

// selectMethod resolves the --FDR/--FWER/--FPR flags to a single
// grn.Method, defaulting to FDR and rejecting more than one flag set.
func selectMethod(c *cli.Context) (grn.Method, error) {
	set := 0
	var name string
	for _, f := range []string{"FDR", "FWER", "FPR"} {
		if c.Bool(f) {
			set++
			name = f
		}
	}
	if set > 1 {
		return 0, fmt.Errorf("specify at most one of --FDR, --FWER, --FPR")
	}
	if set == 0 {
		return grn.MethodFDR, nil
	}
	return grn.ParseMethod(name)
}
