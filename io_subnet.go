package grn

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/ugorji/go/codec"
)

const (
	subnetHeader       = "regulator.values\ttarget.values\tmi.values"
	consolidatedHeader = "regulator.values\ttarget.values\tmi.values\tscc.values\tcount.values\tp.values"
)

// subnetMeta is the CBOR sidecar written alongside every subnet TSV: the
// information consolidate-only mode needs to recompute fpr_est_subnet
// without re-parsing free-text log lines positionally.
type subnetMeta struct {
	Index               int
	Method              string
	Alpha               float64
	MaxEntEnabled       bool
	NAfterAlphaPruning  int
	NAfterMaxEntPruning int
	FPREstimateSubnet   float64
	Seed                int64
}

// writeAtomic writes data to a temporary file in the same directory as
// path, then renames it into place, so a crash mid-write never leaves a
// partially-written output file where a reader expects a complete one.
// When compress is set, path gains a ".gz" suffix and the stream is run
// through a parallel gzip writer before hitting disk.
func writeAtomic(path string, compress bool, write func(w *bufio.Writer) error) error {
	if compress {
		path += ".gz"
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IoError{Path: path, Op: "create temp", Err: err}
	}
	tmpPath := tmp.Name()

	var sink io.Writer = tmp
	var gz *pgzip.Writer
	if compress {
		gz = pgzip.NewWriter(tmp)
		sink = gz
	}

	w := bufio.NewWriter(sink)
	if err := write(w); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &IoError{Path: path, Op: "write", Err: err}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return &IoError{Path: path, Op: "flush", Err: err}
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return &IoError{Path: path, Op: "gzip close", Err: err}
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return &IoError{Path: path, Op: "close", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return &IoError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// WriteSubnetFile writes one subnet's pruned edge set to
// <outdir>/subnets/subnet_<idx>.tsv (at least 9 significant digits on the
// MI column, per spec's round-trip requirement) and its companion
// subnet_<idx>.meta.cbor sidecar. When compress is set the TSV is written as
// subnet_<idx>.tsv.gz; the sidecar is always plain, since it is a few
// dozen bytes and consolidate-only mode needs to probe for it cheaply.
func WriteSubnetFile(outdir string, res *SubnetResult, names []string, meta subnetMeta, compress bool) error {
	subnetsDir := filepath.Join(outdir, "subnets")
	if err := os.MkdirAll(subnetsDir, 0o755); err != nil {
		return &IoError{Path: subnetsDir, Op: "mkdir", Err: err}
	}

	tsvPath := filepath.Join(subnetsDir, fmt.Sprintf("subnet_%d.tsv", res.Index))
	if err := writeAtomic(tsvPath, compress, func(w *bufio.Writer) error {
		if _, err := w.WriteString(subnetHeader + "\n"); err != nil {
			return err
		}
		for _, e := range sortedEdges(res.Network) {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%.9g\n", names[e.Reg], names[e.Tar], e.MI); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}

	metaPath := filepath.Join(subnetsDir, fmt.Sprintf("subnet_%d.meta.cbor", res.Index))
	return writeAtomic(metaPath, false, func(w *bufio.Writer) error {
		return codec.NewEncoder(w, new(codec.CborHandle)).Encode(meta)
	})
}

// ReadSubnetFile reloads a previously written subnet TSV and its CBOR
// sidecar, resolving gene names back to ids via geneIndex. A missing or
// malformed sidecar is a ConsistencyError, since consolidate-only mode
// cannot recompute fpr_est_subnet without it.
func ReadSubnetFile(outdir string, idx int, geneIndex map[string]int) (*SubnetResult, *subnetMeta, error) {
	subnetsDir := filepath.Join(outdir, "subnets")
	tsvPath := filepath.Join(subnetsDir, fmt.Sprintf("subnet_%d.tsv", idx))
	gzPath := tsvPath + ".gz"

	var src io.Reader
	fh, err := os.Open(tsvPath)
	switch {
	case err == nil:
		defer fh.Close()
		src = fh
	case os.IsNotExist(err):
		gzFh, gzErr := os.Open(gzPath)
		if gzErr != nil {
			return nil, nil, &IoError{Path: tsvPath, Op: "open", Err: gzErr}
		}
		defer gzFh.Close()
		gzr, gzErr := pgzip.NewReader(gzFh)
		if gzErr != nil {
			return nil, nil, &IoError{Path: gzPath, Op: "gzip open", Err: gzErr}
		}
		defer gzr.Close()
		src = gzr
	default:
		return nil, nil, &IoError{Path: tsvPath, Op: "open", Err: err}
	}

	scanner := bufio.NewScanner(src)
	network := make(Network)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			continue // header
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, nil, &DataError{Msg: fmt.Sprintf("%s:%d: expected 3 fields, got %d", tsvPath, lineNo, len(fields))}
		}
		reg, ok := geneIndex[fields[0]]
		if !ok {
			return nil, nil, &DataError{Msg: fmt.Sprintf("%s:%d: unknown regulator %q", tsvPath, lineNo, fields[0])}
		}
		tar, ok := geneIndex[fields[1]]
		if !ok {
			return nil, nil, &DataError{Msg: fmt.Sprintf("%s:%d: unknown target %q", tsvPath, lineNo, fields[1])}
		}
		mi, perr := strconv.ParseFloat(fields[2], 64)
		if perr != nil {
			return nil, nil, &DataError{Msg: fmt.Sprintf("%s:%d: bad MI value: %v", tsvPath, lineNo, perr)}
		}
		network[reg] = append(network[reg], Edge{Reg: reg, Tar: tar, MI: mi})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, &IoError{Path: tsvPath, Op: "read", Err: err}
	}

	metaPath := filepath.Join(subnetsDir, fmt.Sprintf("subnet_%d.meta.cbor", idx))
	metaFh, err := os.Open(metaPath)
	if err != nil {
		return nil, nil, &ConsistencyError{Subnet: idx, Field: "meta.cbor (missing)"}
	}
	defer metaFh.Close()

	var meta subnetMeta
	if err := codec.NewDecoder(metaFh, new(codec.CborHandle)).Decode(&meta); err != nil {
		return nil, nil, &ConsistencyError{Subnet: idx, Field: fmt.Sprintf("meta.cbor (malformed: %v)", err)}
	}

	return &SubnetResult{Index: idx, Network: network, FPREstimate: meta.FPREstimateSubnet}, &meta, nil
}

// WriteConsolidatedFile writes the final consolidated edge table to
// <outdir>/finalNet.txt (or finalNet.txt.gz when compress is set).
func WriteConsolidatedFile(outdir string, edges []ConsolidatedEdge, names []string, compress bool) error {
	path := filepath.Join(outdir, "finalNet.txt")
	return writeAtomic(path, compress, func(w *bufio.Writer) error {
		if _, err := w.WriteString(consolidatedHeader + "\n"); err != nil {
			return err
		}
		for _, e := range edges {
			if _, err := fmt.Fprintf(w, "%s\t%s\t%.9g\t%.9g\t%d\t%.9g\n",
				names[e.Reg], names[e.Tar], e.MI, e.SCC, e.Count, e.P); err != nil {
				return err
			}
		}
		return nil
	})
}
