package grn

import (
	"bufio"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/shenwei356/xopen"
)

// ExpressionMatrix holds the gene expression data for a run: gene
// identifiers, their copula-transformed values, and the integer rank
// vectors used only for Spearman correlation (SCC).
//
// Gene ids are stable non-negative integers in [0, G), assigned in the
// order genes are first seen while reading the input file.
type ExpressionMatrix struct {
	GeneNames []string
	GeneIndex map[string]int
	N         int // samples, after any subsampling
	Copula    [][]float64
	Rank      [][]int
}

// NumGenes returns G, the number of genes in the matrix.
func (m *ExpressionMatrix) NumGenes() int { return len(m.GeneNames) }

// isFieldDelim reports whether r separates fields in the tab/comma/space
// convention the expression matrix and regulator list files use.
func isFieldDelim(r rune) bool {
	return r == '\t' || r == ',' || r == ' '
}

func splitFields(line string) []string {
	line = strings.TrimSuffix(line, "\r")
	return strings.FieldsFunc(line, isFieldDelim)
}

// LoadExpressionMatrix reads a tab/comma/space-separated expression matrix:
// a header row of N sample names (ignoring the leading cell), followed by
// one row per gene of a name and N floating-point values. Duplicate gene
// names and rows whose field count disagrees with the header are fatal
// DataErrors; Windows line endings are tolerated.
func LoadExpressionMatrix(path string, rng *rand.Rand) (*ExpressionMatrix, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, &IoError{Path: path, Op: "open", Err: err}
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	if !scanner.Scan() {
		return nil, &DataError{Msg: fmt.Sprintf("%s: empty expression matrix", path)}
	}
	headerLine := strings.TrimSuffix(scanner.Text(), "\r")
	header := splitFields(headerLine)
	numSamples := len(header) - 1
	if headerLine != "" && isFieldDelim(rune(headerLine[0])) {
		// the leading cell is empty and splitFields has already dropped it
		numSamples = len(header)
	}
	if numSamples < 1 {
		return nil, &DataError{Msg: fmt.Sprintf("%s: header has no sample columns", path)}
	}

	m := &ExpressionMatrix{
		GeneIndex: make(map[string]int),
	}
	var rawValues [][]float64

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		fields := splitFields(line)
		if len(fields) != numSamples+1 {
			return nil, &DataError{Msg: fmt.Sprintf("%s: row %q has %d fields, expected %d", path, fields[0], len(fields)-1, numSamples)}
		}
		gene := fields[0]
		if _, dup := m.GeneIndex[gene]; dup {
			return nil, &DataError{Msg: fmt.Sprintf("%s: duplicate gene row %q", path, gene)}
		}
		vals := make([]float64, numSamples)
		for i, f := range fields[1:] {
			v, perr := strconv.ParseFloat(f, 64)
			if perr != nil {
				return nil, &DataError{Msg: fmt.Sprintf("%s: gene %q column %d: %v", path, gene, i+1, perr)}
			}
			vals[i] = v
		}
		m.GeneIndex[gene] = len(m.GeneNames)
		m.GeneNames = append(m.GeneNames, gene)
		rawValues = append(rawValues, vals)
	}
	if err := scanner.Err(); err != nil {
		return nil, &IoError{Path: path, Op: "read", Err: err}
	}
	if numSamples < MinSampleSize {
		return nil, &DataError{Msg: fmt.Sprintf("%s: N=%d samples, need at least %d", path, numSamples, MinSampleSize)}
	}

	m.N = numSamples
	m.Copula = make([][]float64, len(rawValues))
	m.Rank = make([][]int, len(rawValues))
	for i, v := range rawValues {
		m.Copula[i], m.Rank[i] = copulaAndRank(v, rng)
	}
	return m, nil
}

// LoadRegulatorList reads a newline-separated list of regulator gene
// names and resolves them against geneIndex. Names absent from the
// expression matrix are warned about and dropped, per spec; an empty
// resulting list is a DataError.
func LoadRegulatorList(path string, geneIndex map[string]int) ([]int, error) {
	fh, err := xopen.Ropen(path)
	if err != nil {
		return nil, &IoError{Path: path, Op: "open", Err: err}
	}
	defer fh.Close()

	scanner := bufio.NewScanner(fh)
	var regs []int
	seen := make(map[int]bool)
	for scanner.Scan() {
		name := strings.TrimSuffix(strings.TrimSpace(scanner.Text()), "\r")
		if name == "" {
			continue
		}
		id, ok := geneIndex[name]
		if !ok {
			log.Warningf("regulator %q not found in expression matrix, ignored", name)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		regs = append(regs, id)
	}
	if err := scanner.Err(); err != nil {
		return nil, &IoError{Path: path, Op: "read", Err: err}
	}
	if len(regs) == 0 {
		return nil, &DataError{Msg: fmt.Sprintf("%s: no regulators resolved against the expression matrix", path)}
	}
	return regs, nil
}

// rankIndices returns a permutation idx of [0, len(v)) such that
// v[idx[0]] <= v[idx[1]] <= ...; runs of equal values are shuffled via rng
// so ties are broken uniformly at random rather than by input order.
func rankIndices(v []float64, rng *rand.Rand) []int {
	n := len(v)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sortIdxByValue(idx, v)

	// shuffle runs of equal value in place
	i := 0
	for i < n {
		j := i + 1
		for j < n && v[idx[j]] == v[idx[i]] {
			j++
		}
		shuffleIntRange(idx[i:j], rng)
		i = j
	}
	return idx
}

func sortIdxByValue(idx []int, v []float64) {
	// insertion sort is fine for small quadrant point lists elsewhere;
	// here N can be large, so delegate to sort.Slice.
	sortSliceInts(idx, func(a, b int) bool { return v[a] < v[b] })
}

func shuffleIntRange(a []int, rng *rand.Rand) {
	for i := len(a) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}

// copulaAndRank computes both the copula transform v'[i] = rank(v[i])/(N+1)
// and the 1-based integer rank vector (used only for SCC), sharing the
// same rank_indices call and the same random tie-break draw.
func copulaAndRank(v []float64, rng *rand.Rand) (copula []float64, rank []int) {
	n := len(v)
	idx := rankIndices(v, rng)
	rank = make([]int, n)
	copula = make([]float64, n)
	for r, i := range idx {
		rank[i] = r + 1
		copula[i] = float64(r+1) / float64(n+1)
	}
	return
}
