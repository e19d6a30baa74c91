package grn

import (
	"fmt"
	"math"
	"os"
	"sort"

	logging "github.com/op/go-logging"
)

const (
	// Version is the current version of grn
	Version = "0.1.0"
	// DefaultAlpha is the default significance level for pruning
	DefaultAlpha = 0.05
	// NoAlphaSentinel is the alpha value substituted for --noAlpha: above
	// 1.0, so the per-edge p-value <= alpha test holds for every p-value,
	// with margin for rounding, and every edge survives thresholding.
	NoAlphaSentinel = 1.01
	// DefaultSubsamplePercent is 1 - e^-1, the fraction of samples drawn per subnet
	DefaultSubsamplePercent = 0.6321205588285577
	// DefaultNumNulls is the default null-MI calibration sample size
	DefaultNumNulls = 1000000
	// QThresh is the chi-square critical value at df=3, alpha=0.05
	QThresh = 7.815
	// SizeThresh is the minimum point count below which a square is a leaf
	SizeThresh = 4
	// MinSampleSize is the minimum N for which the null-MI model is well-defined
	MinSampleSize = 2
)

var log = logging.MustGetLogger("grn")
var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05} %{shortfunc} | %{level:.6s} %{color:reset} %{message}`,
)

// Backend is the default stderr output
var Backend = logging.NewLogBackend(os.Stderr, "", 0)

// BackendFormatter contains the fancy debug formatter
var BackendFormatter = logging.NewBackendFormatter(Backend, format)

// SetLogFile adds a second, plain (non-color) backend that appends to the
// run's log file inside the output directory, alongside the stderr backend.
// Only the driver's single writer goroutine calls this; the resulting
// multi-backend is otherwise read-only.
func SetLogFile(fh *os.File) {
	fileBackend := logging.NewLogBackend(fh, "", 0)
	fileFormatter := logging.NewBackendFormatter(fileBackend, logging.MustStringFormatter(
		`%{time:2006-01-02 15:04:05} %{shortfunc} | %{level:.6s} %{message}`,
	))
	logging.SetBackend(BackendFormatter, fileFormatter)
}

// banner prints a phase separator, mirroring the CLI's startup banners
func banner(message string) {
	stars := "****************************************"
	log.Noticef("%s\n%s\n%s", stars, message, stars)
}

// Percentage prints a human readable message of the percentage
func Percentage(a, b int) string {
	if b == 0 {
		return fmt.Sprintf("%d of 0", a)
	}
	return fmt.Sprintf("%d of %d (%.1f %%)", a, b, float64(a)*100./float64(b))
}

// abs gets the absolute value of an int
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// min gets the minimum for two ints
func min(x, y int) int {
	if x < y {
		return x
	}
	return y
}

// max gets the maximum for two ints
func max(x, y int) int {
	if x > y {
		return x
	}
	return y
}

// sortFloat64s sorts a slice of float64 in place
func sortFloat64s(a []float64) {
	sort.Float64s(a)
}

// sortSliceInts sorts a []int in place with a caller-supplied less function
func sortSliceInts(a []int, less func(i, j int) bool) {
	sort.Slice(a, func(i, j int) bool { return less(a[i], a[j]) })
}

// searchFloat64GEDesc returns the count of elements in a descending-sorted
// slice that are >= x, via binary search. Used by the null-MI model's
// right-tail p-value lookup.
func searchFloat64GEDesc(a []float64, x float64) int {
	// a is sorted descending; find the first index where a[i] < x
	idx := sort.Search(len(a), func(i int) bool { return a[i] < x })
	return idx
}

// clampFloat clamps v to [lo, hi]
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// isFinite reports whether f is neither NaN nor +-Inf
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
