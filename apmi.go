package grn

import (
	"math"
)

// Estimator holds the parameters and scratch arena for one APMI
// computation stream. Re-architected as an explicit context rather than
// file-scope mutable statics: every parallel worker gets its own
// Estimator and never shares one across goroutines. The recursion itself
// runs in single precision, per spec; only the public Apmi boundary
// speaks float64, matching the float64 copula vectors stored elsewhere.
type Estimator struct {
	qThresh    float32
	sizeThresh int
	x, y       []float32  // the two copula-transformed vectors, read-only for the lifetime of Apmi
	levels     [][4][]int // per-depth quadrant scratch buffers, lazily grown, reused across sibling calls
	capacity   int
	xBuf, yBuf []float32 // reused float64->float32 conversion scratch, grown as needed
}

// NewEstimator returns an Estimator configured with the spec defaults.
// capacity is the largest N this estimator will ever be asked to
// partition; since recursion is depth-first and a quadrant's point count
// never exceeds its parent's, one set of four buffers per depth level
// (not per node) suffices, reused across every sibling call at that
// depth and across every call to Apmi.
func NewEstimator(capacity int) *Estimator {
	return &Estimator{qThresh: float32(QThresh), sizeThresh: SizeThresh, capacity: capacity}
}

// buffersAt returns the four scratch quadrant buffers for recursion
// depth, growing the per-depth buffer pool on first use at that depth
// and resetting each buffer's length to 0 (capacity is retained).
func (e *Estimator) buffersAt(depth int) *[4][]int {
	for len(e.levels) <= depth {
		var bufs [4][]int
		for i := range bufs {
			bufs[i] = make([]int, 0, e.capacity)
		}
		e.levels = append(e.levels, bufs)
	}
	b := &e.levels[depth]
	for i := range b {
		b[i] = b[i][:0]
	}
	return b
}

// Apmi estimates the mutual information in nats between two
// copula-transformed vectors of equal length via recursive adaptive
// quadrant partitioning of the unit square. The recursion itself runs
// entirely in float32; x and y are narrowed once at this boundary into
// reused scratch buffers.
func (e *Estimator) Apmi(x, y []float64) float64 {
	n := len(x)
	if cap(e.xBuf) < n {
		e.xBuf = make([]float32, n)
		e.yBuf = make([]float32, n)
	}
	e.xBuf, e.yBuf = e.xBuf[:n], e.yBuf[:n]
	for i := 0; i < n; i++ {
		e.xBuf[i] = float32(x[i])
		e.yBuf[i] = float32(y[i])
	}
	e.x, e.y = e.xBuf, e.yBuf

	if e.capacity < n {
		e.capacity = n
		e.levels = nil
	}
	pts := make([]int, n)
	for i := range pts {
		pts[i] = i
	}
	return float64(e.split(0, 0, 0, 1, pts, n))
}

// split evaluates one square (x0, y0, w) containing pts, recursing into
// quadrants when the chi-square stopping rule says to, and returns the
// summed leaf contributions under this square. depth selects which
// per-level scratch buffers to reuse for this call's children.
func (e *Estimator) split(depth int, x0, y0, w float32, pts []int, totPts int) float32 {
	n := len(pts)
	if n < e.sizeThresh {
		return e.leaf(n, w, totPts)
	}

	xMid := x0 + w/2
	yMid := y0 + w/2

	quads := e.buffersAt(depth) // TR, TL, BR, BL
	for _, i := range pts {
		right := e.x[i] >= xMid
		top := e.y[i] >= yMid
		switch {
		case right && top:
			quads[0] = append(quads[0], i)
		case !right && top:
			quads[1] = append(quads[1], i)
		case right && !top:
			quads[2] = append(quads[2], i)
		default:
			quads[3] = append(quads[3], i)
		}
	}

	expected := float32(n) / 4
	var terms [4]float32
	for i, q := range quads {
		d := float32(len(q)) - expected
		terms[i] = d * d / expected
	}
	chi2 := sumFloat32(terms[:])

	isRoot := n == totPts
	if chi2 <= e.qThresh && !isRoot {
		return e.leaf(n, w, totPts)
	}

	hw := w / 2
	var sub [4]float32
	if len(quads[0]) > 0 {
		sub[0] = e.split(depth+1, xMid, yMid, hw, quads[0], totPts)
	}
	if len(quads[1]) > 0 {
		sub[1] = e.split(depth+1, x0, yMid, hw, quads[1], totPts)
	}
	if len(quads[2]) > 0 {
		sub[2] = e.split(depth+1, xMid, y0, hw, quads[2], totPts)
	}
	if len(quads[3]) > 0 {
		sub[3] = e.split(depth+1, x0, y0, hw, quads[3], totPts)
	}
	return sumFloat32(sub[:])
}

// leaf returns M(S) = p*log(p/(w*w)) for a square holding n of totPts
// points and side length w, with p == 0 or a non-finite logarithm
// contributing 0.
func (e *Estimator) leaf(n int, w float32, totPts int) float32 {
	if n == 0 || totPts == 0 {
		return 0
	}
	p := float32(n) / float32(totPts)
	contribution := p * float32(math.Log(float64(p/(w*w))))
	if !isFinite(float64(contribution)) {
		return 0
	}
	return contribution
}

// sumFloat32 is floats.Sum narrowed to float32, since gonum's floats
// package operates on float64 slices only.
func sumFloat32(terms []float32) float32 {
	var total float32
	for _, t := range terms {
		total += t
	}
	return total
}
