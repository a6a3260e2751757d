// Package bnb implements the nested branch-and-bound search that
// globally registers a data cloud against a model cloud: an outer
// search over SE(3) rotations (axis-angle cubes) and, at each rotation
// candidate, an inner search over translations, each pruned against a
// running incumbent error and refined by local ICP.
package bnb

import (
	"container/heap"
	"math"
	"time"

	"github.com/anirudhpillai/goicp/internal/obs"
	"github.com/anirudhpillai/goicp/pkg/distfield"
	"github.com/anirudhpillai/goicp/pkg/icp"
	"github.com/anirudhpillai/goicp/pkg/selector"
)

// MaxRotLevel bounds how many levels of the rotation-uncertainty table
// are precomputed; InnerBnB calls made for lower bounds at a deeper
// recursion than this reuse the deepest precomputed level.
const MaxRotLevel = 20

const sqrt3 = 1.7320508075688772

// RotNode is one cube of the axis-angle rotation search space, with its
// minimum corner (A,B,C), side width W, subdivision level L, and the
// upper/lower bounds computed for it.
type RotNode struct {
	A, B, C, W float64
	L          int
	UB, LB     float64
}

// TransNode is one cube of the translation search space, with its
// minimum corner (X,Y,Z), side width W, and bounds.
type TransNode struct {
	X, Y, Z, W float64
	UB, LB     float64
}

// rotQueue is a priority queue of RotNode ordered by ascending LB, with
// ties broken by ascending W, matching the reference's strict weak
// order (smaller lb first, then smaller w).
type rotQueue []RotNode

func (q rotQueue) Len() int { return len(q) }
func (q rotQueue) Less(i, j int) bool {
	if q[i].LB != q[j].LB {
		return q[i].LB < q[j].LB
	}
	return q[i].W < q[j].W
}
func (q rotQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *rotQueue) Push(x interface{}) {
	*q = append(*q, x.(RotNode))
}
func (q *rotQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

type transQueue []TransNode

func (q transQueue) Len() int { return len(q) }
func (q transQueue) Less(i, j int) bool {
	if q[i].LB != q[j].LB {
		return q[i].LB < q[j].LB
	}
	return q[i].W < q[j].W
}
func (q transQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *transQueue) Push(x interface{}) {
	*q = append(*q, x.(TransNode))
}
func (q *transQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}

// Params holds the registration search configuration: the initial
// rotation and translation cubes, the convergence threshold, and
// optional trimming.
type Params struct {
	MSEThresh    float64
	RotMin       [3]float64
	RotWidth     float64
	TransMin     [3]float64
	TransWidth   float64
	TrimFraction float64
}

// doTrim reports whether trimming is enabled, using the same threshold
// the reference config wrapper applies.
func (p Params) doTrim() bool { return p.TrimFraction >= 0.001 }

// Result is the outcome of a Register call.
type Result struct {
	R     [3][3]float64
	T     [3]float64
	Error float64
}

// GoICP drives the nested branch-and-bound search over a fixed model
// and data cloud.
type GoICP struct {
	model [][3]float64
	data  [][3]float64
	dt    *distfield.DistanceTransform3D
	icp   *icp.ICP3D
	params Params

	log     *obs.Logger
	metrics *obs.Metrics

	normData  []float64
	maxRotDis [MaxRotLevel][]float64
	inlierNum int
	sseThresh float64

	optError     float64
	optR         [3][3]float64
	optT         [3]float64
	optNodeRot   RotNode
	optNodeTrans TransNode
}

// New builds the model distance transform and k-d tree and precomputes
// the per-level rotation uncertainty table. dtSize is the DT grid side
// in voxels and dtExpandFactor the bounding-box padding multiplier.
func New(model, data [][3]float64, params Params, dtSize int, dtExpandFactor float64) *GoICP {
	g := &GoICP{model: model, data: data, params: params}

	xs, ys, zs := splitCoords(model)
	g.dt = distfield.New(dtSize, dtExpandFactor)
	g.dt.Build(xs, ys, zs, len(model))

	g.icp = icp.Build(model)

	g.normData = make([]float64, len(data))
	for i, p := range data {
		g.normData[i] = math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
	}

	for l := 0; l < MaxRotLevel; l++ {
		sigma := params.RotWidth / math.Pow(2, float64(l)) / 2
		maxAngle := sqrt3 * sigma
		if maxAngle > math.Pi {
			maxAngle = math.Pi
		}
		row := make([]float64, len(data))
		for i := range data {
			row[i] = 2 * math.Sin(maxAngle/2) * g.normData[i]
		}
		g.maxRotDis[l] = row
	}

	if params.doTrim() {
		g.inlierNum = int(round(float64(len(data)) * (1 - params.TrimFraction)))
	} else {
		g.inlierNum = len(data)
	}
	if g.inlierNum < 1 {
		g.inlierNum = 1
	}
	g.sseThresh = params.MSEThresh * float64(g.inlierNum)

	return g
}

// SetObservability attaches a logger and metrics sink to the search.
// Either may be nil; both are safe to call on unconditionally.
func (g *GoICP) SetObservability(log *obs.Logger, metrics *obs.Metrics) {
	g.log = log
	g.metrics = metrics
}

func splitCoords(pts [][3]float64) (xs, ys, zs []float64) {
	xs = make([]float64, len(pts))
	ys = make([]float64, len(pts))
	zs = make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i], zs[i] = p[0], p[1], p[2]
	}
	return
}

func round(v float64) float64 {
	if v >= 0 {
		return math.Floor(v + 0.5)
	}
	return -math.Floor(-v + 0.5)
}

// icpOptions mirrors the reference's ICP3D tuning: a generous iteration
// cap and an error-difference threshold four orders of magnitude tighter
// than the BnB's own MSE threshold.
func (g *GoICP) icpOptions() icp.Options {
	return icp.Options{
		MaxIter:      10000,
		ErrDiff:      g.params.MSEThresh / 10000,
		TrimFraction: g.params.TrimFraction,
	}
}

// partialSumSquares trims (if enabled) and sums the smallest inlierNum
// squared distances in place, returning the sum.
func (g *GoICP) partialSumSquares(dis []float64) float64 {
	if g.params.doTrim() {
		selector.Select(dis, 0, len(dis)-1, g.inlierNum-1)
	}
	var sum float64
	for i := 0; i < g.inlierNum; i++ {
		sum += dis[i] * dis[i]
	}
	return sum
}

// Register runs the full nested branch-and-bound search and returns the
// globally (near-)optimal rigid transform.
func (g *GoICP) Register() Result {
	runStart := time.Now()
	defer func() { g.metrics.RecordRun(time.Since(runStart), g.optError) }()

	minDis := make([]float64, len(g.data))
	for i, p := range g.data {
		minDis[i] = g.dt.Distance(p[0], p[1], p[2])
	}
	g.optError = g.partialSumSquares(minDis)

	g.optR = [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	g.optT = [3]float64{0, 0, 0}

	rIcp, tIcp := g.optR, g.optT
	errICP := g.runICP(&rIcp, &tIcp)
	if errICP < g.optError {
		g.optError = errICP
		g.optR, g.optT = rIcp, tIcp
	}
	g.log.Info("initial error computed", map[string]interface{}{"optError": g.optError})

	g.optNodeRot = RotNode{A: g.params.RotMin[0], B: g.params.RotMin[1], C: g.params.RotMin[2], W: g.params.RotWidth, L: 0}
	g.optNodeTrans = TransNode{X: g.params.TransMin[0], Y: g.params.TransMin[1], Z: g.params.TransMin[2], W: g.params.TransWidth}

	rq := &rotQueue{g.optNodeRot}
	heap.Init(rq)

	for rq.Len() > 0 {
		parent := heap.Pop(rq).(RotNode)
		g.metrics.IncOuterPop()
		if g.optError-parent.LB <= g.sseThresh {
			break
		}

		wPrime := parent.W / 2
		lPrime := parent.L + 1

		for j := 0; j < 8; j++ {
			child := RotNode{W: wPrime, L: lPrime}
			child.A = parent.A + float64(j&1)*wPrime
			child.B = parent.B + float64((j>>1)&1)*wPrime
			child.C = parent.C + float64((j>>2)&1)*wPrime

			v1 := child.A + wPrime/2
			v2 := child.B + wPrime/2
			v3 := child.C + wPrime/2
			norm := math.Sqrt(v1*v1 + v2*v2 + v3*v3)
			if norm-sqrt3*wPrime/2 > math.Pi {
				continue
			}

			R := rodrigues(v1, v2, v3, norm)
			pDataTemp := rotatePoints(g.data, R)

			ub, bestTrans := g.innerBnB(pDataTemp, nil)
			if ub < g.optError {
				g.optError = ub
				g.optNodeRot = child
				g.optNodeTrans = bestTrans
				g.optR = R
				g.optT = [3]float64{
					bestTrans.X + bestTrans.W/2,
					bestTrans.Y + bestTrans.W/2,
					bestTrans.Z + bestTrans.W/2,
				}
				g.metrics.IncIncumbentUpdate()

				rIcp, tIcp := g.optR, g.optT
				errICP := g.runICP(&rIcp, &tIcp)
				if errICP < g.optError {
					g.optError = errICP
					g.optR, g.optT = rIcp, tIcp
				}

				purgeRotQueue(rq, g.optError)
			}

			level := lPrime
			if level >= MaxRotLevel {
				level = MaxRotLevel - 1
			}
			lb, _ := g.innerBnB(pDataTemp, g.maxRotDis[level])
			if lb >= g.optError {
				continue
			}

			child.UB = ub
			child.LB = lb
			heap.Push(rq, child)
		}
	}

	g.log.Info("registration complete", map[string]interface{}{"optError": g.optError})
	return Result{R: g.optR, T: g.optT, Error: g.optError}
}

// runICP calls local ICP refinement with instrumentation, mutating R
// and t in place and returning the resulting error.
func (g *GoICP) runICP(R *[3][3]float64, t *[3]float64) float64 {
	start := time.Now()
	err := g.icp.Run(g.data, R, t, g.icpOptions())
	g.metrics.ObserveICPCall(time.Since(start))
	return err
}

// purgeRotQueue drops every queued node whose lb is no longer better
// than optError. Because rq is a min-heap ordered by lb, nodes come off
// in non-decreasing lb order, so the first disqualifying pop means every
// remaining node is disqualified too.
func purgeRotQueue(rq *rotQueue, optError float64) {
	var kept rotQueue
	for rq.Len() > 0 {
		n := (*rq)[0]
		if n.LB >= optError {
			break
		}
		heap.Pop(rq)
		kept = append(kept, n)
	}
	*rq = kept
	heap.Init(rq)
}

// innerBnB searches the translation cube for the rotation candidate
// already baked into pDataTemp, returning the best error found and the
// translation node that achieved it. maxRotDisL is nil when computing a
// rotation upper bound (rotation fixed at the cube center) and the
// per-point rotation uncertainty row when computing a lower bound.
func (g *GoICP) innerBnB(pDataTemp [][3]float64, maxRotDisL []float64) (float64, TransNode) {
	optErrorT := g.optError
	var best TransNode

	tq := &transQueue{{X: g.params.TransMin[0], Y: g.params.TransMin[1], Z: g.params.TransMin[2], W: g.params.TransWidth}}
	heap.Init(tq)

	n := len(pDataTemp)
	minDis := make([]float64, n)

	for tq.Len() > 0 {
		parent := heap.Pop(tq).(TransNode)
		g.metrics.IncInnerPop()
		if optErrorT-parent.LB < g.sseThresh {
			break
		}

		wPrime := parent.W / 2
		maxTransDis := sqrt3 / 2 * wPrime

		for j := 0; j < 8; j++ {
			child := TransNode{W: wPrime}
			child.X = parent.X + float64(j&1)*wPrime
			child.Y = parent.Y + float64((j>>1)&1)*wPrime
			child.Z = parent.Z + float64((j>>2)&1)*wPrime

			transX := child.X + wPrime/2
			transY := child.Y + wPrime/2
			transZ := child.Z + wPrime/2

			for i, p := range pDataTemp {
				d := g.dt.Distance(p[0]+transX, p[1]+transY, p[2]+transZ)
				if maxRotDisL != nil {
					d -= maxRotDisL[i]
				}
				if d < 0 {
					d = 0
				}
				minDis[i] = d
			}

			if g.params.doTrim() {
				selector.Select(minDis, 0, n-1, g.inlierNum-1)
			}

			var ub float64
			for i := 0; i < g.inlierNum; i++ {
				ub += minDis[i] * minDis[i]
			}

			var lb float64
			for i := 0; i < g.inlierNum; i++ {
				d := minDis[i] - maxTransDis
				if d > 0 {
					lb += d * d
				}
			}

			if ub < optErrorT {
				optErrorT = ub
				best = child
			}

			if lb >= optErrorT {
				continue
			}

			child.UB = ub
			child.LB = lb
			heap.Push(tq, child)
		}
	}

	return optErrorT, best
}

// rodrigues converts an axis-angle vector (v1,v2,v3) of magnitude theta
// into its rotation matrix. theta==0 yields the identity.
func rodrigues(v1, v2, v3, theta float64) [3][3]float64 {
	if theta == 0 {
		return [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	}

	v1, v2, v3 = v1/theta, v2/theta, v3/theta
	c, s := math.Cos(theta), math.Sin(theta)
	cbar := 1 - c

	t12 := v1 * v2 * cbar
	t13 := v1 * v3 * cbar
	t23 := v2 * v3 * cbar
	s1, s2, s3 := v1*s, v2*s, v3*s

	return [3][3]float64{
		{c + v1*v1*cbar, t12 - s3, t13 + s2},
		{t12 + s3, c + v2*v2*cbar, t23 - s1},
		{t13 - s2, t23 + s1, c + v3*v3*cbar},
	}
}

func rotatePoints(pts [][3]float64, R [3][3]float64) [][3]float64 {
	out := make([][3]float64, len(pts))
	for i, p := range pts {
		out[i] = [3]float64{
			R[0][0]*p[0] + R[0][1]*p[1] + R[0][2]*p[2],
			R[1][0]*p[0] + R[1][1]*p[1] + R[1][2]*p[2],
			R[2][0]*p[0] + R[2][1]*p[1] + R[2][2]*p[2],
		}
	}
	return out
}
