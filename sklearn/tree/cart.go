package tree

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Criterion is the impurity measure used to score candidate splits.
type Criterion string

const (
	Gini         Criterion = "gini"
	Entropy      Criterion = "entropy"
	SquaredError Criterion = "squared_error"
)

// Splitter strategies.
const (
	SplitBest   = "best"
	SplitRandom = "random"
)

// leafFeature marks a leaf in Node.Feature.
const leafFeature = -1

// Node is one node of a fitted tree. Children are indices into Tree.Nodes.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	// Value holds class probabilities for classification trees and the
	// single mean target for regression trees.
	Value    []float64
	Impurity float64
	Weight   float64
	Samples  int
	Depth    int
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return n.Feature == leafFeature
}

// Tree is a fitted CART tree stored as a flat node slice rooted at index 0.
type Tree struct {
	Nodes     []Node
	NFeatures int
}

// GrowConfig controls tree induction.
type GrowConfig struct {
	Criterion       Criterion
	Splitter        string
	MaxDepth        int // <= 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // features examined per split
	NClasses        int // 0 for regression
}

// Grow builds a tree on the rows with positive weight. For classification y
// holds class indices in [0, NClasses).
func Grow(X [][]float64, y, weight []float64, cfg GrowConfig, rng *rand.Rand) *Tree {
	nFeatures := 0
	if len(X) > 0 {
		nFeatures = len(X[0])
	}
	if cfg.MaxFeatures <= 0 || cfg.MaxFeatures > nFeatures {
		cfg.MaxFeatures = nFeatures
	}
	if cfg.MinSamplesLeaf < 1 {
		cfg.MinSamplesLeaf = 1
	}
	if cfg.MinSamplesSplit < 2 {
		cfg.MinSamplesSplit = 2
	}

	idx := make([]int, 0, len(y))
	for i, w := range weight {
		if w > 0 {
			idx = append(idx, i)
		}
	}
	g := &grower{X: X, y: y, w: weight, cfg: cfg, rng: rng, tree: &Tree{NFeatures: nFeatures}}
	g.build(idx, 0)
	return g.tree
}

type grower struct {
	X    [][]float64
	y, w []float64
	cfg  GrowConfig
	rng  *rand.Rand
	tree *Tree
}

// stats accumulates the weighted target statistics of a sample set.
type stats struct {
	counts      []float64 // per-class weight (classification)
	sum, sumSq  float64   // weighted target sums (regression)
	weight      float64
	nSamples    int
}

func (g *grower) newStats() stats {
	if g.cfg.NClasses > 0 {
		return stats{counts: make([]float64, g.cfg.NClasses)}
	}
	return stats{}
}

func (s *stats) add(y, w float64, classification bool) {
	if classification {
		s.counts[int(y)] += w
	} else {
		s.sum += w * y
		s.sumSq += w * y * y
	}
	s.weight += w
	s.nSamples++
}

func (s *stats) remove(y, w float64, classification bool) {
	if classification {
		s.counts[int(y)] -= w
	} else {
		s.sum -= w * y
		s.sumSq -= w * y * y
	}
	s.weight -= w
	s.nSamples--
}

func (s *stats) impurity(c Criterion) float64 {
	if s.weight <= 0 {
		return 0
	}
	switch c {
	case Gini:
		imp := 1.0
		for _, v := range s.counts {
			p := v / s.weight
			imp -= p * p
		}
		return imp
	case Entropy:
		var imp float64
		for _, v := range s.counts {
			if v > 0 {
				p := v / s.weight
				imp -= p * math.Log2(p)
			}
		}
		return imp
	default:
		mean := s.sum / s.weight
		return math.Max(s.sumSq/s.weight-mean*mean, 0)
	}
}

func (s *stats) value() []float64 {
	if s.counts != nil {
		out := make([]float64, len(s.counts))
		for k, v := range s.counts {
			out[k] = errors.SafeDivide(v, s.weight)
		}
		return out
	}
	return []float64{errors.SafeDivide(s.sum, s.weight)}
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

func (g *grower) build(idx []int, depth int) int {
	classification := g.cfg.NClasses > 0
	st := g.newStats()
	for _, i := range idx {
		st.add(g.y[i], g.w[i], classification)
	}
	imp := st.impurity(g.cfg.Criterion)

	nodeID := len(g.tree.Nodes)
	g.tree.Nodes = append(g.tree.Nodes, Node{
		Feature:  leafFeature,
		Value:    st.value(),
		Impurity: imp,
		Weight:   st.weight,
		Samples:  len(idx),
		Depth:    depth,
	})

	if (g.cfg.MaxDepth > 0 && depth >= g.cfg.MaxDepth) ||
		len(idx) < g.cfg.MinSamplesSplit ||
		len(idx) < 2*g.cfg.MinSamplesLeaf ||
		imp <= 1e-12 {
		return nodeID
	}

	best, ok := g.findSplit(idx, st, imp)
	if !ok {
		return nodeID
	}

	var left, right []int
	for _, i := range idx {
		if g.X[i][best.feature] <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	l := g.build(left, depth+1)
	r := g.build(right, depth+1)

	n := &g.tree.Nodes[nodeID]
	n.Feature = best.feature
	n.Threshold = best.threshold
	n.Left = l
	n.Right = r
	return nodeID
}

func (g *grower) candidateFeatures() []int {
	nFeatures := g.tree.NFeatures
	if g.cfg.MaxFeatures >= nFeatures {
		out := make([]int, nFeatures)
		for i := range out {
			out[i] = i
		}
		return out
	}
	return g.rng.Perm(nFeatures)[:g.cfg.MaxFeatures]
}

func (g *grower) findSplit(idx []int, parent stats, parentImp float64) (split, bool) {
	best := split{gain: 1e-12}
	found := false
	for _, f := range g.candidateFeatures() {
		var s split
		var ok bool
		if g.cfg.Splitter == SplitRandom {
			s, ok = g.randomSplit(idx, f, parent, parentImp)
		} else {
			s, ok = g.bestSplit(idx, f, parent, parentImp)
		}
		if ok && s.gain > best.gain {
			best, found = s, true
		}
	}
	return best, found
}

// bestSplit scans every threshold between consecutive distinct values.
func (g *grower) bestSplit(idx []int, f int, parent stats, parentImp float64) (split, bool) {
	classification := g.cfg.NClasses > 0
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, b int) bool { return g.X[order[a]][f] < g.X[order[b]][f] })

	left := g.newStats()
	right := parent
	if classification {
		right.counts = append([]float64(nil), parent.counts...)
	}

	best := split{feature: f}
	found := false
	minLeaf := g.cfg.MinSamplesLeaf
	for k := 0; k < len(order)-1; k++ {
		i := order[k]
		left.add(g.y[i], g.w[i], classification)
		right.remove(g.y[i], g.w[i], classification)

		v, next := g.X[i][f], g.X[order[k+1]][f]
		if v == next || left.nSamples < minLeaf || right.nSamples < minLeaf {
			continue
		}
		gain := g.gain(parent.weight, parentImp, &left, &right)
		if !found || gain > best.gain {
			best.gain = gain
			best.threshold = v + (next-v)/2
			found = true
		}
	}
	return best, found
}

// randomSplit draws one threshold uniformly between the feature's min and max.
func (g *grower) randomSplit(idx []int, f int, parent stats, parentImp float64) (split, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := g.X[i][f]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi <= lo {
		return split{}, false
	}
	threshold := lo + g.rng.Float64()*(hi-lo)
	if threshold >= hi {
		threshold = lo
	}

	classification := g.cfg.NClasses > 0
	left, right := g.newStats(), g.newStats()
	for _, i := range idx {
		if g.X[i][f] <= threshold {
			left.add(g.y[i], g.w[i], classification)
		} else {
			right.add(g.y[i], g.w[i], classification)
		}
	}
	if left.nSamples < g.cfg.MinSamplesLeaf || right.nSamples < g.cfg.MinSamplesLeaf {
		return split{}, false
	}
	return split{feature: f, threshold: threshold, gain: g.gain(parent.weight, parentImp, &left, &right)}, true
}

// gain is the weighted impurity decrease of a split.
func (g *grower) gain(parentWeight, parentImp float64, left, right *stats) float64 {
	c := g.cfg.Criterion
	return parentWeight*parentImp - left.weight*left.impurity(c) - right.weight*right.impurity(c)
}

// Leaf returns the leaf reached by row.
func (t *Tree) Leaf(row []float64) *Node {
	n := &t.Nodes[0]
	for !n.IsLeaf() {
		if row[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n
}

// Predict returns the value stored in the leaf reached by row.
func (t *Tree) Predict(row []float64) []float64 {
	return t.Leaf(row).Value
}

// Depth returns the maximum depth of any leaf.
func (t *Tree) Depth() int {
	depth := 0
	for i := range t.Nodes {
		if t.Nodes[i].Depth > depth {
			depth = t.Nodes[i].Depth
		}
	}
	return depth
}

// NLeaves returns the number of leaves.
func (t *Tree) NLeaves() int {
	n := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			n++
		}
	}
	return n
}

// Importances returns the unnormalized weighted impurity decrease per feature.
func (t *Tree) Importances() []float64 {
	imp := make([]float64, t.NFeatures)
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if n.IsLeaf() {
			continue
		}
		l, r := &t.Nodes[n.Left], &t.Nodes[n.Right]
		imp[n.Feature] += n.Weight*n.Impurity - l.Weight*l.Impurity - r.Weight*r.Impurity
	}
	return imp
}

// Normalize scales v to sum to one in place; an all-zero vector is left unchanged.
func Normalize(v []float64) []float64 {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum > 0 {
		for i := range v {
			v[i] /= sum
		}
	}
	return v
}
