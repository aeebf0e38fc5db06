package ensemble

import (
	"math"
	"math/rand"
	"sort"

	"github.com/YuminosukeSato/mlkit/core/model"
	"github.com/YuminosukeSato/mlkit/core/parallel"
	"github.com/YuminosukeSato/mlkit/pkg/errors"
)

// Loss is the objective optimized by the boosting engine.
type Loss string

const (
	LossSquared  Loss = "squared"
	LossLogistic Loss = "logistic"
	LossSoftmax  Loss = "softmax"
)

// GrowPolicy selects how a boosting tree is expanded.
type GrowPolicy string

const (
	// GrowDepthwise splits every node level by level up to MaxDepth (XGBoost default).
	GrowDepthwise GrowPolicy = "depthwise"
	// GrowLeafwise always splits the leaf with the largest gain until MaxLeaves
	// leaves exist (LightGBM).
	GrowLeafwise GrowPolicy = "lossguide"
	// GrowSymmetric applies one shared split to every node of a level, giving
	// oblivious trees (CatBoost).
	GrowSymmetric GrowPolicy = "symmetric"
)

// BoostConfig holds the engine settings each library flavor maps its
// hyperparameters onto.
type BoostConfig struct {
	NEstimators  int
	LearningRate float64
	Policy       GrowPolicy

	MaxDepth  int // <= 0 means unlimited (symmetric trees need a positive depth)
	MaxLeaves int // leaf-wise only; <= 0 means unlimited

	Lambda float64 // L2 leaf regularization
	Alpha  float64 // L1 leaf regularization
	Gamma  float64 // minimum gain to split

	MinChildWeight  float64
	MinChildSamples int
	MinSamplesSplit int

	Subsample       float64
	BagFreq         int // redraw the row bag every BagFreq rounds; <= 1 means every round
	ColsampleByTree float64
	MaxFeatures     int // features drawn per split; <= 0 means every tree feature
	MaxBins         int // candidate borders per feature for symmetric trees; <= 0 means all

	Loss     Loss
	NClasses int
	NJobs    int
	Seed     int64
}

// BoostNode is a node of a boosting tree. Leaf values already include the
// learning rate.
type BoostNode struct {
	Feature   int // -1 for leaves
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
}

// BoostTree is a regression tree fitted to gradient statistics.
type BoostTree struct {
	Nodes []BoostNode
}

// Predict returns the leaf value reached by row.
func (t *BoostTree) Predict(row []float64) float64 {
	n := &t.Nodes[0]
	for n.Feature >= 0 {
		if row[n.Feature] <= n.Threshold {
			n = &t.Nodes[n.Left]
		} else {
			n = &t.Nodes[n.Right]
		}
	}
	return n.Value
}

// NLeaves returns the number of leaves.
func (t *BoostTree) NLeaves() int {
	n := 0
	for _, node := range t.Nodes {
		if node.Feature < 0 {
			n++
		}
	}
	return n
}

// Booster is a fitted additive tree model. Rounds[r][k] is the tree of round r
// for output k; softmax boosters have one output per class.
type Booster struct {
	Loss      Loss
	NClasses  int
	NFeatures int
	BaseScore []float64
	Rounds    [][]BoostTree
}

// NOutputs returns the number of raw scores per sample.
func (b *Booster) NOutputs() int {
	return len(b.BaseScore)
}

// Raw returns the untransformed additive score of row.
func (b *Booster) Raw(row []float64) []float64 {
	out := append([]float64(nil), b.BaseScore...)
	for _, round := range b.Rounds {
		for k := range round {
			out[k] += round[k].Predict(row)
		}
	}
	return out
}

// Proba maps raw scores to class probabilities.
func (b *Booster) Proba(row []float64) []float64 {
	raw := b.Raw(row)
	switch b.Loss {
	case LossLogistic:
		p := errors.Sigmoid(raw[0])
		return []float64{1 - p, p}
	case LossSoftmax:
		return errors.Softmax(raw)
	default:
		return raw
	}
}

// Importances returns the total split gain per feature.
func (b *Booster) Importances() []float64 {
	imp := make([]float64, b.NFeatures)
	for _, round := range b.Rounds {
		for k := range round {
			for _, n := range round[k].Nodes {
				if n.Feature >= 0 {
					imp[n.Feature] += n.Gain
				}
			}
		}
	}
	return imp
}

// Boost fits a gradient-boosted tree ensemble with second-order statistics.
// y holds targets for squared loss and class indices otherwise; weight may be nil.
func Boost(X [][]float64, y, weight []float64, cfg BoostConfig) (*Booster, error) {
	n := len(X)
	if n == 0 || len(y) != n {
		return nil, errors.NewDimensionError("Boost", n, len(y), 0)
	}
	if weight == nil {
		weight = make([]float64, n)
		for i := range weight {
			weight[i] = 1
		}
	}
	if cfg.Policy == GrowSymmetric && cfg.MaxDepth <= 0 {
		return nil, errors.NewValidationError("depth", "symmetric trees need a positive depth", cfg.MaxDepth)
	}
	nOut := 1
	if cfg.Loss == LossSoftmax {
		nOut = cfg.NClasses
	}

	b := &Booster{
		Loss:      cfg.Loss,
		NClasses:  cfg.NClasses,
		NFeatures: len(X[0]),
		BaseScore: baseScore(y, weight, cfg.Loss, nOut),
	}

	raw := make([][]float64, nOut)
	grad := make([][]float64, nOut)
	hess := make([][]float64, nOut)
	for k := range raw {
		raw[k] = make([]float64, n)
		for i := range raw[k] {
			raw[k][i] = b.BaseScore[k]
		}
		grad[k] = make([]float64, n)
		hess[k] = make([]float64, n)
	}

	rng := model.NewRand(cfg.Seed)
	bag := allRows(n)
	for round := 0; round < cfg.NEstimators; round++ {
		gradients(cfg.Loss, y, weight, raw, grad, hess)
		if cfg.Subsample < 1 && (cfg.BagFreq <= 1 || round%cfg.BagFreq == 0) {
			bag = drawBag(rng, n, cfg.Subsample)
		}

		trees := make([]BoostTree, nOut)
		for k := 0; k < nOut; k++ {
			tb := &treeBuilder{
				X:        X,
				g:        grad[k],
				h:        hess[k],
				cfg:      &cfg,
				features: sampleColumns(rng, b.NFeatures, cfg.ColsampleByTree),
				rng:      rng,
			}
			trees[k] = tb.build(bag)
			for i := range X {
				raw[k][i] += trees[k].Predict(X[i])
			}
		}
		b.Rounds = append(b.Rounds, trees)
	}
	return b, nil
}

func baseScore(y, w []float64, loss Loss, nOut int) []float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	switch loss {
	case LossLogistic:
		var pos float64
		for i, v := range y {
			pos += w[i] * v
		}
		p := errors.ClipValue(pos/total, 1e-15, 1-1e-15)
		return []float64{math.Log(p / (1 - p))}
	case LossSoftmax:
		freq := make([]float64, nOut)
		for i, v := range y {
			freq[int(v)] += w[i]
		}
		for k := range freq {
			freq[k] = math.Log(math.Max(freq[k]/total, 1e-15))
		}
		return freq
	default:
		var sum float64
		for i, v := range y {
			sum += w[i] * v
		}
		return []float64{sum / total}
	}
}

func gradients(loss Loss, y, w []float64, raw, grad, hess [][]float64) {
	const minHess = 1e-16
	switch loss {
	case LossLogistic:
		for i, t := range y {
			p := errors.Sigmoid(raw[0][i])
			grad[0][i] = w[i] * (p - t)
			hess[0][i] = w[i] * math.Max(p*(1-p), minHess)
		}
	case LossSoftmax:
		scores := make([]float64, len(raw))
		for i, t := range y {
			for k := range raw {
				scores[k] = raw[k][i]
			}
			p := errors.Softmax(scores)
			for k := range raw {
				target := 0.0
				if int(t) == k {
					target = 1
				}
				grad[k][i] = w[i] * (p[k] - target)
				hess[k][i] = w[i] * math.Max(2*p[k]*(1-p[k]), minHess)
			}
		}
	default:
		for i, t := range y {
			grad[0][i] = w[i] * (raw[0][i] - t)
			hess[0][i] = w[i]
		}
	}
}

func allRows(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// drawBag samples round(fraction*n) rows without replacement, sorted.
func drawBag(rng *rand.Rand, n int, fraction float64) []int {
	k := int(math.Round(fraction * float64(n)))
	if k < 1 {
		k = 1
	}
	bag := rng.Perm(n)[:k]
	sort.Ints(bag)
	return bag
}

func sampleColumns(rng *rand.Rand, d int, fraction float64) []int {
	if fraction >= 1 || fraction <= 0 {
		return allRows(d)
	}
	k := int(math.Round(fraction * float64(d)))
	if k < 1 {
		k = 1
	}
	cols := rng.Perm(d)[:k]
	sort.Ints(cols)
	return cols
}

// splitInfo is the best split found for a node or level.
type splitInfo struct {
	feature   int
	threshold float64
	gain      float64
}

type treeBuilder struct {
	X        [][]float64
	g, h     []float64
	cfg      *BoostConfig
	features []int
	rng      *rand.Rand
	tree     BoostTree
}

func (tb *treeBuilder) build(idx []int) BoostTree {
	switch tb.cfg.Policy {
	case GrowLeafwise:
		tb.growLeafwise(idx)
	case GrowSymmetric:
		tb.growSymmetric(idx)
	default:
		tb.growDepthwise(idx, 0)
	}
	return tb.tree
}

// thresholdL1 soft-thresholds the gradient sum by the L1 penalty.
func (tb *treeBuilder) thresholdL1(G float64) float64 {
	a := tb.cfg.Alpha
	switch {
	case G > a:
		return G - a
	case G < -a:
		return G + a
	default:
		return 0
	}
}

func (tb *treeBuilder) score(G, H float64) float64 {
	den := H + tb.cfg.Lambda
	if den <= 0 {
		return 0
	}
	t := tb.thresholdL1(G)
	return t * t / den
}

func (tb *treeBuilder) leafValue(G, H float64) float64 {
	den := H + tb.cfg.Lambda
	if den <= 0 {
		return 0
	}
	return -tb.thresholdL1(G) / den * tb.cfg.LearningRate
}

func (tb *treeBuilder) sums(idx []int) (G, H float64) {
	for _, i := range idx {
		G += tb.g[i]
		H += tb.h[i]
	}
	return G, H
}

func (tb *treeBuilder) addLeaf(idx []int) int {
	G, H := tb.sums(idx)
	tb.tree.Nodes = append(tb.tree.Nodes, BoostNode{Feature: -1, Value: tb.leafValue(G, H)})
	return len(tb.tree.Nodes) - 1
}

func (tb *treeBuilder) setSplit(node int, s splitInfo, left, right int) {
	n := &tb.tree.Nodes[node]
	n.Feature = s.feature
	n.Threshold = s.threshold
	n.Gain = s.gain
	n.Left = left
	n.Right = right
}

func (tb *treeBuilder) partition(idx []int, s splitInfo) (left, right []int) {
	for _, i := range idx {
		if tb.X[i][s.feature] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func (tb *treeBuilder) depthAllowed(depth int) bool {
	return tb.cfg.MaxDepth <= 0 || depth < tb.cfg.MaxDepth
}

func (tb *treeBuilder) growDepthwise(idx []int, depth int) int {
	node := tb.addLeaf(idx)
	if !tb.depthAllowed(depth) {
		return node
	}
	s, ok := tb.findSplit(idx)
	if !ok {
		return node
	}
	left, right := tb.partition(idx, s)
	l := tb.growDepthwise(left, depth+1)
	r := tb.growDepthwise(right, depth+1)
	tb.setSplit(node, s, l, r)
	return node
}

func (tb *treeBuilder) growLeafwise(idx []int) {
	type open struct {
		node  int
		idx   []int
		depth int
		split splitInfo
	}
	var queue []open
	push := func(node int, idx []int, depth int) {
		if !tb.depthAllowed(depth) {
			return
		}
		if s, ok := tb.findSplit(idx); ok {
			queue = append(queue, open{node: node, idx: idx, depth: depth, split: s})
		}
	}
	push(tb.addLeaf(idx), idx, 0)

	leaves := 1
	for len(queue) > 0 && (tb.cfg.MaxLeaves <= 0 || leaves < tb.cfg.MaxLeaves) {
		best := 0
		for j := range queue {
			if queue[j].split.gain > queue[best].split.gain {
				best = j
			}
		}
		o := queue[best]
		queue = append(queue[:best], queue[best+1:]...)

		left, right := tb.partition(o.idx, o.split)
		l := tb.addLeaf(left)
		r := tb.addLeaf(right)
		tb.setSplit(o.node, o.split, l, r)
		leaves++
		push(l, left, o.depth+1)
		push(r, right, o.depth+1)
	}
}

func (tb *treeBuilder) growSymmetric(idx []int) {
	groups := [][]int{idx}
	nodes := []int{tb.addLeaf(idx)}
	for depth := 0; depth < tb.cfg.MaxDepth; depth++ {
		s, ok := tb.findObliviousSplit(groups)
		if !ok {
			return
		}
		nextGroups := make([][]int, 0, 2*len(groups))
		nextNodes := make([]int, 0, 2*len(nodes))
		for j, grp := range groups {
			left, right := tb.partition(grp, s)
			l := tb.addLeaf(left)
			r := tb.addLeaf(right)
			// the level gain is recorded once, on the first node
			level := s
			if j > 0 {
				level.gain = 0
			}
			tb.setSplit(nodes[j], level, l, r)
			nextGroups = append(nextGroups, left, right)
			nextNodes = append(nextNodes, l, r)
		}
		groups, nodes = nextGroups, nextNodes
	}
}

func (tb *treeBuilder) splitFeatures() []int {
	k := tb.cfg.MaxFeatures
	if k <= 0 || k >= len(tb.features) {
		return tb.features
	}
	out := make([]int, k)
	for j, p := range tb.rng.Perm(len(tb.features))[:k] {
		out[j] = tb.features[p]
	}
	return out
}

func (tb *treeBuilder) findSplit(idx []int) (splitInfo, bool) {
	minLeaf := tb.cfg.MinChildSamples
	if minLeaf < 1 {
		minLeaf = 1
	}
	if len(idx) < tb.cfg.MinSamplesSplit || len(idx) < 2*minLeaf {
		return splitInfo{}, false
	}
	G, H := tb.sums(idx)
	parent := tb.score(G, H)

	features := tb.splitFeatures()
	results := make([]splitInfo, len(features))
	found := make([]bool, len(features))
	parallel.Parallelize(len(features), tb.cfg.NJobs, func(start, end int) {
		for j := start; j < end; j++ {
			results[j], found[j] = tb.bestForFeature(idx, features[j], G, H, parent, minLeaf)
		}
	})

	best := splitInfo{gain: 1e-12}
	ok := false
	for j := range results {
		if found[j] && results[j].gain > best.gain {
			best, ok = results[j], true
		}
	}
	return best, ok
}

func (tb *treeBuilder) bestForFeature(idx []int, f int, G, H, parent float64, minLeaf int) (splitInfo, bool) {
	order := append([]int(nil), idx...)
	sort.Slice(order, func(a, b int) bool { return tb.X[order[a]][f] < tb.X[order[b]][f] })

	best := splitInfo{feature: f}
	found := false
	var GL, HL float64
	for k := 0; k < len(order)-1; k++ {
		i := order[k]
		GL += tb.g[i]
		HL += tb.h[i]
		v, next := tb.X[i][f], tb.X[order[k+1]][f]
		if v == next {
			continue
		}
		nL, nR := k+1, len(order)-k-1
		GR, HR := G-GL, H-HL
		if nL < minLeaf || nR < minLeaf || HL < tb.cfg.MinChildWeight || HR < tb.cfg.MinChildWeight {
			continue
		}
		gain := 0.5*(tb.score(GL, HL)+tb.score(GR, HR)-parent) - tb.cfg.Gamma
		if !found || gain > best.gain {
			best.gain = gain
			best.threshold = v + (next-v)/2
			found = true
		}
	}
	return best, found
}

// borders returns candidate thresholds for f over the samples in groups,
// reduced to at most MaxBins equal-frequency borders.
func (tb *treeBuilder) borders(groups [][]int, f int) []float64 {
	var values []float64
	for _, grp := range groups {
		for _, i := range grp {
			values = append(values, tb.X[i][f])
		}
	}
	sort.Float64s(values)
	unique := values[:0]
	for j, v := range values {
		if j == 0 || v != unique[len(unique)-1] {
			unique = append(unique, v)
		}
	}
	if len(unique) < 2 {
		return nil
	}
	mids := make([]float64, len(unique)-1)
	for j := range mids {
		mids[j] = unique[j] + (unique[j+1]-unique[j])/2
	}
	maxBins := tb.cfg.MaxBins
	if maxBins <= 0 || len(mids) <= maxBins {
		return mids
	}
	out := make([]float64, maxBins)
	for j := range out {
		out[j] = mids[(j*len(mids))/maxBins]
	}
	return out
}

// findObliviousSplit picks the single split that maximizes the summed gain
// over every node of the current level.
func (tb *treeBuilder) findObliviousSplit(groups [][]int) (splitInfo, bool) {
	features := tb.splitFeatures()
	results := make([]splitInfo, len(features))
	found := make([]bool, len(features))

	parallel.Parallelize(len(features), tb.cfg.NJobs, func(start, end int) {
		for j := start; j < end; j++ {
			f := features[j]
			borders := tb.borders(groups, f)
			if len(borders) == 0 {
				continue
			}
			gains := make([]float64, len(borders))
			for _, grp := range groups {
				if len(grp) == 0 {
					continue
				}
				order := append([]int(nil), grp...)
				sort.Slice(order, func(a, b int) bool { return tb.X[order[a]][f] < tb.X[order[b]][f] })
				G, H := tb.sums(grp)
				parent := tb.score(G, H)
				var GL, HL float64
				p := 0
				for bi, border := range borders {
					for p < len(order) && tb.X[order[p]][f] <= border {
						GL += tb.g[order[p]]
						HL += tb.h[order[p]]
						p++
					}
					gains[bi] += 0.5 * (tb.score(GL, HL) + tb.score(G-GL, H-HL) - parent)
				}
			}
			best := 0
			for bi := range gains {
				if gains[bi] > gains[best] {
					best = bi
				}
			}
			results[j] = splitInfo{feature: f, threshold: borders[best], gain: gains[best] - tb.cfg.Gamma}
			found[j] = true
		}
	})

	best := splitInfo{gain: 1e-12}
	ok := false
	for j := range results {
		if found[j] && results[j].gain > best.gain {
			best, ok = results[j], true
		}
	}
	return best, ok
}
