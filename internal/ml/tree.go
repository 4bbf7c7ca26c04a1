package ml

import (
	"sort"
)

const (
	defaultMaxBins = 64
	maxBinsLimit   = 256 // bins are stored as uint8
	minGain        = 1e-12
)

// TreeParams configures a regression tree
type TreeParams struct {
	MaxDepth        int // 0 means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxBins         int
}

func (p TreeParams) withDefaults() TreeParams {
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	if p.MaxBins <= 1 {
		p.MaxBins = defaultMaxBins
	}
	if p.MaxBins > maxBinsLimit {
		p.MaxBins = maxBinsLimit
	}
	return p
}

// TreeNode is one node of a flattened regression tree. Leaves have Feature -1.
type TreeNode struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t,omitempty"`
	Left      int     `json:"l,omitempty"`
	Right     int     `json:"r,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a CART regression tree; rows with x[Feature] <= Threshold go left
type Tree struct {
	Nodes       []TreeNode `json:"nodes"`
	Importances []float64  `json:"importances,omitempty"`
}

// Predict walks the tree to a leaf and returns its mean target
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// FitTree grows a single regression tree on all rows of X
func FitTree(X [][]float64, y []float64, params TreeParams) (*Tree, error) {
	if _, err := checkXY(X, y); err != nil {
		return nil, err
	}
	params = params.withDefaults()
	data := binColumns(X, params.MaxBins)
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	return growTree(data, y, idx, params), nil
}

// binnedData holds every column quantized into at most MaxBins ordered bins.
// edges[f][b] is the inclusive upper bound of bin b of feature f.
type binnedData struct {
	bins  [][]uint8
	edges [][]float64
}

func binColumns(X [][]float64, maxBins int) *binnedData {
	p := len(X[0])
	d := &binnedData{
		bins:  make([][]uint8, p),
		edges: make([][]float64, p),
	}

	col := make([]float64, len(X))
	for f := 0; f < p; f++ {
		for i, row := range X {
			col[i] = row[f]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)

		edges := uniqueSorted(sorted)
		if len(edges) > maxBins {
			quantiles := make([]float64, 0, maxBins)
			for k := 1; k <= maxBins; k++ {
				quantiles = append(quantiles, sorted[k*len(sorted)/maxBins-1])
			}
			edges = uniqueSorted(quantiles)
		}
		d.edges[f] = edges

		bins := make([]uint8, len(col))
		last := len(edges) - 1
		for i, v := range col {
			b := sort.SearchFloat64s(edges, v)
			if b > last {
				b = last
			}
			bins[i] = uint8(b)
		}
		d.bins[f] = bins
	}
	return d
}

func uniqueSorted(sorted []float64) []float64 {
	out := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}

type treeBuilder struct {
	data        *binnedData
	y           []float64
	params      TreeParams
	nodes       []TreeNode
	importances []float64
}

func growTree(data *binnedData, y []float64, idx []int, params TreeParams) *Tree {
	b := &treeBuilder{
		data:        data,
		y:           y,
		params:      params,
		importances: make([]float64, len(data.bins)),
	}
	b.build(idx, 0)
	return &Tree{Nodes: b.nodes, Importances: normalize(b.importances)}
}

func (b *treeBuilder) build(idx []int, depth int) int {
	id := len(b.nodes)

	var sum, sumSq float64
	for _, i := range idx {
		v := b.y[i]
		sum += v
		sumSq += v * v
	}
	n := float64(len(idx))
	b.nodes = append(b.nodes, TreeNode{Feature: -1, Value: sum / n})

	if b.params.MaxDepth > 0 && depth >= b.params.MaxDepth {
		return id
	}
	if len(idx) < b.params.MinSamplesSplit || len(idx) < 2*b.params.MinSamplesLeaf {
		return id
	}
	if sumSq-sum*sum/n <= minGain {
		return id
	}

	feature, bin, gain := b.bestSplit(idx, sum)
	if feature < 0 {
		return id
	}

	// partition idx in place: bins <= bin to the front
	bins := b.data.bins[feature]
	lo, hi := 0, len(idx)-1
	for lo <= hi {
		if int(bins[idx[lo]]) <= bin {
			lo++
		} else {
			idx[lo], idx[hi] = idx[hi], idx[lo]
			hi--
		}
	}

	b.importances[feature] += gain
	left := b.build(idx[:lo], depth+1)
	right := b.build(idx[lo:], depth+1)

	b.nodes[id].Feature = feature
	b.nodes[id].Threshold = b.data.edges[feature][bin]
	b.nodes[id].Left = left
	b.nodes[id].Right = right
	return id
}

// bestSplit scans every feature histogram for the largest reduction in squared error
func (b *treeBuilder) bestSplit(idx []int, total float64) (feature, bin int, gain float64) {
	feature, bin = -1, -1
	n := len(idx)
	minLeaf := b.params.MinSamplesLeaf
	parent := total * total / float64(n)

	var sums [maxBinsLimit]float64
	var counts [maxBinsLimit]int
	for f, bins := range b.data.bins {
		nb := len(b.data.edges[f])
		if nb < 2 {
			continue
		}
		for k := 0; k < nb; k++ {
			sums[k], counts[k] = 0, 0
		}
		for _, i := range idx {
			k := bins[i]
			sums[k] += b.y[i]
			counts[k]++
		}

		var leftSum float64
		leftCount := 0
		for k := 0; k < nb-1; k++ {
			leftSum += sums[k]
			leftCount += counts[k]
			if leftCount < minLeaf || counts[k] == 0 {
				continue
			}
			rightCount := n - leftCount
			if rightCount < minLeaf {
				break
			}
			rightSum := total - leftSum
			g := leftSum*leftSum/float64(leftCount) + rightSum*rightSum/float64(rightCount) - parent
			if g > gain+minGain {
				feature, bin, gain = f, k, g
			}
		}
	}
	return feature, bin, gain
}

func normalize(v []float64) []float64 {
	var total float64
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	if total == 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}
