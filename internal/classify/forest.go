package classify

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/ppiankov/revsent/internal/model"
	"github.com/ppiankov/revsent/internal/vectorize"
)

// RandomForest is an ensemble of CART trees grown on bootstrap samples with
// gini impurity. At each node a random subset of the features that occur in
// the node's samples is considered; the forest averages leaf probabilities.
type RandomForest struct {
	base
	opts  Options
	trees []tree
}

// tree is stored flat; node 0 is the root
type tree struct {
	Nodes []treeNode
}

type treeNode struct {
	Leaf      bool
	Feature   int
	Threshold float64 // go left when x[Feature] <= Threshold
	Left      int
	Right     int
	PosFrac   float64 // fraction of positive samples reaching the leaf
}

// NewRandomForest creates an untrained random forest
func NewRandomForest(opts Options) *RandomForest {
	return &RandomForest{
		base: base{kind: model.KindRandomForest},
		opts: opts.withDefaults(model.KindRandomForest),
	}
}

// Train grows Trees trees, each from its own seeded bootstrap sample
func (m *RandomForest) Train(features []vectorize.SparseVector, labels []model.Sentiment) error {
	dim, err := validateTrainingData(features, labels)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rng := rand.New(rand.NewSource(m.opts.Seed))
	mtry := int(math.Sqrt(float64(dim)))
	if mtry < 1 {
		mtry = 1
	}

	trees := make([]tree, m.opts.Trees)
	n := len(features)
	for t := range trees {
		g := &grower{
			features: features,
			labels:   labels,
			rng:      rand.New(rand.NewSource(rng.Int63())),
			mtry:     mtry,
			maxDepth: m.opts.MaxDepth,
			minLeaf:  m.opts.MinLeaf,
		}
		sample := make([]int, n)
		for i := range sample {
			sample[i] = g.rng.Intn(n)
		}
		g.grow(sample, 0)
		trees[t] = tree{Nodes: g.nodes}
	}

	m.trees = trees
	m.markTrained(dim)
	return nil
}

// Predict returns positive when the mean leaf probability exceeds one half
func (m *RandomForest) Predict(x vectorize.SparseVector) (model.Sentiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPredict(x); err != nil {
		return model.Negative, err
	}
	if m.probability(x) > 0.5 {
		return model.Positive, nil
	}
	return model.Negative, nil
}

// Probability returns the averaged positive-class leaf probability
func (m *RandomForest) Probability(x vectorize.SparseVector) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkPredict(x); err != nil {
		return 0, err
	}
	return m.probability(x), nil
}

func (m *RandomForest) probability(x vectorize.SparseVector) float64 {
	if len(m.trees) == 0 {
		return 0
	}
	var sum float64
	for i := range m.trees {
		sum += m.trees[i].predict(x)
	}
	return sum / float64(len(m.trees))
}

func (t *tree) predict(x vectorize.SparseVector) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.PosFrac
		}
		if x.At(n.Feature) <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// validate checks that every split references a feature inside dim and that
// children come after their parent, so predict always reaches a leaf.
func (t *tree) validate(dim int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if n.PosFrac < 0 || n.PosFrac > 1 {
				return fmt.Errorf("node %d: leaf fraction %v out of range", i, n.PosFrac)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= dim {
			return fmt.Errorf("node %d: feature %d out of range", i, n.Feature)
		}
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: children %d/%d out of range", i, n.Left, n.Right)
		}
	}
	return nil
}

// Evaluate scores the model on a labeled set
func (m *RandomForest) Evaluate(features []vectorize.SparseVector, labels []model.Sentiment) (*model.EvaluationReport, error) {
	return evaluate(m, features, labels)
}

// grower builds one tree
type grower struct {
	features []vectorize.SparseVector
	labels   []model.Sentiment
	rng      *rand.Rand
	mtry     int
	maxDepth int
	minLeaf  int
	nodes    []treeNode
}

// grow appends the subtree for sample and returns its node index
func (g *grower) grow(sample []int, depth int) int {
	idx := len(g.nodes)
	g.nodes = append(g.nodes, treeNode{})

	pos := 0
	for _, s := range sample {
		if g.labels[s] == model.Positive {
			pos++
		}
	}
	posFrac := float64(pos) / float64(len(sample))

	if pos == 0 || pos == len(sample) || depth >= g.maxDepth || len(sample) < 2*g.minLeaf {
		g.nodes[idx] = treeNode{Leaf: true, PosFrac: posFrac}
		return idx
	}

	feature, threshold, ok := g.bestSplit(sample, pos)
	if !ok {
		g.nodes[idx] = treeNode{Leaf: true, PosFrac: posFrac}
		return idx
	}

	var left, right []int
	for _, s := range sample {
		if g.features[s].At(feature) <= threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[idx] = treeNode{Feature: feature, Threshold: threshold, Left: l, Right: r, PosFrac: posFrac}
	return idx
}

// candidateFeatures draws up to mtry distinct features present in sample
func (g *grower) candidateFeatures(sample []int) []int {
	seen := make(map[int]struct{})
	var present []int
	for _, s := range sample {
		for _, f := range g.features[s].Indices {
			if _, ok := seen[f]; !ok {
				seen[f] = struct{}{}
				present = append(present, f)
			}
		}
	}
	sort.Ints(present)
	g.rng.Shuffle(len(present), func(i, j int) { present[i], present[j] = present[j], present[i] })
	if len(present) > g.mtry {
		present = present[:g.mtry]
	}
	return present
}

type valueLabel struct {
	value float64
	pos   bool
}

// bestSplit returns the feature/threshold with the lowest weighted gini
func (g *grower) bestSplit(sample []int, pos int) (int, float64, bool) {
	n := len(sample)
	bestImpurity := gini(pos, n)
	bestFeature, bestThreshold, found := -1, 0.0, false

	vals := make([]valueLabel, n)
	for _, f := range g.candidateFeatures(sample) {
		for i, s := range sample {
			vals[i] = valueLabel{value: g.features[s].At(f), pos: g.labels[s] == model.Positive}
		}
		sort.Slice(vals, func(i, j int) bool { return vals[i].value < vals[j].value })

		leftPos := 0
		for i := 0; i < n-1; i++ {
			if vals[i].pos {
				leftPos++
			}
			if vals[i].value == vals[i+1].value {
				continue
			}
			nl := i + 1
			nr := n - nl
			if nl < g.minLeaf || nr < g.minLeaf {
				continue
			}
			impurity := (float64(nl)*gini(leftPos, nl) + float64(nr)*gini(pos-leftPos, nr)) / float64(n)
			if impurity < bestImpurity {
				bestImpurity = impurity
				bestFeature = f
				bestThreshold = (vals[i].value + vals[i+1].value) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(pos, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(pos) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}

type forestState struct {
	Opts  Options
	Dim   int
	Trees []tree
}

// MarshalBinary encodes every tree
func (m *RandomForest) MarshalBinary() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return nil, ErrNotTrained
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(forestState{Opts: m.opts, Dim: m.dim, Trees: m.trees}); err != nil {
		return nil, fmt.Errorf("encode random forest: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary restores the trees and marks the model trained
func (m *RandomForest) UnmarshalBinary(data []byte) error {
	var st forestState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&st); err != nil {
		return fmt.Errorf("decode random forest: %w", err)
	}
	if st.Dim <= 0 || len(st.Trees) == 0 {
		return fmt.Errorf("decode random forest: %d trees for dimension %d", len(st.Trees), st.Dim)
	}
	for i := range st.Trees {
		if err := st.Trees[i].validate(st.Dim); err != nil {
			return fmt.Errorf("decode random forest: tree %d: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.kind = model.KindRandomForest
	m.opts = st.Opts
	m.trees = st.Trees
	m.trained = true
	m.dim = st.Dim
	return nil
}
