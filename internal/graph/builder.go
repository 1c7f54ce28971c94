// Package graph builds the transaction network: per-participant and per-pair
// aggregates, PageRank importance, and community clusters.
package graph

import (
	"sort"

	"gonum.org/v1/gonum/graph/community"
	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/technoKC/fraud-shield/internal/domain"
)

const pageRankDamping = 0.85

// Builder accumulates node and edge aggregates from a record sequence and
// derives the graph annotations for the batch report. Accumulation is a
// single-threaded fold; Build is called once per batch.
type Builder struct{}

func NewBuilder() *Builder {
	return &Builder{}
}

type nodeAccum struct {
	transactionCount int
	totalAmount      float64
	fraudCount       int
}

type edgeAccum struct {
	count       int
	totalAmount float64
	fraudCount  int
}

type pairKey struct {
	from, to string
}

// Build folds the records into the aggregated graph. Importance and
// clustering failures degrade to documented fallbacks and never propagate.
func (b *Builder) Build(records []domain.TransactionRecord) domain.Graph {
	nodes := make(map[string]*nodeAccum)
	edges := make(map[pairKey]*edgeAccum)
	var order []string

	totalAmount := 0.0
	fraudTransactions := 0

	for _, rec := range records {
		totalAmount += rec.Amount
		if rec.HistoricalFraud {
			fraudTransactions++
		}

		// Both endpoints accumulate, including self-pay records where
		// payer and beneficiary coincide.
		for _, id := range []string{rec.PayerID, rec.BeneficiaryID} {
			n, ok := nodes[id]
			if !ok {
				n = &nodeAccum{}
				nodes[id] = n
				order = append(order, id)
			}
			n.transactionCount++
			n.totalAmount += rec.Amount
			if rec.HistoricalFraud {
				n.fraudCount++
			}
		}

		key := pairKey{from: rec.PayerID, to: rec.BeneficiaryID}
		e, ok := edges[key]
		if !ok {
			e = &edgeAccum{}
			edges[key] = e
		}
		e.count++
		e.totalAmount += rec.Amount
		if rec.HistoricalFraud {
			e.fraudCount++
		}
	}

	importance := b.computeImportance(order, edges)
	clusters, clusterInfo := b.computeClusters(order, edges)

	sort.Strings(order)
	outNodes := make([]domain.GraphNode, 0, len(order))
	fraudNodes := 0
	for _, id := range order {
		n := nodes[id]
		if n.fraudCount > 0 {
			fraudNodes++
		}
		outNodes = append(outNodes, domain.GraphNode{
			ID:               id,
			TransactionCount: n.transactionCount,
			TotalAmount:      n.totalAmount,
			FraudCount:       n.fraudCount,
			Importance:       importance[id],
			ClusterID:        clusters[id],
			Tier:             domain.TierForNode(n.fraudCount),
		})
	}

	outEdges := make([]domain.GraphEdge, 0, len(edges))
	fraudEdges := 0
	for key, e := range edges {
		fraudPercentage := 0.0
		if e.count > 0 {
			fraudPercentage = float64(e.fraudCount) / float64(e.count) * 100
		}
		if e.fraudCount > 0 {
			fraudEdges++
		}
		outEdges = append(outEdges, domain.GraphEdge{
			From:            key.from,
			To:              key.to,
			Count:           e.count,
			TotalAmount:     e.totalAmount,
			FraudCount:      e.fraudCount,
			FraudPercentage: fraudPercentage,
			Tier:            domain.TierForEdge(fraudPercentage),
		})
	}
	sort.Slice(outEdges, func(i, j int) bool {
		if outEdges[i].From != outEdges[j].From {
			return outEdges[i].From < outEdges[j].From
		}
		return outEdges[i].To < outEdges[j].To
	})

	average := 0.0
	if len(records) > 0 {
		average = totalAmount / float64(len(records))
	}

	return domain.Graph{
		Nodes: outNodes,
		Edges: outEdges,
		Statistics: domain.GraphStatistics{
			TotalNodes:         len(outNodes),
			FraudNodes:         fraudNodes,
			TotalEdges:         len(outEdges),
			FraudEdges:         fraudEdges,
			TotalTransactions:  len(records),
			FraudTransactions:  fraudTransactions,
			TotalAmount:        totalAmount,
			AverageTransaction: average,
			NetworkDensity:     density(len(outNodes), len(outEdges)),
			ClusterInfo:        clusterInfo,
		},
	}
}

// computeImportance runs PageRank over the directed graph. A graph with no
// usable edges, or any computation failure, falls back to a uniform
// importance of 1.0 for every node.
func (b *Builder) computeImportance(ids []string, edges map[pairKey]*edgeAccum) (result map[string]float64) {
	result = make(map[string]float64, len(ids))
	for _, id := range ids {
		result[id] = 1.0
	}

	index := make(map[string]int64, len(ids))
	g := simple.NewDirectedGraph()
	for i, id := range ids {
		index[id] = int64(i)
		g.AddNode(simple.Node(int64(i)))
	}
	usable := 0
	for key := range edges {
		if key.from == key.to {
			continue // simple graphs reject self-loops
		}
		g.SetEdge(g.NewEdge(simple.Node(index[key.from]), simple.Node(index[key.to])))
		usable++
	}
	if usable == 0 {
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			for _, id := range ids {
				result[id] = 1.0
			}
		}
	}()

	ranks := network.PageRank(g, pageRankDamping, 1e-6)
	for _, id := range ids {
		if rank, ok := ranks[index[id]]; ok {
			result[id] = rank
		}
	}
	return result
}

// computeClusters runs greedy modularity community detection over the
// undirected projection. Any failure reports zero clusters.
func (b *Builder) computeClusters(ids []string, edges map[pairKey]*edgeAccum) (assign map[string]int, info domain.ClusterInfo) {
	assign = make(map[string]int, len(ids))
	if len(ids) == 0 {
		return assign, domain.ClusterInfo{}
	}

	index := make(map[string]int64, len(ids))
	byIndex := make(map[int64]string, len(ids))
	g := simple.NewUndirectedGraph()
	for i, id := range ids {
		index[id] = int64(i)
		byIndex[int64(i)] = id
		g.AddNode(simple.Node(int64(i)))
	}
	for key := range edges {
		if key.from == key.to {
			continue
		}
		g.SetEdge(g.NewEdge(simple.Node(index[key.from]), simple.Node(index[key.to])))
	}

	defer func() {
		if r := recover(); r != nil {
			assign = make(map[string]int, len(ids))
			info = domain.ClusterInfo{}
		}
	}()

	reduced := community.Modularize(g, 1, nil)
	communities := reduced.Communities()

	// Stable cluster ids: communities ordered by their smallest member.
	type cluster struct {
		first   string
		members []string
	}
	clusters := make([]cluster, 0, len(communities))
	for _, c := range communities {
		members := make([]string, 0, len(c))
		for _, n := range c {
			members = append(members, byIndex[n.ID()])
		}
		sort.Strings(members)
		clusters = append(clusters, cluster{first: members[0], members: members})
	}
	sort.Slice(clusters, func(i, j int) bool { return clusters[i].first < clusters[j].first })

	largest := 0
	for i, c := range clusters {
		if len(c.members) > largest {
			largest = len(c.members)
		}
		for _, id := range c.members {
			assign[id] = i
		}
	}

	return assign, domain.ClusterInfo{
		TotalClusters:      len(clusters),
		LargestClusterSize: largest,
	}
}

// density is the directed graph density m/(n(n-1)), 0 for n <= 1.
func density(n, m int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(m) / (float64(n) * float64(n-1))
}
