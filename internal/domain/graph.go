package domain

// NodeTier categorizes a participant by fraud involvement.
type NodeTier string

const (
	NodeTierClean    NodeTier = "clean"
	NodeTierMinor    NodeTier = "minor"
	NodeTierElevated NodeTier = "elevated"
	NodeTierCritical NodeTier = "critical"
)

// TierForNode maps a node fraud count to its tier.
func TierForNode(fraudCount int) NodeTier {
	switch {
	case fraudCount > 5:
		return NodeTierCritical
	case fraudCount > 2:
		return NodeTierElevated
	case fraudCount > 0:
		return NodeTierMinor
	default:
		return NodeTierClean
	}
}

// EdgeTier categorizes a payer-beneficiary pair by fraud percentage.
type EdgeTier string

const (
	EdgeTierNone     EdgeTier = "none"
	EdgeTierModerate EdgeTier = "moderate"
	EdgeTierHigh     EdgeTier = "high"
	EdgeTierSevere   EdgeTier = "severe"
)

// TierForEdge maps an edge fraud percentage to its tier.
func TierForEdge(fraudPercentage float64) EdgeTier {
	switch {
	case fraudPercentage > 50:
		return EdgeTierSevere
	case fraudPercentage > 20:
		return EdgeTierHigh
	case fraudPercentage > 0:
		return EdgeTierModerate
	default:
		return EdgeTierNone
	}
}

// GraphNode is the aggregated view of one participant in the transaction
// graph. Importance is the PageRank value (uniform 1.0 on fallback).
type GraphNode struct {
	ID               string   `json:"id"`
	TransactionCount int      `json:"transaction_count"`
	TotalAmount      float64  `json:"total_amount"`
	FraudCount       int      `json:"fraud_count"`
	Importance       float64  `json:"importance"`
	ClusterID        int      `json:"cluster_id"`
	Tier             NodeTier `json:"tier"`
}

// GraphEdge is the aggregated view of one ordered payer->beneficiary pair.
type GraphEdge struct {
	From            string   `json:"from"`
	To              string   `json:"to"`
	Count           int      `json:"count"`
	TotalAmount     float64  `json:"total_amount"`
	FraudCount      int      `json:"fraud_count"`
	FraudPercentage float64  `json:"fraud_percentage"`
	Tier            EdgeTier `json:"tier"`
}

// ClusterInfo summarizes community detection output.
type ClusterInfo struct {
	TotalClusters      int `json:"total_clusters"`
	LargestClusterSize int `json:"largest_cluster_size"`
}

// GraphStatistics are the batch-level graph metrics.
type GraphStatistics struct {
	TotalNodes         int         `json:"total_nodes"`
	FraudNodes         int         `json:"fraud_nodes"`
	TotalEdges         int         `json:"total_edges"`
	FraudEdges         int         `json:"fraud_edges"`
	TotalTransactions  int         `json:"total_transactions"`
	FraudTransactions  int         `json:"fraud_transactions"`
	TotalAmount        float64     `json:"total_amount"`
	AverageTransaction float64     `json:"average_transaction"`
	NetworkDensity     float64     `json:"network_density"`
	ClusterInfo        ClusterInfo `json:"cluster_info"`
}

// Graph is the full graph annotation attached to a batch report.
type Graph struct {
	Nodes      []GraphNode     `json:"nodes"`
	Edges      []GraphEdge     `json:"edges"`
	Statistics GraphStatistics `json:"statistics"`
}
