package domain

// TransactionResult is the per-transaction view included for flagged records
// and embedded in each result entry. Status is a presentation-time field
// populated from the override store; the engine never sets it.
type TransactionResult struct {
	TransactionID      string       `json:"transaction_id"`
	Timestamp          string       `json:"timestamp"`
	Amount             float64      `json:"amount"`
	PayerVPA           string       `json:"payer_vpa"`
	BeneficiaryVPA     string       `json:"beneficiary_vpa"`
	IsFraud            bool         `json:"is_fraud"`
	RuleScore          int          `json:"risk_score"`
	RiskLevel          RiskLevel    `json:"risk_level"`
	SuspiciousPatterns []string     `json:"suspicious_patterns"`
	RiskFactors        []RiskFactor `json:"risk_factors"`
	Explanation        string       `json:"explanation"`
	DeviceID           string       `json:"device_id"`
	IPAddress          string       `json:"ip_address"`
	ResponseCode       string       `json:"response_code"`
	Status             string       `json:"status,omitempty"`
}

// RuleClassification is the rule-based label for a result entry.
type RuleClassification struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Risk       RiskLevel `json:"risk"`
}

// CompositeClassification is the composite scorer's label for a result entry.
type CompositeClassification struct {
	Score          float64            `json:"risk_score"`
	Confidence     float64            `json:"confidence"`
	Risk           RiskLevel          `json:"risk"`
	Breakdown      CompositeBreakdown `json:"breakdown"`
	Explanation    string             `json:"explanation"`
	Recommendation string             `json:"recommendation"`
}

// NodeContext is the graph annotation for one endpoint of a transaction.
type NodeContext struct {
	ID         string   `json:"id"`
	Tier       NodeTier `json:"tier"`
	Importance float64  `json:"importance"`
	ClusterID  int      `json:"cluster_id"`
	FraudCount int      `json:"fraud_count"`
}

// ResultEntry joins both scorers and the graph context for one record.
// Entries are ordered by record position in the input batch.
type ResultEntry struct {
	Transaction             TransactionResult       `json:"transaction"`
	RuleClassification      RuleClassification      `json:"rule_classification"`
	CompositeClassification CompositeClassification `json:"composite_classification"`
	Payer                   NodeContext             `json:"payer_context"`
	Beneficiary             NodeContext             `json:"beneficiary_context"`
	Explanation             []string                `json:"explanation"`
	Recommendations         []string                `json:"recommendations"`
	ScreeningHits           []ScreeningHit          `json:"screening_hits,omitempty"`
}

// AmountCluster groups historically flagged records sharing one high-risk
// amount. Only groups larger than one are reported, at most five per batch.
type AmountCluster struct {
	Type      string  `json:"type"`
	Amount    float64 `json:"amount"`
	Count     int     `json:"count"`
	RiskLevel string  `json:"risk_level"`
}

// BehavioralAnomaly flags a high-frequency payer. At most three per batch.
type BehavioralAnomaly struct {
	Type             string  `json:"type"`
	VPA              string  `json:"vpa"`
	TransactionCount int     `json:"transaction_count"`
	AnomalyScore     float64 `json:"anomaly_score"`
}

// AmountAnalysis holds flagged-amount statistics over fraud-labeled records.
// All fields are zero for a batch with no flagged records.
type AmountAnalysis struct {
	AverageFraudAmount float64 `json:"average_fraud_amount"`
	MaxFraudAmount     float64 `json:"max_fraud_amount"`
	MinFraudAmount     float64 `json:"min_fraud_amount"`
	TotalFraudValue    float64 `json:"total_fraud_value"`
}

// CompositeSummary holds the composite scorer's batch-level analytics.
type CompositeSummary struct {
	AverageRiskScore    float64             `json:"average_risk_score"`
	RiskDistribution    map[RiskLevel]int   `json:"risk_distribution"`
	AmountClusters      []AmountCluster     `json:"amount_clusters"`
	BehavioralAnomalies []BehavioralAnomaly `json:"behavioral_anomalies"`
}

// PortfolioSummary is the batch-level rollup of the full analysis.
type PortfolioSummary struct {
	TotalAnalyzed      int               `json:"total_analyzed"`
	FraudDetected      int               `json:"fraud_detected"`
	FraudRate          float64           `json:"fraud_rate"`
	RiskDistribution   map[RiskLevel]int `json:"risk_distribution"`
	CommonPatterns     map[string]int    `json:"common_patterns"`
	AmountAnalysis     AmountAnalysis    `json:"amount_analysis"`
	RepeatParticipants []string          `json:"repeat_participants"`
	ClusterInfo        ClusterInfo       `json:"cluster_info"`
	NetworkDensity     float64           `json:"network_density"`
	Composite          CompositeSummary  `json:"composite"`
}

// BatchReport is the complete output for one analyzed batch. Field names are
// part of the external contract and must be preserved by any transport.
type BatchReport struct {
	ReportID          string              `json:"report_id"`
	TotalTransactions int                 `json:"total_transactions"`
	FraudDetected     int                 `json:"fraud_detected"`
	FraudTransactions []TransactionResult `json:"fraud_transactions"`
	Results           []ResultEntry       `json:"results"`
	Graph             Graph               `json:"graph"`
	PortfolioSummary  PortfolioSummary    `json:"portfolio_summary"`
}
