package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/technoKC/fraud-shield/internal/domain"
)

// Baseline behavior parameters.
const (
	normalHourStart = 8  // inclusive
	normalHourEnd   = 18 // exclusive

	requestRateThreshold  = 100 // requests per minute
	locationThresholdKM   = 500
	loginFrequencyLimit   = 5 // per hour
	normalTxnAmount       = 50000.0
	normalTxnFrequency    = 5 // per hour
	anomalyThreshold      = 0.5
	recentLocationSamples = 5
)

var sensitiveEndpoints = []string{"/admin/", "/export/", "/delete/"}

// Location is a lat/lon pair attached to a login event.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Assessment is the outcome of one pattern analysis.
type Assessment struct {
	AnomalyScore float64  `json:"anomaly_score"`
	IsAnomaly    bool     `json:"is_anomaly"`
	Anomalies    []string `json:"anomalies"`
	RiskLevel    string   `json:"risk_level"`
}

// UserRisk is one high-risk user on the dashboard.
type UserRisk struct {
	User      string  `json:"user"`
	RiskScore float64 `json:"risk_score"`
}

// TrendPoint is one hourly bucket of the anomaly trend.
type TrendPoint struct {
	Hour      string `json:"hour"`
	Anomalies int    `json:"anomalies"`
}

// Dashboard aggregates monitor state for the security endpoint.
type Dashboard struct {
	TotalAnomaliesDetected int         `json:"total_anomalies_detected"`
	HighRiskUsers          []UserRisk  `json:"high_risk_users"`
	AnomalyTrend           []TrendPoint `json:"anomaly_trend"`
	SecurityScore          int         `json:"security_score"`
}

// Monitor scores login, request, and transaction behavior against baselines.
type Monitor struct {
	store  PatternStore
	cfg    domain.MonitorConfig
	logger *slog.Logger
}

// New creates a behavior monitor on top of a pattern store.
func New(store PatternStore, cfg domain.MonitorConfig, logger *slog.Logger) *Monitor {
	if cfg.LoginHistory <= 0 {
		cfg.LoginHistory = 100
	}
	if cfg.RequestHistory <= 0 {
		cfg.RequestHistory = 1000
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		store:  store,
		cfg:    cfg,
		logger: logger,
	}
}

// AnalyzeLogin scores one login event for the user. Location is optional.
func (m *Monitor) AnalyzeLogin(ctx context.Context, username, ip string, ts time.Time, loc *Location) (*Assessment, error) {
	var score float64
	var anomalies []string

	hour := ts.Hour()
	if hour < normalHourStart || hour >= normalHourEnd {
		score += 0.3
		anomalies = append(anomalies, fmt.Sprintf("Login at unusual hour: %d:00", hour))
	}

	history, err := m.store.Recent(ctx, KindLogin, username, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read login history: %w", err)
	}

	if loc != nil {
		if dist, ok := distanceFromUsual(history, *loc); ok && dist > locationThresholdKM {
			score += 0.4
			anomalies = append(anomalies, fmt.Sprintf("Login from unusual location: %.0fkm away", dist))
		}
	}

	recent := 0
	for _, entry := range history {
		if ts.Sub(entry.Timestamp) < time.Hour {
			recent++
		}
	}
	if recent > loginFrequencyLimit {
		score += 0.3
		anomalies = append(anomalies, fmt.Sprintf("High login frequency: %d in last hour", recent))
	}

	entry := PatternEntry{
		Timestamp:    ts,
		IP:           ip,
		AnomalyScore: score,
	}
	if loc != nil {
		entry.Latitude = loc.Latitude
		entry.Longitude = loc.Longitude
		entry.HasLocation = true
	}
	if err := m.store.Append(ctx, KindLogin, username, entry, m.cfg.LoginHistory); err != nil {
		return nil, fmt.Errorf("failed to record login pattern: %w", err)
	}

	if score > anomalyThreshold {
		m.logger.Warn("login anomaly detected",
			"username", username,
			"score", score,
			"reasons", anomalies)
	}

	return m.assessment(score, anomalies), nil
}

// AnalyzeRequest scores one API request for the user.
func (m *Monitor) AnalyzeRequest(ctx context.Context, user, endpoint, ip string, ts time.Time) (*Assessment, error) {
	var score float64
	var anomalies []string

	history, err := m.store.Recent(ctx, KindRequest, user, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read request history: %w", err)
	}

	rate := 0
	for _, entry := range history {
		if ts.Sub(entry.Timestamp) < time.Minute {
			rate++
		}
	}
	if rate > requestRateThreshold {
		score += 0.5
		anomalies = append(anomalies, fmt.Sprintf("High request rate: %d/min", rate))
	}

	for _, sensitive := range sensitiveEndpoints {
		if strings.Contains(endpoint, sensitive) {
			score += 0.2
			anomalies = append(anomalies, fmt.Sprintf("Access to sensitive endpoint: %s", endpoint))
			break
		}
	}

	entry := PatternEntry{
		Timestamp:    ts,
		Endpoint:     endpoint,
		IP:           ip,
		AnomalyScore: score,
	}
	if err := m.store.Append(ctx, KindRequest, user, entry, m.cfg.RequestHistory); err != nil {
		return nil, fmt.Errorf("failed to record request pattern: %w", err)
	}

	return m.assessment(score, anomalies), nil
}

// AnalyzeTransaction scores one transaction event for the user.
func (m *Monitor) AnalyzeTransaction(ctx context.Context, user string, amount float64, ts time.Time) (*Assessment, error) {
	var score float64
	var anomalies []string

	if amount > normalTxnAmount*10 {
		score += 0.4
		anomalies = append(anomalies, fmt.Sprintf("Unusually high amount: %.0f", amount))
	}

	history, err := m.store.Recent(ctx, KindTransaction, user, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction history: %w", err)
	}

	recentCount := 0
	recentTotal := 0.0
	for _, entry := range history {
		if ts.Sub(entry.Timestamp) < time.Hour {
			recentCount++
			recentTotal += entry.Amount
		}
	}

	if recentCount > normalTxnFrequency {
		score += 0.3
		anomalies = append(anomalies, fmt.Sprintf("High transaction frequency: %d/hour", recentCount))
	}
	if recentCount > 0 && recentTotal > normalTxnAmount*20 {
		score += 0.3
		anomalies = append(anomalies, fmt.Sprintf("High velocity: %.0f in last hour", recentTotal))
	}

	entry := PatternEntry{
		Timestamp:    ts,
		Amount:       amount,
		AnomalyScore: score,
	}
	if err := m.store.Append(ctx, KindTransaction, user, entry, m.cfg.LoginHistory); err != nil {
		return nil, fmt.Errorf("failed to record transaction pattern: %w", err)
	}

	if score > anomalyThreshold {
		m.logger.Warn("transaction anomaly detected",
			"user", user,
			"amount", amount,
			"score", score,
			"reasons", anomalies)
	}

	return m.assessment(score, anomalies), nil
}

// DashboardData aggregates login-pattern state for the security dashboard.
func (m *Monitor) DashboardData(ctx context.Context, now time.Time) (*Dashboard, error) {
	users, err := m.store.Keys(ctx, KindLogin)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitored users: %w", err)
	}
	sort.Strings(users)

	totalAnomalies := 0
	var highRisk []UserRisk

	// Hourly anomaly counts for the last 24 hours, oldest bucket first.
	trend := make([]TrendPoint, 24)
	for i := 0; i < 24; i++ {
		bucketStart := now.Add(-time.Duration(24-i) * time.Hour)
		trend[i] = TrendPoint{Hour: fmt.Sprintf("%02d:00", bucketStart.Hour())}
	}

	for _, user := range users {
		history, err := m.store.Recent(ctx, KindLogin, user, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to read login history: %w", err)
		}

		for _, entry := range history {
			if entry.AnomalyScore > anomalyThreshold {
				totalAnomalies++

				age := now.Sub(entry.Timestamp)
				if age >= 0 && age < 24*time.Hour {
					bucket := 23 - int(age/time.Hour)
					trend[bucket].Anomalies++
				}
			}
		}

		// Average over the newest 10 entries.
		n := len(history)
		if n > 10 {
			n = 10
		}
		if n == 0 {
			continue
		}
		sum := 0.0
		for _, entry := range history[:n] {
			sum += entry.AnomalyScore
		}
		avg := sum / float64(n)
		if avg > anomalyThreshold {
			highRisk = append(highRisk, UserRisk{User: user, RiskScore: avg})
		}
	}

	sort.Slice(highRisk, func(i, j int) bool {
		if highRisk[i].RiskScore != highRisk[j].RiskScore {
			return highRisk[i].RiskScore > highRisk[j].RiskScore
		}
		return highRisk[i].User < highRisk[j].User
	})
	if len(highRisk) > 5 {
		highRisk = highRisk[:5]
	}

	securityScore := 100 - totalAnomalies
	if securityScore < 0 {
		securityScore = 0
	}

	return &Dashboard{
		TotalAnomaliesDetected: totalAnomalies,
		HighRiskUsers:          highRisk,
		AnomalyTrend:           trend,
		SecurityScore:          securityScore,
	}, nil
}

func (m *Monitor) assessment(score float64, anomalies []string) *Assessment {
	if anomalies == nil {
		anomalies = []string{}
	}
	return &Assessment{
		AnomalyScore: score,
		IsAnomaly:    score > anomalyThreshold,
		Anomalies:    anomalies,
		RiskLevel:    riskLevel(score),
	}
}

func riskLevel(score float64) string {
	switch {
	case score >= 0.8:
		return "CRITICAL"
	case score >= 0.6:
		return "HIGH"
	case score >= 0.4:
		return "MEDIUM"
	case score >= 0.2:
		return "LOW"
	default:
		return "NORMAL"
	}
}

// distanceFromUsual compares a location against the mean of the user's most
// recent located logins. The conversion from degrees to km is deliberately
// rough; the threshold is coarse.
func distanceFromUsual(history []PatternEntry, loc Location) (float64, bool) {
	var latSum, lonSum float64
	var count int

	for _, entry := range history {
		if !entry.HasLocation {
			continue
		}
		latSum += entry.Latitude
		lonSum += entry.Longitude
		count++
		if count == recentLocationSamples {
			break
		}
	}

	if count == 0 {
		return 0, false
	}

	latDiff := math.Abs(latSum/float64(count) - loc.Latitude)
	lonDiff := math.Abs(lonSum/float64(count) - loc.Longitude)
	return math.Hypot(latDiff, lonDiff) * 111, true
}
