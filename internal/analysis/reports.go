// Perfwatch - Performance Analytics and Alerting Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/perfwatch

package analysis

import (
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/perfwatch/internal/models"
	"github.com/tomtom215/perfwatch/internal/snapshot"
)

// Overview is the landing-page summary.
type Overview struct {
	HasData      bool                    `json:"hasData"`
	Latest       *models.Snapshot        `json:"latest,omitempty"`
	Trends       map[string]models.Trend `json:"trends"`
	ActiveAlerts int                     `json:"activeAlerts"`
	Health       *models.HealthScore     `json:"health,omitempty"`
	Samples      int                     `json:"samples"`

	// SparseTrends is set when the window holds fewer than MinTrendSamples
	// snapshots.
	SparseTrends bool `json:"sparseTrends"`
}

// BuildOverview summarizes the latest snapshot and the last hour's window.
func BuildOverview(latest *models.Snapshot, window []models.Snapshot, activeAlerts int) Overview {
	o := Overview{
		Trends: map[string]models.Trend{
			"responseTime": Trend(window, ResponseTime),
			"throughput":   Trend(window, Throughput),
			"errorRate":    Trend(window, ErrorRate),
			"cpu":          Trend(window, CPU),
			"memory":       Trend(window, Memory),
		},
		SparseTrends: len(window) < MinTrendSamples,
		ActiveAlerts: activeAlerts,
		Samples:      len(window),
	}
	if latest != nil {
		s := *latest
		h := Score(&s)
		o.HasData = true
		o.Latest = &s
		o.Health = &h
	}
	return o
}

// UserBehavior reports the provider-supplied business block.
type UserBehavior struct {
	Current   models.BusinessMetrics `json:"current"`
	Averages  models.BusinessMetrics `json:"averages24h"`
	Samples   int                    `json:"samples"`
	Simulated bool                   `json:"simulated"`
}

// BuildUserBehavior averages the business block over window.
func BuildUserBehavior(latest *models.Snapshot, window []models.Snapshot) UserBehavior {
	u := UserBehavior{Samples: len(window)}
	if latest != nil {
		u.Current = latest.Business
		u.Simulated = latest.Business.Simulated
	}
	if len(window) == 0 {
		return u
	}

	var visitors int64
	var avg models.BusinessMetrics
	for i := range window {
		b := &window[i].Business
		visitors += b.UniqueVisitors
		avg.BounceRatePct += b.BounceRatePct
		avg.ConversionRatePct += b.ConversionRatePct
		avg.Revenue += b.Revenue
		avg.SatisfactionScore += b.SatisfactionScore
		if b.Simulated {
			u.Simulated = true
		}
	}
	n := float64(len(window))
	avg.UniqueVisitors = int64(math.Round(float64(visitors) / n))
	avg.BounceRatePct /= n
	avg.ConversionRatePct /= n
	avg.Revenue /= n
	avg.SatisfactionScore /= n
	avg.Simulated = u.Simulated
	u.Averages = avg
	return u
}

// CapacityPlan combines current utilization with a 30-day projection.
type CapacityPlan struct {
	UtilizationPct   float64                              `json:"utilizationPct"`
	Risk             models.Risk                          `json:"risk"`
	Projection       map[string]models.CapacityProjection `json:"projection"`
	InsufficientData bool                                 `json:"insufficientData"`
	Recommendations  []string                             `json:"recommendations"`
}

// CapacityHorizonDays is the projection horizon of BuildCapacityPlan.
const CapacityHorizonDays = 30

// BuildCapacityPlan projects series forward and suggests actions.
func BuildCapacityPlan(latest *models.Snapshot, series []models.Snapshot) CapacityPlan {
	p := CapacityPlan{
		Risk:       models.RiskLow,
		Projection: ProjectCapacity(series, CapacityHorizonDays),
	}
	p.InsufficientData = len(p.Projection) == 0
	if latest != nil {
		p.UtilizationPct = latest.Capacity.UtilizationPct
		p.Risk = models.RiskForUtilization(p.UtilizationPct)
	}

	switch p.Risk {
	case models.RiskHigh:
		p.Recommendations = append(p.Recommendations, "Add capacity now; utilization is above 85%")
	case models.RiskMedium:
		p.Recommendations = append(p.Recommendations, "Plan a capacity increase; utilization is above 70%")
	default:
		p.Recommendations = append(p.Recommendations, "Current capacity is sufficient")
	}
	if !p.InsufficientData {
		last := p.Projection[fmt.Sprintf("day_%d", CapacityHorizonDays)]
		if latest != nil && last.ExpectedLatencyMs > 2*math.Max(latest.Performance.AvgResponseTimeMs, 1) {
			p.Recommendations = append(p.Recommendations, "Projected latency doubles within 30 days; review scaling policy")
		}
	}
	return p
}

// CostRates holds the unit prices used by BuildCostAnalysis.
type CostRates struct {
	Instances         int     `koanf:"instances" validate:"gte=1"`
	ComputePerHour    float64 `koanf:"compute_per_hour" validate:"gte=0"`
	StorageGB         float64 `koanf:"storage_gb" validate:"gte=0"`
	StoragePerGBMonth float64 `koanf:"storage_per_gb_month" validate:"gte=0"`
	BandwidthPerGB    float64 `koanf:"bandwidth_per_gb" validate:"gte=0"`
	AvgResponseKB     float64 `koanf:"avg_response_kb" validate:"gte=0"`
	Currency          string  `koanf:"currency"`
}

// DefaultCostRates returns typical public cloud list prices.
func DefaultCostRates() CostRates {
	return CostRates{
		Instances:         1,
		ComputePerHour:    0.10,
		StorageGB:         100,
		StoragePerGBMonth: 0.023,
		BandwidthPerGB:    0.09,
		AvgResponseKB:     50,
		Currency:          "USD",
	}
}

// CostAnalysis is a monthly cost estimate.
type CostAnalysis struct {
	Currency          string   `json:"currency"`
	ComputeMonthly    float64  `json:"computeMonthly"`
	StorageMonthly    float64  `json:"storageMonthly"`
	BandwidthMonthly  float64  `json:"bandwidthMonthly"`
	TotalMonthly      float64  `json:"totalMonthly"`
	EfficiencyPct     float64  `json:"efficiencyPct"`
	IdleComputeCost   float64  `json:"idleComputeCost"`
	Recommendations   []string `json:"recommendations"`
	MonthlyRequests   float64  `json:"monthlyRequests"`
	CostPerMillionReq float64  `json:"costPerMillionRequests"`
}

const hoursPerMonth = 730

// BuildCostAnalysis estimates monthly cost from the latest snapshot.
func BuildCostAnalysis(latest *models.Snapshot, rates CostRates) CostAnalysis {
	if rates.Instances < 1 {
		rates.Instances = 1
	}
	c := CostAnalysis{Currency: rates.Currency}
	c.ComputeMonthly = round2(float64(rates.Instances) * hoursPerMonth * rates.ComputePerHour)

	var util, rps, disk float64
	if latest != nil {
		util = latest.Capacity.UtilizationPct
		rps = latest.Performance.ThroughputRPS
		disk = latest.Resources.DiskPct
	}

	c.StorageMonthly = round2(rates.StorageGB * disk / 100 * rates.StoragePerGBMonth)
	c.MonthlyRequests = math.Round(rps * hoursPerMonth * 3600)
	bandwidthGB := c.MonthlyRequests * rates.AvgResponseKB / (1024 * 1024)
	c.BandwidthMonthly = round2(bandwidthGB * rates.BandwidthPerGB)
	c.TotalMonthly = round2(c.ComputeMonthly + c.StorageMonthly + c.BandwidthMonthly)
	c.EfficiencyPct = round2(util)
	c.IdleComputeCost = round2(c.ComputeMonthly * (1 - util/100))
	if c.MonthlyRequests > 0 {
		c.CostPerMillionReq = round2(c.TotalMonthly / c.MonthlyRequests * 1e6)
	}

	switch {
	case util < 30 && rates.Instances > 1:
		c.Recommendations = append(c.Recommendations, "Utilization is below 30%; consider fewer instances")
	case util < 30:
		c.Recommendations = append(c.Recommendations, "Utilization is below 30%; consider a smaller instance size")
	case util > 85:
		c.Recommendations = append(c.Recommendations, "Utilization is above 85%; budget for additional capacity")
	}
	if c.BandwidthMonthly > c.ComputeMonthly {
		c.Recommendations = append(c.Recommendations, "Bandwidth dominates cost; enable compression or a CDN")
	}
	return c
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TrafficForecast is one hourly bucket of a traffic prediction.
type TrafficForecast struct {
	Hour              time.Time `json:"hour"`
	ExpectedRPS       float64   `json:"expectedRps"`
	ExpectedLatencyMs float64   `json:"expectedLatencyMs"`
}

// PredictiveTraffic is produced by the predictive loop.
type PredictiveTraffic struct {
	GeneratedAt      time.Time         `json:"generatedAt"`
	Samples          int               `json:"samples"`
	InsufficientData bool              `json:"insufficientData"`
	Forecast         []TrafficForecast `json:"forecast"`
	PeakHour         *time.Time        `json:"peakHour,omitempty"`
}

// ForecastHours is the number of hourly buckets PredictTraffic produces.
const ForecastHours = 24

// PredictTraffic fits a least-squares line to throughput and latency over
// series and extrapolates hourly buckets after now. It needs
// MinCapacitySamples samples.
func PredictTraffic(series []models.Snapshot, now time.Time) PredictiveTraffic {
	p := PredictiveTraffic{GeneratedAt: now, Samples: len(series), Forecast: []TrafficForecast{}}
	if len(series) < MinCapacitySamples {
		p.InsufficientData = true
		return p
	}

	origin := series[0].Timestamp
	xs := make([]float64, len(series))
	for i := range series {
		xs[i] = series[i].Timestamp.Sub(origin).Hours()
	}
	rpsSlope, rpsIntercept := fitLine(xs, series, Throughput)
	latSlope, latIntercept := fitLine(xs, series, ResponseTime)

	start := now.Truncate(time.Hour)
	peak := -1.0
	for h := 1; h <= ForecastHours; h++ {
		at := start.Add(time.Duration(h) * time.Hour)
		x := at.Sub(origin).Hours()
		f := TrafficForecast{
			Hour:              at,
			ExpectedRPS:       round2(math.Max(0, rpsIntercept+rpsSlope*x)),
			ExpectedLatencyMs: round2(math.Max(0, latIntercept+latSlope*x)),
		}
		if f.ExpectedRPS > peak {
			peak = f.ExpectedRPS
			hour := at
			p.PeakHour = &hour
		}
		p.Forecast = append(p.Forecast, f)
	}
	return p
}

// fitLine returns the least-squares slope and intercept of sel over xs.
func fitLine(xs []float64, series []models.Snapshot, sel Selector) (slope, intercept float64) {
	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		y := sel(&series[i])
		sumX += xs[i]
		sumY += y
		sumXY += xs[i] * y
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// ComplianceTargets are the thresholds BuildComplianceReport checks.
type ComplianceTargets struct {
	AvailabilitySLAPct   float64 `koanf:"availability_sla_pct" validate:"gt=0,lte=100"`
	MinSecurityScore     float64 `koanf:"min_security_score" validate:"gte=0,lte=100"`
	MaxCriticalAlerts    int     `koanf:"max_critical_alerts" validate:"gte=0"`
	MaxP95ResponseTimeMs float64 `koanf:"max_p95_response_time_ms" validate:"gt=0"`
}

// DefaultComplianceTargets returns the default SLA targets.
func DefaultComplianceTargets() ComplianceTargets {
	return ComplianceTargets{
		AvailabilitySLAPct:   99.9,
		MinSecurityScore:     70,
		MaxCriticalAlerts:    0,
		MaxP95ResponseTimeMs: 3000,
	}
}

// ComplianceCheck is one pass/fail line of a compliance report.
type ComplianceCheck struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Actual float64 `json:"actual"`
	Target float64 `json:"target"`
	Detail string  `json:"detail"`
}

// ComplianceReport summarizes SLA conformance over the last day.
type ComplianceReport struct {
	Compliant         bool              `json:"compliant"`
	AvailabilityPct   float64           `json:"availabilityPct"`
	SecurityScore     float64           `json:"securityScore"`
	CriticalAlerts24h int               `json:"criticalAlerts24h"`
	Checks            []ComplianceCheck `json:"checks"`
}

// BuildComplianceReport checks availability, security, critical alert count
// and tail latency against targets. alerts are those triggered in the period.
func BuildComplianceReport(latest *models.Snapshot, window []models.Snapshot, alerts []models.Alert, targets ComplianceTargets) ComplianceReport {
	r := ComplianceReport{AvailabilityPct: snapshot.Availability(window)}
	var p95 float64
	r.SecurityScore = 100
	if latest != nil {
		r.SecurityScore = latest.Security.SecurityScore
		p95 = latest.Performance.P95ResponseTimeMs
	}
	for i := range alerts {
		if alerts[i].Severity == models.SeverityCritical {
			r.CriticalAlerts24h++
		}
	}

	r.Checks = []ComplianceCheck{
		{
			Name:   "availability",
			Passed: r.AvailabilityPct >= targets.AvailabilitySLAPct,
			Actual: r.AvailabilityPct,
			Target: targets.AvailabilitySLAPct,
			Detail: fmt.Sprintf("%.2f%% of ticks error-free (SLA %.2f%%)", r.AvailabilityPct, targets.AvailabilitySLAPct),
		},
		{
			Name:   "security",
			Passed: r.SecurityScore >= targets.MinSecurityScore,
			Actual: r.SecurityScore,
			Target: targets.MinSecurityScore,
			Detail: fmt.Sprintf("security score %.0f (minimum %.0f)", r.SecurityScore, targets.MinSecurityScore),
		},
		{
			Name:   "critical_alerts",
			Passed: r.CriticalAlerts24h <= targets.MaxCriticalAlerts,
			Actual: float64(r.CriticalAlerts24h),
			Target: float64(targets.MaxCriticalAlerts),
			Detail: fmt.Sprintf("%d critical alerts in the last 24h (allowed %d)", r.CriticalAlerts24h, targets.MaxCriticalAlerts),
		},
		{
			Name:   "p95_response_time",
			Passed: p95 <= targets.MaxP95ResponseTimeMs,
			Actual: p95,
			Target: targets.MaxP95ResponseTimeMs,
			Detail: fmt.Sprintf("p95 response time %.0fms (limit %.0fms)", p95, targets.MaxP95ResponseTimeMs),
		},
	}

	r.Compliant = true
	for _, c := range r.Checks {
		if !c.Passed {
			r.Compliant = false
			break
		}
	}
	return r
}
