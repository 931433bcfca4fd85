package instances

import (
	"gonum.org/v1/gonum/stat"

	"github.com/MrSnakeDoc/bestmirror/internal/domain"
)

// DefaultMinHealth is the minimum mean daily uptime (percent) an instance needs.
const DefaultMinHealth = 99.0

// Filter keeps monitored https instances whose monitor reports success and whose
// mean daily uptime is at least minHealth. The list is walked from the end,
// so the newest entries come first.
func Filter(list InstancesList, minHealth float64) []domain.Endpoint {
	endpoints := make([]domain.Endpoint, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		d := list[i].Details
		if !Healthy(d, minHealth) {
			continue
		}
		ep := domain.ParseEndpoint(d.URI)
		if ep == "" {
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints
}

// Healthy applies the per-instance predicate. An instance without any daily
// ratio has no health record and is rejected.
func Healthy(d Details, minHealth float64) bool {
	if d.Monitor == nil || d.Type != "https" {
		return false
	}
	if d.Monitor.StatusClass != "success" {
		return false
	}
	if len(d.Monitor.DailyRatios) == 0 {
		return false
	}
	return meanRatio(d.Monitor.DailyRatios) >= minHealth
}

func meanRatio(ratios []DailyRatio) float64 {
	values := make([]float64, len(ratios))
	for i, r := range ratios {
		values[i] = float64(r.Ratio)
	}
	return stat.Mean(values, nil)
}
