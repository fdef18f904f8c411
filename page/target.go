package page

import (
	"fmt"
	"net/url"
	"strings"
)

// kindRank orders link kinds for target resolution. Lower is better.
// Plain links are never candidates.
var kindRank = map[string]int{
	"cta":       0,
	"affiliate": 1,
	"tracking":  2,
	"redirect":  3,
}

// ResolveTarget resolves the conversion target for a build.
//
// Resolution order, first non-empty wins:
//  1. explicit caller override
//  2. the value the analysis extracted
//  3. the best-ranked scanned link (cta > affiliate > tracking > redirect)
//
// The winner must be a syntactic URL; anything else is an input error
// and the pipeline must not proceed.
func ResolveTarget(override string, a *Analysis) (ConversionTarget, error) {
	candidate := strings.TrimSpace(override)
	if candidate == "" && a != nil {
		candidate = strings.TrimSpace(a.Target.TrackingURL)
	}
	if candidate == "" && a != nil {
		candidate = bestLink(a.Links)
	}
	if candidate == "" {
		return ConversionTarget{}, fmt.Errorf("page: no conversion target: no override, no analysis value, no rankable link")
	}
	if err := checkURL(candidate); err != nil {
		return ConversionTarget{}, err
	}
	return ConversionTarget{TrackingURL: candidate}, nil
}

func bestLink(links []DetectedLink) string {
	best := ""
	bestRank := len(kindRank)
	for _, l := range links {
		rank, ok := kindRank[l.Kind]
		if !ok || l.URL == "" {
			continue
		}
		if rank < bestRank {
			best = l.URL
			bestRank = rank
		}
	}
	return best
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("page: conversion target %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("page: conversion target %q is not an absolute URL", raw)
	}
	return nil
}
