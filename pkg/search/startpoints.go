package search

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/Roguelazer/advsearch/pkg/core"
)

// startPointParam is the request parameter shape for one provider's cursor.
const startPointParam = "provider_start_point:%s"

// StartPointName returns the request parameter name carrying the given
// provider's start point.
func StartPointName(provider string) string {
	return fmt.Sprintf(startPointParam, provider)
}

// ParseStartPoints reads the per-provider consumed-result offsets from
// request parameters. Missing or malformed values default to 0.
func ParseStartPoints(values url.Values, providerNames []string) map[string]int {
	startPoints := make(map[string]int, len(providerNames))
	for _, name := range providerNames {
		startPoints[name] = 0
		if raw := values.Get(StartPointName(name)); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
				startPoints[name] = parsed
			}
		}
	}
	return startPoints
}

// AdvanceStartPoints recomputes the cursors after a merged page has been
// cut: each provider's offset advances by the number of its own records on
// the page. Providers absent from the page keep their prior offset.
func AdvanceStartPoints(page []core.Result, prev map[string]int) map[string]int {
	next := make(map[string]int, len(prev))
	for name, offset := range prev {
		next[name] = offset
	}
	for _, result := range page {
		next[result.Backend]++
	}
	return next
}

// startPointPair is the interchange shape the frontend re-submits as
// request parameters on the next request.
type startPointPair struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// FormatStartPoints serializes the cursors as a compact JSON list of
// {name, value} pairs, sorted by provider name so the output is stable.
func FormatStartPoints(startPoints map[string]int) (string, error) {
	names := make([]string, 0, len(startPoints))
	for name := range startPoints {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]startPointPair, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, startPointPair{
			Name:  StartPointName(name),
			Value: startPoints[name],
		})
	}

	data, err := json.Marshal(pairs)
	if err != nil {
		return "", fmt.Errorf("marshaling start points: %w", err)
	}
	return string(data), nil
}
