package search

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/Roguelazer/advsearch/pkg/core"
)

// Merge combines per-provider result lists into the single page shown to
// the user. Every record is tagged with its originating provider name, the
// lists are concatenated in sorted provider order, stably sorted by score
// descending (ties retain input order) and truncated to perPage records.
func Merge(resultMap map[string][]core.Result, perPage int) []core.Result {
	names := make([]string, 0, len(resultMap))
	for name := range resultMap {
		names = append(names, name)
	}
	sort.Strings(names)

	var all []core.Result
	for _, name := range names {
		for _, result := range resultMap[name] {
			result.Backend = name
			all = append(all, result)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Score > all[j].Score
	})

	if perPage > 0 && len(all) > perPage {
		all = all[:perPage]
	}
	return all
}

// ResolveLinks fills in each record's display link based on its source.
// Wiki results link to the page by title, ticket results to the ticket by
// number. Other sources are left without a link.
func ResolveLinks(results []core.Result, siteURL string) {
	for i := range results {
		switch results[i].Source {
		case "wiki":
			results[i].Href = siteURL + "/wiki/" + url.PathEscape(results[i].Title)
		case "ticket":
			if results[i].TicketID > 0 {
				results[i].Href = siteURL + "/ticket/" + strconv.Itoa(results[i].TicketID)
			}
		}
	}
}
