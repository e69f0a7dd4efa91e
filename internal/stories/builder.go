package stories

import (
	"sort"
	"time"

	"github.com/hnpulse/hnpulse/internal/hn"
)

// timeLayout always carries a numeric zone offset, unlike RFC3339 which
// shortens UTC to "Z".
const timeLayout = "2006-01-02T15:04:05-07:00"

// Build filters raw items down to scored stories, ordered by score with
// the highest first. Ties keep input order. The full list is returned;
// truncation happens at read time so one snapshot serves any n.
func Build(items []hn.Item) []Story {
	built := make([]Story, 0, len(items))
	for _, it := range items {
		if it.Type != "story" || it.Score == nil {
			continue
		}
		built = append(built, project(it))
	}
	sort.SliceStable(built, func(i, j int) bool {
		return built[i].Score > built[j].Score
	})
	return built
}

func project(it hn.Item) Story {
	var ts string
	if it.Time != 0 {
		ts = time.Unix(it.Time, 0).Format(timeLayout)
	}
	return Story{
		Title:        it.Title,
		URI:          it.URL,
		PostedBy:     it.By,
		Time:         ts,
		Score:        *it.Score,
		CommentCount: it.Descendants,
	}
}
