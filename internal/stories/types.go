package stories

import "time"

// Cache keys used by the engine.
const (
	snapshotKey = "preprocessed_top_stories"
	idListKey   = "beststories_ids"
)

// Story is the published story record.
type Story struct {
	Title        string `json:"title"`
	URI          string `json:"uri"`
	PostedBy     string `json:"postedBy"`
	Time         string `json:"time"`
	Score        int    `json:"score"`
	CommentCount int    `json:"commentCount"`
}

// Snapshot is the pre-processed top-story list, published atomically by
// the warmer and replaced in whole by the next successful warmup.
type Snapshot struct {
	Stories      []Story   `json:"stories"`
	CachedAt     time.Time `json:"cachedAt"`
	TotalStories int       `json:"totalStories"`
}
