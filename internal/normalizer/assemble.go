package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

// metricAliases maps each canonical metric to its platform spellings in
// priority order.
var metricAliases = []struct {
	name    string
	aliases []string
}{
	{"likes", []string{"like_count", "likes", "numLikes", "favorite_count", "reactions_count", "likeCount"}},
	{"comments", []string{"comment_count", "comments_count", "numComments", "reply_count", "commentCount"}},
	{"shares", []string{"share_count", "shares", "numShares", "retweet_count", "shareCount"}},
	{"views", []string{"view_count", "views", "video_views", "play_count"}},
	{"impressions", []string{"impressions", "impression_count", "impressionCount"}},
	{"reach", []string{"reach", "unique_impressions"}},
	{"quotes", []string{"quote_count"}},
	{"saves", []string{"saved", "save_count"}},
	{"clicks", []string{"clicks", "click_count", "clickCount"}},
}

// extractMetrics coalesces engagement counters. For each metric the first
// source holding a numeric alias wins; non-numeric values are skipped.
func extractMetrics(sources []payload.Value) map[string]int64 {
	out := make(map[string]int64)

	for _, m := range metricAliases {
	lookup:
		for _, src := range sources {
			if src.Map() == nil {
				continue
			}
			for _, alias := range m.aliases {
				if n, ok := src.Get(alias).Int(); ok {
					out[m.name] = n
					break lookup
				}
			}
		}
	}

	return out
}

// compact drops absent values at every depth so no emitted map carries a
// null. A nil input becomes an empty map.
func compact(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if cleaned, ok := strip(v); ok {
			out[k] = cleaned
		}
	}
	return out
}

func strip(v interface{}) (interface{}, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case payload.Value:
		if !x.Exists() {
			return nil, false
		}
		return strip(x.Raw())
	case map[string]interface{}:
		return compact(x), true
	case []interface{}:
		list := make([]interface{}, 0, len(x))
		for _, item := range x {
			if cleaned, ok := strip(item); ok {
				list = append(list, cleaned)
			}
		}
		return list, true
	default:
		return v, true
	}
}
