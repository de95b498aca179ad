package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

var twitterRules = []rule{
	{has("tweet_create_events.0.retweeted_status"), "retweet_created"},
	{has("tweet_create_events.0.quoted_status"), "quote_created"},
	{has("tweet_create_events.0.in_reply_to_status_id_str"), "reply_created"},
	{has("tweet_create_events"), "tweet_created"},
	{has("tweet_delete_events"), "tweet_deleted"},
	{has("favorite_events"), "tweet_favorited"},
	{equals("follow_events.0.type", "unfollow"), "user_unfollowed"},
	{has("follow_events"), "user_followed"},
	{equals("block_events.0.type", "unblock"), "user_unblocked"},
	{has("block_events"), "user_blocked"},
	{equals("mute_events.0.type", "unmute"), "user_unmuted"},
	{has("mute_events"), "user_muted"},
	{has("direct_message_events"), "direct_message_received"},
	{has("direct_message_indicate_typing_events"), "direct_message_typing"},
	{has("direct_message_mark_read_events"), "direct_message_read"},
	{has("user_event.revoke"), "user_revoked"},
}

type twitter struct{}

func (twitter) Platform() domain.Platform { return domain.PlatformTwitter }

func (twitter) View(root payload.Value) payload.Value { return root }

func (twitter) EventType(v payload.Value) string {
	return classify(v, twitterRules)
}

func (twitter) ObjectType(v payload.Value) string {
	switch {
	case v.Has("tweet_create_events"), v.Has("tweet_delete_events"), v.Has("favorite_events"):
		return "tweet"
	case v.Has("follow_events"), v.Has("block_events"), v.Has("mute_events"), v.Has("user_event.revoke"):
		return "user"
	case v.Has("direct_message_events"),
		v.Has("direct_message_indicate_typing_events"),
		v.Has("direct_message_mark_read_events"):
		return "direct_message"
	default:
		return domain.EventTypeUnknown
	}
}

func (twitter) ObjectID(v payload.Value) string {
	return firstString(v,
		"tweet_create_events.0.id_str",
		"tweet_delete_events.0.status.id",
		"favorite_events.0.favorited_status.id_str",
		"follow_events.0.target.id",
		"block_events.0.target.id",
		"mute_events.0.target.id",
		"direct_message_events.0.id",
		"user_event.revoke.source.user_id",
		"for_user_id",
	)
}

func (twitter) EventID(v payload.Value) string {
	return firstString(v,
		"tweet_create_events.0.id_str",
		"favorite_events.0.id",
		"direct_message_events.0.id",
		"tweet_delete_events.0.status.id",
	)
}

func (twitter) UserInfo(v payload.Value) map[string]interface{} {
	user := v.First(
		"tweet_create_events.0.user",
		"favorite_events.0.user",
		"follow_events.0.source",
		"block_events.0.source",
		"mute_events.0.source",
	)

	return map[string]interface{}{
		"id":              user.First("id_str", "id", "user_id"),
		"screen_name":     user.Get("screen_name"),
		"name":            user.Get("name"),
		"followers_count": user.Get("followers_count"),
		"verified":        user.Get("verified"),
		"sender_id":       v.Get("direct_message_events.0.message_create.sender_id"),
	}
}

func (twitter) ContentInfo(v payload.Value) map[string]interface{} {
	tweet := v.First("tweet_create_events.0", "favorite_events.0.favorited_status")

	return map[string]interface{}{
		"text":       tweet.Get("text"),
		"full_text":  tweet.First("extended_tweet.full_text", "full_text"),
		"lang":       tweet.Get("lang"),
		"created_at": tweet.Get("created_at"),
		"hashtags":   tweet.Get("entities.hashtags"),
		"urls":       tweet.Get("entities.urls"),
		"message":    v.Get("direct_message_events.0.message_create.message_data.text"),
	}
}

func (twitter) MetricSources(v payload.Value) []payload.Value {
	return []payload.Value{
		v.Get("tweet_create_events.0"),
		v.Get("tweet_create_events.0.public_metrics"),
		v.Get("favorite_events.0.favorited_status"),
	}
}
