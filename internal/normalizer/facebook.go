package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

var pageFields = []string{"name", "picture", "description", "about", "website", "phone", "email", "category"}

func feed(items ...string) func(payload.Value) bool {
	if len(items) == 0 {
		return field("feed")
	}
	return allOf(field("feed"), equals("value.item", items...))
}

func verb(verbs ...string) func(payload.Value) bool {
	return equals("value.verb", verbs...)
}

var facebookRules = []rule{
	{truthy("messaging.0.message.is_echo"), "message_echo"},
	{has("messaging.0.message"), "message_received"},
	{has("messaging.0.delivery"), "message_delivered"},
	{has("messaging.0.read"), "message_read"},
	{has("messaging.0.postback"), "postback_received"},
	{has("messaging.0.reaction"), "message_reaction"},
	{has("messaging.0.optin"), "optin_received"},
	{has("messaging.0.referral"), "referral_received"},

	{allOf(feed("comment"), verb("add")), "comment_created"},
	{allOf(feed("comment"), verb("edited")), "comment_updated"},
	{allOf(feed("comment"), verb("remove", "removed")), "comment_deleted"},
	{allOf(feed("comment"), verb("hide")), "comment_hidden"},
	{allOf(feed("comment"), verb("unhide")), "comment_unhidden"},
	{allOf(feed("reaction"), verb("add")), "reaction_added"},
	{allOf(feed("reaction"), verb("edit", "edited")), "reaction_updated"},
	{allOf(feed("reaction"), verb("remove", "removed")), "reaction_removed"},
	{allOf(feed("like"), verb("add")), "like_added"},
	{allOf(feed("like"), verb("remove", "removed")), "like_removed"},
	{feed("share"), "share_created"},
	{allOf(feed(), verb("edited")), "post_updated"},
	{allOf(feed(), verb("remove", "removed")), "post_deleted"},
	{allOf(feed(), verb("hide")), "post_hidden"},
	{allOf(feed(), anyOf(verb("add"), allOf(has("value.post_id"), has("value.created_time")))), "post_created"},

	{field("mention"), "mention_created"},
	{allOf(field("ratings"), verb("add")), "rating_created"},
	{allOf(field("ratings"), verb("edited")), "rating_updated"},
	{allOf(field("ratings"), verb("remove")), "rating_deleted"},
	{allOf(field("live_videos"), equals("value.status", "live")), "live_video_started"},
	{allOf(field("live_videos"), equals("value.status", "live_stopped")), "live_video_ended"},
	{field("live_videos"), "live_video_updated"},
	{field("videos"), "video_updated"},
	{field("photos"), "photo_updated"},
	{field("leadgen"), "lead_created"},
	{field("conversations"), "conversation_updated"},
	{field(pageFields...), "page_updated"},
}

type facebook struct{}

func (facebook) Platform() domain.Platform { return domain.PlatformFacebook }

func (facebook) View(root payload.Value) payload.Value { return metaView(root) }

func (facebook) EventType(v payload.Value) string {
	return classify(v, facebookRules)
}

func (facebook) ObjectType(v payload.Value) string {
	switch {
	case v.Has("messaging.0"):
		return "message"
	case v.Get("value.item").Equals("reaction"):
		return "reaction"
	case v.Get("value.item").Equals("like"):
		return "like"
	case v.Get("value.item").Equals("share"):
		return "share"
	case v.Has("value.comment_id"), v.Get("value.item").Equals("comment"):
		return "comment"
	case v.Has("value.leadgen_id"), v.Get("field").Equals("leadgen"):
		return "lead"
	case v.Has("value.video_id"), v.Get("field").OneOf("videos", "live_videos"):
		return "video"
	case v.Has("value.photo_id"), v.Get("field").Equals("photos"):
		return "photo"
	case v.Has("value.post_id"), v.Get("field").Equals("feed"):
		return "post"
	case v.Get("field").Equals("ratings"):
		return "rating"
	case v.Get("field").Equals("conversations"):
		return "conversation"
	case v.Get("field").OneOf(pageFields...):
		return "page"
	default:
		return domain.EventTypeUnknown
	}
}

func (facebook) ObjectID(v payload.Value) string {
	return firstString(v,
		"value.comment_id",
		"value.reaction_id",
		"value.leadgen_id",
		"value.video_id",
		"value.photo_id",
		"value.post_id",
		"value.thread_id",
		"messaging.0.message.mid",
		"messaging.0.postback.mid",
		"entry.0.id",
	)
}

func (facebook) EventID(v payload.Value) string {
	return firstString(v,
		"messaging.0.message.mid",
		"value.comment_id",
		"value.post_id",
		"value.event_id",
	)
}

func (facebook) UserInfo(v payload.Value) map[string]interface{} {
	return map[string]interface{}{
		"id":   v.First("value.from.id", "messaging.0.sender.id", "value.sender_id"),
		"name": v.First("value.from.name", "value.sender_name"),
	}
}

func (facebook) ContentInfo(v payload.Value) map[string]interface{} {
	return map[string]interface{}{
		"message":       v.Get("value.message"),
		"text":          v.Get("messaging.0.message.text"),
		"attachments":   v.Get("messaging.0.message.attachments"),
		"link":          v.Get("value.link"),
		"photo":         v.Get("value.photo"),
		"video":         v.Get("value.video"),
		"item":          v.Get("value.item"),
		"verb":          v.Get("value.verb"),
		"reaction_type": v.Get("value.reaction_type"),
		"created_time":  v.Get("value.created_time"),
		"published":     v.Get("value.published"),
	}
}

func (facebook) MetricSources(v payload.Value) []payload.Value {
	return []payload.Value{v.Get("value")}
}
