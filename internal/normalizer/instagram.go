package normalizer

import (
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

var instagramRules = []rule{
	{truthy("messaging.0.message.is_deleted"), "message_deleted"},
	{truthy("messaging.0.message.is_echo"), "message_echo"},
	{has("messaging.0.message"), "message_received"},
	{has("messaging.0.reaction"), "message_reaction"},
	{has("messaging.0.read"), "message_read"},
	{has("messaging.0.postback"), "postback_received"},
	{has("messaging.0.referral"), "referral_received"},

	{field("comments"), "comment_created"},
	{field("live_comments"), "live_comment_created"},
	{allOf(field("mentions"), has("value.comment_id")), "comment_mention_created"},
	{field("mentions"), "mention_created"},
	{field("story_insights"), "story_insights_updated"},
	{allOf(field("media"), verb("remove", "removed", "delete")), "media_removed"},
	{allOf(field("media"), verb("edited", "update")), "media_updated"},
	{allOf(field("media"), anyOf(verb("add"), has("value.media_id"))), "media_added"},
	{field("messages"), "message_received"},
	{field("message_reactions"), "message_reaction"},
	{field("messaging_seen"), "message_read"},
	{field("messaging_postbacks"), "postback_received"},
	{field("messaging_referral"), "referral_received"},
	{field("standby"), "standby_received"},
}

var instagramMessageFields = []string{
	"messages", "message_reactions", "messaging_seen", "messaging_postbacks", "messaging_referral", "standby",
}

type instagram struct{}

func (instagram) Platform() domain.Platform { return domain.PlatformInstagram }

func (instagram) View(root payload.Value) payload.Value { return metaView(root) }

func (instagram) EventType(v payload.Value) string {
	return classify(v, instagramRules)
}

func (instagram) ObjectType(v payload.Value) string {
	switch {
	case v.Has("messaging.0"), v.Get("field").OneOf(instagramMessageFields...):
		return "message"
	case v.Get("field").OneOf("comments", "live_comments"):
		return "comment"
	case v.Get("field").Equals("mentions"):
		return "mention"
	case v.Get("field").Equals("story_insights"):
		return "story"
	case v.Get("field").Equals("media"):
		return "media"
	default:
		return domain.EventTypeUnknown
	}
}

func (instagram) ObjectID(v payload.Value) string {
	return firstString(v,
		"value.comment_id",
		"value.media_id",
		"value.media.id",
		"value.id",
		"messaging.0.message.mid",
		"entry.0.id",
	)
}

func (instagram) EventID(v payload.Value) string {
	return firstString(v,
		"messaging.0.message.mid",
		"value.id",
		"value.comment_id",
		"value.media_id",
	)
}

func (instagram) UserInfo(v payload.Value) map[string]interface{} {
	return map[string]interface{}{
		"id":       v.First("value.from.id", "messaging.0.sender.id"),
		"username": v.Get("value.from.username"),
	}
}

func (instagram) ContentInfo(v payload.Value) map[string]interface{} {
	return map[string]interface{}{
		"text":               v.First("value.text", "messaging.0.message.text"),
		"media_product_type": v.Get("value.media.media_product_type"),
		"media_type":         v.Get("value.media_type"),
		"caption":            v.Get("value.caption"),
		"permalink":          v.Get("value.permalink"),
		"verb":               v.Get("value.verb"),
	}
}

func (instagram) MetricSources(v payload.Value) []payload.Value {
	return []payload.Value{v.Get("value"), v.Get("value.media")}
}
