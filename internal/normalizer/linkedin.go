package normalizer

import (
	"strings"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

func updateType(path string, values ...string) func(payload.Value) bool {
	return equals(path+".updateType", values...)
}

func action(actions ...string) func(payload.Value) bool {
	return func(v payload.Value) bool {
		return v.First("action", "notifications.0.action").OneOf(actions...)
	}
}

var linkedinRules = []rule{
	{updateType("commentUpdate", "CREATED"), "comment_created"},
	{updateType("commentUpdate", "UPDATED"), "comment_updated"},
	{updateType("commentUpdate", "DELETED"), "comment_deleted"},
	{updateType("likeUpdate", "CREATED"), "liked"},
	{updateType("likeUpdate", "DELETED"), "unliked"},
	{updateType("followerUpdate", "CREATED"), "follower_gained"},
	{updateType("followerUpdate", "DELETED"), "follower_lost"},
	{has("messageUpdate"), "message_received"},
	{action("LIKE"), "liked"},
	{action("COMMENT"), "commented"},
	{action("ADMIN_COMMENT"), "admin_commented"},
	{action("COMMENT_EDIT"), "comment_updated"},
	{action("COMMENT_DELETE"), "comment_deleted"},
	{action("SHARE"), "shared"},
	{action("SHARE_MENTION"), "mentioned"},
	{action("PHOTO_MENTION"), "photo_mentioned"},
}

// shareUpdateTypes maps the updateType of post updates.
var shareUpdateTypes = map[string]string{
	"CREATED": "created",
	"UPDATED": "updated",
	"DELETED": "deleted",
}

type linkedin struct{}

func (linkedin) Platform() domain.Platform { return domain.PlatformLinkedIn }

func (linkedin) View(root payload.Value) payload.Value { return root }

func (linkedin) EventType(v payload.Value) string {
	for _, path := range []string{"shareUpdate.updateType", "ugcPostUpdate.updateType"} {
		if t, ok := shareUpdateTypes[strings.ToUpper(v.Get(path).Str())]; ok {
			return t
		}
	}

	if t := classify(v, linkedinRules); t != domain.EventTypeUnknown {
		return t
	}

	if t := v.Get("eventType").Str(); t != "" {
		return strings.ToLower(t)
	}
	return domain.EventTypeUnknown
}

func (linkedin) ObjectType(v payload.Value) string {
	switch {
	case v.Has("shareUpdate"), v.Has("ugcPostUpdate"), v.Has("likeUpdate"),
		action("LIKE", "SHARE", "SHARE_MENTION", "PHOTO_MENTION")(v):
		return "post"
	case v.Has("commentUpdate"),
		action("COMMENT", "ADMIN_COMMENT", "COMMENT_EDIT", "COMMENT_DELETE")(v):
		return "comment"
	case v.Has("followerUpdate"):
		return "organization"
	case v.Has("messageUpdate"):
		return "message"
	default:
		return domain.EventTypeUnknown
	}
}

func (linkedin) ObjectID(v payload.Value) string {
	return firstString(v,
		"shareUpdate.shareId",
		"ugcPostUpdate.ugcPostId",
		"commentUpdate.commentId",
		"likeUpdate.objectId",
		"messageUpdate.messageId",
		"notifications.0.sourcePost",
		"sourcePost",
		"followerUpdate.organizationId",
		"organizationalEntity",
		"id",
	)
}

func (linkedin) EventID(v payload.Value) string {
	return firstString(v,
		"notificationId",
		"notifications.0.notificationId",
		"id",
	)
}

func (linkedin) UserInfo(v payload.Value) map[string]interface{} {
	return map[string]interface{}{
		"id": v.First(
			"actor",
			"notifications.0.actor",
			"shareUpdate.actor",
			"shareUpdate.author",
			"ugcPostUpdate.author",
			"commentUpdate.actor",
			"commentUpdate.author",
			"likeUpdate.actor",
			"followerUpdate.actor",
			"messageUpdate.author",
		),
	}
}

func (linkedin) ContentInfo(v payload.Value) map[string]interface{} {
	return map[string]interface{}{
		"text":             v.Get("shareUpdate.text"),
		"commentary":       v.First("shareUpdate.commentary", "ugcPostUpdate.commentary"),
		"comment":          v.Get("commentUpdate.message.text"),
		"last_modified_at": v.Get("lastModifiedAt"),
		"created_at":       v.Get("createdAt"),
	}
}

func (linkedin) MetricSources(v payload.Value) []payload.Value {
	return []payload.Value{
		v,
		v.Get("shareUpdate.statistics"),
		v.Get("ugcPostUpdate.statistics"),
		v.Get("totalShareStatistics"),
	}
}
