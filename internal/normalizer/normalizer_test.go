package normalizer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/payload"
)

func extract(t *testing.T, platform domain.Platform, body string) domain.Envelope {
	t.Helper()
	n, err := For(platform)
	require.NoError(t, err)
	return n.Extract(payload.Parse([]byte(body)))
}

func normalize(t *testing.T, platform domain.Platform, body string) *domain.NormalizedEvent {
	t.Helper()
	n, err := For(platform)
	require.NoError(t, err)
	return n.Normalize(&domain.WebhookEvent{
		ID:              uuid.New(),
		SocialAccountID: uuid.New(),
		Platform:        platform,
		Payload:         json.RawMessage(body),
		ReceivedAt:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
}

func fbChange(field, value string) string {
	return `{"object":"page","entry":[{"id":"page-1","time":1,"changes":[{"field":"` + field + `","value":` + value + `}]}]}`
}

func fbMessaging(event string) string {
	return `{"object":"page","entry":[{"id":"page-1","time":1,"messaging":[` + event + `]}]}`
}

func TestFacebook_EventType(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		eventType  string
		objectType string
		objectID   string
	}{
		{
			name:       "post created",
			body:       `{"entry":[{"id":"1","changes":[{"field":"feed","value":{"post_id":"p1","verb":"add","item":"status"}}]}]}`,
			eventType:  "post_created",
			objectType: "post",
			objectID:   "p1",
		},
		{
			name:       "post created from post_id and created_time",
			body:       fbChange("feed", `{"post_id":"p2","created_time":1700000000}`),
			eventType:  "post_created",
			objectType: "post",
			objectID:   "p2",
		},
		{
			name:       "post edited",
			body:       fbChange("feed", `{"post_id":"p1","verb":"edited","item":"status"}`),
			eventType:  "post_updated",
			objectType: "post",
			objectID:   "p1",
		},
		{
			name:       "post removed",
			body:       fbChange("feed", `{"post_id":"p1","verb":"remove","item":"post"}`),
			eventType:  "post_deleted",
			objectType: "post",
			objectID:   "p1",
		},
		{
			name:       "post hidden",
			body:       fbChange("feed", `{"post_id":"p1","verb":"hide","item":"status"}`),
			eventType:  "post_hidden",
			objectType: "post",
			objectID:   "p1",
		},
		{
			name:       "comment added",
			body:       fbChange("feed", `{"item":"comment","verb":"add","comment_id":"c1","post_id":"p1"}`),
			eventType:  "comment_created",
			objectType: "comment",
			objectID:   "c1",
		},
		{
			name:       "comment edited",
			body:       fbChange("feed", `{"item":"comment","verb":"edited","comment_id":"c1"}`),
			eventType:  "comment_updated",
			objectType: "comment",
			objectID:   "c1",
		},
		{
			name:       "comment removed",
			body:       fbChange("feed", `{"item":"comment","verb":"removed","comment_id":"c1"}`),
			eventType:  "comment_deleted",
			objectType: "comment",
			objectID:   "c1",
		},
		{
			name:       "comment hidden",
			body:       fbChange("feed", `{"item":"comment","verb":"hide","comment_id":"c1"}`),
			eventType:  "comment_hidden",
			objectType: "comment",
			objectID:   "c1",
		},
		{
			name:       "comment unhidden",
			body:       fbChange("feed", `{"item":"comment","verb":"unhide","comment_id":"c1"}`),
			eventType:  "comment_unhidden",
			objectType: "comment",
			objectID:   "c1",
		},
		{
			name:       "reaction added",
			body:       fbChange("feed", `{"item":"reaction","verb":"add","reaction_type":"love","post_id":"p1"}`),
			eventType:  "reaction_added",
			objectType: "reaction",
			objectID:   "p1",
		},
		{
			name:       "reaction edited",
			body:       fbChange("feed", `{"item":"reaction","verb":"edit","post_id":"p1"}`),
			eventType:  "reaction_updated",
			objectType: "reaction",
			objectID:   "p1",
		},
		{
			name:       "reaction removed",
			body:       fbChange("feed", `{"item":"reaction","verb":"remove","post_id":"p1"}`),
			eventType:  "reaction_removed",
			objectType: "reaction",
			objectID:   "p1",
		},
		{
			name:       "like added",
			body:       fbChange("feed", `{"item":"like","verb":"add","post_id":"p1"}`),
			eventType:  "like_added",
			objectType: "like",
			objectID:   "p1",
		},
		{
			name:       "like removed",
			body:       fbChange("feed", `{"item":"like","verb":"remove","post_id":"p1"}`),
			eventType:  "like_removed",
			objectType: "like",
			objectID:   "p1",
		},
		{
			name:       "share",
			body:       fbChange("feed", `{"item":"share","verb":"add","post_id":"p1","share_id":"s1"}`),
			eventType:  "share_created",
			objectType: "share",
			objectID:   "p1",
		},
		{
			name:       "mention",
			body:       fbChange("mention", `{"post_id":"p9","verb":"add"}`),
			eventType:  "mention_created",
			objectType: "post",
			objectID:   "p9",
		},
		{
			name:       "rating added",
			body:       fbChange("ratings", `{"verb":"add","rating":5}`),
			eventType:  "rating_created",
			objectType: "rating",
			objectID:   "page-1",
		},
		{
			name:       "rating edited",
			body:       fbChange("ratings", `{"verb":"edited"}`),
			eventType:  "rating_updated",
			objectType: "rating",
			objectID:   "page-1",
		},
		{
			name:       "rating removed",
			body:       fbChange("ratings", `{"verb":"remove"}`),
			eventType:  "rating_deleted",
			objectType: "rating",
			objectID:   "page-1",
		},
		{
			name:       "live video started",
			body:       fbChange("live_videos", `{"id":"lv1","status":"live"}`),
			eventType:  "live_video_started",
			objectType: "video",
			objectID:   "page-1",
		},
		{
			name:       "live video stopped",
			body:       fbChange("live_videos", `{"id":"lv1","status":"live_stopped"}`),
			eventType:  "live_video_ended",
			objectType: "video",
			objectID:   "page-1",
		},
		{
			name:       "live video other status",
			body:       fbChange("live_videos", `{"id":"lv1","status":"vod"}`),
			eventType:  "live_video_updated",
			objectType: "video",
			objectID:   "page-1",
		},
		{
			name:       "video",
			body:       fbChange("videos", `{"video_id":"v1","status":{"video_status":"ready"}}`),
			eventType:  "video_updated",
			objectType: "video",
			objectID:   "v1",
		},
		{
			name:       "photo",
			body:       fbChange("photos", `{"photo_id":"ph1"}`),
			eventType:  "photo_updated",
			objectType: "photo",
			objectID:   "ph1",
		},
		{
			name:       "leadgen",
			body:       fbChange("leadgen", `{"leadgen_id":"l1","form_id":"f1"}`),
			eventType:  "lead_created",
			objectType: "lead",
			objectID:   "l1",
		},
		{
			name:       "conversation",
			body:       fbChange("conversations", `{"thread_id":"t1"}`),
			eventType:  "conversation_updated",
			objectType: "conversation",
			objectID:   "t1",
		},
		{
			name:       "page field",
			body:       fbChange("website", `{"website":"https://example.com"}`),
			eventType:  "page_updated",
			objectType: "page",
			objectID:   "page-1",
		},
		{
			name:       "message",
			body:       fbMessaging(`{"sender":{"id":"u1"},"recipient":{"id":"page-1"},"message":{"mid":"m1","text":"hi"}}`),
			eventType:  "message_received",
			objectType: "message",
			objectID:   "m1",
		},
		{
			name:       "message echo",
			body:       fbMessaging(`{"message":{"mid":"m2","is_echo":true}}`),
			eventType:  "message_echo",
			objectType: "message",
			objectID:   "m2",
		},
		{
			name:       "delivery",
			body:       fbMessaging(`{"delivery":{"mids":["m1"],"watermark":1}}`),
			eventType:  "message_delivered",
			objectType: "message",
			objectID:   "page-1",
		},
		{
			name:       "read",
			body:       fbMessaging(`{"read":{"watermark":1}}`),
			eventType:  "message_read",
			objectType: "message",
			objectID:   "page-1",
		},
		{
			name:       "postback",
			body:       fbMessaging(`{"postback":{"mid":"pb1","payload":"GET_STARTED"}}`),
			eventType:  "postback_received",
			objectType: "message",
			objectID:   "pb1",
		},
		{
			name:       "reaction",
			body:       fbMessaging(`{"reaction":{"mid":"m1","action":"react"}}`),
			eventType:  "message_reaction",
			objectType: "message",
			objectID:   "page-1",
		},
		{
			name:       "optin",
			body:       fbMessaging(`{"optin":{"ref":"x"}}`),
			eventType:  "optin_received",
			objectType: "message",
			objectID:   "page-1",
		},
		{
			name:       "referral",
			body:       fbMessaging(`{"referral":{"ref":"ad"}}`),
			eventType:  "referral_received",
			objectType: "message",
			objectID:   "page-1",
		},
		{
			name:       "unrecognized field",
			body:       fbChange("something_new", `{"x":1}`),
			eventType:  "unknown",
			objectType: "unknown",
			objectID:   "page-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := extract(t, domain.PlatformFacebook, tt.body)
			assert.Equal(t, tt.eventType, env.EventType)
			assert.Equal(t, tt.objectType, env.ObjectType)
			assert.Equal(t, tt.objectID, env.ObjectID)
		})
	}
}

func TestFacebook_Normalize(t *testing.T) {
	body := fbChange("feed", `{
		"item":"comment","verb":"add","comment_id":"c1","post_id":"p1",
		"from":{"id":"u1","name":"Ana"},"message":"nice","created_time":1700000000,
		"like_count":"12","comment_count":3,"reactions_count":"n/a","parent_id":null
	}`)

	ev := normalize(t, domain.PlatformFacebook, body)

	assert.Equal(t, "comment_created", ev.EventType)
	assert.Equal(t, "c1", ev.PlatformEventID)
	assert.Equal(t, "u1", ev.UserInfo["id"])
	assert.Equal(t, "Ana", ev.UserInfo["name"])
	assert.Equal(t, "nice", ev.ContentInfo["message"])
	assert.Equal(t, map[string]int64{"likes": 12, "comments": 3}, ev.EngagementMetrics)
	assert.NotContains(t, ev.ContentInfo, "link")
	assert.NotContains(t, ev.ContentInfo, "text")
}

func TestInstagram_EventType(t *testing.T) {
	igChange := func(field, value string) string {
		return `{"object":"instagram","entry":[{"id":"ig-1","time":1,"changes":[{"field":"` + field + `","value":` + value + `}]}]}`
	}
	igMessaging := func(event string) string {
		return `{"object":"instagram","entry":[{"id":"ig-1","time":1,"messaging":[` + event + `]}]}`
	}

	tests := []struct {
		name       string
		body       string
		eventType  string
		objectType string
		objectID   string
	}{
		{"media added", igChange("media", `{"media_id":"m1","verb":"add"}`), "media_added", "media", "m1"},
		{"media added without verb", igChange("media", `{"media_id":"m1"}`), "media_added", "media", "m1"},
		{"media removed", igChange("media", `{"media_id":"m1","verb":"removed"}`), "media_removed", "media", "m1"},
		{"media updated", igChange("media", `{"media_id":"m1","verb":"edited"}`), "media_updated", "media", "m1"},
		{"comment", igChange("comments", `{"id":"c1","text":"hello","media":{"id":"m1"}}`), "comment_created", "comment", "m1"},
		{"live comment", igChange("live_comments", `{"id":"c2"}`), "live_comment_created", "comment", "c2"},
		{"comment mention", igChange("mentions", `{"comment_id":"c3","media_id":"m3"}`), "comment_mention_created", "mention", "c3"},
		{"caption mention", igChange("mentions", `{"media_id":"m3"}`), "mention_created", "mention", "m3"},
		{"story insights", igChange("story_insights", `{"media_id":"st1","reach":40}`), "story_insights_updated", "story", "st1"},
		{"messages field", igChange("messages", `{"id":"x"}`), "message_received", "message", "x"},
		{"message reactions field", igChange("message_reactions", `{}`), "message_reaction", "message", "ig-1"},
		{"seen field", igChange("messaging_seen", `{}`), "message_read", "message", "ig-1"},
		{"postbacks field", igChange("messaging_postbacks", `{}`), "postback_received", "message", "ig-1"},
		{"referral field", igChange("messaging_referral", `{}`), "referral_received", "message", "ig-1"},
		{"standby field", igChange("standby", `{}`), "standby_received", "message", "ig-1"},
		{"dm", igMessaging(`{"sender":{"id":"u1"},"message":{"mid":"mid1","text":"hey"}}`), "message_received", "message", "mid1"},
		{"dm deleted", igMessaging(`{"message":{"mid":"mid1","is_deleted":true}}`), "message_deleted", "message", "mid1"},
		{"dm echo", igMessaging(`{"message":{"mid":"mid1","is_echo":true}}`), "message_echo", "message", "mid1"},
		{"dm reaction", igMessaging(`{"reaction":{"mid":"mid1"}}`), "message_reaction", "message", "ig-1"},
		{"dm read", igMessaging(`{"read":{"mid":"mid1"}}`), "message_read", "message", "ig-1"},
		{"dm postback", igMessaging(`{"postback":{"title":"x"}}`), "postback_received", "message", "ig-1"},
		{"dm referral", igMessaging(`{"referral":{"ref":"x"}}`), "referral_received", "message", "ig-1"},
		{"unknown", igChange("other", `{}`), "unknown", "unknown", "ig-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := extract(t, domain.PlatformInstagram, tt.body)
			assert.Equal(t, tt.eventType, env.EventType)
			assert.Equal(t, tt.objectType, env.ObjectType)
			assert.Equal(t, tt.objectID, env.ObjectID)
		})
	}
}

func TestInstagram_Normalize(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"ig-1","changes":[{"field":"comments","value":{
		"id":"c1","text":"wow","from":{"id":"u9","username":"ana"},
		"media":{"id":"m1","media_product_type":"REELS","like_count":7}
	}}]}]}`

	ev := normalize(t, domain.PlatformInstagram, body)

	assert.Equal(t, "comment_created", ev.EventType)
	assert.Equal(t, "c1", ev.PlatformEventID)
	assert.Equal(t, "ana", ev.UserInfo["username"])
	assert.Equal(t, "REELS", ev.ContentInfo["media_product_type"])
	assert.Equal(t, int64(7), ev.EngagementMetrics["likes"])
}

func TestTwitter_EventType(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		eventType  string
		objectType string
		objectID   string
	}{
		{"tweet", `{"for_user_id":"42","tweet_create_events":[{"id_str":"t1","text":"hi"}]}`, "tweet_created", "tweet", "t1"},
		{"reply", `{"for_user_id":"42","tweet_create_events":[{"id_str":"t2","in_reply_to_status_id_str":"t1"}]}`, "reply_created", "tweet", "t2"},
		{"retweet", `{"for_user_id":"42","tweet_create_events":[{"id_str":"t3","retweeted_status":{"id_str":"t1"}}]}`, "retweet_created", "tweet", "t3"},
		{"quote", `{"for_user_id":"42","tweet_create_events":[{"id_str":"t4","quoted_status":{"id_str":"t1"}}]}`, "quote_created", "tweet", "t4"},
		{"delete", `{"for_user_id":"42","tweet_delete_events":[{"status":{"id":"t5","user_id":"42"}}]}`, "tweet_deleted", "tweet", "t5"},
		{"favorite", `{"for_user_id":"42","favorite_events":[{"id":"f1","favorited_status":{"id_str":"t6"}}]}`, "tweet_favorited", "tweet", "t6"},
		{"follow", `{"for_user_id":"42","follow_events":[{"type":"follow","target":{"id":"42"},"source":{"id":"7"}}]}`, "user_followed", "user", "42"},
		{"unfollow", `{"for_user_id":"42","follow_events":[{"type":"unfollow","target":{"id":"9"}}]}`, "user_unfollowed", "user", "9"},
		{"block", `{"for_user_id":"42","block_events":[{"type":"block","target":{"id":"8"}}]}`, "user_blocked", "user", "8"},
		{"unblock", `{"for_user_id":"42","block_events":[{"type":"unblock","target":{"id":"8"}}]}`, "user_unblocked", "user", "8"},
		{"mute", `{"for_user_id":"42","mute_events":[{"type":"mute","target":{"id":"3"}}]}`, "user_muted", "user", "3"},
		{"unmute", `{"for_user_id":"42","mute_events":[{"type":"unmute","target":{"id":"3"}}]}`, "user_unmuted", "user", "3"},
		{"dm", `{"for_user_id":"42","direct_message_events":[{"id":"dm1","message_create":{"sender_id":"7","message_data":{"text":"yo"}}}]}`, "direct_message_received", "direct_message", "dm1"},
		{"typing", `{"for_user_id":"42","direct_message_indicate_typing_events":[{"sender_id":"7"}]}`, "direct_message_typing", "direct_message", "42"},
		{"dm read", `{"for_user_id":"42","direct_message_mark_read_events":[{"sender_id":"7"}]}`, "direct_message_read", "direct_message", "42"},
		{"revoke", `{"for_user_id":"42","user_event":{"revoke":{"source":{"user_id":"42","app_id":"1"}}}}`, "user_revoked", "user", "42"},
		{"unknown", `{"for_user_id":"42"}`, "unknown", "unknown", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := extract(t, domain.PlatformTwitter, tt.body)
			assert.Equal(t, tt.eventType, env.EventType)
			assert.Equal(t, tt.objectType, env.ObjectType)
			assert.Equal(t, tt.objectID, env.ObjectID)
		})
	}
}

func TestTwitter_Normalize(t *testing.T) {
	body := `{"for_user_id":"42","tweet_create_events":[{
		"id_str":"t1","text":"launch day","lang":"en","created_at":"Wed Oct 10 20:19:24 +0000 2018",
		"favorite_count":10,"retweet_count":2,"reply_count":1,"quote_count":0,
		"entities":{"hashtags":[{"text":"go"}],"urls":[]},
		"user":{"id_str":"7","screen_name":"gopher","name":"Gopher","followers_count":100,"verified":false}
	}]}`

	ev := normalize(t, domain.PlatformTwitter, body)

	assert.Equal(t, "tweet_created", ev.EventType)
	assert.Equal(t, "t1", ev.PlatformEventID)
	assert.Equal(t, "gopher", ev.UserInfo["screen_name"])
	assert.Equal(t, false, ev.UserInfo["verified"])
	assert.Equal(t, "launch day", ev.ContentInfo["text"])
	assert.Equal(t, map[string]int64{"likes": 10, "shares": 2, "comments": 1, "quotes": 0}, ev.EngagementMetrics)

	fav := normalize(t, domain.PlatformTwitter,
		`{"favorite_events":[{"id":"f1","favorited_status":{"id_str":"t6","favorite_count":"5"},"user":{"id_str":"9"}}]}`)
	assert.Equal(t, "tweet_favorited", fav.EventType)
	assert.Equal(t, "f1", fav.PlatformEventID)
	assert.Equal(t, int64(5), fav.EngagementMetrics["likes"])
	assert.Equal(t, "9", fav.UserInfo["id"])
}

func TestLinkedIn_EventType(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		eventType  string
		objectType string
		objectID   string
	}{
		{"share created", `{"shareUpdate":{"updateType":"CREATED","shareId":"s1"}}`, "created", "post", "s1"},
		{"share updated", `{"shareUpdate":{"updateType":"UPDATED","shareId":"s1"}}`, "updated", "post", "s1"},
		{"share deleted", `{"shareUpdate":{"updateType":"DELETED","shareId":"s1"}}`, "deleted", "post", "s1"},
		{"ugc post", `{"ugcPostUpdate":{"updateType":"CREATED","ugcPostId":"u1"}}`, "created", "post", "u1"},
		{"comment created", `{"commentUpdate":{"updateType":"CREATED","commentId":"c1"}}`, "comment_created", "comment", "c1"},
		{"comment updated", `{"commentUpdate":{"updateType":"UPDATED","commentId":"c1"}}`, "comment_updated", "comment", "c1"},
		{"comment deleted", `{"commentUpdate":{"updateType":"DELETED","commentId":"c1"}}`, "comment_deleted", "comment", "c1"},
		{"liked", `{"likeUpdate":{"updateType":"CREATED","objectId":"o1"}}`, "liked", "post", "o1"},
		{"unliked", `{"likeUpdate":{"updateType":"DELETED","objectId":"o1"}}`, "unliked", "post", "o1"},
		{"follower gained", `{"followerUpdate":{"updateType":"CREATED","organizationId":"org1"}}`, "follower_gained", "organization", "org1"},
		{"follower lost", `{"followerUpdate":{"updateType":"DELETED","organizationId":"org1"}}`, "follower_lost", "organization", "org1"},
		{"message", `{"messageUpdate":{"messageId":"msg1"}}`, "message_received", "message", "msg1"},
		{"notification like", `{"action":"LIKE","sourcePost":"urn:li:share:1","notificationId":"n1"}`, "liked", "post", "urn:li:share:1"},
		{"notification comment", `{"notifications":[{"action":"COMMENT","sourcePost":"urn:li:share:2"}]}`, "commented", "comment", "urn:li:share:2"},
		{"admin comment", `{"action":"ADMIN_COMMENT","sourcePost":"p"}`, "admin_commented", "comment", "p"},
		{"comment edit", `{"action":"COMMENT_EDIT","sourcePost":"p"}`, "comment_updated", "comment", "p"},
		{"comment delete", `{"action":"COMMENT_DELETE","sourcePost":"p"}`, "comment_deleted", "comment", "p"},
		{"share", `{"action":"SHARE","sourcePost":"p"}`, "shared", "post", "p"},
		{"share mention", `{"action":"SHARE_MENTION","sourcePost":"p"}`, "mentioned", "post", "p"},
		{"photo mention", `{"action":"PHOTO_MENTION","sourcePost":"p"}`, "photo_mentioned", "post", "p"},
		{"explicit event type", `{"eventType":"ORGANIZATION_SOCIAL_ACTION","id":"x1"}`, "organization_social_action", "unknown", "x1"},
		{"unknown", `{"foo":"bar"}`, "unknown", "unknown", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := extract(t, domain.PlatformLinkedIn, tt.body)
			assert.Equal(t, tt.eventType, env.EventType)
			assert.Equal(t, tt.objectType, env.ObjectType)
			assert.Equal(t, tt.objectID, env.ObjectID)
		})
	}
}

func TestLinkedIn_Normalize(t *testing.T) {
	ev := normalize(t, domain.PlatformLinkedIn,
		`{"shareUpdate":{"updateType":"CREATED","shareId":"s1","actor":"urn:li:person:1","commentary":"hello",
		"statistics":{"numLikes":4,"numComments":"2"}},"totalShareStatistics":{"impressionCount":90,"clickCount":3}}`)

	assert.Equal(t, "created", ev.EventType)
	assert.Equal(t, "post", ev.ObjectType)
	assert.Equal(t, "s1", ev.ObjectID)
	assert.Equal(t, "urn:li:person:1", ev.UserInfo["id"])
	assert.Equal(t, "hello", ev.ContentInfo["commentary"])
	assert.Equal(t, map[string]int64{"likes": 4, "comments": 2, "impressions": 90, "clicks": 3}, ev.EngagementMetrics)
}

func TestNormalize_Totality(t *testing.T) {
	malformed := []string{
		``,
		`null`,
		`[]`,
		`"string"`,
		`{"entry":null}`,
		`{"entry":[]}`,
		`{"entry":[null]}`,
		`{"entry":[{"changes":"x"}]}`,
		`{"entry":[{"changes":[{"field":"feed","value":null}]}]}`,
		`{"entry":[{"messaging":[{"message":null}]}]}`,
		`{"tweet_create_events":[null]}`,
		`{"tweet_create_events":"oops"}`,
		`{"shareUpdate":null}`,
		`{"shareUpdate":{"updateType":7}}`,
		`{"notifications":[{"action":null}]}`,
		`{not json`,
	}

	for _, platform := range domain.Platforms {
		for _, body := range malformed {
			t.Run(platform.String()+"/"+body, func(t *testing.T) {
				var ev *domain.NormalizedEvent
				require.NotPanics(t, func() {
					ev = normalize(t, platform, body)
				})
				require.NotNil(t, ev)
				assert.NotEmpty(t, ev.EventType)
				assertNoNulls(t, ev.UserInfo)
				assertNoNulls(t, ev.ContentInfo)
			})
		}
	}
}

func TestNormalize_KeepsStoredEventTypeWhenUnrecognized(t *testing.T) {
	n, err := For(domain.PlatformTwitter)
	require.NoError(t, err)

	ev := n.Normalize(&domain.WebhookEvent{
		ID:        uuid.New(),
		Platform:  domain.PlatformTwitter,
		EventType: "tweet_created",
		Payload:   json.RawMessage(`{}`),
	})
	assert.Equal(t, "tweet_created", ev.EventType)
}

func TestNormalize_StripsNestedNulls(t *testing.T) {
	ev := normalize(t, domain.PlatformFacebook,
		fbMessaging(`{"sender":{"id":"u1"},"message":{"mid":"m1","attachments":[{"type":"image","payload":{"url":null,"sticker_id":1}},null]}}`))

	attachments, ok := ev.ContentInfo["attachments"].([]interface{})
	require.True(t, ok)
	require.Len(t, attachments, 1)
	first := attachments[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"sticker_id": json.Number("1")}, first["payload"])
}

func TestFor_UnknownPlatform(t *testing.T) {
	_, err := For(domain.Platform("myspace"))
	assert.ErrorIs(t, err, domain.ErrUnknownPlatform)
}

func assertNoNulls(t *testing.T, m map[string]interface{}) {
	t.Helper()
	for k, v := range m {
		assert.NotNil(t, v, "key %q", k)
		if nested, ok := v.(map[string]interface{}); ok {
			assertNoNulls(t, nested)
		}
	}
}
