// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package realtime

// markers are recognized types that carry no payload.
var markers = map[string]Kind{
	"reconnect_url":  KindReconnectURL,
	"channel_marked": KindChannelMarked,
	"group_marked":   KindGroupMarked,
	"im_marked":      KindIMMarked,
	"mpim_marked":    KindMPIMMarked,
	"file_created":   KindFileCreated,
	"file_public":    KindFilePublic,
	"file_shared":    KindFileShared,
	"file_change":    KindFileChange,
	"pref_change":    KindPrefChange,
	"reaction_added": KindReactionAdded,
	"user_change":    KindUserChange,
}

// Translate maps doc to at most one event. A numeric reply_to wins over
// any type; a document without a string type yields nothing.
func Translate(doc Document) (Event, bool) {
	if id, ok := doc.Int("reply_to"); ok {
		return Reply{ID: id, TS: doc.StringOr("ts", "")}, true
	}
	typ, ok := doc.String("type")
	if !ok {
		return nil, false
	}
	switch typ {
	case "hello":
		return Hello{}, true
	case "message":
		return translateMessage(doc), true
	case "user_typing":
		return UserTyping{Channel: doc.StringOr("channel", ""), User: doc.StringOr("user", "")}, true
	case "presence_change":
		p := PresenceAway
		if doc.StringOr("presence", "") == "active" {
			p = PresenceActive
		}
		return PresenceChange{User: doc.StringOr("user", ""), Presence: p}, true
	case "team_rename":
		return TeamRename{Name: doc.StringOr("name", "")}, true
	case "desktop_notification":
		return DesktopNotification{
			Title:    doc.StringOr("title", ""),
			Subtitle: doc.StringOr("subtitle", ""),
			Content:  doc.StringOr("content", ""),
		}, true
	}
	if k, ok := markers[typ]; ok {
		return Marker{Tag: k}, true
	}
	return Unknown{Type: typ, Raw: doc}, true
}

func translateMessage(doc Document) Event {
	channel := doc.StringOr("channel", "")
	switch doc.StringOr("subtype", "") {
	case "message_changed":
		if m, ok := doc.Object("message"); ok {
			return MessageChanged{Message{
				TS:      m.StringOr("ts", ""),
				Channel: channel,
				User:    m.StringOr("user", "unknown"),
				Text:    m.StringOr("text", ""),
			}}
		}
	case "message_deleted":
		return MessageDeleted{TS: doc.StringOr("deleted_ts", ""), Channel: channel}
	}
	return MessageEvent{Message{
		TS:      doc.StringOr("ts", ""),
		Channel: channel,
		User:    doc.StringOr("user", "unknown"),
		Text:    doc.StringOr("text", ""),
	}}
}
