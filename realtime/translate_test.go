package realtime_test

import (
	"reflect"
	"testing"

	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/realtime"
)

func mustParse(t *testing.T, s string) realtime.Document {
	t.Helper()
	doc, err := realtime.ParseDocument([]byte(s))
	if err != nil {
		t.Fatalf("ParseDocument(%s): %v", s, err)
	}
	return doc
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want realtime.Event
	}{
		{"hello", `{"type":"hello"}`, realtime.Hello{}},
		{"reply", `{"reply_to":7,"ts":"123.45"}`, realtime.Reply{ID: 7, TS: "123.45"}},
		{"reply without ts", `{"ok":true,"reply_to":3}`, realtime.Reply{ID: 3}},
		{"reply wins over type", `{"type":"message","reply_to":9,"ts":"1"}`, realtime.Reply{ID: 9, TS: "1"}},
		{"message", `{"type":"message","ts":"1.1","channel":"C1","user":"U1","text":"hi"}`,
			realtime.MessageEvent{Message: realtime.Message{TS: "1.1", Channel: "C1", User: "U1", Text: "hi"}}},
		{"message without user", `{"type":"message","ts":"1.2","channel":"C1","text":"bot"}`,
			realtime.MessageEvent{Message: realtime.Message{TS: "1.2", Channel: "C1", User: "unknown", Text: "bot"}}},
		{"message changed", `{"type":"message","subtype":"message_changed","channel":"C2","message":{"ts":"5.5","user":"U2","text":"edited"}}`,
			realtime.MessageChanged{Message: realtime.Message{TS: "5.5", Channel: "C2", User: "U2", Text: "edited"}}},
		{"message changed without body", `{"type":"message","subtype":"message_changed","channel":"C2","ts":"6","text":"t"}`,
			realtime.MessageEvent{Message: realtime.Message{TS: "6", Channel: "C2", User: "unknown", Text: "t"}}},
		{"message deleted", `{"type":"message","subtype":"message_deleted","channel":"C1","deleted_ts":"99.1","ts":"100"}`,
			realtime.MessageDeleted{TS: "99.1", Channel: "C1"}},
		{"presence active", `{"type":"presence_change","user":"U1","presence":"active"}`,
			realtime.PresenceChange{User: "U1", Presence: realtime.PresenceActive}},
		{"presence other", `{"type":"presence_change","user":"U1","presence":"idle"}`,
			realtime.PresenceChange{User: "U1", Presence: realtime.PresenceAway}},
		{"team rename", `{"type":"team_rename","name":"New"}`, realtime.TeamRename{Name: "New"}},
		{"desktop notification", `{"type":"desktop_notification","title":"T","subtitle":"S","content":"C"}`,
			realtime.DesktopNotification{Title: "T", Subtitle: "S", Content: "C"}},
		{"user typing", `{"type":"user_typing","channel":"C3","user":"U3"}`, realtime.UserTyping{Channel: "C3", User: "U3"}},
		{"marker", `{"type":"im_marked","channel":"D1"}`, realtime.Marker{Tag: realtime.KindIMMarked}},
		{"reaction marker", `{"type":"reaction_added"}`, realtime.Marker{Tag: realtime.KindReactionAdded}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := realtime.Translate(mustParse(t, tc.in))
			if !ok {
				t.Fatal("no event")
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestTranslate_Unknown(t *testing.T) {
	ev, ok := realtime.Translate(mustParse(t, `{"type":"emoji_changed","name":"x"}`))
	u, isUnknown := ev.(realtime.Unknown)
	if !ok || !isUnknown || u.Type != "emoji_changed" {
		t.Fatalf("got %#v", ev)
	}
	if u.Raw.StringOr("name", "") != "x" || u.Kind() != realtime.KindUnknown {
		t.Fatalf("raw document lost: %v", u.Raw)
	}
}

func TestTranslate_NoEvent(t *testing.T) {
	for _, in := range []string{`{}`, `{"ok":true}`, `{"type":5}`, `{"reply_to":"7"}`, `{"reply_to":1.5}`} {
		if ev, ok := realtime.Translate(mustParse(t, in)); ok {
			t.Errorf("%s: unexpected %#v", in, ev)
		}
	}
}

func TestParseDocument_Faults(t *testing.T) {
	for _, in := range []string{`not json`, `[1,2]`, `null`, `"s"`, `{"a":`} {
		_, err := realtime.ParseDocument([]byte(in))
		if api.KindOf(err) != api.FaultData {
			t.Errorf("%s: got %v", in, err)
		}
	}
}

func TestDocument_Accessors(t *testing.T) {
	doc := mustParse(t, `{"n":42,"f":4.5,"s":"str","o":{"k":"v"},"z":null}`)
	if n, ok := doc.Int("n"); !ok || n != 42 {
		t.Errorf("Int(n) = %d %v", n, ok)
	}
	if _, ok := doc.Int("f"); ok {
		t.Error("fractional number must not be an int")
	}
	if _, ok := doc.Int("s"); ok {
		t.Error("string must not be an int")
	}
	if o, ok := doc.Object("o"); !ok || o.StringOr("k", "") != "v" {
		t.Errorf("Object(o) = %v %v", o, ok)
	}
	if !doc.Has("z") || doc.Has("missing") {
		t.Error("Has")
	}
	if doc.StringOr("z", "def") != "def" {
		t.Error("null must fall back to the default")
	}
}

func TestKindString(t *testing.T) {
	if realtime.KindMessageDeleted.String() != "message_deleted" || realtime.Kind(999).String() != "kind(999)" {
		t.Fatal(realtime.KindMessageDeleted.String())
	}
	if realtime.PresenceActive.String() != "active" || realtime.PresenceAway.String() != "away" {
		t.Fatal("presence names")
	}
}
