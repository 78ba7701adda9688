package webapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type route struct {
	body   string
	status int
}

func newAPI(t *testing.T, routes map[string]route, seen chan<- *http.Request) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			seen <- r
		}
		rt, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if rt.status != 0 {
			w.WriteHeader(rt.status)
		}
		w.Write([]byte(rt.body))
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", "xoxp-test")
}

func TestConnectURL(t *testing.T) {
	seen := make(chan *http.Request, 1)
	c := newAPI(t, map[string]route{
		"/api/rtm.connect": {body: `{"ok":true,"url":"wss://rtm.example.com/ws/abc"}`},
	}, seen)
	u, err := c.ConnectURL(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if u != "wss://rtm.example.com/ws/abc" {
		t.Fatalf("url %q", u)
	}
	if got := (<-seen).Header.Get("Authorization"); got != "Bearer xoxp-test" {
		t.Fatalf("authorization %q", got)
	}
}

func TestCall_Errors(t *testing.T) {
	c := newAPI(t, map[string]route{
		"/api/rtm.connect": {body: `{"ok":false,"error":"invalid_auth"}`},
		"/api/rtm.start":   {body: `oops`},
		"/api/im.history":  {body: `{}`, status: http.StatusInternalServerError},
	}, nil)
	ctx := context.Background()

	_, err := c.ConnectURL(ctx)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Code != "invalid_auth" || apiErr.Method != "rtm.connect" {
		t.Fatalf("ConnectURL: %v", err)
	}
	if _, err := c.Start(ctx); err == nil {
		t.Fatal("Start must fail on a non-json body")
	}
	if _, err := c.History(ctx, "D123"); err == nil {
		t.Fatal("History must fail on status 500")
	}

	c.Token = ""
	if _, err := c.ConnectURL(ctx); !errors.Is(err, ErrNoToken) {
		t.Fatalf("no token: %v", err)
	}
}

func TestExchangeCode(t *testing.T) {
	seen := make(chan *http.Request, 1)
	c := newAPI(t, map[string]route{
		"/api/oauth.access": {body: `{"ok":true,"access_token":"xoxp-new","scope":"client"}`},
	}, seen)
	c.ClientID, c.ClientSecret = "id1", "s3cret"

	tok, err := c.ExchangeCode(context.Background(), "code-9", "http://localhost:7777/")
	if err != nil || tok != "xoxp-new" {
		t.Fatalf("ExchangeCode: %q %v", tok, err)
	}
	q := (<-seen).URL.Query()
	if q.Get("client_id") != "id1" || q.Get("client_secret") != "s3cret" ||
		q.Get("code") != "code-9" || q.Get("redirect_uri") != "http://localhost:7777/" {
		t.Fatalf("query %v", q)
	}
}

func TestStart(t *testing.T) {
	c := newAPI(t, map[string]route{
		"/api/rtm.start": {body: `{
			"ok": true,
			"url": "wss://rtm.example.com/ws",
			"self": {"id": "U1"},
			"team": {"name": "Acme"},
			"users": [{"id": "U1", "name": "ann", "color": "9f69e7", "presence": "active"},
			          {"id": "U2", "name": "bob", "presence": "away"}],
			"channels": [{"id": "C1", "name": "general", "members": ["U1","U2"],
			              "topic": {"value": "news"}, "is_general": true, "is_member": true}],
			"groups": [{"id": "G1", "name": "ops", "members": ["U1"]}],
			"ims": [{"id": "D1", "user": "U2"}]
		}`},
	}, nil)
	team, err := c.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if team.Self.ID != "U1" || team.Info.Name != "Acme" || team.URL != "wss://rtm.example.com/ws" {
		t.Fatalf("team %+v", team)
	}
	if len(team.Channels) != 1 || !team.Channels[0].IsGeneral || team.Channels[0].Topic.Value != "news" {
		t.Fatalf("channels %+v", team.Channels)
	}
	if u, ok := team.User("U2"); !ok || u.Active() {
		t.Fatalf("user U2 %+v", u)
	}
	if u, _ := team.User("U1"); !u.Active() {
		t.Fatal("U1 must be active")
	}
	if len(team.Groups) != 1 || len(team.IMs) != 1 || team.IMs[0].User != "U2" {
		t.Fatalf("groups %+v ims %+v", team.Groups, team.IMs)
	}
}

func TestHistory(t *testing.T) {
	seen := make(chan *http.Request, 1)
	c := newAPI(t, map[string]route{
		"/api/groups.history": {body: `{"ok":true,"messages":[{"ts":"2","user":"U1","text":"b",
			"reactions":[{"name":"+1","count":2,"users":["U1","U2"]}]},{"ts":"1","text":"a"}]}`},
	}, seen)
	msgs, err := c.History(context.Background(), "G42")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[0].Reactions[0].Count != 2 || msgs[1].Text != "a" {
		t.Fatalf("messages %+v", msgs)
	}
	if (<-seen).URL.Query().Get("channel") != "G42" {
		t.Fatal("channel param")
	}
}

func TestHistoryMethod(t *testing.T) {
	for in, want := range map[string]string{
		"C1": "channels.history", "G1": "groups.history", "D1": "im.history", "": "channels.history",
	} {
		if got := HistoryMethod(in); got != want {
			t.Errorf("%q: %s", in, got)
		}
	}
}
