package main

import (
	"io"
	"log"
	"net/url"
	"testing"

	"github.com/momentics/hioload-rtm/config"
	"github.com/momentics/hioload-rtm/fake"
	"github.com/momentics/hioload-rtm/server"
	"github.com/momentics/hioload-rtm/webapi"
)

func TestCallbackServer_RedirectUsesBoundPort(t *testing.T) {
	cfg := config.Default()
	cfg.ListenPort = 0
	cfg.ClientID = "cid"

	srv, flow, err := callbackServer(cfg, webapi.New("", ""),
		server.WithReactor(fake.NewReactor()),
		server.WithSockets(fake.NewSockets()),
		server.WithLogger(log.New(io.Discard, "", 0)),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()

	if srv.Port() == 0 {
		t.Fatal("fake listener must report a bound port")
	}
	u, err := url.Parse(flow.AuthorizeURL())
	if err != nil {
		t.Fatal(err)
	}
	want := "http://localhost:40000/"
	if flow.RedirectURL != want || u.Query().Get("redirect_uri") != want {
		t.Fatalf("redirect %q, authorize query %q", flow.RedirectURL, u.Query().Get("redirect_uri"))
	}
}
