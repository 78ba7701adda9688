package transport_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/momentics/hioload-rtm/api"
	"github.com/momentics/hioload-rtm/transport"
)

func hostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	return u.Hostname(), port
}

func TestTLSDialer(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "secure")
	}))
	defer srv.Close()

	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	// httptest certificates are issued for example.com and 127.0.0.1.
	dial := transport.TLSDialer(&tls.Config{RootCAs: pool, ServerName: "example.com"})

	host, port := hostPort(t, srv.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	tr, err := dial(ctx, host, port)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()

	if _, err := tr.Write([]byte("GET / HTTP/1.0\r\nHost: example.com\r\n\r\n")); err != nil {
		t.Fatal(err)
	}
	raw, err := io.ReadAll(tr)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(raw); len(got) < 6 || got[len(got)-6:] != "secure" {
		t.Fatalf("response %q", got)
	}
}

func TestTLSDialer_UntrustedCertificate(t *testing.T) {
	srv := httptest.NewTLSServer(http.NotFoundHandler())
	defer srv.Close()

	host, port := hostPort(t, srv.URL)
	_, err := transport.TLSDialer(nil)(context.Background(), host, port)
	if api.KindOf(err) != api.FaultTransport {
		t.Fatalf("expected transport fault, got %v", err)
	}
}

func TestTCPDialer_Refused(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	_, err = transport.TCPDialer()(context.Background(), "127.0.0.1", port)
	if api.KindOf(err) != api.FaultTransport {
		t.Fatalf("expected transport fault, got %v", err)
	}
}
