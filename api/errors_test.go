package api_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/momentics/hioload-rtm/api"
)

func TestFaultClassification(t *testing.T) {
	cases := []struct {
		err  error
		kind api.FaultKind
		text string
	}{
		{api.TransportFault("read", api.ErrTransportClosed), api.FaultTransport, "transport fault: read: transport is closed"},
		{api.ProtocolFault("decode frame", api.ErrUnknownOpcode), api.FaultProtocol, "protocol fault: decode frame: unknown websocket opcode"},
		{api.DataFault("", api.ErrNotFound), api.FaultData, "data fault: resource not found"},
	}
	for _, tc := range cases {
		if api.KindOf(tc.err) != tc.kind || tc.err.Error() != tc.text {
			t.Errorf("%v: kind %v", tc.err, api.KindOf(tc.err))
		}
		wrapped := fmt.Errorf("outer: %w", tc.err)
		if api.KindOf(wrapped) != tc.kind {
			t.Errorf("kind lost through wrapping: %v", wrapped)
		}
	}
	if !errors.Is(api.ProtocolFault("x", api.ErrBodyOverrun), api.ErrBodyOverrun) {
		t.Error("Unwrap must expose the sentinel")
	}
	if api.KindOf(errors.New("plain")) != 0 || api.FaultKind(0).String() != "unknown" {
		t.Error("plain errors have no kind")
	}
}
