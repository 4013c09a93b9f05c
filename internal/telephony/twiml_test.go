package telephony

import (
	"strings"
	"testing"
)

func TestRenderStreamTwiML(t *testing.T) {
	xml, err := RenderStreamTwiML("wss://media.example.com/stream")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Connect>") {
		t.Fatalf("expected <Connect> in xml: %s", xml)
	}
	if !strings.Contains(xml, `url="wss://media.example.com/stream"`) {
		t.Fatalf("expected stream url in xml: %s", xml)
	}
}

func TestRenderStreamTwiML_RequiresURL(t *testing.T) {
	if _, err := RenderStreamTwiML("  "); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRenderHangupTwiML(t *testing.T) {
	xml, err := RenderHangupTwiML("Goodbye")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !strings.Contains(xml, "<Say>Goodbye</Say>") || !strings.Contains(xml, "<Hangup>") {
		t.Fatalf("unexpected xml: %s", xml)
	}
}
