package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlConnect struct {
	XMLName xml.Name    `xml:"Connect"`
	Stream  twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderStreamTwiML answers a call by bridging its audio to the realtime
// media endpoint over a bidirectional stream.
func RenderStreamTwiML(streamURL string) (string, error) {
	if strings.TrimSpace(streamURL) == "" {
		return "", errors.New("telephony: stream url required")
	}
	var r twimlResponse
	r.Verbs = append(r.Verbs, twimlConnect{Stream: twimlStream{URL: streamURL}})
	return renderTwiML(r)
}

// RenderHangupTwiML ends a call with an optional spoken message.
func RenderHangupTwiML(message string) (string, error) {
	var r twimlResponse
	if strings.TrimSpace(message) != "" {
		r.Verbs = append(r.Verbs, twimlSay{Text: message})
	}
	r.Verbs = append(r.Verbs, twimlHangup{})
	return renderTwiML(r)
}

func renderTwiML(r twimlResponse) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
