package checks

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

// TagKnownBadString marks a body containing a known-bad literal.
const TagKnownBadString = "KNOWN_BAD_STRING"

// LiteralMatch searches the response body for each needle and aggregates
// every hit into a single LITERAL_MATCH Signal.
func LiteralMatch(resp *transport.Response, needles []string) (signal.Signal, error) {
	if resp == nil {
		return signal.Signal{}, ErrNilResponse
	}
	var found []string
	for _, n := range needles {
		if n != "" && bytes.Contains(resp.Body, []byte(n)) {
			found = append(found, n)
		}
	}
	strength := 0.0
	text := "No known-bad strings were found in the response."
	if len(found) > 0 {
		strength = 1
		text = fmt.Sprintf("The response contained known-bad strings: %s", strings.Join(found, ", "))
	}
	return signal.New("LITERAL_MATCH", []string{TagKnownBadString}, strength, text, signal.Evidence{
		Request:  resp.Request,
		Response: resp,
		Data:     map[string]any{"matches": found},
	})
}
