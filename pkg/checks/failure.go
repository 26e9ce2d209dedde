package checks

import (
	"fmt"

	"github.com/sigfuzz/sigfuzz/pkg/signal"
	"github.com/sigfuzz/sigfuzz/pkg/transport"
)

const failurePrefix = "An exception was encountered when sending the request. "

// TransportFailure classifies a send that produced no usable response.
// The Signal is keyed HTTP_FAILURE_<KIND> and always has strength 1.
func TransportFailure(f *transport.Failure) (signal.Signal, error) {
	if f == nil {
		return signal.Signal{}, ErrNilFailure
	}
	kind := f.Kind()
	tags := []string{TagExceptionRaised}
	text := failurePrefix

	switch f.Outcome {
	case transport.ConnectionFailure:
		text += "Error connecting to server."
		tags = append(tags, TagConnectionFail)
	case transport.HTTPError:
		text += "An HTTP error occurred."
		tags = append(tags, TagConnectionFail)
	case transport.TooManyRedirects:
		text += "Server responded with too many redirects."
		tags = append(tags, TagServerFail)
	case transport.Timeout:
		text += "Request timed out."
		tags = append(tags, TagConnectionTimeout)
	default:
		text += fmt.Sprintf("An unexpected %s error occurred.", kind)
		tags = append(tags, TagConnectionFail)
	}

	data := map[string]any{"exception_name": kind}
	if f.Err != nil {
		data["error"] = f.Err.Error()
	}
	return signal.New("HTTP_FAILURE_"+upper.String(kind), tags, 1, text, signal.Evidence{
		Request:  f.Request,
		Response: f.Response,
		Failure:  f,
		Data:     data,
	})
}
