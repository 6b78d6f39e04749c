package asc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"tfm.run/trutil"
)

// tracingTransport logs each request and response body, one line at a
// time, tagged with a trace id so interleaved output can be told apart.
type tracingTransport struct {
	base http.RoundTripper
	logf func(string, ...any)
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	traceID := uuid.NewString()
	t.logf("ASC: -- %s: %s %s", traceID, req.Method, req.URL)
	if req.GetBody != nil {
		if body, err := req.GetBody(); err == nil {
			data, _ := io.ReadAll(body)
			body.Close()
			lw := &trutil.LineWriter{
				Prefix: fmt.Sprintf("ASC: >> %s: ", traceID),
				Logf:   t.logf,
			}
			writeIndentedJSON(lw, data)
			lw.Flush()
		}
	}

	res, err := base.RoundTrip(req)
	if err != nil {
		t.logf("ASC: !! %s: %v", traceID, err)
		return nil, err
	}
	t.logf("ASC: -- %s: %s", traceID, res.Status)
	lw := &trutil.LineWriter{
		Prefix: fmt.Sprintf("ASC: << %s: ", traceID),
		Logf:   t.logf,
	}
	res.Body = &tracedBody{
		Reader: io.TeeReader(res.Body, lw),
		body:   res.Body,
		lw:     lw,
	}
	return res, nil
}

type tracedBody struct {
	io.Reader
	body io.Closer
	lw   *trutil.LineWriter
}

func (b *tracedBody) Close() error {
	b.lw.Flush()
	return b.body.Close()
}

// writeIndentedJSON writes data indented if it is JSON, and as-is otherwise.
func writeIndentedJSON(w io.Writer, data []byte) {
	var buf bytes.Buffer
	if json.Indent(&buf, data, "", "  ") == nil {
		data = buf.Bytes()
	}
	w.Write(data)
}
