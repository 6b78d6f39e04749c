package asc

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/url"

	"kr.dev/errorfmt"
	"tfm.run/roster"
)

// TesterUsage returns the number of sessions each tester of a beta group
// started during period, an ISO 8601 duration such as "P30D". Testers
// without any recorded usage are absent from the result.
func (c *Client) TesterUsage(ctx context.Context, groupID, period string) (_ roster.Usage, err error) {
	defer errorfmt.Handlef("asc: fetching tester usage of beta group %s: %w", groupID, &err)
	rr, err := Slurp[usageResource](ctx, c, c.url("/v1/betaGroups/"+url.PathEscape(groupID)+"/metrics/betaTesterUsages", url.Values{
		"period":  {period},
		"groupBy": {"betaTesters"},
		"limit":   {pageLimit},
	}))
	if err != nil {
		return nil, err
	}
	u := roster.Usage{}
	for _, r := range rr {
		id := string(r.Dimensions.BetaTesters.Data)
		if id == "" {
			continue
		}
		var n float64
		for _, p := range r.DataPoints {
			n += p.Values.SessionCount
		}
		u.Add(id, int(math.Round(n)))
	}
	return u, nil
}

type usageResource struct {
	DataPoints dataPoints `json:"dataPoints"`
	Dimensions struct {
		BetaTesters struct {
			Data testerRef `json:"data"`
		} `json:"betaTesters"`
	} `json:"dimensions"`
}

// Session counts are whole numbers but may be sent as 2.0.
type dataPoint struct {
	Values struct {
		SessionCount float64 `json:"sessionCount"`
	} `json:"values"`
}

// dataPoints accepts either a list of data points or a single one. Elements
// that do not decode are skipped; anything else decodes as no data points.
type dataPoints []dataPoint

func (p *dataPoints) UnmarshalJSON(b []byte) error {
	*p = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '[':
		var raw []json.RawMessage
		if json.Unmarshal(b, &raw) != nil {
			return nil
		}
		for _, m := range raw {
			var one dataPoint
			if json.Unmarshal(m, &one) == nil {
				*p = append(*p, one)
			}
		}
	case '{':
		var one dataPoint
		if json.Unmarshal(b, &one) == nil {
			*p = dataPoints{one}
		}
	}
	return nil
}

// testerRef is the tester a usage record belongs to. The API has been seen
// to send it as a bare ID, as {"id": ...}, or as a list of either, in which
// case the first non-empty ID wins. Other shapes decode as "".
type testerRef string

func (r *testerRef) UnmarshalJSON(b []byte) error {
	*r = ""
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if json.Unmarshal(b, &s) == nil {
			*r = testerRef(s)
		}
	case '{':
		var l linkage
		if json.Unmarshal(b, &l) == nil {
			*r = testerRef(l.ID)
		}
	case '[':
		var refs []testerRef
		if json.Unmarshal(b, &refs) != nil {
			return nil
		}
		for _, ref := range refs {
			if ref != "" {
				*r = ref
				break
			}
		}
	}
	return nil
}
