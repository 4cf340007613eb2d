package protection

import "fmt"

// Request holds the parameters of a protect call. The API replaces the
// complete protection state of a page, so the protections that are not
// being changed have to be sent back along with the new ones.
type Request struct {
	Protections []string
	Expiries    []string
	Cascade     bool
}

func BuildRequest(status Status, plan Plan) Request {
	var req Request
	for _, t := range plan.Types() {
		change := plan[t]
		req.Protections = append(req.Protections, fmt.Sprintf("%s=%s", t, change.Level))
		req.Expiries = append(req.Expiries, change.Expiry.String())
	}

	for _, e := range status {
		if e.Cascade {
			req.Cascade = true
		}
		if e.Type == typeArticleFeedback {
			continue
		}
		if _, changing := plan[e.Type]; changing {
			continue
		}
		// inherited from another page, not ours to resend
		if e.Source != "" {
			continue
		}
		req.Protections = append(req.Protections, fmt.Sprintf("%s=%s", e.Type, e.Level))
		req.Expiries = append(req.Expiries, e.Expiry.String())
	}
	return req
}
