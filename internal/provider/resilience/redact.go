package resilience

import (
	"errors"
	"net/url"
)

// RedactURL returns the *url.Error found in err with the query string and
// user info dropped from its URL. Provider credentials travel in the query
// and *url.Error prints the full URL. The cause is kept for errors.Is;
// errors without a *url.Error are returned unchanged.
func RedactURL(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	return &url.Error{Op: uerr.Op, URL: redactedURL(uerr.URL), Err: uerr.Err}
}

func redactedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	return u.String()
}
