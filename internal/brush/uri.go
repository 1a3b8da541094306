package brush

import (
	"fmt"
	"net/url"
)

// ParsedURI is a decoded brush configuration URI: scheme://name?k=v&k=v
// (§6 "Brush URI grammar").
type ParsedURI struct {
	Scheme string
	Name   string
	Query  url.Values
	Raw    string
}

// ParseURI parses a brush URI of the form scheme://name[?k=v(&k=v)*].
func ParseURI(uri string) (ParsedURI, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return ParsedURI{}, fmt.Errorf("brush: invalid URI %q: %w", uri, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return ParsedURI{}, fmt.Errorf("brush: malformed URI %q (want scheme://name?...)", uri)
	}
	return ParsedURI{Scheme: u.Scheme, Name: u.Host, Query: u.Query(), Raw: uri}, nil
}

// String reassembles a canonical URI from its parts, used as a brush's
// stored configuration string. Query keys are sorted and re-escaped, so
// the result can differ from Raw.
func (p ParsedURI) String() string {
	u := url.URL{Scheme: p.Scheme, Host: p.Name, RawQuery: p.Query.Encode()}
	return u.String()
}
