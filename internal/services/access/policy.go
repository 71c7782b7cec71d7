package access

import "strings"

// Policy answers deny-list membership questions. It is built once at
// startup from configuration and never mutated afterwards.
type Policy struct {
	deniedOrgs    map[string]struct{}
	deniedDevices map[string]struct{}
	ddosOrgs      map[string]struct{}
}

func NewPolicy(deniedOrgs, deniedDevices, ddosOrgs []string) *Policy {
	return &Policy{
		deniedOrgs:    toSet(deniedOrgs),
		deniedDevices: toSet(deniedDevices),
		ddosOrgs:      toSet(ddosOrgs),
	}
}

// IsDeniedCompany reports whether the org token is refused service.
func (p *Policy) IsDeniedCompany(token string) bool {
	_, ok := p.deniedOrgs[strings.ToLower(token)]
	return ok
}

// IsDeniedDevice reports whether the device model is refused service.
func (p *Policy) IsDeniedDevice(model string) bool {
	_, ok := p.deniedDevices[strings.ToLower(model)]
	return ok
}

// IsDDoSCompany reports whether the org gets the tar-pit response
// instead of a normal error.
func (p *Policy) IsDDoSCompany(token string) bool {
	_, ok := p.ddosOrgs[strings.ToLower(token)]
	return ok
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			set[strings.ToLower(item)] = struct{}{}
		}
	}
	return set
}
