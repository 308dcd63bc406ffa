package classifier

import "strings"

// Detect maps a sender address to a competitor ID using the registry
// snapshot. Exact domain match wins; otherwise a subdomain matches only when
// a literal dot precedes the registered domain, so notacme.com never matches
// acme.com.
func Detect(senderAddress string, domains map[string]string) (string, bool) {
	domain := senderDomain(senderAddress)
	if domain == "" {
		return "", false
	}

	if competitorID, ok := domains[domain]; ok {
		return competitorID, true
	}

	for registered, competitorID := range domains {
		if strings.HasSuffix(domain, "."+registered) {
			return competitorID, true
		}
	}

	return "", false
}

// senderDomain extracts the lowercased domain portion of an address
func senderDomain(address string) string {
	idx := strings.LastIndex(address, "@")
	if idx == -1 || idx == len(address)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(address[idx+1:]))
}
