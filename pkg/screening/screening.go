// Package screening rejects free text that carries SQL injection or XSS
// payloads before it is stored or rendered on public pages.
package screening

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// Payload kinds.
const (
	KindSQLi = "sqli"
	KindXSS  = "xss"
)

// Finding describes one field that failed screening.
type Finding struct {
	Field       string
	Value       string
	Kind        string
	Fingerprint string // libinjection fingerprint, set for sqli only
}

// CheckField screens a single value. Returns nil when the value is clean.
func CheckField(field, value string) *Finding {
	if value == "" {
		return nil
	}
	if libinjection.IsXSS(value) {
		return &Finding{Field: field, Value: value, Kind: KindXSS}
	}
	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &Finding{
			Field:       field,
			Value:       value,
			Kind:        KindSQLi,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}

// CheckFields screens every value and returns the findings ordered by field name.
func CheckFields(fields map[string]string) []*Finding {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var findings []*Finding
	for _, name := range names {
		if f := CheckField(name, fields[name]); f != nil {
			findings = append(findings, f)
		}
	}
	return findings
}
