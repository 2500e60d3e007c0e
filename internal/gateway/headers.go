package gateway

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/3cL1p5e7/icx-gateway/internal/agent"
)

// extractHeadersData scans a canister response's headers (case
// insensitive names) for IC-Certificate and Content-Encoding, per
// spec.md §4.2, applying the duplicate-field policy from §3: the first
// successfully decoded value for a name is retained; a later success is
// warned and dropped; a later value only replaces an earlier
// decode-error.
func extractHeadersData(headers []agent.HeaderField, logger *slog.Logger) agent.HeadersData {
	var data agent.HeadersData

	for _, h := range headers {
		switch {
		case strings.EqualFold(h.Name, "IC-Certificate"):
			for _, field := range strings.Split(h.Value, ",") {
				name, value, ok := parseCertificateField(field)
				if !ok {
					continue
				}
				decoded, err := base64.StdEncoding.DecodeString(value)
				if err != nil {
					logger.Debug(decodeHashTreeError(name, agent.FieldResult{Err: err}))
				}
				switch name {
				case "certificate":
					data.Certificate = mergeField(data.Certificate, decoded, err, "certificate", logger)
				case "tree":
					data.Tree = mergeField(data.Tree, decoded, err, "tree", logger)
				}
			}
		case strings.EqualFold(h.Name, "Content-Encoding"):
			data.Encoding = strings.TrimSpace(h.Value)
		}
	}

	return data
}

// parseCertificateField matches the shape "<name>=:<base64>:" after
// trimming surrounding whitespace.
func parseCertificateField(field string) (name, value string, ok bool) {
	field = strings.TrimSpace(field)
	eq := strings.Index(field, "=:")
	if eq < 0 || !strings.HasSuffix(field, ":") {
		return "", "", false
	}
	name = field[:eq]
	value = field[eq+2 : len(field)-1]
	return name, value, true
}

// mergeField applies the duplicate-field policy: the first successful
// decode wins; later successes are warned-and-dropped; a later value
// only overrides a previously-stored decode error.
func mergeField(existing agent.FieldResult, decoded []byte, decodeErr error, name string, logger *slog.Logger) agent.FieldResult {
	next := agent.FieldResult{Present: true, Bytes: decoded, Err: decodeErr}
	if !existing.Present {
		return next
	}
	if existing.Err == nil {
		if decodeErr == nil {
			logger.Warn("duplicate certificate field, ignoring", "field", name)
		} else {
			logger.Warn("duplicate certificate field (failed to decode), ignoring", "field", name)
		}
		return existing
	}
	// existing was a decode error: a later value of either kind replaces it.
	if decodeErr != nil {
		logger.Warn("duplicate certificate field (failed to decode)", "field", name)
	}
	return next
}

// decodeHashTreeError renders a FieldResult's decode failure for
// logging, matching the original's "Unable to decode %s from base64" wording.
func decodeHashTreeError(name string, fr agent.FieldResult) string {
	return fmt.Sprintf("Unable to decode %s from base64: %v", name, fr.Err)
}
