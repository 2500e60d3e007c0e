//go:build !skip_body_verification

package gateway

import "log/slog"

// handleVerificationFailure enforces body verification: the caller's
// error is returned unchanged and the request fails. This is the
// behavior every shipped binary uses, per spec.md §4.4.
func handleVerificationFailure(logger *slog.Logger, err error) error {
	return err
}
