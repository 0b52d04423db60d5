package transport

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/hashstructure/v2"
)

// IdempotencyHeader carries a content hash of the outbound request body.
// It is observability, not a dedup guarantee the server honors: spec.md §5
// Idempotence places retry policy entirely on the caller, so this header
// only lets an operator correlate two requests that carried the same
// provider payload (e.g. while diagnosing a caller-driven Workflow.ResetFailed
// retry against provider-side logs).
const IdempotencyHeader = "Idempotency-Key"

// requestIdempotencyKey decodes req as JSON and hashes the resulting value
// structurally, rather than hashing the raw bytes, so two requests that
// serialize the same fields in a different key order still produce the same
// key. A body that isn't valid JSON (never expected from buildProviderRequest)
// skips the header rather than failing the call.
func requestIdempotencyKey(req []byte) (string, bool) {
	var decoded any
	if err := json.Unmarshal(req, &decoded); err != nil {
		return "", false
	}
	hash, err := hashstructure.Hash(decoded, hashstructure.FormatV2, nil)
	if err != nil {
		return "", false
	}
	return fmt.Sprintf("%x", hash), true
}
