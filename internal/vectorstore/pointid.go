package vectorstore

import "github.com/google/uuid"

// pointIDNamespace is a fixed namespace UUID so that the same string id
// always normalizes to the same UUID across processes and machines
// (spec §6: "string ids normalized to UUID form deterministically
// (UUID-v5-like)").
var pointIDNamespace = uuid.MustParse("6f5f8f2e-6e3a-4c1f-9f0d-6a6b2e6d9a11")

// qdrantPointID derives a deterministic UUID-v5 point ID from a caller-facing
// string id (a chunk ID, commit chunk ID, or reserved marker ID). Qdrant
// point IDs must be either an unsigned integer or a UUID; this keeps our
// semantic string IDs while satisfying that constraint.
func qdrantPointID(id string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(id)).String()
}
