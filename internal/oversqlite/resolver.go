package oversqlite

import (
	"bytes"
	"encoding/json"
)

// MergeOutcome is the resolver's disposition on a conflict.
type MergeOutcome int

const (
	AcceptServer MergeOutcome = iota
	KeepLocal
)

// MergeResult is a resolver's verdict: AcceptServer takes the server's row
// as-is, KeepLocal carries the payload that should be retried against the
// server's current version.
type MergeResult struct {
	Outcome MergeOutcome
	Payload json.RawMessage
}

// Resolver is the pluggable conflict-merge capability (§4.4). Implementations
// must be pure and side-effect free; the engine treats Merge as a
// referentially transparent function of its inputs.
type Resolver interface {
	Merge(table, pk string, serverRow, localPayload json.RawMessage) (MergeResult, error)
}

// ServerWinsResolver always accepts the server's row. It is the deterministic
// default every Engine is constructed with unless the caller supplies another.
type ServerWinsResolver struct{}

func (ServerWinsResolver) Merge(_, _ string, _, _ json.RawMessage) (MergeResult, error) {
	return MergeResult{Outcome: AcceptServer}, nil
}

// ClientWinsResolver always keeps the local payload, rebasing it against the
// server's version. Provided as a reference policy for tests (§4.4, §8 S4).
type ClientWinsResolver struct{}

func (ClientWinsResolver) Merge(_, _ string, _, localPayload json.RawMessage) (MergeResult, error) {
	return MergeResult{Outcome: KeepLocal, Payload: localPayload}, nil
}

// FieldMergeResolver merges non-overlapping JSON object keys between the
// server row and the local payload, falling back to AcceptServer when both
// sides set the same key to different values. A supplemental convenience
// built for field-level convergence tests (§4.4); not a default.
type FieldMergeResolver struct{}

func (FieldMergeResolver) Merge(_, _ string, serverRow, localPayload json.RawMessage) (MergeResult, error) {
	if len(serverRow) == 0 || bytes.Equal(bytes.TrimSpace(serverRow), []byte("null")) {
		return MergeResult{Outcome: KeepLocal, Payload: localPayload}, nil
	}
	if len(localPayload) == 0 {
		return MergeResult{Outcome: AcceptServer}, nil
	}

	var serverFields, localFields map[string]json.RawMessage
	if err := json.Unmarshal(serverRow, &serverFields); err != nil {
		return MergeResult{}, wrapf(ErrResolver, err, "decode server row")
	}
	if err := json.Unmarshal(localPayload, &localFields); err != nil {
		return MergeResult{}, wrapf(ErrResolver, err, "decode local payload")
	}

	merged := make(map[string]json.RawMessage, len(serverFields)+len(localFields))
	for k, v := range serverFields {
		merged[k] = v
	}
	for k, localV := range localFields {
		if serverV, onServer := serverFields[k]; onServer && !bytes.Equal(bytes.TrimSpace(serverV), bytes.TrimSpace(localV)) {
			// Same key, different value on both sides: no field-level merge
			// is possible, defer to the server's row wholesale.
			return MergeResult{Outcome: AcceptServer}, nil
		}
		merged[k] = localV
	}

	payload, err := json.Marshal(merged)
	if err != nil {
		return MergeResult{}, wrapf(ErrResolver, err, "encode merged payload")
	}
	return MergeResult{Outcome: KeepLocal, Payload: payload}, nil
}
