package hook

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/gitbackend"
)

func encodeSig(sig []byte) string    { return base64.StdEncoding.EncodeToString(sig) }
func decodeSig(s string) ([]byte, error) { return base64.StdEncoding.DecodeString(s) }

// StepReceipt records one pipeline step's outcome within a Receipt.
type StepReceipt struct {
	StepID     string `json:"stepId"`
	Status     string `json:"status"`
	DurationMs int64  `json:"durationMs"`
	Error      string `json:"error,omitempty"`
	OutputRef  string `json:"outputRef,omitempty"`
}

// PredicateReceipt is the predicate-evaluation summary embedded in a Receipt.
type PredicateReceipt struct {
	Kind    string         `json:"kind"`
	Verdict bool           `json:"verdict"`
	Metrics map[string]any `json:"metrics,omitempty"`
}

// Receipt is the JSON document written to the notes ref after every
// hook evaluation, whether or not the predicate fired (spec §6).
type Receipt struct {
	HookID         string            `json:"hookId"`
	FiredAt        string            `json:"firedAt"`
	EvalDurationMs int64             `json:"evalDurationMs"`
	Predicate      PredicateReceipt  `json:"predicate"`
	Pipeline       []StepReceipt     `json:"pipeline,omitempty"`
	Worktree       string            `json:"worktree"`
	Commit         string            `json:"commit"`
	Signature      string            `json:"signature,omitempty"`
}

// predicateKindName gives Receipt.Predicate.Kind a stable string label
// independent of predicate.Kind's int representation.
func predicateKindName(k int) string {
	switch k {
	case 0:
		return "ask"
	case 1:
		return "threshold"
	case 2:
		return "delta"
	default:
		return "unknown"
	}
}

// contentHash is what a signature (and verify-receipt's re-check)
// covers: every field except Signature itself.
func (r Receipt) contentHash() ([]byte, error) {
	unsigned := r
	unsigned.Signature = ""
	return json.Marshal(unsigned)
}

// Sign computes an Ed25519 signature over the receipt's content and
// sets Signature to its hex-free base64 form. Signing is optional
// (spec §6): callers only invoke this when a signing key is configured.
func (r *Receipt) Sign(priv ed25519.PrivateKey) error {
	payload, err := r.contentHash()
	if err != nil {
		return fmt.Errorf("hook: hash receipt for signing: %w", err)
	}
	sig := ed25519.Sign(priv, payload)
	r.Signature = encodeSig(sig)
	return nil
}

// Verify checks a receipt's Ed25519 signature against pub. It returns
// false, nil if the receipt carries no signature at all (unsigned
// receipts are valid when signing is not configured).
func (r Receipt) Verify(pub ed25519.PublicKey) (bool, error) {
	if r.Signature == "" {
		return false, nil
	}
	sig, err := decodeSig(r.Signature)
	if err != nil {
		return false, fmt.Errorf("hook: decode receipt signature: %w", err)
	}
	payload, err := r.contentHash()
	if err != nil {
		return false, fmt.Errorf("hook: hash receipt for verification: %w", err)
	}
	return ed25519.Verify(pub, payload, sig), nil
}

// LoadSigningKey reads an Ed25519 private key written as raw seed bytes
// (ed25519.SeedSize) at path. A signing key is an optional deployment
// choice (spec §6); callers treat a missing path as "signing disabled".
func LoadSigningKey(path string) (ed25519.PrivateKey, error) {
	seed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("hook: read signing key %s: %w", path, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("hook: signing key %s: want %d bytes, got %d", path, ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}

// EmitReceipt marshals r and appends it to the notes ref under the
// current commit, guarded by a ref-lock so concurrent evaluations
// never interleave two notes commands against the same ref (spec
// §4.3's at-least-once / no-corruption guarantee).
func EmitReceipt(gb *gitbackend.Backend, notesRef string, r Receipt) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("hook: marshal receipt: %w", err)
	}
	lease, err := gb.RefLock(notesRef + ".lock")
	if err != nil {
		return fmt.Errorf("hook: acquire receipt lock: %w", err)
	}
	defer gb.RefRelease(lease)

	if err := gb.NotesAppend(notesRef, r.Commit, string(payload)); err != nil {
		return fmt.Errorf("hook: append receipt note: %w", err)
	}
	return nil
}

func newReceiptTimestamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}
