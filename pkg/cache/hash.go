package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// SummaryKeyOpts are the options that change a summary.
type SummaryKeyOpts struct {
	Variants []string `json:"variants,omitempty"`
	MergeID  string   `json:"merge_id,omitempty"`
}

// RenderKeyOpts are the options that change a rendering.
type RenderKeyOpts struct {
	Variant  string `json:"variant"`
	Format   string `json:"format"`
	Detailed bool   `json:"detailed,omitempty"`
	Clusters bool   `json:"clusters,omitempty"`
}

// Keyer derives cache keys. caseHash is the [Hash] of the case file bytes,
// or of the concatenated hashes when several files are merged.
type Keyer interface {
	SummaryKey(caseHash string, opts SummaryKeyOpts) string
	RenderKey(caseHash string, opts RenderKeyOpts) string
}

// DefaultKeyer produces keys of the form "<kind>:<sha256>".
type DefaultKeyer struct{}

func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) SummaryKey(caseHash string, opts SummaryKeyOpts) string {
	return hashKey("summary", caseHash, opts)
}

func (DefaultKeyer) RenderKey(caseHash string, opts RenderKeyOpts) string {
	return hashKey("render", caseHash, opts)
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
