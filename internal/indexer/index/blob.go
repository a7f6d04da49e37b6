package index

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/notesearch/pkg/errors"
)

// MetadataKey holds the metadata table inside the blob. It has no tag
// marker, so it can never collide with a tag.
const MetadataKey = "__fileMetadata"

// DecodeReport counts what Decode had to fix.
type DecodeReport struct {
	// SkippedKeys are top-level keys that are neither tags nor MetadataKey.
	SkippedKeys int
	// Repaired counts postings and empty lists dropped to restore the
	// index invariants.
	Repaired int
}

// Encode serializes snap as one JSON object: tag → postings, plus the
// metadata table under MetadataKey. Tags with no postings are omitted.
func Encode(snap Snapshot) ([]byte, error) {
	out := make(map[string]any, len(snap.Tags)+1)
	for tag, list := range snap.Tags {
		if len(list) == 0 {
			continue
		}
		out[tag] = list
	}
	meta := snap.Metadata
	if meta == nil {
		meta = map[string]DocumentMetadata{}
	}
	out[MetadataKey] = meta
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding tag index: %w", err)
	}
	return data, nil
}

// Decode parses a blob written by Encode. Structurally malformed input
// returns an error wrapping ErrStorageCorrupt. Well-formed input that
// breaks the index invariants is repaired: empty tag lists are dropped,
// repeated postings for one document under one tag collapse to the last,
// and postings for documents without a metadata row are dropped.
func Decode(data []byte, marker string) (Snapshot, DecodeReport, error) {
	var report DecodeReport
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Snapshot{}, report, fmt.Errorf("%w: %v", apperrors.ErrStorageCorrupt, err)
	}
	if raw == nil {
		return Snapshot{}, report, fmt.Errorf("%w: top-level value is not an object", apperrors.ErrStorageCorrupt)
	}

	snap := Snapshot{
		Tags:     make(map[string]PostingList),
		Metadata: make(map[string]DocumentMetadata),
	}
	if rawMeta, ok := raw[MetadataKey]; ok {
		var meta map[string]DocumentMetadata
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return Snapshot{}, report, fmt.Errorf("%w: metadata table: %v", apperrors.ErrStorageCorrupt, err)
		}
		for id, md := range meta {
			if id == "" {
				report.Repaired++
				continue
			}
			md.DocumentID = id
			snap.Metadata[id] = md
		}
	}

	for key, value := range raw {
		if key == MetadataKey {
			continue
		}
		if !strings.HasPrefix(key, marker) {
			report.SkippedKeys++
			continue
		}
		var list PostingList
		if err := json.Unmarshal(value, &list); err != nil {
			return Snapshot{}, report, fmt.Errorf("%w: postings for %q: %v", apperrors.ErrStorageCorrupt, key, err)
		}
		kept, dropped := repairPostings(list, snap.Metadata)
		report.Repaired += dropped
		if len(kept) == 0 {
			report.Repaired++
			continue
		}
		snap.Tags[key] = kept
	}
	return snap, report, nil
}

func repairPostings(list PostingList, meta map[string]DocumentMetadata) (PostingList, int) {
	dropped := 0
	position := make(map[string]int, len(list))
	kept := make(PostingList, 0, len(list))
	for _, p := range list {
		if _, ok := meta[p.DocumentID]; !ok || len(p.Occurrences) == 0 {
			dropped++
			continue
		}
		if i, seen := position[p.DocumentID]; seen {
			kept[i] = p
			dropped++
			continue
		}
		position[p.DocumentID] = len(kept)
		kept = append(kept, p)
	}
	return kept, dropped
}
