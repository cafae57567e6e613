package ingest

import (
	"reflect"

	"github.com/nerrad567/onair-core/internal/blueprint"
	"github.com/nerrad567/onair-core/internal/rundown"
)

// SourceTypeMOS identifies MOS-protocol sources. Rename detection across
// partial deletes is honoured for MOS only; other source types always
// resolve to delete+insert.
const SourceTypeMOS = "mos"

// CommitData describes the playout-relevant outcome of diffing the old and
// new ingest snapshots. All ids are internal (derived) ids. A nil
// *CommitData from the diff means nothing playout-relevant changed and the
// commit stage must be a no-op.
type CommitData struct {
	// ChangedSegmentIDs lists segments that are new or whose content
	// (name, rank or part list) differs.
	ChangedSegmentIDs []string

	// RemovedSegmentIDs lists segments present before and gone now.
	// Renamed segments are not listed here; rename wins over delete.
	RemovedSegmentIDs []string

	// RenamedSegments maps old segment id to new segment id. Parts that
	// moved with a rename are relocations, not delete+insert.
	RenamedSegments map[string]string

	// RemoveRundown requests full rundown removal.
	RemoveRundown bool

	// ReturnRemoveFailure surfaces a blocked removal as a UserError
	// instead of a silent skip.
	ReturnRemoveFailure bool
}

// PartRank is one part's position within a segment, captured before the
// commit stage mutates anything.
type PartRank struct {
	PartID string
	Rank   float64
}

// BeforePartMap records each segment's ordered part list as it stood when
// the cache was loaded. The commit stage diffs against it to detect
// structural part changes.
type BeforePartMap map[string][]PartRank

// structureChanged compares a segment's part list before and after the
// commit: any insert, removal or reorder of parts counts.
func structureChanged(before, after []PartRank) bool {
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i].PartID != after[i].PartID || before[i].Rank != after[i].Rank {
			return true
		}
	}
	return false
}

// computeCommitData diffs the previous and new ingest snapshots.
// oldData may be nil for first-time ingest; newData nil means delete.
func computeCommitData(rundownID string, oldData, newData *blueprint.IngestRundown, returnRemoveFailure bool) *CommitData {
	if newData == nil {
		return &CommitData{RemoveRundown: true, ReturnRemoveFailure: returnRemoveFailure}
	}

	if oldData != nil && reflect.DeepEqual(oldData, newData) {
		return nil
	}

	segID := func(externalID string) string {
		return rundown.DeriveSegmentID(rundownID, externalID)
	}

	newByExternal := make(map[string]*blueprint.IngestSegment, len(newData.Segments))
	for i := range newData.Segments {
		newByExternal[newData.Segments[i].ExternalID] = &newData.Segments[i]
	}

	cd := &CommitData{}

	var oldByExternal map[string]*blueprint.IngestSegment
	if oldData != nil {
		oldByExternal = make(map[string]*blueprint.IngestSegment, len(oldData.Segments))
		for i := range oldData.Segments {
			oldByExternal[oldData.Segments[i].ExternalID] = &oldData.Segments[i]
		}
	}

	var addedExternal []string
	for _, seg := range newData.Segments {
		old, existed := oldByExternal[seg.ExternalID]
		if !existed {
			cd.ChangedSegmentIDs = append(cd.ChangedSegmentIDs, segID(seg.ExternalID))
			addedExternal = append(addedExternal, seg.ExternalID)
			continue
		}
		if !reflect.DeepEqual(old, newByExternal[seg.ExternalID]) {
			cd.ChangedSegmentIDs = append(cd.ChangedSegmentIDs, segID(seg.ExternalID))
		}
	}

	var removedExternal []string
	if oldData != nil {
		for _, seg := range oldData.Segments {
			if _, stillPresent := newByExternal[seg.ExternalID]; !stillPresent {
				removedExternal = append(removedExternal, seg.ExternalID)
			}
		}
	}

	// Rename detection: a removed segment whose parts all reappear inside
	// exactly one added segment is the same segment under a new external
	// id. Applied before delete so relocated parts keep their identity.
	renamed := make(map[string]string)
	if newData.Type == SourceTypeMOS {
		for _, oldExt := range removedExternal {
			target, ok := findRenameTarget(oldByExternal[oldExt], addedExternal, newByExternal)
			if ok {
				renamed[oldExt] = target
			}
		}
	}

	for _, oldExt := range removedExternal {
		if newExt, wasRenamed := renamed[oldExt]; wasRenamed {
			if cd.RenamedSegments == nil {
				cd.RenamedSegments = make(map[string]string)
			}
			cd.RenamedSegments[segID(oldExt)] = segID(newExt)
			continue
		}
		cd.RemovedSegmentIDs = append(cd.RemovedSegmentIDs, segID(oldExt))
	}

	if len(cd.ChangedSegmentIDs) == 0 && len(cd.RemovedSegmentIDs) == 0 &&
		len(cd.RenamedSegments) == 0 && !rundownHeaderChanged(oldData, newData) {
		return nil
	}
	return cd
}

// findRenameTarget looks for the single added segment containing every part
// of the removed segment.
func findRenameTarget(removed *blueprint.IngestSegment, addedExternal []string, newByExternal map[string]*blueprint.IngestSegment) (string, bool) {
	if removed == nil || len(removed.Parts) == 0 {
		return "", false
	}

	var target string
	for _, addedExt := range addedExternal {
		added := newByExternal[addedExt]
		if containsAllParts(added, removed.Parts) {
			if target != "" {
				// Ambiguous; treat as a real delete.
				return "", false
			}
			target = addedExt
		}
	}
	return target, target != ""
}

func containsAllParts(seg *blueprint.IngestSegment, parts []blueprint.IngestPart) bool {
	have := make(map[string]bool, len(seg.Parts))
	for _, p := range seg.Parts {
		have[p.ExternalID] = true
	}
	for _, p := range parts {
		if !have[p.ExternalID] {
			return false
		}
	}
	return true
}

func rundownHeaderChanged(oldData, newData *blueprint.IngestRundown) bool {
	if oldData == nil {
		return true
	}
	return oldData.Name != newData.Name || oldData.Type != newData.Type
}
