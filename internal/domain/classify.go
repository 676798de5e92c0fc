package domain

// Snapshot is the immutable result of classifying a record set for one target
// year. Each call to Classify produces a fresh Snapshot; snapshots are
// superseded, never merged.
type Snapshot struct {
	Year      int             `json:"year"`
	Visible   []LandingRecord `json:"visible"`
	Current   []LandingRecord `json:"current"`
	Invisible []LandingRecord `json:"invisible"`
	Largest   *LandingRecord  `json:"largest,omitempty"`
	Smallest  *LandingRecord  `json:"smallest,omitempty"`
}

// Empty reports whether nothing is visible.
func (s Snapshot) Empty() bool { return len(s.Visible) == 0 }

// Classify partitions records for targetYear in a single pass:
//   - visible: year <= targetYear
//   - current: year == targetYear (a subset of visible)
//   - invisible: everything else
//
// Largest and Smallest are tracked over the visible records of the same pass,
// so they are consistent with Visible by construction. Largest uses a strict
// ">" on mass and Smallest a strict "<" over records with mass > 0; in both
// cases the first occurrence wins ties. Either is nil when no record qualifies.
//
// The partition is recomputed from scratch for every year rather than updated
// incrementally, because seeks can move the target year in either direction.
func Classify(records []LandingRecord, targetYear int) Snapshot {
	snap := Snapshot{Year: targetYear}
	largest, smallest := -1, -1

	for i := range records {
		r := &records[i]
		if r.Year > targetYear {
			snap.Invisible = append(snap.Invisible, *r)
			continue
		}

		snap.Visible = append(snap.Visible, *r)
		if r.Year == targetYear {
			snap.Current = append(snap.Current, *r)
		}
		if largest < 0 || r.Mass > records[largest].Mass {
			largest = i
		}
		if r.HasMass() && (smallest < 0 || r.Mass < records[smallest].Mass) {
			smallest = i
		}
	}

	if largest >= 0 {
		l := records[largest]
		snap.Largest = &l
	}
	if smallest >= 0 {
		s := records[smallest]
		snap.Smallest = &s
	}
	return snap
}
