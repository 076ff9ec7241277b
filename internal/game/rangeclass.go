package game

// RangeClass is a shared lookup entry describing how close an attacker of
// this class stops before a unit or building target.
type RangeClass struct {
	Code                     string
	UnitStoppingDistance     float64
	BuildingStoppingDistance float64
	// MoveOnAttackOffset is the slack added to the stopping distance before a
	// mobile attacker counts as in range.
	MoveOnAttackOffset float64
	// UpdateMoveDistance is how far a target may drift before the approach
	// path is recomputed.
	UpdateMoveDistance float64
}

// StoppingDistance returns the stopping distance against a target of kind k.
func (rc RangeClass) StoppingDistance(k EntityKind) float64 {
	if k == KindStructure {
		return rc.BuildingStoppingDistance
	}
	return rc.UnitStoppingDistance
}

// RangeTable indexes range classes by code.
type RangeTable map[string]RangeClass

// NewRangeTable builds a table from a list of classes. Later duplicates win.
func NewRangeTable(classes ...RangeClass) RangeTable {
	t := make(RangeTable, len(classes))
	for _, rc := range classes {
		t[rc.Code] = rc
	}
	return t
}

// Get returns the class for code. A missing class yields the zero class with
// ok=false; catalogs are validated at load time so this only happens in tests.
func (t RangeTable) Get(code string) (RangeClass, bool) {
	rc, ok := t[code]
	if !ok {
		rc.Code = code
	}
	return rc, ok
}
