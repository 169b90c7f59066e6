package parser

// CraftPart is one part row from a craft layout file. Parent linkage is by
// part ID; -1 marks the root. The sim resolves links when building the
// vessel tree, so rows may reference parents defined later in the file.
type CraftPart struct {
	ID            uint16
	ParentID      int
	Name          string
	Category      string
	Stage         int
	MaxTemp       float64
	MaxThrust     float64
	BreakingForce float64
	ExplosiveFuel bool
}

// CraftFile is a parsed craft layout: the craft name and its part rows in
// file order.
type CraftFile struct {
	Name  string
	Parts []CraftPart
}
