package core

// DBOrdering is a single sort key parsed from a list request, passed down to
// repositories so storage decides how to apply it.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
