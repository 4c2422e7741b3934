package tabula

type notSetType struct{}

func (notSetType) String() string { return "NotSet" }

// NotSet marks a field value that has never been assigned. It is distinct
// from every real value (including nil), equal only to itself, and is kept in
// its own index partition so it never takes part in ordering.
var NotSet = notSetType{}

func isNotSet(value any) bool {
	_, ok := value.(notSetType)
	return ok
}
