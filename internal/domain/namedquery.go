package domain

// NamedQuery is a stored, parameterized template resolving to a set of
// assets. Global queries apply to every customer unless shadowed by a
// customer-specific query of the same name.
type NamedQuery struct {
	ID       string
	Customer int
	Global   bool
	Name     string
	Template string
}

// QueryField names an asset column a named-query template element can map to,
// e.g. for canvas ordering.
type QueryField int

const (
	QueryFieldUnset QueryField = iota
	QueryFieldString1
	QueryFieldString2
	QueryFieldString3
	QueryFieldNumber1
	QueryFieldNumber2
	QueryFieldNumber3
)

// AssetQuery is the concrete filter produced by binding a named-query
// template. Nil members are unconstrained; set members combine with AND
// semantics. Execution always excludes not-for-delivery assets.
type AssetQuery struct {
	Customer  int
	Space     *int
	SpaceName *string
	String1   *string
	String2   *string
	String3   *string
	Number1   *int64
	Number2   *int64
	Number3   *int64
}
