package models

// PropertyType declares how a condition's property should be compared.
// The operator set available to a condition is restricted by this type; an
// operator outside the set is rejected when the condition is evaluated, not
// silently coerced.
type PropertyType string

const (
	PropertyTypeText        PropertyType = "text"
	PropertyTypeNumber      PropertyType = "number"
	PropertyTypeBoolean     PropertyType = "boolean"
	PropertyTypeDate        PropertyType = "date"
	PropertyTypeSelect      PropertyType = "select"
	PropertyTypeMultiSelect PropertyType = "multiselect"
)

// Operator is a single comparison operator.
type Operator string

const (
	// Text (and select) operators. String compares are case-sensitive.
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorContains    Operator = "contains"
	OperatorNotContains Operator = "not_contains"
	OperatorStartsWith  Operator = "starts_with"
	OperatorEndsWith    Operator = "ends_with"

	// Number operators.
	OperatorGreaterThan  Operator = "greater_than"
	OperatorLessThan     Operator = "less_than"
	OperatorGreaterEqual Operator = "greater_equal"
	OperatorLessEqual    Operator = "less_equal"

	// Boolean operators.
	OperatorIsTrue  Operator = "is_true"
	OperatorIsFalse Operator = "is_false"

	// Date operators.
	OperatorOn      Operator = "on"
	OperatorBefore  Operator = "before"
	OperatorAfter   Operator = "after"
	OperatorBetween Operator = "between"
)

// GroupLogic is the operator a condition group declares relative to its
// siblings. The evaluator combines groups with OR and conditions within a
// group with AND regardless; the field mirrors what the builder UI stores.
type GroupLogic string

const (
	GroupLogicAnd GroupLogic = "AND"
	GroupLogicOr  GroupLogic = "OR"
)

// Condition is a single comparison of a context property against a value.
// Value may itself be a template ("{{job.assignee}}") so two context fields
// can be compared to each other.
type Condition struct {
	Property     string       `json:"property"      validate:"required"`
	PropertyType PropertyType `json:"property_type" validate:"required,oneof=text number boolean date select multiselect"`
	Operator     Operator     `json:"operator"      validate:"required"`
	Value        string       `json:"value"`
	// SecondValue carries the upper bound for the date "between" operator.
	SecondValue string `json:"second_value,omitempty"`
}

// ConditionGroup is an ordered list of conditions combined with AND.
type ConditionGroup struct {
	Logic      GroupLogic  `json:"logic"`
	Conditions []Condition `json:"conditions"`
}
