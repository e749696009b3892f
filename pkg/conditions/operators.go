package conditions

import (
	"errors"
	"fmt"

	"github.com/jobdeck/automata/pkg/models"
)

// ErrOperatorNotAllowed is returned when a condition pairs an operator with
// a property type that does not support it.
var ErrOperatorNotAllowed = errors.New("operator not allowed for property type")

// operatorsByType restricts the operator set available to each property
// type. A pairing outside this table is rejected at evaluation time, not
// coerced.
var operatorsByType = map[models.PropertyType][]models.Operator{
	models.PropertyTypeText: {
		models.OperatorEquals,
		models.OperatorNotEquals,
		models.OperatorContains,
		models.OperatorNotContains,
		models.OperatorStartsWith,
		models.OperatorEndsWith,
	},
	models.PropertyTypeNumber: {
		models.OperatorEquals,
		models.OperatorNotEquals,
		models.OperatorGreaterThan,
		models.OperatorLessThan,
		models.OperatorGreaterEqual,
		models.OperatorLessEqual,
	},
	models.PropertyTypeBoolean: {
		models.OperatorIsTrue,
		models.OperatorIsFalse,
	},
	models.PropertyTypeDate: {
		models.OperatorOn,
		models.OperatorBefore,
		models.OperatorAfter,
		models.OperatorBetween,
	},
	models.PropertyTypeSelect: {
		models.OperatorEquals,
		models.OperatorNotEquals,
	},
	models.PropertyTypeMultiSelect: {
		models.OperatorContains,
		models.OperatorNotContains,
	},
}

// OperatorAllowed reports whether op is valid for the given property type.
func OperatorAllowed(propertyType models.PropertyType, op models.Operator) bool {
	for _, allowed := range operatorsByType[propertyType] {
		if op == allowed {
			return true
		}
	}

	return false
}

// AllowedOperators returns the operator set for a property type.
func AllowedOperators(propertyType models.PropertyType) []models.Operator {
	ops := operatorsByType[propertyType]
	out := make([]models.Operator, len(ops))
	copy(out, ops)

	return out
}

func checkOperator(cond models.Condition) error {
	if !OperatorAllowed(cond.PropertyType, cond.Operator) {
		return fmt.Errorf("%w: %s on %s property %q",
			ErrOperatorNotAllowed, cond.Operator, cond.PropertyType, cond.Property)
	}

	return nil
}
