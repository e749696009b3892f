// Package conditions evaluates workflow condition trees against a trigger
// context.
//
// Top-level groups combine with OR; conditions within one group combine
// with AND, mirroring the builder UI's "add condition" / "add condition
// group" semantics. An empty tree is unconditionally satisfied, and an
// empty group is vacuously true, which under OR makes the whole tree
// true. Both edge cases are load-bearing compatibility behavior for
// existing workflows and must not be "fixed" here.
package conditions

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/jobdeck/automata/pkg/template"
)

// Evaluate returns true when any group of the tree is satisfied. A
// condition that cannot be evaluated (invalid operator pairing, non-numeric
// operand, unparseable date) counts as false and is logged; it never aborts
// the tree.
func Evaluate(groups []models.ConditionGroup, data map[string]any) bool {
	if len(groups) == 0 {
		return true
	}

	for _, group := range groups {
		if groupSatisfied(group, data) {
			return true
		}
	}

	return false
}

func groupSatisfied(group models.ConditionGroup, data map[string]any) bool {
	for _, cond := range group.Conditions {
		ok, err := EvaluateCondition(cond, data)
		if err != nil {
			slog.Warn("Condition could not be evaluated, treating as false",
				"property", cond.Property,
				"operator", string(cond.Operator),
				"error", err)

			return false
		}

		if !ok {
			return false
		}
	}

	return true
}

// EvaluateCondition evaluates a single comparison. The condition's value is
// rendered through the template package first, so values may themselves
// reference context fields.
func EvaluateCondition(cond models.Condition, data map[string]any) (bool, error) {
	if err := checkOperator(cond); err != nil {
		return false, err
	}

	property, found := template.Lookup(data, strings.Split(cond.Property, "."))
	if !found {
		property = nil
	}

	value := template.Render(cond.Value, data)

	switch cond.PropertyType {
	case models.PropertyTypeText, models.PropertyTypeSelect:
		return compareText(template.Stringify(property), cond.Operator, value), nil
	case models.PropertyTypeNumber:
		return compareNumber(property, cond.Operator, value), nil
	case models.PropertyTypeBoolean:
		return compareBoolean(property, cond.Operator), nil
	case models.PropertyTypeDate:
		second := template.Render(cond.SecondValue, data)

		return compareDate(property, cond.Operator, value, second), nil
	case models.PropertyTypeMultiSelect:
		return compareMultiSelect(property, cond.Operator, value), nil
	default:
		return false, nil
	}
}

// compareText applies case-sensitive string comparison. Case folding is an
// explicit future option, not the default.
func compareText(property string, op models.Operator, value string) bool {
	switch op {
	case models.OperatorEquals:
		return property == value
	case models.OperatorNotEquals:
		return property != value
	case models.OperatorContains:
		return strings.Contains(property, value)
	case models.OperatorNotContains:
		return !strings.Contains(property, value)
	case models.OperatorStartsWith:
		return strings.HasPrefix(property, value)
	case models.OperatorEndsWith:
		return strings.HasSuffix(property, value)
	default:
		return false
	}
}

// compareNumber coerces both operands via parse; a non-numeric operand
// makes the condition false, never an error.
func compareNumber(property any, op models.Operator, value string) bool {
	left, err := strconv.ParseFloat(template.Stringify(property), 64)
	if err != nil {
		return false
	}

	right, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return false
	}

	switch op {
	case models.OperatorEquals:
		return left == right
	case models.OperatorNotEquals:
		return left != right
	case models.OperatorGreaterThan:
		return left > right
	case models.OperatorLessThan:
		return left < right
	case models.OperatorGreaterEqual:
		return left >= right
	case models.OperatorLessEqual:
		return left <= right
	default:
		return false
	}
}

func compareBoolean(property any, op models.Operator) bool {
	truth, ok := property.(bool)
	if !ok {
		parsed, err := strconv.ParseBool(template.Stringify(property))
		if err != nil {
			return false
		}

		truth = parsed
	}

	switch op {
	case models.OperatorIsTrue:
		return truth
	case models.OperatorIsFalse:
		return !truth
	default:
		return false
	}
}

// dateFormats are tried in order when parsing date operands.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateFormats {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// compareDate parses ISO-8601 operands; an invalid date makes the
// condition false.
func compareDate(property any, op models.Operator, value, second string) bool {
	left, ok := parseDate(template.Stringify(property))
	if !ok {
		return false
	}

	right, ok := parseDate(value)
	if !ok {
		return false
	}

	switch op {
	case models.OperatorOn:
		return sameDay(left, right)
	case models.OperatorBefore:
		return left.Before(right)
	case models.OperatorAfter:
		return left.After(right)
	case models.OperatorBetween:
		upper, ok := parseDate(second)
		if !ok {
			return false
		}

		return !left.Before(right) && !left.After(upper)
	default:
		return false
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()

	return ay == by && am == bm && ad == bd
}

// compareMultiSelect checks membership of value in a list property. A
// scalar property degrades to a single-element list.
func compareMultiSelect(property any, op models.Operator, value string) bool {
	var member bool

	switch items := property.(type) {
	case []any:
		for _, item := range items {
			if template.Stringify(item) == value {
				member = true

				break
			}
		}
	case []string:
		for _, item := range items {
			if item == value {
				member = true

				break
			}
		}
	case nil:
		member = false
	default:
		member = template.Stringify(property) == value
	}

	if op == models.OperatorNotContains {
		return !member
	}

	return member
}
