package conditions

import (
	"testing"

	"github.com/jobdeck/automata/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jobContext(status string) map[string]any {
	return map[string]any{
		"job": map[string]any{
			"status": status,
			"total":  450.0,
		},
		"client": map[string]any{
			"firstName": "Sam",
			"tags":      []any{"vip", "commercial"},
		},
	}
}

func TestEvaluate_EmptyTreeIsTrue(t *testing.T) {
	assert.True(t, Evaluate(nil, jobContext("Completed")))
	assert.True(t, Evaluate([]models.ConditionGroup{}, jobContext("Completed")))
}

func TestEvaluate_EmptyGroupIsVacuouslyTrue(t *testing.T) {
	groups := []models.ConditionGroup{{Logic: models.GroupLogicAnd}}

	assert.True(t, Evaluate(groups, jobContext("Completed")))
}

func TestEvaluate_EmptyGroupShortCircuitsOtherGroups(t *testing.T) {
	// One empty group makes the whole tree true under OR, even when every
	// other group is false. Existing workflows depend on this.
	groups := []models.ConditionGroup{
		{Conditions: []models.Condition{{
			Property:     "job.status",
			PropertyType: models.PropertyTypeText,
			Operator:     models.OperatorEquals,
			Value:        "Cancelled",
		}}},
		{},
	}

	assert.True(t, Evaluate(groups, jobContext("Completed")))
}

func TestEvaluate_AndWithinGroup(t *testing.T) {
	groups := []models.ConditionGroup{{
		Conditions: []models.Condition{
			{
				Property:     "job.status",
				PropertyType: models.PropertyTypeText,
				Operator:     models.OperatorEquals,
				Value:        "Completed",
			},
			{
				Property:     "job.total",
				PropertyType: models.PropertyTypeNumber,
				Operator:     models.OperatorGreaterThan,
				Value:        "100",
			},
		},
	}}

	assert.True(t, Evaluate(groups, jobContext("Completed")))
	assert.False(t, Evaluate(groups, jobContext("Scheduled")))
}

func TestEvaluate_OrAcrossGroups(t *testing.T) {
	groups := []models.ConditionGroup{
		{Conditions: []models.Condition{{
			Property:     "job.status",
			PropertyType: models.PropertyTypeText,
			Operator:     models.OperatorEquals,
			Value:        "Cancelled",
		}}},
		{Conditions: []models.Condition{{
			Property:     "job.status",
			PropertyType: models.PropertyTypeText,
			Operator:     models.OperatorEquals,
			Value:        "Completed",
		}}},
	}

	assert.True(t, Evaluate(groups, jobContext("Completed")))
	assert.False(t, Evaluate(groups, jobContext("Scheduled")))
}

func TestEvaluateCondition_TextOperators(t *testing.T) {
	ctx := jobContext("Completed")

	cases := []struct {
		name     string
		operator models.Operator
		value    string
		want     bool
	}{
		{"equals", models.OperatorEquals, "Completed", true},
		{"equals is case sensitive", models.OperatorEquals, "completed", false},
		{"not equals", models.OperatorNotEquals, "Scheduled", true},
		{"contains", models.OperatorContains, "omplete", true},
		{"not contains", models.OperatorNotContains, "zzz", true},
		{"starts with", models.OperatorStartsWith, "Comp", true},
		{"ends with", models.OperatorEndsWith, "leted", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateCondition(models.Condition{
				Property:     "job.status",
				PropertyType: models.PropertyTypeText,
				Operator:     tc.operator,
				Value:        tc.value,
			}, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateCondition_NumberOperators(t *testing.T) {
	ctx := jobContext("Completed")

	cases := []struct {
		operator models.Operator
		value    string
		want     bool
	}{
		{models.OperatorEquals, "450", true},
		{models.OperatorNotEquals, "450", false},
		{models.OperatorGreaterThan, "449.5", true},
		{models.OperatorLessThan, "449.5", false},
		{models.OperatorGreaterEqual, "450", true},
		{models.OperatorLessEqual, "450", true},
	}

	for _, tc := range cases {
		got, err := EvaluateCondition(models.Condition{
			Property:     "job.total",
			PropertyType: models.PropertyTypeNumber,
			Operator:     tc.operator,
			Value:        tc.value,
		}, ctx)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "operator %s %s", tc.operator, tc.value)
	}
}

func TestEvaluateCondition_NonNumericOperandIsFalse(t *testing.T) {
	got, err := EvaluateCondition(models.Condition{
		Property:     "job.status",
		PropertyType: models.PropertyTypeNumber,
		Operator:     models.OperatorGreaterThan,
		Value:        "10",
	}, jobContext("Completed"))
	require.NoError(t, err)
	assert.False(t, got)

	got, err = EvaluateCondition(models.Condition{
		Property:     "job.total",
		PropertyType: models.PropertyTypeNumber,
		Operator:     models.OperatorGreaterThan,
		Value:        "not-a-number",
	}, jobContext("Completed"))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestEvaluateCondition_BooleanOperators(t *testing.T) {
	ctx := map[string]any{"invoice": map[string]any{"overdue": true, "paid": "false"}}

	got, err := EvaluateCondition(models.Condition{
		Property:     "invoice.overdue",
		PropertyType: models.PropertyTypeBoolean,
		Operator:     models.OperatorIsTrue,
	}, ctx)
	require.NoError(t, err)
	assert.True(t, got)

	// String booleans coming out of form submissions still parse.
	got, err = EvaluateCondition(models.Condition{
		Property:     "invoice.paid",
		PropertyType: models.PropertyTypeBoolean,
		Operator:     models.OperatorIsFalse,
	}, ctx)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateCondition_DateOperators(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{"scheduledAt": "2026-03-15T09:30:00Z"}}

	cases := []struct {
		name     string
		operator models.Operator
		value    string
		second   string
		want     bool
	}{
		{"on same day", models.OperatorOn, "2026-03-15", "", true},
		{"on different day", models.OperatorOn, "2026-03-16", "", false},
		{"before", models.OperatorBefore, "2026-04-01", "", true},
		{"after", models.OperatorAfter, "2026-03-01", "", true},
		{"between", models.OperatorBetween, "2026-03-01", "2026-04-01", true},
		{"between outside range", models.OperatorBetween, "2026-04-01", "2026-05-01", false},
		{"invalid date is false", models.OperatorBefore, "not-a-date", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := EvaluateCondition(models.Condition{
				Property:     "job.scheduledAt",
				PropertyType: models.PropertyTypeDate,
				Operator:     tc.operator,
				Value:        tc.value,
				SecondValue:  tc.second,
			}, ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEvaluateCondition_MultiSelectMembership(t *testing.T) {
	ctx := jobContext("Completed")

	got, err := EvaluateCondition(models.Condition{
		Property:     "client.tags",
		PropertyType: models.PropertyTypeMultiSelect,
		Operator:     models.OperatorContains,
		Value:        "vip",
	}, ctx)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = EvaluateCondition(models.Condition{
		Property:     "client.tags",
		PropertyType: models.PropertyTypeMultiSelect,
		Operator:     models.OperatorNotContains,
		Value:        "residential",
	}, ctx)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateCondition_TemplatedValueComparesTwoFields(t *testing.T) {
	ctx := map[string]any{
		"job": map[string]any{"assignedTo": "tech-7", "requestedBy": "tech-7"},
	}

	got, err := EvaluateCondition(models.Condition{
		Property:     "job.assignedTo",
		PropertyType: models.PropertyTypeText,
		Operator:     models.OperatorEquals,
		Value:        "{{job.requestedBy}}",
	}, ctx)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestEvaluateCondition_OperatorTypeMismatchRejected(t *testing.T) {
	_, err := EvaluateCondition(models.Condition{
		Property:     "job.status",
		PropertyType: models.PropertyTypeText,
		Operator:     models.OperatorGreaterThan,
		Value:        "10",
	}, jobContext("Completed"))
	require.ErrorIs(t, err, ErrOperatorNotAllowed)
}

func TestEvaluate_InvalidOperatorCountsAsFalse(t *testing.T) {
	groups := []models.ConditionGroup{{
		Conditions: []models.Condition{{
			Property:     "job.status",
			PropertyType: models.PropertyTypeBoolean,
			Operator:     models.OperatorContains,
			Value:        "x",
		}},
	}}

	assert.False(t, Evaluate(groups, jobContext("Completed")))
}

func TestOperatorAllowed(t *testing.T) {
	assert.True(t, OperatorAllowed(models.PropertyTypeText, models.OperatorContains))
	assert.False(t, OperatorAllowed(models.PropertyTypeNumber, models.OperatorContains))
	assert.False(t, OperatorAllowed(models.PropertyTypeDate, models.OperatorIsTrue))
	assert.NotEmpty(t, AllowedOperators(models.PropertyTypeDate))
}
