package repository

import (
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/samber/lo"

	"github.com/eslsoft/storyquest/internal/entity"
	"github.com/eslsoft/storyquest/pkg/filterexpr"
)

var listTasksSchema = filterexpr.Schema{
	Filter: map[string]filterexpr.Field{
		"status": {
			Column: "status",
			Kind:   filterexpr.KindString,
			Ops:    []filterexpr.Op{filterexpr.OpEQ, filterexpr.OpIN},
			Values: []string{
				string(entity.TaskStatusUploaded),
				string(entity.TaskStatusConfirmed),
				string(entity.TaskStatusGenerating),
				string(entity.TaskStatusReady),
				string(entity.TaskStatusCompleted),
			},
		},
		"grade": {
			Column: "grade",
			Kind:   filterexpr.KindString,
			Ops:    []filterexpr.Op{filterexpr.OpEQ, filterexpr.OpIN},
			Values: lo.Map(entity.Grades, func(g entity.Grade, _ int) string { return string(g) }),
		},
		"title": {
			Column: "title",
			Kind:   filterexpr.KindString,
			Ops:    []filterexpr.Op{filterexpr.OpSW},
		},
		"created_at": {
			Column: "created_at",
			Kind:   filterexpr.KindTimestamp,
			Ops:    []filterexpr.Op{filterexpr.OpGTE, filterexpr.OpLTE},
		},
	},
	Order: filterexpr.OrderSchema{
		Fields: map[string]filterexpr.OrderField{
			"created_at":   {Column: "created_at", NullsLast: true},
			"updated_at":   {Column: "updated_at", NullsLast: true},
			"title":        {Column: "title", NullsLast: true},
			"credits_used": {Column: "credits_used"},
			"id":           {Column: "id"},
		},
		Default:  []filterexpr.OrderTerm{{Key: "created_at", Desc: true}},
		Tiebreak: "id",
		MaxKeys:  2,
	},
}

// conditionPredicate translates one parsed filter condition.
func conditionPredicate(c filterexpr.Condition) *entsql.Predicate {
	switch c.Op {
	case filterexpr.OpIN:
		values, _ := c.Value.([]string)
		return entsql.In(c.Column, lo.ToAnySlice(lo.Uniq(values))...)
	case filterexpr.OpSW:
		prefix, _ := c.Value.(string)
		return entsql.HasPrefix(c.Column, prefix)
	case filterexpr.OpGTE:
		return entsql.GTE(c.Column, sqlValue(c.Value))
	case filterexpr.OpLTE:
		return entsql.LTE(c.Column, sqlValue(c.Value))
	default:
		return entsql.EQ(c.Column, sqlValue(c.Value))
	}
}

func sqlValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC()
	}
	return v
}

// applyOrdering appends the parsed order terms to the selector.
func applyOrdering(s *entsql.Selector, schema filterexpr.OrderSchema, terms []filterexpr.OrderTerm) {
	for _, term := range terms {
		field, ok := schema.Fields[term.Key]
		if !ok {
			continue
		}
		var opts []entsql.OrderTermOption
		if term.Desc {
			opts = append(opts, entsql.OrderDesc())
		}
		if field.NullsLast {
			opts = append(opts, entsql.OrderNullsLast())
		}
		entsql.OrderByField(field.Column, opts...).ToFunc()(s)
	}
}
