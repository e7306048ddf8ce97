package filterexpr

import (
	"strings"
	"testing"
	"time"
)

type request struct {
	filter  string
	orderBy string
}

func (r request) GetFilter() string  { return r.filter }
func (r request) GetOrderBy() string { return r.orderBy }

var testSchema = Schema{
	Filter: map[string]Field{
		"status": {
			Column: "status",
			Kind:   KindString,
			Ops:    []Op{OpEQ, OpIN},
			Values: []string{"uploaded", "confirmed", "ready"},
		},
		"title":        {Column: "title", Kind: KindString, Ops: []Op{OpSW}},
		"credits_used": {Column: "credits_used", Kind: KindNumber, Ops: []Op{OpGTE, OpLTE}},
		"created_at":   {Column: "created_at", Kind: KindTimestamp, Ops: []Op{OpGTE}},
	},
	Order: OrderSchema{
		Fields: map[string]OrderField{
			"created_at": {Column: "created_at", NullsLast: true},
			"title":      {Column: "title"},
			"id":         {Column: "id"},
		},
		Default:  []OrderTerm{{Key: "created_at", Desc: true}},
		Tiebreak: "id",
		MaxKeys:  2,
	},
}

func TestParseConjunction(t *testing.T) {
	q, err := Parse(request{
		filter: `status == "ready" && title.startsWith("Zoo") && credits_used >= 8 && created_at >= timestamp("2025-01-02T03:04:05Z")`,
	}, testSchema)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Conditions) != 4 {
		t.Fatalf("expected 4 conditions, got %+v", q.Conditions)
	}
	byField := map[string]Condition{}
	for _, c := range q.Conditions {
		byField[c.Field] = c
	}
	if c := byField["status"]; c.Op != OpEQ || c.Value != "ready" || c.Column != "status" {
		t.Errorf("status condition = %+v", c)
	}
	if c := byField["title"]; c.Op != OpSW || c.Value != "Zoo" {
		t.Errorf("title condition = %+v", c)
	}
	if c := byField["credits_used"]; c.Op != OpGTE || c.Value != float64(8) {
		t.Errorf("credits condition = %+v", c)
	}
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	if c := byField["created_at"]; !c.Value.(time.Time).Equal(want) {
		t.Errorf("created_at condition = %+v", c)
	}
	if len(q.Order) != 2 || q.Order[0] != (OrderTerm{Key: "created_at", Desc: true}) || q.Order[1].Key != "id" {
		t.Errorf("default order = %+v", q.Order)
	}
}

func TestParseInList(t *testing.T) {
	q, err := Parse(request{filter: `status in ["uploaded", "ready"]`}, testSchema)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, ok := q.Conditions[0].Value.([]string)
	if !ok || len(got) != 2 || got[0] != "uploaded" || got[1] != "ready" {
		t.Fatalf("unexpected in value %#v", q.Conditions[0].Value)
	}
}

func TestParseOrderBy(t *testing.T) {
	cases := []struct {
		in   string
		want []OrderTerm
	}{
		{"title", []OrderTerm{{Key: "title"}, {Key: "id"}}},
		{"title desc, created_at", []OrderTerm{{Key: "title", Desc: true}, {Key: "created_at"}, {Key: "id"}}},
		{"id desc", []OrderTerm{{Key: "id", Desc: true}}},
	}
	for _, c := range cases {
		q, err := Parse(request{orderBy: c.in}, testSchema)
		if err != nil {
			t.Fatalf("%q: %v", c.in, err)
		}
		if len(q.Order) != len(c.want) {
			t.Fatalf("%q: got %+v want %+v", c.in, q.Order, c.want)
		}
		for i := range c.want {
			if q.Order[i] != c.want[i] {
				t.Fatalf("%q: got %+v want %+v", c.in, q.Order, c.want)
			}
		}
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name   string
		req    request
		substr string
	}{
		{"unknown field", request{filter: `grade == "3"`}, "not filterable"},
		{"or", request{filter: `status == "ready" || status == "uploaded"`}, "not supported"},
		{"negation", request{filter: `!(status == "ready")`}, "not supported"},
		{"operator not allowed", request{filter: `title == "x"`}, "not allowed"},
		{"closed set", request{filter: `status == "archived"`}, "not one of"},
		{"empty list", request{filter: `status in []`}, "non-empty"},
		{"wrong kind", request{filter: `credits_used >= "many"`}, "expected a number"},
		{"bad timestamp", request{filter: `created_at >= timestamp("yesterday")`}, "RFC3339"},
		{"syntax", request{filter: `status ==`}, "filter"},
		{"order field", request{orderBy: "credits_used"}, "cannot be used"},
		{"order direction", request{orderBy: "title sideways"}, "invalid direction"},
		{"order duplicate", request{orderBy: "title, title desc"}, "duplicate"},
		{"order too many", request{orderBy: "title, created_at, id"}, "at most"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse(c.req, testSchema)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), c.substr) {
				t.Fatalf("error %q does not mention %q", err, c.substr)
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	q, err := Parse(request{}, testSchema)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Conditions) != 0 {
		t.Fatalf("unexpected conditions %+v", q.Conditions)
	}
}
