package meta

import (
	"reflect"
	"testing"
)

func TestConditionValues(t *testing.T) {
	attr := &Attribute{Alias: "CODE", ListDelimiter: ";"}

	tests := []struct {
		name     string
		cond     *Condition
		expected []interface{}
	}{
		{name: "delimited string", cond: &Condition{Attribute: attr, Value: "a; b;c"}, expected: []interface{}{"a", "b", "c"}},
		{name: "explicit delimiter", cond: &Condition{Attribute: attr, Value: "a|b", Delimiter: "|"}, expected: []interface{}{"a", "b"}},
		{name: "list", cond: &Condition{Attribute: attr, Value: []interface{}{1, 2}}, expected: []interface{}{1, 2}},
		{name: "string list", cond: &Condition{Attribute: attr, Value: []string{"x"}}, expected: []interface{}{"x"}},
		{name: "scalar", cond: &Condition{Attribute: attr, Value: 5}, expected: []interface{}{5}},
		{name: "empty", cond: &Condition{Attribute: attr, Value: " "}, expected: nil},
		{name: "nil", cond: &Condition{Attribute: attr}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.cond.Values()
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Values() = %#v, want %#v", got, tt.expected)
			}
		})
	}
}

func TestParseOperatorAndComparator(t *testing.T) {
	if op, err := ParseOperator("or"); err != nil || op != OperatorOr {
		t.Errorf("ParseOperator(or) = %v, %v", op, err)
	}
	if op, err := ParseOperator(""); err != nil || op != OperatorAnd {
		t.Errorf("ParseOperator(\"\") = %v, %v", op, err)
	}
	if _, err := ParseOperator("nand"); err == nil {
		t.Error("expected error for unknown operator")
	}
	if ParseComparator("not_in") != ComparatorNotIn {
		t.Error("expected NOT_IN to parse")
	}
	if ParseComparator("==") != ComparatorEquals {
		t.Error("expected token to pass through")
	}
	if !ComparatorNotIn.IsNegative() || ComparatorIn.IsNegative() {
		t.Error("IsNegative mismatch")
	}
}

func TestGroupPassThrough(t *testing.T) {
	inner := NewGroup(OperatorOr, &Condition{})
	outer := &Group{Operator: OperatorAnd, Groups: []*Group{inner}}

	got, ok := outer.PassThrough()
	if !ok || got != inner {
		t.Fatal("expected pass-through to the nested group")
	}

	withCond := &Group{Operator: OperatorAnd, Conditions: []*Condition{{}}, Groups: []*Group{inner}}
	if _, ok := withCond.PassThrough(); ok {
		t.Error("group with conditions must not pass through")
	}

	var nilGroup *Group
	if !nilGroup.IsEmpty() {
		t.Error("nil group should be empty")
	}
}

func TestQueryNavigations(t *testing.T) {
	supplierName := &Attribute{Alias: "SUPPLIER__NAME", DataAddress: "Name", Hops: []Hop{{Relation: "SUPPLIER", Navigation: "Supplier"}}}
	supplierCity := &Attribute{Alias: "SUPPLIER__CITY", DataAddress: "City", Hops: []Hop{{Relation: "SUPPLIER", Navigation: "Supplier"}}}
	category := &Attribute{Alias: "CATEGORY__NAME", DataAddress: "Name", Hops: []Hop{{Relation: "CATEGORY", Navigation: "Category"}}}
	name := &Attribute{Alias: "NAME", DataAddress: "Name"}

	q := &Query{Columns: []*Attribute{name, supplierName, category, supplierCity}}
	navs, err := q.Navigations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(navs, []string{"Supplier", "Category"}) {
		t.Errorf("Navigations() = %v", navs)
	}

	broken := &Query{Columns: []*Attribute{{Alias: "X__Y", DataAddress: "Y", Hops: []Hop{{Relation: "X"}}}}}
	if _, err := broken.Navigations(); err == nil {
		t.Error("expected error for hop without navigation")
	}
}

func TestPaginationRequested(t *testing.T) {
	if (Pagination{}).Requested() {
		t.Error("empty pagination should not be requested")
	}
	if !Page(0, 10).Requested() || !Page(5, 0).Requested() {
		t.Error("offset or limit should request pagination")
	}
}
