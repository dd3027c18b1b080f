package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTableRef(t *testing.T) {
	tests := []struct {
		ident    string
		expected TableRef
	}{
		{"employees", TableRef{Name: "employees"}},
		{"sales_db.sales", TableRef{Database: "sales_db", Name: "sales"}},
		{"a.b.c", TableRef{Database: "a.b", Name: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.ident, func(t *testing.T) {
			ref := ParseTableRef(tt.ident)
			assert.Equal(t, tt.expected, ref)
			assert.Equal(t, tt.ident, ref.String())
		})
	}
}

func TestTableRef_Resolve(t *testing.T) {
	assert.Equal(t, TableRef{Database: "hr", Name: "emp"}, TableRef{Name: "emp"}.Resolve("hr"))
	assert.Equal(t, TableRef{Database: "ops", Name: "emp"}, TableRef{Database: "ops", Name: "emp"}.Resolve("hr"))
	assert.False(t, TableRef{Name: "emp"}.Qualified())
}

func TestPartitionSpec(t *testing.T) {
	spec := PartitionSpec{
		{Column: "country", Operator: "=", Value: "US", HasValue: true},
		{Column: "dt", HasValue: false},
	}

	assert.Equal(t, map[string]string{"country": "US"}, spec.Map())
	assert.Equal(t, []string{"country", "dt"}, spec.Columns())
}

func TestStatement_ExpectsRowSet(t *testing.T) {
	tests := []struct {
		name string
		stmt Statement
		want bool
	}{
		{"query", Statement{Category: CategoryQuery, Action: ActionSelect}, true},
		{"metadata", Statement{Category: CategoryMetadataOp, Action: ActionShowTables}, true},
		{"ddl", Statement{Category: CategoryTableDDL, Action: ActionCreateTable}, false},
		{"set property", Statement{Raw: "SET hive.execution.engine=mr", Category: CategorySessionOp, Action: ActionSetProperty}, false},
		{"bare set", Statement{Raw: "SET;", Category: CategorySessionOp, Action: ActionSetProperty}, true},
		{"use", Statement{Raw: "USE sales", Category: CategorySessionOp, Action: ActionUseDatabase}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stmt.ExpectsRowSet())
		})
	}
}

func TestRow(t *testing.T) {
	row := Row{{Name: "id", Value: int64(1)}, {Name: "name", Value: "alice"}}

	v, ok := row.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	_, ok = row.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []interface{}{int64(1), "alice"}, row.Values())
}

func TestDispatchState_Terminal(t *testing.T) {
	assert.False(t, StateReceived.Terminal())
	assert.False(t, StateValidated.Terminal())
	assert.False(t, StateForwarded.Terminal())
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateFailed.Terminal())
}

func TestResultEnvelope(t *testing.T) {
	var nilEnv *ResultEnvelope
	assert.False(t, nilEnv.Succeeded())
	assert.False(t, nilEnv.HasRows())

	env := &ResultEnvelope{Status: StatusSuccess, Rows: []Row{}}
	assert.True(t, env.Succeeded())
	assert.True(t, env.HasRows())
}
