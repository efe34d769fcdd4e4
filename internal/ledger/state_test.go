package ledger

import (
	"testing"

	"runpay/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	cases := map[string]UnderfundedPolicy{
		"":        PolicyReject,
		"reject":  PolicyReject,
		" CLAMP ": PolicyClamp,
	}
	for in, want := range cases {
		got, err := ParsePolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParsePolicy("forgive")
	assert.Error(t, err)
}

func TestUpsertEmployee(t *testing.T) {
	s := seedState(PolicyReject)

	next, added, err := s.UpsertEmployee(core.Employee{ID: "emp-maya", Name: "Maya", Role: "Sales", Email: "maya@example.com"})
	require.NoError(t, err)
	assert.True(t, added)
	assert.Len(t, next.Employees, 3)
	assert.Len(t, s.Employees, 2)
	assert.Equal(t, s.Version+1, next.Version)

	next, added, err = next.UpsertEmployee(core.Employee{ID: "emp-ben-2", Name: "BEN", Role: "Engineer"})
	require.NoError(t, err)
	assert.False(t, added)
	ben, ok := next.Employee("ben")
	require.True(t, ok)
	assert.Equal(t, "Engineer", ben.Role)
	assert.True(t, ben.Balance.Equal(dec("5000")))
}

func TestUpsertEmployeeRefusesTakenFirstName(t *testing.T) {
	s := seedState(PolicyReject)

	next, added, err := s.UpsertEmployee(core.Employee{ID: "emp-ben-carter", Name: "Ben Carter", Role: "Sales"})
	assert.ErrorIs(t, err, core.ErrDuplicateFirstName)
	assert.False(t, added)
	assert.Len(t, next.Employees, 2)
	assert.Equal(t, s.Version, next.Version)

	_, _, err = s.UpsertEmployee(core.Employee{ID: "emp-sarah-2", Name: "sarah", Role: "Ops"})
	assert.NoError(t, err, "same full name is an update")
}

func TestCloneSharesNothing(t *testing.T) {
	s := seedState(PolicyReject)
	c := s.Clone()
	c.Employees[0].Name = "changed"
	assert.Equal(t, "Ben", s.Employees[0].Name)

	r := s.Roster()
	r[0].Name = "changed"
	assert.Equal(t, "Ben", s.Employees[0].Name)
}
