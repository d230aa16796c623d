package teams

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCounter struct {
	counts map[string]int64
}

func (m *memCounter) Incr(_ context.Context, key string) (int64, error) {
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], nil
}

type staticTeams struct {
	byTenant map[int64][]int64
}

func (s staticTeams) ListTeamIDs(_ context.Context, tenantID int64) ([]int64, error) {
	return s.byTenant[tenantID], nil
}

func TestAssignerRoundRobin(t *testing.T) {
	a := NewAssigner(staticTeams{byTenant: map[int64][]int64{5: {10, 20, 30}}}, &memCounter{})

	var got []int64
	for i := 0; i < 6; i++ {
		id, err := a.NextTeam(context.Background(), 5)
		require.NoError(t, err)
		require.NotNil(t, id)
		got = append(got, *id)
	}
	assert.Equal(t, []int64{10, 20, 30, 10, 20, 30}, got)
}

func TestAssignerNoTeams(t *testing.T) {
	a := NewAssigner(staticTeams{byTenant: map[int64][]int64{}}, &memCounter{})

	id, err := a.NextTeam(context.Background(), 5)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestAssignerRotationIsPerTenant(t *testing.T) {
	a := NewAssigner(staticTeams{byTenant: map[int64][]int64{
		1: {100, 200},
		2: {300, 400},
	}}, &memCounter{})

	first, err := a.NextTeam(context.Background(), 1)
	require.NoError(t, err)
	second, err := a.NextTeam(context.Background(), 2)
	require.NoError(t, err)

	// Each tenant starts its own rotation at the first team.
	assert.Equal(t, int64(100), *first)
	assert.Equal(t, int64(300), *second)
}

func TestAssignerCounterKeyIncludesTenant(t *testing.T) {
	c := &memCounter{}
	a := NewAssigner(staticTeams{byTenant: map[int64][]int64{7: {1}}}, c)

	_, err := a.NextTeam(context.Background(), 7)
	require.NoError(t, err)
	assert.Contains(t, c.counts, fmt.Sprintf("teams:rr:%d", 7))
}
