package referral

import (
	"context"
	"errors"
	"sort"
	"testing"

	"membershipPortal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	agents  map[string]*models.Agent
	listErr error
	lists   int
}

func newFakeStore() *fakeStore { return &fakeStore{agents: map[string]*models.Agent{}} }

func (s *fakeStore) add(id, referrer string) {
	a := &models.Agent{ID: id, UserName: id}
	if referrer != "" {
		r := referrer
		a.ReferrerID = &r
	}
	s.agents[id] = a
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*models.Agent, error) {
	a, ok := s.agents[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeStore) ListByReferrer(_ context.Context, referrerID string) ([]models.Agent, error) {
	s.lists++
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Agent
	for _, a := range s.agents {
		if a.ReferrerID != nil && *a.ReferrerID == referrerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func ids(agents []models.Agent) []string {
	out := make([]string, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.ID)
	}
	return out
}

func keys(m map[string][]models.Agent) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestResolve_StopsAtLevelThree(t *testing.T) {
	// R -> {A, B}, A -> {C}, C -> {D}, D -> {E}
	s := newFakeStore()
	s.add("R", "")
	s.add("A", "R")
	s.add("B", "R")
	s.add("C", "A")
	s.add("D", "C")
	s.add("E", "D")

	d, err := NewResolver(s).Resolve(context.Background(), "R")
	require.NoError(t, err)

	assert.Equal(t, "R", d.Agent.ID)
	assert.Equal(t, []string{"A", "B"}, ids(d.Direct))

	assert.Equal(t, []string{"A", "B"}, keys(d.LevelTwo))
	assert.Equal(t, []string{"C"}, ids(d.LevelTwo["A"]))
	assert.NotNil(t, d.LevelTwo["B"])
	assert.Empty(t, d.LevelTwo["B"])

	assert.Equal(t, []string{"C"}, keys(d.LevelThree))
	assert.Equal(t, []string{"D"}, ids(d.LevelThree["C"]))

	_, dIsKey := d.LevelThree["D"]
	assert.False(t, dIsKey, "level-three agents are not expanded")
	for _, kids := range d.LevelTwo {
		assert.NotContains(t, ids(kids), "D")
	}
	// one query for R, one per direct agent, one per level-two agent
	assert.Equal(t, 1+2+1, s.lists)
}

func TestResolve_EmptyRoot(t *testing.T) {
	s := newFakeStore()
	s.add("lonely", "")

	d, err := NewResolver(s).Resolve(context.Background(), "lonely")
	require.NoError(t, err)
	assert.Empty(t, d.Direct)
	assert.Empty(t, d.LevelTwo)
	assert.Empty(t, d.LevelThree)
}

func TestResolve_UnknownRoot(t *testing.T) {
	_, err := NewResolver(newFakeStore()).Resolve(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_EmptyID(t *testing.T) {
	s := newFakeStore()
	for _, id := range []string{"", "   "} {
		_, err := NewResolver(s).Resolve(context.Background(), id)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
	assert.Zero(t, s.lists)
}

func TestResolve_CycleDoesNotRepeatAgents(t *testing.T) {
	// R -> A -> B -> R
	s := newFakeStore()
	s.add("R", "B")
	s.add("A", "R")
	s.add("B", "A")

	d, err := NewResolver(s).Resolve(context.Background(), "R")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, ids(d.Direct))
	assert.Equal(t, []string{"B"}, ids(d.LevelTwo["A"]))
	assert.Empty(t, d.LevelThree["B"], "R is the root and must not reappear")
}

func TestResolve_StoreFailurePropagates(t *testing.T) {
	s := newFakeStore()
	s.add("R", "")
	s.listErr = errors.New("db gone")

	_, err := NewResolver(s).Resolve(context.Background(), "R")
	assert.ErrorIs(t, err, s.listErr)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestWouldCycle(t *testing.T) {
	s := newFakeStore()
	s.add("R", "")
	s.add("A", "R")
	s.add("B", "A")
	ctx := context.Background()

	cases := []struct {
		agent, referrer string
		want            bool
	}{
		{"A", "A", true},
		{"R", "B", true},
		{"A", "B", true},
		{"B", "R", false},
		{"R", "ghost", false},
	}
	for _, c := range cases {
		got, err := WouldCycle(ctx, s, c.agent, c.referrer)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "%s <- %s", c.agent, c.referrer)
	}
}
