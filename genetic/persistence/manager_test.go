package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/synth-evolve/genetic"
)

func TestManager_SaveLoad(t *testing.T) {
	mgr := NewManager(t.TempDir())
	pop := genetic.NewPopulation(4, 17)
	pop.Randomize(genetic.NewRand(1))
	pop.SetFitness(0, 0.25)
	pop.SetFitness(2, 0.75)

	dto := FromIndividuals("session-a", 12, pop.Snapshot())
	require.NoError(t, mgr.Save("latest", dto))
	assert.True(t, mgr.Exists("latest"))

	loaded, err := mgr.Load("latest")
	require.NoError(t, err)
	assert.Equal(t, "session-a", loaded.Session)
	assert.Equal(t, uint64(12), loaded.Generation)
	assert.Equal(t, 17, loaded.GenomeSize)

	members, dropped := loaded.ToIndividuals(17)
	require.Zero(t, dropped)
	require.Len(t, members, 4)
	for i := range members {
		orig := pop.At(i)
		assert.Equal(t, orig.Genes(), members[i].Genes())
		assert.Equal(t, orig.Evaluated(), members[i].Evaluated())
	}
	assert.Equal(t, 0.75, members[2].Fitness())

	names, err := mgr.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"latest"}, names)
}

func TestManager_LoadMissing(t *testing.T) {
	mgr := NewManager(t.TempDir())
	_, err := mgr.Load("nope")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestToIndividuals_DropsWrongLength(t *testing.T) {
	dto := PopulationDTO{Candidates: []CandidateDTO{
		{Genes: []float64{0.1, 0.2}},
		{Genes: []float64{0.1, 0.2, 0.3}, Fitness: 0.5, Evaluated: true},
	}}

	members, dropped := dto.ToIndividuals(3)
	assert.Equal(t, 1, dropped)
	require.Len(t, members, 1)
	assert.True(t, members[0].Evaluated())
}
