package persistence

import (
	"time"

	"github.com/lixenwraith/synth-evolve/genetic"
)

// PopulationDTO is the serializable population state
type PopulationDTO struct {
	Session    string         `toml:"session"`
	Generation uint64         `toml:"generation"`
	SavedAt    time.Time      `toml:"saved_at"`
	GenomeSize int            `toml:"genome_size"`
	Candidates []CandidateDTO `toml:"candidates"`
}

// CandidateDTO is a serializable individual
type CandidateDTO struct {
	Genes     []float64 `toml:"genes"`
	Fitness   float64   `toml:"fitness"`
	Evaluated bool      `toml:"evaluated"`
}

// FromIndividuals converts a population snapshot to DTO
func FromIndividuals(session string, generation uint64, members []genetic.Individual) PopulationDTO {
	dto := PopulationDTO{
		Session:    session,
		Generation: generation,
		SavedAt:    time.Now().UTC().Truncate(time.Second),
		Candidates: make([]CandidateDTO, len(members)),
	}
	if len(members) > 0 {
		dto.GenomeSize = members[0].Len()
	}

	for i := range members {
		dto.Candidates[i] = CandidateDTO{
			Genes:     members[i].Genes().Clone(),
			Fitness:   members[i].Fitness(),
			Evaluated: members[i].Evaluated(),
		}
	}

	return dto
}

// ToIndividuals converts DTO to individuals for seeding
// Candidates whose length differs from genomeSize are dropped; the count of dropped entries is returned
func (dto PopulationDTO) ToIndividuals(genomeSize int) ([]genetic.Individual, int) {
	out := make([]genetic.Individual, 0, len(dto.Candidates))
	dropped := 0

	for _, c := range dto.Candidates {
		if len(c.Genes) != genomeSize {
			dropped++
			continue
		}
		ind := genetic.NewIndividualFrom(c.Genes)
		if c.Evaluated {
			ind.SetFitness(c.Fitness)
		}
		out = append(out, ind)
	}

	return out, dropped
}
