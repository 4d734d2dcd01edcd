package genetic

import "github.com/lixenwraith/synth-evolve/parameter"

// Gene indices in synth parameter order
const (
	GeneOscMix = iota
	GeneOscFine
	GeneFilterFreq
	GeneFilterReso
	GeneFilterEnv
	GeneFilterLFO
	GeneFilterAttack
	GeneFilterDecay
	GeneFilterSustain
	GeneFilterRelease
	GeneEnvAttack
	GeneEnvDecay
	GeneEnvSustain
	GeneEnvRelease
	GeneLFORate
	GeneVibrato
	GeneNoise

	geneCount
)

// GeneNames lists parameter identifiers in genome order
var GeneNames = [geneCount]string{
	"oscMix", "oscFine",
	"filterFreq", "filterReso", "filterEnv", "filterLFO",
	"filterAttack", "filterDecay", "filterSustain", "filterRelease",
	"envAttack", "envDecay", "envSustain", "envRelease",
	"lfoRate", "vibrato", "noise",
}

// Audibility scores how open the filter gets: cutoff plus weighted positive envelope depth
// The envelope gene maps 0..1 to -100%..+100%, so only values above 0.5 open the filter
func Audibility(g Genome) float64 {
	if len(g) <= GeneFilterEnv {
		return 0
	}
	positiveEnv := max(0, (g[GeneFilterEnv]-0.5)*2)
	return g[GeneFilterFreq] + positiveEnv*parameter.GARepairEnvWeight
}

// Repair raises the filter envelope depth of inaudible genomes in place
// Returns true when the genome was modified
func Repair(g Genome) bool {
	if len(g) <= GeneFilterEnv {
		return false
	}
	// Tolerance keeps already repaired genomes stable under float rounding
	if Audibility(g) >= parameter.GARepairMinAudibility-1e-9 {
		return false
	}

	deficit := parameter.GARepairMinAudibility - g[GeneFilterFreq]
	requiredEnv := 0.5 + (deficit/parameter.GARepairEnvWeight)/2
	g[GeneFilterEnv] = min(1.0, requiredEnv)
	return true
}

// RepairIndividual repairs the genes of ind and invalidates its fitness when changed
func RepairIndividual(ind *Individual) bool {
	if Repair(ind.genes) {
		ind.evaluated = false
		return true
	}
	return false
}
