package engine

import (
	"math"
	"sort"

	"github.com/sepandmal/karname-api/internal/models"
)

// RankEpsilon absorbs floating-point noise when deciding whether two averages
// tie. The same epsilon applies to overall and per-course rankings.
const RankEpsilon = 0.001

// Rank orders entries by average descending (subject id ascending on exact
// ties) and assigns competition ranks: entries within epsilon of the previous
// entry inherit its rank, the next distinct value takes its 1-based position.
// The input slice is left untouched.
func Rank(entries []models.RankEntry) []models.RankEntry {
	ranked := make([]models.RankEntry, len(entries))
	copy(ranked, entries)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Average != ranked[j].Average {
			return ranked[i].Average > ranked[j].Average
		}
		return ranked[i].SubjectID < ranked[j].SubjectID
	})
	for i := range ranked {
		if i == 0 {
			ranked[i].Rank = 1
			continue
		}
		if math.Abs(ranked[i].Average-ranked[i-1].Average) > RankEpsilon {
			ranked[i].Rank = i + 1
		} else {
			ranked[i].Rank = ranked[i-1].Rank
		}
	}
	return ranked
}
