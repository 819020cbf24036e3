package aggregate

import (
	"github.com/roman-kulish/linkmap/internal/survey"
)

// Group holds all samples sharing one exact coordinate pair, in input order.
type Group struct {
	Location survey.Location
	Samples  []survey.Sample
}

// GroupByLocation partitions samples by exact (latitude, longitude) equality.
// No tolerance is applied, so coordinates differing by floating point noise
// form separate groups. Groups are returned in order of first appearance.
func GroupByLocation(samples []survey.Sample) []Group {
	index := make(map[survey.Location]int)
	var groups []Group

	for _, s := range samples {
		loc := s.Location()
		i, ok := index[loc]
		if !ok {
			i = len(groups)
			index[loc] = i
			groups = append(groups, Group{Location: loc})
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}

	return groups
}
