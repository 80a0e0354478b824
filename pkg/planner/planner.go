// Package planner implements the Address Planner (C1): grouping a PLC's
// declared tags into contiguous same-type runs so the acquisition loop can
// fold them into a single FINS batch_read instead of one round-trip per tag.
package planner

import "finsbridge/pkg/runtime"

// Group is one planned read: either a Batch of >=2 contiguous mappings, or a
// Single mapping read individually. Single is always len(Tags) == 1.
type Group struct {
	Tags  []runtime.TagMapping
	Batch bool
}

// StartAddress is the address of the group's first tag, used by BatchRead.
func (g Group) StartAddress() uint {
	return g.Tags[0].Address
}

// WordCount is the total word span of the group, used by BatchRead.
func (g Group) WordCount() int {
	n := 0
	for _, t := range g.Tags {
		n += t.Words()
	}
	return n
}

// Plan groups tags into read groups, preserving declared order (§4.1). The
// HEARTBEAT sentinel, if present, must already have been removed by the
// caller — it is synthesized, never planned for a read.
func Plan(tags []runtime.TagMapping) []Group {
	groups := make([]Group, 0, len(tags))

	i := 0
	for i < len(tags) {
		run := []runtime.TagMapping{tags[i]}
		j := i + 1
		for j < len(tags) && run[len(run)-1].Contiguous(tags[j]) {
			run = append(run, tags[j])
			j++
		}
		groups = append(groups, Group{Tags: run, Batch: len(run) >= 2})
		i = j
	}
	return groups
}
