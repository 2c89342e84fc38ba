package updater

import (
	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/ofproto/flowinfo"
	"github.com/contiv/ofdp/ofproto/mbtree"
	"github.com/contiv/ofdp/ofproto/thtable"
)

// Strategy selects which classification index a table's rebuild produces.
// The three are interchangeable Accelerators; a table picks one rather than
// running all three, since each already classifies the full flow set on
// its own (spec.md §4.3-§4.5 describe alternative indices, not pipeline
// stages).
type Strategy int

const (
	StrategyFlowinfo Strategy = iota
	StrategyMbtree
	StrategyThtable
)

// Build runs flows through the chosen Strategy and returns the resulting
// Accelerator, ready to hand to FlowList.MarkRebuilt.
func Build(strategy Strategy, tableID uint8, flows []*ofproto.Flow) ofproto.Accelerator {
	switch strategy {
	case StrategyThtable:
		return thtable.Build(flows)
	case StrategyFlowinfo:
		root := flowinfo.NewRoot(tableID)
		for _, f := range flows {
			root.Add(f)
		}
		return root
	default:
		return mbtree.Build(flows)
	}
}
