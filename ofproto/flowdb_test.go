package ofproto

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/openflow13"
)

func inPortMatch(port uint32) []openflow13.MatchField {
	return []openflow13.MatchField{*openflow13.NewInPortField(port)}
}

func outputInstr(port uint32) []openflow13.Instruction {
	apply := openflow13.NewInstrApplyActions()
	apply.AddAction(openflow13.NewActionOutput(port), false)
	return []openflow13.Instruction{apply}
}

func TestFlowAddThenClassifyByInPort(t *testing.T) {
	db := NewFlowdb()
	err := db.FlowAdd(&FlowModRequest{
		TableID:  0,
		Priority: 100,
		Matches:  inPortMatch(1),
		Instructions: outputInstr(2),
	})
	require.Nil(t, err)

	key := &ClassifyKey{OOB: OOB{InPort: 1}}
	match := func(f *Flow, k *ClassifyKey) bool {
		for _, m := range f.Matches {
			if m.Field == openflow13.OXM_FIELD_IN_PORT && beUint(m.Value) != uint64(k.InPort) {
				return false
			}
		}
		return true
	}
	found, ok := db.Classify(0, key, match)
	require.True(t, ok)
	assert.EqualValues(t, 100, found.Priority)

	missKey := &ClassifyKey{OOB: OOB{InPort: 5}}
	_, ok = db.Classify(0, missKey, match)
	assert.False(t, ok)
}

func TestFlowAddReplacesSamePriorityAndMatch(t *testing.T) {
	db := NewFlowdb()
	req := &FlowModRequest{TableID: 0, Priority: 10, Matches: inPortMatch(1), Instructions: outputInstr(1)}
	require.Nil(t, db.FlowAdd(req))

	req2 := &FlowModRequest{TableID: 0, Priority: 10, Matches: inPortMatch(1), Instructions: outputInstr(2)}
	require.Nil(t, db.FlowAdd(req2))

	assert.Equal(t, 1, db.Table(0).Flows.Len())
}

func TestFlowAddCheckOverlapRejectsIntersectingPriority(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 5, Matches: inPortMatch(1), Instructions: outputInstr(1)}))

	err := db.FlowAdd(&FlowModRequest{
		TableID:  0,
		Priority: 5,
		Flags:    OFPFF_CHECK_OVERLAP,
		Matches:  inPortMatch(1),
		Instructions: outputInstr(2),
	})
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPET_FLOW_MOD_FAILED, err.Type)
	assert.EqualValues(t, openflow13.OFPFMFC_OVERLAP, err.Code)
}

func TestFlowAddRejectsMissingPrerequisite(t *testing.T) {
	db := NewFlowdb()
	arpOp := []openflow13.MatchField{*openflow13.NewArpOperField(1)}
	err := db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: arpOp, Instructions: nil})
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPET_BAD_MATCH, err.Type)
	assert.EqualValues(t, openflow13.OFPBMC_BAD_PREREQ, err.Code)
}

func TestFlowAddAcceptsSatisfiedPrerequisite(t *testing.T) {
	db := NewFlowdb()
	matches := []openflow13.MatchField{
		*openflow13.NewEthTypeField(0x0806),
		*openflow13.NewArpOperField(1),
	}
	err := db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: matches, Instructions: nil})
	assert.Nil(t, err)
}

func TestFlowModifyStrictReplacesInstructionsOnExactMatch(t *testing.T) {
	db := NewFlowdb()
	matches := inPortMatch(1)
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 7, Matches: matches, Instructions: outputInstr(1)}))

	metadata := openflow13.NewInstrWriteMetadata(0x42, nil)
	err := db.FlowModify(&FlowModRequest{
		TableID:      0,
		Priority:     7,
		Matches:      matches,
		Instructions: []openflow13.Instruction{metadata},
	}, true)
	require.Nil(t, err)

	var found *Flow
	db.Table(0).Flows.Each(func(f *Flow) { found = f })
	require.NotNil(t, found)
	assert.NotNil(t, found.Instructions[InstrIndexWriteMetadata])
	assert.Nil(t, found.Instructions[InstrIndexApplyActions])
}

func TestFlowModifyStrictIgnoresDifferentMatchSet(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 7, Matches: inPortMatch(1), Instructions: outputInstr(1)}))

	err := db.FlowModify(&FlowModRequest{
		TableID:  0,
		Priority: 7,
		Matches:  inPortMatch(2),
		Instructions: []openflow13.Instruction{openflow13.NewInstrWriteMetadata(1, nil)},
	}, true)
	require.Nil(t, err)

	var found *Flow
	db.Table(0).Flows.Each(func(f *Flow) { found = f })
	assert.NotNil(t, found.Instructions[InstrIndexApplyActions])
	assert.Nil(t, found.Instructions[InstrIndexWriteMetadata])
}

func TestFlowDeleteNonStrictRemovesSupersetMatches(t *testing.T) {
	db := NewFlowdb()
	matches := []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewEthTypeField(0x0800),
	}
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: matches, Instructions: outputInstr(1)}))

	err := db.FlowDelete(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1)}, false)
	require.Nil(t, err)
	assert.Equal(t, 0, db.Table(0).Flows.Len())
}

func TestFlowDeleteStrictRequiresExactMatchSet(t *testing.T) {
	db := NewFlowdb()
	matches := []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewEthTypeField(0x0800),
	}
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: matches, Instructions: outputInstr(1)}))

	err := db.FlowDelete(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1)}, true)
	require.Nil(t, err)
	assert.Equal(t, 1, db.Table(0).Flows.Len(), "strict delete with a partial selector must not remove the flow")
}

func TestFlowDeleteFiltersByCookieMask(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Cookie: 0xaa, Matches: inPortMatch(1), Instructions: outputInstr(1)}))
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 2, Cookie: 0xbb, Matches: inPortMatch(2), Instructions: outputInstr(2)}))

	err := db.FlowDelete(&FlowModRequest{TableID: 0, Cookie: 0xaa, CookieMask: 0xff, Matches: nil}, false)
	require.Nil(t, err)
	assert.Equal(t, 1, db.Table(0).Flows.Len())
}

func TestFlowAddRejectsBadGroupAction(t *testing.T) {
	db := NewFlowdb()
	db.Hooks = &ActionHookRegistry{GroupExists: func(uint32) bool { return false }}

	apply := openflow13.NewInstrApplyActions()
	apply.AddAction(openflow13.NewActionGroup(7), false)
	err := db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1), Instructions: []openflow13.Instruction{apply}})
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPET_BAD_ACTION, err.Type)
	assert.EqualValues(t, openflow13.OFPBAC_BAD_OUT_GROUP, err.Code)
}

func TestFlowAddRejectsDuplicateInstruction(t *testing.T) {
	db := NewFlowdb()
	instrs := []openflow13.Instruction{
		openflow13.NewInstrGotoTable(1),
		openflow13.NewInstrGotoTable(2),
	}
	err := db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1), Instructions: instrs})
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPBIC_DUP_INST, err.Code)
}

func TestFlowStatsReportsMatchingFlows(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1), Instructions: outputInstr(1)}))
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 2, Matches: inPortMatch(2), Instructions: outputInstr(2)}))

	stats := db.FlowStats(&openflow13.FlowStatsRequest{TableId: openflow13.OFPTT_ALL}, nil)
	assert.Len(t, stats, 2)
}

func TestAggregateStatsSumsPacketAndByteCounts(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1), Instructions: outputInstr(1)}))
	var f *Flow
	db.Table(0).Flows.Each(func(flow *Flow) { f = flow })
	f.AddStats(10, 1000)

	agg := db.AggregateStats(&openflow13.AggregateStatsRequest{FlowStatsRequest: openflow13.FlowStatsRequest{TableId: openflow13.OFPTT_ALL}}, nil)
	assert.EqualValues(t, 1, agg.FlowCount)
	assert.EqualValues(t, 10, agg.PacketCount)
	assert.EqualValues(t, 1000, agg.ByteCount)
}

func TestFlowStatsDurationSecAdvancesAfterAWaitPeriod(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1), Instructions: outputInstr(1)}))

	time.Sleep(1100 * time.Millisecond)

	stats := db.FlowStats(&openflow13.FlowStatsRequest{TableId: openflow13.OFPTT_ALL}, nil)
	require.Len(t, stats, 1)
	assert.GreaterOrEqual(t, stats[0].DurationSec, uint32(1))
}

func TestTableStatsCountsLookupsAndMatches(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1), Instructions: outputInstr(1)}))

	key := &ClassifyKey{OOB: OOB{InPort: 1}}
	match := func(f *Flow, k *ClassifyKey) bool { return true }
	db.Classify(0, key, match)
	db.Classify(0, key, func(*Flow, *ClassifyKey) bool { return false })

	stats := db.TableStats()
	require.Len(t, stats, 1)
	assert.EqualValues(t, 2, stats[0].LookupCount)
	assert.EqualValues(t, 1, stats[0].MatchedCount)
}

func TestFlowAddAcceptsMaskedIpv4SrcWithEthType(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("10.0.0.0/24")
	require.Nil(t, err)
	mask := net.IP(ipnet.Mask)
	matches := []openflow13.MatchField{
		*openflow13.NewEthTypeField(0x0800),
		*openflow13.NewIpv4SrcField(net.ParseIP("10.0.0.1"), &mask),
	}
	db := NewFlowdb()
	err2 := db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: matches, Instructions: outputInstr(1)})
	assert.Nil(t, err2)
}
