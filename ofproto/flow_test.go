package ofproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/openflow13"
)

func TestNewFlowRejectsDuplicateInstructionKind(t *testing.T) {
	matches := []openflow13.MatchField{*openflow13.NewInPortField(1)}
	instrs := []openflow13.Instruction{
		openflow13.NewInstrGotoTable(1),
		openflow13.NewInstrGotoTable(2),
	}
	f, err := NewFlow(0, 1, 0, matches, instrs, 0, 0, 0)
	assert.Nil(t, f)
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPBIC_DUP_INST, err.Code)
}

func TestMatchSetsOverlapTreatsAbsentFieldAsWildcard(t *testing.T) {
	a := []openflow13.MatchField{*openflow13.NewInPortField(1)}
	b := []openflow13.MatchField{*openflow13.NewEthTypeField(0x0800)}
	assert.True(t, matchSetsOverlap(a, b), "disjoint field sets never conflict")
}

func TestMatchSetsOverlapDetectsConflictingValue(t *testing.T) {
	a := []openflow13.MatchField{*openflow13.NewInPortField(1)}
	b := []openflow13.MatchField{*openflow13.NewInPortField(2)}
	assert.False(t, matchSetsOverlap(a, b))
}

func TestMatchSetsOverlapHonorsMaskIntersection(t *testing.T) {
	v1 := uint16(0x0100)
	m1 := uint16(0xff00)
	a := []openflow13.MatchField{*openflow13.NewVlanIdField(v1, &m1)}
	v2 := uint16(0x0001)
	m2 := uint16(0x00ff)
	b := []openflow13.MatchField{*openflow13.NewVlanIdField(v2, &m2)}
	assert.True(t, matchSetsOverlap(a, b), "masks only constrain disjoint bit ranges, so any value overlaps")
}

func TestMatchSetSupersetRequiresIdenticalConstraint(t *testing.T) {
	a := []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewEthTypeField(0x0800),
	}
	b := []openflow13.MatchField{*openflow13.NewInPortField(1)}
	assert.True(t, matchSetSuperset(a, b))

	c := []openflow13.MatchField{*openflow13.NewInPortField(2)}
	assert.False(t, matchSetSuperset(a, c))
}

func TestSameMatchSetIgnoresFieldOrder(t *testing.T) {
	a := []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewEthTypeField(0x0800),
	}
	b := []openflow13.MatchField{
		*openflow13.NewEthTypeField(0x0800),
		*openflow13.NewInPortField(1),
	}
	assert.True(t, sameMatchSet(a, b))
}

func TestCookieMatchesHonorsZeroMaskAsWildcard(t *testing.T) {
	f := &Flow{Cookie: 0x1234}
	assert.True(t, f.cookieMatches(0xffff, 0))
	assert.True(t, f.cookieMatches(0x1234, 0xffff))
	assert.False(t, f.cookieMatches(0x9999, 0xffff))
}

func TestValidatePrereqsRejectsTcpPortWithoutIpProto(t *testing.T) {
	matches := []openflow13.MatchField{*openflow13.NewTcpSrcField(80)}
	err := validatePrereqs(matches)
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPBMC_BAD_PREREQ, err.Code)
}

func TestValidatePrereqsAcceptsTcpPortWithIpProto(t *testing.T) {
	matches := []openflow13.MatchField{
		*openflow13.NewEthTypeField(0x0800),
		*openflow13.NewIpProtoField(6),
		*openflow13.NewTcpSrcField(80),
	}
	assert.Nil(t, validatePrereqs(matches))
}

func TestValidateNoDupFieldsRejectsRepeatedField(t *testing.T) {
	matches := []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewInPortField(2),
	}
	err := validateNoDupFields(matches)
	require.NotNil(t, err)
	assert.EqualValues(t, openflow13.OFPBMC_DUP_FIELD, err.Code)
}

func TestArenaAllocFreeReusesSlotWithNewGeneration(t *testing.T) {
	a := newArena()
	f1 := &Flow{Priority: 1}
	h1 := a.Alloc(f1)
	a.Free(h1)

	f2 := &Flow{Priority: 2}
	h2 := a.Alloc(f2)

	assert.Equal(t, h1.index, h2.index)
	assert.NotEqual(t, h1.generation, h2.generation)
	assert.Nil(t, a.Get(h1), "a stale handle must not resolve after free+reuse")
	assert.Same(t, f2, a.Get(h2))
}
