package ofproto

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/openflow13"
)

func TestDumpTableRendersPriorityMatchAndAction(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{
		TableID:  0,
		Priority: 42,
		Matches:  inPortMatch(3),
		Instructions: outputInstr(5),
	}))

	var buf bytes.Buffer
	DumpTable(&buf, db.Table(0))
	out := buf.String()

	assert.Contains(t, out, "Table id: 0")
	assert.Contains(t, out, "priority=42")
	assert.Contains(t, out, "in_port=3")
	assert.Contains(t, out, "output:5")
}

func TestDumpTableRendersDropForEmptyInstructions(t *testing.T) {
	db := NewFlowdb()
	require.Nil(t, db.FlowAdd(&FlowModRequest{TableID: 0, Priority: 1, Matches: inPortMatch(1)}))

	var buf bytes.Buffer
	DumpTable(&buf, db.Table(0))
	assert.Contains(t, buf.String(), "actions=drop")
}

func TestWriteMatchDecodesEthTypeToKeyword(t *testing.T) {
	var buf bytes.Buffer
	writeMatch(&buf, *openflow13.NewEthTypeField(0x0800))
	assert.Equal(t, ",ip", buf.String())
}

func TestWriteMatchFallsBackToHexEthType(t *testing.T) {
	var buf bytes.Buffer
	writeMatch(&buf, *openflow13.NewEthTypeField(0x1234))
	assert.True(t, strings.Contains(buf.String(), "eth_type=0x1234"))
}

func TestPortStringNamesReservedPorts(t *testing.T) {
	assert.Equal(t, "controller", portString(openflow13.P_CONTROLLER))
	assert.Equal(t, "5", portString(5))
}
