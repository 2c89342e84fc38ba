package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
)

func TestBuildFlowinfoStrategyClassifies(t *testing.T) {
	f, err := ofproto.NewFlow(0, 10, 0, nil, nil, 0, 0, 0)
	require.Nil(t, err)

	accel := Build(StrategyFlowinfo, 0, []*ofproto.Flow{f})
	require.NotNil(t, accel)

	got, ok := accel.Find(&ofproto.ClassifyKey{})
	require.True(t, ok)
	assert.Same(t, f, got)
}

func TestBuildMbtreeStrategyClassifies(t *testing.T) {
	f, err := ofproto.NewFlow(0, 10, 0, nil, nil, 0, 0, 0)
	require.Nil(t, err)

	accel := Build(StrategyMbtree, 0, []*ofproto.Flow{f})
	require.NotNil(t, accel)

	got, ok := accel.Find(&ofproto.ClassifyKey{})
	require.True(t, ok)
	assert.Same(t, f, got)
}

func TestBuildThtableStrategyClassifies(t *testing.T) {
	f, err := ofproto.NewFlow(0, 10, 0, nil, nil, 0, 0, 0)
	require.Nil(t, err)

	accel := Build(StrategyThtable, 0, []*ofproto.Flow{f})
	require.NotNil(t, accel)

	got, ok := accel.Find(&ofproto.ClassifyKey{})
	require.True(t, ok)
	assert.Same(t, f, got)
}
