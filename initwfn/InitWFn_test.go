package initwfn_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HuangHaoyu1997/deep-reinforcement-learning-gym/initwfn"
)

func TestJSONRoundTrip(t *testing.T) {
	glorot, err := initwfn.NewGlorotN(2.0)
	require.NoError(t, err)

	data, err := json.Marshal(glorot)
	require.NoError(t, err)

	var decoded initwfn.InitWFn
	require.NoError(t, json.Unmarshal(data, &decoded))

	require.Equal(t, initwfn.GlorotN, decoded.Type)
	require.Equal(t, glorot.Config, decoded.Config)
	require.NotNil(t, decoded.InitWFn())
}

func TestConstantInitializesAllWeights(t *testing.T) {
	constant, err := initwfn.NewConstant(1.5)
	require.NoError(t, err)
	require.NotNil(t, constant.InitWFn())

	data, err := json.Marshal(constant)
	require.NoError(t, err)

	var decoded initwfn.InitWFn
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, constant.Config, decoded.Config)
}
