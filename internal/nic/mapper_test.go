// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package nic_test

import (
	"bytes"
	"testing"

	"github.com/aibor/vrboot/internal/nic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	topo := nic.Topology{
		MaxDataSlots: 8,
		SlotFormat:   "eth%d",
		MACSeed:      "sdwan-validator",
	}

	for n := range topo.MaxDataSlots + 1 {
		descs, err := nic.Map(topo, n)
		require.NoError(t, err, "n=%d", n)
		require.Len(t, descs, n+1, "n=%d", n)

		assert.True(t, descs[0].Management(), "first is management")
		assert.Equal(t, 0, descs[0].ExternalIndex)
		assert.Equal(t, "eth0", descs[0].SlotName)
		assert.Empty(t, descs[0].TapName)

		seenExternal := map[int]bool{}

		for idx := 1; idx < len(descs); idx++ {
			prev, cur := descs[idx-1], descs[idx]
			assert.Greater(t, cur.SlotOrdinal, prev.SlotOrdinal, "ordinal")
			assert.Greater(t, cur.ExternalIndex, prev.ExternalIndex, "external")
			assert.False(t, cur.Management())
			assert.False(t, seenExternal[cur.ExternalIndex], "reused port")
			seenExternal[cur.ExternalIndex] = true
		}
	}
}

func TestMapValidatorFiveNICs(t *testing.T) {
	descs, err := nic.Map(nic.Topology{MaxDataSlots: 8}, 5)
	require.NoError(t, err)

	mgmt, ok := nic.Management(descs)
	require.True(t, ok)
	assert.Equal(t, 0, mgmt.ExternalIndex)

	data := nic.Data(descs)
	require.Len(t, data, 5)

	for idx, desc := range data {
		assert.Equal(t, idx+1, desc.ExternalIndex)
		assert.Equal(t, idx+1, desc.SlotOrdinal)
	}

	assert.Equal(t, "eth5", data[4].ExternalName)
	assert.Equal(t, "p05", data[4].TapName)
	assert.Equal(t, "p05", data[4].NetdevID())
}

func TestMapErrors(t *testing.T) {
	tests := []struct {
		name string
		n    int
	}{
		{
			name: "negative",
			n:    -1,
		},
		{
			name: "too many",
			n:    9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := nic.Map(nic.Topology{MaxDataSlots: 8}, tt.n)
			assert.ErrorIs(t, err, nic.ErrInvalidTopology)
		})
	}
}

func TestMapOffsetAndNaming(t *testing.T) {
	topo := nic.Topology{
		MaxDataSlots:  16,
		SlotFormat:    "vtnet%d",
		FirstExternal: 6,
		Instance:      2,
	}

	descs, err := nic.Map(topo, 2)
	require.NoError(t, err)

	assert.Equal(t, "vtnet0", descs[0].SlotName)
	assert.Equal(t, 6, descs[1].ExternalIndex)
	assert.Equal(t, "eth6", descs[1].ExternalName)
	assert.Equal(t, "vtnet1", descs[1].SlotName)
	assert.Equal(t, "p06", descs[1].TapName)
	assert.Equal(t, "p01", descs[1].NetdevID())
	assert.Equal(t, byte(2), descs[1].MAC[4])
	assert.Equal(t, byte(1), descs[1].MAC[5])
}

func TestMapMACStable(t *testing.T) {
	topo := nic.Topology{MaxDataSlots: 8, MACSeed: "host-a"}

	first, err := nic.Map(topo, 3)
	require.NoError(t, err)

	second, err := nic.Map(topo, 3)
	require.NoError(t, err)

	other, err := nic.Map(nic.Topology{MaxDataSlots: 8, MACSeed: "host-b"}, 3)
	require.NoError(t, err)

	for idx := range first {
		assert.Equal(t, first[idx].MAC, second[idx].MAC)
		assert.Equal(t, byte(0x0c), first[idx].MAC[0])
	}

	assert.NotEqual(t, first[1].MAC, other[1].MAC)
}

func TestWriteTable(t *testing.T) {
	descs, err := nic.Map(nic.Topology{MaxDataSlots: 8}, 2)
	require.NoError(t, err)

	var buf bytes.Buffer

	require.NoError(t, nic.WriteTable(&buf, descs))

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 4)
	assert.Contains(t, string(lines[0]), "PORT")
	assert.Contains(t, string(lines[1]), "(mgmt)")
	assert.Contains(t, string(lines[3]), "p02")
}
