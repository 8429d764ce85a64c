package bw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocksResponse(t *testing.T) {
	xmlBody := `<bwLocks:dataContainer xmlns:bwLocks="urn:bwLocks">
  <lock>
    <client>100</client>
    <user>DEVUSER</user>
    <mode>E</mode>
    <tableName>RSBWOBJ_ENQUEUE</tableName>
    <tableDesc>BW object enqueue</tableDesc>
    <object>ZCUBE1</object>
    <arg>QkFTRTY0QVJH</arg>
    <owner1>T1dORVIx</owner1>
    <owner2>T1dORVIy</owner2>
    <timestamp>20260731120000</timestamp>
    <updCount>1</updCount>
    <diaCount>0</diaCount>
  </lock>
</bwLocks:dataContainer>`
	entries, err := parseLocksResponse(xmlBody)
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "DEVUSER", entries[0].User)
	assert.Equal(t, "ZCUBE1", entries[0].Object)
	assert.Equal(t, 1, entries[0].UpdCount)
}

func TestParseLocksResponseEmpty(t *testing.T) {
	entries, err := parseLocksResponse(`<bwLocks:dataContainer xmlns:bwLocks="urn:bwLocks"/>`)
	require.Nil(t, err)
	assert.Empty(t, entries)
}
