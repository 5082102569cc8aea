package identity

import (
	"testing"

	"github.com/IamSpotted/ITSF-Agent/app/domains"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOSRelease(t *testing.T) {
	release := ParseOSRelease(`# comment
NAME="Ubuntu"
VERSION_ID="22.04"
PRETTY_NAME="Ubuntu 22.04.4 LTS"
ID=ubuntu
`)
	assert.Equal(t, "Ubuntu 22.04.4 LTS", release["PRETTY_NAME"])
	assert.Equal(t, "22.04", release["VERSION_ID"])
	assert.Equal(t, "ubuntu", release["ID"])
}

const dmidecodeSample = `# dmidecode 3.3
Handle 0x0040, DMI type 17, 40 bytes
Memory Device
	Size: No Module Installed
	Type: Unknown
	Speed: Unknown

Handle 0x0041, DMI type 17, 40 bytes
Memory Device
	Size: 16 GB
	Type: DDR4
	Speed: 3200 MT/s
	Manufacturer: Samsung

Handle 0x0042, DMI type 17, 40 bytes
Memory Device
	Size: 16 GB
	Type: DDR4
	Speed: 2666 MT/s
	Manufacturer: Kingston
`

func TestParseDmidecodeMemory(t *testing.T) {
	module, ok := ParseDmidecodeMemory(dmidecodeSample)
	require.True(t, ok)
	assert.Equal(t, "DDR4", module.Type)
	assert.Equal(t, "3200 MHz", module.Speed)
	assert.Equal(t, "Samsung", module.Manufacturer)

	_, ok = ParseDmidecodeMemory("")
	assert.False(t, ok)
}

func TestParseLsblk(t *testing.T) {
	disks, err := ParseLsblk(`{"blockdevices":[
		{"name":"loop0","size":4096,"model":null,"tran":null,"type":"loop"},
		{"name":"nvme0n1","size":512110190592,"model":"Samsung SSD 980 ","tran":"nvme","type":"disk"},
		{"name":"sda","size":"1000204886016","model":"ST1000DM010","tran":"sata","type":"disk"}
	]}`)
	require.NoError(t, err)
	require.Len(t, disks, 2)
	assert.Equal(t, "nvme0n1", disks[0].Name)
	assert.Equal(t, uint64(512110190592), disks[0].SizeBytes)
	assert.Equal(t, "Samsung SSD 980", disks[0].Model)
	assert.Equal(t, "NVME", disks[0].Interface)
	assert.Equal(t, uint64(1000204886016), disks[1].SizeBytes)

	_, err = ParseLsblk("not json")
	require.Error(t, err)
}

func TestApplyDisks(t *testing.T) {
	var snap domains.Snapshot
	ApplyDisks(&snap, []Disk{
		{Name: "nvme0n1", SizeBytes: 512 << 30, Model: "Samsung SSD 980", Interface: "NVME"},
		{Name: "sda", SizeBytes: 1000 << 30, Model: "ST1000DM010", Interface: "SATA"},
	})

	assert.Equal(t, "512GB Samsung SSD 980", *snap.StorageInfo)
	assert.Equal(t, "NVME", *snap.StorageType)
	assert.Equal(t, "Samsung SSD 980", *snap.StorageModel)
	assert.Equal(t, "Drive 2", *snap.Drive2Name)
	assert.Equal(t, "1000GB", *snap.Drive2Capacity)
	assert.Nil(t, snap.Drive3Name)
}

func TestParseCIMMemory(t *testing.T) {
	module, ok := ParseCIMMemory(`[{"SMBIOSMemoryType":26,"Speed":2666,"Manufacturer":"Micron"},{"SMBIOSMemoryType":26,"Speed":2666,"Manufacturer":"Micron"}]`)
	require.True(t, ok)
	assert.Equal(t, "DDR4", module.Type)
	assert.Equal(t, "2666 MHz", module.Speed)
	assert.Equal(t, "Micron", module.Manufacturer)
}

func TestParseCIMDisksSingleObject(t *testing.T) {
	disks, err := ParseCIMDisks(`{"Model":"KXG60ZNV512G","Size":512105932800,"InterfaceType":"SCSI"}`)
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "KXG60ZNV512G", disks[0].Model)
	assert.Equal(t, "SCSI", disks[0].Interface)

	disks, err = ParseCIMDisks("")
	require.NoError(t, err)
	assert.Empty(t, disks)
}
