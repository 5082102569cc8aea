package domains

import "time"

// Snapshot is the device identity observed during one collection cycle.
// A nil pointer means the value could not be determined; an empty string is a
// known empty value.
type Snapshot struct {
	Hostname       string  `db:"hostname" json:"hostname" validate:"required,max=255"`
	SerialNumber   *string `db:"serial_number" json:"serial_number,omitempty"`
	AssetTag       *string `db:"asset_tag" json:"asset_tag,omitempty"`
	DeviceType     *string `db:"device_type" json:"device_type,omitempty"`
	EquipmentGroup *string `db:"equipment_group" json:"equipment_group,omitempty"`

	DomainName     *string `db:"domain_name" json:"domain_name,omitempty"`
	IsDomainJoined *bool   `db:"is_domain_joined" json:"is_domain_joined,omitempty"`

	Manufacturer *string `db:"manufacturer" json:"manufacturer,omitempty"`
	Model        *string `db:"model" json:"model,omitempty"`
	CPUInfo      *string `db:"cpu_info" json:"cpu_info,omitempty"`
	BIOSVersion  *string `db:"bios_version" json:"bios_version,omitempty"`

	TotalRAMGB      *int    `db:"total_ram_gb" json:"total_ram_gb,omitempty" validate:"omitempty,min=0"`
	RAMType         *string `db:"ram_type" json:"ram_type,omitempty"`
	RAMSpeed        *string `db:"ram_speed" json:"ram_speed,omitempty"`
	RAMManufacturer *string `db:"ram_manufacturer" json:"ram_manufacturer,omitempty"`

	OSName         *string    `db:"os_name" json:"os_name,omitempty"`
	OSVersion      *string    `db:"os_version" json:"os_version,omitempty"`
	OSArchitecture *string    `db:"os_architecture" json:"os_architecture,omitempty"`
	OSInstallDate  *time.Time `db:"os_install_date" json:"os_install_date,omitempty"`

	StorageInfo  *string `db:"storage_info" json:"storage_info,omitempty"`
	StorageType  *string `db:"storage_type" json:"storage_type,omitempty"`
	StorageModel *string `db:"storage_model" json:"storage_model,omitempty"`

	Drive2Name     *string `db:"drive2_name" json:"drive2_name,omitempty"`
	Drive2Capacity *string `db:"drive2_capacity" json:"drive2_capacity,omitempty"`
	Drive2Type     *string `db:"drive2_type" json:"drive2_type,omitempty"`
	Drive2Model    *string `db:"drive2_model" json:"drive2_model,omitempty"`
	Drive3Name     *string `db:"drive3_name" json:"drive3_name,omitempty"`
	Drive3Capacity *string `db:"drive3_capacity" json:"drive3_capacity,omitempty"`
	Drive3Type     *string `db:"drive3_type" json:"drive3_type,omitempty"`
	Drive3Model    *string `db:"drive3_model" json:"drive3_model,omitempty"`
	Drive4Name     *string `db:"drive4_name" json:"drive4_name,omitempty"`
	Drive4Capacity *string `db:"drive4_capacity" json:"drive4_capacity,omitempty"`
	Drive4Type     *string `db:"drive4_type" json:"drive4_type,omitempty"`
	Drive4Model    *string `db:"drive4_model" json:"drive4_model,omitempty"`

	PrimaryIP     *string `db:"primary_ip" json:"primary_ip,omitempty"`
	PrimaryMAC    *string `db:"primary_mac" json:"primary_mac,omitempty"`
	PrimarySubnet *string `db:"primary_subnet" json:"primary_subnet,omitempty"`
	PrimaryDNS    *string `db:"primary_dns" json:"primary_dns,omitempty"`
	SecondaryDNS  *string `db:"secondary_dns" json:"secondary_dns,omitempty"`

	NIC2Name   *string `db:"nic2_name" json:"nic2_name,omitempty"`
	NIC2IP     *string `db:"nic2_ip" json:"nic2_ip,omitempty"`
	NIC2MAC    *string `db:"nic2_mac" json:"nic2_mac,omitempty"`
	NIC2Subnet *string `db:"nic2_subnet" json:"nic2_subnet,omitempty"`
	NIC3Name   *string `db:"nic3_name" json:"nic3_name,omitempty"`
	NIC3IP     *string `db:"nic3_ip" json:"nic3_ip,omitempty"`
	NIC3MAC    *string `db:"nic3_mac" json:"nic3_mac,omitempty"`
	NIC3Subnet *string `db:"nic3_subnet" json:"nic3_subnet,omitempty"`
	NIC4Name   *string `db:"nic4_name" json:"nic4_name,omitempty"`
	NIC4IP     *string `db:"nic4_ip" json:"nic4_ip,omitempty"`
	NIC4MAC    *string `db:"nic4_mac" json:"nic4_mac,omitempty"`
	NIC4Subnet *string `db:"nic4_subnet" json:"nic4_subnet,omitempty"`

	WebInterfaceURL *string `db:"web_interface_url" json:"web_interface_url,omitempty"`

	DeviceStatus    *string `db:"device_status" json:"device_status,omitempty"`
	Area            *string `db:"area" json:"area,omitempty"`
	Zone            *string `db:"zone" json:"zone,omitempty"`
	Line            *string `db:"line" json:"line,omitempty"`
	Pitch           *string `db:"pitch" json:"pitch,omitempty"`
	Floor           *string `db:"floor" json:"floor,omitempty"`
	Pillar          *string `db:"pillar" json:"pillar,omitempty"`
	AdditionalNotes *string `db:"additional_notes" json:"additional_notes,omitempty"`

	PurchaseDate *time.Time `db:"purchase_date" json:"purchase_date,omitempty"`
	ServiceDate  *time.Time `db:"service_date" json:"service_date,omitempty"`
	WarrantyDate *time.Time `db:"warranty_date" json:"warranty_date,omitempty"`

	DiscoveryMethod *string `db:"discovery_method" json:"discovery_method,omitempty"`

	// CollectedAt is when the probes ran. It is not persisted remotely.
	CollectedAt time.Time `db:"-" json:"collected_at"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
