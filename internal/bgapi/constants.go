package bgapi

import "fmt"

// Message classes.
const (
	ClassSystem     uint8 = 0
	ClassFlash      uint8 = 1
	ClassAttributes uint8 = 2
	ClassConnection uint8 = 3
	ClassAttClient  uint8 = 4
	ClassSM         uint8 = 5
	ClassGAP        uint8 = 6
	ClassHardware   uint8 = 7
	ClassTest       uint8 = 8
)

// System commands and events.
const (
	CmdSystemReset uint8 = 0
	CmdSystemHello uint8 = 1
	EvtSystemBoot  uint8 = 0
)

// Connection commands and events.
const (
	CmdConnectionDisconnect uint8 = 0
	CmdConnectionGetStatus  uint8 = 7

	EvtConnectionStatus       uint8 = 0
	EvtConnectionDisconnected uint8 = 4
)

// Attribute client commands and events.
const (
	CmdAttClientFindByTypeValue  uint8 = 0
	CmdAttClientReadByGroupType  uint8 = 1
	CmdAttClientReadByType       uint8 = 2
	CmdAttClientFindInformation  uint8 = 3
	CmdAttClientReadByHandle     uint8 = 4
	CmdAttClientAttributeWrite   uint8 = 5
	CmdAttClientWriteCommand     uint8 = 6
	EvtAttClientIndicated        uint8 = 0
	EvtAttClientProcedureDone    uint8 = 1
	EvtAttClientGroupFound       uint8 = 2
	EvtAttClientAttributeFound   uint8 = 3
	EvtAttClientInformationFound uint8 = 4
	EvtAttClientAttributeValue   uint8 = 5
)

// GAP commands.
const (
	CmdGAPConnectDirect uint8 = 3
	CmdGAPEndProcedure  uint8 = 4
)

// Connection status flags.
const (
	ConnFlagConnected        uint8 = 1 << 0
	ConnFlagEncrypted        uint8 = 1 << 1
	ConnFlagCompleted        uint8 = 1 << 2
	ConnFlagParametersChange uint8 = 1 << 3
)

// Handle range covering every attribute.
const (
	HandleFirst uint16 = 0x0001
	HandleLast  uint16 = 0xffff
)

// 16-bit GATT UUIDs in wire order.
var (
	UUIDPrimaryService          = []byte{0x00, 0x28}
	UUIDSecondaryService        = []byte{0x01, 0x28}
	UUIDInclude                 = []byte{0x02, 0x28}
	UUIDCharacteristic          = []byte{0x03, 0x28}
	UUIDClientCharacteristicCfg = []byte{0x02, 0x29}
	UUIDDeviceName              = []byte{0x00, 0x2a}
	UUIDAppearance              = []byte{0x01, 0x2a}
)

// Result is the 16-bit status code carried by responses and completion events.
type Result uint16

const (
	ResultSuccess    Result = 0x0000
	ResultWrongState Result = 0x0181
)

var resultNames = map[Result]string{
	0x0000: "success",
	0x0180: "invalid parameter",
	0x0181: "device in wrong state",
	0x0182: "out of memory",
	0x0183: "feature not implemented",
	0x0184: "command not recognized",
	0x0185: "timeout",
	0x0186: "not connected",
	0x0208: "connection timeout",
	0x0401: "invalid handle",
	0x0402: "read not permitted",
	0x0403: "write not permitted",
	0x0405: "insufficient authentication",
	0x040a: "attribute not found",
	0x040d: "invalid attribute value length",
}

func (r Result) OK() bool {
	return r == ResultSuccess
}

func (r Result) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("result(0x%04x)", uint16(r))
}
