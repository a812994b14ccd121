package bgapi

import (
	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/session"
)

func SystemHello() protocol.Command {
	return protocol.Command{Name: "system_hello", Class: ClassSystem, ID: CmdSystemHello}
}

// GAPEndProcedure stops any running scan or connection attempt.
func GAPEndProcedure() protocol.Command {
	return protocol.Command{Name: "gap_end_procedure", Class: ClassGAP, ID: CmdGAPEndProcedure}
}

// GAPConnectDirect starts a connection; the link is up once the connection
// status event arrives.
func GAPConnectDirect(p session.ConnectionParams) protocol.Command {
	w := protocol.NewFieldWriter(15).
		Raw(p.Target[:]).
		Uint8(p.AddrType).
		Uint16(p.IntervalMin).
		Uint16(p.IntervalMax).
		Uint16(p.Timeout).
		Uint16(p.Latency)
	return protocol.Command{
		Name:         "gap_connect_direct",
		Class:        ClassGAP,
		ID:           CmdGAPConnectDirect,
		Payload:      w.Bytes(),
		ExpectsEvent: true,
	}
}

func ConnectionGetStatus(conn uint8) protocol.Command {
	return protocol.Command{
		Name:    "connection_get_status",
		Class:   ClassConnection,
		ID:      CmdConnectionGetStatus,
		Payload: []byte{conn},
	}
}

func ConnectionDisconnect(conn uint8) protocol.Command {
	return protocol.Command{
		Name:         "connection_disconnect",
		Class:        ClassConnection,
		ID:           CmdConnectionDisconnect,
		Payload:      []byte{conn},
		ExpectsEvent: true,
	}
}

func AttClientFindInformation(conn uint8, start, end uint16) protocol.Command {
	w := protocol.NewFieldWriter(5).Uint8(conn).Uint16(start).Uint16(end)
	return attclient("attclient_find_information", CmdAttClientFindInformation, w)
}

func AttClientReadByGroupType(conn uint8, start, end uint16, uuid []byte) protocol.Command {
	w := protocol.NewFieldWriter(6 + len(uuid)).Uint8(conn).Uint16(start).Uint16(end).Array(uuid)
	return attclient("attclient_read_by_group_type", CmdAttClientReadByGroupType, w)
}

func AttClientReadByType(conn uint8, start, end uint16, uuid []byte) protocol.Command {
	w := protocol.NewFieldWriter(6 + len(uuid)).Uint8(conn).Uint16(start).Uint16(end).Array(uuid)
	return attclient("attclient_read_by_type", CmdAttClientReadByType, w)
}

func AttClientReadByHandle(conn uint8, handle uint16) protocol.Command {
	w := protocol.NewFieldWriter(3).Uint8(conn).Uint16(handle)
	return attclient("attclient_read_by_handle", CmdAttClientReadByHandle, w)
}

func AttClientAttributeWrite(conn uint8, handle uint16, data []byte) protocol.Command {
	w := protocol.NewFieldWriter(4 + len(data)).Uint8(conn).Uint16(handle).Array(data)
	return attclient("attclient_attribute_write", CmdAttClientAttributeWrite, w)
}

func attclient(name string, id uint8, w *protocol.FieldWriter) protocol.Command {
	return protocol.Command{
		Name:         name,
		Class:        ClassAttClient,
		ID:           id,
		Payload:      w.Bytes(),
		ExpectsEvent: true,
	}
}
