package bgapi

import (
	"fmt"

	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/frame"
	"github.com/danmuck/bglink/internal/protocol/registry"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/rs/zerolog"
)

type catalog struct {
	logger zerolog.Logger
}

type message struct {
	key     registry.Key
	name    string
	handler registry.HandlerFunc
}

func rsp(class, cmd uint8) registry.Key {
	return registry.Key{Type: frame.MessageResponse, Class: class, Command: cmd}
}

func evt(class, cmd uint8) registry.Key {
	return registry.Key{Type: frame.MessageEvent, Class: class, Command: cmd}
}

// Register installs every catalog handler into reg.
func Register(reg *registry.Registry, logger zerolog.Logger) error {
	c := &catalog{logger: logger.With().Str("component", "bgapi").Logger()}
	messages := []message{
		{rsp(ClassSystem, CmdSystemHello), "rsp_system_hello", c.rspPlain},
		{rsp(ClassGAP, CmdGAPEndProcedure), "rsp_gap_end_procedure", c.rspResult},
		{rsp(ClassGAP, CmdGAPConnectDirect), "rsp_gap_connect_direct", c.rspConnectDirect},
		{rsp(ClassConnection, CmdConnectionGetStatus), "rsp_connection_get_status", c.rspGetStatus},
		{rsp(ClassConnection, CmdConnectionDisconnect), "rsp_connection_disconnect", c.rspConnResult},
		{rsp(ClassAttClient, CmdAttClientReadByGroupType), "rsp_attclient_read_by_group_type", c.rspConnResult},
		{rsp(ClassAttClient, CmdAttClientReadByType), "rsp_attclient_read_by_type", c.rspConnResult},
		{rsp(ClassAttClient, CmdAttClientFindInformation), "rsp_attclient_find_information", c.rspConnResult},
		{rsp(ClassAttClient, CmdAttClientReadByHandle), "rsp_attclient_read_by_handle", c.rspConnResult},
		{rsp(ClassAttClient, CmdAttClientAttributeWrite), "rsp_attclient_attribute_write", c.rspConnResult},

		{evt(ClassSystem, EvtSystemBoot), "evt_system_boot", c.evtBoot},
		{evt(ClassConnection, EvtConnectionStatus), "evt_connection_status", c.evtConnectionStatus},
		{evt(ClassConnection, EvtConnectionDisconnected), "evt_connection_disconnected", c.evtDisconnected},
		{evt(ClassAttClient, EvtAttClientProcedureDone), "evt_attclient_procedure_completed", c.evtProcedureCompleted},
		{evt(ClassAttClient, EvtAttClientGroupFound), "evt_attclient_group_found", c.evtGroupFound},
		{evt(ClassAttClient, EvtAttClientInformationFound), "evt_attclient_find_information_found", c.evtInformationFound},
		{evt(ClassAttClient, EvtAttClientAttributeValue), "evt_attclient_attribute_value", c.evtAttributeValue},
	}
	for _, m := range messages {
		if err := reg.Register(m.key, m.name, m.handler); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the full catalog.
func NewRegistry(logger zerolog.Logger) (*registry.Registry, error) {
	reg := registry.New()
	if err := Register(reg, logger); err != nil {
		return nil, err
	}
	return reg, nil
}

func (c *catalog) rspPlain(_ []byte, st *session.State) error {
	st.Flags.Clear(session.CommandPending)
	return nil
}

func (c *catalog) rspResult(payload []byte, st *session.State) error {
	st.Flags.Clear(session.CommandPending)
	r := protocol.NewFieldReader(payload)
	result := Result(r.Uint16("result"))
	if err := r.Err(); err != nil {
		st.Flags.Set(session.CommandError)
		return err
	}
	if !result.OK() {
		failCommand(st, result)
		c.logger.Warn().Stringer("result", result).Msg("command rejected")
	}
	return nil
}

func (c *catalog) rspConnectDirect(payload []byte, st *session.State) error {
	st.Flags.Clear(session.CommandPending)
	r := protocol.NewFieldReader(payload)
	result := Result(r.Uint16("result"))
	handle := r.Uint8("connection_handle")
	if err := r.Err(); err != nil {
		failCommand(st, ResultSuccess)
		return err
	}
	if !result.OK() {
		failCommand(st, result)
		c.logger.Warn().Stringer("result", result).Msg("connect direct rejected")
		return nil
	}
	c.logger.Debug().Uint8("connection", handle).Msg("connecting")
	return st.Conn.Transition(session.ConnConnecting)
}

// rspGetStatus carries only the queried handle; a connected link reports
// itself with a connection status event.
func (c *catalog) rspGetStatus(payload []byte, st *session.State) error {
	st.Flags.Clear(session.CommandPending)
	r := protocol.NewFieldReader(payload)
	conn := r.Uint8("connection")
	if err := r.Err(); err != nil {
		return err
	}
	c.logger.Debug().Uint8("connection", conn).Msg("status requested")
	return nil
}

// rspConnResult handles the connection/result response shared by commands
// that complete with an event. A rejected command never produces that event,
// so the event wait is released with the error flag set.
func (c *catalog) rspConnResult(payload []byte, st *session.State) error {
	st.Flags.Clear(session.CommandPending)
	r := protocol.NewFieldReader(payload)
	conn := r.Uint8("connection")
	result := Result(r.Uint16("result"))
	if err := r.Err(); err != nil {
		failCommand(st, ResultSuccess)
		return err
	}
	if !result.OK() {
		failCommand(st, result)
		c.logger.Warn().Uint8("connection", conn).Stringer("result", result).Msg("command rejected")
		return nil
	}
	st.Att.State = session.AttBusy
	return nil
}

func failCommand(st *session.State, result Result) {
	st.Flags.Set(session.CommandError)
	st.Att.LastResult = uint16(result)
	if st.Flags.Take(session.AttClientPending) {
		st.Flags.Set(session.AttClientError)
		st.Att.State = session.AttFailed
	}
}

func (c *catalog) evtBoot(payload []byte, _ *session.State) error {
	r := protocol.NewFieldReader(payload)
	major := r.Uint16("major")
	minor := r.Uint16("minor")
	patch := r.Uint16("patch")
	build := r.Uint16("build")
	ll := r.Uint16("ll_version")
	proto := r.Uint8("protocol_version")
	hw := r.Uint8("hw")
	if err := r.Err(); err != nil {
		return err
	}
	c.logger.Info().
		Str("version", fmt.Sprintf("%d.%d.%d-%d", major, minor, patch, build)).
		Uint16("ll_version", ll).
		Uint8("protocol", proto).
		Uint8("hw", hw).
		Msg("radio booted")
	return nil
}

func (c *catalog) evtConnectionStatus(payload []byte, st *session.State) error {
	r := protocol.NewFieldReader(payload)
	conn := r.Uint8("connection")
	flags := r.Uint8("flags")
	var addr session.Address
	copy(addr[:], r.Bytes(len(addr), "address"))
	addrType := r.Uint8("address_type")
	interval := r.Uint16("conn_interval")
	timeout := r.Uint16("timeout")
	latency := r.Uint16("latency")
	bonding := r.Uint8("bonding")
	if err := r.Err(); err != nil {
		return err
	}
	c.logger.Info().
		Uint8("connection", conn).
		Uint8("flags", flags).
		Stringer("address", addr).
		Uint8("address_type", addrType).
		Uint16("interval", interval).
		Uint16("timeout", timeout).
		Uint16("latency", latency).
		Uint8("bonding", bonding).
		Msg("connection status")
	if flags&ConnFlagConnected == 0 {
		return nil
	}
	// Only the event that brings the link up completes a pending connect.
	// Parameter updates on a live link arrive mid-procedure and must leave
	// the procedure wait armed.
	completesConnect := st.Conn.State() != session.ConnConnected && flags&ConnFlagParametersChange == 0
	if err := st.Conn.MarkConnected(conn); err != nil {
		return err
	}
	if completesConnect {
		st.Flags.Clear(session.AttClientPending)
	}
	return nil
}

func (c *catalog) evtDisconnected(payload []byte, st *session.State) error {
	r := protocol.NewFieldReader(payload)
	conn := r.Uint8("connection")
	reason := Result(r.Uint16("reason"))
	if err := r.Err(); err != nil {
		return err
	}
	st.Flags.Clear(session.AttClientPending)
	c.logger.Info().Uint8("connection", conn).Stringer("reason", reason).Msg("disconnected")
	return st.Conn.Transition(session.ConnDisconnected)
}

func (c *catalog) evtProcedureCompleted(payload []byte, st *session.State) error {
	st.Flags.Clear(session.AttClientPending)
	r := protocol.NewFieldReader(payload)
	conn := r.Uint8("connection")
	result := Result(r.Uint16("result"))
	chrHandle := r.Uint16("chrhandle")
	if err := r.Err(); err != nil {
		st.Flags.Set(session.AttClientError)
		st.Att.State = session.AttFailed
		return err
	}
	st.Att.LastResult = uint16(result)
	if !result.OK() {
		st.Flags.Set(session.AttClientError)
		st.Att.State = session.AttFailed
		c.logger.Warn().Uint8("connection", conn).Uint16("chrhandle", chrHandle).Stringer("result", result).Msg("procedure failed")
		return nil
	}
	st.Att.State = session.AttCompleted
	c.logger.Debug().Uint8("connection", conn).Uint16("chrhandle", chrHandle).Msg("procedure completed")
	return nil
}

func (c *catalog) evtGroupFound(payload []byte, st *session.State) error {
	r := protocol.NewFieldReader(payload)
	r.Uint8("connection")
	start := r.Uint16("start")
	end := r.Uint16("end")
	uuid := r.Array("uuid")
	if err := r.Err(); err != nil {
		return err
	}
	st.RecordDiscovery(session.DiscoveredGroup, start, end, uuid)
	c.logger.Info().Uint16("start", start).Uint16("end", end).Str("uuid", FormatUUID(uuid)).Msg("group found")
	return nil
}

func (c *catalog) evtInformationFound(payload []byte, st *session.State) error {
	r := protocol.NewFieldReader(payload)
	r.Uint8("connection")
	handle := r.Uint16("chrhandle")
	uuid := r.Array("uuid")
	if err := r.Err(); err != nil {
		return err
	}
	st.RecordDiscovery(session.DiscoveredInformation, handle, handle, uuid)
	c.logger.Info().Uint16("handle", handle).Str("uuid", FormatUUID(uuid)).Msg("information found")
	return nil
}

// evtAttributeValue stores the value in the session buffer. Notifications and
// indications raise NotificationPending; everything else raises ValuePending.
// A plain read completes with this event, so it also releases the event wait.
func (c *catalog) evtAttributeValue(payload []byte, st *session.State) error {
	r := protocol.NewFieldReader(payload)
	r.Uint8("connection")
	handle := r.Uint16("atthandle")
	valueType := r.Uint8("type")
	value := r.Array("value")
	if err := r.Err(); err != nil {
		st.Flags.Set(session.AttClientError)
		return err
	}
	if !st.Att.SetValue(handle, valueType, value) {
		c.logger.Warn().Uint16("handle", handle).Int("len", len(value)).Int("capacity", st.Att.Capacity()).Msg("value truncated")
	}
	switch valueType {
	case session.ValueTypeNotify, session.ValueTypeIndicate, session.ValueTypeIndicateRspReq:
		st.Flags.Set(session.NotificationPending)
	case session.ValueTypeRead:
		st.Flags.Set(session.ValuePending)
		st.Flags.Clear(session.AttClientPending)
		st.Att.State = session.AttCompleted
	default:
		st.Flags.Set(session.ValuePending)
	}
	return nil
}
