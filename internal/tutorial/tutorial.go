// Package tutorial drives the BGDemo walkthrough against a connected radio:
// connect, discover, read, write, watch notifications, disconnect.
package tutorial

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/danmuck/bglink/internal/bgapi"
	"github.com/danmuck/bglink/internal/link"
	"github.com/danmuck/bglink/internal/protocol"
	"github.com/danmuck/bglink/internal/protocol/session"
	"github.com/rs/zerolog"
)

var (
	ErrNotConnected  = errors.New("tutorial: connecting failed")
	ErrCommandFailed = errors.New("tutorial: command failed")
	ErrProcedure     = errors.New("tutorial: attribute procedure failed")
)

// CustomCharacteristicUUID is the BGDemo characteristic read by UUID.
const CustomCharacteristicUUID = "f1b41cde-dbf5-4acf-8679-ecb8b4dca6fe"

// Script holds the handles and values the walkthrough uses.
type Script struct {
	WriteHandle   uint16
	WriteValue    []byte
	CustomUUID    []byte
	CCCHandle     uint16
	CCCValue      []byte
	NotifyHandle  uint16
	Notifications int
}

func DefaultScript() Script {
	uuid, err := bgapi.ParseUUID(CustomCharacteristicUUID)
	if err != nil {
		panic(err)
	}
	return Script{
		WriteHandle:   20,
		WriteValue:    []byte{0x12, 0x34, 0x56},
		CustomUUID:    uuid,
		CCCHandle:     17,
		CCCValue:      []byte{0x01, 0x00},
		NotifyHandle:  16,
		Notifications: 10,
	}
}

type runner struct {
	link   *link.Link
	st     *session.State
	out    io.Writer
	logger zerolog.Logger
}

// Run performs the walkthrough on l. Output meant for the operator goes to
// out; diagnostics go to logger.
func Run(ctx context.Context, l *link.Link, s Script, out io.Writer, logger zerolog.Logger) error {
	r := &runner{link: l, st: l.State(), out: out, logger: logger.With().Str("component", "tutorial").Logger()}

	if err := r.exec(ctx, bgapi.SystemHello()); err != nil {
		return err
	}
	if err := r.exec(ctx, bgapi.GAPEndProcedure()); err != nil {
		return err
	}
	if err := r.exec(ctx, bgapi.ConnectionGetStatus(0)); err != nil {
		return err
	}
	// A live link reports itself with a status event after the response.
	if _, err := r.link.Drain(ctx); err != nil {
		return fmt.Errorf("connection status: %w", err)
	}

	r.section("Connect to target")
	if r.st.Conn.State() == session.ConnConnected {
		r.logger.Info().Msg("already connected")
	} else if err := r.exec(ctx, bgapi.GAPConnectDirect(r.st.Conn.ConnectionParams)); err != nil && !r.connectedAnyway(err) {
		return err
	}
	conn, ok := r.st.Conn.Handle()
	if !ok {
		fmt.Fprintln(r.out, "[#] Connecting failed.")
		return fmt.Errorf("%w: state %s", ErrNotConnected, r.st.Conn.State())
	}

	r.section("Find Informations")
	if err := r.exec(ctx, bgapi.AttClientFindInformation(conn, bgapi.HandleFirst, bgapi.HandleLast)); err != nil {
		return err
	}
	if err := r.exec(ctx, bgapi.AttClientReadByGroupType(conn, bgapi.HandleFirst, bgapi.HandleLast, bgapi.UUIDPrimaryService)); err != nil {
		return err
	}

	r.section("Read target device name by 16bit UUID")
	if err := r.exec(ctx, bgapi.AttClientReadByType(conn, bgapi.HandleFirst, bgapi.HandleLast, bgapi.UUIDDeviceName)); err != nil {
		return err
	}
	if r.st.Flags.Take(session.ValuePending) {
		fmt.Fprintf(r.out, "[#] Device name: %s\n", r.st.Att.Value())
	}

	r.section("Write a value by handle")
	if err := r.exec(ctx, bgapi.AttClientAttributeWrite(conn, s.WriteHandle, s.WriteValue)); err != nil {
		return err
	}

	r.section("Read a value by 128bit UUID")
	if err := r.exec(ctx, bgapi.AttClientReadByType(conn, bgapi.HandleFirst, bgapi.HandleLast, s.CustomUUID)); err != nil {
		return err
	}
	if r.st.Flags.Take(session.ValuePending) {
		fmt.Fprintf(r.out, "[#] Is it %x?: %x\n", s.WriteValue, r.st.Att.Value())
	}

	r.section("Activate Service Notification by handle")
	if err := r.exec(ctx, bgapi.AttClientAttributeWrite(conn, s.CCCHandle, s.CCCValue)); err != nil {
		return err
	}

	r.section("Watch for notifications and print them if arriving")
	if err := r.watch(ctx, s); err != nil {
		return err
	}

	r.section("Disconnect from target")
	return r.exec(ctx, bgapi.ConnectionDisconnect(conn))
}

// exec sends cmd, waits for its response and, for asynchronous commands,
// for the completion event.
func (r *runner) exec(ctx context.Context, cmd protocol.Command) error {
	fmt.Fprintf(r.out, "[>] %s\n", cmd.Name)
	if err := r.link.SendCommand(cmd); err != nil {
		return err
	}
	if err := r.link.WaitForResponse(ctx); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if r.st.Flags.Take(session.CommandError) {
		r.st.Flags.Clear(session.AttClientError)
		return fmt.Errorf("%w: %s: %s", ErrCommandFailed, cmd.Name, bgapi.Result(r.st.Att.LastResult))
	}
	if !cmd.ExpectsEvent {
		return nil
	}
	if err := r.link.WaitForEvent(ctx); err != nil {
		return fmt.Errorf("%s: %w", cmd.Name, err)
	}
	if r.st.Flags.Take(session.AttClientError) {
		return fmt.Errorf("%w: %s: %s", ErrProcedure, cmd.Name, bgapi.Result(r.st.Att.LastResult))
	}
	return nil
}

// connectedAnyway reports whether a rejected connect raced a status event
// that had already brought the link up.
func (r *runner) connectedAnyway(err error) bool {
	if !errors.Is(err, ErrCommandFailed) || bgapi.Result(r.st.Att.LastResult) != bgapi.ResultWrongState {
		return false
	}
	if r.st.Conn.State() != session.ConnConnected {
		return false
	}
	r.st.Flags.Clear(session.AttClientError)
	r.logger.Info().Msg("connect rejected, link already up")
	return true
}

func (r *runner) watch(ctx context.Context, s Script) error {
	for seen := 0; seen < s.Notifications; {
		if _, err := r.link.Poll(ctx); err != nil {
			return fmt.Errorf("watch notifications: %w", err)
		}
		if r.st.Flags.Take(session.AttClientError) {
			return fmt.Errorf("%w: while watching notifications", ErrProcedure)
		}
		if !r.st.Flags.Take(session.NotificationPending) || r.st.Att.Handle != s.NotifyHandle {
			continue
		}
		v, err := BatteryVoltage(r.st.Att.Value())
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "[#] Notification %d - Battery Voltage: %1.3f Volt\n", seen, v)
		seen++
	}
	return nil
}

func (r *runner) section(title string) {
	fmt.Fprintf(r.out, "[###]%s[###]\n", title)
}

// BatteryVoltage decodes the BGDemo battery value: u16 little-endian in
// tenths of a millivolt.
func BatteryVoltage(value []byte) (float64, error) {
	rd := protocol.NewFieldReader(value)
	raw := rd.Uint16("voltage")
	if err := rd.Err(); err != nil {
		return 0, err
	}
	return float64(raw) * 0.0001, nil
}
