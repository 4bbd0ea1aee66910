// SPDX-FileCopyrightText: 2025 Tobias Böhm <code@aibor.de>
//
// SPDX-License-Identifier: GPL-3.0-or-later

package netdev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

const defaultLinkPollInterval = 500 * time.Millisecond

// Handle is the subset of [netlink.Handle] used for plumbing.
type Handle interface {
	LinkAdd(link netlink.Link) error
	LinkDel(link netlink.Link) error
	LinkByName(name string) (netlink.Link, error)
	LinkSetUp(link netlink.Link) error
	LinkSetMaster(link, master netlink.Link) error
	QdiscAdd(qdisc netlink.Qdisc) error
	QdiscDel(qdisc netlink.Qdisc) error
	FilterAdd(filter netlink.Filter) error
}

var _ Handle = (*netlink.Handle)(nil)

// Plumber creates taps and connects them to container interfaces.
type Plumber struct {
	Handle Handle
	Mode   Mode

	// LinkPollInterval is the interval container interfaces are looked up
	// with while waiting for them to appear.
	LinkPollInterval time.Duration
}

// NewPlumber creates a [Plumber] operating in the current network namespace.
func NewPlumber(mode Mode) (*Plumber, error) {
	handle, err := netlink.NewHandle()
	if err != nil {
		return nil, fmt.Errorf("netlink handle: %w", err)
	}

	return &Plumber{
		Handle: handle,
		Mode:   mode,
	}, nil
}

// Connection is a tap connected to a container interface.
type Connection struct {
	handle   Handle
	mode     Mode
	tap      netlink.Link
	external netlink.Link
	bridge   netlink.Link
}

// Connect creates the tap and connects it to the external interface.
//
// It waits for the external interface to appear, as container runtimes might
// add interfaces after the container has been started. In case of errors,
// everything created so far is removed again.
func (p *Plumber) Connect(ctx context.Context, tapName, externalName string) (*Connection, error) {
	conn := &Connection{
		handle: p.Handle,
		mode:   p.Mode,
	}

	err := conn.setup(ctx, p, tapName, externalName)
	if err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	slog.Debug("Tap connected",
		slog.String("tap", tapName),
		slog.String("external", externalName),
		slog.String("mode", string(p.Mode)))

	return conn, nil
}

func (c *Connection) setup(ctx context.Context, p *Plumber, tapName, externalName string) error {
	tap := &netlink.Tuntap{
		LinkAttrs: netlink.LinkAttrs{Name: tapName},
		Mode:      netlink.TUNTAP_MODE_TAP,
		Flags:     netlink.TUNTAP_NO_PI | netlink.TUNTAP_VNET_HDR,
	}

	err := c.handle.LinkAdd(tap)
	if err != nil {
		return fmt.Errorf("add tap %s: %w", tapName, err)
	}

	c.tap, err = c.handle.LinkByName(tapName)
	if err != nil {
		c.tap = tap
		return fmt.Errorf("lookup tap %s: %w", tapName, err)
	}

	err = c.handle.LinkSetUp(c.tap)
	if err != nil {
		return fmt.Errorf("set up %s: %w", tapName, err)
	}

	if c.mode == ModeNone {
		return nil
	}

	c.external, err = p.waitForLink(ctx, externalName)
	if err != nil {
		return err
	}

	err = c.handle.LinkSetUp(c.external)
	if err != nil {
		return fmt.Errorf("set up %s: %w", externalName, err)
	}

	switch c.mode {
	case ModeTC:
		return c.redirect()
	case ModeBridge:
		return c.bridgeLinks()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownMode, c.mode)
	}
}

// redirect mirrors all ingress frames of each link to the egress of the
// other one.
func (c *Connection) redirect() error {
	for _, pair := range [][2]netlink.Link{
		{c.external, c.tap},
		{c.tap, c.external},
	} {
		from, to := pair[0].Attrs(), pair[1].Attrs()

		err := c.handle.QdiscAdd(ingressQdisc(from.Index))
		if err != nil {
			return fmt.Errorf("add ingress qdisc %s: %w", from.Name, err)
		}

		filter := &netlink.MatchAll{
			FilterAttrs: netlink.FilterAttrs{
				LinkIndex: from.Index,
				Parent:    netlink.MakeHandle(0xffff, 0),
				Priority:  1,
				Protocol:  unix.ETH_P_ALL,
			},
			Actions: []netlink.Action{
				netlink.NewMirredAction(to.Index),
			},
		}

		err = c.handle.FilterAdd(filter)
		if err != nil {
			return fmt.Errorf("add redirect %s -> %s: %w", from.Name, to.Name, err)
		}
	}

	return nil
}

func (c *Connection) bridgeLinks() error {
	name := "br-" + c.tap.Attrs().Name

	bridge := &netlink.Bridge{LinkAttrs: netlink.LinkAttrs{Name: name}}

	err := c.handle.LinkAdd(bridge)
	if err != nil {
		return fmt.Errorf("add bridge %s: %w", name, err)
	}

	c.bridge = bridge

	for _, link := range []netlink.Link{c.tap, c.external} {
		err := c.handle.LinkSetMaster(link, bridge)
		if err != nil {
			return fmt.Errorf("set master of %s: %w", link.Attrs().Name, err)
		}
	}

	err = c.handle.LinkSetUp(bridge)
	if err != nil {
		return fmt.Errorf("set up %s: %w", name, err)
	}

	return nil
}

// Close removes the tap and everything attached to the external interface.
// The external interface itself is left untouched.
func (c *Connection) Close() error {
	var errs []error

	if c.bridge != nil {
		err := c.handle.LinkDel(c.bridge)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete bridge: %w", err))
		}

		c.bridge = nil
	}

	if c.external != nil && c.mode == ModeTC {
		err := c.handle.QdiscDel(ingressQdisc(c.external.Attrs().Index))
		if err != nil && !errors.Is(err, unix.ENOENT) && !errors.Is(err, unix.EINVAL) {
			errs = append(errs, fmt.Errorf("delete ingress qdisc: %w", err))
		}

		c.external = nil
	}

	if c.tap != nil {
		err := c.handle.LinkDel(c.tap)
		if err != nil {
			errs = append(errs, fmt.Errorf("delete tap: %w", err))
		}

		c.tap = nil
	}

	return errors.Join(errs...)
}

// TapName returns the name of the tap device.
func (c *Connection) TapName() string {
	if c.tap == nil {
		return ""
	}

	return c.tap.Attrs().Name
}

func (p *Plumber) waitForLink(ctx context.Context, name string) (netlink.Link, error) {
	interval := p.LinkPollInterval
	if interval <= 0 {
		interval = defaultLinkPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logged := false

	for {
		link, err := p.Handle.LinkByName(name)
		if err == nil {
			return link, nil
		}

		var notFound netlink.LinkNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("lookup %s: %w", name, err)
		}

		if !logged {
			slog.Info("Waiting for interface", slog.String("name", name))

			logged = true
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for %s: %w", name, ctx.Err())
		case <-ticker.C:
		}
	}
}

func ingressQdisc(index int) *netlink.Ingress {
	return &netlink.Ingress{
		QdiscAttrs: netlink.QdiscAttrs{
			LinkIndex: index,
			Handle:    netlink.MakeHandle(0xffff, 0),
			Parent:    netlink.HANDLE_INGRESS,
		},
	}
}
