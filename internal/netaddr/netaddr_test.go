package netaddr

import (
	"errors"
	"testing"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
)

func fixed(list psnet.InterfaceStatList, err error) Lister {
	return func() (psnet.InterfaceStatList, error) { return list, err }
}

func TestLocalIPv4(t *testing.T) {
	tests := []struct {
		name string
		list psnet.InterfaceStatList
		err  error
		want string
	}{
		{
			name: "skips loopback and down interfaces",
			list: psnet.InterfaceStatList{
				{Name: "lo", Flags: []string{"up", "loopback"}, Addrs: []psnet.InterfaceAddr{{Addr: "127.0.0.1/8"}}},
				{Name: "eth1", Flags: []string{"broadcast"}, Addrs: []psnet.InterfaceAddr{{Addr: "10.9.9.9/24"}}},
				{Name: "eth0", Flags: []string{"up", "broadcast"}, Addrs: []psnet.InterfaceAddr{
					{Addr: "fe80::1/64"},
					{Addr: "192.168.1.20/24"},
				}},
			},
			want: "192.168.1.20",
		},
		{
			name: "skips link-local v4",
			list: psnet.InterfaceStatList{
				{Name: "eth0", Flags: []string{"up"}, Addrs: []psnet.InterfaceAddr{{Addr: "169.254.3.3/16"}, {Addr: "10.0.0.5"}}},
			},
			want: "10.0.0.5",
		},
		{
			name: "only v6",
			list: psnet.InterfaceStatList{
				{Name: "eth0", Flags: []string{"up"}, Addrs: []psnet.InterfaceAddr{{Addr: "2001:db8::1/64"}}},
			},
			want: fallbackIP,
		},
		{
			name: "lister error",
			err:  errors.New("no /proc"),
			want: fallbackIP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalIPv4(fixed(tt.list, tt.err)))
		})
	}
}

func TestAdvertise(t *testing.T) {
	list := fixed(psnet.InterfaceStatList{
		{Name: "eth0", Flags: []string{"up"}, Addrs: []psnet.InterfaceAddr{{Addr: "10.0.0.5/24"}}},
	}, nil)

	assert.Equal(t, "10.0.0.5:7777", Advertise(list, "", 7777))
	assert.Equal(t, "game.example:7777", Advertise(list, "game.example", 7777))
	assert.Equal(t, "[2001:db8::1]:7777", Advertise(list, "2001:db8::1", 7777))
}
