package travel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantMap string
		listen  bool
		wantErr bool
	}{
		{"lobby listen", "/Game/ThirdPerson/Maps/Lobby?listen", "/Game/ThirdPerson/Maps/Lobby", true, false},
		{"plain map", "/Game/Maps/Arena", "/Game/Maps/Arena", false, false},
		{"several options", "/Game/Maps/Arena?game=ffa&listen", "/Game/Maps/Arena", true, false},
		{"empty map", "?listen", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapName, opts, err := ParseURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMap, mapName)
			assert.Equal(t, tt.listen, opts.Has("listen"))
		})
	}
}

type guestLog struct {
	mu     sync.Mutex
	events []string
}

func (g *guestLog) record(name string, joined bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if joined {
		g.events = append(g.events, "+"+name)
	} else {
		g.events = append(g.events, "-"+name)
	}
}

func (g *guestLog) snapshot() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.events...)
}

func TestServerTravelThenClientTravel(t *testing.T) {
	guests := &guestLog{}
	hostLink := New(Options{ListenHost: "127.0.0.1", PlayerName: "Alice", OnGuest: guests.record})
	t.Cleanup(func() { hostLink.Close() })

	require.NoError(t, hostLink.ServerTravel("/Game/ThirdPerson/Maps/Lobby?listen"))
	addr := hostLink.Addr()
	require.NotEmpty(t, addr)
	assert.Equal(t, "/Game/ThirdPerson/Maps/Lobby", hostLink.Map())

	clientLink := New(Options{PlayerName: "Bob", DialTimeout: 2 * time.Second})
	require.NoError(t, clientLink.ClientTravel(addr))
	assert.True(t, clientLink.Connected())
	assert.Equal(t, "/Game/ThirdPerson/Maps/Lobby", clientLink.Map())

	assert.Eventually(t, func() bool { return hostLink.Guests() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, clientLink.Close())
	assert.Eventually(t, func() bool { return hostLink.Guests() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(guests.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"+Bob", "-Bob"}, guests.snapshot())
}

func TestServerTravelWithoutListenStopsHosting(t *testing.T) {
	l := New(Options{ListenHost: "127.0.0.1"})
	t.Cleanup(func() { l.Close() })

	require.NoError(t, l.ServerTravel("/Game/Maps/Lobby?listen"))
	require.NotEmpty(t, l.Addr())

	require.NoError(t, l.ServerTravel("/Game/Maps/Menu"))
	assert.Empty(t, l.Addr())
	assert.Equal(t, "/Game/Maps/Menu", l.Map())
}

func TestServerTravelKeepsListener(t *testing.T) {
	l := New(Options{ListenHost: "127.0.0.1"})
	t.Cleanup(func() { l.Close() })

	require.NoError(t, l.ServerTravel("/Game/Maps/Lobby?listen"))
	first := l.Addr()
	require.NoError(t, l.ServerTravel("/Game/Maps/Arena?listen"))
	assert.Equal(t, first, l.Addr())
	assert.Equal(t, "/Game/Maps/Arena", l.Map())
}

func TestClientTravelUnreachable(t *testing.T) {
	l := New(Options{DialTimeout: 500 * time.Millisecond})
	err := l.ClientTravel("127.0.0.1:1")
	assert.Error(t, err)
	assert.False(t, l.Connected())
}
