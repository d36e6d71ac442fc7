package cdp

import (
	"context"
	"testing"

	cdpproto "github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bananameter/playtabq/pkg/host"
)

func TestDecodeRemote(t *testing.T) {
	var key int
	require.NoError(t, decodeRemote(&runtime.RemoteObject{Value: []byte("7")}, nil, &key))
	assert.Equal(t, 7, key)

	var ok bool
	require.NoError(t, decodeRemote(&runtime.RemoteObject{Value: []byte("true")}, nil, &ok))
	assert.True(t, ok)

	// undefined leaves the target untouched
	key = 5
	require.NoError(t, decodeRemote(&runtime.RemoteObject{}, nil, &key))
	assert.Equal(t, 5, key)

	require.NoError(t, decodeRemote(&runtime.RemoteObject{Value: []byte("1")}, nil, nil))

	err := decodeRemote(nil, &runtime.ExceptionDetails{Text: "Uncaught"}, &key)
	assert.Error(t, err)

	assert.Error(t, decodeRemote(&runtime.RemoteObject{Value: []byte(`"x"`)}, nil, &key))
}

func TestIsPage(t *testing.T) {
	assert.True(t, isPage(&target.Info{Type: "page"}))
	assert.False(t, isPage(&target.Info{Type: "service_worker"}))
	assert.False(t, isPage(nil))
}

func TestIsMainFrame(t *testing.T) {
	assert.True(t, isMainFrame("ABC", cdpproto.FrameID("ABC")))
	assert.False(t, isMainFrame("ABC", cdpproto.FrameID("DEF")))
}

func TestFrameURL(t *testing.T) {
	assert.Equal(t, "https://www.youtube.com/watch?v=1#t=3",
		frameURL(&cdpproto.Frame{URL: "https://www.youtube.com/watch?v=1", URLFragment: "#t=3"}))
	assert.Empty(t, frameURL(nil))
}

func TestRegistry(t *testing.T) {
	r := newRegistry()

	require.True(t, r.claim("T1"))
	assert.False(t, r.claim("T1"), "pending claim")

	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.add(&tab{id: 1, target: "T1", cancel: cancel})
	assert.False(t, r.claim("T1"), "known target")

	got, ok := r.byTab(1)
	require.True(t, ok)
	assert.Equal(t, target.ID("T1"), got.target)

	got, ok = r.lookup("T1")
	require.True(t, ok)
	assert.Equal(t, host.TabID(1), got.id)
	assert.Len(t, r.all(), 1)

	require.True(t, r.claim("T2"))
	r.release("T2")
	assert.True(t, r.claim("T2"), "released claim can be retried")

	removed, ok := r.remove("T1")
	require.True(t, ok)
	assert.Equal(t, host.TabID(1), removed.id)
	_, ok = r.byTab(1)
	assert.False(t, ok)
	_, ok = r.remove("T1")
	assert.False(t, ok)
}
