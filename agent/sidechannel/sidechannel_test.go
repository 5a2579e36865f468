package sidechannel

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/BaSui01/roundtable/agent/runtime"
	"github.com/BaSui01/roundtable/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invocation(t *testing.T, name string, args any) runtime.ToolInvocation {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return runtime.ToolInvocation{Name: name, Args: raw}
}

func TestParse_DirectMessage(t *testing.T) {
	inv := invocation(t, ToolDirectMessage, map[string]any{"recipient": "bob", "message": "can you  back me\nup?"})

	out, ok := Parse(inv, "alice").(Recognized)
	require.True(t, ok)
	assert.Equal(t, EventDirect, out.Event.Type)
	assert.Equal(t, []string{"bob"}, out.Event.Recipients)
	assert.Equal(t, "can you back me up?", out.Event.Preview)
	assert.Equal(t, "[side channel] alice messaged bob: can you back me up?…", out.Event.LogLine())
}

func TestParse_Broadcast(t *testing.T) {
	inv := invocation(t, ToolBroadcastMessage, map[string]any{"tags": []string{"backend", " "}, "message": "heads up"})

	out, ok := Parse(inv, "carol").(Recognized)
	require.True(t, ok)
	assert.Equal(t, EventBroadcast, out.Event.Type)
	assert.Equal(t, []string{"backend"}, out.Event.Recipients)
	assert.Contains(t, out.Event.LogLine(), "carol messaged tags [backend]")
}

func TestParse_PreviewTruncated(t *testing.T) {
	long := strings.Repeat("x", 200)
	inv := invocation(t, ToolDirectMessage, map[string]any{"recipient": "bob", "message": long})

	out, ok := Parse(inv, "alice").(Recognized)
	require.True(t, ok)
	assert.LessOrEqual(t, len([]rune(out.Event.Preview)), PreviewLength)
	assert.True(t, strings.HasSuffix(out.Event.Preview, "..."))

	line := out.Event.LogLine()
	assert.True(t, strings.HasSuffix(line, "x…"), line)
	assert.NotContains(t, line, "...")
}

func TestParse_Outcomes(t *testing.T) {
	tests := []struct {
		name string
		inv  runtime.ToolInvocation
		want string
	}{
		{"unknown tool", runtime.ToolInvocation{Name: "web_search", Args: json.RawMessage(`{}`)}, "unrecognized"},
		{"bad json", runtime.ToolInvocation{Name: ToolDirectMessage, Args: json.RawMessage(`{"recipient":`)}, "malformed"},
		{"missing args", runtime.ToolInvocation{Name: ToolBroadcastMessage}, "malformed"},
		{"empty recipient", runtime.ToolInvocation{Name: ToolDirectMessage, Args: json.RawMessage(`{"recipient":"","message":"hi"}`)}, "malformed"},
		{"no tags", runtime.ToolInvocation{Name: ToolBroadcastMessage, Args: json.RawMessage(`{"tags":[],"message":"hi"}`)}, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			switch out := Parse(tt.inv, "alice").(type) {
			case Unrecognized:
				assert.Equal(t, "unrecognized", tt.want)
			case Malformed:
				assert.Equal(t, "malformed", tt.want)
				assert.True(t, types.IsErrorCode(out.Err, types.ErrSideChannelParseFailure))
			default:
				t.Fatalf("unexpected outcome %T", out)
			}
		})
	}
}

func TestDetect_SkipsMalformedAndText(t *testing.T) {
	parts := []runtime.TurnResult{
		runtime.Text{Content: "hello all"},
		runtime.ToolInvocation{Name: ToolDirectMessage, Args: json.RawMessage(`not json`)},
		invocation(t, ToolDirectMessage, map[string]any{"recipient": "bob", "message": "first"}),
		runtime.Empty{},
		invocation(t, ToolBroadcastMessage, map[string]any{"tags": []string{"ops"}, "message": "second"}),
	}

	events := Detect(parts, "alice")
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Preview)
	assert.Equal(t, "second", events[1].Preview)
}
