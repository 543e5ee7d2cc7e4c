package landing

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"docgpt/api/internal/diagnose"
)

func TestTicker_IntervalMillis(t *testing.T) {
	req := require.New(t)
	req.Equal(int64(50), Ticker{Interval: 50 * time.Millisecond, Step: 1}.IntervalMillis())
	req.Equal(int64(0), Ticker{}.IntervalMillis())
}

func TestAPISample_MatchesWireTypes(t *testing.T) {
	req := require.New(t)
	s := APISample()
	req.True(strings.HasPrefix(s, "POST /api/v1/predict\nContent-Type: multipart/form-data"))
	req.Contains(s, `"disease_type": "eye"`)

	i := strings.Index(s, "Response:\n")
	req.Greater(i, 0)
	var r diagnose.Result
	req.NoError(json.Unmarshal([]byte(s[i+len("Response:\n"):]), &r))
	req.NoError(r.Validate())
	req.Equal(Example, r)
}

func TestDefault(t *testing.T) {
	req := require.New(t)
	p := Default()
	req.Equal("DocGPT", p.Brand)
	req.Len(p.Features, 6)
	req.Len(p.Conditions, 8)
	req.Equal("/diagnose", p.Nav[0].Href)
}
