package requirement

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_BareName(t *testing.T) {
	req, err := Parse("requests")
	require.NoError(t, err)
	assert.Equal(t, "requests", req.Name)
	assert.Empty(t, req.Constraints)
}

func TestParse_WithExtrasAndConstraints(t *testing.T) {
	req, err := Parse("requests[security,socks] >=2.20,<3.0")
	require.NoError(t, err)
	assert.Equal(t, "requests", req.Name)
	assert.ElementsMatch(t, []string{"security", "socks"}, req.Extras)
	require.Len(t, req.Constraints, 2)
}

func TestParse_InvalidName(t *testing.T) {
	_, err := Parse("   ")
	assert.Error(t, err)
}

func TestParsePEP508_StripsMarkerAndParens(t *testing.T) {
	req, err := ParsePEP508(`urllib3 (>=1.21.1,<1.27) ; extra == "socks"`)
	require.NoError(t, err)
	assert.Equal(t, "urllib3", req.Name)
	require.Len(t, req.Constraints, 2)
}

func TestParsePEP508_NoMarkerNoParens(t *testing.T) {
	req, err := ParsePEP508("certifi>=2017.4.17")
	require.NoError(t, err)
	assert.Equal(t, "certifi", req.Name)
	require.Len(t, req.Constraints, 1)
}

func TestParsePEP508_UnbalancedParens(t *testing.T) {
	_, err := ParsePEP508("urllib3 (>=1.21.1")
	assert.Error(t, err)
}

func TestNameEqual(t *testing.T) {
	assert.True(t, NameEqual("Requests", "requests"))
	assert.False(t, NameEqual("requests", "urllib3"))
}

func TestToCfgString(t *testing.T) {
	req, err := Parse("requests >=2.20")
	require.NoError(t, err)
	assert.Equal(t, `requests = ">=2.20"`, req.ToCfgString())

	bare, err := Parse("requests")
	require.NoError(t, err)
	assert.Equal(t, `requests = "*"`, bare.ToCfgString())
}

func TestToCfgString_PreservesExtras(t *testing.T) {
	req, err := Parse("requests[security,socks] >=2.20")
	require.NoError(t, err)
	cfg := req.ToCfgString()
	assert.Equal(t, `requests[security,socks] = ">=2.20"`, cfg)

	nameAndExtras := strings.TrimSuffix(strings.TrimSpace(strings.SplitN(cfg, "=", 2)[0]), " ")
	reparsed, err := Parse(nameAndExtras + " >=2.20")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"security", "socks"}, reparsed.Extras)
}
