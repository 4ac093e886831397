package storagestate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspect(t *testing.T) {
	tests := []struct {
		name          string
		state         *State
		target        string
		wantMatching  []string
		wantValid     bool
		wantAnyTokens bool
	}{
		{
			name: "same host with msal entries",
			state: &State{Origins: []Origin{{
				Origin:       "https://azsqsmsls300.amr.corp.intel.com:4012",
				LocalStorage: []NameValue{{Name: "msal.token.keys.abc", Value: "{}"}},
			}}},
			target:        "https://azsqsmsls300.amr.corp.intel.com:4012",
			wantMatching:  []string{"https://azsqsmsls300.amr.corp.intel.com:4012"},
			wantValid:     true,
			wantAnyTokens: true,
		},
		{
			name: "sibling host on the same registrable domain",
			state: &State{Origins: []Origin{{
				Origin:       "https://AZVQSMSWEB360.amr.corp.intel.com:4012",
				LocalStorage: []NameValue{{Name: "SMS_ACCESS_TOKEN", Value: "t"}},
			}}},
			target:        "https://azsqsmsls300.amr.corp.intel.com:4012",
			wantMatching:  []string{"https://AZVQSMSWEB360.amr.corp.intel.com:4012"},
			wantValid:     true,
			wantAnyTokens: true,
		},
		{
			name: "tokens only on identity provider origin",
			state: &State{Origins: []Origin{
				{Origin: "https://azsqsmsls300.amr.corp.intel.com:4012", LocalStorage: []NameValue{{Name: "theme", Value: "dark"}}},
				{Origin: "https://login.microsoftonline.com", LocalStorage: []NameValue{{Name: "login.windows.net-idtoken", Value: "x"}}},
			}},
			target:        "https://azsqsmsls300.amr.corp.intel.com:4012",
			wantMatching:  []string{"https://azsqsmsls300.amr.corp.intel.com:4012"},
			wantValid:     false,
			wantAnyTokens: true,
		},
		{
			name: "unrelated domain",
			state: &State{Origins: []Origin{{
				Origin:       "https://example.org",
				LocalStorage: []NameValue{{Name: "TOKEN", Value: "x"}},
			}}},
			target:        "https://azsqsmsls300.amr.corp.intel.com:4012",
			wantMatching:  nil,
			wantValid:     false,
			wantAnyTokens: true,
		},
		{
			name: "loopback target must match exactly",
			state: &State{Origins: []Origin{
				{Origin: "http://127.0.0.1:3000", LocalStorage: []NameValue{{Name: "SMS_SESSION", Value: "x"}}},
				{Origin: "http://127.0.0.2:3000", LocalStorage: []NameValue{{Name: "SMS_SESSION", Value: "x"}}},
			}},
			target:        "http://127.0.0.1:3000",
			wantMatching:  []string{"http://127.0.0.1:3000"},
			wantValid:     true,
			wantAnyTokens: true,
		},
		{
			name: "localhost without markers",
			state: &State{Origins: []Origin{{
				Origin:       "http://localhost:3000",
				LocalStorage: []NameValue{{Name: "theme", Value: "dark"}},
			}}},
			target:        "http://localhost:3000/sms-dashboard",
			wantMatching:  []string{"http://localhost:3000"},
			wantValid:     false,
			wantAnyTokens: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := tt.state.Inspect(tt.target, nil)
			require.NoError(t, err)

			assert.Equal(t, tt.wantMatching, report.MatchingOrigins)
			assert.Equal(t, tt.wantValid, report.Valid())
			assert.Equal(t, tt.wantAnyTokens, report.HasAuthEntries())
			assert.Equal(t, len(tt.state.Origins), report.Origins)
		})
	}
}

func TestInspectInvalidTarget(t *testing.T) {
	state := &State{Origins: []Origin{{Origin: "https://a.example.com"}}}
	_, err := state.Inspect("::not a url", nil)
	assert.Error(t, err)
}

func TestMarkerMatcher(t *testing.T) {
	m, err := NewMarkerMatcher([]string{"auth.*", "*.idtoken"})
	require.NoError(t, err)

	assert.True(t, m.Match("auth.session"))
	assert.True(t, m.Match("abc.idtoken"))
	assert.False(t, m.Match("msal.account"))
	assert.Equal(t, []string{"auth.*", "*.idtoken"}, m.Patterns())

	defaults, err := NewMarkerMatcher(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultAuthMarkers, defaults.Patterns())
	assert.True(t, defaults.Match("msal.account.keys"))
	assert.False(t, defaults.Match("theme"))

	_, err = NewMarkerMatcher([]string{"[unterminated"})
	assert.Error(t, err)
}
