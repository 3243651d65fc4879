package version

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetRevision(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want     string
		settings []debug.BuildSetting
	}{
		"no build info": {
			want: "unknown",
		},
		"long revision": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
			},
			want: "0123456",
		},
		"short revision": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc"},
			},
			want: "abc",
		},
		"modified": {
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.modified", Value: "true"},
			},
			want: "0123456-dirty",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, getRevision(tc.settings))
		})
	}
}

func TestString(t *testing.T) {
	t.Parallel()

	assert.Contains(t, String(), "crumbs "+GetVersion())
	assert.Contains(t, String(), GoOS+"/"+GoArch)
}
