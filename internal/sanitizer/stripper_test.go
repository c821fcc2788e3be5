package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLStripper(t *testing.T) {
	s := NewHTMLStripper()

	assert.Equal(t, "Will it rain?", s.StripHTML("  <b>Will it rain?</b> "))
	assert.Equal(t, "", s.StripHTML("<script>alert(1)</script>"))
	assert.Equal(t, []string{"sports", "nba"}, StripAll(s, []string{"<i>sports</i>", "<br>", "nba"}))
}
