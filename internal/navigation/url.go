package navigation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/conneroisu/docview/internal/errors"
	"github.com/conneroisu/docview/internal/types"
)

// IndexURL is the URL of the class index page.
const IndexURL = "#!/class"

// classURLPattern splits a class URL into the class name and an optional
// member anchor. The class part is matched lazily, so the first dash starts
// the anchor: Ext.Panel-method-show -> Ext.Panel, method-show.
var classURLPattern = regexp.MustCompile(`^#!/class/(.*?)(?:-(.*))?$`)

// Target is a parsed navigation URL.
type Target struct {
	Index  bool
	Class  string
	Member string
}

// CleanURL reduces a link to its navigation fragment: anything before the
// '#' is dropped, "#/" is upgraded to "#!/" and percent escapes are decoded.
func CleanURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexByte(s, '#'); i > 0 {
		s = s[i:]
	}
	if strings.HasPrefix(s, "#/") {
		s = "#!" + s[1:]
	}
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	return s
}

// IsClassURL reports whether raw belongs to the class browser.
func IsClassURL(raw string) bool {
	s := CleanURL(raw)
	return s == IndexURL || strings.HasPrefix(s, IndexURL+"/")
}

// ParseURL parses a class browser URL.
func ParseURL(raw string) (Target, error) {
	s := CleanURL(raw)
	if s == IndexURL || s == IndexURL+"/" {
		return Target{Index: true}, nil
	}

	matches := classURLPattern.FindStringSubmatch(s)
	if matches == nil || matches[1] == "" {
		return Target{}, errors.NewValidationError(errors.ErrCodeInvalidURL, "not a class URL: "+raw)
	}
	return Target{Class: matches[1], Member: matches[2]}, nil
}

// String formats the target back into a URL
func (t Target) String() string {
	if t.Index {
		return IndexURL
	}
	return types.ClassURL(t.Class, t.Member)
}

// ScrollKey is the key scroll offsets are remembered under. Anchors do not
// take part: every anchor of a class shares the class's scroll record.
func (t Target) ScrollKey() string {
	if t.Index {
		return IndexURL
	}
	return types.ClassURL(t.Class, "")
}
