package dash

import (
	"os"
	"regexp"
	"strings"

	"github.com/backmassage/dashpack/internal/failure"
)

// segmentRefPatterns matches quoted attribute values that reach the segment
// root through any leading path, in double or single quotes. Markup
// characters are excluded so a match never spans two attributes. The prefix is
// lazy so the first segment-root component wins, which keeps the rewrite a
// fixed point on already-normalized values.
func segmentRefPatterns(segmentRoot string) []*regexp.Regexp {
	root := regexp.QuoteMeta(segmentRoot)
	return []*regexp.Regexp{
		regexp.MustCompile(`"(?:[^"<>]*?/)??` + root + `/([^"<>]*)"`),
		regexp.MustCompile(`'(?:[^'<>]*?/)??` + root + `/([^'<>]*)'`),
	}
}

// Normalize rewrites every quoted "<anything>/<segmentRoot>/<rest>" to
// "<segmentRoot>/<rest>" after unifying backslashes to forward slashes. It is
// a text transform and does not parse the manifest. Normalize is idempotent.
func Normalize(manifest, segmentRoot string) string {
	out := strings.ReplaceAll(manifest, `\`, "/")
	pats := segmentRefPatterns(segmentRoot)
	out = pats[0].ReplaceAllString(out, `"`+segmentRoot+`/$1"`)
	out = pats[1].ReplaceAllString(out, `'`+segmentRoot+`/$1'`)
	return out
}

// NormalizeFile applies Normalize to the manifest at path and writes it back
// only when the content changed. A manifest without any matching reference
// is left untouched and is not an error.
func NormalizeFile(path, segmentRoot string) (changed bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, failure.New(failure.IOFailure, "read manifest", path, err)
	}
	fixed := Normalize(string(data), segmentRoot)
	if fixed == string(data) {
		return false, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, failure.New(failure.IOFailure, "stat manifest", path, err)
	}
	if err := os.WriteFile(path, []byte(fixed), info.Mode().Perm()); err != nil {
		return false, failure.New(failure.IOFailure, "write manifest", path, err)
	}
	return true, nil
}
