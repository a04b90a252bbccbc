package gen

import (
	"path"
	"strings"
)

// MarkerText is stamped at the top of every regenerated file.
const MarkerText = "Auto-generated by craby. DO NOT EDIT."

var lineComments = map[string]string{
	".rs":         "//",
	".cpp":        "//",
	".hpp":        "//",
	".h":          "//",
	".mm":         "//",
	".kt":         "//",
	".gradle":     "//",
	".txt":        "#",
	".properties": "#",
	".toml":       "#",
}

// Marker returns the generated-file marker line for p, or "" when the file
// type has no known comment syntax.
func Marker(p string) string {
	ext := path.Ext(p)
	if ext == ".xml" {
		return "<!-- " + MarkerText + " -->"
	}
	if prefix, ok := lineComments[ext]; ok {
		return prefix + " " + MarkerText
	}
	return ""
}

// Finalize normalizes every artifact to end with exactly one newline and
// prepends the marker to overwrite=true artifacts. Scaffolds stay unmarked
// since they belong to the user once written.
func Finalize(artifacts []*Artifact) {
	for _, a := range artifacts {
		body := strings.TrimRight(string(a.Content), "\n") + "\n"
		if a.Overwrite {
			if m := Marker(a.Path); m != "" {
				body = m + "\n\n" + body
			}
		}
		a.Content = []byte(body)
	}
}
